package sl_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/magabrotheeeer/mindup/internal/lib/sl"
)

func TestErr(t *testing.T) {
	base := errors.New("appointment not found")
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "plain", err: base, want: "appointment not found"},
		{name: "wrapped", err: fmt.Errorf("storage.GetAppointment: %w", base), want: "storage.GetAppointment: appointment not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attr := sl.Err(tt.err)
			assert.Equal(t, "error", attr.Key)
			assert.Equal(t, slog.StringValue(tt.want), attr.Value)
		})
	}
}

func TestErr_NilError(t *testing.T) {
	assert.Panics(t, func() {
		_ = sl.Err(nil)
	})
}

func TestSetupLogger(t *testing.T) {
	tests := []struct {
		env        string
		debugLevel bool
	}{
		{env: "local", debugLevel: true},
		{env: "dev", debugLevel: true},
		{env: "prod", debugLevel: false},
		{env: "unknown", debugLevel: false},
	}
	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			log := sl.SetupLogger(tt.env)
			assert.NotNil(t, log)
			assert.Equal(t, tt.debugLevel, log.Enabled(context.Background(), slog.LevelDebug))
		})
	}
}
