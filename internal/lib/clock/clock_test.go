package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	c, err := New()
	require.NoError(t, err)
	assert.Equal(t, ClinicTimezone, c.Location().String())
}

func TestClock_Parse(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	tests := []struct {
		name    string
		value   string
		want    time.Time
		wantErr bool
	}{
		{
			name:  "local without seconds",
			value: "2025-03-10T10:00",
			want:  time.Date(2025, 3, 10, 10, 0, 0, 0, c.Location()),
		},
		{
			name:  "local with seconds",
			value: "2025-03-10T10:00:30",
			want:  time.Date(2025, 3, 10, 10, 0, 30, 0, c.Location()),
		},
		{
			name:  "rfc3339 utc",
			value: "2025-03-10T13:00:00Z",
			want:  time.Date(2025, 3, 10, 10, 0, 0, 0, c.Location()),
		},
		{
			name:    "garbage",
			value:   "tomorrow",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Parse(tt.value)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s got %s", tt.want, got)
			assert.Equal(t, c.Location(), got.Location())
		})
	}
}

func TestClock_DayBounds(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	// 01:30 UTC 11 марта это 22:30 10 марта в Буэнос-Айресе
	start, end := c.DayBounds(time.Date(2025, 3, 11, 1, 30, 0, 0, time.UTC))
	assert.True(t, start.Equal(time.Date(2025, 3, 10, 0, 0, 0, 0, c.Location())))
	assert.True(t, end.Equal(time.Date(2025, 3, 11, 0, 0, 0, 0, c.Location())))
}

func TestClock_NowFixed(t *testing.T) {
	loc, err := time.LoadLocation(ClinicTimezone)
	require.NoError(t, err)
	fixed := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	c := NewFixed(loc, fixed)
	assert.True(t, fixed.Equal(c.Now()))
	assert.Equal(t, loc, c.Now().Location())
}
