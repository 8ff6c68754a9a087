package message

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/mindup/internal/models"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) RequestChat(ctx context.Context, patientUID string) (bool, error) {
	args := m.Called(ctx, patientUID)
	return args.Bool(0), args.Error(1)
}

func (m *ServiceMock) EmergencyContacts() []models.EmergencyContact {
	return m.Called().Get(0).([]models.EmergencyContact)
}

func (m *ServiceMock) OtherResources() []models.OtherResource {
	return m.Called().Get(0).([]models.OtherResource)
}

type envelope struct {
	Status string          `json:"status"`
	Error  string          `json:"error"`
	Data   json.RawMessage `json:"data"`
}

func serve(t *testing.T, svc *ServiceMock, target string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	h := New(slog.New(slog.NewTextHandler(io.Discard, nil)), svc)
	r := chi.NewRouter()
	r.Get("/chat-request/{patientId}", h.ChatRequest)
	r.Get("/emergency-contact", h.EmergencyContacts)
	r.Get("/other-resources", h.OtherResources)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

	var resp envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func TestHandler_ChatRequest(t *testing.T) {
	tests := []struct {
		name          string
		requested     bool
		err           error
		wantCode      int
		wantError     string
		wantRequested string
	}{
		{name: "psychologists notified", requested: true, wantCode: http.StatusOK, wantRequested: `{"requested":true}`},
		{name: "nobody available", requested: false, wantCode: http.StatusOK, wantRequested: `{"requested":false}`},
		{name: "caller is not a patient", err: models.Detail(models.ErrRoleMismatch, "Only patients can request a chat"),
			wantCode: http.StatusConflict, wantError: "Only patients can request a chat"},
		{name: "unknown patient", err: models.ErrUserNotFound, wantCode: http.StatusNotFound, wantError: "User not found."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			svc.On("RequestChat", mock.Anything, "uid-1").Return(tt.requested, tt.err).Once()

			rec, resp := serve(t, svc, "/chat-request/uid-1")

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantError, resp.Error)
			if tt.wantRequested != "" {
				assert.JSONEq(t, tt.wantRequested, string(resp.Data))
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestHandler_Resources(t *testing.T) {
	svc := new(ServiceMock)
	svc.On("EmergencyContacts").Return([]models.EmergencyContact{
		{Name: "Emergencias", Phone: "911"},
		{Name: "SAME", Phone: "107"},
	}).Once()
	svc.On("OtherResources").Return([]models.OtherResource{
		{Title: "Centro de Asistencia al Suicida", URL: "https://www.asistenciaalsuicida.org.ar"},
	}).Once()

	rec, resp := serve(t, svc, "/emergency-contact")
	assert.Equal(t, http.StatusOK, rec.Code)
	var contacts []models.EmergencyContact
	require.NoError(t, json.Unmarshal(resp.Data, &contacts))
	require.Len(t, contacts, 2)
	assert.Equal(t, "911", contacts[0].Phone)

	rec, resp = serve(t, svc, "/other-resources")
	assert.Equal(t, http.StatusOK, rec.Code)
	var other []models.OtherResource
	require.NoError(t, json.Unmarshal(resp.Data, &other))
	require.Len(t, other, 1)

	svc.AssertExpectations(t)
}
