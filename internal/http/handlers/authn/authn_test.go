package authn

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/mindup/internal/models"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) Register(ctx context.Context, email, name, password string, role models.Role) (*models.User, error) {
	args := m.Called(ctx, email, name, password, role)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *ServiceMock) Authenticate(ctx context.Context, email, password string) (string, error) {
	args := m.Called(ctx, email, password)
	return args.String(0), args.Error(1)
}

func (m *ServiceMock) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *ServiceMock) VerifyEmail(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

func (m *ServiceMock) RequestPasswordReset(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *ServiceMock) ResetPassword(ctx context.Context, token, newPassword string) error {
	return m.Called(ctx, token, newPassword).Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

type envelope struct {
	Status string         `json:"status"`
	Error  string         `json:"error"`
	Data   map[string]any `json:"data"`
}

func doRequest(t *testing.T, h http.HandlerFunc, method, target string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var bodyBytes []byte
	switch v := body.(type) {
	case nil:
	case string:
		bodyBytes = []byte(v)
	default:
		var err error
		bodyBytes, err = json.Marshal(v)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(method, target, bytes.NewReader(bodyBytes))
	req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, "reqid123"))
	rec := httptest.NewRecorder()
	h(rec, req)

	var resp envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func TestHandler_Login(t *testing.T) {
	creds := LoginRequest{Email: "ana@example.com", Password: "secret123"}
	verified := &models.User{UUID: "uid-1", Email: "ana@example.com", Verified: true}
	unverified := &models.User{UUID: "uid-1", Email: "ana@example.com"}

	tests := []struct {
		name           string
		body           any
		setupMocks     func(s *ServiceMock)
		wantStatusCode int
		wantStatus     string
		wantError      string
	}{
		{
			name: "verified user gets token",
			body: creds,
			setupMocks: func(s *ServiceMock) {
				s.On("Authenticate", mock.Anything, creds.Email, creds.Password).Return("jwt-token", nil).Once()
				s.On("FindByEmail", mock.Anything, creds.Email).Return(verified, nil).Once()
			},
			wantStatusCode: http.StatusOK,
			wantStatus:     "OK",
		},
		{
			name: "unverified user is forbidden",
			body: creds,
			setupMocks: func(s *ServiceMock) {
				s.On("Authenticate", mock.Anything, creds.Email, creds.Password).Return("jwt-token", nil).Once()
				s.On("FindByEmail", mock.Anything, creds.Email).Return(unverified, nil).Once()
			},
			wantStatusCode: http.StatusForbidden,
			wantStatus:     "Error",
			wantError:      "Account not verified. Please verify your email first.",
		},
		{
			name: "user vanished after authentication",
			body: creds,
			setupMocks: func(s *ServiceMock) {
				s.On("Authenticate", mock.Anything, creds.Email, creds.Password).Return("jwt-token", nil).Once()
				s.On("FindByEmail", mock.Anything, creds.Email).
					Return(nil, models.Detail(models.ErrUserNotFound, "User not found.")).Once()
			},
			wantStatusCode: http.StatusNotFound,
			wantStatus:     "Error",
			wantError:      "User not found.",
		},
		{
			name: "bad credentials",
			body: creds,
			setupMocks: func(s *ServiceMock) {
				s.On("Authenticate", mock.Anything, creds.Email, creds.Password).
					Return("", models.ErrInvalidCredentials).Once()
			},
			wantStatusCode: http.StatusUnauthorized,
			wantStatus:     "Error",
			wantError:      "Invalid credentials.",
		},
		{
			name:           "invalid json body",
			body:           "not a json",
			setupMocks:     func(_ *ServiceMock) {},
			wantStatusCode: http.StatusBadRequest,
			wantStatus:     "Error",
			wantError:      "invalid request body",
		},
		{
			name:           "validation error - missing password",
			body:           LoginRequest{Email: "ana@example.com"},
			setupMocks:     func(_ *ServiceMock) {},
			wantStatusCode: http.StatusUnprocessableEntity,
			wantStatus:     "Error",
			wantError:      "field Password is a required field",
		},
		{
			name: "internal error is opaque",
			body: creds,
			setupMocks: func(s *ServiceMock) {
				s.On("Authenticate", mock.Anything, creds.Email, creds.Password).
					Return("", errors.New("dial tcp: connection refused")).Once()
			},
			wantStatusCode: http.StatusInternalServerError,
			wantStatus:     "Error",
			wantError:      "internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			tt.setupMocks(svc)
			h := New(newNoopLogger(), svc)

			rec, resp := doRequest(t, h.Login, http.MethodPost, "/api/core/login", tt.body)

			assert.Equal(t, tt.wantStatusCode, rec.Code)
			assert.Equal(t, tt.wantStatus, resp.Status)
			assert.Equal(t, tt.wantError, resp.Error)
			if tt.wantStatusCode == http.StatusOK {
				assert.Equal(t, "jwt-token", resp.Data["token"])
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestHandler_Register(t *testing.T) {
	tests := []struct {
		name           string
		body           any
		setupMocks     func(s *ServiceMock)
		wantStatusCode int
		wantError      string
	}{
		{
			name: "created",
			body: RegisterRequest{Email: "ana@example.com", Name: "Ana", Password: "secret123", Role: "PATIENT"},
			setupMocks: func(s *ServiceMock) {
				s.On("Register", mock.Anything, "ana@example.com", "Ana", "secret123", models.RolePatient).
					Return(&models.User{UUID: "uid-1", Email: "ana@example.com", Role: models.RolePatient}, nil).Once()
			},
			wantStatusCode: http.StatusCreated,
		},
		{
			name: "duplicate email",
			body: RegisterRequest{Email: "ana@example.com", Name: "Ana", Password: "secret123", Role: "PSYCHOLOGIST"},
			setupMocks: func(s *ServiceMock) {
				s.On("Register", mock.Anything, mock.Anything, mock.Anything, mock.Anything, models.RolePsychologist).
					Return(nil, models.Detail(models.ErrConflict, "Email is already registered")).Once()
			},
			wantStatusCode: http.StatusConflict,
			wantError:      "Email is already registered",
		},
		{
			name:           "admin role is rejected by validation",
			body:           RegisterRequest{Email: "ana@example.com", Name: "Ana", Password: "secret123", Role: "ADMIN"},
			setupMocks:     func(_ *ServiceMock) {},
			wantStatusCode: http.StatusUnprocessableEntity,
			wantError:      "field Role must be one of [PATIENT PSYCHOLOGIST]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			tt.setupMocks(svc)
			h := New(newNoopLogger(), svc)

			rec, resp := doRequest(t, h.Register, http.MethodPost, "/api/core/register", tt.body)

			assert.Equal(t, tt.wantStatusCode, rec.Code)
			assert.Equal(t, tt.wantError, resp.Error)
			svc.AssertExpectations(t)
		})
	}
}

func TestHandler_Verify(t *testing.T) {
	t.Run("missing token", func(t *testing.T) {
		h := New(newNoopLogger(), new(ServiceMock))
		rec, resp := doRequest(t, h.Verify, http.MethodGet, "/api/core/verify", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "token is required", resp.Error)
	})

	t.Run("expired token", func(t *testing.T) {
		svc := new(ServiceMock)
		svc.On("VerifyEmail", mock.Anything, "t1").Return(models.ErrInvalidToken).Once()
		h := New(newNoopLogger(), svc)

		rec, resp := doRequest(t, h.Verify, http.MethodGet, "/api/core/verify?token=t1", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid or expired token.", resp.Error)
	})

	t.Run("verified", func(t *testing.T) {
		svc := new(ServiceMock)
		svc.On("VerifyEmail", mock.Anything, "t1").Return(nil).Once()
		h := New(newNoopLogger(), svc)

		rec, resp := doRequest(t, h.Verify, http.MethodGet, "/api/core/verify?token=t1", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, true, resp.Data["verified"])
	})
}

func TestHandler_PasswordReset(t *testing.T) {
	svc := new(ServiceMock)
	svc.On("RequestPasswordReset", mock.Anything, "ana@example.com").Return(nil).Once()
	svc.On("ResetPassword", mock.Anything, "t1", "brand-new").Return(nil).Once()
	svc.On("ResetPassword", mock.Anything, "t1", "again-new").Return(models.ErrInvalidToken).Once()
	h := New(newNoopLogger(), svc)

	rec, _ := doRequest(t, h.RequestPasswordReset, http.MethodPost, "/api/core/requestPwReset",
		PasswordResetRequest{Email: "ana@example.com"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = doRequest(t, h.ResetPassword, http.MethodPost, "/api/core/resetPW",
		ResetPasswordRequest{Token: "t1", NewPassword: "brand-new"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, resp := doRequest(t, h.ResetPassword, http.MethodPost, "/api/core/resetPW",
		ResetPasswordRequest{Token: "t1", NewPassword: "again-new"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid or expired token.", resp.Error)

	rec, _ = doRequest(t, h.ResetPassword, http.MethodPost, "/api/core/resetPW",
		ResetPasswordRequest{Token: "t1", NewPassword: "123"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	svc.AssertExpectations(t)
}
