package chat

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/mindup/internal/models"
)

type RepoMock struct {
	mock.Mock
}

func (m *RepoMock) GetUser(ctx context.Context, userUID string) (*models.User, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *RepoMock) ListAvailablePsychologists(ctx context.Context) ([]*models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) Publish(routingKey string, message any) error {
	return m.Called(routingKey, message).Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoadResources_Embedded(t *testing.T) {
	res, err := LoadResources("")
	require.NoError(t, err)
	assert.NotEmpty(t, res.EmergencyContacts)
	assert.NotEmpty(t, res.OtherResources)
	for _, c := range res.EmergencyContacts {
		assert.NotEmpty(t, c.Phone)
	}
}

func TestLoadResources_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resources.yaml")
	content := `
emergency_contacts:
  - name: "Hotline"
    phone: "555"
    description: "test"
other_resources: []
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	res, err := LoadResources(path)
	require.NoError(t, err)
	require.Len(t, res.EmergencyContacts, 1)
	assert.Equal(t, "555", res.EmergencyContacts[0].Phone)
	assert.Empty(t, res.OtherResources)

	_, err = LoadResources(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestService_RequestChat(t *testing.T) {
	patient := &models.User{UUID: "p1", Name: "Ana", Role: models.RolePatient}
	d1 := &models.User{UUID: "d1", Name: "Dr. Ruiz", Email: "ruiz@example.com", Role: models.RolePsychologist}
	d2 := &models.User{UUID: "d2", Name: "Dr. Paz", Email: "paz@example.com", Role: models.RolePsychologist}

	tests := []struct {
		name       string
		setupMocks func(r *RepoMock, p *PublisherMock)
		want       bool
		wantErr    error
	}{
		{
			name: "notifies every available psychologist",
			setupMocks: func(r *RepoMock, p *PublisherMock) {
				r.On("GetUser", mock.Anything, "p1").Return(patient, nil).Once()
				r.On("ListAvailablePsychologists", mock.Anything).Return([]*models.User{d1, d2}, nil).Once()
				p.On("Publish", "chat.request", models.Notification{
					Kind: models.NotificationChatRequest, Email: d1.Email, Name: d1.Name, PatientName: "Ana",
				}).Return(nil).Once()
				p.On("Publish", "chat.request", models.Notification{
					Kind: models.NotificationChatRequest, Email: d2.Email, Name: d2.Name, PatientName: "Ana",
				}).Return(nil).Once()
			},
			want: true,
		},
		{
			name: "nobody available",
			setupMocks: func(r *RepoMock, _ *PublisherMock) {
				r.On("GetUser", mock.Anything, "p1").Return(patient, nil).Once()
				r.On("ListAvailablePsychologists", mock.Anything).Return([]*models.User{}, nil).Once()
			},
			want: false,
		},
		{
			name: "partial publish failure",
			setupMocks: func(r *RepoMock, p *PublisherMock) {
				r.On("GetUser", mock.Anything, "p1").Return(patient, nil).Once()
				r.On("ListAvailablePsychologists", mock.Anything).Return([]*models.User{d1, d2}, nil).Once()
				p.On("Publish", "chat.request", mock.MatchedBy(func(n models.Notification) bool { return n.Email == d1.Email })).
					Return(errors.New("channel closed")).Once()
				p.On("Publish", "chat.request", mock.MatchedBy(func(n models.Notification) bool { return n.Email == d2.Email })).
					Return(nil).Once()
			},
			want: true,
		},
		{
			name: "requester is not a patient",
			setupMocks: func(r *RepoMock, _ *PublisherMock) {
				r.On("GetUser", mock.Anything, "p1").Return(d1, nil).Once()
			},
			wantErr: models.ErrRoleMismatch,
		},
		{
			name: "requester missing",
			setupMocks: func(r *RepoMock, _ *PublisherMock) {
				r.On("GetUser", mock.Anything, "p1").Return(nil, models.ErrUserNotFound).Once()
			},
			wantErr: models.ErrUserNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			pub := new(PublisherMock)
			tt.setupMocks(repo, pub)
			svc := New(repo, pub, models.Resources{}, newNoopLogger())

			got, err := svc.RequestChat(context.Background(), "p1")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.False(t, got)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			repo.AssertExpectations(t)
			pub.AssertExpectations(t)
		})
	}
}

func TestService_Resources(t *testing.T) {
	res := models.Resources{
		EmergencyContacts: []models.EmergencyContact{{Name: "911", Phone: "911"}},
		OtherResources:    []models.OtherResource{{Title: "WHO", URL: "https://who.int"}},
	}
	svc := New(nil, nil, res, newNoopLogger())

	assert.Equal(t, res.EmergencyContacts, svc.EmergencyContacts())
	assert.Equal(t, res.OtherResources, svc.OtherResources())
}
