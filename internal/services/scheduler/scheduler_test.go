package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/mindup/internal/lib/clock"
	"github.com/magabrotheeeer/mindup/internal/models"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) FindAcceptedAppointmentsBetween(ctx context.Context, from, to time.Time) ([]*models.AppointmentInfo, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.AppointmentInfo), args.Error(1)
}

func (m *MockRepository) MarkReminded(ctx context.Context, id int64, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(routingKey string, message any) error {
	return m.Called(routingKey, message).Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func testClock(t *testing.T) (*clock.Clock, *time.Location) {
	loc, err := time.LoadLocation(clock.ClinicTimezone)
	require.NoError(t, err)
	// 22:30 в клинике, по UTC уже следующий день
	return clock.NewFixed(loc, time.Date(2024, 6, 1, 22, 30, 0, 0, loc)), loc
}

func TestService_SendReminders(t *testing.T) {
	c, loc := testClock(t)
	now := c.Now()
	from := time.Date(2024, 6, 2, 0, 0, 0, 0, loc)
	to := time.Date(2024, 6, 3, 0, 0, 0, 0, loc)

	infos := []*models.AppointmentInfo{
		{AppointmentID: 1, PatientEmail: "ana@example.com", PatientName: "Ana", PsychologistName: "Dr. Ruiz",
			Date: time.Date(2024, 6, 2, 13, 0, 0, 0, time.UTC)},
		{AppointmentID: 2, PatientEmail: "leo@example.com", PatientName: "Leo", PsychologistName: "Dr. Paz",
			Date: time.Date(2024, 6, 2, 18, 30, 0, 0, loc)},
	}

	tests := []struct {
		name       string
		setupMocks func(r *MockRepository, p *MockPublisher)
		wantSent   int
		wantErr    bool
	}{
		{
			name: "publishes reminder per appointment",
			setupMocks: func(r *MockRepository, p *MockPublisher) {
				r.On("FindAcceptedAppointmentsBetween", mock.Anything,
					mock.MatchedBy(from.Equal), mock.MatchedBy(to.Equal)).Return(infos, nil).Once()
				p.On("Publish", "appointment.reminder", models.Notification{
					Kind: models.NotificationAppointmentReminder, Email: "ana@example.com", Name: "Ana",
					PsychologistName: "Dr. Ruiz", Date: "02/06/2024 10:00",
				}).Return(nil).Once()
				p.On("Publish", "appointment.reminder", models.Notification{
					Kind: models.NotificationAppointmentReminder, Email: "leo@example.com", Name: "Leo",
					PsychologistName: "Dr. Paz", Date: "02/06/2024 18:30",
				}).Return(nil).Once()
				r.On("MarkReminded", mock.Anything, int64(1), mock.MatchedBy(now.Equal)).Return(nil).Once()
				r.On("MarkReminded", mock.Anything, int64(2), mock.MatchedBy(now.Equal)).Return(nil).Once()
			},
			wantSent: 2,
		},
		{
			name: "mark failure keeps the reminder counted",
			setupMocks: func(r *MockRepository, p *MockPublisher) {
				r.On("FindAcceptedAppointmentsBetween", mock.Anything, mock.Anything, mock.Anything).Return(infos, nil).Once()
				p.On("Publish", "appointment.reminder", mock.Anything).Return(nil).Twice()
				r.On("MarkReminded", mock.Anything, int64(1), mock.Anything).Return(errors.New("db down")).Once()
				r.On("MarkReminded", mock.Anything, int64(2), mock.Anything).Return(nil).Once()
			},
			wantSent: 2,
		},
		{
			name: "publish failure does not stop the batch",
			setupMocks: func(r *MockRepository, p *MockPublisher) {
				r.On("FindAcceptedAppointmentsBetween", mock.Anything, mock.Anything, mock.Anything).Return(infos, nil).Once()
				p.On("Publish", "appointment.reminder", mock.MatchedBy(func(n models.Notification) bool {
					return n.Email == "ana@example.com"
				})).Return(errors.New("channel closed")).Once()
				p.On("Publish", "appointment.reminder", mock.MatchedBy(func(n models.Notification) bool {
					return n.Email == "leo@example.com"
				})).Return(nil).Once()
				r.On("MarkReminded", mock.Anything, int64(2), mock.Anything).Return(nil).Once()
			},
			wantSent: 1,
		},
		{
			name: "nothing tomorrow",
			setupMocks: func(r *MockRepository, _ *MockPublisher) {
				r.On("FindAcceptedAppointmentsBetween", mock.Anything, mock.Anything, mock.Anything).
					Return([]*models.AppointmentInfo{}, nil).Once()
			},
			wantSent: 0,
		},
		{
			name: "repository error",
			setupMocks: func(r *MockRepository, _ *MockPublisher) {
				r.On("FindAcceptedAppointmentsBetween", mock.Anything, mock.Anything, mock.Anything).
					Return(nil, errors.New("db down")).Once()
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			pub := new(MockPublisher)
			tt.setupMocks(repo, pub)

			svc := New(repo, pub, c, time.Hour, newNoopLogger())
			sent, err := svc.SendReminders(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantSent, sent)

			repo.AssertExpectations(t)
			pub.AssertExpectations(t)
		})
	}
}

func TestService_RunStopsOnCancel(t *testing.T) {
	c, _ := testClock(t)
	repo := new(MockRepository)
	pub := new(MockPublisher)
	var calls atomic.Int32
	repo.On("FindAcceptedAppointmentsBetween", mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { calls.Add(1) }).
		Return([]*models.AppointmentInfo{}, nil)

	svc := New(repo, pub, c, 10*time.Millisecond, newNoopLogger())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		svc.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return calls.Load() >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestNew_DefaultInterval(t *testing.T) {
	c, _ := testClock(t)
	svc := New(nil, nil, c, 0, newNoopLogger())
	assert.Equal(t, DefaultInterval, svc.interval)
}
