package appointment

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/mindup/internal/lib/clock"
	"github.com/magabrotheeeer/mindup/internal/models"
)

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

var clinic = func() *time.Location {
	loc, err := time.LoadLocation(clock.ClinicTimezone)
	if err != nil {
		panic(err)
	}
	return loc
}()

var fixedNow = time.Date(2024, 5, 20, 9, 0, 0, 0, clinic)

func newTestClock() *clock.Clock {
	return clock.NewFixed(clinic, fixedNow)
}

type RepoMock struct{ mock.Mock }

func (m *RepoMock) FindUser(ctx context.Context, userUID string) (*models.User, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *RepoMock) CreateAppointment(ctx context.Context, a models.Appointment) (int64, error) {
	args := m.Called(ctx, a)
	return args.Get(0).(int64), args.Error(1)
}

func (m *RepoMock) GetAppointment(ctx context.Context, id int64) (*models.Appointment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Appointment), args.Error(1)
}

func (m *RepoMock) SaveAppointment(ctx context.Context, a models.Appointment) error {
	return m.Called(ctx, a).Error(0)
}

func (m *RepoMock) CountPatientAppointmentsBetween(ctx context.Context, patientUID string, from, to time.Time, excludeID int64) (int, error) {
	args := m.Called(ctx, patientUID, from, to, excludeID)
	return args.Int(0), args.Error(1)
}

func (m *RepoMock) CountPsychologistAppointmentsBetween(ctx context.Context, psychologistUID string, from, to time.Time, excludeID int64) (int, error) {
	args := m.Called(ctx, psychologistUID, from, to, excludeID)
	return args.Int(0), args.Error(1)
}

func (m *RepoMock) ListAppointments(ctx context.Context, filter models.AppointmentFilter) ([]*models.Appointment, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Appointment), args.Error(1)
}

// memRepo хранилище в памяти с той же семантикой выборок, что и PostgreSQL.
type memRepo struct {
	mu     sync.Mutex
	users  map[string]*models.User
	items  map[int64]models.Appointment
	nextID int64
}

func newMemRepo(users ...*models.User) *memRepo {
	r := &memRepo{users: map[string]*models.User{}, items: map[int64]models.Appointment{}}
	for _, u := range users {
		r.users[u.UUID] = u
	}
	return r
}

func (r *memRepo) FindUser(_ context.Context, userUID string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userUID]
	if !ok {
		return nil, models.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memRepo) CreateAppointment(_ context.Context, a models.Appointment) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	a.ID = r.nextID
	r.items[a.ID] = a
	return a.ID, nil
}

func (r *memRepo) GetAppointment(_ context.Context, id int64) (*models.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok {
		return nil, models.ErrAppointmentNotFound
	}
	return &a, nil
}

func (r *memRepo) SaveAppointment(_ context.Context, a models.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[a.ID]; !ok {
		return models.ErrAppointmentNotFound
	}
	r.items[a.ID] = a
	return nil
}

func (r *memRepo) count(match func(a models.Appointment) bool, excludeID int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, a := range r.items {
		if id != excludeID && a.Active() && match(a) {
			n++
		}
	}
	return n
}

func (r *memRepo) CountPatientAppointmentsBetween(_ context.Context, patientUID string, from, to time.Time, excludeID int64) (int, error) {
	return r.count(func(a models.Appointment) bool {
		return a.PatientUID == patientUID && !a.Date.Before(from) && a.Date.Before(to)
	}, excludeID), nil
}

func (r *memRepo) CountPsychologistAppointmentsBetween(_ context.Context, psychologistUID string, from, to time.Time, excludeID int64) (int, error) {
	return r.count(func(a models.Appointment) bool {
		return a.PsychologistUID == psychologistUID && !a.Date.Before(from) && !a.Date.After(to)
	}, excludeID), nil
}

func (r *memRepo) ListAppointments(_ context.Context, f models.AppointmentFilter) ([]*models.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]*models.Appointment, 0)
	for _, a := range r.items {
		if !a.Active() ||
			(f.PatientUID != "" && a.PatientUID != f.PatientUID) ||
			(f.PsychologistUID != "" && a.PsychologistUID != f.PsychologistUID) ||
			(f.Status != "" && a.Status != f.Status) {
			continue
		}
		cp := a
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}
