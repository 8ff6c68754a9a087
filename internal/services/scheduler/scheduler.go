// Package scheduler периодически публикует напоминания о подтвержденных
// приемах на следующий день.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/mindup/internal/lib/sl"
	"github.com/magabrotheeeer/mindup/internal/models"
)

// DefaultInterval период между проверками.
const DefaultInterval = 12 * time.Hour

const reminderDateLayout = "02/01/2006 15:04"

// Repository определяет выборку записей для напоминаний и отметку об отправке.
type Repository interface {
	FindAcceptedAppointmentsBetween(ctx context.Context, from, to time.Time) ([]*models.AppointmentInfo, error)
	MarkReminded(ctx context.Context, id int64, at time.Time) error
}

// Publisher публикует уведомления в брокер.
type Publisher interface {
	Publish(routingKey string, message any) error
}

// Clock время и календарные дни в поясе клиники.
type Clock interface {
	Now() time.Time
	DayBounds(t time.Time) (time.Time, time.Time)
	Location() *time.Location
}

// Service рассылает напоминания о приемах.
type Service struct {
	repo      Repository
	publisher Publisher
	clock     Clock
	interval  time.Duration
	log       *slog.Logger
}

// New создает новый экземпляр Service. interval <= 0 заменяется на DefaultInterval.
func New(repo Repository, publisher Publisher, clock Clock, interval time.Duration, log *slog.Logger) *Service {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Service{
		repo:      repo,
		publisher: publisher,
		clock:     clock,
		interval:  interval,
		log:       log,
	}
}

// Run выполняет проверку сразу и затем с периодом interval до отмены ctx.
func (s *Service) Run(ctx context.Context) {
	s.runSafely(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runSafely(ctx)
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return
		}
	}
}

func (s *Service) runSafely(ctx context.Context) {
	if _, err := s.SendReminders(ctx); err != nil {
		s.log.Error("failed to send reminders", sl.Err(err))
	}
}

// SendReminders публикует appointment.reminder для каждого подтвержденного
// приема следующего календарного дня клиники и возвращает число отправленных.
// Опубликованное напоминание отмечается в записи, повторные проходы его пропускают.
func (s *Service) SendReminders(ctx context.Context) (int, error) {
	const op = "scheduler.SendReminders"

	from, to := s.clock.DayBounds(s.clock.Now().AddDate(0, 0, 1))
	s.log.Info("looking for appointments", slog.Time("from", from), slog.Time("to", to))

	infos, err := s.repo.FindAcceptedAppointmentsBetween(ctx, from, to)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if len(infos) == 0 {
		s.log.Info("no appointments found for tomorrow")
		return 0, nil
	}

	sent := 0
	for _, info := range infos {
		msg := models.Notification{
			Kind:             models.NotificationAppointmentReminder,
			Email:            info.PatientEmail,
			Name:             info.PatientName,
			PsychologistName: info.PsychologistName,
			Date:             info.Date.In(s.clock.Location()).Format(reminderDateLayout),
		}
		if err := s.publisher.Publish(string(msg.Kind), msg); err != nil {
			s.log.Error("failed to publish reminder", slog.Int64("appointment", info.AppointmentID), sl.Err(err))
			continue
		}
		sent++
		if err := s.repo.MarkReminded(ctx, info.AppointmentID, s.clock.Now()); err != nil {
			s.log.Error("failed to mark reminder as sent", slog.Int64("appointment", info.AppointmentID), sl.Err(err))
		}
	}
	s.log.Info("reminders published", slog.Int("found", len(infos)), slog.Int("sent", sent))
	return sent, nil
}
