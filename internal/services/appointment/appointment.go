// Package appointment содержит бизнес-логику записей на прием: проверку ролей,
// пересечений по расписанию, смену статусов, мягкое удаление и выборки.
package appointment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/mindup/internal/models"
)

const (
	// createWindow окно перед датой новой записи, в котором у психолога
	// не должно быть других активных записей.
	createWindow = 30 * time.Minute
	// updateWindow окно в обе стороны от даты при изменении записи.
	updateWindow = 10 * time.Minute
)

// Repository определяет методы хранилища, нужные сервису.
type Repository interface {
	FindUser(ctx context.Context, userUID string) (*models.User, error)
	CreateAppointment(ctx context.Context, a models.Appointment) (int64, error)
	GetAppointment(ctx context.Context, id int64) (*models.Appointment, error)
	SaveAppointment(ctx context.Context, a models.Appointment) error
	// CountPatientAppointmentsBetween считает активные записи в [from, to).
	CountPatientAppointmentsBetween(ctx context.Context, patientUID string, from, to time.Time, excludeID int64) (int, error)
	// CountPsychologistAppointmentsBetween считает активные записи в [from, to].
	CountPsychologistAppointmentsBetween(ctx context.Context, psychologistUID string, from, to time.Time, excludeID int64) (int, error)
	ListAppointments(ctx context.Context, filter models.AppointmentFilter) ([]*models.Appointment, error)
}

// Clock время и календарные дни в поясе клиники.
type Clock interface {
	Now() time.Time
	DayBounds(t time.Time) (time.Time, time.Time)
	Parse(value string) (time.Time, error)
}

// Service реализует жизненный цикл записей на прием.
type Service struct {
	repo  Repository
	clock Clock
	log   *slog.Logger
}

// New создает новый экземпляр Service.
func New(repo Repository, clock Clock, log *slog.Logger) *Service {
	return &Service{
		repo:  repo,
		clock: clock,
		log:   log,
	}
}

// Create создает запись в статусе PENDING.
func (s *Service) Create(ctx context.Context, req models.DummyAppointment) (*models.Appointment, error) {
	const op = "appointment.Create"

	date, err := s.parseDate(req.Date)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	patient, psychologist, err := s.parties(ctx, req.PatientID, req.PsychologistID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if patient.Role != models.RolePatient {
		return nil, fmt.Errorf("%s: %w", op, models.Detail(models.ErrRoleMismatch, "The patient must have the PATIENT role"))
	}
	if psychologist.Role != models.RolePsychologist {
		return nil, fmt.Errorf("%s: %w", op, models.Detail(models.ErrRoleMismatch, "The psychologist must have the PSYCHOLOGIST role"))
	}

	if err := s.checkPatientDay(ctx, patient.UUID, date, 0); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.checkPsychologistWindow(ctx, psychologist.UUID, date.Add(-createWindow), date, 0); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	a := models.Appointment{
		PatientUID:      patient.UUID,
		PsychologistUID: psychologist.UUID,
		Date:            date,
		Status:          models.StatusPending,
	}
	id, err := s.repo.CreateAppointment(ctx, a)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, dayConflict(err))
	}
	a.ID = id

	s.log.Info("appointment created",
		slog.Int64("id", id),
		slog.String("patient", a.PatientUID),
		slog.String("psychologist", a.PsychologistUID))
	return &a, nil
}

// Accept переводит запись в статус ACCEPTED.
func (s *Service) Accept(ctx context.Context, id int64) (*models.Appointment, error) {
	const op = "appointment.Accept"
	a, err := s.setStatus(ctx, id, models.StatusAccepted)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return a, nil
}

// Cancel переводит запись в статус CANCELED независимо от текущего статуса.
func (s *Service) Cancel(ctx context.Context, id int64) (*models.Appointment, error) {
	const op = "appointment.Cancel"
	a, err := s.setStatus(ctx, id, models.StatusCanceled)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return a, nil
}

func (s *Service) setStatus(ctx context.Context, id int64, status models.AppointmentStatus) (*models.Appointment, error) {
	a, err := s.repo.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	a.Status = status
	if err := s.repo.SaveAppointment(ctx, *a); err != nil {
		return nil, err
	}
	s.log.Info("appointment status changed", slog.Int64("id", id), slog.String("status", string(status)))
	return a, nil
}

// Update меняет участников и дату записи. callerRole роль пользователя,
// выполняющего запрос.
//
// Проверки ролей повторяют поведение исходной системы: психолог с ролью
// PSYCHOLOGIST отклоняется, а вызывающий должен быть пациентом.
func (s *Service) Update(ctx context.Context, callerRole models.Role, id int64, req models.DummyAppointment) (*models.Appointment, error) {
	const op = "appointment.Update"

	date, err := s.parseDate(req.Date)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	patient, psychologist, err := s.parties(ctx, req.PatientID, req.PsychologistID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if patient.Role != models.RolePatient {
		return nil, fmt.Errorf("%s: %w", op, models.Detail(models.ErrRoleMismatch, "The patient must have the PATIENT role"))
	}
	// TODO: уточнить у продукта, не инвертирована ли проверка роли психолога; сейчас сохранено поведение продакшена.
	if psychologist.Role == models.RolePsychologist {
		return nil, fmt.Errorf("%s: %w", op, models.Detail(models.ErrRoleMismatch, "The psychologist must have the PSYCHOLOGIST role"))
	}
	if callerRole != models.RolePatient {
		return nil, fmt.Errorf("%s: %w", op, models.Detail(models.ErrRoleMismatch, "Only psychologists can cancel appointments"))
	}

	a, err := s.repo.GetAppointment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.checkPatientDay(ctx, patient.UUID, date, a.ID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.checkPsychologistWindow(ctx, psychologist.UUID, date.Add(-updateWindow), date.Add(updateWindow), a.ID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	a.PatientUID = patient.UUID
	a.PsychologistUID = psychologist.UUID
	a.Date = date
	if err := s.repo.SaveAppointment(ctx, *a); err != nil {
		return nil, fmt.Errorf("%s: %w", op, dayConflict(err))
	}

	s.log.Info("appointment updated", slog.Int64("id", id))
	return a, nil
}

// SoftDelete помечает запись удаленной текущим временем клиники. Статус не меняется.
func (s *Service) SoftDelete(ctx context.Context, id int64) (*models.DeletedAppointment, error) {
	const op = "appointment.SoftDelete"

	a, err := s.repo.GetAppointment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	now := s.clock.Now()
	a.SoftDeletedAt = &now
	if err := s.repo.SaveAppointment(ctx, *a); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("appointment soft deleted", slog.Int64("id", id))
	return &models.DeletedAppointment{
		ID:            a.ID,
		SoftDeletedAt: now,
		Status:        a.Status,
	}, nil
}

// Reactivate снимает отметку мягкого удаления. Статус не меняется.
// Если у пациента уже есть другая активная запись в этот день,
// хранилище вернет models.ErrConflict.
func (s *Service) Reactivate(ctx context.Context, id int64) (*models.Appointment, error) {
	const op = "appointment.Reactivate"

	a, err := s.repo.GetAppointment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	a.SoftDeletedAt = nil
	if err := s.repo.SaveAppointment(ctx, *a); err != nil {
		return nil, fmt.Errorf("%s: %w", op, dayConflict(err))
	}

	s.log.Info("appointment reactivated", slog.Int64("id", id))
	return a, nil
}

// Get возвращает запись по ID, в том числе мягко удаленную.
func (s *Service) Get(ctx context.Context, id int64) (*models.Appointment, error) {
	const op = "appointment.Get"
	a, err := s.repo.GetAppointment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return a, nil
}

// ReservedByPatient подтвержденные записи пациента.
func (s *Service) ReservedByPatient(ctx context.Context, patientUID string) ([]*models.Appointment, error) {
	const op = "appointment.ReservedByPatient"
	return s.listFor(ctx, op, patientUID, models.RolePatient, models.StatusAccepted)
}

// ReservedByPsychologist подтвержденные записи психолога.
func (s *Service) ReservedByPsychologist(ctx context.Context, psychologistUID string) ([]*models.Appointment, error) {
	const op = "appointment.ReservedByPsychologist"
	return s.listFor(ctx, op, psychologistUID, models.RolePsychologist, models.StatusAccepted)
}

// AllByPatient все активные записи пациента.
func (s *Service) AllByPatient(ctx context.Context, patientUID string) ([]*models.Appointment, error) {
	const op = "appointment.AllByPatient"
	return s.listFor(ctx, op, patientUID, models.RolePatient, "")
}

// AllByPsychologist все активные записи психолога.
func (s *Service) AllByPsychologist(ctx context.Context, psychologistUID string) ([]*models.Appointment, error) {
	const op = "appointment.AllByPsychologist"
	return s.listFor(ctx, op, psychologistUID, models.RolePsychologist, "")
}

// Pending активные записи в статусе PENDING.
func (s *Service) Pending(ctx context.Context) ([]*models.Appointment, error) {
	return s.byStatus(ctx, "appointment.Pending", models.StatusPending)
}

// Accepted активные записи в статусе ACCEPTED.
func (s *Service) Accepted(ctx context.Context) ([]*models.Appointment, error) {
	return s.byStatus(ctx, "appointment.Accepted", models.StatusAccepted)
}

// Canceled активные записи в статусе CANCELED.
func (s *Service) Canceled(ctx context.Context) ([]*models.Appointment, error) {
	return s.byStatus(ctx, "appointment.Canceled", models.StatusCanceled)
}

func (s *Service) byStatus(ctx context.Context, op string, status models.AppointmentStatus) ([]*models.Appointment, error) {
	list, err := s.repo.ListAppointments(ctx, models.AppointmentFilter{Status: status})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

func (s *Service) listFor(ctx context.Context, op, userUID string, role models.Role, status models.AppointmentStatus) ([]*models.Appointment, error) {
	user, err := s.repo.FindUser(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if user.Role != role {
		return nil, fmt.Errorf("%s: %w", op, models.Detail(models.ErrRoleMismatch,
			fmt.Sprintf("The user does not have the %s role", role)))
	}

	filter := models.AppointmentFilter{Status: status}
	if role == models.RolePatient {
		filter.PatientUID = userUID
	} else {
		filter.PsychologistUID = userUID
	}
	list, err := s.repo.ListAppointments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

func (s *Service) parseDate(value string) (time.Time, error) {
	date, err := s.clock.Parse(value)
	if err != nil {
		return time.Time{}, models.Detail(models.ErrInvalidDate, fmt.Sprintf("Invalid date %q", value))
	}
	return date, nil
}

// parties загружает пациента и психолога в этом порядке.
func (s *Service) parties(ctx context.Context, patientUID, psychologistUID string) (*models.User, *models.User, error) {
	patient, err := s.repo.FindUser(ctx, patientUID)
	if err != nil {
		return nil, nil, notFound(err, "Patient not found")
	}
	psychologist, err := s.repo.FindUser(ctx, psychologistUID)
	if err != nil {
		return nil, nil, notFound(err, "Psychologist not found")
	}
	return patient, psychologist, nil
}

func (s *Service) checkPatientDay(ctx context.Context, patientUID string, date time.Time, excludeID int64) error {
	from, to := s.clock.DayBounds(date)
	n, err := s.repo.CountPatientAppointmentsBetween(ctx, patientUID, from, to, excludeID)
	if err != nil {
		return err
	}
	if n > 0 {
		return models.Detail(models.ErrConflict, "The patient already has an appointment on this day")
	}
	return nil
}

func (s *Service) checkPsychologistWindow(ctx context.Context, psychologistUID string, from, to time.Time, excludeID int64) error {
	n, err := s.repo.CountPsychologistAppointmentsBetween(ctx, psychologistUID, from, to, excludeID)
	if err != nil {
		return err
	}
	if n > 0 {
		return models.Detail(models.ErrConflict, "The psychologist already has an appointment at this time")
	}
	return nil
}

func notFound(err error, message string) error {
	if errors.Is(err, models.ErrNotFound) {
		return models.Detail(models.ErrUserNotFound, message)
	}
	return err
}

// dayConflict дает понятное сообщение нарушению уникального индекса по дню пациента.
func dayConflict(err error) error {
	if errors.Is(err, models.ErrConflict) {
		return models.Detail(models.ErrConflict, "The patient already has an appointment on this day")
	}
	return err
}
