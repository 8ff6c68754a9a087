package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/magabrotheeeer/mindup/internal/models"
)

const appointmentColumns = `id, patient_uid, psychologist_uid, date, status, soft_deleted_at`

func scanAppointment(row rowScanner) (*models.Appointment, error) {
	var a models.Appointment
	var deletedAt sql.NullTime
	if err := row.Scan(&a.ID, &a.PatientUID, &a.PsychologistUID, &a.Date, &a.Status, &deletedAt); err != nil {
		return nil, err
	}
	if deletedAt.Valid {
		a.SoftDeletedAt = &deletedAt.Time
	}
	return &a, nil
}

// FindUser возвращает пользователя по UID.
func (s *Storage) FindUser(ctx context.Context, userUID string) (*models.User, error) {
	return s.GetUser(ctx, userUID)
}

// CreateAppointment вставляет запись на прием и возвращает её ID.
// Второй активный прием пациента в тот же день отклоняется уникальным индексом
// и возвращается как models.ErrConflict.
func (s *Storage) CreateAppointment(ctx context.Context, a models.Appointment) (int64, error) {
	const op = "storage.CreateAppointment"
	if err := checkCtx(ctx, op); err != nil {
		return 0, err
	}

	query := `INSERT INTO appointments (patient_uid, psychologist_uid, date, status, soft_deleted_at)
			  VALUES ($1, $2, $3, $4, $5)
			  RETURNING id`
	var id int64
	if err := s.DB.QueryRowContext(ctx, query,
		a.PatientUID, a.PsychologistUID, a.Date, a.Status, a.SoftDeletedAt).Scan(&id); err != nil {
		return 0, fmt.Errorf("%s: %w", op, mapError(err, models.ErrAppointmentNotFound))
	}
	return id, nil
}

// GetAppointment возвращает запись по ID, включая мягко удаленные.
func (s *Storage) GetAppointment(ctx context.Context, id int64) (*models.Appointment, error) {
	const op = "storage.GetAppointment"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	row := s.DB.QueryRowContext(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id)
	a, err := scanAppointment(row)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err, models.ErrAppointmentNotFound))
	}
	return a, nil
}

// SaveAppointment перезаписывает все изменяемые поля записи.
// При переносе даты отметка об отправленном напоминании сбрасывается.
func (s *Storage) SaveAppointment(ctx context.Context, a models.Appointment) error {
	const op = "storage.SaveAppointment"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	query := `UPDATE appointments
			  SET patient_uid = $1, psychologist_uid = $2, date = $3, status = $4, soft_deleted_at = $5,
			      reminded_at = CASE WHEN date = $3 THEN reminded_at END
			  WHERE id = $6`
	res, err := s.DB.ExecContext(ctx, query,
		a.PatientUID, a.PsychologistUID, a.Date, a.Status, a.SoftDeletedAt, a.ID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err, models.ErrAppointmentNotFound))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrAppointmentNotFound)
	}
	return nil
}

// CountPatientAppointmentsBetween считает активные записи пациента
// с датой в полуинтервале [from, to), кроме excludeID.
func (s *Storage) CountPatientAppointmentsBetween(ctx context.Context, patientUID string, from, to time.Time, excludeID int64) (int, error) {
	const op = "storage.CountPatientAppointmentsBetween"
	if err := checkCtx(ctx, op); err != nil {
		return 0, err
	}

	query := `SELECT COUNT(*) FROM appointments
			  WHERE patient_uid = $1 AND date >= $2 AND date < $3
			    AND soft_deleted_at IS NULL AND id <> $4`
	var count int
	if err := s.DB.QueryRowContext(ctx, query, patientUID, from, to, excludeID).Scan(&count); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

// CountPsychologistAppointmentsBetween считает активные записи психолога
// с датой в отрезке [from, to], кроме excludeID.
func (s *Storage) CountPsychologistAppointmentsBetween(ctx context.Context, psychologistUID string, from, to time.Time, excludeID int64) (int, error) {
	const op = "storage.CountPsychologistAppointmentsBetween"
	if err := checkCtx(ctx, op); err != nil {
		return 0, err
	}

	query := `SELECT COUNT(*) FROM appointments
			  WHERE psychologist_uid = $1 AND date >= $2 AND date <= $3
			    AND soft_deleted_at IS NULL AND id <> $4`
	var count int
	if err := s.DB.QueryRowContext(ctx, query, psychologistUID, from, to, excludeID).Scan(&count); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

// ListAppointments возвращает активные записи по фильтру, отсортированные по дате.
func (s *Storage) ListAppointments(ctx context.Context, filter models.AppointmentFilter) ([]*models.Appointment, error) {
	const op = "storage.ListAppointments"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	conds := []string{"soft_deleted_at IS NULL"}
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.PatientUID != "" {
		add("patient_uid = $%d", filter.PatientUID)
	}
	if filter.PsychologistUID != "" {
		add("psychologist_uid = $%d", filter.PsychologistUID)
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if filter.From != nil {
		add("date >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("date < $%d", *filter.To)
	}

	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE ` +
		strings.Join(conds, " AND ") + ` ORDER BY date, id`
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]*models.Appointment, 0)
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, a)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// FindAcceptedAppointmentsBetween возвращает подтвержденные активные записи
// в полуинтервале [from, to), по которым напоминание еще не отправлялось,
// с данными пациента и психолога.
func (s *Storage) FindAcceptedAppointmentsBetween(ctx context.Context, from, to time.Time) ([]*models.AppointmentInfo, error) {
	const op = "storage.FindAcceptedAppointmentsBetween"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT a.id, p.email, p.name, d.name, a.date
			  FROM appointments a
			  JOIN users p ON p.uid = a.patient_uid
			  JOIN users d ON d.uid = a.psychologist_uid
			  WHERE a.status = $1 AND a.soft_deleted_at IS NULL
			    AND a.date >= $2 AND a.date < $3
			    AND a.reminded_at IS NULL
			  ORDER BY a.date`
	rows, err := s.DB.QueryContext(ctx, query, models.StatusAccepted, from, to)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.AppointmentInfo
	for rows.Next() {
		var info models.AppointmentInfo
		if err = rows.Scan(&info.AppointmentID, &info.PatientEmail, &info.PatientName,
			&info.PsychologistName, &info.Date); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &info)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// MarkReminded отмечает, что напоминание о записи id отправлено в момент at.
func (s *Storage) MarkReminded(ctx context.Context, id int64, at time.Time) error {
	const op = "storage.MarkReminded"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}
	res, err := s.DB.ExecContext(ctx, `UPDATE appointments SET reminded_at = $1 WHERE id = $2`, at, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrAppointmentNotFound)
	}
	return nil
}
