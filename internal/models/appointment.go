package models

import "time"

// AppointmentStatus представляет статус записи на приём.
type AppointmentStatus string

const (
	// StatusPending запись создана и ожидает подтверждения.
	StatusPending AppointmentStatus = "PENDING"
	// StatusAccepted запись подтверждена.
	StatusAccepted AppointmentStatus = "ACCEPTED"
	// StatusCanceled запись отменена.
	StatusCanceled AppointmentStatus = "CANCELED"
)

// Appointment представляет запись пациента на приём к психологу.
// SoftDeletedAt == nil означает, что запись активна.
type Appointment struct {
	ID              int64             `json:"appointment_id"`
	PatientUID      string            `json:"patient_id"`
	PsychologistUID string            `json:"psychologist_id"`
	Date            time.Time         `json:"date"`
	Status          AppointmentStatus `json:"status"`
	SoftDeletedAt   *time.Time        `json:"soft_deleted_at,omitempty"`
}

// Active сообщает, что запись не удалена мягким удалением.
func (a *Appointment) Active() bool {
	return a.SoftDeletedAt == nil
}

// DeletedAppointment представление записи после мягкого удаления.
type DeletedAppointment struct {
	ID            int64             `json:"appointment_id"`
	SoftDeletedAt time.Time         `json:"date_soft_delete"`
	Status        AppointmentStatus `json:"status"`
}

// AppointmentFilter задаёт параметры выборки записей.
// Пустые поля не участвуют в фильтрации. Мягко удалённые записи
// в выборку не попадают.
type AppointmentFilter struct {
	PatientUID      string
	PsychologistUID string
	Status          AppointmentStatus
	From            *time.Time
	To              *time.Time
}

// DummyAppointment используется для приёма данных из JSON-запроса,
// дата приходит строкой и разбирается в сервисном слое.
type DummyAppointment struct {
	PatientID      string `json:"patient_id" validate:"required,uuid"`
	PsychologistID string `json:"psychologist_id" validate:"required,uuid"`
	Date           string `json:"date" validate:"required"`
}

// AppointmentInfo содержит данные для напоминания о приёме.
type AppointmentInfo struct {
	AppointmentID    int64
	PatientEmail     string
	PatientName      string
	PsychologistName string
	Date             time.Time
}
