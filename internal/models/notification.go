package models

// NotificationKind определяет тип уведомления и routing key в RabbitMQ.
type NotificationKind string

const (
	NotificationVerification        NotificationKind = "email.verification"
	NotificationPasswordReset       NotificationKind = "password.reset"
	NotificationChatRequest         NotificationKind = "chat.request"
	NotificationAppointmentReminder NotificationKind = "appointment.reminder"
)

// Notification сообщение, которое публикуется в очередь и отправляется
// воркером по электронной почте.
type Notification struct {
	Kind        NotificationKind `json:"kind"`
	Email       string           `json:"email"`
	Name        string           `json:"name"`
	Token       string           `json:"token,omitempty"`
	Link        string           `json:"link,omitempty"`
	PatientName string           `json:"patient_name,omitempty"`
	// PsychologistName заполняется для напоминаний о приеме.
	PsychologistName string `json:"psychologist_name,omitempty"`
	Date             string `json:"date,omitempty"`
}
