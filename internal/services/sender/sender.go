// Package sender отправляет по SMTP письма для уведомлений из очередей.
package sender

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/mindup/internal/lib/sl"
	"github.com/magabrotheeeer/mindup/internal/lib/smtp"
	"github.com/magabrotheeeer/mindup/internal/models"
)

// Mailer открывает SMTP сессии от имени отправителя From.
type Mailer interface {
	Dial() (smtp.Session, error)
	From() string
}

// Service формирует и отправляет письма.
type Service struct {
	transport Mailer
	log       *slog.Logger
}

// New создает новый экземпляр Service.
func New(transport Mailer, log *slog.Logger) *Service {
	return &Service{
		transport: transport,
		log:       log,
	}
}

// Handle разбирает уведомление и отправляет письмо. Нераспознанные сообщения
// логируются и отбрасываются, ошибка возвращается только при сбое отправки.
func (s *Service) Handle(body []byte) error {
	var message models.Notification
	if err := json.Unmarshal(body, &message); err != nil {
		s.log.Error("dropping malformed notification", sl.Err(err))
		return nil
	}
	if message.Email == "" {
		s.log.Error("dropping notification without recipient", slog.String("kind", string(message.Kind)))
		return nil
	}

	subject, text, ok := render(message)
	if !ok {
		s.log.Error("dropping notification of unknown kind", slog.String("kind", string(message.Kind)))
		return nil
	}
	return s.sendEmail([]string{message.Email}, subject, text)
}

func render(m models.Notification) (subject, body string, ok bool) {
	switch m.Kind {
	case models.NotificationVerification:
		return "Confirmá tu correo en MindUp",
			fmt.Sprintf("Hola, %s!\n\nPara activar tu cuenta abrí el siguiente enlace:\n%s\n\nSi no te registraste en MindUp, ignorá este mensaje.",
				m.Name, m.Link), true
	case models.NotificationPasswordReset:
		return "Restablecer contraseña de MindUp",
			fmt.Sprintf("Hola, %s!\n\nRecibimos un pedido para restablecer tu contraseña. Usá este enlace:\n%s\n\nSi no fuiste vos, ignorá este mensaje.",
				m.Name, m.Link), true
	case models.NotificationChatRequest:
		return "Un paciente solicita un chat",
			fmt.Sprintf("Hola, %s!\n\n%s solicitó un chat de contención. Ingresá a MindUp para responder.",
				m.Name, m.PatientName), true
	case models.NotificationAppointmentReminder:
		return "Recordatorio de turno",
			fmt.Sprintf("Hola, %s!\n\nTe recordamos tu turno con %s el %s.",
				m.Name, m.PsychologistName, m.Date), true
	default:
		return "", "", false
	}
}

func (s *Service) sendEmail(to []string, subject, bodyText string) error {
	const op = "sender.sendEmail"
	msg := strings.Join([]string{
		"From: " + s.transport.From(),
		"To: " + strings.Join(to, ";"),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		bodyText,
	}, "\r\n")

	client, err := s.transport.Dial()
	if err != nil {
		s.log.Error("failed to connect to SMTP server", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	defer client.Close()

	if err := client.Mail(s.transport.From()); err != nil {
		s.log.Error("failed to set MAIL FROM", slog.String("from", s.transport.From()), sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			s.log.Error("failed to set RCPT TO", slog.String("recipient", addr), sl.Err(err))
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	wc, err := client.Data()
	if err != nil {
		s.log.Error("failed to get Data writer", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, err = wc.Write([]byte(msg)); err != nil {
		s.log.Error("failed to write email body", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = wc.Close(); err != nil {
		s.log.Error("failed to close Data writer", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = client.Quit(); err != nil {
		s.log.Error("failed to quit SMTP client", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("email sent successfully", slog.Any("to", to), slog.String("subject", subject))
	return nil
}
