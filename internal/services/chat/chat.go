// Package chat реализует запрос экстренного чата к доступным психологам
// и справочник контактов экстренной помощи.
package chat

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"log/slog"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/magabrotheeeer/mindup/internal/lib/sl"
	"github.com/magabrotheeeer/mindup/internal/models"
)

//go:embed resources.yaml
var defaultResources []byte

// Repository определяет методы хранилища пользователей, нужные чату.
type Repository interface {
	GetUser(ctx context.Context, userUID string) (*models.User, error)
	ListAvailablePsychologists(ctx context.Context) ([]*models.User, error)
}

// Publisher публикует уведомления в брокер.
type Publisher interface {
	Publish(routingKey string, message any) error
}

// Service обслуживает модуль сообщений.
type Service struct {
	repo      Repository
	publisher Publisher
	resources models.Resources
	log       *slog.Logger
}

// LoadResources читает справочник из YAML-файла. Пустой путь означает
// встроенный справочник.
func LoadResources(path string) (models.Resources, error) {
	const op = "chat.LoadResources"
	var res models.Resources
	if path == "" {
		if err := cleanenv.ParseYAML(bytes.NewReader(defaultResources), &res); err != nil {
			return models.Resources{}, fmt.Errorf("%s: %w", op, err)
		}
		return res, nil
	}
	if err := cleanenv.ReadConfig(path, &res); err != nil {
		return models.Resources{}, fmt.Errorf("%s: %w", op, err)
	}
	return res, nil
}

// New создает новый экземпляр Service.
func New(repo Repository, publisher Publisher, resources models.Resources, log *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		resources: resources,
		log:       log,
	}
}

// RequestChat уведомляет всех доступных психологов о запросе пациента.
// Возвращает true, если удалось уведомить хотя бы одного.
func (s *Service) RequestChat(ctx context.Context, patientUID string) (bool, error) {
	const op = "chat.RequestChat"

	patient, err := s.repo.GetUser(ctx, patientUID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if patient.Role != models.RolePatient {
		return false, fmt.Errorf("%s: %w", op, models.Detail(models.ErrRoleMismatch, "Only patients can request a chat"))
	}

	psychologists, err := s.repo.ListAvailablePsychologists(ctx)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	notified := 0
	for _, p := range psychologists {
		msg := models.Notification{
			Kind:        models.NotificationChatRequest,
			Email:       p.Email,
			Name:        p.Name,
			PatientName: patient.Name,
		}
		if err := s.publisher.Publish(string(msg.Kind), msg); err != nil {
			s.log.Error("failed to publish chat request",
				slog.String("psychologist", p.UUID), sl.Err(err))
			continue
		}
		notified++
	}

	s.log.Info("chat requested",
		slog.String("patient", patientUID),
		slog.Int("available", len(psychologists)),
		slog.Int("notified", notified))
	return notified > 0, nil
}

// EmergencyContacts контакты экстренной помощи.
func (s *Service) EmergencyContacts() []models.EmergencyContact {
	return s.resources.EmergencyContacts
}

// OtherResources дополнительные ресурсы поддержки.
func (s *Service) OtherResources() []models.OtherResource {
	return s.resources.OtherResources
}
