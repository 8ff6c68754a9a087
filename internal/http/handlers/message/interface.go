package message

import (
	"context"

	"github.com/magabrotheeeer/mindup/internal/models"
)

// Service описывает чат-запросы и справочник ресурсов.
type Service interface {
	RequestChat(ctx context.Context, patientUID string) (bool, error)
	EmergencyContacts() []models.EmergencyContact
	OtherResources() []models.OtherResource
}
