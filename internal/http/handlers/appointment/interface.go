package appointment

import (
	"context"

	"github.com/magabrotheeeer/mindup/internal/models"
)

// Service описывает бизнес-логику записей на прием.
type Service interface {
	Create(ctx context.Context, req models.DummyAppointment) (*models.Appointment, error)
	Get(ctx context.Context, id int64) (*models.Appointment, error)
	Update(ctx context.Context, callerRole models.Role, id int64, req models.DummyAppointment) (*models.Appointment, error)
	Accept(ctx context.Context, id int64) (*models.Appointment, error)
	Cancel(ctx context.Context, id int64) (*models.Appointment, error)
	SoftDelete(ctx context.Context, id int64) (*models.DeletedAppointment, error)
	Reactivate(ctx context.Context, id int64) (*models.Appointment, error)
	Pending(ctx context.Context) ([]*models.Appointment, error)
	Accepted(ctx context.Context) ([]*models.Appointment, error)
	Canceled(ctx context.Context) ([]*models.Appointment, error)
	AllByPatient(ctx context.Context, patientUID string) ([]*models.Appointment, error)
	ReservedByPatient(ctx context.Context, patientUID string) ([]*models.Appointment, error)
	AllByPsychologist(ctx context.Context, psychologistUID string) ([]*models.Appointment, error)
	ReservedByPsychologist(ctx context.Context, psychologistUID string) ([]*models.Appointment, error)
}
