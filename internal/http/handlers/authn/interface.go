package authn

import (
	"context"

	"github.com/magabrotheeeer/mindup/internal/models"
)

// Service описывает бизнес-логику открытых операций учетной записи.
type Service interface {
	Register(ctx context.Context, email, name, password string, role models.Role) (*models.User, error)
	Authenticate(ctx context.Context, email, password string) (string, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	VerifyEmail(ctx context.Context, token string) error
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}
