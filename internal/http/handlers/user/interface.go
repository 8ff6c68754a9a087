package user

import (
	"context"

	"github.com/magabrotheeeer/mindup/internal/lib/jwt"
	"github.com/magabrotheeeer/mindup/internal/models"
)

// Service описывает бизнес-логику операций с профилем.
type Service interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	GetProfile(ctx context.Context, userUID string) (*models.User, error)
	UpdateProfile(ctx context.Context, userUID string, profile models.UserProfile) (*models.User, error)
	ChangePassword(ctx context.Context, userUID, current, newPassword string) error
	UpdatePreferences(ctx context.Context, email, preferences string) (*models.User, error)
	ToggleAvailability(ctx context.Context, userUID string) (bool, error)
	Logout(ctx context.Context, claims *jwt.CustomClaims) error
	DeleteAccount(ctx context.Context, email string) error
	UpdateProfileImage(ctx context.Context, userUID string) (*models.ProfileImageUpload, error)
	DeleteProfileImage(ctx context.Context, userUID string) error
	IsPsychologist(ctx context.Context, userUID string) (*models.User, error)
	IsPatient(ctx context.Context, userUID string) (*models.User, error)
}
