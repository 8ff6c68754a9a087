// Package user содержит бизнес-логику пользователей: регистрацию,
// подтверждение почты, вход, профиль, пароль и изображение профиля.
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/mindup/internal/cache"
	"github.com/magabrotheeeer/mindup/internal/lib/jwt"
	"github.com/magabrotheeeer/mindup/internal/lib/password"
	"github.com/magabrotheeeer/mindup/internal/lib/sl"
	"github.com/magabrotheeeer/mindup/internal/models"
	"github.com/magabrotheeeer/mindup/internal/objectstore"
)

// Repository описывает контракт хранилища пользователей.
type Repository interface {
	CreateUser(ctx context.Context, user models.User) (string, error)
	GetUser(ctx context.Context, userUID string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateProfile(ctx context.Context, userUID string, profile models.UserProfile) error
	UpdatePassword(ctx context.Context, userUID, passwordHash string) error
	UpdatePreferences(ctx context.Context, userUID, preferences string) error
	SetVerified(ctx context.Context, userUID string) error
	SetProfileImageKey(ctx context.Context, userUID string, key *string) error
	ToggleAvailability(ctx context.Context, userUID string) (bool, error)
	DeleteUser(ctx context.Context, userUID string) error
}

// TokenStore хранит одноразовые токены и отозванные JWT.
type TokenStore interface {
	SetToken(ctx context.Context, kind cache.TokenKind, token, userUID string, ttl time.Duration) error
	PopToken(ctx context.Context, kind cache.TokenKind, token string) (string, error)
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
}

// Publisher публикует уведомления в брокер.
type Publisher interface {
	Publish(routingKey string, message any) error
}

// ImageStore хранилище изображений профиля.
type ImageStore interface {
	PresignUpload(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

// Options параметры сервиса.
type Options struct {
	FrontendURL      string
	VerificationTTL  time.Duration
	PasswordResetTTL time.Duration
}

// Service реализует операции над пользователями.
type Service struct {
	users     Repository
	tokens    TokenStore
	publisher Publisher
	images    ImageStore
	jwtMaker  jwt.Maker
	opts      Options
	log       *slog.Logger
}

// New создает новый экземпляр Service.
func New(users Repository, tokens TokenStore, publisher Publisher, images ImageStore,
	jwtMaker jwt.Maker, opts Options, log *slog.Logger) *Service {
	return &Service{
		users:     users,
		tokens:    tokens,
		publisher: publisher,
		images:    images,
		jwtMaker:  jwtMaker,
		opts:      opts,
		log:       log,
	}
}

// Register создает пользователя с ролью PATIENT или PSYCHOLOGIST и отправляет
// письмо для подтверждения почты. Повторный email дает models.ErrConflict.
func (s *Service) Register(ctx context.Context, email, name, rawPassword string, role models.Role) (*models.User, error) {
	const op = "user.Register"

	if role != models.RolePatient && role != models.RolePsychologist {
		return nil, fmt.Errorf("%s: %w", op, models.Detail(models.ErrRoleMismatch, "Role must be PATIENT or PSYCHOLOGIST"))
	}
	hashed, err := password.GetHash(rawPassword)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	user := models.User{
		Email:        strings.ToLower(strings.TrimSpace(email)),
		Name:         name,
		PasswordHash: hashed,
		Role:         role,
		Available:    true,
	}
	uid, err := s.users.CreateUser(ctx, user)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, fmt.Errorf("%s: %w", op, models.Detail(models.ErrConflict, "Email is already registered"))
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	user.UUID = uid

	token := uuid.NewString()
	if err := s.tokens.SetToken(ctx, cache.TokenVerification, token, uid, s.opts.VerificationTTL); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	msg := models.Notification{
		Kind:  models.NotificationVerification,
		Email: user.Email,
		Name:  user.Name,
		Token: token,
		Link:  s.link("/verify", token),
	}
	// ошибка публикации не отменяет регистрацию
	if err := s.publisher.Publish(string(msg.Kind), msg); err != nil {
		s.log.Error("failed to publish verification email", slog.String("user", uid), sl.Err(err))
	}

	s.log.Info("user registered", slog.String("user", uid), slog.String("role", string(role)))
	return &user, nil
}

// VerifyEmail подтверждает почту по одноразовому токену.
func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	const op = "user.VerifyEmail"

	uid, err := s.tokens.PopToken(ctx, cache.TokenVerification, token)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.users.SetVerified(ctx, uid); err != nil {
		return fmt.Errorf("%s: %w", op, userNotFound(err))
	}
	return nil
}

// Authenticate проверяет email и пароль и выпускает JWT.
// Неизвестный email и неверный пароль одинаково дают models.ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, email, rawPassword string) (string, error) {
	const op = "user.Authenticate"

	user, err := s.users.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return "", fmt.Errorf("%s: %w", op, models.ErrInvalidCredentials)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if err := password.CompareHash(user.PasswordHash, rawPassword); err != nil {
		return "", fmt.Errorf("%s: %w", op, models.ErrInvalidCredentials)
	}
	token, err := s.jwtMaker.GenerateToken(user.UUID, user.Email, string(user.Role))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return token, nil
}

// FindByEmail возвращает пользователя по email.
func (s *Service) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "user.FindByEmail"
	user, err := s.users.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, userNotFound(err))
	}
	return user, nil
}

// GetProfile возвращает пользователя по UID.
func (s *Service) GetProfile(ctx context.Context, userUID string) (*models.User, error) {
	const op = "user.GetProfile"
	user, err := s.users.GetUser(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, userNotFound(err))
	}
	return user, nil
}

// UpdateProfile обновляет имя, телефон и описание.
func (s *Service) UpdateProfile(ctx context.Context, userUID string, profile models.UserProfile) (*models.User, error) {
	const op = "user.UpdateProfile"
	if err := s.users.UpdateProfile(ctx, userUID, profile); err != nil {
		return nil, fmt.Errorf("%s: %w", op, userNotFound(err))
	}
	user, err := s.users.GetUser(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, userNotFound(err))
	}
	return user, nil
}

// ChangePassword меняет пароль после проверки текущего.
func (s *Service) ChangePassword(ctx context.Context, userUID, current, newPassword string) error {
	const op = "user.ChangePassword"

	user, err := s.users.GetUser(ctx, userUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, userNotFound(err))
	}
	if err := password.CompareHash(user.PasswordHash, current); err != nil {
		return fmt.Errorf("%s: %w", op, models.Detail(models.ErrInvalidCredentials, "Current password is incorrect"))
	}
	if err := s.setPassword(ctx, userUID, newPassword); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("password changed", slog.String("user", userUID))
	return nil
}

// UpdatePreferences сохраняет предпочтения пользователя как есть.
func (s *Service) UpdatePreferences(ctx context.Context, email, preferences string) (*models.User, error) {
	const op = "user.UpdatePreferences"

	user, err := s.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.users.UpdatePreferences(ctx, user.UUID, preferences); err != nil {
		return nil, fmt.Errorf("%s: %w", op, userNotFound(err))
	}
	user.Preferences = preferences
	return user, nil
}

// ToggleAvailability переключает доступность психолога и возвращает новое значение.
func (s *Service) ToggleAvailability(ctx context.Context, userUID string) (bool, error) {
	const op = "user.ToggleAvailability"

	if _, err := s.IsPsychologist(ctx, userUID); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	available, err := s.users.ToggleAvailability(ctx, userUID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, userNotFound(err))
	}
	s.log.Info("availability toggled", slog.String("user", userUID), slog.Bool("available", available))
	return available, nil
}

// RequestPasswordReset создает токен сброса пароля и отправляет письмо.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	const op = "user.RequestPasswordReset"

	user, err := s.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	token := uuid.NewString()
	if err := s.tokens.SetToken(ctx, cache.TokenPasswordReset, token, user.UUID, s.opts.PasswordResetTTL); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	msg := models.Notification{
		Kind:  models.NotificationPasswordReset,
		Email: user.Email,
		Name:  user.Name,
		Token: token,
		Link:  s.link("/reset-password", token),
	}
	if err := s.publisher.Publish(string(msg.Kind), msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ResetPassword устанавливает новый пароль по одноразовому токену.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	const op = "user.ResetPassword"

	uid, err := s.tokens.PopToken(ctx, cache.TokenPasswordReset, token)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.setPassword(ctx, uid, newPassword); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("password reset", slog.String("user", uid))
	return nil
}

// Logout отзывает токен до истечения его срока действия.
func (s *Service) Logout(ctx context.Context, claims *jwt.CustomClaims) error {
	const op = "user.Logout"
	if err := s.tokens.RevokeToken(ctx, claims.ID, claims.TTL()); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// DeleteAccount удаляет пользователя, его записи на прием и изображение профиля.
func (s *Service) DeleteAccount(ctx context.Context, email string) error {
	const op = "user.DeleteAccount"

	user, err := s.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if user.ProfileImageKey != nil {
		if err := s.images.Delete(ctx, *user.ProfileImageKey); err != nil {
			s.log.Warn("failed to delete profile image", slog.String("user", user.UUID), sl.Err(err))
		}
	}
	if err := s.users.DeleteUser(ctx, user.UUID); err != nil {
		return fmt.Errorf("%s: %w", op, userNotFound(err))
	}
	s.log.Info("account deleted", slog.String("user", user.UUID))
	return nil
}

// UpdateProfileImage выдает ссылку для загрузки нового изображения и
// сохраняет его ключ. Предыдущее изображение удаляется.
func (s *Service) UpdateProfileImage(ctx context.Context, userUID string) (*models.ProfileImageUpload, error) {
	const op = "user.UpdateProfileImage"

	user, err := s.GetProfile(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	key := objectstore.NewProfileImageKey(userUID)
	uploadURL, err := s.images.PresignUpload(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.users.SetProfileImageKey(ctx, userUID, &key); err != nil {
		return nil, fmt.Errorf("%s: %w", op, userNotFound(err))
	}
	if user.ProfileImageKey != nil {
		if err := s.images.Delete(ctx, *user.ProfileImageKey); err != nil {
			s.log.Warn("failed to delete previous profile image", slog.String("user", userUID), sl.Err(err))
		}
	}
	return &models.ProfileImageUpload{Key: key, UploadURL: uploadURL}, nil
}

// DeleteProfileImage удаляет изображение профиля. Без изображения ничего не делает.
func (s *Service) DeleteProfileImage(ctx context.Context, userUID string) error {
	const op = "user.DeleteProfileImage"

	user, err := s.GetProfile(ctx, userUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if user.ProfileImageKey == nil {
		return nil
	}
	if err := s.images.Delete(ctx, *user.ProfileImageKey); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.users.SetProfileImageKey(ctx, userUID, nil); err != nil {
		return fmt.Errorf("%s: %w", op, userNotFound(err))
	}
	return nil
}

// IsPsychologist возвращает пользователя, если у него роль PSYCHOLOGIST.
func (s *Service) IsPsychologist(ctx context.Context, userUID string) (*models.User, error) {
	return s.hasRole(ctx, "user.IsPsychologist", userUID, models.RolePsychologist)
}

// IsPatient возвращает пользователя, если у него роль PATIENT.
func (s *Service) IsPatient(ctx context.Context, userUID string) (*models.User, error) {
	return s.hasRole(ctx, "user.IsPatient", userUID, models.RolePatient)
}

func (s *Service) hasRole(ctx context.Context, op, userUID string, role models.Role) (*models.User, error) {
	user, err := s.GetProfile(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if user.Role != role {
		return nil, fmt.Errorf("%s: %w", op, models.Detail(models.ErrRoleMismatch,
			fmt.Sprintf("The user does not have the %s role", role)))
	}
	return user, nil
}

func (s *Service) setPassword(ctx context.Context, userUID, rawPassword string) error {
	hashed, err := password.GetHash(rawPassword)
	if err != nil {
		return err
	}
	return userNotFound(s.users.UpdatePassword(ctx, userUID, hashed))
}

func (s *Service) link(path, token string) string {
	return strings.TrimRight(s.opts.FrontendURL, "/") + path + "?token=" + url.QueryEscape(token)
}

func userNotFound(err error) error {
	if err != nil && errors.Is(err, models.ErrNotFound) {
		return models.Detail(models.ErrUserNotFound, "User not found.")
	}
	return err
}
