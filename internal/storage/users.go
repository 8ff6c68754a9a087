package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/magabrotheeeer/mindup/internal/models"
)

const userColumns = `uid, email, password_hash, name, role, available, preferences,
	phone, bio, profile_image_key, verified, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	var imageKey sql.NullString
	if err := row.Scan(&u.UUID, &u.Email, &u.PasswordHash, &u.Name, &u.Role, &u.Available,
		&u.Preferences, &u.Phone, &u.Bio, &imageKey, &u.Verified, &u.CreatedAt); err != nil {
		return nil, err
	}
	if imageKey.Valid {
		u.ProfileImageKey = &imageKey.String
	}
	return &u, nil
}

// CreateUser сохраняет нового пользователя и возвращает его UID.
// Занятый email возвращается как models.ErrConflict.
func (s *Storage) CreateUser(ctx context.Context, user models.User) (string, error) {
	const op = "storage.CreateUser"
	if err := checkCtx(ctx, op); err != nil {
		return "", err
	}

	query := `INSERT INTO users (email, password_hash, name, role, available, preferences, phone, bio)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			  RETURNING uid`
	var uid string
	if err := s.DB.QueryRowContext(ctx, query,
		user.Email, user.PasswordHash, user.Name, user.Role, user.Available,
		user.Preferences, user.Phone, user.Bio).Scan(&uid); err != nil {
		return "", fmt.Errorf("%s: %w", op, mapError(err, models.ErrUserNotFound))
	}
	return uid, nil
}

// GetUser возвращает пользователя по UID.
func (s *Storage) GetUser(ctx context.Context, userUID string) (*models.User, error) {
	const op = "storage.GetUser"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	row := s.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE uid = $1`, userUID)
	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err, models.ErrUserNotFound))
	}
	return u, nil
}

// GetUserByEmail возвращает пользователя по email.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.GetUserByEmail"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	row := s.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err, models.ErrUserNotFound))
	}
	return u, nil
}

// UpdateProfile обновляет редактируемые поля профиля.
func (s *Storage) UpdateProfile(ctx context.Context, userUID string, profile models.UserProfile) error {
	const op = "storage.UpdateProfile"
	return s.execOne(ctx, op,
		`UPDATE users SET name = $1, phone = $2, bio = $3 WHERE uid = $4`,
		profile.Name, profile.Phone, profile.Bio, userUID)
}

// UpdatePassword сохраняет новый хеш пароля.
func (s *Storage) UpdatePassword(ctx context.Context, userUID, passwordHash string) error {
	const op = "storage.UpdatePassword"
	return s.execOne(ctx, op, `UPDATE users SET password_hash = $1 WHERE uid = $2`, passwordHash, userUID)
}

// UpdatePreferences сохраняет предпочтения пользователя.
func (s *Storage) UpdatePreferences(ctx context.Context, userUID, preferences string) error {
	const op = "storage.UpdatePreferences"
	return s.execOne(ctx, op, `UPDATE users SET preferences = $1 WHERE uid = $2`, preferences, userUID)
}

// SetVerified отмечает email пользователя подтвержденным.
func (s *Storage) SetVerified(ctx context.Context, userUID string) error {
	const op = "storage.SetVerified"
	return s.execOne(ctx, op, `UPDATE users SET verified = TRUE WHERE uid = $1`, userUID)
}

// SetProfileImageKey сохраняет ключ изображения профиля, nil очищает его.
func (s *Storage) SetProfileImageKey(ctx context.Context, userUID string, key *string) error {
	const op = "storage.SetProfileImageKey"
	return s.execOne(ctx, op, `UPDATE users SET profile_image_key = $1 WHERE uid = $2`, key, userUID)
}

// ToggleAvailability инвертирует флаг доступности и возвращает новое значение.
func (s *Storage) ToggleAvailability(ctx context.Context, userUID string) (bool, error) {
	const op = "storage.ToggleAvailability"
	if err := checkCtx(ctx, op); err != nil {
		return false, err
	}

	var available bool
	err := s.DB.QueryRowContext(ctx,
		`UPDATE users SET available = NOT available WHERE uid = $1 RETURNING available`,
		userUID).Scan(&available)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, mapError(err, models.ErrUserNotFound))
	}
	return available, nil
}

// DeleteUser удаляет пользователя, записи на прием удаляются каскадно.
func (s *Storage) DeleteUser(ctx context.Context, userUID string) error {
	const op = "storage.DeleteUser"
	return s.execOne(ctx, op, `DELETE FROM users WHERE uid = $1`, userUID)
}

// ListAvailablePsychologists возвращает психологов, доступных для чата.
func (s *Storage) ListAvailablePsychologists(ctx context.Context) ([]*models.User, error) {
	const op = "storage.ListAvailablePsychologists"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE role = $1 AND available ORDER BY created_at`,
		models.RolePsychologist)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// execOne выполняет UPDATE/DELETE по пользователю и возвращает
// models.ErrUserNotFound, если строка не найдена.
func (s *Storage) execOne(ctx context.Context, op, query string, args ...any) error {
	if err := checkCtx(ctx, op); err != nil {
		return err
	}
	res, err := s.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err, models.ErrUserNotFound))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrUserNotFound)
	}
	return nil
}
