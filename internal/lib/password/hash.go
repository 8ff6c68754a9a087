// Package password хранит пароли пользователей MindUp в виде bcrypt-хешей.
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Cost стоимость bcrypt для новых хешей.
const Cost = bcrypt.DefaultCost

var (
	// ErrMismatch пароль не соответствует хешу.
	ErrMismatch = errors.New("password mismatch")
	// ErrTooLong bcrypt учитывает не больше 72 байт пароля.
	ErrTooLong = errors.New("password is longer than 72 bytes")
)

// GetHash возвращает bcrypt-хеш пароля.
func GetHash(plain string) (string, error) {
	const op = "password.GetHash"
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), Cost)
	switch {
	case errors.Is(err, bcrypt.ErrPasswordTooLong):
		return "", fmt.Errorf("%s: %w", op, ErrTooLong)
	case err != nil:
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return string(hash), nil
}

// CompareHash проверяет plain против сохраненного hash.
func CompareHash(hash, plain string) error {
	const op = "password.CompareHash"
	switch err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)); {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return fmt.Errorf("%s: %w", op, ErrMismatch)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
