package models

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound запрошенный ресурс отсутствует.
	ErrNotFound = errors.New("not found")
	// ErrUserNotFound пользователь не найден.
	ErrUserNotFound = fmt.Errorf("user %w", ErrNotFound)
	// ErrAppointmentNotFound запись на приём не найдена.
	ErrAppointmentNotFound = fmt.Errorf("appointment %w", ErrNotFound)
	// ErrRoleMismatch роль пользователя не подходит для операции.
	ErrRoleMismatch = errors.New("role mismatch")
	// ErrConflict пересечение по расписанию или нарушение уникальности.
	ErrConflict = errors.New("conflict")
	// ErrInvalidCredentials неверный email или пароль.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNotVerified электронная почта не подтверждена.
	ErrNotVerified = errors.New("account not verified")
	// ErrInvalidToken токен не найден, истёк или уже использован.
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrInvalidDate дата не разобрана.
	ErrInvalidDate = errors.New("invalid date")
)

// DetailError несет сообщение для клиента и разворачивается в одну из
// sentinel-ошибок выше, поэтому errors.Is продолжает работать.
type DetailError struct {
	Kind    error
	Message string
}

func (e *DetailError) Error() string {
	return e.Message
}

func (e *DetailError) Unwrap() error {
	return e.Kind
}

// Detail создает DetailError.
func Detail(kind error, message string) error {
	return &DetailError{Kind: kind, Message: message}
}
