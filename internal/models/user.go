// Package models содержит доменные структуры платформы: пользователей,
// записи на приём, уведомления и справочные ресурсы экстренной помощи.
// Структуры используются в бизнес‑логике, хранилище и HTTP‑слое.
package models

import "time"

// Role определяет роль пользователя в системе.
type Role string

const (
	// RolePatient пациент, записывается на приём.
	RolePatient Role = "PATIENT"
	// RolePsychologist психолог, принимает пациентов.
	RolePsychologist Role = "PSYCHOLOGIST"
	// RoleAdmin администратор платформы.
	RoleAdmin Role = "ADMIN"
)

// User представляет зарегистрированного пользователя системы.
type User struct {
	UUID            string    `json:"uid"`
	Email           string    `json:"email"`
	PasswordHash    string    `json:"-"`
	Name            string    `json:"name"`
	Role            Role      `json:"role"`
	Available       bool      `json:"available"` // Доступность, имеет смысл только для психологов
	Preferences     string    `json:"preferences"`
	Phone           string    `json:"phone"`
	Bio             string    `json:"bio"`
	ProfileImageKey *string   `json:"profile_image_key,omitempty"` // Ключ объекта в S3
	Verified        bool      `json:"verified"`                    // Подтверждена ли электронная почта
	CreatedAt       time.Time `json:"created_at"`
}

// UserProfile содержит редактируемые поля профиля пользователя.
type UserProfile struct {
	Name  string `json:"name" validate:"required,min=2,max=100"`
	Phone string `json:"phone" validate:"omitempty,max=30"`
	Bio   string `json:"bio" validate:"omitempty,max=1000"`
}

// ProfileImageUpload описывает ссылку для загрузки изображения профиля.
type ProfileImageUpload struct {
	Key       string `json:"key"`
	UploadURL string `json:"upload_url"`
}
