package response

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/mindup/internal/models"
)

const internalError = "internal server error"

// FromError переводит доменную ошибку в HTTP-статус и сообщение для клиента.
// Неизвестные ошибки превращаются в 500 без подробностей.
func FromError(err error) (int, string) {
	status, fallback := statusOf(err)
	if status == http.StatusInternalServerError {
		return status, internalError
	}
	var detail *models.DetailError
	if errors.As(err, &detail) {
		return status, detail.Message
	}
	return status, fallback
}

func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrUserNotFound):
		return http.StatusNotFound, "User not found."
	case errors.Is(err, models.ErrAppointmentNotFound):
		return http.StatusNotFound, "Appointment not found."
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, "Not found."
	case errors.Is(err, models.ErrRoleMismatch):
		return http.StatusConflict, "Role mismatch."
	case errors.Is(err, models.ErrConflict):
		return http.StatusConflict, "Conflict."
	case errors.Is(err, models.ErrInvalidToken):
		return http.StatusBadRequest, "Invalid or expired token."
	case errors.Is(err, models.ErrInvalidDate):
		return http.StatusBadRequest, "Invalid date."
	case errors.Is(err, models.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid credentials."
	case errors.Is(err, models.ErrNotVerified):
		return http.StatusForbidden, "Account not verified. Please verify your email first."
	default:
		return http.StatusInternalServerError, internalError
	}
}

// Fail пишет ответ с ошибкой по правилам FromError и возвращает статус.
func Fail(w http.ResponseWriter, r *http.Request, err error) int {
	status, msg := FromError(err)
	render.Status(r, status)
	render.JSON(w, r, Error(msg))
	return status
}
