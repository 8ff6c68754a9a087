// Package user реализует HTTP-обработчики профиля пользователя под JWT.
package user

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/mindup/internal/http/middlewarectx"
	"github.com/magabrotheeeer/mindup/internal/http/response"
	"github.com/magabrotheeeer/mindup/internal/lib/sl"
	"github.com/magabrotheeeer/mindup/internal/models"
)

// ChangePasswordRequest текущий и новый пароль.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6"`
}

// PreferencesRequest предпочтения пользователя в свободной форме.
type PreferencesRequest struct {
	Preferences string `json:"preferences" validate:"max=4000"`
}

// Handler обрабатывает запросы профиля.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

func (h *Handler) logger(r *http.Request, op string) *slog.Logger {
	return h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, log *slog.Logger, req any) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return false
	}
	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return false
	}
	return true
}

func emailParam(w http.ResponseWriter, r *http.Request, log *slog.Logger) (string, bool) {
	email := r.URL.Query().Get("email")
	if email == "" {
		log.Error("email query parameter is missing")
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("email is required"))
		return "", false
	}
	return email, true
}

// ProfileByEmail godoc
// @Summary Профиль по email
// @Tags User
// @Security BearerAuth
// @Produce  json
// @Param email query string true "Email"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse
// @Router /api/core/user/profile [get]
func (h *Handler) ProfileByEmail(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.user.ProfileByEmail")

	email, ok := emailParam(w, r, log)
	if !ok {
		return
	}
	user, err := h.service.FindByEmail(r.Context(), email)
	if err != nil {
		log.Error("failed to find user", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(user))
}

// GetProfile godoc
// @Summary Профиль по UID
// @Tags User
// @Security BearerAuth
// @Produce  json
// @Param id path string true "UID пользователя"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse
// @Router /api/core/user/{id}/profile [get]
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.user.GetProfile")

	user, err := h.service.GetProfile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		log.Error("failed to get profile", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(user))
}

// UpdateProfile godoc
// @Summary Обновление профиля
// @Tags User
// @Security BearerAuth
// @Accept  json
// @Produce  json
// @Param id path string true "UID пользователя"
// @Param request body models.UserProfile true "Профиль"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Router /api/core/user/{id}/profile [put]
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.user.UpdateProfile")

	var req models.UserProfile
	if !h.decode(w, r, log, &req) {
		return
	}
	user, err := h.service.UpdateProfile(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		log.Error("failed to update profile", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	log.Info("profile updated", slog.String("user", user.UUID))
	render.JSON(w, r, response.OKWithData(user))
}

// ChangePassword godoc
// @Summary Смена пароля
// @Tags User
// @Security BearerAuth
// @Accept  json
// @Produce  json
// @Param id path string true "UID пользователя"
// @Param request body ChangePasswordRequest true "Пароли"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.ErrorResponse "Неверный текущий пароль"
// @Router /api/core/user/{id}/change-password [put]
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.user.ChangePassword")

	var req ChangePasswordRequest
	if !h.decode(w, r, log, &req) {
		return
	}
	if err := h.service.ChangePassword(r.Context(), chi.URLParam(r, "id"), req.CurrentPassword, req.NewPassword); err != nil {
		log.Error("failed to change password", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, response.OK())
}

// UpdatePreferences godoc
// @Summary Обновление предпочтений
// @Tags User
// @Security BearerAuth
// @Accept  json
// @Produce  json
// @Param email query string true "Email"
// @Param request body PreferencesRequest true "Предпочтения"
// @Success 200 {object} response.Response
// @Router /api/core/user/preferences [put]
func (h *Handler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.user.UpdatePreferences")

	email, ok := emailParam(w, r, log)
	if !ok {
		return
	}
	var req PreferencesRequest
	if !h.decode(w, r, log, &req) {
		return
	}
	user, err := h.service.UpdatePreferences(r.Context(), email, req.Preferences)
	if err != nil {
		log.Error("failed to update preferences", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(user))
}

// ToggleAvailability godoc
// @Summary Переключение доступности психолога
// @Tags User
// @Security BearerAuth
// @Produce  json
// @Param id path string true "UID психолога"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.ErrorResponse "Пользователь не психолог"
// @Router /api/core/user/availability/{id} [put]
func (h *Handler) ToggleAvailability(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.user.ToggleAvailability")

	available, err := h.service.ToggleAvailability(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		log.Error("failed to toggle availability", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(map[string]any{"available": available}))
}

// Logout godoc
// @Summary Выход
// @Description Отзывает текущий токен.
// @Tags User
// @Security BearerAuth
// @Produce  json
// @Success 200 {object} response.Response
// @Router /api/core/user/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.user.Logout")

	claims, ok := middlewarectx.ClaimsFromContext(r.Context())
	if !ok {
		log.Error("claims missing in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("user identification missing"))
		return
	}
	if err := h.service.Logout(r.Context(), claims); err != nil {
		log.Error("failed to logout", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	log.Info("user logged out", slog.String("user", claims.UserUID))
	render.JSON(w, r, response.OK())
}

// DeleteAccount godoc
// @Summary Удаление учетной записи
// @Tags User
// @Security BearerAuth
// @Produce  json
// @Param email query string true "Email"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse
// @Router /api/core/user/delete-account [delete]
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.user.DeleteAccount")

	email, ok := emailParam(w, r, log)
	if !ok {
		return
	}
	if err := h.service.DeleteAccount(r.Context(), email); err != nil {
		log.Error("failed to delete account", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, response.OK())
}

// UpdateProfileImage godoc
// @Summary Ссылка для загрузки изображения профиля
// @Tags User
// @Security BearerAuth
// @Produce  json
// @Param id path string true "UID пользователя"
// @Success 200 {object} response.Response
// @Router /api/core/user/{id}/profile-image/update [post]
func (h *Handler) UpdateProfileImage(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.user.UpdateProfileImage")

	upload, err := h.service.UpdateProfileImage(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		log.Error("failed to prepare profile image upload", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(upload))
}

// DeleteProfileImage godoc
// @Summary Удаление изображения профиля
// @Tags User
// @Security BearerAuth
// @Produce  json
// @Param id path string true "UID пользователя"
// @Success 200 {object} response.Response
// @Router /api/core/user/{id}/profile-image/delete [delete]
func (h *Handler) DeleteProfileImage(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.user.DeleteProfileImage")

	if err := h.service.DeleteProfileImage(r.Context(), chi.URLParam(r, "id")); err != nil {
		log.Error("failed to delete profile image", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, response.OK())
}

// Professional godoc
// @Summary Профиль психолога
// @Tags User
// @Security BearerAuth
// @Produce  json
// @Param id path string true "UID психолога"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.ErrorResponse "Роль не PSYCHOLOGIST"
// @Router /api/core/user/professional/{id} [get]
func (h *Handler) Professional(w http.ResponseWriter, r *http.Request) {
	h.byRole(w, r, "handlers.user.Professional", h.service.IsPsychologist)
}

// Patient godoc
// @Summary Профиль пациента
// @Tags User
// @Security BearerAuth
// @Produce  json
// @Param id path string true "UID пациента"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.ErrorResponse "Роль не PATIENT"
// @Router /api/core/user/patient/{id} [get]
func (h *Handler) Patient(w http.ResponseWriter, r *http.Request) {
	h.byRole(w, r, "handlers.user.Patient", h.service.IsPatient)
}

func (h *Handler) byRole(w http.ResponseWriter, r *http.Request, op string,
	lookup func(ctx context.Context, userUID string) (*models.User, error)) {
	log := h.logger(r, op)

	user, err := lookup(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		log.Error("role lookup failed", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(user))
}
