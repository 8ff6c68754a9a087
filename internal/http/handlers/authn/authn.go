// Package authn реализует открытые HTTP-обработчики учетной записи:
// регистрацию, вход, подтверждение почты и сброс пароля.
//
// Вход проходит в два шага. Сначала проверяются учетные данные, затем
// пользователь загружается повторно и проверяется подтверждение почты.
package authn

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/mindup/internal/http/response"
	"github.com/magabrotheeeer/mindup/internal/lib/sl"
	"github.com/magabrotheeeer/mindup/internal/models"
)

// RegisterRequest входные данные регистрации.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"required,oneof=PATIENT PSYCHOLOGIST"`
}

// LoginRequest учетные данные для входа.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// PasswordResetRequest запрос письма для сброса пароля.
type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest новый пароль и токен из письма.
type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

// Handler обрабатывает открытые запросы учетной записи.
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

// decode читает и валидирует тело запроса. При ошибке ответ уже записан.
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

// Register godoc
// @Summary Регистрация пользователя
// @Description Создает пациента или психолога и отправляет письмо для подтверждения почты.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body RegisterRequest true "Данные пользователя"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 409 {object} response.ErrorResponse "Email уже зарегистрирован"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /api/core/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.authn.Register")

	var req RegisterRequest
	if !h.decode(w, r, log, &req) {
		return
	}

	user, err := h.service.Register(r.Context(), req.Email, req.Name, req.Password, models.Role(req.Role))
	if err != nil {
		log.Error("failed to register user", sl.Err(err))
		response.Fail(w, r, err)
		return
	}

	log.Info("user registered", slog.String("user", user.UUID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithData(user))
}

// Login godoc
// @Summary Вход
// @Description Проверяет учетные данные и возвращает JWT. Вход без подтвержденной почты запрещен.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body LoginRequest true "Учетные данные"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.ErrorResponse "Invalid credentials."
// @Failure 403 {object} response.ErrorResponse "Account not verified. Please verify your email first."
// @Failure 404 {object} response.ErrorResponse "User not found."
// @Router /api/core/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.authn.Login")

	var req LoginRequest
	if !h.decode(w, r, log, &req) {
		return
	}

	token, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		log.Info("authentication failed", sl.Err(err))
		response.Fail(w, r, err)
		return
	}

	user, err := h.service.FindByEmail(r.Context(), req.Email)
	if err != nil {
		log.Error("failed to load user after authentication", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	if !user.Verified {
		log.Info("login of unverified account", slog.String("user", user.UUID))
		response.Fail(w, r, models.ErrNotVerified)
		return
	}

	log.Info("login success", slog.String("user", user.UUID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"token": token,
		"user":  user,
	}))
}

// Verify godoc
// @Summary Подтверждение почты
// @Tags Auth
// @Produce  json
// @Param token query string true "Токен из письма"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Invalid or expired token."
// @Router /api/core/verify [get]
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.authn.Verify")

	token := r.URL.Query().Get("token")
	if token == "" {
		log.Error("token is missing")
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("token is required"))
		return
	}
	if err := h.service.VerifyEmail(r.Context(), token); err != nil {
		log.Error("failed to verify email", sl.Err(err))
		response.Fail(w, r, err)
		return
	}

	log.Info("email verified")
	render.JSON(w, r, response.OKWithData(map[string]any{"verified": true}))
}

// RequestPasswordReset godoc
// @Summary Запрос сброса пароля
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body PasswordResetRequest true "Email"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse "User not found."
// @Router /api/core/requestPwReset [post]
func (h *Handler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.authn.RequestPasswordReset")

	var req PasswordResetRequest
	if !h.decode(w, r, log, &req) {
		return
	}
	if err := h.service.RequestPasswordReset(r.Context(), req.Email); err != nil {
		log.Error("failed to request password reset", sl.Err(err))
		response.Fail(w, r, err)
		return
	}

	render.JSON(w, r, response.OK())
}

// ResetPassword godoc
// @Summary Сброс пароля
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body ResetPasswordRequest true "Токен и новый пароль"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Invalid or expired token."
// @Router /api/core/resetPW [post]
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.authn.ResetPassword")

	var req ResetPasswordRequest
	if !h.decode(w, r, log, &req) {
		return
	}
	if err := h.service.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		log.Error("failed to reset password", sl.Err(err))
		response.Fail(w, r, err)
		return
	}

	log.Info("password reset")
	render.JSON(w, r, response.OK())
}
