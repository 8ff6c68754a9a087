// Package appointment реализует HTTP-обработчики записей на прием.
package appointment

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/mindup/internal/http/middlewarectx"
	"github.com/magabrotheeeer/mindup/internal/http/response"
	"github.com/magabrotheeeer/mindup/internal/lib/sl"
	"github.com/magabrotheeeer/mindup/internal/models"
)

// Handler обрабатывает запросы к записям на прием.
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

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, log *slog.Logger, req *models.DummyAppointment) bool {
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

func appointmentID(w http.ResponseWriter, r *http.Request, log *slog.Logger) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		log.Error("invalid appointment id", slog.String("id", raw))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid appointment id"))
		return 0, false
	}
	return id, true
}

// Create godoc
// @Summary Создание записи на прием
// @Description Дата без смещения трактуется как время клиники. У пациента может быть
// @Description одна активная запись в день, у психолога нужен интервал 30 минут.
// @Tags Appointments
// @Security BearerAuth
// @Accept  json
// @Produce  json
// @Param request body models.DummyAppointment true "Запись"
// @Success 201 {object} response.Response{data=models.Appointment}
// @Failure 400 {object} response.ErrorResponse "Некорректная дата"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Failure 409 {object} response.ErrorResponse "Конфликт расписания или роли"
// @Failure 422 {object} response.ErrorResponse
// @Router /api/core/appointments [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.appointment.Create")

	var req models.DummyAppointment
	if !h.decode(w, r, log, &req) {
		return
	}
	a, err := h.service.Create(r.Context(), req)
	if err != nil {
		log.Error("failed to create appointment", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	log.Info("appointment created", slog.Int64("id", a.ID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithData(a))
}

// Get godoc
// @Summary Запись по ID
// @Tags Appointments
// @Security BearerAuth
// @Produce  json
// @Param id path int true "ID записи"
// @Success 200 {object} response.Response{data=models.Appointment}
// @Failure 404 {object} response.ErrorResponse
// @Router /api/core/appointments/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	h.byID(w, r, "handlers.appointment.Get", h.service.Get)
}

// Update godoc
// @Summary Изменение записи
// @Tags Appointments
// @Security BearerAuth
// @Accept  json
// @Produce  json
// @Param id path int true "ID записи"
// @Param request body models.DummyAppointment true "Запись"
// @Success 200 {object} response.Response{data=models.Appointment}
// @Failure 404 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse
// @Router /api/core/appointments/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.appointment.Update")

	id, ok := appointmentID(w, r, log)
	if !ok {
		return
	}
	var req models.DummyAppointment
	if !h.decode(w, r, log, &req) {
		return
	}
	role := models.Role(middlewarectx.RoleFromContext(r.Context()))
	a, err := h.service.Update(r.Context(), role, id, req)
	if err != nil {
		log.Error("failed to update appointment", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(a))
}

// Accept godoc
// @Summary Подтверждение записи
// @Tags Appointments
// @Security BearerAuth
// @Produce  json
// @Param id path int true "ID записи"
// @Success 200 {object} response.Response{data=models.Appointment}
// @Failure 404 {object} response.ErrorResponse
// @Router /api/core/appointments/{id}/accept [put]
func (h *Handler) Accept(w http.ResponseWriter, r *http.Request) {
	h.byID(w, r, "handlers.appointment.Accept", h.service.Accept)
}

// Cancel godoc
// @Summary Отмена записи
// @Tags Appointments
// @Security BearerAuth
// @Produce  json
// @Param id path int true "ID записи"
// @Success 200 {object} response.Response{data=models.Appointment}
// @Failure 404 {object} response.ErrorResponse
// @Router /api/core/appointments/{id}/cancel [put]
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.byID(w, r, "handlers.appointment.Cancel", h.service.Cancel)
}

// Reactivate godoc
// @Summary Восстановление мягко удаленной записи
// @Tags Appointments
// @Security BearerAuth
// @Produce  json
// @Param id path int true "ID записи"
// @Success 200 {object} response.Response{data=models.Appointment}
// @Failure 404 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse
// @Router /api/core/appointments/{id}/reactivate [put]
func (h *Handler) Reactivate(w http.ResponseWriter, r *http.Request) {
	h.byID(w, r, "handlers.appointment.Reactivate", h.service.Reactivate)
}

// SoftDelete godoc
// @Summary Мягкое удаление записи
// @Tags Appointments
// @Security BearerAuth
// @Produce  json
// @Param id path int true "ID записи"
// @Success 200 {object} response.Response{data=models.DeletedAppointment}
// @Failure 404 {object} response.ErrorResponse
// @Router /api/core/appointments/{id} [delete]
func (h *Handler) SoftDelete(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.appointment.SoftDelete")

	id, ok := appointmentID(w, r, log)
	if !ok {
		return
	}
	deleted, err := h.service.SoftDelete(r.Context(), id)
	if err != nil {
		log.Error("failed to soft delete appointment", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(deleted))
}

func (h *Handler) byID(w http.ResponseWriter, r *http.Request, op string,
	action func(ctx context.Context, id int64) (*models.Appointment, error)) {
	log := h.logger(r, op)

	id, ok := appointmentID(w, r, log)
	if !ok {
		return
	}
	a, err := action(r.Context(), id)
	if err != nil {
		log.Error("appointment action failed", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(a))
}

// Pending godoc
// @Summary Активные записи в статусе PENDING
// @Tags Appointments
// @Security BearerAuth
// @Produce  json
// @Success 200 {object} response.Response{data=[]models.Appointment}
// @Router /api/core/appointments/pending [get]
func (h *Handler) Pending(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "handlers.appointment.Pending", func(ctx context.Context) ([]*models.Appointment, error) {
		return h.service.Pending(ctx)
	})
}

// Accepted godoc
// @Summary Активные записи в статусе ACCEPTED
// @Tags Appointments
// @Security BearerAuth
// @Produce  json
// @Success 200 {object} response.Response{data=[]models.Appointment}
// @Router /api/core/appointments/accepted [get]
func (h *Handler) Accepted(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "handlers.appointment.Accepted", func(ctx context.Context) ([]*models.Appointment, error) {
		return h.service.Accepted(ctx)
	})
}

// Canceled godoc
// @Summary Активные записи в статусе CANCELED
// @Tags Appointments
// @Security BearerAuth
// @Produce  json
// @Success 200 {object} response.Response{data=[]models.Appointment}
// @Router /api/core/appointments/canceled [get]
func (h *Handler) Canceled(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "handlers.appointment.Canceled", func(ctx context.Context) ([]*models.Appointment, error) {
		return h.service.Canceled(ctx)
	})
}

// ByPatient godoc
// @Summary Все активные записи пациента
// @Tags Appointments
// @Security BearerAuth
// @Produce  json
// @Param id path string true "UID пациента"
// @Success 200 {object} response.Response{data=[]models.Appointment}
// @Failure 409 {object} response.ErrorResponse "Роль не PATIENT"
// @Router /api/core/appointments/patient/{id} [get]
func (h *Handler) ByPatient(w http.ResponseWriter, r *http.Request) {
	h.listFor(w, r, "handlers.appointment.ByPatient", h.service.AllByPatient)
}

// ReservedByPatient godoc
// @Summary Подтвержденные записи пациента
// @Tags Appointments
// @Security BearerAuth
// @Produce  json
// @Param id path string true "UID пациента"
// @Success 200 {object} response.Response{data=[]models.Appointment}
// @Router /api/core/appointments/patient/{id}/reserved [get]
func (h *Handler) ReservedByPatient(w http.ResponseWriter, r *http.Request) {
	h.listFor(w, r, "handlers.appointment.ReservedByPatient", h.service.ReservedByPatient)
}

// ByPsychologist godoc
// @Summary Все активные записи психолога
// @Tags Appointments
// @Security BearerAuth
// @Produce  json
// @Param id path string true "UID психолога"
// @Success 200 {object} response.Response{data=[]models.Appointment}
// @Failure 409 {object} response.ErrorResponse "Роль не PSYCHOLOGIST"
// @Router /api/core/appointments/psychologist/{id} [get]
func (h *Handler) ByPsychologist(w http.ResponseWriter, r *http.Request) {
	h.listFor(w, r, "handlers.appointment.ByPsychologist", h.service.AllByPsychologist)
}

// ReservedByPsychologist godoc
// @Summary Подтвержденные записи психолога
// @Tags Appointments
// @Security BearerAuth
// @Produce  json
// @Param id path string true "UID психолога"
// @Success 200 {object} response.Response{data=[]models.Appointment}
// @Router /api/core/appointments/psychologist/{id}/reserved [get]
func (h *Handler) ReservedByPsychologist(w http.ResponseWriter, r *http.Request) {
	h.listFor(w, r, "handlers.appointment.ReservedByPsychologist", h.service.ReservedByPsychologist)
}

func (h *Handler) listFor(w http.ResponseWriter, r *http.Request, op string,
	query func(ctx context.Context, userUID string) ([]*models.Appointment, error)) {
	userUID := chi.URLParam(r, "id")
	h.list(w, r, op, func(ctx context.Context) ([]*models.Appointment, error) {
		return query(ctx, userUID)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, op string,
	query func(ctx context.Context) ([]*models.Appointment, error)) {
	log := h.logger(r, op)

	list, err := query(r.Context())
	if err != nil {
		log.Error("failed to list appointments", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	if list == nil {
		list = []*models.Appointment{}
	}
	log.Debug("appointments listed", slog.Int("count", len(list)))
	render.JSON(w, r, response.OKWithData(list))
}
