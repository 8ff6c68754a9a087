// Package message реализует обработчики запросов в чат и справочника помощи.
package message

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/mindup/internal/http/response"
	"github.com/magabrotheeeer/mindup/internal/lib/sl"
)

// Handler обрабатывает запросы /api/message.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ChatRequest godoc
// @Summary Запрос чата с психологом
// @Description Уведомляет всех доступных психологов. requested=false, если уведомить никого не удалось.
// @Tags Message
// @Security BearerAuth
// @Produce  json
// @Param patientId path string true "UID пациента"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse "Пользователь не пациент"
// @Router /api/message/chat-request/{patientId} [get]
func (h *Handler) ChatRequest(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.message.ChatRequest"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	requested, err := h.service.RequestChat(r.Context(), chi.URLParam(r, "patientId"))
	if err != nil {
		log.Error("chat request failed", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(map[string]any{"requested": requested}))
}

// EmergencyContacts godoc
// @Summary Контакты экстренной помощи
// @Tags Message
// @Security BearerAuth
// @Produce  json
// @Success 200 {object} response.Response{data=[]models.EmergencyContact}
// @Router /api/message/emergency-contact [get]
func (h *Handler) EmergencyContacts(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, response.OKWithData(h.service.EmergencyContacts()))
}

// OtherResources godoc
// @Summary Дополнительные ресурсы поддержки
// @Tags Message
// @Security BearerAuth
// @Produce  json
// @Success 200 {object} response.Response{data=[]models.OtherResource}
// @Router /api/message/other-resources [get]
func (h *Handler) OtherResources(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, response.OKWithData(h.service.OtherResources()))
}
