// Package health отдает состояние сервиса и его зависимостей.
package health

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/mindup/internal/http/response"
	"github.com/magabrotheeeer/mindup/internal/lib/sl"
)

const checkTimeout = 2 * time.Second

// Check проверка одной зависимости.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// Handler отвечает на GET /health.
type Handler struct {
	log    *slog.Logger
	checks []Check
}

// New создает Handler с проверками зависимостей.
func New(log *slog.Logger, checks ...Check) *Handler {
	return &Handler{
		log:    log,
		checks: checks,
	}
}

// ServeHTTP godoc
// @Summary Состояние сервиса
// @Tags Ops
// @Produce  json
// @Success 200 {object} response.Response
// @Failure 503 {object} response.Response
// @Router /health [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.health"
	log := h.log.With(slog.String("op", op))

	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	components := make(map[string]string, len(h.checks))
	healthy := true
	for _, c := range h.checks {
		if err := c.Ping(ctx); err != nil {
			log.Error("dependency is unhealthy", slog.String("component", c.Name), sl.Err(err))
			components[c.Name] = "down"
			healthy = false
			continue
		}
		components[c.Name] = "up"
	}

	if !healthy {
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, response.Response{
			Status: response.StatusError,
			Error:  "service unavailable",
			Data:   map[string]any{"status": "degraded", "components": components},
		})
		return
	}
	render.JSON(w, r, response.OKWithData(map[string]any{
		"status":     "ok",
		"components": components,
	}))
}
