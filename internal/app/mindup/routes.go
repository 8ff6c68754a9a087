package mindup

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/mindup/internal/http/handlers/appointment"
	"github.com/magabrotheeeer/mindup/internal/http/handlers/authn"
	"github.com/magabrotheeeer/mindup/internal/http/handlers/message"
	"github.com/magabrotheeeer/mindup/internal/http/handlers/user"
	"github.com/magabrotheeeer/mindup/internal/http/middlewarectx"
)

// Handlers набор обработчиков и middleware, из которых собирается роутер.
type Handlers struct {
	Auth        *authn.Handler
	User        *user.Handler
	Appointment *appointment.Handler
	Message     *message.Handler
	Health      http.Handler

	Parser   middlewarectx.TokenParser
	Revoked  middlewarectx.RevocationChecker
	Limiter  *middlewarectx.IPRateLimiter
	Metrics  *middlewarectx.Metrics
	Gatherer prometheus.Gatherer
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, h Handlers) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
		h.Metrics.Middleware,
	)

	r.Route("/api", func(r chi.Router) {
		r.Use(middlewarectx.RateLimitMiddleware(h.Limiter, logger))
		jwtAuth := middlewarectx.JWTMiddleware(h.Parser, h.Revoked, logger)

		r.Route("/core", func(r chi.Router) {
			// Открытые конечные точки
			r.Post("/register", h.Auth.Register)
			r.Post("/login", h.Auth.Login)
			r.Get("/verify", h.Auth.Verify)
			r.Post("/requestPwReset", h.Auth.RequestPasswordReset)
			r.Post("/resetPW", h.Auth.ResetPassword)

			r.Group(func(r chi.Router) {
				r.Use(jwtAuth)
				r.Route("/user", func(r chi.Router) {
					r.Get("/profile", h.User.ProfileByEmail)
					r.Put("/preferences", h.User.UpdatePreferences)
					r.Post("/logout", h.User.Logout)
					r.Delete("/delete-account", h.User.DeleteAccount)
					r.Put("/availability/{id}", h.User.ToggleAvailability)
					r.Get("/professional/{id}", h.User.Professional)
					r.Get("/patient/{id}", h.User.Patient)
					r.Put("/{id}/change-password", h.User.ChangePassword)
					r.Post("/{id}/profile-image/update", h.User.UpdateProfileImage)
					r.Delete("/{id}/profile-image/delete", h.User.DeleteProfileImage)
					r.Get("/{id}/profile", h.User.GetProfile)
					r.Put("/{id}/profile", h.User.UpdateProfile)
				})

				r.Route("/appointments", func(r chi.Router) {
					r.Post("/", h.Appointment.Create)
					r.Get("/pending", h.Appointment.Pending)
					r.Get("/accepted", h.Appointment.Accepted)
					r.Get("/canceled", h.Appointment.Canceled)
					r.Get("/patient/{id}", h.Appointment.ByPatient)
					r.Get("/patient/{id}/reserved", h.Appointment.ReservedByPatient)
					r.Get("/psychologist/{id}", h.Appointment.ByPsychologist)
					r.Get("/psychologist/{id}/reserved", h.Appointment.ReservedByPsychologist)
					r.Get("/{id}", h.Appointment.Get)
					r.Put("/{id}", h.Appointment.Update)
					r.Delete("/{id}", h.Appointment.SoftDelete)
					r.Put("/{id}/accept", h.Appointment.Accept)
					r.Put("/{id}/cancel", h.Appointment.Cancel)
					r.Put("/{id}/reactivate", h.Appointment.Reactivate)
				})
			})
		})

		r.Route("/message", func(r chi.Router) {
			r.Use(jwtAuth)
			r.Get("/chat-request/{patientId}", h.Message.ChatRequest)
			r.Get("/emergency-contact", h.Message.EmergencyContacts)
			r.Get("/other-resources", h.Message.OtherResources)
		})
	})

	r.Handle("/health", h.Health)
	r.Handle("/metrics", promhttp.HandlerFor(h.Gatherer, promhttp.HandlerOpts{}))
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
