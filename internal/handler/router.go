package handler

import (
	"net/http"

	"github.com/Shivanand-hulikatti/event-registration/internal/service"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// NewRouter builds the HTTP API on top of the services.
func NewRouter(events *service.EventService, users *service.UserService, log zerolog.Logger) http.Handler {
	validate := validator.New()
	eventHandler := NewEventHandler(events, validate, log)
	userHandler := NewUserHandler(users, validate, log)

	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(Logger(log))             // structured access log
	r.Use(CORS)                    // permissive CORS

	r.Get("/health", HealthCheck)

	r.Route("/events", func(r chi.Router) {
		r.Post("/", eventHandler.CreateEvent)
		r.Get("/", eventHandler.ListUpcomingEvents)
		r.Get("/{eventId}", eventHandler.GetEvent)
		r.Post("/{eventId}/register", eventHandler.Register)
		r.Post("/{eventId}/cancel", eventHandler.Cancel)
		r.Get("/{eventId}/stats", eventHandler.Stats)
	})

	r.Route("/users", func(r chi.Router) {
		r.Post("/", userHandler.CreateUser)
		r.Get("/", userHandler.ListUsers)
	})

	return r
}
