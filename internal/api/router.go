package api

import (
	"net/http"

	"github.com/axio-app/axio-be/internal/api/handlers"
	"github.com/axio-app/axio-be/internal/api/respond"
	"github.com/axio-app/axio-be/internal/auth"
	"github.com/axio-app/axio-be/internal/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Version is the API version reported by the root banner.
const Version = "1.0.0"

// NewRouter creates and configures a new Chi router.
func NewRouter(cfg *config.Config, authHandler *handlers.AuthHandler, authenticator *auth.Authenticator) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS for the frontend origin
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.FrontendURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Service banner
	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		respond.JSON(w, http.StatusOK, respond.Envelope{
			Success: true,
			Message: "Axio API - personal expense management",
			Data: map[string]string{
				"version":     Version,
				"environment": cfg.Environment,
			},
		})
	})

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(authenticator.Middleware)
			r.Get("/profile", authHandler.Profile)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respond.Error(w, http.StatusNotFound, "Route not found")
	})

	return r
}
