package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"medo-shield/internal/analysis"
	"medo-shield/internal/assessment"
	"medo-shield/internal/chat"
	"medo-shield/internal/consultation"
	"medo-shield/internal/fitness"
	"medo-shield/internal/history"
	"medo-shield/internal/medication"
	"medo-shield/internal/notification"
	"medo-shield/internal/platform/apierr"
	"medo-shield/internal/platform/auth"
	"medo-shield/internal/platform/logger"
	"medo-shield/internal/report"
)

type Pinger interface {
	PingContext(ctx context.Context) error
}

type Handlers struct {
	Assessment   *assessment.Handler
	Medication   *medication.Handler
	Report       *report.Handler
	Consultation *consultation.Handler
	Analysis     *analysis.Handler
	Fitness      *fitness.Handler
	Notification *notification.Handler
	History      *history.Handler
	Chat         *chat.Handler
}

type Config struct {
	Log         zerolog.Logger
	Auth        *auth.Authenticator
	CORSOrigins []string
	DB          Pinger
	Handlers    Handlers
}

func NewRouter(cfg Config) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logger.Middleware(cfg.Log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-User-ID", "X-User-Role"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		apierr.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", readiness(cfg.DB))

	h := cfg.Handlers
	r.Route("/api/health", func(r chi.Router) {
		r.Use(cfg.Auth.Middleware)
		assessment.RegisterRoutes(r, h.Assessment)
		medication.RegisterRoutes(r, h.Medication)
		report.RegisterRoutes(r, h.Report)
		consultation.RegisterRoutes(r, h.Consultation)
		analysis.RegisterRoutes(r, h.Analysis)
		fitness.RegisterRoutes(r, h.Fitness)
		notification.RegisterRoutes(r, h.Notification)
		history.RegisterRoutes(r, h.History)
		chat.RegisterRoutes(r, h.Chat)
	})
	return r
}

func readiness(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			apierr.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "database": err.Error()})
			return
		}
		apierr.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
