// Package router assembles the HTTP surface: the Twilio webhook, a health
// probe and the metrics endpoint.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	httpmiddleware "github.com/consultorio-ai/citabot/internal/http/middleware"
	"github.com/consultorio-ai/citabot/internal/messaging"
	"github.com/consultorio-ai/citabot/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger           *logging.Logger
	MessagingHandler *messaging.Handler
	MetricsHandler   http.Handler
}

// New creates a chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}
	r.Post("/whatsapp-webhook", cfg.MessagingHandler.WhatsAppWebhook)

	return r
}
