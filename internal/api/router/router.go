// Package router assembles the public HTTP surface: health, metrics, and
// the two chat transports.
package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	httpmiddleware "github.com/frontdesk-ai/frontdesk/internal/http/middleware"
	"github.com/frontdesk-ai/frontdesk/internal/webchat"
	"github.com/frontdesk-ai/frontdesk/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger             *logging.Logger
	Chat               *webchat.Handler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// Requests/sec and burst per client IP on the chat endpoints;
	// zero disables rate limiting.
	RateLimitPerSecond float64
	RateLimitBurst     int
}

// New creates the chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", handleHealth)
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	if cfg.Chat != nil {
		r.Route("/chat", func(chat chi.Router) {
			if cfg.RateLimitPerSecond > 0 {
				chat.Use(httpmiddleware.RateLimit(cfg.RateLimitPerSecond, cfg.RateLimitBurst))
			}
			chat.Post("/converse", cfg.Chat.HandleConverse)
			chat.Get("/ws", cfg.Chat.HandleWebSocket)
		})
	}

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"service": "frontdesk",
	})
}
