// Package web exposes the game over HTTP.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/p-n-ai/pai-kids/internal/game"
	"github.com/p-n-ai/pai-kids/internal/notify"
)

const readyTimeout = 3 * time.Second

// HealthChecker is a dependency checked by /readyz.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Config wires the HTTP API.
type Config struct {
	Manager      *game.Manager
	Hub          *notify.Hub
	Checks       map[string]HealthChecker
	SecureCookie bool
	// OriginPatterns are allowed WebSocket origins besides the host itself.
	OriginPatterns []string
}

// Server holds the handlers of the HTTP API.
type Server struct {
	manager *game.Manager
	hub     *notify.Hub
	checks  map[string]HealthChecker
}

// NewRouter builds the HTTP handler for the game.
func NewRouter(cfg Config) http.Handler {
	s := &Server{manager: cfg.Manager, hub: cfg.Hub, checks: cfg.Checks}
	if s.hub == nil {
		s.hub = notify.NewHub()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)

	r.Group(func(r chi.Router) {
		r.Use(playerMiddleware(cfg.SecureCookie))

		r.Route("/api", func(r chi.Router) {
			r.Get("/state", s.handleState)
			r.Put("/profile", s.handleProfile)
			r.Get("/badges", s.handleBadges)

			r.Route("/rounds", func(r chi.Router) {
				r.Post("/", s.handleStartRound)
				r.Get("/current", s.handleCurrentRound)
				r.Delete("/current", s.handleAbandonRound)
				r.Post("/next", s.handleNextRound)
				r.Post("/{id}/answer", s.handleAnswer)
				r.Post("/{id}/retry", s.handleRetry)
				r.Post("/{id}/speak", s.handleSpeak)
			})

			r.Get("/rewards/current", s.handlePendingReward)
			r.Post("/rewards/ack", s.handleAckReward)
			r.Get("/speech/latest", s.handleLatestSpeech)
			r.Get("/report.xlsx", s.handleReport)
		})

		r.Handle("/ws", notify.NewHandler(s.hub, PlayerFromRequest, cfg.OriginPatterns...))
	})

	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := make(map[string]string, len(s.checks))
	for name, c := range s.checks {
		if err := c.HealthCheck(ctx); err != nil {
			checks[name] = "unreachable"
			status, code = "not_ready", http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}
	writeJSON(w, code, map[string]any{"status": status, "checks": checks})
}

// session resolves the caller's game session, writing the error response
// when it cannot.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*game.Session, bool) {
	playerID, ok := PlayerFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, CodeBadRequest, "unknown player")
		return nil, false
	}
	sess, err := s.manager.Session(r.Context(), playerID)
	if err != nil {
		writeGameError(w, r, err)
		return nil, false
	}
	return sess, true
}
