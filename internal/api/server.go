// Package api serves the jambonz webhooks over HTTP.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/dialaschedule/dialaschedule/internal/api/middleware"
	"github.com/dialaschedule/dialaschedule/internal/callflow"
)

// Server holds HTTP handler dependencies and the chi router.
type Server struct {
	router  *chi.Mux
	calls   *callflow.Controller
	limiter *middleware.CallRateLimiter
	logger  *slog.Logger
}

// NewServer creates the webhook handler with all routes mounted. limiter
// may be nil to disable rate limiting.
func NewServer(calls *callflow.Controller, limiter *middleware.CallRateLimiter, logger *slog.Logger) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		calls:   calls,
		limiter: limiter,
		logger:  logger.With("subsystem", "api"),
	}

	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := s.router

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.StructuredLogger(s.logger))
	r.Use(middleware.Recoverer(s.logger))

	r.Get("/health", s.handleHealth)
	r.Post(callflow.StepStatusUpdate.Path(), s.handleCallStatus)

	r.Group(func(r chi.Router) {
		if s.limiter != nil {
			r.Use(middleware.RateLimit(s.limiter, http.HandlerFunc(s.handleThrottled)))
		}

		r.Post(callflow.StepIncoming.Path(), s.handleIncoming)
		r.Post(callflow.StepMenu.Path(), s.handleMenu)
		r.Post(callflow.StepMenuSelection.Path(), s.handleMenuSelection)

		for _, step := range callflow.QuerySteps {
			r.Post(step.Path(), s.handleQuery(step))
		}
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
