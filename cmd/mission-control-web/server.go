package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/luyandamncube/openclaw-mission-control/pkg/client"
	"github.com/luyandamncube/openclaw-mission-control/pkg/logging"
	"github.com/luyandamncube/openclaw-mission-control/pkg/metrics"
	"github.com/luyandamncube/openclaw-mission-control/pkg/navigation"
)

// maxPageSize matches the backend's upper bound for limit.
const maxPageSize = 200

type server struct {
	client      *client.Client
	pageSize    int
	logger      zerolog.Logger
	httpMetrics *metrics.HTTPMetrics
}

func newServer(c *client.Client, pageSize int, logger zerolog.Logger, httpMetrics *metrics.HTTPMetrics) *server {
	if pageSize <= 0 || pageSize > maxPageSize {
		pageSize = client.DefaultPageSize
	}
	return &server{
		client:      c,
		pageSize:    pageSize,
		logger:      logger,
		httpMetrics: httpMetrics,
	}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(logging.RequestLogger(s.logger))
	r.Use(s.httpMetrics.Middleware)

	r.Get("/health", s.health)
	r.Handle("/metrics", metrics.Handler())

	agents := s.agentsView()
	r.Get("/agents", listHandler(s, agents))
	r.Post("/agents/sort", sortHandler(s, agents))
	r.Post("/agents/{agentID}/delete", deleteHandler(s, agents))

	tasks := s.tasksView()
	r.Get("/boards/{boardID}/tasks", listHandler(s, tasks))
	r.Post("/boards/{boardID}/tasks/sort", sortHandler(s, tasks))
	r.Post("/boards/{boardID}/tasks/{taskID}/delete", deleteHandler(s, tasks))

	return r
}

func (s *server) health(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok", "rate_limit": "ok"}

	state, err := s.client.RateLimiter().GetState(r.Context())
	switch {
	case err != nil:
		status["rate_limit"] = "unknown"
	case state.IsBlocked():
		status["rate_limit"] = "blocked"
	case state.NeedsThrottling():
		status["rate_limit"] = "throttled"
	}

	writeJSON(w, http.StatusOK, status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// redirect sends the browser to the location loc navigated to, or back to
// where it was when nothing changed.
func (s *server) redirect(w http.ResponseWriter, r *http.Request, loc *navigation.RequestLocation) {
	target, mode, moved := loc.Target()
	if !moved {
		target = loc.URL()
	}
	s.logger.Debug().
		Str("target", target).
		Stringer("mode", mode).
		Bool("moved", moved).
		Msg("Redirecting")
	loc.Redirect(w, r)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// upstreamStatus maps a client error to the status this server answers
// with: the API's own 4xx passes through, everything else is a bad gateway.
func upstreamStatus(err error) int {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorClass == client.ErrorClassClient {
		return apiErr.StatusCode
	}
	return http.StatusBadGateway
}
