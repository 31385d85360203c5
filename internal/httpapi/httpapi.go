// Package httpapi exposes the unary lookups and operational endpoints
// over HTTP, alongside the websocket session routes. Every response is
// JSON except the metrics text exposition.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/curbz/skytrace/internal/errs"
	"github.com/curbz/skytrace/internal/filterlang"
	"github.com/curbz/skytrace/internal/manager"
	"github.com/curbz/skytrace/internal/moving"
	"github.com/curbz/skytrace/internal/session"
	"github.com/curbz/skytrace/internal/track"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// Version is stamped via -ldflags at build time.
var Version = "dev"

// Server wires the manager and session server into one router.
type Server struct {
	manager  *manager.Manager
	sessions *session.Server
	log      *logrus.Logger
}

// NewServer builds the HTTP surface.
func NewServer(m *manager.Manager, sessions *session.Server, log *logrus.Logger) *Server {
	return &Server{manager: m, sessions: sessions, log: log}
}

// Router assembles the chi route tree.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", s.handleHealth)
	r.Get("/metrics", s.handleMetrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/build-info", s.handleBuildInfo)
		r.Get("/query/check", s.handleCheckQuery)
		r.Get("/pilots", s.handleListPilots)
		r.Get("/pilots/{callsign}", s.handleGetPilot)
		r.Get("/airports/{code}", s.handleGetAirport)
		r.Get("/metrics", s.handleMetricsJSON)
	})

	// Long-lived streaming sessions.
	r.Get("/ws/updates", s.sessions.HandleMapUpdates)
	r.Get("/ws/subscribe", s.sessions.HandleSubscribeQuery)

	return r
}

// Run serves the router on port until the listener fails.
func (s *Server) Run(port string) error {
	addr := ":" + port
	s.log.WithField("addr", addr).Info("httpapi: listening")
	return http.ListenAndServe(addr, s.Router())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps the error-kind taxonomy onto HTTP statuses:
// expression errors are failed preconditions, lookup misses are not
// found, track-file system errors are unavailable.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errs.ErrExpression):
		writeJSON(w, http.StatusPreconditionFailed, errorResponse{Error: err.Error()})
	case errors.Is(err, errs.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	default:
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	w.Write([]byte(s.manager.RenderMetrics()))
}

func (s *Server) handleMetricsJSON(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"text": s.manager.RenderMetrics()})
}

type buildInfoResponse struct {
	Name       string `json:"name"`
	Version    string `json:"version"`
	Repository string `json:"repository"`
	License    string `json:"license"`
}

func (s *Server) handleBuildInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, buildInfoResponse{
		Name:       "skytrace",
		Version:    Version,
		Repository: "https://github.com/curbz/skytrace",
		License:    "MIT",
	})
}

type checkQueryResponse struct {
	Valid        bool   `json:"valid"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// handleCheckQuery validates a filter expression against the pilot
// attribute resolver without evaluating it.
func (s *Server) handleCheckQuery(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	expr, err := filterlang.MakeExpr(query)
	if err != nil {
		writeJSON(w, http.StatusOK, checkQueryResponse{Valid: false, ErrorMessage: err.Error()})
		return
	}
	if expr == nil {
		writeJSON(w, http.StatusOK, checkQueryResponse{Valid: true})
		return
	}
	if _, err := filterlang.Compile(expr, moving.CompilePilotFilter); err != nil {
		writeJSON(w, http.StatusOK, checkQueryResponse{Valid: false, ErrorMessage: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, checkQueryResponse{Valid: true})
}

// handleListPilots returns every pilot, optionally narrowed by a
// filter expression in the query parameter.
func (s *Server) handleListPilots(w http.ResponseWriter, r *http.Request) {
	pilots := s.manager.AllPilots()

	if query := r.URL.Query().Get("query"); query != "" {
		expr, err := filterlang.MakeExpr(query)
		if err != nil {
			writeError(w, err)
			return
		}
		compiled, err := filterlang.Compile(expr, moving.CompilePilotFilter)
		if err != nil {
			writeError(w, err)
			return
		}
		filtered := pilots[:0]
		for _, p := range pilots {
			if compiled.Evaluate(p) {
				filtered = append(filtered, p)
			}
		}
		pilots = filtered
	}
	writeJSON(w, http.StatusOK, map[string]any{"pilots": pilots})
}

type pilotResponse struct {
	Pilot moving.Pilot       `json:"pilot"`
	Track []track.TrackPoint `json:"track"`
}

// handleGetPilot returns one pilot with its persisted track.
func (s *Server) handleGetPilot(w http.ResponseWriter, r *http.Request) {
	callsign := chi.URLParam(r, "callsign")
	pilot, ok := s.manager.PilotByCallsign(callsign)
	if !ok {
		writeError(w, errs.Wrap(errs.ErrNotFound, "pilot "+callsign))
		return
	}
	points, err := s.manager.PilotTrack(pilot)
	if err != nil {
		s.log.WithError(err).WithField("callsign", callsign).Error("httpapi: track read failed")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pilotResponse{Pilot: pilot, Track: points})
}

// handleGetAirport resolves an airport by IATA or ICAO code.
func (s *Server) handleGetAirport(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	airport, ok := s.manager.FindAirport(code)
	if !ok {
		writeError(w, errs.Wrap(errs.ErrNotFound, "airport "+code))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"airport": airport})
}
