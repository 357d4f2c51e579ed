// Package http exposes story sessions over a JSON API.
package http

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/fable/pkg/domain"
	"github.com/aretw0/fable/pkg/ports"
	"github.com/aretw0/fable/pkg/runner"
	"github.com/aretw0/fable/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

//go:embed openapi.yaml
var rawSpec []byte

// Engine is the story engine served by the API.
type Engine interface {
	ports.Advancer
	Inspect() []*domain.Node
}

// Server holds the handler dependencies.
type Server struct {
	Engine   Engine
	Sessions *session.Manager
	Streams  *StreamManager
	Version  string

	metrics http.Handler
	logger  *slog.Logger
}

// Option configures the server.
type Option func(*Server)

// WithMetrics serves h on /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithVersion reports v on /info.
func WithVersion(v string) Option {
	return func(s *Server) { s.Version = strings.TrimSpace(v) }
}

// NewServer creates a server for engine whose sessions live in sessions.
func NewServer(engine Engine, sessions *session.Manager, opts ...Option) *Server {
	s := &Server{
		Engine:   engine,
		Sessions: sessions,
		Streams:  NewStreamManager(),
		Version:  "dev",
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewHandler creates the HTTP handler for engine. Requests to API routes
// are validated against the embedded OpenAPI document.
func NewHandler(engine Engine, sessions *session.Manager, opts ...Option) (http.Handler, error) {
	return NewServer(engine, sessions, opts...).Handler()
}

// Handler builds the router.
func (s *Server) Handler() (http.Handler, error) {
	validate, err := requestValidator(context.Background())
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		_, _ = w.Write(rawSpec)
	})
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(validate)
		r.Get("/health", s.GetHealth)
		r.Get("/info", s.GetInfo)
		r.Get("/tree", s.GetTree)
		r.Get("/events", s.SubscribeReloads)
		r.Get("/sessions", s.ListSessions)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", s.GetSession)
			r.Delete("/", s.DeleteSession)
			r.Post("/advance", s.Advance)
			r.Post("/revert", s.Revert)
			r.Get("/events", s.SubscribeEvents)
		})
	})
	return r, nil
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type advanceRequest struct {
	Input  *string `json:"input,omitempty"`
	Resume bool    `json:"resume,omitempty"`
}

type revertRequest struct {
	Index int `json:"index"`
}

// Advance handles POST /sessions/{id}/advance.
func (s *Server) Advance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body advanceRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		s.fail(w, r, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	input := ""
	if body.Input != nil {
		clean, err := runner.SanitizeInput(*body.Input)
		if err != nil {
			s.fail(w, r, http.StatusBadRequest, fmt.Errorf("invalid input: %w", err))
			return
		}
		input = clean
	}

	var prev *domain.Session
	opts := []session.AdvanceOption{session.Observe(func(before, _ *domain.Session) { prev = before })}
	if body.Resume {
		opts = append(opts, session.Resuming())
	}
	res, err := s.Sessions.Advance(r.Context(), s.Engine, id, input, opts...)
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}

	if diff := domain.Diff(prev, res.Session); diff != nil {
		if payload, err := json.Marshal(diff); err == nil {
			s.Streams.Broadcast(id, string(payload))
		}
	}
	writeJSON(w, http.StatusOK, res)
}

// Revert handles POST /sessions/{id}/revert.
func (s *Server) Revert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body revertRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.fail(w, r, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	sess, err := s.Sessions.Revert(r.Context(), s.Engine, id, body.Index)
	if err != nil {
		s.fail(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// GetSession handles GET /sessions/{id}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Sessions.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// DeleteSession handles DELETE /sessions/{id}.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.Sessions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListSessions handles GET /sessions.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Sessions.List(r.Context())
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"sessions": ids})
}

// GetTree handles GET /tree.
func (s *Server) GetTree(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Engine.Cartridge())
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"app":     "fable-http",
		"version": s.Version,
		"story":   s.Engine.Cartridge().Name,
		"nodes":   len(s.Engine.Inspect()),
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrCheckpointNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, status int, err error) {
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	s.logger.Log(r.Context(), level, "request failed", "path", r.URL.Path, "status", status, "err", err)
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
