// Package http exposes a DialogueService as a JSON API on chi. Request
// bodies and path parameters are validated against the embedded OpenAPI
// document.
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

	"github.com/aretw0/tendril"
	"github.com/aretw0/tendril/internal/logging"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

//go:embed openapi.yaml
var rawSpec []byte

// Spec returns the embedded OpenAPI document.
func Spec() []byte {
	return rawSpec
}

// Server serves the dialogue API.
type Server struct {
	Service ports.DialogueService
	Streams *StreamManager

	logger  *slog.Logger
	metrics http.Handler
	api     *Validator
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetricsHandler mounts h on GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// NewHandler creates a new HTTP handler for the service.
func NewHandler(svc ports.DialogueService, opts ...Option) (http.Handler, error) {
	s := &Server{
		Service: svc,
		Streams: NewStreamManager(),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	validate, err := NewValidator(rawSpec)
	if err != nil {
		return nil, err
	}
	s.api = validate
	s.Streams.dropped = func(id string) {
		s.logger.Warn("sse client buffer full, dropping turn", "dialogue_id", id)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(enableCORS)

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		w.Write(rawSpec)
	})
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(validate.Middleware(s.writeProblem))
		r.Get("/types", s.ListTypes)
		r.Route("/dialogues", func(r chi.Router) {
			r.Get("/", s.ListDialogues)
			r.Post("/", s.CreateDialogue)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.GetDialogue)
				r.Delete("/", s.DeleteDialogue)
				r.Post("/turns", s.ExecuteTurn)
				r.Get("/events", s.SubscribeTurns)
			})
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

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// ListDialogues handles GET /dialogues.
func (s *Server) ListDialogues(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Service.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	s.writeJSON(w, http.StatusOK, map[string][]string{"dialogues": ids})
}

// CreateDialogue handles POST /dialogues.
func (s *Server) CreateDialogue(w http.ResponseWriter, r *http.Request) {
	id, err := s.Service.Create(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Location", "/dialogues/"+id)
	s.writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// GetDialogue handles GET /dialogues/{id}.
func (s *Server) GetDialogue(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Service.Snapshot(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

// DeleteDialogue handles DELETE /dialogues/{id}.
func (s *Server) DeleteDialogue(w http.ResponseWriter, r *http.Request) {
	if err := s.Service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type turnRequest struct {
	Expression string `json:"expression"`
}

// ExecuteTurn handles POST /dialogues/{id}/turns.
func (s *Server) ExecuteTurn(w http.ResponseWriter, r *http.Request) {
	var body turnRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeProblem(w, http.StatusBadRequest, "invalid request body", "", nil)
		return
	}

	id := chi.URLParam(r, "id")
	rep, err := s.Service.Turn(r.Context(), id, body.Expression)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if data, err := json.Marshal(rep); err == nil {
		s.Streams.Broadcast(id, string(data))
	}
	s.writeJSON(w, http.StatusOK, rep)
}

// ListTypes handles GET /types.
func (s *Server) ListTypes(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Service.Types())
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":         "tendril-http",
		"version":     strings.TrimSpace(tendril.Version),
		"api_version": s.api.Version(),
	})
}

// SubscribeTurns handles GET /dialogues/{id}/events (SSE). Every turn
// report of the dialogue is pushed as a "turn" event, followed by a "goals"
// event carrying the goal diff when the goals changed.
func (s *Server) SubscribeTurns(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeProblem(w, http.StatusInternalServerError, "streaming not supported", "", nil)
		return
	}

	id := chi.URLParam(r, "id")
	last, err := s.Service.Snapshot(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.Streams.Subscribe(id)
	defer cancel()
	s.logger.Info("sse subscribed", "dialogue_id", id)

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	s.writeGoals(w, domain.Diff(nil, last))
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("sse client disconnected", "dialogue_id", id)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: turn\ndata: %s\n\n", msg)
			if snap, err := s.Service.Snapshot(r.Context(), id); err == nil {
				s.writeGoals(w, domain.Diff(last, snap))
				last = snap
			}
			flusher.Flush()
		}
	}
}

func (s *Server) writeGoals(w io.Writer, diff *domain.SnapshotDiff) {
	if diff == nil {
		return
	}
	data, err := json.Marshal(diff)
	if err != nil {
		s.logger.Error("failed to encode goal diff", "error", err)
		return
	}
	fmt.Fprintf(w, "event: goals\ndata: %s\n\n", data)
}

type problem struct {
	Error       string   `json:"error"`
	Kind        string   `json:"kind,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// fail maps service errors to HTTP statuses.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	var derr *domain.Error
	switch {
	case errors.Is(err, domain.ErrDialogueNotFound):
		s.writeProblem(w, http.StatusNotFound, err.Error(), "", nil)
	case errors.As(err, &derr):
		s.writeProblem(w, http.StatusUnprocessableEntity, derr.Error(), string(derr.Kind), derr.Suggestions)
	case errors.Is(err, context.DeadlineExceeded):
		s.writeProblem(w, http.StatusGatewayTimeout, err.Error(), "", nil)
	case errors.Is(err, context.Canceled):
		// Client went away; nothing useful to send.
		s.logger.Debug("request cancelled", "path", r.URL.Path)
	default:
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
		s.writeProblem(w, http.StatusInternalServerError, "internal error", "", nil)
	}
}

func (s *Server) writeProblem(w http.ResponseWriter, status int, msg, kind string, suggestions []string) {
	s.writeJSON(w, status, problem{Error: msg, Kind: kind, Suggestions: suggestions})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}
