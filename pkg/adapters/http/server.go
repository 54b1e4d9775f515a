package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/domaindetect"
	"github.com/aretw0/domaindetect/internal/logging"
	"github.com/aretw0/domaindetect/internal/presentation/report"
	"github.com/aretw0/domaindetect/pkg/domain"
	"github.com/aretw0/domaindetect/pkg/ports"
	"github.com/aretw0/domaindetect/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// maxBodyBytes caps request bodies; chain batches are the largest payloads.
const maxBodyBytes = 32 << 20

// Server exposes a session.Manager over REST.
type Server struct {
	Manager *session.Manager
	Streams *StreamManager
	Watcher ports.Watchable

	logger  *slog.Logger
	metrics http.Handler
}

// Option configures the server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithStreams shares a stream manager whose Hooks were installed on the session manager.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) {
		s.Streams = sm
	}
}

// WithLibraryWatcher makes GET /events without a session stream library change notices.
func WithLibraryWatcher(w ports.Watchable) Option {
	return func(s *Server) {
		s.Watcher = w
	}
}

// WithMetricsHandler mounts h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// ChainsRequest carries chains for search and reannotation.
type ChainsRequest struct {
	Chains []domain.Chain `json:"chains"`
}

// AssignmentsRequest replaces a chain's domain table.
type AssignmentsRequest struct {
	Assignments []domain.DomainAssignment `json:"assignments"`
}

// ReannotateResponse reports what changed along with the new session view.
type ReannotateResponse struct {
	Diff    domain.ChainDiff `json:"diff"`
	Session session.Snapshot `json:"session"`
}

// ErrorResponse is the body of every non-2xx reply. Session is set when the
// operation ran and left the session in a reportable state.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Session *session.Snapshot `json:"session,omitempty"`
}

// NewHandler creates the HTTP handler for the manager.
func NewHandler(mgr *session.Manager, opts ...Option) http.Handler {
	s := &Server{
		Manager: mgr,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.Streams == nil {
		s.Streams = NewStreamManager(s.logger)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/events", s.SubscribeEvents)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", s.ListSessions)
		r.Post("/", s.CreateSession)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", s.GetSession)
			r.Delete("/", s.DeleteSession)
			r.Post("/library", s.LoadLibrary)
			r.Post("/search", s.SearchChains)
			r.Post("/resolve", s.Resolve)
			r.Post("/certify", s.Certify)
			r.Post("/reannotate", s.Reannotate)
			r.Put("/chains/{chainID}/assignments", s.EditAssignments)
			r.Get("/assignments", s.GetAssignments)
			r.Get("/report", s.GetReport)
		})
	})
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Custom-Header")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "domaindetect-http",
		"version": strings.TrimSpace(domaindetect.Version),
	})
}

// ListSessions handles GET /sessions.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string][]string{"sessions": s.Manager.List()})
}

// CreateSession handles POST /sessions. The optional body overrides keys of the
// manager's default configuration.
func (s *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	cfg := s.Manager.Config()
	if r.ContentLength != 0 {
		if err := s.decode(w, r, &cfg); err != nil {
			return
		}
	}

	sess, err := s.Manager.Create(&cfg)
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	w.Header().Set("Location", "/sessions/"+sess.ID())
	s.writeJSON(w, http.StatusCreated, sess.Snapshot())
}

// GetSession handles GET /sessions/{sessionID}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Manager.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	s.writeJSON(w, http.StatusOK, sess.Snapshot())
}

// DeleteSession handles DELETE /sessions/{sessionID}.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.Manager.Delete(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LoadLibrary handles POST /sessions/{sessionID}/library.
func (s *Server) LoadLibrary(w http.ResponseWriter, r *http.Request) {
	s.run(w, r, func(ctx context.Context, sess *session.Session) error {
		return sess.LoadLibrary(ctx)
	})
}

// SearchChains handles POST /sessions/{sessionID}/search.
func (s *Server) SearchChains(w http.ResponseWriter, r *http.Request) {
	var body ChainsRequest
	if err := s.decode(w, r, &body); err != nil {
		return
	}
	s.run(w, r, func(ctx context.Context, sess *session.Session) error {
		return sess.SearchChains(ctx, body.Chains)
	})
}

// Resolve handles POST /sessions/{sessionID}/resolve.
func (s *Server) Resolve(w http.ResponseWriter, r *http.Request) {
	s.run(w, r, func(ctx context.Context, sess *session.Session) error {
		return sess.Resolve(ctx)
	})
}

// Certify handles POST /sessions/{sessionID}/certify.
func (s *Server) Certify(w http.ResponseWriter, r *http.Request) {
	s.run(w, r, func(ctx context.Context, sess *session.Session) error {
		return sess.Certify(ctx)
	})
}

// Reannotate handles POST /sessions/{sessionID}/reannotate.
func (s *Server) Reannotate(w http.ResponseWriter, r *http.Request) {
	var body ChainsRequest
	if err := s.decode(w, r, &body); err != nil {
		return
	}

	var (
		diff domain.ChainDiff
		snap session.Snapshot
	)
	err := s.Manager.Do(r.Context(), chi.URLParam(r, "sessionID"), func(ctx context.Context, sess *session.Session) error {
		var err error
		diff, err = sess.ReannotateChangedDomains(ctx, body.Chains)
		snap = sess.Snapshot()
		return err
	})
	if err != nil {
		s.writeError(w, r, err, sessionOrNil(snap))
		return
	}
	s.writeJSON(w, http.StatusOK, ReannotateResponse{Diff: diff, Session: snap})
}

// EditAssignments handles PUT /sessions/{sessionID}/chains/{chainID}/assignments.
func (s *Server) EditAssignments(w http.ResponseWriter, r *http.Request) {
	var body AssignmentsRequest
	if err := s.decode(w, r, &body); err != nil {
		return
	}
	chainID := chi.URLParam(r, "chainID")
	s.run(w, r, func(ctx context.Context, sess *session.Session) error {
		return sess.EditAssignments(ctx, chainID, body.Assignments)
	})
}

// GetAssignments handles GET /sessions/{sessionID}/assignments.
// It answers 409 until the session is certified.
func (s *Server) GetAssignments(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Manager.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	assignments, err := sess.Assignments()
	if err != nil {
		snap := sess.Snapshot()
		s.writeError(w, r, err, &snap)
		return
	}
	s.writeJSON(w, http.StatusOK, assignments)
}

// GetReport handles GET /sessions/{sessionID}/report?format=markdown|mermaid.
func (s *Server) GetReport(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Manager.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	snap := sess.Snapshot()

	switch format := r.URL.Query().Get("format"); format {
	case "", "markdown":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		fmt.Fprint(w, report.Markdown(report.Header{
			SessionID:      snap.ID,
			State:          snap.State,
			LibraryVersion: snap.LibraryVersion,
			Issues:         snap.Issues,
		}, snap.Results))
	case "mermaid":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprint(w, report.Mermaid(snap.Results, sess.Library()))
	default:
		s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("unknown report format %q", format)})
	}
}

// SubscribeEvents handles GET /events (SSE). With session_id it streams that session's
// lifecycle events; without it, library change notices.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" && s.Watcher == nil {
		s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "session_id is required"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	if sessionID == "" {
		events, err := s.Watcher.Watch(r.Context())
		if err != nil {
			http.Error(w, fmt.Sprintf("Watch error: %v", err), http.StatusInternalServerError)
			return
		}
		fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
		flusher.Flush()

		for {
			select {
			case <-r.Context().Done():
				return
			case _, ok := <-events:
				if !ok {
					return
				}
				fmt.Fprintf(w, "event: library\ndata: changed\n\n")
				flusher.Flush()
			}
		}
	}

	s.logger.Info("SSE: Subscribing to session updates", "session_id", sessionID)
	ch, cancel := s.Streams.Subscribe(sessionID)
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// run executes op under the session lock and replies with the resulting snapshot.
func (s *Server) run(w http.ResponseWriter, r *http.Request, op func(context.Context, *session.Session) error) {
	var snap session.Snapshot
	err := s.Manager.Do(r.Context(), chi.URLParam(r, "sessionID"), func(ctx context.Context, sess *session.Session) error {
		err := op(ctx, sess)
		snap = sess.Snapshot()
		return err
	})
	if err != nil {
		s.writeError(w, r, err, sessionOrNil(snap))
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		s.logger.Warn("Invalid request body", "path", r.URL.Path, "err", err)
		s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("invalid request body: %v", err)})
		return err
	}
	return nil
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, snap *session.Snapshot) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", "path", r.URL.Path, "err", err)
	} else {
		s.logger.Debug("Request rejected", "path", r.URL.Path, "status", status, "err", err)
	}
	s.writeJSON(w, status, ErrorResponse{Error: err.Error(), Session: snap})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Response encode failed", "err", err)
	}
}

// StatusFor maps engine errors to HTTP status codes.
func StatusFor(err error) int {
	var cfgErr *domain.ConfigError
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.As(err, &cfgErr), errors.Is(err, domain.ErrInvalidChain):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrLibraryLoadFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrLibraryNotLoaded),
		errors.Is(err, domain.ErrOverlappingDomains),
		errors.Is(err, domain.ErrSessionCanceled):
		return http.StatusConflict
	case errors.Is(err, domain.ErrAlignmentFailed), errors.Is(err, domain.ErrMutationScanFailed):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func sessionOrNil(snap session.Snapshot) *session.Snapshot {
	if snap.ID == "" {
		return nil
	}
	return &snap
}
