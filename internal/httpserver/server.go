package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"slack-taskbot/internal/dispatch"
	"slack-taskbot/internal/slack"
)

const maxBodyBytes = 1 << 20

// Dispatcher accepts a payload and returns without waiting for its pipeline.
type Dispatcher interface {
	Handle(ctx context.Context, p slack.Payload) dispatch.Route
}

// Server receives Slack Events API webhooks.
type Server struct {
	signingSecret string
	dispatcher    Dispatcher
	logger        *slog.Logger
	httpServer    *http.Server
}

// NewServer creates the webhook server. Signature checks are skipped when
// signingSecret is empty.
func NewServer(port int, signingSecret string, dispatcher Dispatcher, logger *slog.Logger) *Server {
	s := &Server{
		signingSecret: signingSecret,
		dispatcher:    dispatcher,
		logger:        logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /slack/events", s.handleEvents)
	mux.HandleFunc("GET /health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      withLogging(logger, mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler exposes the routes, used by tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening for HTTP requests. It blocks until the server is
// shut down or an error occurs.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleEvents answers before any command work starts.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.logger.Warn("failed to read request body", "error", err)
		writeError(w, http.StatusBadRequest, "invalid_body", "could not read body")
		return
	}

	if s.signingSecret != "" {
		if err := slack.VerifyRequest(r.Header, body, s.signingSecret); err != nil {
			s.logger.Warn("request signature rejected", "error", err)
			writeError(w, http.StatusUnauthorized, "invalid_signature", "signature verification failed")
			return
		}
	}

	p, err := slack.ParsePayload(body)
	if err != nil {
		s.logger.Warn("malformed payload", "error", err)
		writeError(w, http.StatusBadRequest, "invalid_payload", "malformed payload")
		return
	}

	if retry := r.Header.Get("X-Slack-Retry-Num"); retry != "" && p.Type != slack.TypeURLVerification {
		s.logger.Info("retry delivery acknowledged", "event_id", p.EventID,
			"retry_num", retry, "retry_reason", r.Header.Get("X-Slack-Retry-Reason"))
		w.WriteHeader(http.StatusOK)
		return
	}

	route := s.dispatcher.Handle(r.Context(), p)
	if route.State == dispatch.ChallengeResponse {
		writeJSON(w, http.StatusOK, map[string]string{"challenge": route.Challenge})
		return
	}
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, errType, message string) {
	writeJSON(w, status, map[string]string{
		"error":   errType,
		"message": message,
	})
}

func withLogging(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.status,
			"duration", time.Since(start),
		)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
