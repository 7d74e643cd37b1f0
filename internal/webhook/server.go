package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/WhatsDiscuss/voicebridge/internal/metrics"
	"github.com/WhatsDiscuss/voicebridge/internal/session"
)

// CallStarter is the orchestrator surface the dispatcher needs.
// Implemented by *session.Orchestrator.
type CallStarter interface {
	Start(ctx context.Context, ev session.InitiatedEvent) error
	ActiveCalls() int
}

// Server is the HTTP ingress: webhook, health, and metrics endpoints.
type Server struct {
	addr       string
	secret     string
	starter    CallStarter
	metrics    *metrics.Metrics
	httpServer *http.Server
	startTime  time.Time

	// sessionCtx is the lifecycle context handed to call sessions; it
	// outlives individual webhook requests and is canceled on shutdown.
	sessionCtx context.Context
}

// NewServer creates the webhook server.
func NewServer(addr, secret string, starter CallStarter, m *metrics.Metrics) *Server {
	s := &Server{
		addr:      addr,
		secret:    secret,
		starter:   starter,
		metrics:   m,
		startTime: time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/webhook", s.handleWebhook)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", m.Handler())

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start serves until the listener fails or Shutdown is called. The
// given context becomes the parent of every call session started from
// a webhook event.
func (s *Server) Start(ctx context.Context) error {
	s.sessionCtx = ctx

	slog.Info("[Webhook] Server listening", "addr", s.addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("webhook server: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests. Live call sessions are drained
// separately by the orchestrator.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// handleWebhook authenticates, parses, and acknowledges a webhook
// delivery. The acknowledgment is decoupled from the call flow: call
// sessions run in their own goroutine and their failures surface only
// through logs and metrics.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
		return
	}
	if !s.authorized(r.Header.Get("Authorization")) {
		slog.Warn("[Webhook] Rejected request with invalid token", "remote", r.RemoteAddr)
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
		return
	}

	var payload Payload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid JSON payload"})
		return
	}

	kind, ev := ParsePayload(&payload)
	s.metrics.WebhookEvents.WithLabelValues(kind).Inc()
	slog.Info("[Webhook] Event received", "type", kind)

	if kind != KindCallInitiated {
		writeJSON(w, http.StatusOK, map[string]any{"status": "acknowledged", "type": kind})
		return
	}

	go func(ev session.InitiatedEvent) {
		if err := s.starter.Start(s.sessionCtx, ev); err != nil {
			if errors.Is(err, session.ErrDuplicateCall) {
				slog.Warn("[Webhook] Duplicate call event ignored", "call_id", ev.CallID)
				return
			}
			slog.Error("[Webhook] Call session failed to start", "call_id", ev.CallID, "error", err)
		}
	}(*ev)

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "accepted",
		"type":    kind,
		"call_id": ev.CallID,
	})
}

// authorized validates the webhook token. Both "Bearer <token>" and a
// bare token are accepted.
func (s *Server) authorized(header string) bool {
	if header == "" || s.secret == "" {
		return false
	}
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return token == s.secret
	}
	return header == s.secret
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "healthy",
		"service":        "voicebridge",
		"active_calls":   s.starter.ActiveCalls(),
		"uptime_seconds": int(time.Since(s.startTime).Seconds()),
	})
}

func writeJSON(w http.ResponseWriter, status int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Warn("[Webhook] Failed to write response", "error", err)
	}
}
