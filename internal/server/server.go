// Package server provides the HTTP API for triggering and polling session reports.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/session-report/internal/generation"
	"github.com/jonathan/session-report/internal/server/middleware"
	"github.com/jonathan/session-report/internal/server/ratelimit"
	"github.com/jonathan/session-report/internal/types"
)

// Reporter runs report generation
type Reporter interface {
	Generate(ctx context.Context, sessionID, ownerID uuid.UUID) (*types.ReportArtifact, error)
	TriggerAsync(ctx context.Context, sessionID, ownerID uuid.UUID) types.TriggerResult
}

// RecordFinder reads generation records for status polling
type RecordFinder interface {
	FindRecord(ctx context.Context, sessionID uuid.UUID) (*types.GenerationRecord, error)
}

// Deps are the collaborators the HTTP layer delegates to
type Deps struct {
	Reports  Reporter
	Sessions generation.SessionStore
	Records  RecordFinder
	JWT      *JWTService
	// Ping reports storage health; nil means always healthy
	Ping func(ctx context.Context) error
}

// Config holds server configuration
type Config struct {
	Addr           string
	AllowedOrigins []string
	RateLimit      *ratelimit.Config
}

// Server represents the HTTP server
type Server struct {
	httpServer     *http.Server
	deps           Deps
	rateLimiter    *ratelimit.Limiter
	allowedOrigins map[string]bool
}

// New creates a new server instance
func New(cfg Config, deps Deps) (*Server, error) {
	if deps.Reports == nil || deps.Sessions == nil || deps.Records == nil || deps.JWT == nil {
		return nil, fmt.Errorf("server: reports, sessions, records and JWT are required")
	}

	s := &Server{
		deps:           deps,
		rateLimiter:    ratelimit.NewLimiter(cfg.RateLimit),
		allowedOrigins: make(map[string]bool, len(cfg.AllowedOrigins)),
	}
	for _, origin := range cfg.AllowedOrigins {
		s.allowedOrigins[strings.TrimRight(origin, "/")] = true
	}

	auth := middleware.AuthMiddleware(deps.JWT.AsTokenValidator())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("POST /sessions/{id}/report", auth(http.HandlerFunc(s.handleTriggerReport)))
	mux.Handle("GET /sessions/{id}/report", auth(http.HandlerFunc(s.handleGetReport)))

	addr := cfg.Addr
	if addr == "" {
		addr = ":8080"
	}
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.withRateLimit(s.withLogging(s.withCORS(mux))),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 600 * time.Second, // Synchronous generation spans every retry
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler returns the fully wrapped HTTP handler
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start listens until SIGINT or SIGTERM, then shuts down gracefully
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[server] listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.rateLimiter.Stop()
		return fmt.Errorf("server error: %w", err)
	case <-stop:
	}

	log.Println("[server] shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.Shutdown(ctx)
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	defer s.rateLimiter.Stop()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	log.Println("[server] stopped")
	return nil
}

// withCORS adds CORS headers for allowed origins. With no configured origins any
// origin is allowed.
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		switch {
		case len(s.allowedOrigins) == 0:
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case s.allowedOrigins[origin]:
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.rateLimiter.Allow(clientID(r), r.URL.Path, r.Method)
		setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Printf("[%s] %s %d in %v", r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Ping(ctx); err != nil {
			log.Printf("[server] health check failed: %v", err)
			s.jsonResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleTriggerReport starts generation for a session. With wait (query parameter or
// body) the report is generated inline and returned; otherwise the record is claimed
// and 202 is returned while generation continues in the background.
func (s *Server) handleTriggerReport(w http.ResponseWriter, r *http.Request) {
	ownerID, sessionID, ok := s.requestIDs(w, r)
	if !ok {
		return
	}

	var req types.TriggerReportRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			s.errorResponse(w, &ErrValidation{Field: "body", Message: "invalid JSON"})
			return
		}
	}
	if r.URL.Query().Get("wait") == "true" {
		req.Wait = true
	}

	if req.Wait {
		report, err := s.deps.Reports.Generate(r.Context(), sessionID, ownerID)
		if errors.Is(err, generation.ErrGenerationInProgress) {
			s.jsonResponse(w, http.StatusAccepted, types.TriggerResult{Accepted: true})
			return
		}
		if err != nil {
			s.errorResponse(w, err)
			return
		}
		s.jsonResponse(w, http.StatusOK, ReportResponse{
			SessionID: sessionID,
			Status:    types.StatusReady,
			Report:    report,
		})
		return
	}

	// Reject foreign or missing sessions before claiming anything
	session, err := s.deps.Sessions.FindSession(r.Context(), sessionID, ownerID)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	if session == nil {
		s.errorResponse(w, &generation.InputNotFoundError{SessionID: sessionID, Message: "session not found"})
		return
	}

	result := s.deps.Reports.TriggerAsync(r.Context(), sessionID, ownerID)
	if !result.Accepted {
		log.Printf("[server] trigger for session %s rejected: %s", sessionID, result.Error)
		s.jsonResponse(w, http.StatusInternalServerError, result)
		return
	}
	s.jsonResponse(w, http.StatusAccepted, result)
}

// ReportResponse is the status of a session's report
type ReportResponse struct {
	SessionID uuid.UUID              `json:"session_id"`
	Status    types.GenerationStatus `json:"status"`
	Attempts  int                    `json:"attempts"`
	LastError *string                `json:"last_error,omitempty"`
	Report    *types.ReportArtifact  `json:"report,omitempty"`
	UpdatedAt *time.Time             `json:"updated_at,omitempty"`
}

// handleGetReport returns the generation record for a session owned by the caller
func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	ownerID, sessionID, ok := s.requestIDs(w, r)
	if !ok {
		return
	}

	session, err := s.deps.Sessions.FindSession(r.Context(), sessionID, ownerID)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	if session == nil {
		s.errorResponse(w, &generation.InputNotFoundError{SessionID: sessionID, Message: "session not found"})
		return
	}

	rec, err := s.deps.Records.FindRecord(r.Context(), sessionID)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	if rec == nil || rec.OwnerID != ownerID {
		s.errorResponse(w, &ErrReportNotRequested{})
		return
	}

	updated := rec.UpdatedAt
	s.jsonResponse(w, http.StatusOK, ReportResponse{
		SessionID: rec.SessionID,
		Status:    rec.Status,
		Attempts:  rec.Attempts,
		LastError: rec.LastError,
		Report:    rec.Report,
		UpdatedAt: &updated,
	})
}

// requestIDs extracts the authenticated owner and the session path parameter
func (s *Server) requestIDs(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	ownerID, err := middleware.GetOwnerID(r)
	if err != nil {
		s.jsonResponse(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return uuid.Nil, uuid.Nil, false
	}
	req := types.ReportStatusRequest{SessionID: r.PathValue("id")}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, &ErrValidation{Field: "id", Message: "must be a UUID"})
		return uuid.Nil, uuid.Nil, false
	}
	return ownerID, uuid.MustParse(req.SessionID), true
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[server] error encoding JSON response: %v", err)
	}
}

// errorResponse writes err with the status HTTPStatus assigns to it. Internal errors are
// logged and replaced with a generic message.
func (s *Server) errorResponse(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		log.Printf("[server] internal error: %v", err)
		message = "internal server error"
	}
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// clientID identifies the caller by the IP in RemoteAddr
func clientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, info ratelimit.Info) {
	response := map[string]any{
		"error":   "rate_limit_exceeded",
		"message": "Rate limit exceeded. Please try again later.",
		"limit":   info.Limit,
	}
	if info.RetryAfter > 0 {
		seconds := int(info.RetryAfter.Seconds() + 0.999)
		response["retry_after"] = seconds
		w.Header().Set("Retry-After", fmt.Sprintf("%d", seconds))
	}

	log.Printf("[rate-limit] limit exceeded: limit=%d reset=%s", info.Limit, info.ResetTime.Format(time.RFC3339))
	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
