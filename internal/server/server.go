// Package server exposes the HTTP trigger surface for the agent: health
// and status probes, the redacted configuration, and the authenticated
// endpoint an external scheduler calls to start a phase.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jonathan/weekly-report-agent/internal/config"
	"github.com/jonathan/weekly-report-agent/internal/ledger"
	"github.com/jonathan/weekly-report-agent/internal/server/ratelimit"
	"github.com/jonathan/weekly-report-agent/internal/types"
)

// Trigger starts report phases. The orchestrator is the production
// implementation.
type Trigger interface {
	RunDraft(ctx context.Context, week types.RunKey) error
	RunFinal(ctx context.Context, week types.RunKey) error
}

// RunStore is the read side of the ledger used by the status endpoint.
type RunStore interface {
	Runs(ctx context.Context, limit int) ([]ledger.Run, error)
	History(ctx context.Context, limit int) ([]ledger.ExecutionRecord, error)
}

// triggerTimeout bounds one asynchronously executed phase.
const triggerTimeout = 15 * time.Minute

// Server is the HTTP trigger server.
type Server struct {
	httpServer  *http.Server
	trigger     Trigger
	store       RunStore
	cfg         *config.Config
	jwtService  *JWTService
	rateLimiter *ratelimit.Limiter
	log         *slog.Logger
	now         func() time.Time
}

// New creates a server. The JWT secret in cfg must be set; an unguarded
// trigger endpoint is not an option.
func New(cfg *config.Config, trigger Trigger, store RunStore, log *slog.Logger) (*Server, error) {
	if log == nil {
		log = slog.Default()
	}

	jwtService, err := NewJWTService(cfg.JWTSecret, time.Duration(cfg.JWTExpiryHours)*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("failed to create JWT service: %w", err)
	}

	s := &Server{
		trigger:     trigger,
		store:       store,
		cfg:         cfg,
		jwtService:  jwtService,
		rateLimiter: ratelimit.New(10, time.Minute),
		log:         log,
		now:         time.Now,
	}

	s.httpServer = &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      s.withLogging(s.routes()),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /config", s.handleConfig)
	mux.HandleFunc("POST /trigger/{phase}", s.withAuth(s.handleTrigger))
	return mux
}

// Start listens until SIGINT/SIGTERM, then shuts down gracefully.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server starting", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-stop:
	}

	s.log.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"time":   s.now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.Runs(r.Context(), 20)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read run ledger")
		return
	}
	history, err := s.store.History(r.Context(), 20)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read execution history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"current_run": types.CurrentRunKey(s.now()),
		"runs":        runs,
		"history":     history,
	})
}

// handleConfig returns the loaded configuration. Secret fields are
// excluded from JSON marshaling, so nothing sensitive can leak here.
func (s *Server) handleConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg)
}

type triggerResponse struct {
	RunKey string `json:"run_key"`
	Phase  string `json:"phase"`
	Status string `json:"status"`
}

// handleTrigger starts a phase asynchronously and returns 202. Outcomes
// land in the ledger and the error notifications, not in this response.
func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	phase := r.PathValue("phase")
	if phase != "draft" && phase != "final" {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown phase %q", phase))
		return
	}

	week := types.CurrentRunKey(s.now())
	if raw := r.URL.Query().Get("week"); raw != "" {
		parsed, err := types.ParseRunKey(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid week: %v", err))
			return
		}
		week = parsed
	}

	s.log.Info("phase triggered", "phase", phase, "run_key", week.String())

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), triggerTimeout)
		defer cancel()

		var err error
		if phase == "draft" {
			err = s.trigger.RunDraft(ctx, week)
		} else {
			err = s.trigger.RunFinal(ctx, week)
		}
		if err != nil {
			s.log.Error("triggered phase failed", "phase", phase, "run_key", week.String(), "error", err)
		}
	}()

	writeJSON(w, http.StatusAccepted, triggerResponse{
		RunKey: week.String(),
		Phase:  phase,
		Status: "started",
	})
}

// withAuth requires a valid bearer token and applies the rate limit.
func (s *Server) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		claims, err := s.jwtService.ValidateToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		if !s.rateLimiter.Allow(claims.Subject) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		next(w, r)
	}
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"remote", remoteHost(r),
			"duration", time.Since(start).String())
	})
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
