// Package api exposes the agent to the dashboard over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/prostat/joule-agent/internal/agent"
	"github.com/prostat/joule-agent/internal/assembler"
	"github.com/prostat/joule-agent/internal/buildinfo"
	"github.com/prostat/joule-agent/internal/completion"
	"github.com/prostat/joule-agent/internal/settings"
	"github.com/prostat/joule-agent/internal/telemetry"
)

// writeJSON encodes v to w. Failures usually mean the client went away.
func writeJSON(w http.ResponseWriter, status int, v any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("failed to write JSON response", "error", err)
	}
}

// Server serves the dashboard API.
type Server struct {
	addr          string
	orchestrator  *agent.Orchestrator
	settingsStore *settings.Store
	feed          *telemetry.Subscriber
	dataDir       string
	logger        *slog.Logger
	server        *http.Server
}

// NewServer creates the API server. feed may be nil when the telemetry
// bridge is not configured; dataDir holds cached analysis/forecast files
// and may be empty.
func NewServer(addr string, orch *agent.Orchestrator, store *settings.Store, feed *telemetry.Subscriber, dataDir string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		addr:          addr,
		orchestrator:  orch,
		settingsStore: store,
		feed:          feed,
		dataDir:       dataDir,
		logger:        logger,
	}
}

// Handler builds the route table. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/ask", s.handleAsk)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/version", s.handleVersion)
	mux.HandleFunc("GET /api/settings", s.handleGetSettings)
	mux.HandleFunc("PUT /api/settings", s.handlePutSettings)

	return s.withLogging(mux)
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 90 * time.Second, // completion calls can run long
	}
	s.logger.Info("starting API server", "addr", s.addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

// askRequest is the dashboard's question payload. History carries the
// page's visible chat thread, oldest first.
type askRequest struct {
	Question string               `json:"question"`
	APIKey   string               `json:"apiKey"`
	Mode     string               `json:"mode,omitempty"`
	Model    string               `json:"model,omitempty"`
	History  []completion.Message `json:"history,omitempty"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":   true,
			"message": "request body must be JSON with a question field",
		}, s.logger)
		return
	}

	cfg, err := s.settingsStore.Load()
	if err != nil {
		s.logger.Warn("settings load failed", "error", err)
		cfg = &settings.Settings{}
	}

	var live *telemetry.LiveData
	if s.feed != nil {
		if d, _, ok := s.feed.Snapshot(); ok {
			live = d
		}
	}

	answer := s.orchestrator.Ask(r.Context(), agent.Request{
		Question: req.Question,
		APIKey:   req.APIKey,
		Live:     live,
		Settings: cfg,
		Analysis: loadDataFile[assembler.Analysis](s, "analysis.json"),
		Forecast: loadDataFile[assembler.Forecast](s, "forecast.json"),
		History:  req.History,
		Options: agent.Options{
			Mode:  req.Mode,
			Model: req.Model,
		},
	})

	status := http.StatusOK
	if answer.Error {
		// Setup problems are client-fixable; everything else is upstream.
		if answer.NeedsAPIKey || answer.NeedsSetup {
			status = http.StatusUnprocessableEntity
		} else {
			status = http.StatusBadGateway
		}
	}
	writeJSON(w, status, answer, s.logger)
}

// loadDataFile reads an optional cached JSON artifact from the data dir.
func loadDataFile[T any](s *Server, name string) *T {
	if s.dataDir == "" {
		return nil
	}
	raw, err := os.ReadFile(filepath.Join(s.dataDir, name))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("data file unreadable", "file", name, "error", err)
		}
		return nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		s.logger.Warn("data file malformed", "file", name, "error", err)
		return nil
	}
	return &v
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	feed := "not configured"
	if s.feed != nil {
		feed = "waiting"
		if _, age, ok := s.feed.Snapshot(); ok {
			feed = "live"
			if age > 2*time.Minute {
				feed = "stale"
			}
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"uptime":    buildinfo.Uptime().Round(time.Second).String(),
		"telemetry": feed,
	}, s.logger)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, buildinfo.Info(), s.logger)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.settingsStore.Load()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":   true,
			"message": "could not load settings",
		}, s.logger)
		return
	}
	writeJSON(w, http.StatusOK, cfg, s.logger)
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var cfg settings.Settings
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":   true,
			"message": "request body must be a settings object",
		}, s.logger)
		return
	}
	if err := s.settingsStore.Save(&cfg); err != nil {
		s.logger.Error("settings save failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":   true,
			"message": "could not save settings",
		}, s.logger)
		return
	}
	writeJSON(w, http.StatusOK, &cfg, s.logger)
}
