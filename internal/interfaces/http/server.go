// Package http serves the audit outcome read-only: the provenance report,
// JSON summaries for tooling, health, and prometheus metrics. The server
// never exposes anything that mutates audit state.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/gridscope/settleaudit/internal/audit"
)

// ServerConfig holds listener configuration.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DefaultServerConfig binds local-only on 8080.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "127.0.0.1",
		Port:         8080,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// Server is the read-only HTTP server over one completed audit run.
type Server struct {
	router     *mux.Router
	server     *http.Server
	config     ServerConfig
	reportPath string
	summary    audit.Summary
	results    []audit.Result
}

// NewServer wires routes over the given audit outcome. reportPath may be
// empty when no provenance report was generated.
func NewServer(cfg ServerConfig, summary audit.Summary, results []audit.Result, reportPath string, gatherer prometheus.Gatherer) (*Server, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("port %d is busy or unavailable: %w", cfg.Port, err)
	}
	listener.Close()

	s := &Server{
		router:     mux.NewRouter(),
		config:     cfg,
		reportPath: reportPath,
		summary:    summary,
		results:    results,
	}
	s.setupRoutes(gatherer)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s, nil
}

func (s *Server) setupRoutes(gatherer prometheus.Gatherer) {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/api/summary", s.handleSummary).Methods(http.MethodGet)
	s.router.HandleFunc("/api/settlements", s.handleSettlements).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	s.router.HandleFunc("/", s.handleReport).Methods(http.MethodGet)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.server.Addr).Msg("serving audit results")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"run_id": s.summary.RunID,
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.summary)
}

func (s *Server) handleSettlements(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.results)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if s.reportPath == "" {
		http.Error(w, "no provenance report generated for this run", http.StatusNotFound)
		return
	}
	if _, err := os.Stat(s.reportPath); err != nil {
		http.Error(w, "report not found", http.StatusNotFound)
		return
	}
	http.ServeFile(w, r, s.reportPath)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("encode response")
	}
}
