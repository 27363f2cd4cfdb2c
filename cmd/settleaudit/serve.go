package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gridscope/settleaudit/internal/audit"
	httpserver "github.com/gridscope/settleaudit/internal/interfaces/http"
	"github.com/gridscope/settleaudit/internal/metrics"
	"github.com/gridscope/settleaudit/internal/provenance"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the audit and serve the results over HTTP",
	Long: `Run a full validation pass, then serve the outcome read-only:

  GET /                 provenance report (HTML)
  GET /api/summary      batch summary (JSON)
  GET /api/settlements  per-settlement results (JSON)
  GET /metrics          prometheus metrics
  GET /health           liveness

The server binds localhost by default and exposes no mutating endpoint.

Example:
  settleaudit serve --cache migration_cache.json --port 8080`,
	RunE: runServe,
}

var (
	serveCachePath  string
	serveSpotPath   string
	serveConfigPath string
	serveHost       string
	servePort       int
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveCachePath, "cache", "migration_cache.json", "Migration cache file")
	serveCmd.Flags().StringVar(&serveSpotPath, "spot", "spot_prices.json", "Spot price cache file (optional)")
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "configs/audit.yaml", "Audit configuration file")
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "Bind address")
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Listen port")
}

func runServe(cmd *cobra.Command, _ []string) error {
	env, err := loadEnv(serveCachePath, serveSpotPath, serveConfigPath)
	if err != nil {
		return err
	}

	runID := uuid.NewString()[:8]
	results := env.v.Run(env.doc.Settlements, env.cfg.Workers)
	summary := audit.Summarize(runID, results)
	audit.PrintSummary(os.Stdout, summary)

	registry := prometheus.NewRegistry()
	metrics.New(registry).ObserveSummary(summary)

	reportPath, err := writeTempReport(runID, env)
	if err != nil {
		return err
	}

	cfg := httpserver.DefaultServerConfig()
	cfg.Host = serveHost
	cfg.Port = servePort
	server, err := httpserver.NewServer(cfg, summary, results, reportPath, registry)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return server.Start(ctx)
}

// writeTempReport renders the provenance page into a per-run temp file so the
// server always has something current to hand out at /.
func writeTempReport(runID string, env *auditEnv) (string, error) {
	f, err := os.CreateTemp("", "settleaudit-report-*.html")
	if err != nil {
		return "", err
	}
	f.Close()

	if err := provenance.WriteFile(f.Name(), provenance.Build(runID, env.doc)); err != nil {
		return "", err
	}
	log.Debug().Str("path", f.Name()).Msg("serving provenance report from temp file")
	return f.Name(), nil
}
