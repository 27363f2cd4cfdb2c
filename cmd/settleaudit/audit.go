package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gridscope/settleaudit/internal/audit"
	"github.com/gridscope/settleaudit/internal/cache"
	"github.com/gridscope/settleaudit/internal/config"
	"github.com/gridscope/settleaudit/internal/index"
	"github.com/gridscope/settleaudit/internal/provenance"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Validate migrated settlements against raw observations and spot prices",
	Long: `Validate every settlement in the migration cache.

Each settlement is graded in three tiers: internal consistency of the recorded
lines, hourly energy against the raw metering observations, and recomputed
monetary amounts (spot, margin, addons, subscriptions). Settlements without
observation coverage are skipped, not failed.

The exit code reflects whether the audit RAN, not what it found: findings are
the output, so a run full of failed settlements still exits 0.

Examples:
  settleaudit audit --cache migration_cache.json --spot spot_prices.json
  settleaudit audit --index 17 --deep -v
  settleaudit audit --report out/provenance.html`,
	RunE: runAudit,
}

var (
	auditCachePath  string
	auditSpotPath   string
	auditConfigPath string
	auditIndex      int
	auditDeep       bool
	auditVerbose    bool
	auditWorkers    int
	auditReportPath string
)

func init() {
	rootCmd.AddCommand(auditCmd)

	auditCmd.Flags().StringVar(&auditCachePath, "cache", "migration_cache.json", "Migration cache file")
	auditCmd.Flags().StringVar(&auditSpotPath, "spot", "spot_prices.json", "Spot price cache file (optional)")
	auditCmd.Flags().StringVar(&auditConfigPath, "config", "configs/audit.yaml", "Audit configuration file")
	auditCmd.Flags().IntVar(&auditIndex, "index", -1, "Validate a single settlement by index")
	auditCmd.Flags().BoolVar(&auditDeep, "deep", false, "Per-hour rate analysis (requires --index)")
	auditCmd.Flags().BoolVarP(&auditVerbose, "verbose", "v", false, "Print per-finding detail lines")
	auditCmd.Flags().IntVar(&auditWorkers, "workers", 0, "Parallel validators (0 = from config)")
	auditCmd.Flags().StringVar(&auditReportPath, "report", "", "Also write the provenance HTML report here")
}

// auditEnv is everything a validation pass needs, loaded once and read-only
// from then on.
type auditEnv struct {
	cfg config.Config
	doc *cache.Document
	idx *index.Set
	v   *audit.Validator
}

func loadEnv(cachePath, spotPath, configPath string) (*auditEnv, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	doc, err := cache.Load(cachePath)
	if err != nil {
		return nil, err
	}

	spot, err := loadSpotOptional(spotPath)
	if err != nil {
		return nil, err
	}

	idx := index.Build(doc, spot)
	return &auditEnv{cfg: cfg, doc: doc, idx: idx, v: audit.New(idx, cfg)}, nil
}

// loadSpotOptional treats a missing spot cache as "no spot data": spot
// recomputation is then skipped for every settlement, but the other tiers
// still run. A present but unreadable cache is an error.
func loadSpotOptional(path string) (*cache.SpotDocument, error) {
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.Warn().Str("path", path).Msg("no spot cache, spot recomputation disabled")
		return nil, nil
	}
	return cache.LoadSpot(path)
}

func runAudit(_ *cobra.Command, _ []string) error {
	if auditDeep && auditIndex < 0 {
		return fmt.Errorf("--deep needs a settlement, pass --index")
	}

	env, err := loadEnv(auditCachePath, auditSpotPath, auditConfigPath)
	if err != nil {
		return err
	}
	runID := uuid.NewString()[:8]

	if auditIndex >= 0 {
		if auditIndex >= len(env.doc.Settlements) {
			return fmt.Errorf("index %d out of range, cache has %d settlements", auditIndex, len(env.doc.Settlements))
		}
		s := env.doc.Settlements[auditIndex]
		r := env.v.Validate(auditIndex, s)
		audit.PrintResult(os.Stdout, &r, true)
		if auditDeep {
			audit.DeepDump(os.Stdout, auditIndex, s, env.idx)
		}
		return nil
	}

	workers := auditWorkers
	if workers <= 0 {
		workers = env.cfg.Workers
	}

	results := env.v.Run(env.doc.Settlements, workers)
	for i := range results {
		audit.PrintResult(os.Stdout, &results[i], auditVerbose)
	}

	summary := audit.Summarize(runID, results)
	audit.PrintSummary(os.Stdout, summary)

	if auditReportPath != "" {
		if err := provenance.WriteFile(auditReportPath, provenance.Build(runID, env.doc)); err != nil {
			return err
		}
	}
	return nil
}
