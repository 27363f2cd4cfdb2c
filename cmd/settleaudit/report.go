package main

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/gridscope/settleaudit/internal/cache"
	"github.com/gridscope/settleaudit/internal/provenance"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Write the settlement provenance report",
	Long: `Render the migration cache as a self-contained HTML page that traces every
settlement figure back to its source rows: selected rate rows, candidate
counts, selection rules, and the full hourly pricing detail.

Example:
  settleaudit report --cache migration_cache.json --out provenance.html`,
	RunE: runReport,
}

var (
	reportCachePath string
	reportOutPath   string
)

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVar(&reportCachePath, "cache", "migration_cache.json", "Migration cache file")
	reportCmd.Flags().StringVar(&reportOutPath, "out", "provenance.html", "Output HTML file")
}

func runReport(_ *cobra.Command, _ []string) error {
	doc, err := cache.Load(reportCachePath)
	if err != nil {
		return err
	}

	runID := uuid.NewString()[:8]
	return provenance.WriteFile(reportOutPath, provenance.Build(runID, doc))
}
