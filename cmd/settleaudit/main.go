// settleaudit is a read-only auditor for migrated energy billing settlements.
// It re-derives spot cost, margin, addon and subscription amounts from raw
// consumption observations and market prices, and grades each migrated
// settlement against its recorded figures without ever writing to the billing
// system.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

const (
	appName = "settleaudit"
	version = "v1.2.0"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:     appName,
	Short:   "Audit migrated billing settlements against raw market and metering data",
	Version: version,
	Long: `settleaudit grades settlements migrated from the legacy billing system.

For every settlement it checks, in order:
  1. internal consistency (line totals vs their hourly breakdowns)
  2. hourly energy against the raw metering observations
  3. recomputed spot cost, margin, addon and subscription amounts

The tool is strictly read-only: findings are reported, never fixed.`,
	PersistentPreRunE: setupLogging,
}

func setupLogging(_ *cobra.Command, _ []string) error {
	zerolog.TimeFieldFormat = time.RFC3339
	if term.IsTerminal(int(os.Stderr.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}

	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", logLevel, err)
	}
	zerolog.SetGlobalLevel(level)
	return nil
}

func main() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug|info|warn|error)")

	// The legacy tooling spelled flags with underscores; accept both.
	rootCmd.SetGlobalNormalizationFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
