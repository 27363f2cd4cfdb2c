package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gridscope/settleaudit/internal/cache"
	"github.com/gridscope/settleaudit/internal/spotapi"
)

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Upload cached spot prices to the billing API",
	Long: `Convert the cached spot prices from DKK/MWh to DKK/kWh and upload them to
the billing API in batches. The endpoint upserts, so a re-run after a partial
failure only re-sends what the failed batch and everything after it covered.

Example:
  settleaudit push --spot spot_prices.json --api-url https://billing.internal`,
	RunE: runPush,
}

var (
	pushSpotPath string
	pushAPIURL   string
	pushArea     string
)

func init() {
	rootCmd.AddCommand(pushCmd)

	pushCmd.Flags().StringVar(&pushSpotPath, "spot", "spot_prices.json", "Spot price cache file")
	pushCmd.Flags().StringVar(&pushAPIURL, "api-url", "", "Billing API base URL (required)")
	pushCmd.Flags().StringVar(&pushArea, "area", "", "Price area override (default: area recorded in the cache)")

	pushCmd.MarkFlagRequired("api-url")
}

func runPush(cmd *cobra.Command, _ []string) error {
	doc, err := cache.LoadSpot(pushSpotPath)
	if err != nil {
		return err
	}

	stats, err := spotapi.NewPusher(pushAPIURL).Push(cmd.Context(), doc, pushArea)
	if err != nil {
		return err
	}

	log.Info().
		Int("points", stats.Points).
		Int("skipped_null", stats.Skipped).
		Int("inserted", stats.Inserted).
		Int("updated", stats.Updated).
		Msg("spot prices pushed")
	return nil
}
