// Package config loads auditor configuration from YAML. The addon product
// set lives here rather than in code so that new addon categories need a
// config edit, not a logic change.
package config

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Config is the audit configuration document.
type Config struct {
	// AddonProducts names the products treated as addons rather than primary
	// pricing plans when classifying a settlement period.
	AddonProducts []string   `yaml:"addon_products"`
	Workers       int        `yaml:"workers"`
	Tolerances    Tolerances `yaml:"tolerances"`
}

// Tolerances are the explicit numeric comparison thresholds. Comparisons are
// never exact: rounding and legitimate prorating variance must be absorbed.
type Tolerances struct {
	Consistency       float64 `yaml:"consistency"`        // |line - Σhourly| above this fails tier 1
	Observation       float64 `yaml:"observation"`        // |detail - obs| at or above this mismatches
	MaxObsMismatches  int     `yaml:"max_obs_mismatches"` // tolerated mismatches (DST allowance)
	Margin            float64 `yaml:"margin"`             // |Δ| above this flags margin
	Addon             float64 `yaml:"addon"`              // |Δ| strictly above this flags an addon
	SubscriptionRatio float64 `yaml:"subscription_ratio"` // relative slack on monthly / prorated amounts
}

// Default returns the thresholds the legacy comparison tool used.
func Default() Config {
	return Config{
		Workers: 4,
		Tolerances: Tolerances{
			Consistency:       0.01,
			Observation:       0.005,
			MaxObsMismatches:  2,
			Margin:            1.0,
			Addon:             0.50,
			SubscriptionRatio: 0.15,
		},
	}
}

// Load reads configuration from path. A missing file yields defaults; a
// present but malformed file is an error.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		log.Debug().Str("path", path).Msg("no config file, using defaults")
		return Default(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}

	log.Debug().Str("path", path).Int("addon_products", len(cfg.AddonProducts)).Msg("config loaded")
	return cfg, nil
}

// AddonSet returns the addon product names as a membership set.
func (c Config) AddonSet() map[string]bool {
	set := make(map[string]bool, len(c.AddonProducts))
	for _, name := range c.AddonProducts {
		set[name] = true
	}
	return set
}
