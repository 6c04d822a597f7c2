package hole

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Config carries the observation thresholds, the search constants, and the
// action catalog. Every value can be substituted without changing any other
// contract; the defaults match the standard wormhole mechanics.
type Config struct {
	// ShrinkThreshold is the remaining fraction at or below which the hole
	// shows "reduced" instead of untouched.
	ShrinkThreshold float64 `yaml:"shrink_threshold"`
	// CritThreshold is the remaining fraction at or below which the hole
	// shows "verge of collapse".
	CritThreshold float64 `yaml:"crit_threshold"`
	// UCBConstant is the exploration constant of the selection rule.
	UCBConstant float64 `yaml:"ucb_constant"`
	// MaxDepth caps the number of round trips a single playout simulates.
	MaxDepth int `yaml:"max_depth"`
	// TripDecay is the per-trip multiplier of the success score; it makes
	// the search prefer faster collapses among equally safe strategies.
	TripDecay float64 `yaml:"trip_decay"`
	// StrictActions enables the pruning action filter: an action must close
	// at least 1/MaxReasonableTrips of the worst-case remaining mass per
	// trip, unless no such action is also guaranteed safe.
	StrictActions      bool `yaml:"strict_actions"`
	MaxReasonableTrips int  `yaml:"max_reasonable_trips"`

	Catalog Catalog `yaml:"catalog"`
}

func DefaultConfig() *Config {
	return &Config{
		ShrinkThreshold:    0.50,
		CritThreshold:      0.10,
		UCBConstant:        math.Sqrt2,
		MaxDepth:           20,
		TripDecay:          0.95,
		StrictActions:      false,
		MaxReasonableTrips: 10,
		Catalog:            DefaultCatalog(),
	}
}

// Validate checks the config for values the planner cannot work with.
func (c *Config) Validate() error {
	if c.ShrinkThreshold <= 0 || c.ShrinkThreshold >= 1 ||
		c.CritThreshold <= 0 || c.CritThreshold >= c.ShrinkThreshold {
		return fmt.Errorf("thresholds must satisfy 0 < crit < shrink < 1, got crit=%v shrink=%v",
			c.CritThreshold, c.ShrinkThreshold)
	}
	if c.MaxDepth <= 0 {
		return fmt.Errorf("max_depth must be positive, got %d", c.MaxDepth)
	}
	if c.TripDecay <= 0 || c.TripDecay > 1 {
		return fmt.Errorf("trip_decay must be in (0, 1], got %v", c.TripDecay)
	}
	return c.Catalog.Validate()
}

// LoadConfig reads a YAML config file. Fields absent from the file keep
// their defaults; a catalog in the file replaces the default catalog whole.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses YAML config bytes over the defaults.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
