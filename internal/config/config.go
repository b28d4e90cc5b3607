package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// HarvestDefaults are the job parameters used when a submission leaves them
// out.
type HarvestDefaults struct {
	SearchQuery  string  `yaml:"search_query"`
	Location     string  `yaml:"location"`
	Total        int     `yaml:"total"`
	GridRadiusKm float64 `yaml:"grid_radius_km"`
	ZoomLevel    int     `yaml:"zoom_level"`
}

// TuningConfig exposes the timing and sizing constants so runs stay testable
// against simulated clocks and smaller surfaces.
type TuningConfig struct {
	PerTileCap     int     `yaml:"per_tile_cap"`
	BatchCeiling   int     `yaml:"batch_ceiling"`
	SpacingKm      float64 `yaml:"spacing_km"`
	SettleDelayMS  int     `yaml:"settle_delay_ms"`
	ItemTimeoutSec int     `yaml:"item_timeout_sec"`
	StallThreshold int     `yaml:"stall_threshold"`
	TrimCorners    bool    `yaml:"trim_corners"`
}

type Config struct {
	ListenAddr string          `yaml:"listen_addr"`
	DBPath     string          `yaml:"db_path"`
	Lang       string          `yaml:"lang"`
	ProxyURL   string          `yaml:"proxy_url"`
	Defaults   HarvestDefaults `yaml:"defaults"`
	Tuning     TuningConfig    `yaml:"tuning"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		ListenAddr: ":5050",
		DBPath:     "gridminer.db",
		Lang:       "en",
		Defaults: HarvestDefaults{
			SearchQuery:  "restaurant",
			Location:     "Kathmandu",
			Total:        10,
			GridRadiusKm: 3,
			ZoomLevel:    15,
		},
		Tuning: TuningConfig{
			PerTileCap:     120,
			BatchCeiling:   500,
			SpacingKm:      2.0,
			SettleDelayMS:  2000,
			ItemTimeoutSec: 60,
			StallThreshold: 5,
			TrimCorners:    true,
		},
	}
}

// Load reads a YAML config file over the built-in defaults. A missing path
// returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

func (t TuningConfig) SettleDelay() time.Duration {
	return time.Duration(t.SettleDelayMS) * time.Millisecond
}

func (t TuningConfig) ItemTimeout() time.Duration {
	return time.Duration(t.ItemTimeoutSec) * time.Second
}
