package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Service  ServiceConfig  `koanf:"service"`
	Discover DiscoverConfig `koanf:"discover"`
	Ingest   IngestConfig   `koanf:"ingest"`
}

type ServiceConfig struct {
	InstanceID             string `koanf:"instance_id"`
	HTTPListen             string `koanf:"http_listen"`
	LogLevel               string `koanf:"log_level"`
	ShutdownTimeoutSeconds int    `koanf:"shutdown_timeout_seconds"`
}

// DiscoverConfig controls where RouteViews and RIPE RIS RIB dumps are
// fetched from. Collector names are split into two slices rather than
// one []Collector because koanf's env overlay can only split a single
// delimited string per key.
type DiscoverConfig struct {
	RouteViewsCollectors []string `koanf:"route_views_collectors"`
	RISCollectors        []string `koanf:"ris_collectors"`
}

type IngestConfig struct {
	Threads        int `koanf:"threads"`
	MergeBatchHint int `koanf:"merge_batch_hint"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: loading file %s: %w", path, err)
		}
	}

	// Overlay environment variables: ASPATH_MINER_DISCOVER__RIS_COLLECTORS → discover.ris_collectors
	if err := k.Load(env.Provider("ASPATH_MINER_", ".", func(s string) string {
		s = strings.TrimPrefix(s, "ASPATH_MINER_")
		s = strings.ToLower(s)
		s = strings.ReplaceAll(s, "__", ".")
		return s
	}), nil); err != nil {
		return nil, fmt.Errorf("config: loading env: %w", err)
	}

	cfg := &Config{
		Service: ServiceConfig{
			InstanceID:             "aspath-miner-1",
			HTTPListen:             ":8080",
			LogLevel:               "info",
			ShutdownTimeoutSeconds: 30,
		},
		Discover: DiscoverConfig{
			RouteViewsCollectors: []string{"route-views2", "route-views.linx"},
			RISCollectors:        []string{"rrc00", "rrc01"},
		},
		Ingest: IngestConfig{
			Threads:        4,
			MergeBatchHint: 2,
		},
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshaling: %w", err)
	}

	// Split comma-separated env strings for slice fields.
	if len(cfg.Discover.RouteViewsCollectors) == 1 && strings.Contains(cfg.Discover.RouteViewsCollectors[0], ",") {
		cfg.Discover.RouteViewsCollectors = strings.Split(cfg.Discover.RouteViewsCollectors[0], ",")
	}
	if len(cfg.Discover.RISCollectors) == 1 && strings.Contains(cfg.Discover.RISCollectors[0], ",") {
		cfg.Discover.RISCollectors = strings.Split(cfg.Discover.RISCollectors[0], ",")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Service.ShutdownTimeoutSeconds <= 0 {
		return fmt.Errorf("config: service.shutdown_timeout_seconds must be > 0 (got %d)", c.Service.ShutdownTimeoutSeconds)
	}
	if c.Ingest.Threads <= 0 {
		return fmt.Errorf("config: ingest.threads must be > 0 (got %d)", c.Ingest.Threads)
	}
	if c.Ingest.MergeBatchHint <= 0 {
		return fmt.Errorf("config: ingest.merge_batch_hint must be > 0 (got %d)", c.Ingest.MergeBatchHint)
	}
	if len(c.Discover.RouteViewsCollectors) == 0 && len(c.Discover.RISCollectors) == 0 {
		return fmt.Errorf("config: discover must list at least one collector")
	}
	return nil
}
