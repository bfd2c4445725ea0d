package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Engine holds all configuration for the spatial engine host.
type Engine struct {
	LogLevel string `yaml:"log_level"`

	// TileSize is the pixel edge of a tile used for world-space projection.
	TileSize     float64       `yaml:"tile_size"`
	TickInterval time.Duration `yaml:"tick_interval"`

	Pathfinding PathfindingConfig `yaml:"pathfinding"`
	Raycast     RaycastConfig     `yaml:"raycast"`
	Store       StoreConfig       `yaml:"store"`
	Metrics     MetricsConfig     `yaml:"metrics"`

	// Optional content catalog and ASCII map loaded at startup.
	CatalogFile string `yaml:"catalog_file"`
	MapFile     string `yaml:"map_file"`
}

// PathfindingConfig sizes the pathfinder worker pool.
type PathfindingConfig struct {
	Workers        int           `yaml:"workers"`
	QueueSize      int           `yaml:"queue_size"`
	MaxExpansions  int           `yaml:"max_expansions"`
	DefaultTimeout time.Duration `yaml:"default_timeout"`
}

// RaycastConfig sizes the caster processing fan-out.
type RaycastConfig struct {
	Workers int `yaml:"workers"`
}

// StoreConfig locates the tile snapshot store.
type StoreConfig struct {
	Path     string `yaml:"path"`
	InMemory bool   `yaml:"in_memory"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// DefaultEngine returns Engine config with sensible defaults.
func DefaultEngine() Engine {
	return Engine{
		LogLevel:     "info",
		TileSize:     32,
		TickInterval: 50 * time.Millisecond,
		Pathfinding: PathfindingConfig{
			Workers:        4,
			QueueSize:      1024,
			MaxExpansions:  7000,
			DefaultTimeout: 100 * time.Millisecond,
		},
		Raycast: RaycastConfig{
			Workers: 4,
		},
		Store: StoreConfig{
			Path:     "data/tiles",
			InMemory: false,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Address: "127.0.0.1:9102",
		},
	}
}

// Validate reports every inconsistent setting.
func (c Engine) Validate() error {
	var errs []error
	if c.TileSize <= 0 {
		errs = append(errs, fmt.Errorf("tile_size must be positive, got %v", c.TileSize))
	}
	if c.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("tick_interval must be positive, got %v", c.TickInterval))
	}
	if c.Pathfinding.Workers <= 0 {
		errs = append(errs, fmt.Errorf("pathfinding.workers must be positive, got %d", c.Pathfinding.Workers))
	}
	if c.Pathfinding.QueueSize <= 0 {
		errs = append(errs, fmt.Errorf("pathfinding.queue_size must be positive, got %d", c.Pathfinding.QueueSize))
	}
	if c.Pathfinding.MaxExpansions < 0 {
		errs = append(errs, fmt.Errorf("pathfinding.max_expansions must not be negative, got %d", c.Pathfinding.MaxExpansions))
	}
	if c.Raycast.Workers <= 0 {
		errs = append(errs, fmt.Errorf("raycast.workers must be positive, got %d", c.Raycast.Workers))
	}
	if !c.Store.InMemory && c.Store.Path == "" {
		errs = append(errs, errors.New("store.path is required unless store.in_memory is set"))
	}
	if c.Metrics.Enabled && c.Metrics.Address == "" {
		errs = append(errs, errors.New("metrics.address is required when metrics are enabled"))
	}
	return errors.Join(errs...)
}

// LoadEngine loads engine config from a YAML file.
// If the file doesn't exist, returns defaults.
func LoadEngine(path string) (Engine, error) {
	cfg := DefaultEngine()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("validating config %s: %w", path, err)
	}

	return cfg, nil
}
