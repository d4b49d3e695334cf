package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/ChuLiYu/gridpath/internal/coordinator"
	"github.com/ChuLiYu/gridpath/internal/grid"
	"github.com/ChuLiYu/gridpath/internal/level"
	"gopkg.in/yaml.v3"
)

// Config represents the complete system configuration structure
// Maps config file fields through YAML tags
type Config struct {
	Level struct {
		File string `yaml:"file"`
	} `yaml:"level"`

	Coordinator struct {
		WorkerCount      int           `yaml:"worker_count"`
		QueueSize        int           `yaml:"queue_size"`
		DispatchInterval time.Duration `yaml:"dispatch_interval"`
		PollInterval     time.Duration `yaml:"poll_interval"`
		AllowVertical    *bool         `yaml:"allow_vertical"`
	} `yaml:"coordinator"`

	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`

	Metrics struct {
		Enabled bool `yaml:"enabled"`
		Port    int  `yaml:"port"`
	} `yaml:"metrics"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

const (
	defaultServerPort  = 50061
	defaultMetricsPort = 9090
	defaultLogLevel    = "info"
)

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// applyDefaults fills every unset field.
func (c *Config) applyDefaults() {
	def := coordinator.DefaultConfig()
	if c.Coordinator.WorkerCount <= 0 {
		c.Coordinator.WorkerCount = def.WorkerCount
	}
	if c.Coordinator.QueueSize <= 0 {
		c.Coordinator.QueueSize = def.QueueSize
	}
	if c.Coordinator.DispatchInterval <= 0 {
		c.Coordinator.DispatchInterval = def.DispatchInterval
	}
	if c.Coordinator.PollInterval <= 0 {
		c.Coordinator.PollInterval = def.PollInterval
	}
	if c.Coordinator.AllowVertical == nil {
		allow := def.AllowVertical
		c.Coordinator.AllowVertical = &allow
	}
	if c.Server.Port == 0 {
		c.Server.Port = defaultServerPort
	}
	if c.Metrics.Port == 0 {
		c.Metrics.Port = defaultMetricsPort
	}
	if c.Log.Level == "" {
		c.Log.Level = defaultLogLevel
	}
}

// coordinatorConfig maps the YAML section onto coordinator.Config.
func (c *Config) coordinatorConfig(autoDeliver bool) coordinator.Config {
	return coordinator.Config{
		WorkerCount:      c.Coordinator.WorkerCount,
		QueueSize:        c.Coordinator.QueueSize,
		DispatchInterval: c.Coordinator.DispatchInterval,
		PollInterval:     c.Coordinator.PollInterval,
		AllowVertical:    c.Coordinator.AllowVertical == nil || *c.Coordinator.AllowVertical,
		AutoDeliver:      autoDeliver,
	}
}

// loadLevel reads the configured level file, or the built-in default level
// when none is configured.
func (c *Config) loadLevel() (level.Layout, error) {
	if c.Level.File == "" {
		slog.Info("No level file configured, using default level")
		return level.DefaultLayout(), nil
	}
	return level.Load(c.Level.File)
}

func (c *Config) loadGrid() (*grid.Grid, error) {
	layout, err := c.loadLevel()
	if err != nil {
		return nil, fmt.Errorf("failed to load level: %w", err)
	}
	return layout.Build()
}

// setupLogging installs the process-wide slog handler.
func setupLogging(levelName string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(levelName))); err != nil {
		return fmt.Errorf("invalid log level %q: %w", levelName, err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
	return nil
}
