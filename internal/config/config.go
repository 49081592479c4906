// Package config loads ternlab configuration from defaults, an optional YAML file
// and TERNLAB_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/ternlab/internal/logging"
	"github.com/aretw0/ternlab/pkg/domain"
	"github.com/aretw0/ternlab/pkg/lab"
	"gopkg.in/yaml.v3"
)

// DefaultFile is loaded when present and no explicit path is given.
const DefaultFile = "ternlab.yaml"

// Store backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// Config is the complete ternlab configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Lab    LabConfig    `yaml:"lab"`
	Store  StoreConfig  `yaml:"store"`
	Log    LogConfig    `yaml:"log"`

	// Experiments replaces the built-in presets when non-empty.
	Experiments []lab.Experiment `yaml:"experiments"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr        string   `yaml:"addr"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// LabConfig configures the grid service.
type LabConfig struct {
	Size          int `yaml:"size"`
	PosThreshold  int `yaml:"pos_threshold"`
	NegThreshold  int `yaml:"neg_threshold"`
	MaxSize       int `yaml:"max_size"`
	HistoryWindow int `yaml:"history_window"`
	Workers       int `yaml:"workers"`
}

// StoreConfig selects and configures the snapshot store.
type StoreConfig struct {
	Backend string `yaml:"backend"`

	FileDir string `yaml:"file_dir"`

	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	RedisPrefix   string        `yaml:"redis_prefix"`
	RedisTTL      time.Duration `yaml:"redis_ttl"`

	SQLitePath string `yaml:"sqlite_path"`
}

// LogConfig configures the application logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:        ":8000",
			CORSOrigins: []string{"*"},
		},
		Lab: LabConfig{
			Size:          lab.DefaultSize,
			PosThreshold:  domain.DefaultThresholds.Pos,
			NegThreshold:  domain.DefaultThresholds.Neg,
			HistoryWindow: lab.DefaultHistoryWindow,
		},
		Store: StoreConfig{
			Backend:     BackendMemory,
			FileDir:     ".ternlab/snapshots",
			RedisAddr:   "localhost:6379",
			RedisPrefix: "ternlab:snapshot:",
			SQLitePath:  ".ternlab/snapshots.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration.
// Order: defaults -> path (or ./ternlab.yaml when path is empty and the file exists) -> environment variables.
func Load(path string) (*Config, error) {
	config := Default()

	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}
	if path != "" {
		fileConfig, err := LoadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
		config = fileConfig
	}

	if err := applyEnvOverrides(config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file on top of the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	config.Store.RedisPassword = expandEnvVars(config.Store.RedisPassword)
	return config, nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr must not be empty"))
	}
	if err := domain.CheckSize(c.Lab.Size); err != nil {
		errs = append(errs, fmt.Errorf("lab.size: %w", err))
	}
	if c.Lab.MaxSize < 0 {
		errs = append(errs, fmt.Errorf("lab.max_size must be non-negative, got %d", c.Lab.MaxSize))
	}
	if c.Lab.MaxSize > 0 && c.Lab.Size > c.Lab.MaxSize {
		errs = append(errs, fmt.Errorf("lab.size %d exceeds lab.max_size %d", c.Lab.Size, c.Lab.MaxSize))
	}
	if c.Lab.HistoryWindow < 0 {
		errs = append(errs, fmt.Errorf("lab.history_window must be non-negative, got %d", c.Lab.HistoryWindow))
	}
	if c.Lab.Workers < 0 {
		errs = append(errs, fmt.Errorf("lab.workers must be non-negative, got %d", c.Lab.Workers))
	}
	if err := c.Thresholds().Validate(); err != nil {
		errs = append(errs, err)
	}

	switch c.Store.Backend {
	case BackendMemory:
	case BackendFile:
		if c.Store.FileDir == "" {
			errs = append(errs, errors.New("store.file_dir is required for the file backend"))
		}
	case BackendRedis:
		if c.Store.RedisAddr == "" {
			errs = append(errs, errors.New("store.redis_addr is required for the redis backend"))
		}
		if c.Store.RedisTTL < 0 {
			errs = append(errs, fmt.Errorf("store.redis_ttl must be non-negative, got %v", c.Store.RedisTTL))
		}
	case BackendSQLite:
		if c.Store.SQLitePath == "" {
			errs = append(errs, errors.New("store.sqlite_path is required for the sqlite backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid store backend: %s (valid: memory, file, redis, sqlite)", c.Store.Backend))
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if f := strings.ToLower(c.Log.Format); f != "text" && f != "json" {
		errs = append(errs, fmt.Errorf("invalid log format: %s (valid: text, json)", c.Log.Format))
	}

	seen := make(map[string]bool, len(c.Experiments))
	for _, e := range c.Experiments {
		if err := e.Validate(); err != nil {
			errs = append(errs, err)
		}
		if seen[e.Name] {
			errs = append(errs, fmt.Errorf("duplicate experiment %q", e.Name))
		}
		seen[e.Name] = true
	}

	return errors.Join(errs...)
}

// Thresholds returns the configured default thresholds.
func (c *Config) Thresholds() domain.Thresholds {
	return domain.Thresholds{Pos: c.Lab.PosThreshold, Neg: c.Lab.NegThreshold}
}

// LabOptions translates the lab section into lab options.
func (c *Config) LabOptions() []lab.Option {
	opts := []lab.Option{
		lab.WithSize(c.Lab.Size),
		lab.WithThresholds(c.Thresholds()),
		lab.WithMaxSize(c.Lab.MaxSize),
		lab.WithHistoryWindow(c.Lab.HistoryWindow),
		lab.WithWorkers(c.Lab.Workers),
	}
	if len(c.Experiments) > 0 {
		opts = append(opts, lab.WithExperiments(c.Experiments))
	}
	return opts
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(config *Config) error {
	if v := os.Getenv("TERNLAB_ADDR"); v != "" {
		config.Server.Addr = v
	}
	if v := os.Getenv("TERNLAB_CORS_ORIGINS"); v != "" {
		config.Server.CORSOrigins = splitList(v)
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"TERNLAB_SIZE", &config.Lab.Size},
		{"TERNLAB_MAX_SIZE", &config.Lab.MaxSize},
		{"TERNLAB_POS_THRESHOLD", &config.Lab.PosThreshold},
		{"TERNLAB_NEG_THRESHOLD", &config.Lab.NegThreshold},
		{"TERNLAB_HISTORY_WINDOW", &config.Lab.HistoryWindow},
		{"TERNLAB_REDIS_DB", &config.Store.RedisDB},
	}
	for _, e := range ints {
		v := os.Getenv(e.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %q is not an integer", e.key, v)
		}
		*e.dst = n
	}

	if v := os.Getenv("TERNLAB_STORE"); v != "" {
		config.Store.Backend = v
	}
	if v := os.Getenv("TERNLAB_FILE_DIR"); v != "" {
		config.Store.FileDir = v
	}
	if v := os.Getenv("TERNLAB_REDIS_ADDR"); v != "" {
		config.Store.RedisAddr = v
	}
	if v := os.Getenv("TERNLAB_REDIS_PASSWORD"); v != "" {
		config.Store.RedisPassword = v
	}
	if v := os.Getenv("TERNLAB_REDIS_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("TERNLAB_REDIS_TTL: %w", err)
		}
		config.Store.RedisTTL = d
	}
	if v := os.Getenv("TERNLAB_SQLITE_PATH"); v != "" {
		config.Store.SQLitePath = v
	}
	if v := os.Getenv("TERNLAB_LOG_LEVEL"); v != "" {
		config.Log.Level = v
	}
	if v := os.Getenv("TERNLAB_LOG_FORMAT"); v != "" {
		config.Log.Format = v
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
