package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aretw0/ternlab/internal/config"
	"github.com/aretw0/ternlab/internal/logging"
	"github.com/aretw0/ternlab/pkg/adapters/file"
	"github.com/aretw0/ternlab/pkg/adapters/memory"
	"github.com/aretw0/ternlab/pkg/adapters/redis"
	"github.com/aretw0/ternlab/pkg/adapters/sqlite"
	"github.com/aretw0/ternlab/pkg/ports"
	"github.com/spf13/cobra"
)

// loadConfig reads the configuration named by --config and applies --log-level.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		if _, err := logging.ParseLevel(lvl); err != nil {
			return nil, err
		}
		cfg.Log.Level = lvl
	}
	return cfg, nil
}

// newLogger builds the application logger. Logs always go to stderr so stdout
// stays free for command output and the MCP stdio transport.
func newLogger(cfg *config.Config) *slog.Logger {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	return logging.New(level, cfg.Log.Format)
}

// openStore opens the configured snapshot backend. The returned close function is never nil.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (ports.SnapshotStore, func() error, error) {
	noop := func() error { return nil }
	sc := cfg.Store

	switch sc.Backend {
	case config.BackendMemory:
		return memory.NewStore(), noop, nil

	case config.BackendFile:
		logger.Debug("using file snapshot store", "dir", sc.FileDir)
		return file.New(sc.FileDir), noop, nil

	case config.BackendRedis:
		opts := []redis.Option{redis.WithPrefix(sc.RedisPrefix)}
		if sc.RedisTTL > 0 {
			opts = append(opts, redis.WithTTL(sc.RedisTTL))
		}
		store := redis.New(sc.RedisAddr, sc.RedisPassword, sc.RedisDB, opts...)
		if err := store.Ping(ctx); err != nil {
			store.Close()
			return nil, noop, fmt.Errorf("connecting to redis at %s: %w", sc.RedisAddr, err)
		}
		logger.Debug("using redis snapshot store", "addr", sc.RedisAddr, "prefix", sc.RedisPrefix)
		return store, store.Close, nil

	case config.BackendSQLite:
		if dir := filepath.Dir(sc.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, noop, fmt.Errorf("creating sqlite directory: %w", err)
			}
		}
		store, err := sqlite.Open(sc.SQLitePath)
		if err != nil {
			return nil, noop, err
		}
		logger.Debug("using sqlite snapshot store", "path", sc.SQLitePath)
		return store, store.Close, nil
	}
	return nil, noop, fmt.Errorf("unknown store backend %q", sc.Backend)
}
