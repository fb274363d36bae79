package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/siftql/sift/internal/cache"
	"github.com/siftql/sift/internal/config"
	"github.com/siftql/sift/pkg/storage"
	"github.com/siftql/sift/pkg/web"
)

var serveAddr string

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides the config file)")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the query endpoints over HTTP",
	Long:  "Load the schema and data from the configured database and serve one query endpoint per entity",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := zap.NewProduction()
		if err != nil {
			return err
		}
		defer logger.Sync()

		cfg, store, err := loadStore(cmd.Context(), logger)
		if err != nil {
			return err
		}

		opts := []web.ServerOption{
			web.WithLogger(logger),
			web.WithSettings(cfg.Settings),
		}
		if cfg.Server.JWTKey != "" {
			opts = append(opts, web.WithJWTKey([]byte(cfg.Server.JWTKey)))
		}
		if cfg.Redis.Addr != "" {
			client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
			if err := client.Ping(cmd.Context()).Err(); err != nil {
				return fmt.Errorf("failed to reach redis at %s: %w", cfg.Redis.Addr, err)
			}
			opts = append(opts, web.WithCache(cache.New(client, cfg.Redis.TTL, logger)))
		}

		addr := cfg.Server.Addr
		if serveAddr != "" {
			addr = serveAddr
		}
		return web.NewServer(store, opts...).ListenAndServe(addr)
	},
}

// loadStore opens the configured database and materializes the store.
func loadStore(ctx context.Context, logger *zap.Logger) (*config.Config, *storage.Store, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	reg, err := cfg.BuildRegistry()
	if err != nil {
		return nil, nil, err
	}

	driver := cfg.Database.Driver
	switch driver {
	case "sqlite3", "pgx":
	case "postgres":
		driver = "pgx"
	default:
		return nil, nil, fmt.Errorf("unsupported database driver: %s", cfg.Database.Driver)
	}

	db, err := sql.Open(driver, cfg.Database.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	start := time.Now()
	store, err := storage.LoadSQL(ctx, db, reg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load store: %w", err)
	}
	logger.Info("store loaded",
		zap.Strings("entities", reg.List()),
		zap.Duration("duration", time.Since(start)))
	return cfg, store, nil
}
