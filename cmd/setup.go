package main

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/focusync/internal/server"
	"github.com/desertthunder/focusync/internal/shared"
	"github.com/desertthunder/focusync/internal/storage"
)

// Setup creates the config file when missing, then initializes the local store and the backend database.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	var config *shared.Config
	if _, err := os.Stat(configPath); err == nil {
		if config, err = shared.LoadConfig(configPath); err != nil {
			r.logger.Warn("failed to load config, using defaults", "error", err)
			config = shared.DefaultConfig()
		}
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
			config = shared.DefaultConfig()
		} else {
			r.logger.Info("config file created", "path", configPath)
			if config, err = shared.LoadConfig(configPath); err != nil {
				r.logger.Warn("failed to load created config, using defaults", "error", err)
				config = shared.DefaultConfig()
			}
		}
	}

	r.logger.Info("initializing local store", "driver", config.Store.Driver)
	adapter, _, err := storage.Open(config.Store, r.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize local store: %w", err)
	}
	if err := adapter.Close(); err != nil {
		return fmt.Errorf("failed to close local store: %w", err)
	}

	db, err := r.openBackendDatabase(config.Server)
	if err != nil {
		return err
	}
	defer db.Close()

	r.logger.Infof("setup complete for database: %v", config.Server.Database)
	r.writePlain("✓ Config: %s\n", configPath)
	r.writePlain("✓ Local store: %s\n", storeLocation(config.Store))
	r.writePlain("✓ Backend database: %s\n", config.Server.Database)
	return nil
}

// Serve runs the reference backend until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openBackendDatabase(r.config.Server)
	if err != nil {
		return err
	}
	defer db.Close()

	addr := cmd.String("addr")
	if addr == "" {
		addr = net.JoinHostPort(r.config.Server.Host, strconv.Itoa(r.config.Server.Port))
	}
	if r.config.Server.Token == "" {
		r.logger.Warn("server token is empty, /api routes are unauthenticated")
	}

	return server.NewBackend(db, r.config.Server.Token, r.logger).ListenAndServe(ctx, addr)
}

func (r *Runner) openBackendDatabase(cfg shared.ServerConfig) (*sql.DB, error) {
	r.logger.Info("initializing database", "path", cfg.Database)

	db, err := shared.NewDatabase(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %w", err)
	}

	shared.ConfigureDatabase(db, cfg.MaxOpenConns, cfg.MaxIdleConns)

	r.logger.Info("running database migrations")
	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

func storeLocation(cfg shared.StoreConfig) string {
	switch cfg.Driver {
	case "file":
		return cfg.Dir
	case "memory":
		return "memory"
	default:
		return cfg.Path
	}
}
