package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/focusync/internal/shared"
)

// drainTimeout bounds how long exit waits for in-flight remote mutations.
const drainTimeout = 10 * time.Second

func main() {
	logger := shared.NewLogger(nil)

	path := os.Getenv(shared.EnvPrefix + "_CONFIG")
	if path == "" {
		path = "config.toml"
	}

	config := shared.DefaultConfig()
	if _, err := os.Stat(path); err == nil {
		if loadedConfig, err := shared.LoadConfig(path); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("failed to load config, using defaults", "path", path, "error", err)
		}
	} else if err := shared.ApplyEnv(config); err != nil {
		logger.Fatalf("invalid environment: %v", err)
	}
	shared.SetLogLevel(logger, shared.ParseLogLevel(config.Log.Level))

	runner := NewRunner(RunnerOpts{
		Config: config,
		Logger: logger,
	})

	app := &cli.Command{
		Name:     "focusync",
		Usage:    "Quotes, tasks and a focus timer that stay in sync across devices",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := app.Run(ctx, os.Args)
	stop()

	drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	if cerr := runner.Close(drainCtx); cerr != nil {
		logger.Warn("shutdown incomplete", "error", cerr)
	}
	cancel()

	if err != nil {
		if errors.Is(err, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		}
		logger.Fatalf("application error: %v", err)
	}
}
