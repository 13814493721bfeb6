package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/iudanet/rentsync/internal/client/api"
	"github.com/iudanet/rentsync/internal/client/auth"
	"github.com/iudanet/rentsync/internal/client/cli"
	"github.com/iudanet/rentsync/internal/client/config"
	"github.com/iudanet/rentsync/internal/client/connectivity"
	"github.com/iudanet/rentsync/internal/client/events"
	"github.com/iudanet/rentsync/internal/client/iocli"
	"github.com/iudanet/rentsync/internal/client/queue"
	"github.com/iudanet/rentsync/internal/client/shop"
	"github.com/iudanet/rentsync/internal/client/storage"
	"github.com/iudanet/rentsync/internal/client/storage/boltdb"
	"github.com/iudanet/rentsync/internal/client/sync"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := config.LoadEnvFile(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	cfg, err := config.Parse(os.Args[1:], os.Getenv, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	if cfg.ShowVersion {
		printVersion()
		return 0
	}

	logger := cfg.Logger(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.DBPath == config.DefaultDBPath() {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o700); err != nil {
			logger.Warn("Failed to create data directory", "path", filepath.Dir(cfg.DBPath), "error", err)
		}
	}

	// Открываем локальное хранилище; при ошибке работаем в памяти
	store, degraded := boltdb.OpenWithFallback(ctx, cfg.DBPath, logger)
	if store == nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", degraded)
		if errors.Is(degraded, storage.ErrStorageLocked) {
			fmt.Fprintln(os.Stderr, "Another rentsync process (for example `rentsync watch`) is using it.")
		}
		return 1
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close database", "error", err)
		}
	}()

	cache := auth.NewCache(store, nil)
	apiClient := api.NewClient(cfg.ServerURL).WithTokenSource(cache)

	q := queue.NewManager(store, queue.WithLogger(logger))
	engine, err := sync.New(q, apiClient, events.NewBus(logger), logger, sync.Options{
		Policy:    cfg.Policy,
		Timeout:   cfg.Timeout,
		Interval:  cfg.SyncInterval,
		Retention: cfg.Retention,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	monitor := connectivity.NewMonitor(apiClient, cfg.ProbeInterval, cfg.Timeout, logger)

	c := cli.New(iocli.NewStdio(), cli.Deps{
		Auth:     auth.NewService(apiClient, cache, logger),
		Shop:     shop.NewService(q),
		Queue:    q,
		Engine:   engine,
		Monitor:  monitor,
		Logger:   logger,
		Degraded: degraded,
		Password: cfg.Password,
	})

	if err := c.Run(ctx, cfg.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, cli.ErrUsage) || errors.Is(err, cli.ErrUnknownCommand) {
			return 2
		}
		return 1
	}
	return 0
}

func printVersion() {
	fmt.Printf("rentsync client\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
