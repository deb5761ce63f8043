package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bookline-labs/bookline/internal/clock"
	corecfg "github.com/bookline-labs/bookline/internal/core/config"
	"github.com/bookline-labs/bookline/internal/core/storage"
	"github.com/bookline-labs/bookline/internal/core/storage/memory"
	"github.com/bookline-labs/bookline/internal/core/storage/postgres"
	"github.com/bookline-labs/bookline/internal/ledger"
	"github.com/bookline-labs/bookline/internal/migrations"
	"github.com/bookline-labs/bookline/internal/notify"
	"github.com/bookline-labs/bookline/internal/payout"
	"github.com/bookline-labs/bookline/internal/server"
)

func main() {
	configPath := flag.String("config", "bookline.yaml", "Path to configuration file")
	flag.Parse()

	// 0. Initialize Logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 1. Load Configuration
	cfg, err := corecfg.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	slog.Info("Loaded config", "config", cfg)

	// 2. Initialize Storage
	var (
		store storage.LedgerStore
		db    *sql.DB
	)
	switch cfg.Database.Type {
	case "postgres":
		adapter, err := postgres.NewAdapter(
			cfg.Database.DSN,
			cfg.Database.MaxOpenConns,
			cfg.Database.MaxIdleConns,
		)
		if err != nil {
			slog.Error("Failed to initialize database", "error", err)
			os.Exit(1)
		}
		defer adapter.Close()

		if err := migrations.RunMigrations(adapter.DB(), cfg.Database.AutoMigrate); err != nil {
			slog.Error("Failed to run database migrations", "error", err)
			os.Exit(1)
		}
		store = adapter
		db = adapter.DB()
	case "memory":
		slog.Warn("Using in-memory store; ledger state will not survive a restart")
		store = memory.NewStore()
	default:
		slog.Error("Unsupported database type", "type", cfg.Database.Type)
		os.Exit(1)
	}

	// 3. Initialize Notifications
	var publisher notify.Publisher
	if cfg.Notify.URL != "" {
		natsPub, err := notify.NewNATSPublisher(cfg.Notify.URL)
		if err != nil {
			slog.Error("Failed to connect to NATS", "url", cfg.Notify.URL, "error", err)
			os.Exit(1)
		}
		publisher = natsPub
		slog.Info("NATS notifications enabled", "url", cfg.Notify.URL)
	} else {
		publisher = &notify.NoopPublisher{}
		slog.Info("Notifications disabled (no notify.url configured)")
	}
	defer publisher.Close()

	// 4. Initialize Ledger Service
	svc := ledger.NewService(store, payout.NewLogGateway(), publisher, clock.NewSystem())

	// 5. Initialize Server
	srv := server.New(fmtAddr(cfg.Server.Host, cfg.Server.Port), db, cfg.Server.Mode)
	svc.RegisterRoutes(srv.Engine)

	// 6. Start Services
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Signal handler triggers the shutdown sequence below.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		slog.Info("Signal received, shutting down...")
		cancel()
	}()

	// HTTP server blocks until ctx is cancelled.
	if err := srv.Run(ctx); err != nil {
		slog.Error("Server stopped with error", "error", err)
	}

	slog.Info("Shutdown complete")
}

func fmtAddr(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}
