package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/edrees2022/log-and-ledger-sub006/internal/config"
	"github.com/edrees2022/log-and-ledger-sub006/internal/core"
	_ "github.com/edrees2022/log-and-ledger-sub006/internal/core/targets" // Register all import targets
	"github.com/edrees2022/log-and-ledger-sub006/internal/logging"
	"github.com/edrees2022/log-and-ledger-sub006/internal/sheet"
	"github.com/edrees2022/log-and-ledger-sub006/internal/store"
	"github.com/edrees2022/log-and-ledger-sub006/internal/web"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	st := store.New(pool, cfg.Import.CompanyID)
	if cfg.Database.AutoMigrate {
		if err := st.Migrate(ctx); err != nil {
			slog.Error("failed to apply schema", "error", err)
			os.Exit(1)
		}
	}

	service := core.NewService(sheet.NewParser(cfg.Import.MaxRows), st,
		core.WithRecorder(st),
		core.WithLimiter(core.NewImportLimiter(cfg.Import.MaxConcurrent, cfg.Import.MaxWaitTime)),
		core.WithImportTimeout(cfg.Import.Timeout),
	)
	slog.Info("import targets registered", "count", core.TargetCount())

	server := web.NewServer(service, st, cfg)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		service.StartJanitor(gctx, core.JanitorConfig{
			MaxIdle:       cfg.Import.SessionIdleTimeout,
			CheckInterval: cfg.Import.JanitorInterval,
		})
		return nil
	})

	g.Go(server.Start)

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Let running imports finish before the pool closes
		if status := service.LimiterStatus(); status.Active > 0 {
			slog.Info("waiting for imports to complete", "active", status.Active)
			if err := service.WaitForImports(shutdownCtx); err != nil {
				slog.Warn("imports did not complete in time", "error", err)
			} else {
				slog.Info("all imports completed")
			}
		}

		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
