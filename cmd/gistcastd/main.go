package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"gistcast/internal/config"
	"gistcast/internal/daemon"
	"gistcast/internal/logging"
	"gistcast/internal/preflight"
	"gistcast/internal/queue"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	logger, err := logging.NewForDir(cfg.Paths.LogDir, cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	checks := preflight.RunAll(ctx, cfg)
	for _, check := range checks {
		if check.Passed {
			logger.Debug("preflight check passed",
				slog.String("check", check.Name),
				slog.String("detail", check.Detail))
			continue
		}
		logger.Error("preflight check failed",
			slog.String("check", check.Name),
			slog.String("detail", check.Detail))
	}
	if !preflight.Passed(checks) {
		logger.Error("preflight failed, refusing to start")
		os.Exit(1)
	}

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		os.Exit(1)
	}

	d, err := daemon.New(cfg, store, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		_ = store.Close()
		os.Exit(1)
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("start daemon", logging.Error(err))
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("gistcastd shutting down")
	d.Stop()
}
