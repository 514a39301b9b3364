// Package main runs the PrintDrop HTTP API.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dharsanguruparan/PrintDrop/internal/app"
	"github.com/dharsanguruparan/PrintDrop/internal/config"
	"github.com/dharsanguruparan/PrintDrop/internal/intake"
	"github.com/dharsanguruparan/PrintDrop/internal/observability"
	"github.com/dharsanguruparan/PrintDrop/internal/orders"
	"github.com/dharsanguruparan/PrintDrop/internal/pages"
	"github.com/dharsanguruparan/PrintDrop/internal/processing"
	"github.com/dharsanguruparan/PrintDrop/internal/queue"
	"github.com/dharsanguruparan/PrintDrop/internal/server"
	"github.com/dharsanguruparan/PrintDrop/internal/session"
	"github.com/dharsanguruparan/PrintDrop/internal/signing"
	"github.com/dharsanguruparan/PrintDrop/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger, err := observability.InitLogger(cfg.LogDev)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	if cfg.EphemeralSecret {
		logger.Warn("PRINTDROP_SIGNING_SECRET is unset; using a random per-process secret",
			zap.Bool("shared_sessions", cfg.RedisAddr != ""))
	}
	backends, err := app.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer backends.Close()

	sessions, closeSessions, err := app.SessionStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSessions()
	auth, err := session.NewAuthenticator(cfg.AdminPassword, sessions, cfg.SessionTTL)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	var dispatcher orders.Dispatcher
	if cfg.RedisAddr != "" {
		client := asynq.NewClient(app.RedisOpt(cfg))
		defer client.Close()
		dispatcher = queue.NewDispatcher(client)
		logger.Info("order jobs", zap.String("dispatcher", "asynq"))
	} else {
		pool := processing.New(worker.NewProcessor(backends.Orders, backends.Files, logger), cfg.ProcessingPool, logger)
		g.Go(func() error { return pool.Run(gctx) })
		dispatcher = pool
		logger.Info("order jobs", zap.String("dispatcher", "in-process"), zap.Int("workers", cfg.ProcessingPool))
	}

	mode := pages.ParseCountMode(cfg.PageCounting)
	svc := orders.NewService(backends.Orders, backends.Files, dispatcher, mode, logger)
	uploader := intake.NewUploader(backends.Files, cfg.MaxFileSize, cfg.AllowedTypes, logger)
	srv := server.New(cfg, backends.Files, uploader, svc, auth, signing.NewSigner(cfg.SigningSecret), logger)

	g.Go(func() error { return srv.Run(gctx) })
	return g.Wait()
}
