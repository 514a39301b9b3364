// Package main runs the asynq consumer for submitted-order jobs.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/dharsanguruparan/PrintDrop/internal/app"
	"github.com/dharsanguruparan/PrintDrop/internal/config"
	"github.com/dharsanguruparan/PrintDrop/internal/observability"
	"github.com/dharsanguruparan/PrintDrop/internal/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.RedisAddr == "" {
		log.Fatalf("PRINTDROP_REDIS_ADDR is required for the worker")
	}
	logger, err := observability.InitLogger(cfg.LogDev)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	backends, err := app.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("open backends", zap.Error(err))
	}
	defer backends.Close()

	server := asynq.NewServer(app.RedisOpt(cfg), asynq.Config{
		Concurrency: cfg.ProcessingPool,
		Logger:      logger.Sugar(),
	})
	processor := worker.NewProcessor(backends.Orders, backends.Files, logger)
	mux := processor.Handler()

	go func() {
		<-ctx.Done()
		server.Shutdown()
	}()

	logger.Info("worker started", zap.Int("concurrency", cfg.ProcessingPool))
	if err := server.Run(mux); err != nil {
		logger.Error("worker stopped", zap.Error(err))
		os.Exit(1)
	}
}
