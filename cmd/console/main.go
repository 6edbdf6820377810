package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"traindeck/internal/app"
	"traindeck/internal/assignment"
	"traindeck/internal/catalog"
	"traindeck/internal/config"
	"traindeck/internal/state"
)

func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		logger.Fatal("data dir unavailable", zap.String("dir", cfg.DataDir), zap.Error(err))
	}

	cat := catalog.New(cfg.DataDir, logger)
	if err := cat.Load(); err != nil {
		logger.Fatal("catalog load failed", zap.Error(err))
	}
	go func() {
		if err := cat.Watch(ctx); err != nil {
			logger.Warn("catalog watch stopped", zap.Error(err))
		}
	}()

	var states state.Store
	if strings.TrimSpace(cfg.RedisURL) != "" {
		logger.Info("using redis state store")
		redisStore, err := state.NewRedisStore(cfg.RedisURL)
		if err != nil {
			logger.Fatal("redis connection failed", zap.Error(err))
		}
		states = redisStore
	} else {
		logger.Info("using file state store", zap.String("path", cfg.StateFile))
		if err := os.MkdirAll(filepath.Dir(cfg.StateFile), 0o755); err != nil {
			logger.Fatal("state dir unavailable", zap.Error(err))
		}
		fileStore, err := state.OpenFileStore(cfg.StateFile)
		if err != nil {
			logger.Fatal("state file open failed", zap.Error(err))
		}
		states = fileStore
	}
	defer states.Close()

	remote := assignment.NewClient(cfg.RemoteEndpoint, cfg.RequestTimeout)
	service := app.NewService(cfg, cat, states, remote, logger)
	httpServer := app.NewHTTPServer(service, logger)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("console listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
}
