package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/evn/grubana/config"
	"github.com/evn/grubana/internal/app"
	"github.com/evn/grubana/internal/pkg/logger"
	"github.com/evn/grubana/internal/routes"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	zlog, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, zlog)
	if err != nil {
		zlog.Fatal("❌ startup failed", zap.Error(err))
	}
	defer a.Close()

	go a.Hub.Run(ctx)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.ServerPort),
		Handler:           routes.Setup(a),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zlog.Warn("⚠️ shutdown", zap.Error(err))
		}
	}()

	zlog.Info("🚀 Server starting",
		zap.String("addr", server.Addr),
		zap.String("backend", cfg.StorageBackend),
		zap.Duration("grace_period", cfg.GracePeriod),
		zap.Duration("max_session", cfg.MaxSession),
		zap.String("timezone", cfg.Location.String()),
	)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		zlog.Fatal("❌ server failed", zap.Error(err))
	}
	zlog.Info("server stopped")
}
