package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dompeassist/internal/api"
	"dompeassist/internal/app"
	"dompeassist/internal/config"
	"dompeassist/internal/logger"
)

func main() {
	cfg, err := config.Load(os.Getenv("DOMPEASSIST_CONFIG"))
	if err != nil {
		logger.L().Fatal("load config", zap.Error(err))
	}
	if err := logger.Init(cfg.BasicConfig.Debug); err != nil {
		logger.L().Fatal("init logger", zap.Error(err))
	}
	defer logger.Sync()

	if cfg.BasicConfig.Production || !cfg.BasicConfig.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		logger.L().Fatal("init application", zap.Error(err))
	}
	defer application.Close()

	opts := api.RouterOptions{AllowedOrigins: cfg.BasicConfig.AllowedOrigins}
	if cfg.BasicConfig.Production {
		opts.StaticDir = cfg.BasicConfig.StaticDir
	}
	router := api.NewRouter(api.NewHandler(application.Pipeline, application.Limiter), opts)

	addr := cfg.BasicConfig.ServerAddress
	if addr == "" {
		addr = ":5001"
	}
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.L().Info("server listening", zap.String("addr", addr), zap.Bool("production", cfg.BasicConfig.Production))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L().Fatal("server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.L().Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.L().Error("graceful shutdown failed", zap.Error(err))
	}
}
