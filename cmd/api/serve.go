package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"taskmanager/configs"
	v1 "taskmanager/internal/api/v1"
	"taskmanager/internal/api/v1/handlers"
	"taskmanager/internal/config"
	"taskmanager/pkg/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := configs.LoadConfig()
		if err != nil {
			return err
		}

		if err := logger.InitLoggers(cfg.LogDir); err != nil {
			return err
		}
		defer logger.SyncLoggers()
		logger.SystemLogger.Info("Starting application",
			zap.String("time", time.Now().Format(time.RFC3339)),
			zap.String("env", cfg.Env),
			zap.String("store", cfg.StoreDriver),
		)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		deps, err := config.NewDependencies(ctx, cfg)
		if err != nil {
			logger.ErrorLogger.Error("Failed to initialise dependencies", zap.Error(err))
			return err
		}
		defer func() {
			if err := deps.Close(); err != nil {
				logger.ErrorLogger.Error("Failed to close store", zap.Error(err))
			}
		}()

		app := v1.NewApp(
			handlers.New(deps.Auth, deps.Tasks, cfg.StoreDriver),
			v1.Options{ClientURL: cfg.ClientURL, RateLimitMax: cfg.RateLimitMax},
		)

		errCh := make(chan error, 1)
		go func() {
			addr := fmt.Sprintf(":%d", cfg.Port)
			logger.SystemLogger.Info("Application ready", zap.String("addr", addr))
			errCh <- app.Listen(addr)
		}()

		select {
		case err := <-errCh:
			logger.ErrorLogger.Error("Application failed to start", zap.Error(err))
			return err
		case <-ctx.Done():
		}

		logger.SystemLogger.Info("Shutting down")
		if err := app.ShutdownWithTimeout(cfg.ShutdownTimeout); err != nil {
			logger.ErrorLogger.Error("Shutdown failed", zap.Error(err))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
