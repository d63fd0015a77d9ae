package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"assetboard/internal/backend"
	"assetboard/internal/cli"
	apphttp "assetboard/internal/http"
	applog "assetboard/internal/log"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(applog.ComponentApp, applog.DefaultConfig().Level)
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(applog.ComponentApp, cfg.Level())

	beConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}

	result, err := backend.NewFactory(logger.Logger).CreateBackend(context.Background(), beConfig)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err, "backend", beConfig.Type)
		os.Exit(1)
	}

	opts := apphttp.Options{
		Logger:          logger,
		USDFallbackRate: cfg.USDRate(),
	}
	if cached, ok := result.Backend.(*backend.Cached); ok {
		opts.Caches = cached.Caches()
	}
	srv := apphttp.NewServer(":"+cfg.Port, result.Backend, opts)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup error", applog.FieldError, err)
			}
		}
	})

	logger.Info("Starting assetboard server", "port", cfg.Port, "backend", beConfig.Type)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
