package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"gastos/internal/cache"
	"gastos/internal/cli"
	apphttp "gastos/internal/http"
	"gastos/internal/log"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig()

	res := cli.OpenBackend(context.Background(), logger, cfg)
	app, err := cli.NewApp(cfg, res)
	if err != nil {
		logger.Error("Failed to initialize services", log.FieldError, err)
		_ = res.Cleanup()
		os.Exit(1)
	}

	cacheManager := cache.NewManager(time.Minute)
	cacheManager.Register(app.Cache)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Auth:         app.Auth,
		Transactions: app.Transactions,
		Analysis:     app.Analysis,
		Store:        res.Store,
		Logger:       logger,
	}, apphttp.Options{
		CORSAllowedOrigins:   cfg.CORSAllowedOrigins,
		RateLimitPerMinute:   cfg.RateLimitPerMinute,
		AIRateLimitPerMinute: cfg.AIRateLimitPerMinute,
		TrustedProxies:       cfg.TrustedProxies,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		cacheManager.Stop()
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	})
	cacheManager.Start(ctx)

	logger.Info("Starting gastos server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"policy", cfg.InsightPolicy,
		"events", res.Events != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
