// ABOUTME: This file is the admin HTTP server entry point
// ABOUTME: Wires config, token lifecycle, transport and handlers, with graceful shutdown
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cafe24-admin/config"
	"cafe24-admin/driver"
	"cafe24-admin/handler"
	"cafe24-admin/metrics"
	"cafe24-admin/repository"
	"cafe24-admin/service"
	"cafe24-admin/utils"
)

func main() {
	// Setup structured logging
	logLevel := os.Getenv("LOG_LEVEL")
	var level slog.Level
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger.Info("Cafe24 admin service starting",
		"service", cfg.ServiceName,
		"merchant_id", cfg.Cafe24.MerchantID,
		"api_version", cfg.Cafe24.APIVersion,
		"token_file", cfg.Token.FilePath)

	if err := run(cfg, logger); err != nil {
		logger.Error("Service terminated with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	repo := repository.NewFileTokenRepository(cfg.Token.FilePath, logger)
	oauthClient := driver.NewOAuth2Client(
		cfg.Cafe24.ClientID,
		cfg.Cafe24.ClientSecret,
		cfg.Cafe24.TokenEndpointURL(),
		cfg.Cafe24.RequestTimeout,
		logger,
	)

	collector := metrics.NewPrometheus()
	clock := service.SystemClock()

	tokens, err := service.NewTokenManager(service.TokenManagerConfig{
		Repository:    repo,
		OAuth2Client:  oauthClient,
		Clock:         clock,
		Logger:        logger,
		Metrics:       collector,
		RefreshMargin: cfg.Token.RefreshMargin,
		CheckInterval: cfg.Token.RefreshCheckInterval,
		Seed:          cfg.SeedRecord(clock.Now()),
	})
	if err != nil {
		return err
	}

	tokens.StartBackgroundRefresh()
	defer tokens.StopBackgroundRefresh()

	transport := service.NewAPIClient(service.APIClientConfig{
		BaseURL:    cfg.Cafe24.BaseURL(),
		APIVersion: cfg.Cafe24.APIVersion,
		RetryCount: cfg.Cafe24.RetryCount,
		Timeout:    cfg.Cafe24.RequestTimeout,
	}, tokens, logger)
	transport.SetMetricsCollector(collector)
	transport.SetCircuitBreaker(utils.NewCircuitBreaker(nil, logger))

	catalog := service.NewCatalogService(transport, logger)
	e := handler.NewRouter(&handler.Dependencies{
		Catalog: catalog,
		Orders:  service.NewOrderService(transport, logger),
		Bulk:    service.NewBulkPriceService(catalog, 0, logger),
		CSV:     service.NewCSVService(catalog, logger),
		Tokens:  tokens,
		Logger:  logger,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "port", cfg.HTTPPort)
		if err := e.Start(":" + cfg.HTTPPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.Info("Shutdown signal received", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("Service stopped cleanly")
	return nil
}
