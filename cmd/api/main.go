// Package main is the entry point for the plangate API server.
//
// It loads configuration, connects the Google Sheets user store (or an
// in-memory store for local development without a spreadsheet), wires the
// quota checker and the Stripe payment webhook, and serves HTTP with
// graceful shutdown on SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"plangate/internal/api/handlers"
	"plangate/internal/billing"
	"plangate/internal/config"
	"plangate/internal/core"
	"plangate/internal/external"
	"plangate/internal/quota"
	"plangate/internal/store"
	"plangate/internal/types"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so main() can cleanly exit on error.
func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("plangate API starting",
		"environment", cfg.Environment,
		"port", cfg.Server.Port,
		"sheet", cfg.Sheets.SheetName,
	)

	userStore, err := buildUserStore(context.Background(), cfg, logger)
	if err != nil {
		return fmt.Errorf("connecting user store: %w", err)
	}

	plans := billing.NewStaticPlanRegistry()
	checker := quota.NewChecker(userStore, plans, logger)
	updater := billing.NewPlanUpdater(userStore, plans, logger)

	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	srv.HealthProbes = append(srv.HealthProbes, core.ProbeFunc{
		ProbeName: "user_store",
		Fn:        userStore.Ping,
	})

	webhookHandler := handlers.NewStripeWebhookHandler(
		buildVerifier(cfg, logger),
		updater,
		cfg.Billing.StripeWebhookSecret.Unmask(),
		logger,
	)
	srv.RootRouteRegistrars = append(srv.RootRouteRegistrars, webhookHandler.RegisterRoutes)

	quotaHandler := handlers.NewQuotaHandler(checker, srv.Validator, logger)
	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars, quotaHandler.RegisterRoutes)

	// The checkout endpoint only makes sense with a Stripe API key and
	// configured prices; without them, payments happen via payment links
	// managed outside this service and only the webhook is active.
	if cfg.Billing.StripeSecretKey.IsSet() {
		stripeClient := external.NewStripeClient(external.NewStripeHTTPClient(), external.StripeClientConfig{
			SecretKey:  cfg.Billing.StripeSecretKey.Unmask(),
			SuccessURL: cfg.Billing.CheckoutSuccessURL,
			CancelURL:  cfg.Billing.CheckoutCancelURL,
			PlanPrices: planPrices(cfg),
			Logger:     logger,
		})
		billingHandler := handlers.NewBillingHandler(stripeClient, srv.Validator, logger)
		srv.V1RouteRegistrars = append(srv.V1RouteRegistrars, billingHandler.RegisterRoutes)
	} else {
		logger.Info("no stripe secret key configured, checkout endpoint disabled")
	}

	srv.MountRoutes()

	return runHTTPServer(srv, cfg, logger)
}

// buildUserStore connects the Google Sheets store, or falls back to an
// in-memory store in local mode when no spreadsheet is configured.
func buildUserStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.UserStore, error) {
	if cfg.Sheets.SpreadsheetID == "" {
		if !cfg.IsLocal() {
			return nil, fmt.Errorf("no spreadsheet configured outside local mode")
		}
		logger.Warn("no spreadsheet configured, using in-memory user store")
		return store.NewMemStore(nil), nil
	}

	opts := []option.ClientOption{option.WithScopes(sheets.SpreadsheetsScope)}
	if cfg.Sheets.CredentialsJSON.IsSet() {
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.Sheets.CredentialsJSON.Unmask())))
	} else {
		opts = append(opts, option.WithCredentialsFile(cfg.Sheets.CredentialsFile))
	}

	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating sheets service: %w", err)
	}

	return store.NewSheetStore(svc, cfg.Sheets.SpreadsheetID, cfg.Sheets.SheetName, logger), nil
}

// buildVerifier returns the Stripe signature verifier, or the always-pass
// stub in local mode when no signing secret is configured.
func buildVerifier(cfg *config.Config, logger *slog.Logger) external.WebhookVerifier {
	if !cfg.Billing.StripeWebhookSecret.IsSet() && cfg.IsLocal() {
		logger.Warn("no webhook secret configured, using stub verifier")
		return external.NewStubWebhookVerifier(logger)
	}
	return &external.StripeVerifier{}
}

// planPrices maps the purchasable plan tiers to their configured Stripe
// price IDs, skipping unset ones.
func planPrices(cfg *config.Config) map[types.PlanTier]string {
	prices := make(map[types.PlanTier]string, 2)
	if cfg.Billing.PriceTrial != "" {
		prices[types.PlanTrial] = cfg.Billing.PriceTrial
	}
	if cfg.Billing.PriceStandard != "" {
		prices[types.PlanStandard] = cfg.Billing.PriceStandard
	}
	return prices
}

// runHTTPServer serves until a shutdown signal or server error, then drains
// in-flight requests with a 10-second deadline.
func runHTTPServer(srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("initiating graceful shutdown")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}

// newLogger creates a JSON slog logger at the configured level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
