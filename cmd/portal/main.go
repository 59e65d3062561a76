package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/sokonet/hotspot-portal/internal/billing"
	"github.com/sokonet/hotspot-portal/internal/config"
	"github.com/sokonet/hotspot-portal/internal/notify"
	"github.com/sokonet/hotspot-portal/internal/payment"
	"github.com/sokonet/hotspot-portal/internal/portal"
	"github.com/sokonet/hotspot-portal/internal/router"
	"github.com/sokonet/hotspot-portal/internal/storage"
)

func main() {
	// Setup logger
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(log)

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file found")
	}

	// Load config
	cfg := config.Load()

	if cfg.BillingBaseURL == "" {
		log.Error("BILLING_BASE_URL is required")
		os.Exit(1)
	}

	// Initialize storage
	store, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Error("init storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	log.Info("storage initialized", "path", cfg.DBPath)

	// Initialize billing client
	billingClient := billing.NewClient(cfg.BillingBaseURL, cfg.SubmitTimeout, cfg.StatusTimeout, log)
	log.Info("billing client initialized", "base_url", cfg.BillingBaseURL)

	// Payment core
	initiator := payment.NewInitiator(billingClient, log)
	poller := payment.NewPoller(billingClient, cfg.PollInterval, cfg.PollMaxAttempts, log)
	sessions := payment.NewSessions(poller)

	// Router resolver
	resolver := router.New(billingClient, log)

	// Operator alerts (optional)
	var alerts *notify.Telegram
	if cfg.BotToken != "" && cfg.AdminChatID != 0 {
		alerts, err = notify.NewTelegram(cfg.BotToken, cfg.AdminChatID, log)
		if err != nil {
			log.Error("init telegram alerts", "error", err)
		} else {
			log.Info("telegram alerts initialized", "chat_id", cfg.AdminChatID)
		}
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Warm the router cache so the first buyer does not pay the lookup
	if cfg.RouterIdentity != "" {
		go func() {
			if _, err := resolver.Resolve(ctx, cfg.RouterIdentity); err != nil {
				log.Warn("initial router lookup failed", "error", err)
			}
		}()
	}

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		log.Info("shutting down...")
		cancel()
	}()

	// Start portal server
	server := portal.NewServer(cfg, billingClient, initiator, sessions, resolver, store, alerts, log)
	if err := server.Start(ctx, cfg.PortalPort); err != nil && err != http.ErrServerClosed {
		log.Error("portal server", "error", err)
		os.Exit(1)
	}
}
