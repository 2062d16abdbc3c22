package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fluent/fluent-logger-golang/fluent"

	"makelaarsland-notifier/config"
	"makelaarsland-notifier/mailbox"
	"makelaarsland-notifier/maps"
	"makelaarsland-notifier/notify"
	"makelaarsland-notifier/publish"
	"makelaarsland-notifier/scraper/makelaarsland"
	"makelaarsland-notifier/services"
	"makelaarsland-notifier/site"
	"makelaarsland-notifier/storage"
	"makelaarsland-notifier/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		utils.NewLogger().Error("Failed to load config: %v", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	defer logger.Close()

	logger.Info("=== Makelaarsland notifier starting ===")
	logger.Info("Config — mailbox: %s | from: %s | store: %s | site: %s | poll: %v",
		cfg.IMAPAddr, cfg.MailFromFilter, cfg.Store, cfg.SiteDir, cfg.PollInterval)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := newStore(cfg)
	if err != nil {
		logger.Error("Failed to open house store: %v", err)
		if cfg.Store == "postgres" {
			logger.Error("Make sure Docker is running: docker compose up -d")
		}
		os.Exit(1)
	}
	defer store.Close()

	ledger, err := storage.NewCSVLedger(cfg.LedgerPath)
	if err != nil {
		logger.Error("Failed to open publish ledger: %v", err)
		os.Exit(1)
	}
	defer ledger.Close()

	publisher, err := publish.New(publish.Options{
		SiteDir: cfg.SiteDir,
		Store:   store,
		Ledger:  ledger,
		GitPush: cfg.GitPush,
		Logger:  logger,
	})
	if err != nil {
		logger.Error("Failed to create publisher: %v", err)
		os.Exit(1)
	}

	renderer := makelaarsland.New(cfg, logger)
	defer renderer.Close()

	aggregator := services.NewAggregator(services.AggregatorDeps{
		Listing:      services.NewListingExtractor(logger),
		Details:      services.NewDetailEnricher(renderer, logger),
		Commute:      newCommuteEnricher(cfg, logger),
		Valuation:    services.NewValuationEnricher(cfg.ValuationBaseURL, cfg.HTTPTimeout, logger),
		Demographics: services.NewDemographicsEnricher(cfg.DemographicsBaseURL, cfg.HTTPTimeout, logger),
		Publisher:    publisher,
		Notifiers:    newNotifiers(cfg, logger),
		Logger:       logger,
	})

	if cfg.PreviewAddr != "" {
		preview := site.NewServer(cfg.PreviewAddr, cfg.SiteDir, store, logger)
		go func() {
			if err := preview.Start(); err != nil {
				logger.Error("Preview server stopped: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = preview.Stop(shutdownCtx)
		}()
	}

	inbox := mailbox.New(cfg, logger)
	handle := func(ctx context.Context, content string) error {
		_, err := aggregator.Process(ctx, content)
		return err
	}

	for {
		wait := cfg.PollInterval
		if err := inbox.Poll(ctx, handle); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Poll failed: %v (retrying in %v)", err, cfg.PollBackoff)
			wait = cfg.PollBackoff
		}

		select {
		case <-ctx.Done():
			logger.Info("=== Shutting down ===")
			return
		case <-time.After(wait):
		}
	}
}

func newLogger(cfg *config.Config) *utils.Logger {
	opts := utils.LoggerOptions{
		Level:     utils.ParseLevel(cfg.LogLevel),
		JSON:      cfg.LogJSON,
		Color:     !cfg.LogJSON,
		FluentTag: cfg.AppName,
	}

	if cfg.FluentHost != "" {
		f, err := fluent.New(fluent.Config{
			FluentHost: cfg.FluentHost,
			FluentPort: cfg.FluentPort,
			Async:      true,
		})
		if err != nil {
			utils.NewLogger().Warn("[logger] Fluent sink unavailable: %v", err)
		} else {
			opts.Fluent = f
		}
	}

	return utils.NewLoggerWithOptions(opts)
}

func newStore(cfg *config.Config) (storage.HouseStore, error) {
	if cfg.Store == "postgres" {
		return storage.NewPostgresStore(cfg.DSN())
	}
	return storage.NewJSONStore(filepath.Join(cfg.SiteDir, "houses.json"))
}

func newCommuteEnricher(cfg *config.Config, logger *utils.Logger) *services.CommuteEnricher {
	var client services.Maps
	if c, err := maps.New(cfg.GoogleMapsAPIKey); err != nil {
		logger.Warn("Commute lookups disabled: %v", err)
	} else {
		client = c
	}

	return services.NewCommuteEnricher(client,
		services.Destination{Name: cfg.ReferenceA.Name, Address: cfg.ReferenceA.Address},
		services.Destination{Name: cfg.ReferenceB.Name, Address: cfg.ReferenceB.Address},
		nil, logger)
}

func newNotifiers(cfg *config.Config, logger *utils.Logger) []services.Notifier {
	var notifiers []services.Notifier

	if cfg.TwilioAccountSID != "" && len(cfg.WhatsAppRecipients) > 0 {
		notifiers = append(notifiers, notify.NewWhatsApp(cfg, logger))
	}

	if len(cfg.EmailRecipients) > 0 {
		email, err := notify.NewEmail(cfg, logger)
		if err != nil {
			logger.Error("Email notifications disabled: %v", err)
		} else {
			notifiers = append(notifiers, email)
		}
	}

	logger.Info("Notifiers enabled: %d", len(notifiers))
	return notifiers
}
