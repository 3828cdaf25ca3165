// Command arbiter runs the continuous arbitrage monitor: it polls Polymarket
// on a fixed interval, runs the detection engine over each snapshot, and
// announces newly found opportunities through the configured notifier.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/arbiterhq/arbiter/internal/config"
	"github.com/arbiterhq/arbiter/internal/detector"
	"github.com/arbiterhq/arbiter/internal/logging"
	"github.com/arbiterhq/arbiter/internal/models"
	"github.com/arbiterhq/arbiter/internal/notify"
	"github.com/arbiterhq/arbiter/internal/polymarket"
	"github.com/arbiterhq/arbiter/internal/storage"
)

var configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")

func main() {
	flag.Parse()

	// .env is optional; environment overrides still apply without it
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info().Str("path", *configPath).Msg("configuration loaded")

	store, err := storage.Open(cfg.Storage.DBPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open opportunity store")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close opportunity store")
		}
	}()

	client := polymarket.NewClient(
		cfg.Polymarket.GammaAPIURL,
		cfg.Polymarket.CLOBAPIURL,
		cfg.Polymarket.Timeout,
		cfg.Polymarket.MaxRetries,
		cfg.Polymarket.RequestsPerSec,
		logger,
	)

	engine, err := detector.New(detector.Options{
		ProbSumTolerance:      cfg.Detector.ProbSumTolerance,
		CrossMarketTolerance:  cfg.Detector.CrossMarketTolerance,
		SimilarityThreshold:   cfg.Detector.SimilarityThreshold,
		SpreadThreshold:       cfg.Detector.SpreadThreshold,
		TimeQualifierPatterns: cfg.Detector.TimeQualifierPatterns,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build detection engine")
	}

	var notifier notify.Notifier
	var telegramClient *notify.Telegram
	if cfg.Telegram.Enabled {
		telegramClient, err = notify.NewTelegram(
			cfg.Telegram.BotToken,
			cfg.Telegram.ChatID,
			cfg.Telegram.MaxRetries,
			cfg.Telegram.RetryDelayBase,
			logger,
		)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize Telegram notifier")
		}
		notifier = telegramClient
		logger.Info().Msg("Telegram notifier initialized")
	} else {
		notifier = notify.NewConsole(os.Stdout)
		logger.Debug().Msg("Telegram disabled, alerting to console")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info().Msg("shutdown signal received")
		cancel()
	}()

	logger.Info().
		Dur("poll_interval", cfg.Polymarket.PollInterval).
		Float64("min_volume", cfg.Polymarket.MinVolume).
		Int("max_markets", cfg.Polymarket.MaxMarkets).
		Msg("starting arbitrage monitor")

	ticker := time.NewTicker(cfg.Polymarket.PollInterval)
	defer ticker.Stop()

	consecutiveFailures := 0
	handleCycleResult := func(err error) {
		if err != nil {
			consecutiveFailures++
			logger.Error().Err(err).Int("consecutive_failures", consecutiveFailures).Msg("scan cycle failed")
			if consecutiveFailures == 1 && telegramClient != nil {
				if sendErr := telegramClient.SendError(ctx, err.Error()); sendErr != nil {
					logger.Warn().Err(sendErr).Msg("failed to send error notification")
				}
			}
			return
		}
		if consecutiveFailures > 0 && telegramClient != nil {
			if sendErr := telegramClient.SendRecovery(ctx, consecutiveFailures); sendErr != nil {
				logger.Warn().Err(sendErr).Msg("failed to send recovery notification")
			}
		}
		consecutiveFailures = 0
	}

	// Run the first cycle immediately rather than waiting a full interval
	handleCycleResult(runScanCycle(ctx, client, engine, store, notifier, cfg, logger))

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("monitor stopped")
			return

		case <-ticker.C:
			handleCycleResult(runScanCycle(ctx, client, engine, store, notifier, cfg, logger))

			if removed, err := store.Prune(ctx, time.Now().Add(-cfg.Storage.Retention)); err != nil {
				logger.Warn().Err(err).Msg("failed to prune opportunity history")
			} else if removed > 0 {
				logger.Debug().Int64("removed", removed).Msg("pruned opportunity history")
			}
		}
	}
}

// runScanCycle performs one fetch-detect-notify pass. Opportunities whose
// dedup key was already announced within the retention window are skipped.
func runScanCycle(
	ctx context.Context,
	client *polymarket.Client,
	engine *detector.Detector,
	store *storage.Store,
	notifier notify.Notifier,
	cfg *config.Config,
	logger zerolog.Logger,
) error {
	start := time.Now()

	markets, err := client.FetchMarkets(ctx, cfg.Polymarket.MinVolume, cfg.Polymarket.MaxMarkets)
	if err != nil {
		return fmt.Errorf("failed to fetch markets: %w", err)
	}

	opportunities := engine.Detect(markets)

	var fresh []models.ArbitrageOpportunity
	for _, opp := range opportunities {
		if !opp.Actionable() {
			continue
		}
		seen, err := store.Seen(ctx, opp.Key())
		if err != nil {
			return fmt.Errorf("failed to check opportunity history: %w", err)
		}
		if seen {
			continue
		}
		fresh = append(fresh, opp)
	}

	if len(fresh) > 0 {
		sent, err := notifier.Notify(ctx, fresh)
		if err != nil {
			logger.Warn().Err(err).Int("sent", sent).Msg("partial alert delivery")
		}
		// Record the whole batch either way: an opportunity that failed to
		// deliver would otherwise re-alert every cycle while it persists.
		for _, opp := range fresh {
			if err := store.Record(ctx, opp); err != nil {
				logger.Warn().Err(err).Str("opportunity_id", opp.ID).Msg("failed to record announced opportunity")
			}
		}
	}

	logger.Info().
		Int("markets", len(markets)).
		Int("opportunities", len(opportunities)).
		Int("announced", len(fresh)).
		Dur("elapsed", time.Since(start)).
		Msg("scan cycle complete")

	return nil
}
