// Command scan runs a single fetch-detect pass against Polymarket and prints
// every detected opportunity to stdout. Useful for threshold tuning and for
// checking the engine against live data without starting the monitor.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/arbiterhq/arbiter/internal/config"
	"github.com/arbiterhq/arbiter/internal/detector"
	"github.com/arbiterhq/arbiter/internal/logging"
	"github.com/arbiterhq/arbiter/internal/notify"
	"github.com/arbiterhq/arbiter/internal/polymarket"
)

var (
	configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")
	minProfit  = flag.Float64("min-profit", 0, "Only print opportunities with at least this profit estimate")
)

func main() {
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := logging.New(cfg.Logging.Level, "console")

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

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	markets, err := client.FetchMarkets(ctx, cfg.Polymarket.MinVolume, cfg.Polymarket.MaxMarkets)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to fetch markets")
	}

	opportunities := engine.Detect(markets)

	shown := opportunities[:0:0]
	for _, opp := range opportunities {
		if opp.ProfitEstimate >= *minProfit {
			shown = append(shown, opp)
		}
	}

	fmt.Printf("Scanned %d markets, found %d opportunities\n\n", len(markets), len(shown))
	if len(shown) == 0 {
		return
	}

	if _, err := notify.NewConsole(os.Stdout).Notify(ctx, shown); err != nil {
		logger.Fatal().Err(err).Msg("failed to print opportunities")
	}
}
