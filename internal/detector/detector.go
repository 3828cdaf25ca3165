package detector

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/arbiterhq/arbiter/internal/models"
	"github.com/arbiterhq/arbiter/internal/similarity"
)

// Options carries the detection thresholds. Defaults live in the config
// package; zero values here are rejected so a miswired caller fails loudly
// at construction instead of silently detecting nothing.
type Options struct {
	ProbSumTolerance      float64
	CrossMarketTolerance  float64
	SimilarityThreshold   float64
	SpreadThreshold       float64
	TimeQualifierPatterns []string
}

// Detector runs all strategies over one market snapshot and merges their
// results. It is stateless across passes and safe for concurrent use.
type Detector struct {
	strategies []Strategy
	logger     zerolog.Logger
}

// New builds a Detector from the given options. Configuration errors
// (malformed qualifier patterns, thresholds outside their domain) are fatal
// here, before any detection pass runs.
func New(opts Options, logger zerolog.Logger) (*Detector, error) {
	if opts.ProbSumTolerance <= 0 || opts.CrossMarketTolerance <= 0 {
		return nil, fmt.Errorf("tolerances must be positive (prob_sum %.4f, cross_market %.4f)",
			opts.ProbSumTolerance, opts.CrossMarketTolerance)
	}
	if opts.SpreadThreshold <= 0 || opts.SpreadThreshold > 1 {
		return nil, fmt.Errorf("spread threshold %.4f outside (0,1]", opts.SpreadThreshold)
	}

	normalizer, err := similarity.NewNormalizer(opts.TimeQualifierPatterns)
	if err != nil {
		return nil, err
	}
	matcher, err := similarity.NewMatcher(normalizer, opts.SimilarityThreshold)
	if err != nil {
		return nil, err
	}

	return &Detector{
		strategies: []Strategy{
			NewProbabilitySum(opts.ProbSumTolerance),
			NewCrossMarket(matcher, opts.CrossMarketTolerance),
			NewSpreadCheck(opts.SpreadThreshold),
		},
		logger: logger,
	}, nil
}

// Detect validates the snapshot, runs every strategy over the surviving
// markets, and returns the merged opportunity list sorted by profit estimate
// descending (ties broken by type, then first market ID, for deterministic
// output). Malformed markets are dropped and counted, never fatal; an empty
// result is a normal outcome, not an error.
func (d *Detector) Detect(markets []models.Market) []models.ArbitrageOpportunity {
	valid := make([]models.Market, 0, len(markets))
	dropped := 0
	for i := range markets {
		if err := markets[i].Validate(); err != nil {
			dropped++
			d.logger.Warn().Err(err).Str("market_id", markets[i].ID).Msg("dropping malformed market")
			continue
		}
		valid = append(valid, markets[i])
	}
	if dropped > 0 {
		d.logger.Info().Int("dropped", dropped).Int("valid", len(valid)).Msg("market validation complete")
	}

	var merged []models.ArbitrageOpportunity
	for _, s := range d.strategies {
		found := s.Detect(valid)
		d.logger.Debug().Str("strategy", s.Name()).Int("count", len(found)).Msg("strategy pass complete")
		merged = append(merged, found...)
	}

	merged = dedupe(merged)

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].ProfitEstimate != merged[j].ProfitEstimate {
			return merged[i].ProfitEstimate > merged[j].ProfitEstimate
		}
		if merged[i].Type != merged[j].Type {
			return merged[i].Type < merged[j].Type
		}
		return merged[i].MarketIDs[0] < merged[j].MarketIDs[0]
	})

	if merged == nil {
		merged = []models.ArbitrageOpportunity{}
	}
	return merged
}

// dedupe drops records describing the same anomaly (same type and market
// set), keeping the first occurrence. Distinct pairs sharing one market are
// distinct opportunities and survive.
func dedupe(opps []models.ArbitrageOpportunity) []models.ArbitrageOpportunity {
	seen := make(map[string]bool, len(opps))
	out := opps[:0]
	for _, o := range opps {
		key := o.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, o)
	}
	return out
}
