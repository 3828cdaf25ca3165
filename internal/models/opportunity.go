package models

import (
	"errors"
	"sort"
	"strings"
	"time"
)

// OpportunityType identifies which detection strategy produced an opportunity.
type OpportunityType string

const (
	// TypeProbabilitySum flags a single market whose outcome prices do not
	// sum to 1.0 within tolerance.
	TypeProbabilitySum OpportunityType = "probability_sum"
	// TypeCrossMarket flags a pair of markets on the same event whose
	// complementary Yes/No prices deviate from the risk-free baseline.
	TypeCrossMarket OpportunityType = "cross_market"
	// TypeSpread flags a single market whose bid-ask spread exceeds the
	// illiquidity threshold.
	TypeSpread OpportunityType = "spread"
)

// ArbitrageOpportunity is one detected pricing anomaly. Opportunities are
// created by exactly one strategy per detection pass and are immutable after
// creation; the detection pass owns their lifetime and hands them off to the
// notifier.
//
// ProfitEstimate is the theoretical edge on the [0,1] price scale. Positive
// means risk-free profit is available; negative means the configuration is
// overpriced and reported for information only.
type ArbitrageOpportunity struct {
	ID             string          `json:"id"`
	Type           OpportunityType `json:"type"`
	MarketIDs      []string        `json:"market_ids"` // 1 entry, or 2 for cross-market
	ProfitEstimate float64         `json:"profit_estimate"`
	Description    string          `json:"description"`
	DetectedAt     time.Time       `json:"detected_at"`
}

// Validate checks that the opportunity record is well formed.
func (o *ArbitrageOpportunity) Validate() error {
	if o.ID == "" {
		return errors.New("opportunity ID must not be empty")
	}
	switch o.Type {
	case TypeProbabilitySum, TypeSpread:
		if len(o.MarketIDs) != 1 {
			return errors.New("single-market opportunity must reference exactly one market")
		}
	case TypeCrossMarket:
		if len(o.MarketIDs) != 2 {
			return errors.New("cross-market opportunity must reference exactly two markets")
		}
	default:
		return errors.New("unknown opportunity type")
	}
	for _, id := range o.MarketIDs {
		if id == "" {
			return errors.New("market ID must not be empty")
		}
	}
	if o.DetectedAt.IsZero() {
		return errors.New("detected at must be set")
	}
	return nil
}

// Actionable reports whether the estimated profit is positive, i.e. the
// opportunity can actually be traded rather than only observed.
func (o *ArbitrageOpportunity) Actionable() bool {
	return o.ProfitEstimate > 0
}

// Key returns the deduplication key for the opportunity: the type plus the
// participating market IDs in sorted order. Two records with the same key
// describe the same anomaly regardless of leg ordering or detection time.
func (o *ArbitrageOpportunity) Key() string {
	ids := make([]string, len(o.MarketIDs))
	copy(ids, o.MarketIDs)
	sort.Strings(ids)
	return string(o.Type) + "|" + strings.Join(ids, "|")
}
