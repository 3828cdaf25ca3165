// Package models defines the core domain entities for the arbiter application.
// These models represent prediction markets, their outcomes, and detected
// arbitrage opportunities. Models include built-in validation so malformed
// upstream data is rejected before it reaches the detection engine.
//
// Terminology (matching Polymarket's own naming):
//   - Market: a tradable listing with one or more priced outcomes. Binary
//     markets have exactly two (conventionally Yes/No).
//   - Event: the real-world question several markets may independently list,
//     possibly with different phrasing or time qualifiers.
package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidMarketData marks a market that failed structural validation.
// Such markets are dropped from the detection pass, never fatal.
var ErrInvalidMarketData = errors.New("invalid market data")

// Outcome is one possible resolution of a market with its implied probability.
type Outcome struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"` // probability-like, must lie in [0, 1]
}

// Market represents a single prediction-market listing.
// BestBid/BestAsk are populated from order book data when available; nil
// means the book was not fetched or the market has no resting orders, which
// is not an error.
type Market struct {
	ID        string    `json:"id"`
	EventID   string    `json:"event_id"` // upstream condition/event identifier
	Question  string    `json:"question"`
	Outcomes  []Outcome `json:"outcomes"`
	BestBid   *float64  `json:"best_bid,omitempty"`
	BestAsk   *float64  `json:"best_ask,omitempty"`
	Volume    float64   `json:"volume"`
	Liquidity float64   `json:"liquidity"`
	Active    bool      `json:"active"`
}

// Validate checks the structural invariants of a market. Prices outside [0,1]
// indicate upstream data corruption and are rejected rather than clamped.
func (m *Market) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("%w: market ID must not be empty", ErrInvalidMarketData)
	}
	if len(m.Outcomes) == 0 {
		return fmt.Errorf("%w: market %s has no outcomes", ErrInvalidMarketData, m.ID)
	}
	for _, o := range m.Outcomes {
		if o.Price < 0.0 || o.Price > 1.0 {
			return fmt.Errorf("%w: market %s outcome %q price %.4f outside [0,1]",
				ErrInvalidMarketData, m.ID, o.Name, o.Price)
		}
	}
	if m.BestBid != nil && m.BestAsk != nil && *m.BestBid > *m.BestAsk {
		return fmt.Errorf("%w: market %s best bid %.4f above best ask %.4f",
			ErrInvalidMarketData, m.ID, *m.BestBid, *m.BestAsk)
	}
	return nil
}

// ProbabilitySum returns the sum of all outcome prices. In an efficient
// market this is ~1.0 minus the spread.
func (m *Market) ProbabilitySum() float64 {
	var sum float64
	for _, o := range m.Outcomes {
		sum += o.Price
	}
	return sum
}

// IsBinary reports whether the market has exactly two outcomes.
func (m *Market) IsBinary() bool {
	return len(m.Outcomes) == 2
}

// OutcomePrice returns the price of the named outcome, matched
// case-insensitively. The second return value is false when the market has
// no such outcome.
func (m *Market) OutcomePrice(name string) (float64, bool) {
	for _, o := range m.Outcomes {
		if strings.EqualFold(o.Name, name) {
			return o.Price, true
		}
	}
	return 0, false
}

// Spread returns best ask minus best bid. The second return value is false
// when either side of the book is absent.
func (m *Market) Spread() (float64, bool) {
	if m.BestBid == nil || m.BestAsk == nil {
		return 0, false
	}
	return *m.BestAsk - *m.BestBid, true
}
