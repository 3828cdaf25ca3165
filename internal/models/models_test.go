package models

import (
	"errors"
	"testing"
	"time"
)

func f(v float64) *float64 { return &v }

func TestMarketValidate(t *testing.T) {
	tests := []struct {
		name    string
		market  Market
		wantErr bool
	}{
		{
			name: "valid binary market",
			market: Market{
				ID:       "mkt-1",
				EventID:  "cond-1",
				Question: "Will X happen?",
				Outcomes: []Outcome{{Name: "Yes", Price: 0.55}, {Name: "No", Price: 0.45}},
			},
			wantErr: false,
		},
		{
			name: "valid with book",
			market: Market{
				ID:       "mkt-2",
				Question: "Will X happen?",
				Outcomes: []Outcome{{Name: "Yes", Price: 0.55}, {Name: "No", Price: 0.45}},
				BestBid:  f(0.52),
				BestAsk:  f(0.58),
			},
			wantErr: false,
		},
		{
			name: "missing book is not an error",
			market: Market{
				ID:       "mkt-3",
				Question: "Will X happen?",
				Outcomes: []Outcome{{Name: "Yes", Price: 0.55}, {Name: "No", Price: 0.45}},
			},
			wantErr: false,
		},
		{
			name:    "empty ID",
			market:  Market{Outcomes: []Outcome{{Name: "Yes", Price: 0.5}}},
			wantErr: true,
		},
		{
			name:    "no outcomes",
			market:  Market{ID: "mkt-4", Question: "Will X happen?"},
			wantErr: true,
		},
		{
			name: "price above one",
			market: Market{
				ID:       "mkt-5",
				Outcomes: []Outcome{{Name: "Yes", Price: 1.2}, {Name: "No", Price: 0.4}},
			},
			wantErr: true,
		},
		{
			name: "negative price",
			market: Market{
				ID:       "mkt-6",
				Outcomes: []Outcome{{Name: "Yes", Price: -0.1}, {Name: "No", Price: 0.4}},
			},
			wantErr: true,
		},
		{
			name: "bid above ask",
			market: Market{
				ID:       "mkt-7",
				Outcomes: []Outcome{{Name: "Yes", Price: 0.5}, {Name: "No", Price: 0.5}},
				BestBid:  f(0.60),
				BestAsk:  f(0.40),
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.market.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Market.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidMarketData) {
				t.Errorf("Market.Validate() error = %v, want ErrInvalidMarketData", err)
			}
		})
	}
}

func TestMarketHelpers(t *testing.T) {
	m := Market{
		ID:       "mkt-1",
		Outcomes: []Outcome{{Name: "Yes", Price: 0.3}, {Name: "No", Price: 0.6}},
		BestBid:  f(0.28),
		BestAsk:  f(0.35),
	}

	if got := m.ProbabilitySum(); got != 0.9 {
		t.Errorf("ProbabilitySum() = %v, want 0.9", got)
	}
	if !m.IsBinary() {
		t.Error("IsBinary() = false, want true")
	}
	if p, ok := m.OutcomePrice("YES"); !ok || p != 0.3 {
		t.Errorf("OutcomePrice(YES) = %v, %v; want 0.3, true", p, ok)
	}
	if _, ok := m.OutcomePrice("maybe"); ok {
		t.Error("OutcomePrice(maybe) ok = true, want false")
	}
	spread, ok := m.Spread()
	if !ok || spread < 0.0699 || spread > 0.0701 {
		t.Errorf("Spread() = %v, %v; want ~0.07, true", spread, ok)
	}

	m.BestAsk = nil
	if _, ok := m.Spread(); ok {
		t.Error("Spread() with missing ask should report not ok")
	}
}

func TestOpportunityValidate(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name    string
		opp     ArbitrageOpportunity
		wantErr bool
	}{
		{
			name: "valid single-market",
			opp: ArbitrageOpportunity{
				ID: "opp-1", Type: TypeProbabilitySum,
				MarketIDs: []string{"mkt-1"}, ProfitEstimate: 0.1, DetectedAt: now,
			},
			wantErr: false,
		},
		{
			name: "valid cross-market",
			opp: ArbitrageOpportunity{
				ID: "opp-2", Type: TypeCrossMarket,
				MarketIDs: []string{"mkt-1", "mkt-2"}, ProfitEstimate: 0.05, DetectedAt: now,
			},
			wantErr: false,
		},
		{
			name: "cross-market with one leg",
			opp: ArbitrageOpportunity{
				ID: "opp-3", Type: TypeCrossMarket,
				MarketIDs: []string{"mkt-1"}, DetectedAt: now,
			},
			wantErr: true,
		},
		{
			name: "spread with two legs",
			opp: ArbitrageOpportunity{
				ID: "opp-4", Type: TypeSpread,
				MarketIDs: []string{"mkt-1", "mkt-2"}, DetectedAt: now,
			},
			wantErr: true,
		},
		{
			name: "unknown type",
			opp: ArbitrageOpportunity{
				ID: "opp-5", Type: "liquidity",
				MarketIDs: []string{"mkt-1"}, DetectedAt: now,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opp.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestOpportunityKey(t *testing.T) {
	a := ArbitrageOpportunity{Type: TypeCrossMarket, MarketIDs: []string{"mkt-2", "mkt-1"}}
	b := ArbitrageOpportunity{Type: TypeCrossMarket, MarketIDs: []string{"mkt-1", "mkt-2"}}
	if a.Key() != b.Key() {
		t.Errorf("Key() should ignore leg order: %q != %q", a.Key(), b.Key())
	}

	c := ArbitrageOpportunity{Type: TypeSpread, MarketIDs: []string{"mkt-1"}}
	if a.Key() == c.Key() {
		t.Error("Key() should differ across types")
	}
}
