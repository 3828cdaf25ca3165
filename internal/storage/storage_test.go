package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/arbiterhq/arbiter/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleOpportunity(id string, detectedAt time.Time) models.ArbitrageOpportunity {
	return models.ArbitrageOpportunity{
		ID:             id,
		Type:           models.TypeProbabilitySum,
		MarketIDs:      []string{"mkt-1"},
		ProfitEstimate: 0.10,
		Description:    "Outcome prices sum to 0.90",
		DetectedAt:     detectedAt,
	}
}

func TestSeenAndRecord(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	opp := sampleOpportunity("op-1", time.Now())

	seen, err := s.Seen(ctx, opp.Key())
	if err != nil {
		t.Fatalf("Seen failed: %v", err)
	}
	if seen {
		t.Error("opportunity seen before being recorded")
	}

	if err := s.Record(ctx, opp); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	seen, err = s.Seen(ctx, opp.Key())
	if err != nil {
		t.Fatalf("Seen failed: %v", err)
	}
	if !seen {
		t.Error("opportunity not seen after being recorded")
	}

	// Same ID again is a no-op
	if err := s.Record(ctx, opp); err != nil {
		t.Errorf("repeated Record failed: %v", err)
	}
}

func TestSeenMatchesKeyNotID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Two detections of the same opportunity carry different UUIDs but the
	// same key; the second must be suppressed.
	first := sampleOpportunity("op-1", time.Now())
	second := sampleOpportunity("op-2", time.Now())

	if err := s.Record(ctx, first); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	seen, err := s.Seen(ctx, second.Key())
	if err != nil {
		t.Fatalf("Seen failed: %v", err)
	}
	if !seen {
		t.Error("re-detection with a new ID was not recognized as seen")
	}
}

func TestPrune(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	old := sampleOpportunity("op-old", time.Now().Add(-200*time.Hour))
	fresh := models.ArbitrageOpportunity{
		ID:             "op-fresh",
		Type:           models.TypeSpread,
		MarketIDs:      []string{"mkt-2"},
		ProfitEstimate: 0.15,
		Description:    "Bid-ask spread of 0.15",
		DetectedAt:     time.Now(),
	}

	if err := s.Record(ctx, old); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := s.Record(ctx, fresh); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	removed, err := s.Prune(ctx, time.Now().Add(-168*time.Hour))
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("Prune removed %d rows, want 1", removed)
	}

	seen, err := s.Seen(ctx, old.Key())
	if err != nil {
		t.Fatalf("Seen failed: %v", err)
	}
	if seen {
		t.Error("pruned opportunity still seen")
	}

	seen, err = s.Seen(ctx, fresh.Key())
	if err != nil {
		t.Fatalf("Seen failed: %v", err)
	}
	if !seen {
		t.Error("fresh opportunity lost by prune")
	}
}
