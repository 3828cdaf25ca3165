// Package detector implements the arbitrage detection engine: three
// independent strategies (probability-sum anomaly, cross-market complementary
// mispricing, spread anomaly) run over a snapshot of markets and produce a
// merged, deterministically ordered list of opportunities.
//
// The engine is pure computation: it holds no mutable state across passes,
// performs no I/O, and is safe to invoke concurrently on independent market
// snapshots. Cross-market grouping is pairwise within similarity groups, so
// a pass is O(n²) in the group size; fine for the tens-to-low-hundreds of
// markets a scan produces, but worth knowing before pointing it at thousands.
package detector

import (
	"github.com/arbiterhq/arbiter/internal/models"
)

// Strategy is one independent detection pass over a read-only market
// snapshot. Implementations must not retain or mutate the slice.
type Strategy interface {
	Name() string
	Detect(markets []models.Market) []models.ArbitrageOpportunity
}
