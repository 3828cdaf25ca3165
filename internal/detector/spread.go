package detector

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/arbiterhq/arbiter/internal/models"
)

// SpreadCheck flags markets whose best-bid/best-ask spread exceeds a
// threshold. A wide spread signals illiquidity-driven mispricing risk: the
// profit estimate is the maximum capturable edge if a limit order fills at
// the wider side.
type SpreadCheck struct {
	threshold float64
}

// NewSpreadCheck creates the strategy with the given spread threshold on the
// [0,1] price scale.
func NewSpreadCheck(threshold float64) *SpreadCheck {
	return &SpreadCheck{threshold: threshold}
}

// Name returns the strategy identifier.
func (s *SpreadCheck) Name() string { return string(models.TypeSpread) }

// Detect checks every market that carries both sides of the book. Missing
// bid/ask data means the strategy simply does not apply to that market.
func (s *SpreadCheck) Detect(markets []models.Market) []models.ArbitrageOpportunity {
	var opps []models.ArbitrageOpportunity
	now := time.Now()

	for i := range markets {
		m := &markets[i]
		spread, ok := m.Spread()
		if !ok || spread <= s.threshold {
			continue
		}

		opps = append(opps, models.ArbitrageOpportunity{
			ID:             uuid.New().String(),
			Type:           models.TypeSpread,
			MarketIDs:      []string{m.ID},
			ProfitEstimate: spread,
			Description: fmt.Sprintf("wide spread %.4f (bid %.4f / ask %.4f) on %q",
				spread, *m.BestBid, *m.BestAsk, m.Question),
			DetectedAt: now,
		})
	}

	return opps
}
