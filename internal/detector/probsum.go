package detector

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/arbiterhq/arbiter/internal/models"
)

// ProbabilitySum flags markets whose outcome prices do not sum to 1.0 within
// tolerance. A sum below 1.0 means buying every outcome costs less than the
// guaranteed payout; a sum above 1.0 is overpriced and reported with a
// negative profit estimate for information only.
type ProbabilitySum struct {
	tolerance float64
}

// NewProbabilitySum creates the strategy with the given deviation tolerance.
func NewProbabilitySum(tolerance float64) *ProbabilitySum {
	return &ProbabilitySum{tolerance: tolerance}
}

// Name returns the strategy identifier.
func (s *ProbabilitySum) Name() string { return string(models.TypeProbabilitySum) }

// Detect runs the per-market sum check. Markets with a single outcome are
// skipped: with no complementary structure there is nothing to exploit.
func (s *ProbabilitySum) Detect(markets []models.Market) []models.ArbitrageOpportunity {
	var opps []models.ArbitrageOpportunity
	now := time.Now()

	for i := range markets {
		m := &markets[i]
		if len(m.Outcomes) < 2 {
			continue
		}

		sum := m.ProbabilitySum()
		if math.Abs(sum-1.0) <= s.tolerance {
			continue
		}

		profit := 1.0 - sum
		var desc string
		if profit > 0 {
			desc = fmt.Sprintf("outcomes underpriced: buying all %d outcomes costs %.4f against a 1.00 payout (%q)",
				len(m.Outcomes), sum, m.Question)
		} else {
			desc = fmt.Sprintf("outcomes overpriced: sum %.4f, not actionable without a short side (%q)",
				sum, m.Question)
		}

		opps = append(opps, models.ArbitrageOpportunity{
			ID:             uuid.New().String(),
			Type:           models.TypeProbabilitySum,
			MarketIDs:      []string{m.ID},
			ProfitEstimate: profit,
			Description:    desc,
			DetectedAt:     now,
		})
	}

	return opps
}
