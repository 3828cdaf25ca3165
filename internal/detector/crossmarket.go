package detector

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/arbiterhq/arbiter/internal/models"
	"github.com/arbiterhq/arbiter/internal/similarity"
)

// CrossMarket finds pairs of distinct markets that describe the same event
// with complementary Yes/No outcomes and flags pairs whose combined price
// deviates from the 1.00 risk-free baseline.
//
// The strategy is strictly two-phase: markets are first clustered into
// candidate-event groups by question similarity, and only pairs inside a
// group are scored. Collapsing this into a global pairwise scan over all
// Yes/No markets pairs unrelated questions and floods the output with false
// positives, which is exactly the failure mode the grouping phase exists to
// prevent.
type CrossMarket struct {
	matcher   *similarity.Matcher
	tolerance float64
}

// NewCrossMarket creates the strategy. The matcher carries the similarity
// threshold; tolerance is the allowed |combined - 1.0| deviation.
func NewCrossMarket(matcher *similarity.Matcher, tolerance float64) *CrossMarket {
	return &CrossMarket{matcher: matcher, tolerance: tolerance}
}

// Name returns the strategy identifier.
func (s *CrossMarket) Name() string { return string(models.TypeCrossMarket) }

// Detect groups markets by event and scores every complementary pair within
// each group. A market that is borderline-similar to two groups joins the
// merged group and may legitimately produce several candidate pairs; pairs
// are never deduplicated by market.
func (s *CrossMarket) Detect(markets []models.Market) []models.ArbitrageOpportunity {
	var opps []models.ArbitrageOpportunity
	now := time.Now()

	for _, group := range s.groupByEvent(markets) {
		if len(group) < 2 {
			continue
		}
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				if opp, ok := s.scorePair(group[i], group[j], now); ok {
					opps = append(opps, opp)
				}
			}
		}
	}

	return opps
}

// groupByEvent partitions markets into candidate-event groups using
// single-linkage clustering: a market joins a group when it is the same
// event as at least one existing member, and groups that both match are
// merged. Equal event IDs alone are not trusted; the same event is often
// listed with slightly different question text across venues.
func (s *CrossMarket) groupByEvent(markets []models.Market) [][]models.Market {
	var groups [][]models.Market

	for i := range markets {
		m := markets[i]

		var matched []int
		for gi, group := range groups {
			for _, member := range group {
				if s.matcher.SameEvent(m.Question, member.Question) {
					matched = append(matched, gi)
					break
				}
			}
		}

		switch len(matched) {
		case 0:
			groups = append(groups, []models.Market{m})
		case 1:
			groups[matched[0]] = append(groups[matched[0]], m)
		default:
			// Merge all matched groups into the first, then add the market.
			dst := matched[0]
			for k := len(matched) - 1; k >= 1; k-- {
				src := matched[k]
				groups[dst] = append(groups[dst], groups[src]...)
				groups = append(groups[:src], groups[src+1:]...)
			}
			groups[dst] = append(groups[dst], m)
		}
	}

	return groups
}

// scorePair evaluates both leg combinations (Yes on A + No on B, and the
// reverse) and emits the more profitable direction when the combined price
// deviates from 1.0 beyond tolerance. Overpriced pairs (combined > 1) are
// surfaced with a negative profit estimate rather than suppressed, so the
// notifier can present them as informational.
func (s *CrossMarket) scorePair(a, b models.Market, now time.Time) (models.ArbitrageOpportunity, bool) {
	yesA, noA, okA := binaryYesNo(&a)
	yesB, noB, okB := binaryYesNo(&b)
	if !okA || !okB || a.ID == b.ID {
		return models.ArbitrageOpportunity{}, false
	}

	// profit = 1.0 - combined for each direction; take the better one.
	profitAB := 1.0 - (yesA + noB) // buy Yes on A, No on B
	profitBA := 1.0 - (yesB + noA) // buy Yes on B, No on A

	profit := profitAB
	yesLeg, noLeg := a, b
	yesPrice, noPrice := yesA, noB
	if profitBA > profitAB {
		profit = profitBA
		yesLeg, noLeg = b, a
		yesPrice, noPrice = yesB, noA
	}

	if math.Abs(profit) <= s.tolerance {
		return models.ArbitrageOpportunity{}, false
	}

	combined := 1.0 - profit
	var desc string
	if profit > 0 {
		desc = fmt.Sprintf("buy Yes at %.4f (%q) and No at %.4f (%q): cost %.4f for a 1.00 payout",
			yesPrice, yesLeg.Question, noPrice, noLeg.Question, combined)
	} else {
		desc = fmt.Sprintf("pair overpriced: Yes at %.4f (%q) plus No at %.4f (%q) sums to %.4f, not actionable",
			yesPrice, yesLeg.Question, noPrice, noLeg.Question, combined)
	}

	return models.ArbitrageOpportunity{
		ID:             uuid.New().String(),
		Type:           models.TypeCrossMarket,
		MarketIDs:      []string{yesLeg.ID, noLeg.ID},
		ProfitEstimate: profit,
		Description:    desc,
		DetectedAt:     now,
	}, true
}

// binaryYesNo extracts the Yes and No prices of a recognizably binary market.
// Markets with more than two outcomes have no well-defined complement and
// are skipped for this strategy. Outcome names match case-insensitively;
// anything outside the Yes/No vocabulary disqualifies the market.
func binaryYesNo(m *models.Market) (yes, no float64, ok bool) {
	if !m.IsBinary() {
		return 0, 0, false
	}
	yes, yesOK := m.OutcomePrice("yes")
	no, noOK := m.OutcomePrice("no")
	if !yesOK || !noOK {
		return 0, 0, false
	}
	return yes, no, true
}
