package notify

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/arbiterhq/arbiter/internal/models"
)

// Console writes opportunity alerts as plain text. It backs the one-shot
// scanner and serves as the fallback when Telegram is disabled.
type Console struct {
	out io.Writer
}

// NewConsole creates a console notifier writing to out.
func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

// Notify prints each opportunity on its own block.
func (c *Console) Notify(ctx context.Context, opportunities []models.ArbitrageOpportunity) (int, error) {
	for i, opp := range opportunities {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		fmt.Fprintf(c.out, "[%s] %s\n", opp.Type, opp.Description)
		fmt.Fprintf(c.out, "  profit: %.1f%%  markets: %s  detected: %s\n\n",
			opp.ProfitEstimate*100,
			strings.Join(opp.MarketIDs, ", "),
			opp.DetectedAt.UTC().Format("2006-01-02 15:04:05"))
	}
	return len(opportunities), nil
}
