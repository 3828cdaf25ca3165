// Package polymarket fetches market listings and order book summaries from
// the Polymarket Gamma and CLOB APIs and converts them into the internal
// market model. The client is the engine's only data source: it returns a
// typed, de-duplicated list of markets with outcome prices, and optionally
// enriches them with best bid/ask derived from CLOB spread and midpoint
// data.
package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/arbiterhq/arbiter/internal/models"
)

const (
	pageSize       = 100
	tokenBatchSize = 100
	enrichWorkers  = 4
)

// Client provides access to the Polymarket APIs with request pacing and
// retry on transient failures.
type Client struct {
	gammaURL   string
	clobURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries uint64
	logger     zerolog.Logger
}

// gammaMarket mirrors the Gamma API market payload. Outcome names, prices,
// and token IDs arrive as JSON-encoded strings inside the JSON document.
type gammaMarket struct {
	ID            string  `json:"id"`
	ConditionID   string  `json:"conditionId"`
	Question      string  `json:"question"`
	Outcomes      string  `json:"outcomes"`
	OutcomePrices string  `json:"outcomePrices"`
	ClobTokenIDs  string  `json:"clobTokenIds"`
	Volume        float64 `json:"volumeNum"`
	Liquidity     float64 `json:"liquidityNum"`
	Active        bool    `json:"active"`
	Closed        bool    `json:"closed"`
}

// NewClient creates a Polymarket client. requestsPerSec paces all outgoing
// calls; maxRetries bounds the exponential backoff on transient failures.
func NewClient(gammaURL, clobURL string, timeout time.Duration, maxRetries, requestsPerSec int, logger zerolog.Logger) *Client {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if requestsPerSec <= 0 {
		requestsPerSec = 5
	}

	return &Client{
		gammaURL:   gammaURL,
		clobURL:    clobURL,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSec), requestsPerSec),
		maxRetries: uint64(maxRetries),
		logger:     logger.With().Str("component", "polymarket").Logger(),
	}
}

// FetchMarkets pages through active Gamma markets ordered by volume until
// maxMarkets are collected or the listing is exhausted. Markets below
// minVolume, closed markets, and unparseable payloads are skipped; results
// are de-duplicated by market ID.
func (c *Client) FetchMarkets(ctx context.Context, minVolume float64, maxMarkets int) ([]models.Market, error) {
	var markets []models.Market
	seen := make(map[string]bool)
	tokensByMarket := make(map[string]string)

	for offset := 0; len(markets) < maxMarkets; offset += pageSize {
		batch, err := c.fetchPage(ctx, offset, minVolume)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch markets page at offset %d: %w", offset, err)
		}
		if len(batch) == 0 {
			break
		}

		for _, gm := range batch {
			if gm.Closed || !gm.Active || gm.Volume < minVolume {
				continue
			}
			if seen[gm.ID] {
				continue
			}

			m, yesToken, err := convertMarket(gm)
			if err != nil {
				c.logger.Warn().Err(err).Str("market_id", gm.ID).Msg("skipping unparseable market")
				continue
			}

			seen[gm.ID] = true
			tokensByMarket[m.ID] = yesToken
			markets = append(markets, m)
			if len(markets) >= maxMarkets {
				break
			}
		}

		if len(batch) < pageSize {
			break
		}
	}

	c.enrichOrderBooks(ctx, markets, tokensByMarket)

	c.logger.Info().Int("count", len(markets)).Msg("markets fetched")
	return markets, nil
}

func (c *Client) fetchPage(ctx context.Context, offset int, minVolume float64) ([]gammaMarket, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(pageSize))
	params.Set("offset", strconv.Itoa(offset))
	params.Set("closed", "false")
	params.Set("order", "volume")
	params.Set("ascending", "false")
	if minVolume > 0 {
		params.Set("volume_num_min", strconv.FormatFloat(minVolume, 'f', -1, 64))
	}

	var batch []gammaMarket
	if err := c.getJSON(ctx, c.gammaURL+"/markets?"+params.Encode(), &batch); err != nil {
		return nil, err
	}
	return batch, nil
}

// convertMarket parses the JSON-encoded outcome arrays of a Gamma market
// payload into the internal model. It also returns the CLOB token ID of the
// first (Yes) outcome, used later for order book enrichment.
func convertMarket(gm gammaMarket) (models.Market, string, error) {
	var names []string
	if err := json.Unmarshal([]byte(gm.Outcomes), &names); err != nil {
		return models.Market{}, "", fmt.Errorf("bad outcomes field: %w", err)
	}

	var priceStrs []string
	if err := json.Unmarshal([]byte(gm.OutcomePrices), &priceStrs); err != nil {
		return models.Market{}, "", fmt.Errorf("bad outcomePrices field: %w", err)
	}
	if len(names) == 0 || len(names) != len(priceStrs) {
		return models.Market{}, "", fmt.Errorf("outcome names and prices mismatch: %d vs %d", len(names), len(priceStrs))
	}

	outcomes := make([]models.Outcome, len(names))
	for i, name := range names {
		price, err := strconv.ParseFloat(priceStrs[i], 64)
		if err != nil {
			return models.Market{}, "", fmt.Errorf("bad outcome price %q: %w", priceStrs[i], err)
		}
		outcomes[i] = models.Outcome{Name: name, Price: price}
	}

	var yesToken string
	if gm.ClobTokenIDs != "" {
		var tokens []string
		if err := json.Unmarshal([]byte(gm.ClobTokenIDs), &tokens); err == nil && len(tokens) > 0 {
			yesToken = tokens[0]
		}
	}

	return models.Market{
		ID:        gm.ID,
		EventID:   gm.ConditionID,
		Question:  gm.Question,
		Outcomes:  outcomes,
		Volume:    gm.Volume,
		Liquidity: gm.Liquidity,
		Active:    gm.Active,
	}, yesToken, nil
}

// enrichOrderBooks derives best bid/ask for each market from CLOB spread and
// midpoint data (bid = mid - spread/2, ask = mid + spread/2). Token batches
// are fetched concurrently; a failed batch leaves its markets without book
// data, which only disables the spread strategy for them.
func (c *Client) enrichOrderBooks(ctx context.Context, markets []models.Market, tokensByMarket map[string]string) {
	var tokens []string
	marketByToken := make(map[string]int)
	for i := range markets {
		token := tokensByMarket[markets[i].ID]
		if token == "" {
			continue
		}
		tokens = append(tokens, token)
		marketByToken[token] = i
	}
	if len(tokens) == 0 {
		return
	}

	var mu sync.Mutex
	spreads := make(map[string]float64)
	midpoints := make(map[string]float64)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(enrichWorkers)

	for start := 0; start < len(tokens); start += tokenBatchSize {
		end := start + tokenBatchSize
		if end > len(tokens) {
			end = len(tokens)
		}
		chunk := tokens[start:end]

		g.Go(func() error {
			s, err := c.fetchTokenValues(gctx, "/spreads", "spread", chunk)
			if err != nil {
				c.logger.Warn().Err(err).Msg("spread batch failed")
				return nil
			}
			m, err := c.fetchTokenValues(gctx, "/midpoints", "price", chunk)
			if err != nil {
				c.logger.Warn().Err(err).Msg("midpoint batch failed")
				return nil
			}

			mu.Lock()
			for k, v := range s {
				spreads[k] = v
			}
			for k, v := range m {
				midpoints[k] = v
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	enriched := 0
	for token, idx := range marketByToken {
		spread, okS := spreads[token]
		mid, okM := midpoints[token]
		if !okS || !okM || spread < 0 {
			continue
		}
		bid := clamp01(mid - spread/2)
		ask := clamp01(mid + spread/2)
		markets[idx].BestBid = &bid
		markets[idx].BestAsk = &ask
		enriched++
	}
	c.logger.Debug().Int("enriched", enriched).Int("tokens", len(tokens)).Msg("order book enrichment complete")
}

// fetchTokenValues calls a CLOB batch endpoint that returns a list of
// {token_id, <field>} objects and maps token ID to the numeric field value.
func (c *Client) fetchTokenValues(ctx context.Context, path, field string, tokenIDs []string) (map[string]float64, error) {
	params := url.Values{}
	for _, id := range tokenIDs {
		params.Add("token_id", id)
	}

	var entries []map[string]string
	if err := c.getJSON(ctx, c.clobURL+path+"?"+params.Encode(), &entries); err != nil {
		return nil, err
	}

	result := make(map[string]float64, len(entries))
	for _, entry := range entries {
		id := entry["token_id"]
		raw := entry[field]
		if id == "" || raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		result[id] = v
	}
	return result, nil
}

// getJSON performs a rate-limited GET with exponential backoff on network
// errors and 5xx responses, decoding the body into out.
func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return fmt.Errorf("server error: %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("unexpected status: %d", resp.StatusCode))
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode response: %w", err))
		}
		return nil
	}

	strategy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries)
	return backoff.Retry(operation, backoff.WithContext(strategy, ctx))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
