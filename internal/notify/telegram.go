package notify

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/arbiterhq/arbiter/internal/models"
)

// typeEmojis decorates alert headers by opportunity type.
var typeEmojis = map[models.OpportunityType]string{
	models.TypeProbabilitySum: "\U0001F4CA", // 📊
	models.TypeCrossMarket:    "\U0001F504", // 🔄
	models.TypeSpread:         "\U0001F4C8", // 📈
}

// Telegram sends opportunity alerts through the Telegram Bot API using
// MarkdownV2 formatting. Each opportunity becomes its own message so a
// delivery failure only loses that one alert.
type Telegram struct {
	bot            *tgbotapi.BotAPI
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
	logger         zerolog.Logger
}

// NewTelegram creates a Telegram notifier. The chat ID must be a numeric
// Telegram chat identifier.
func NewTelegram(botToken, chatID string, maxRetries int, retryDelayBase time.Duration, logger zerolog.Logger) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}

	return &Telegram{
		bot:            bot,
		chatID:         chatIDInt,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
		logger:         logger.With().Str("component", "telegram").Logger(),
	}, nil
}

// Notify sends one message per opportunity. It returns the number delivered;
// the error reports the last failure when any message could not be sent.
func (t *Telegram) Notify(ctx context.Context, opportunities []models.ArbitrageOpportunity) (int, error) {
	sent := 0
	var lastErr error

	for _, opp := range opportunities {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		if err := t.send(ctx, formatOpportunity(opp)); err != nil {
			t.logger.Error().Err(err).Str("opportunity_id", opp.ID).Msg("failed to deliver alert")
			lastErr = err
			continue
		}
		sent++
	}

	if lastErr != nil {
		return sent, fmt.Errorf("delivered %d of %d alerts: %w", sent, len(opportunities), lastErr)
	}
	return sent, nil
}

// SendError posts an operational failure notice to the alert channel.
func (t *Telegram) SendError(ctx context.Context, message string) error {
	text := fmt.Sprintf("⚠️ *Scan failure*\n\n%s", escapeMarkdownV2(message))
	return t.send(ctx, text)
}

// SendRecovery posts a notice that scanning resumed after failures.
func (t *Telegram) SendRecovery(ctx context.Context, failureCount int) error {
	text := fmt.Sprintf("✅ *Scanning recovered* after %d failed cycles", failureCount)
	return t.send(ctx, escapePreservingBold(text))
}

// send delivers a single MarkdownV2 message with linear-backoff retries.
func (t *Telegram) send(ctx context.Context, text string) error {
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = "MarkdownV2"

	var lastErr error
	for i := 0; i < t.maxRetries; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, err := t.bot.Send(msg)
		if err == nil {
			return nil
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(t.retryDelayBase * time.Duration(i+1)):
		}
	}

	return fmt.Errorf("failed to send message after %d retries: %w", t.maxRetries, lastErr)
}

// formatOpportunity renders an opportunity as a MarkdownV2 alert.
func formatOpportunity(opp models.ArbitrageOpportunity) string {
	emoji := typeEmojis[opp.Type]
	if emoji == "" {
		emoji = "\U0001F4B0" // 💰
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s *Arbitrage: %s*\n\n", emoji, escapeMarkdownV2(string(opp.Type)))
	fmt.Fprintf(&sb, "%s\n\n", escapeMarkdownV2(opp.Description))
	fmt.Fprintf(&sb, "\U0001F4B5 Estimated profit: *%s*\n", escapeMarkdownV2(fmt.Sprintf("%.1f%%", opp.ProfitEstimate*100)))
	fmt.Fprintf(&sb, "\U0001F3F7 Markets: %s\n", escapeMarkdownV2(strings.Join(opp.MarketIDs, ", ")))
	fmt.Fprintf(&sb, "\U0001F4C5 Detected: %s", escapeMarkdownV2(opp.DetectedAt.UTC().Format("2006-01-02 15:04:05")))
	return sb.String()
}

// escapeMarkdownV2 escapes the characters Telegram MarkdownV2 treats as
// syntax: _ * [ ] ( ) ~ ` > # + - = | { } . !
func escapeMarkdownV2(text string) string {
	var sb strings.Builder
	sb.Grow(len(text))
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			sb.WriteByte('\\')
		}
		sb.WriteRune(char)
	}
	return sb.String()
}

// escapePreservingBold escapes MarkdownV2 syntax except the asterisks used
// for bold spans in pre-built notice templates.
func escapePreservingBold(text string) string {
	var sb strings.Builder
	sb.Grow(len(text))
	for _, char := range text {
		switch char {
		case '_', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			sb.WriteByte('\\')
		}
		sb.WriteRune(char)
	}
	return sb.String()
}
