// Package telegram provides a client for sending scan alerts via Telegram Bot API.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/mhkarimi/coinscout/internal/models"
)

// Client handles Telegram notifications.
type Client struct {
	bot            *tgbotapi.BotAPI
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
}

// NewClient creates a new Telegram client.
func NewClient(botToken, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
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

	return &Client{
		bot:            bot,
		chatID:         chatIDInt,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}, nil
}

// ListenForCommands starts a goroutine that polls for Telegram updates and handles bot commands.
// It returns immediately; the goroutine stops when ctx is cancelled.
func (c *Client) ListenForCommands(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := c.bot.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case <-ctx.Done():
				c.bot.StopReceivingUpdates()
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				if update.Message != nil && update.Message.IsCommand() {
					c.handleCommand(update.Message)
				}
			}
		}
	}()
}

func (c *Client) handleCommand(msg *tgbotapi.Message) {
	switch msg.Command() {
	case "ping":
		reply := tgbotapi.NewMessage(msg.Chat.ID, "Pong")
		c.bot.Send(reply) //nolint:errcheck
	}
}

// sendMarkdownV2 sends a MarkdownV2 message with linear-backoff retry.
func (c *Client) sendMarkdownV2(text string) error {
	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.ParseMode = "MarkdownV2"

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		if _, err := c.bot.Send(msg); err == nil {
			return nil
		} else {
			lastErr = err
		}
		time.Sleep(c.retryDelayBase * time.Duration(i+1))
	}
	return fmt.Errorf("failed after %d retries: %w", c.maxRetries, lastErr)
}

// SendError sends a scan error notification.
// Call this only on the first occurrence of a consecutive error sequence.
func (c *Client) SendError(cycleErr error) error {
	text := fmt.Sprintf("⚠️ *Scan error*\n`%s`", escapeMarkdownV2(cycleErr.Error()))
	return c.sendMarkdownV2(text)
}

// SendRecovery sends a recovery notification after consecutive failures.
func (c *Client) SendRecovery(failureCount int) error {
	text := fmt.Sprintf("✅ *Scanning recovered* after %d consecutive failure\\(s\\)", failureCount)
	return c.sendMarkdownV2(text)
}

// Send sends a notification with the top-scored tokens for one timeframe.
func (c *Client) Send(timeframe string, tokens []models.ScoredToken) error {
	return c.sendMarkdownV2(c.formatMessage(timeframe, tokens))
}

// formatMessage formats scored tokens into a Telegram MarkdownV2 message.
func (c *Client) formatMessage(timeframe string, tokens []models.ScoredToken) string {
	message := fmt.Sprintf("🏆 *Top Crypto Opportunities* \\[%s\\]\n", escapeMarkdownV2(timeframe))
	message += fmt.Sprintf("⏰ %s\n\n", escapeMarkdownV2(time.Now().UTC().Format("2006-01-02 15:04:05")))

	for i, token := range tokens {
		emoji := scoreEmoji(token.Score)

		message += fmt.Sprintf("%s *%d\\. %s* \\(%s\\)\n",
			emoji, i+1, escapeMarkdownV2(token.Name), escapeMarkdownV2(token.Symbol))
		message += fmt.Sprintf("   💰 Price: %s\n", escapeMarkdownV2(formatPrice(token.Price)))
		message += fmt.Sprintf("   📊 Score: %s \\- Risk: %s\n",
			escapeMarkdownV2(fmt.Sprintf("%.1f/100", token.Score)), token.Risk)
		message += fmt.Sprintf("   📈 1h: %s \\| 24h: %s \\| 7d: %s\n",
			escapeMarkdownV2(fmt.Sprintf("%+.1f%%", token.Change1h)),
			escapeMarkdownV2(fmt.Sprintf("%+.1f%%", token.Change24h)),
			escapeMarkdownV2(fmt.Sprintf("%+.1f%%", token.Change7d)))
		message += fmt.Sprintf("   💧 Volume: %s\n", escapeMarkdownV2(fmt.Sprintf("$%.0f", token.Volume)))

		if factors := topFactors(token.Factors, 3); len(factors) > 0 {
			message += fmt.Sprintf("   🎯 %s\n", escapeMarkdownV2(strings.Join(factors, ", ")))
		}
		if len(token.Signals) > 0 {
			message += fmt.Sprintf("   📡 %s\n", escapeMarkdownV2(strings.Join(token.Signals, ", ")))
		}
		message += "\n"
	}

	message += fmt.Sprintf("💡 _source: %s_", escapeMarkdownV2(sourcesLine(tokens)))
	return message
}

func scoreEmoji(score float64) string {
	switch {
	case score >= 80:
		return "🔥"
	case score >= 60:
		return "⚡"
	default:
		return "💎"
	}
}

// formatPrice keeps extra precision for sub-dollar tokens.
func formatPrice(price float64) string {
	if price < 1 {
		return fmt.Sprintf("$%.4f", price)
	}
	return fmt.Sprintf("$%.2f", price)
}

func topFactors(factors []string, n int) []string {
	if len(factors) > n {
		return factors[:n]
	}
	return factors
}

func sourcesLine(tokens []models.ScoredToken) string {
	seen := make(map[string]bool)
	var sources []string
	for _, t := range tokens {
		if t.Source == "" || seen[t.Source] {
			continue
		}
		seen[t.Source] = true
		sources = append(sources, t.Source)
	}
	if len(sources) == 0 {
		return "unknown"
	}
	return strings.Join(sources, ", ")
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2.
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/4) // pre-allocate with room for escapes
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
