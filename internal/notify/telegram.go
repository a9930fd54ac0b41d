// Package notify sends alerts about newly found matching listings.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/fr4nk3nst1ner/jobsleuth/internal/config"
	"github.com/fr4nk3nst1ner/jobsleuth/internal/logger"
	"github.com/fr4nk3nst1ner/jobsleuth/internal/models"
	"github.com/fr4nk3nst1ner/jobsleuth/internal/storage"
)

const batchSize = 10

// Telegram posts match alerts through the Bot API
type Telegram struct {
	bot        *tgbotapi.BotAPI
	chatID     string
	logger     *slog.Logger
	batchDelay time.Duration
}

// NewTelegram connects to the Bot API and checks the token. A nil client
// uses a 10 second timeout.
func NewTelegram(cfg config.TelegramConfig, httpClient *http.Client) (*Telegram, error) {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	endpoint := tgbotapi.APIEndpoint
	if cfg.APIURL != "" {
		endpoint = strings.TrimRight(cfg.APIURL, "/") + "/bot%s/%s"
	}

	bot, err := tgbotapi.NewBotAPIWithClient(cfg.BotToken, endpoint, httpClient)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram bot: %w", err)
	}
	return &Telegram{
		bot:        bot,
		chatID:     cfg.ChatID,
		logger:     logger.WithComponent("notify"),
		batchDelay: 2 * time.Second,
	}, nil
}

// Notify sends the results in batches of ten, with a pause between batches.
func (t *Telegram) Notify(ctx context.Context, profile string, results []models.SimilarityResult) error {
	if len(results) == 0 {
		return nil
	}

	for start := 0; start < len(results); start += batchSize {
		end := start + batchSize
		if end > len(results) {
			end = len(results)
		}

		text := FormatBatch(profile, results, start, end, time.Now())
		if err := t.Send(ctx, text); err != nil {
			return fmt.Errorf("sending batch %d-%d: %w", start+1, end, err)
		}

		if end < len(results) {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(t.batchDelay):
			}
		}
	}
	t.logger.Info("sent match alert", "profile", profile, "matches", len(results))
	return nil
}

// FormatBatch renders results[start:end] as a MarkdownV2 message. The first
// batch carries the header and the last one the timestamp.
func FormatBatch(profile string, results []models.SimilarityResult, start, end int, now time.Time) string {
	var sb strings.Builder
	if start == 0 {
		sb.WriteString("🎯 *jobsleuth*\n\n")
		sb.WriteString(fmt.Sprintf("*%d* new listing\\(s\\) matching profile *%s*\n\n", len(results), escapeMarkdown(profile)))
		sb.WriteString("━━━━━━━━━━━━━━━━━━━━\n\n")
	}

	for i, r := range results[start:end] {
		l := r.Listing
		sb.WriteString(fmt.Sprintf("*%d\\.* %s \\(%s\\)\n", start+i+1, escapeMarkdown(l.Title), escapeMarkdown(storage.FormatScore(r.Score))))
		sb.WriteString(fmt.Sprintf("   🏢 %s\n", escapeMarkdown(l.Company)))
		if l.Location != "" && l.Location != models.NoValue {
			sb.WriteString(fmt.Sprintf("   📍 %s\n", escapeMarkdown(l.Location)))
		}
		if l.Salary != "" && l.Salary != models.NoValue {
			sb.WriteString(fmt.Sprintf("   💰 %s\n", escapeMarkdown(l.Salary)))
		}
		sb.WriteString(fmt.Sprintf("   🔗 [Skelbimas](%s)\n\n", l.URL))
	}

	if end == len(results) {
		sb.WriteString("━━━━━━━━━━━━━━━━━━━━\n")
		sb.WriteString(fmt.Sprintf("📅 %s", escapeMarkdown(now.Format("2006-01-02 15:04"))))
	}
	return sb.String()
}

func escapeMarkdown(text string) string {
	replacer := strings.NewReplacer(
		"_", "\\_",
		"*", "\\*",
		"[", "\\[",
		"]", "\\]",
		"(", "\\(",
		")", "\\)",
		"~", "\\~",
		"`", "\\`",
		">", "\\>",
		"#", "\\#",
		"+", "\\+",
		"-", "\\-",
		"=", "\\=",
		"|", "\\|",
		"{", "\\{",
		"}", "\\}",
		".", "\\.",
		"!", "\\!",
	)
	return replacer.Replace(text)
}

func stripMarkdown(text string) string {
	replacer := strings.NewReplacer(
		"\\", "",
		"*", "",
		"_", "",
		"`", "",
		"[", "",
		"]", "",
	)
	return replacer.Replace(text)
}

// Send posts one message, retrying once as plain text when Telegram rejects
// the markdown.
func (t *Telegram) Send(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := t.newMessage(text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	_, err := t.bot.Send(msg)
	if err == nil {
		return nil
	}

	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) || apiErr.Code != http.StatusBadRequest {
		return fmt.Errorf("telegram sendMessage: %w", err)
	}

	t.logger.Warn("markdown message rejected, retrying as plain text", "error", apiErr.Message)
	if _, err := t.bot.Send(t.newMessage(stripMarkdown(text))); err != nil {
		return fmt.Errorf("telegram sendMessage (plain text): %w", err)
	}
	return nil
}

// newMessage addresses numeric chat ids directly and anything else as a
// channel username
func (t *Telegram) newMessage(text string) tgbotapi.MessageConfig {
	if id, err := strconv.ParseInt(t.chatID, 10, 64); err == nil {
		return tgbotapi.NewMessage(id, text)
	}
	return tgbotapi.NewMessageToChannel(t.chatID, text)
}
