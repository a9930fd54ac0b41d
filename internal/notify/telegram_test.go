package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fr4nk3nst1ner/jobsleuth/internal/config"
	"github.com/fr4nk3nst1ner/jobsleuth/internal/models"
)

type sent struct {
	ChatID    string
	Text      string
	ParseMode string
}

type fakeBot struct {
	mu           sync.Mutex
	paths        []string
	messages     []sent
	rejectMarkup bool
	unauthorized bool
}

func (f *fakeBot) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	r.ParseForm()
	f.paths = append(f.paths, r.URL.Path)

	if f.unauthorized {
		fmt.Fprint(w, `{"ok":false,"error_code":401,"description":"Unauthorized"}`)
		return
	}
	if strings.HasSuffix(r.URL.Path, "/getMe") {
		fmt.Fprint(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"jobsleuth","username":"jobsleuth_bot"}}`)
		return
	}

	msg := sent{ChatID: r.Form.Get("chat_id"), Text: r.Form.Get("text"), ParseMode: r.Form.Get("parse_mode")}
	f.messages = append(f.messages, msg)

	if f.rejectMarkup && msg.ParseMode != "" {
		fmt.Fprint(w, `{"ok":false,"error_code":400,"description":"Bad Request: can't parse entities"}`)
		return
	}
	fmt.Fprint(w, `{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":42,"type":"private"}}}`)
}

func newNotifier(t *testing.T, bot *fakeBot) *Telegram {
	t.Helper()
	srv := httptest.NewServer(bot)
	t.Cleanup(srv.Close)

	n, err := NewTelegram(config.TelegramConfig{BotToken: "123:abc", ChatID: "42", APIURL: srv.URL}, srv.Client())
	require.NoError(t, err)
	n.batchDelay = 0
	return n
}

func results(n int) []models.SimilarityResult {
	out := make([]models.SimilarityResult, n)
	for i := range out {
		out[i] = models.SimilarityResult{
			Listing: models.JobListing{
				Title:    fmt.Sprintf("Programuotojas (Go) %d", i+1),
				Company:  "UAB Kodas",
				Location: "Vilnius",
				Salary:   models.NoValue,
				URL:      fmt.Sprintf("https://uzt.lt/%d", i+1),
			},
			Score: 0.5,
		}
	}
	return out
}

func TestFormatBatch(t *testing.T) {
	now := time.Date(2025, 4, 7, 8, 0, 0, 0, time.UTC)
	rs := results(2)

	text := FormatBatch("go-dev", rs, 0, 2, now)

	assert.Contains(t, text, "*2* new listing\\(s\\) matching profile *go\\-dev*")
	assert.Contains(t, text, "*1\\.* Programuotojas \\(Go\\) 1 \\(0\\.5000\\)")
	assert.Contains(t, text, "📍 Vilnius")
	assert.NotContains(t, text, "💰")
	assert.Contains(t, text, "[Skelbimas](https://uzt.lt/2)")
	assert.Contains(t, text, "📅 2025\\-04\\-07 08:00")

	middle := FormatBatch("go-dev", results(25), 10, 20, now)
	assert.NotContains(t, middle, "matching profile")
	assert.NotContains(t, middle, "📅")
	assert.Contains(t, middle, "*11\\.*")
}

func TestNotifyBatches(t *testing.T) {
	bot := &fakeBot{}
	n := newNotifier(t, bot)

	require.NoError(t, n.Notify(context.Background(), "default", results(23)))

	require.Len(t, bot.messages, 3)
	assert.Equal(t, "/bot123:abc/getMe", bot.paths[0])
	assert.Equal(t, "/bot123:abc/sendMessage", bot.paths[1])
	assert.Equal(t, "42", bot.messages[0].ChatID)
	assert.Equal(t, "MarkdownV2", bot.messages[0].ParseMode)
	assert.Contains(t, bot.messages[2].Text, "*23\\.*")
}

func TestNotifyNothing(t *testing.T) {
	bot := &fakeBot{}
	require.NoError(t, newNotifier(t, bot).Notify(context.Background(), "default", nil))
	assert.Empty(t, bot.messages)
}

func TestSendFallsBackToPlainText(t *testing.T) {
	bot := &fakeBot{rejectMarkup: true}
	n := newNotifier(t, bot)

	require.NoError(t, n.Send(context.Background(), "*Labas* \\(test\\)"))

	require.Len(t, bot.messages, 2)
	assert.Equal(t, "", bot.messages[1].ParseMode)
	assert.Equal(t, "Labas (test)", bot.messages[1].Text)
	assert.False(t, strings.Contains(bot.messages[1].Text, "*"))
}

func TestNewTelegramRejectsBadToken(t *testing.T) {
	srv := httptest.NewServer(&fakeBot{unauthorized: true})
	defer srv.Close()

	_, err := NewTelegram(config.TelegramConfig{BotToken: "bad", ChatID: "42", APIURL: srv.URL}, srv.Client())
	assert.ErrorContains(t, err, "Unauthorized")
}

func TestSendToChannel(t *testing.T) {
	bot := &fakeBot{}
	srv := httptest.NewServer(bot)
	defer srv.Close()

	n, err := NewTelegram(config.TelegramConfig{BotToken: "123:abc", ChatID: "@uzt_alerts", APIURL: srv.URL}, srv.Client())
	require.NoError(t, err)
	require.NoError(t, n.Send(context.Background(), "labas"))

	require.Len(t, bot.messages, 1)
	assert.Equal(t, "@uzt_alerts", bot.messages[0].ChatID)
}

func TestSendCancelled(t *testing.T) {
	bot := &fakeBot{}
	n := newNotifier(t, bot)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, n.Send(ctx, "labas"), context.Canceled)
	assert.Empty(t, bot.messages)
}
