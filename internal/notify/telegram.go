package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"

	"github.com/Guliveer/election-monitor-go/internal/model"
)

const (
	telegramAPIBase = "https://api.telegram.org"
	// telegramMaxText is the Bot API limit on message length.
	telegramMaxText = 4096
)

// Telegram sends notifications via the Telegram Bot API.
type Telegram struct {
	baseNotifier
	apiBase             string
	token               string
	chatID              string
	disableNotification bool
	httpClient          *http.Client
}

type telegramMessage struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
	DisableNotification   bool   `json:"disable_notification"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Send posts an HTML message to the configured chat. Connection alerts are
// delivered with sound; test messages are always silent.
func (t *Telegram) Send(ctx context.Context, event model.Event, title, message string) error {
	text := html.EscapeString(truncate(message, telegramMaxText-len(title)-16))
	if title != "" {
		text = "<b>" + html.EscapeString(title) + "</b>\n" + text
	}

	body, err := json.Marshal(telegramMessage{
		ChatID:                t.chatID,
		Text:                  text,
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
		DisableNotification:   t.silent(event),
	})
	if err != nil {
		return fmt.Errorf("telegram: marshal payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var r telegramResponse
		if json.Unmarshal(raw, &r) == nil && r.Description != "" {
			return fmt.Errorf("telegram: status %d: %s", resp.StatusCode, r.Description)
		}
		return fmt.Errorf("telegram: unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (t *Telegram) silent(event model.Event) bool {
	switch event {
	case model.EventTest:
		return true
	case model.EventPollingFallback, model.EventBootstrapFailed:
		return false
	default:
		return t.disableNotification
	}
}
