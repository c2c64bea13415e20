package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Guliveer/election-monitor-go/internal/model"
)

// discordMaxDescription is the embed description limit.
const discordMaxDescription = 4096

var eventColors = map[model.Event]int{
	model.EventLeaderChanged:         0x2ECC71,
	model.EventHighImportanceInsight: 0x9B59B6,
	model.EventPollingFallback:       0xE67E22,
	model.EventConnectionRestored:    0x3498DB,
	model.EventBootstrapFailed:       0xE74C3C,
}

const defaultColor = 0x95A5A6

// Discord sends notifications via a Discord webhook.
type Discord struct {
	baseNotifier
	webhookURL string
	httpClient *http.Client
}

type discordEmbed struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Color       int            `json:"color"`
	Timestamp   string         `json:"timestamp"`
	Footer      discordFooter  `json:"footer"`
	Fields      []discordField `json:"fields,omitempty"`
}

type discordFooter struct {
	Text string `json:"text"`
}

type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type discordMessage struct {
	Username string         `json:"username"`
	Embeds   []discordEmbed `json:"embeds"`
}

// Send posts a single embed to the webhook, coloured by event.
func (d *Discord) Send(ctx context.Context, event model.Event, title, message string) error {
	color, ok := eventColors[event]
	if !ok {
		color = defaultColor
	}

	body, err := json.Marshal(discordMessage{
		Username: title,
		Embeds: []discordEmbed{{
			Title:       eventTitle(event),
			Description: truncate(message, discordMaxDescription),
			Color:       color,
			Timestamp:   time.Now().UTC().Format(time.RFC3339),
			Footer:      discordFooter{Text: string(event)},
		}},
	})
	if err != nil {
		return fmt.Errorf("discord: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("discord: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("discord: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("discord: unexpected status %d", resp.StatusCode)
	}
	return nil
}

func eventTitle(event model.Event) string {
	switch event {
	case model.EventLeaderChanged:
		return "Lead changed"
	case model.EventHighImportanceInsight:
		return "New insight"
	case model.EventPollingFallback:
		return "Live updates lost"
	case model.EventConnectionRestored:
		return "Live updates restored"
	case model.EventBootstrapFailed:
		return "Initial load failed"
	case model.EventTest:
		return "Test"
	default:
		return string(event)
	}
}
