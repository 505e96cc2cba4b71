package provider

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ismoilovdevml/webhook-bridge/internal/formatter"
)

// Mattermost sends markdown through an Incoming Webhook.
type Mattermost struct {
	webhookURL string
	channel    string
	username   string
	iconURL    string
	deps       Deps
}

func NewMattermost(config map[string]string, deps Deps) (*Mattermost, error) {
	webhookURL, err := required(config, "mattermost", "webhook_url")
	if err != nil {
		return nil, err
	}
	return &Mattermost{
		webhookURL: webhookURL,
		channel:    config["channel"],
		username:   optional(config, "username", "Git Notifier"),
		iconURL:    config["icon_url"],
		deps:       deps,
	}, nil
}

func (m *Mattermost) Send(ctx context.Context, msg formatter.Message) error {
	if msg.Text == "" {
		return &SendError{Provider: "mattermost", Reason: "message text is empty"}
	}

	payload := map[string]any{
		"text":     msg.Text,
		"username": m.username,
	}
	if m.channel != "" {
		payload["channel"] = m.channel
	}
	if m.iconURL != "" {
		payload["icon_url"] = m.iconURL
	}

	status, body, err := postJSON(ctx, m.deps, m.webhookURL, payload)
	if err != nil {
		return &SendError{Provider: "mattermost", Reason: err.Error()}
	}
	if status != http.StatusOK {
		return &SendError{Provider: "mattermost", Reason: fmt.Sprintf("webhook returned %d: %s", status, body)}
	}
	return nil
}

func (m *Mattermost) TestConnection(ctx context.Context) error {
	return m.Send(ctx, formatter.Message{Text: "Test connection from Webhook Bridge"})
}
