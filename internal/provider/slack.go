package provider

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ismoilovdevml/webhook-bridge/internal/formatter"
)

// Slack sends through an Incoming Webhook. Slack acknowledges success with a
// literal "ok" body, so the status code alone is not enough.
type Slack struct {
	webhookURL string
	channel    string
	username   string
	iconEmoji  string
	deps       Deps
}

func NewSlack(config map[string]string, deps Deps) (*Slack, error) {
	webhookURL, err := required(config, "slack", "webhook_url")
	if err != nil {
		return nil, err
	}
	return &Slack{
		webhookURL: webhookURL,
		channel:    config["channel"],
		username:   optional(config, "username", "Git Notifier"),
		iconEmoji:  optional(config, "icon_emoji", ":rocket:"),
		deps:       deps,
	}, nil
}

func (s *Slack) Send(ctx context.Context, msg formatter.Message) error {
	payload := map[string]any{
		"username":   s.username,
		"icon_emoji": s.iconEmoji,
	}
	if s.channel != "" {
		payload["channel"] = s.channel
	}

	switch {
	case len(msg.Blocks) > 0:
		payload["blocks"] = msg.Blocks
		payload["text"] = defaultText(msg.Text, "New notification")
	case msg.Text != "":
		payload["text"] = msg.Text
	default:
		return &SendError{Provider: "slack", Reason: "message has neither blocks nor text"}
	}

	status, body, err := postJSON(ctx, s.deps, s.webhookURL, payload)
	if err != nil {
		return &SendError{Provider: "slack", Reason: err.Error()}
	}
	if status != http.StatusOK {
		return &SendError{Provider: "slack", Reason: fmt.Sprintf("webhook returned %d: %s", status, body)}
	}
	if body != "ok" {
		return &SendError{Provider: "slack", Reason: "unexpected response: " + body}
	}
	return nil
}

func (s *Slack) TestConnection(ctx context.Context) error {
	return s.Send(ctx, formatter.Message{Text: "Test connection from Webhook Bridge"})
}

func defaultText(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
