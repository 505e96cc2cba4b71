package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ismoilovdevml/webhook-bridge/internal/formatter"
)

// Discord sends webhook embeds. A plain markdown message is lifted into one
// embed whose color tracks the outcome the text describes.
type Discord struct {
	webhookURL string
	username   string
	avatarURL  string
	deps       Deps
}

// Discord field limits.
const (
	discordTitleLimit = 256
	discordDescLimit  = 4096
)

// Embed colors (RGB).
const (
	colorGreen  = 0x2ECC71
	colorRed    = 0xE74C3C
	colorYellow = 0xF39C12
	colorBlue   = 0x3498DB
)

func NewDiscord(config map[string]string, deps Deps) (*Discord, error) {
	webhookURL, err := required(config, "discord", "webhook_url")
	if err != nil {
		return nil, err
	}
	return &Discord{
		webhookURL: webhookURL,
		username:   optional(config, "username", "Git Notifier"),
		avatarURL:  config["avatar_url"],
		deps:       deps,
	}, nil
}

func (d *Discord) Send(ctx context.Context, msg formatter.Message) error {
	if msg.Text == "" {
		return &SendError{Provider: "discord", Reason: "message text is empty"}
	}

	payload := map[string]any{
		"username": d.username,
		"embeds":   []map[string]any{buildEmbed(msg.Text)},
	}
	if d.avatarURL != "" {
		payload["avatar_url"] = d.avatarURL
	}

	status, body, err := postJSON(ctx, d.deps, d.webhookURL, payload)
	if err != nil {
		return &SendError{Provider: "discord", Reason: err.Error()}
	}
	// Discord answers 204 No Content on success.
	if status != http.StatusOK && status != http.StatusNoContent {
		return &SendError{Provider: "discord", Reason: fmt.Sprintf("webhook returned %d: %s", status, body)}
	}
	return nil
}

func (d *Discord) TestConnection(ctx context.Context) error {
	return d.Send(ctx, formatter.Message{Text: "Test Connection\nTest connection from Webhook Bridge"})
}

func buildEmbed(text string) map[string]any {
	title, description := text, ""
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		title, description = text[:i], text[i+1:]
	}
	title = strings.Trim(title, "#* ")
	if len(title) > discordTitleLimit {
		title = title[:discordTitleLimit]
	}
	if len(description) > discordDescLimit {
		description = description[:discordDescLimit]
	}

	return map[string]any{
		"title":       title,
		"description": description,
		"color":       embedColor(text),
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	}
}

func embedColor(text string) int {
	lower := strings.ToLower(text)
	switch {
	case containsAny(lower, "✅", "success", "merged", "passed"):
		return colorGreen
	case containsAny(lower, "❌", "failed", "error", "failure"):
		return colorRed
	case containsAny(lower, "⏳", "running", "pending", "warning"):
		return colorYellow
	}
	return colorBlue
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
