package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/ismoilovdevml/webhook-bridge/internal/formatter"
)

// Telegram sends through the Bot API sendMessage endpoint.
type Telegram struct {
	apiURL    string
	chatID    string
	threadID  int
	parseMode string
	deps      Deps
}

// telegramAPIBase is overridable in tests.
var telegramAPIBase = "https://api.telegram.org"

func NewTelegram(config map[string]string, deps Deps) (*Telegram, error) {
	botToken, err := required(config, "telegram", "bot_token")
	if err != nil {
		return nil, err
	}
	chatID, err := required(config, "telegram", "chat_id")
	if err != nil {
		return nil, err
	}
	threadID, _ := strconv.Atoi(config["thread_id"])
	return &Telegram{
		apiURL:    fmt.Sprintf("%s/bot%s", telegramAPIBase, botToken),
		chatID:    chatID,
		threadID:  threadID,
		parseMode: optional(config, "parse_mode", "HTML"),
		deps:      deps,
	}, nil
}

func (t *Telegram) Send(ctx context.Context, msg formatter.Message) error {
	if msg.Text == "" {
		return &SendError{Provider: "telegram", Reason: "message text is empty"}
	}

	parseMode := msg.ParseMode
	if parseMode == "" {
		parseMode = t.parseMode
	}

	payload := map[string]any{
		"chat_id":                  t.chatID,
		"text":                     msg.Text,
		"parse_mode":               parseMode,
		"disable_web_page_preview": true,
	}
	if t.threadID != 0 {
		payload["message_thread_id"] = t.threadID
	}

	status, body, err := postJSON(ctx, t.deps, t.apiURL+"/sendMessage", payload)
	if err != nil {
		return &SendError{Provider: "telegram", Reason: err.Error()}
	}
	if status != http.StatusOK {
		return &SendError{Provider: "telegram", Reason: fmt.Sprintf("API returned %d: %s", status, body)}
	}

	var result struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal([]byte(body), &result); err != nil || !result.OK {
		return &SendError{Provider: "telegram", Reason: "API error: " + result.Description}
	}
	return nil
}

func (t *Telegram) TestConnection(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.apiURL+"/getMe", nil)
	if err != nil {
		return err
	}
	resp, err := t.deps.Client.Do(req)
	if err != nil {
		return &SendError{Provider: "telegram", Reason: err.Error()}
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	var result struct {
		OK bool `json:"ok"`
	}
	if resp.StatusCode != http.StatusOK || json.Unmarshal(data, &result) != nil || !result.OK {
		return &SendError{Provider: "telegram", Reason: "getMe failed: " + string(data)}
	}
	return nil
}
