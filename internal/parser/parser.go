package parser

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/ismoilovdevml/webhook-bridge/internal/domain/event"
)

// Error means a payload was too malformed to extract even minimal event
// identity. It surfaces as a 400 to the webhook caller; anything recoverable
// degrades to an "unknown" event instead.
type Error struct {
	Platform event.Platform
	Reason   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("parse %s webhook: %s", e.Platform, e.Reason)
}

// Parser turns a platform-specific webhook request into a canonical Event.
// Implementations route internally on the platform's kind discriminator
// through a kind→extraction registry.
type Parser interface {
	Platform() event.Platform
	CanParse(headers http.Header, payload Payload) bool
	Parse(headers http.Header, payload Payload) (*event.Event, error)
}

// extractFunc maps one event kind's payload nesting into a canonical Event.
type extractFunc func(p Payload) *event.Event

// Select picks the parser for a request. Detection is header-based first, in
// fixed priority order, with a payload-shape fallback second. It touches
// neither the database nor the network, so an unknown platform is rejected
// before any other work happens.
func Select(parsers []Parser, headers http.Header, payload Payload) (Parser, error) {
	for _, p := range parsers {
		if p.CanParse(headers, payload) {
			return p, nil
		}
	}
	return nil, fmt.Errorf(
		"unknown webhook platform: expected GitLab (X-Gitlab-Event), GitHub (X-GitHub-Event), or Bitbucket (X-Event-Key) headers")
}

// Default returns the parser set in detection priority order.
func Default() []Parser {
	return []Parser{NewGitLab(), NewGitHub(), NewBitbucket()}
}

// Payload is a decoded JSON webhook body. Accessors resolve missing or
// mistyped keys to benign zero values; the extraction layer never panics on
// partial payloads.
type Payload map[string]any

func (p Payload) Str(key string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return ""
}

func (p Payload) Int(key string) int {
	switch v := p[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

func (p Payload) Bool(key string) bool {
	v, _ := p[key].(bool)
	return v
}

func (p Payload) Map(key string) Payload {
	if v, ok := p[key].(map[string]any); ok {
		return Payload(v)
	}
	return Payload{}
}

func (p Payload) Slice(key string) []any {
	if v, ok := p[key].([]any); ok {
		return v
	}
	return nil
}

// StrOr returns the value at key, or def when absent or empty.
func (p Payload) StrOr(key, def string) string {
	if v := p.Str(key); v != "" {
		return v
	}
	return def
}

// Text truncation bounds. Descriptions and comment bodies are cut before
// they reach storage, both to bound row size and to keep chat messages short.
const (
	maxDescriptionLen = 200
	maxCommentLen     = 200
)

func truncate(text string, max int) string {
	text = strings.TrimSpace(text)
	if len(text) <= max {
		return text
	}
	return text[:max] + "..."
}

// commits converts a raw commit list, keeping the fields formatters render.
func commits(raw []any) []event.Commit {
	if len(raw) == 0 {
		return nil
	}
	out := make([]event.Commit, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		c := Payload(m)
		out = append(out, event.Commit{
			ID:      c.Str("id"),
			Message: c.Str("message"),
			URL:     c.StrOr("url", c.Str("html_url")),
			Author:  c.Map("author").Str("name"),
		})
	}
	return out
}

func stringSlice(raw []any) []string {
	if len(raw) == 0 {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
