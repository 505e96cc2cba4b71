package formatter

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ismoilovdevml/webhook-bridge/internal/domain/destination"
	"github.com/ismoilovdevml/webhook-bridge/internal/domain/event"
)

// Message is a rendered notification, ready for a provider to put on the
// wire. Text is always set; ParseMode and Blocks are family-specific.
type Message struct {
	Text      string
	ParseMode string
	Blocks    []map[string]any
}

// Formatter renders a canonical event into one message family.
type Formatter interface {
	Format(e *event.Event) Message
}

// ForDestination maps a destination type onto its message family.
func ForDestination(dtype destination.Type) Formatter {
	switch dtype {
	case destination.TypeTelegram:
		return HTML{}
	case destination.TypeSlack:
		return SlackBlocks{}
	default:
		return Markdown{}
	}
}

// Render formats an event, degrading to a minimal plain-text message if the
// formatter panics on an unexpected payload shape. A malformed event must
// never take down a dispatch worker.
func Render(f Formatter, e *event.Event, logger *zap.Logger) (msg Message) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("formatter_panic_using_fallback",
				zap.String("platform", string(e.Platform)),
				zap.String("event_type", e.EventType),
				zap.Any("panic", r))
			msg = Fallback(e)
		}
	}()
	return f.Format(e)
}

// Fallback is the minimal message used when full rendering fails.
func Fallback(e *event.Event) Message {
	return Message{
		Text: fmt.Sprintf("%s %s in %s by %s",
			eventEmoji(e.EventType), titleize(e.EventType), e.Project, e.Author),
	}
}

// Rendering bounds shared by all families.
const (
	maxCommitsShown  = 3
	maxCommitMsgLen  = 80
	maxCommentShown  = 150
)

var eventEmojis = map[string]string{
	"push":          "📤",
	"pull_request":  "🔀",
	"merge_request": "🔀",
	"pipeline":      "🔧",
	"job":           "🔧",
	"issue":         "🐛",
	"comment":       "💬",
	"tag_push":      "🏷️",
	"release":       "🚀",
	"wiki":          "📝",
	"deployment":    "🚢",
}

func eventEmoji(eventType string) string {
	if e, ok := eventEmojis[eventType]; ok {
		return e
	}
	return "📋"
}

var statusEmojis = map[string]string{
	"success":   "✅",
	"passed":    "✅",
	"merged":    "✅",
	"failed":    "❌",
	"failure":   "❌",
	"error":     "❌",
	"running":   "⏳",
	"pending":   "⏳",
	"canceled":  "🚫",
	"cancelled": "🚫",
	"skipped":   "⏭️",
	"opened":    "🔓",
	"closed":    "🔒",
	"updated":   "📝",
}

func statusEmoji(status string) string {
	if e, ok := statusEmojis[strings.ToLower(status)]; ok {
		return e
	}
	return "ℹ️"
}

// titleize turns an event type slug into a heading: "merge_request"
// becomes "Merge Request".
func titleize(slug string) string {
	words := strings.Split(slug, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func clip(text string, max int) string {
	if len(text) <= max {
		return text
	}
	return text[:max-3] + "..."
}

// detailURL picks the most specific link an event carries.
func detailURL(e *event.Event) string {
	for _, u := range []string{
		e.MRURL, e.IssueURL, e.PipelineURL, e.CommentURL,
		e.ReleaseURL, e.DeploymentURL, e.DiscussionURL, e.AlertURL,
	} {
		if u != "" {
			return u
		}
	}
	return e.ProjectURL
}

func defaulted(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
