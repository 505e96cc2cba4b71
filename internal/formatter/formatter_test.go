package formatter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ismoilovdevml/webhook-bridge/internal/domain/destination"
	"github.com/ismoilovdevml/webhook-bridge/internal/domain/event"
)

func pushEvent() *event.Event {
	return &event.Event{
		Platform:   event.PlatformGitLab,
		EventType:  "push",
		Project:    "group/app",
		ProjectURL: "https://gitlab.example/group/app",
		Author:     "Alice",
		Ref:        "main",
		Commits: []event.Commit{
			{ID: "abc123def456", Message: "fix <script> bug", Author: "Alice"},
			{ID: "111122223333", Message: "second", Author: "Bob"},
			{ID: "444455556666", Message: "third", Author: "Bob"},
			{ID: "777788889999", Message: "fourth", Author: "Bob"},
		},
		CommitCount: 4,
	}
}

func TestForDestination(t *testing.T) {
	assert.IsType(t, HTML{}, ForDestination(destination.TypeTelegram))
	assert.IsType(t, SlackBlocks{}, ForDestination(destination.TypeSlack))
	assert.IsType(t, Markdown{}, ForDestination(destination.TypeDiscord))
	assert.IsType(t, Markdown{}, ForDestination(destination.TypeMattermost))
	assert.IsType(t, Markdown{}, ForDestination(destination.TypeEmail))
}

func TestHTML_Push(t *testing.T) {
	msg := HTML{}.Format(pushEvent())

	assert.Equal(t, "HTML", msg.ParseMode)
	assert.Contains(t, msg.Text, "<b>📤 Push</b>")
	assert.Contains(t, msg.Text, "<b>Project:</b> group/app")
	assert.Contains(t, msg.Text, "<b>Branch:</b> <code>main</code>")
	assert.Contains(t, msg.Text, "<code>abc123de</code>")
	assert.Contains(t, msg.Text, "... and 1 more")
	// HTML in commit messages must be escaped.
	assert.Contains(t, msg.Text, "fix &lt;script&gt; bug")
	assert.NotContains(t, msg.Text, "<script>")
}

func TestHTML_MergeRequest(t *testing.T) {
	msg := HTML{}.Format(&event.Event{
		Platform:     event.PlatformGitLab,
		EventType:    "merge_request",
		Project:      "group/app",
		Author:       "Alice",
		MRTitle:      "Add caching",
		MRAction:     "merged",
		MRURL:        "https://gitlab.example/mr/42",
		SourceBranch: "feature/cache",
		TargetBranch: "main",
	})

	assert.Contains(t, msg.Text, "✅ Merged")
	assert.Contains(t, msg.Text, "<code>feature/cache</code> → <code>main</code>")
	assert.Contains(t, msg.Text, `<a href="https://gitlab.example/mr/42">View Details</a>`)
}

func TestMarkdown_Pipeline(t *testing.T) {
	msg := Markdown{}.Format(&event.Event{
		Platform:         event.PlatformGitHub,
		EventType:        "pipeline",
		Project:          "octocat/hello",
		Author:           "octocat",
		Ref:              "main",
		PipelineStatus:   "failed",
		PipelineDuration: 95,
		PipelineURL:      "https://github.com/octocat/hello/actions/runs/5",
	})

	assert.Empty(t, msg.ParseMode)
	assert.Contains(t, msg.Text, "### 🔧 Pipeline")
	assert.Contains(t, msg.Text, "❌ FAILED")
	assert.Contains(t, msg.Text, "**Duration:** 95s")
	assert.Contains(t, msg.Text, "[View Details](https://github.com/octocat/hello/actions/runs/5)")
}

func TestSlackBlocks_Push(t *testing.T) {
	msg := SlackBlocks{}.Format(pushEvent())

	require.NotEmpty(t, msg.Blocks)
	assert.Equal(t, "header", msg.Blocks[0]["type"])
	assert.Contains(t, msg.Text, "📤 Push in group/app by Alice")

	// Last block is the View Details button.
	last := msg.Blocks[len(msg.Blocks)-1]
	assert.Equal(t, "actions", last["type"])
}

func TestSlackBlocks_IssueWithoutURL(t *testing.T) {
	msg := SlackBlocks{}.Format(&event.Event{
		Platform:    event.PlatformGitHub,
		EventType:   "issue",
		Project:     "octocat/hello",
		Author:      "octocat",
		IssueTitle:  "Crash on start",
		IssueAction: "opened",
	})

	for _, b := range msg.Blocks {
		assert.NotEqual(t, "actions", b["type"])
	}
}

func TestRender_PanicFallsBack(t *testing.T) {
	e := pushEvent()
	msg := Render(panicking{}, e, zap.NewNop())

	assert.Equal(t, Fallback(e), msg)
	assert.Contains(t, msg.Text, "group/app")
}

type panicking struct{}

func (panicking) Format(*event.Event) Message { panic("boom") }

func TestTitleize(t *testing.T) {
	assert.Equal(t, "Merge Request", titleize("merge_request"))
	assert.Equal(t, "Push", titleize("push"))
	assert.Equal(t, "Unknown", titleize("unknown"))
}

func TestEmojiFallbacks(t *testing.T) {
	assert.Equal(t, "📋", eventEmoji("never_heard_of_it"))
	assert.Equal(t, "ℹ️", statusEmoji("mystery"))
	assert.Equal(t, "✅", statusEmoji("SUCCESS"))
}
