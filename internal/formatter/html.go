package formatter

import (
	"fmt"
	"strings"

	"github.com/ismoilovdevml/webhook-bridge/internal/domain/event"
)

// HTML renders Telegram-flavored HTML. Telegram accepts only a small tag
// subset, so everything user-controlled is escaped.
type HTML struct{}

func (HTML) Format(e *event.Event) Message {
	lines := []string{
		fmt.Sprintf("<b>%s %s</b>", eventEmoji(e.EventType), titleize(e.EventType)),
		"",
		"<b>Project:</b> " + escapeHTML(e.Project),
		"<b>Author:</b> " + escapeHTML(e.Author),
	}

	if branch := e.Branch(); branch != "" {
		lines = append(lines, "<b>Branch:</b> <code>"+escapeHTML(branch)+"</code>")
	}

	switch e.EventType {
	case "push":
		if len(e.Commits) > 0 {
			lines = append(lines, "", fmt.Sprintf("<b>Commits:</b> %d", len(e.Commits)))
			for _, c := range headCommits(e.Commits) {
				lines = append(lines, fmt.Sprintf("• <code>%s</code> %s",
					shortSHA(c.ID), escapeHTML(clip(c.Message, maxCommitMsgLen))))
			}
			if n := len(e.Commits) - maxCommitsShown; n > 0 {
				lines = append(lines, fmt.Sprintf("• ... and %d more", n))
			}
		}

	case "merge_request", "pull_request":
		status := defaulted(e.MRAction, "opened")
		lines = append(lines,
			fmt.Sprintf("<b>Status:</b> %s %s", statusEmoji(status), titleize(status)),
			"<b>Title:</b> "+escapeHTML(defaulted(e.MRTitle, "N/A")))
		if e.SourceBranch != "" && e.TargetBranch != "" {
			lines = append(lines, fmt.Sprintf("<b>Merge:</b> <code>%s</code> → <code>%s</code>",
				escapeHTML(e.SourceBranch), escapeHTML(e.TargetBranch)))
		}

	case "pipeline":
		status := defaulted(e.PipelineStatus, "unknown")
		lines = append(lines,
			fmt.Sprintf("<b>Status:</b> %s %s", statusEmoji(status), strings.ToUpper(status)))
		if e.PipelineDuration > 0 {
			lines = append(lines, fmt.Sprintf("<b>Duration:</b> %ds", e.PipelineDuration))
		}
		if len(e.PipelineStages) > 0 {
			lines = append(lines, "<b>Stages:</b> "+escapeHTML(strings.Join(e.PipelineStages, ", ")))
		}

	case "issue":
		action := defaulted(e.IssueAction, "opened")
		lines = append(lines,
			fmt.Sprintf("<b>Action:</b> %s %s", statusEmoji(action), titleize(action)),
			"<b>Title:</b> "+escapeHTML(defaulted(e.IssueTitle, "N/A")))

	case "comment", "commit_comment", "discussion_comment":
		lines = append(lines,
			"<b>Comment:</b> "+escapeHTML(clip(e.CommentBody, maxCommentShown)))

	case "release":
		lines = append(lines,
			"<b>Tag:</b> <code>"+escapeHTML(defaulted(e.ReleaseTag, "N/A"))+"</code>",
			"<b>Name:</b> "+escapeHTML(defaulted(e.ReleaseName, "N/A")))

	case "deployment":
		status := defaulted(e.DeploymentStatus, "pending")
		lines = append(lines,
			fmt.Sprintf("<b>Status:</b> %s %s", statusEmoji(status), titleize(status)),
			"<b>Environment:</b> "+escapeHTML(e.DeploymentEnvironment))
	}

	if url := detailURL(e); url != "" {
		lines = append(lines, "", fmt.Sprintf(`<a href="%s">View Details</a>`, url))
	}

	return Message{Text: strings.Join(lines, "\n"), ParseMode: "HTML"}
}

func headCommits(cs []event.Commit) []event.Commit {
	if len(cs) > maxCommitsShown {
		return cs[:maxCommitsShown]
	}
	return cs
}

func shortSHA(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
)

func escapeHTML(text string) string {
	return htmlEscaper.Replace(text)
}
