package formatter

import (
	"fmt"
	"strings"

	"github.com/ismoilovdevml/webhook-bridge/internal/domain/event"
)

// Markdown renders the plain Markdown family used by Mattermost, Discord
// and email bodies.
type Markdown struct{}

func (Markdown) Format(e *event.Event) Message {
	lines := []string{
		fmt.Sprintf("### %s %s", eventEmoji(e.EventType), titleize(e.EventType)),
		"",
		"**Project:** " + e.Project,
		"**Author:** " + e.Author,
	}

	if branch := e.Branch(); branch != "" {
		lines = append(lines, "**Branch:** `"+branch+"`")
	}

	switch e.EventType {
	case "push":
		if len(e.Commits) > 0 {
			lines = append(lines, "", fmt.Sprintf("**Commits:** %d", len(e.Commits)))
			for _, c := range headCommits(e.Commits) {
				lines = append(lines, fmt.Sprintf("- `%s` %s",
					shortSHA(c.ID), clip(c.Message, maxCommitMsgLen)))
			}
			if n := len(e.Commits) - maxCommitsShown; n > 0 {
				lines = append(lines, fmt.Sprintf("- ... and %d more", n))
			}
		}

	case "merge_request", "pull_request":
		status := defaulted(e.MRAction, "opened")
		lines = append(lines,
			fmt.Sprintf("**Status:** %s %s", statusEmoji(status), titleize(status)),
			"**Title:** "+defaulted(e.MRTitle, "N/A"))
		if e.SourceBranch != "" && e.TargetBranch != "" {
			lines = append(lines, fmt.Sprintf("**Merge:** `%s` → `%s`", e.SourceBranch, e.TargetBranch))
		}

	case "pipeline":
		status := defaulted(e.PipelineStatus, "unknown")
		lines = append(lines,
			fmt.Sprintf("**Status:** %s %s", statusEmoji(status), strings.ToUpper(status)))
		if e.PipelineDuration > 0 {
			lines = append(lines, fmt.Sprintf("**Duration:** %ds", e.PipelineDuration))
		}

	case "issue":
		action := defaulted(e.IssueAction, "opened")
		lines = append(lines,
			fmt.Sprintf("**Action:** %s %s", statusEmoji(action), titleize(action)),
			"**Title:** "+defaulted(e.IssueTitle, "N/A"))

	case "comment", "commit_comment", "discussion_comment":
		lines = append(lines, "**Comment:** "+clip(e.CommentBody, maxCommentShown))

	case "release":
		lines = append(lines,
			"**Tag:** `"+defaulted(e.ReleaseTag, "N/A")+"`",
			"**Name:** "+defaulted(e.ReleaseName, "N/A"))

	case "deployment":
		status := defaulted(e.DeploymentStatus, "pending")
		lines = append(lines,
			fmt.Sprintf("**Status:** %s %s", statusEmoji(status), titleize(status)),
			"**Environment:** "+e.DeploymentEnvironment)
	}

	if url := detailURL(e); url != "" {
		lines = append(lines, "", fmt.Sprintf("[View Details](%s)", url))
	}

	return Message{Text: strings.Join(lines, "\n")}
}
