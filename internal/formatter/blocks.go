package formatter

import (
	"fmt"
	"strings"

	"github.com/ismoilovdevml/webhook-bridge/internal/domain/event"
)

// SlackBlocks renders Slack Block Kit payloads with a plain-text fallback
// for notification previews.
type SlackBlocks struct{}

func (SlackBlocks) Format(e *event.Event) Message {
	blocks := []map[string]any{
		{
			"type": "header",
			"text": map[string]any{
				"type":  "plain_text",
				"text":  fmt.Sprintf("%s %s", eventEmoji(e.EventType), titleize(e.EventType)),
				"emoji": true,
			},
		},
	}

	fields := []map[string]any{
		mrkdwn("*Project:*\n" + e.Project),
		mrkdwn("*Author:*\n" + e.Author),
	}
	if branch := e.Branch(); branch != "" {
		fields = append(fields, mrkdwn("*Branch:*\n`"+branch+"`"))
	}
	blocks = append(blocks, map[string]any{"type": "section", "fields": fields})

	switch e.EventType {
	case "push":
		if len(e.Commits) > 0 {
			lines := []string{fmt.Sprintf("*Commits:* %d", len(e.Commits))}
			for _, c := range headCommits(e.Commits) {
				lines = append(lines, fmt.Sprintf("• `%s` %s",
					shortSHA(c.ID), clip(c.Message, maxCommitMsgLen)))
			}
			if n := len(e.Commits) - maxCommitsShown; n > 0 {
				lines = append(lines, fmt.Sprintf("• ... and %d more", n))
			}
			blocks = append(blocks, textSection(strings.Join(lines, "\n")))
		}

	case "merge_request", "pull_request":
		status := defaulted(e.MRAction, "opened")
		mrFields := []map[string]any{
			mrkdwn(fmt.Sprintf("*Status:*\n%s %s", statusEmoji(status), titleize(status))),
		}
		if e.SourceBranch != "" && e.TargetBranch != "" {
			mrFields = append(mrFields,
				mrkdwn(fmt.Sprintf("*Merge:*\n`%s` → `%s`", e.SourceBranch, e.TargetBranch)))
		}
		blocks = append(blocks, map[string]any{"type": "section", "fields": mrFields})
		if e.MRTitle != "" {
			blocks = append(blocks, textSection("*Title:*\n"+e.MRTitle))
		}

	case "pipeline":
		status := defaulted(e.PipelineStatus, "unknown")
		pFields := []map[string]any{
			mrkdwn(fmt.Sprintf("*Status:*\n%s %s", statusEmoji(status), strings.ToUpper(status))),
		}
		if e.PipelineDuration > 0 {
			pFields = append(pFields, mrkdwn(fmt.Sprintf("*Duration:*\n%ds", e.PipelineDuration)))
		}
		blocks = append(blocks, map[string]any{"type": "section", "fields": pFields})
		if len(e.PipelineStages) > 0 {
			blocks = append(blocks, textSection("*Stages:*\n"+strings.Join(e.PipelineStages, ", ")))
		}

	case "issue":
		action := defaulted(e.IssueAction, "opened")
		blocks = append(blocks, map[string]any{
			"type": "section",
			"fields": []map[string]any{
				mrkdwn(fmt.Sprintf("*Action:*\n%s %s", statusEmoji(action), titleize(action))),
			},
		})
		if e.IssueTitle != "" {
			blocks = append(blocks, textSection("*Title:*\n"+e.IssueTitle))
		}

	case "comment", "commit_comment", "discussion_comment":
		blocks = append(blocks, textSection("*Comment:*\n\n"+clip(e.CommentBody, maxCommentShown)))

	case "release":
		blocks = append(blocks, map[string]any{
			"type": "section",
			"fields": []map[string]any{
				mrkdwn("*Tag:*\n`" + defaulted(e.ReleaseTag, "N/A") + "`"),
				mrkdwn("*Name:*\n" + defaulted(e.ReleaseName, "N/A")),
			},
		})
	}

	if url := detailURL(e); url != "" {
		blocks = append(blocks, map[string]any{
			"type": "actions",
			"elements": []map[string]any{
				{
					"type":  "button",
					"text":  map[string]any{"type": "plain_text", "text": "View Details", "emoji": true},
					"url":   url,
					"style": "primary",
				},
			},
		})
	}

	fallback := fmt.Sprintf("%s %s in %s by %s",
		eventEmoji(e.EventType), titleize(e.EventType), e.Project, e.Author)

	return Message{Text: fallback, Blocks: blocks}
}

func mrkdwn(text string) map[string]any {
	return map[string]any{"type": "mrkdwn", "text": text}
}

func textSection(text string) map[string]any {
	return map[string]any{"type": "section", "text": mrkdwn(text)}
}
