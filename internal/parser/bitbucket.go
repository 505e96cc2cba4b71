package parser

import (
	"net/http"
	"strings"

	"github.com/ismoilovdevml/webhook-bridge/internal/domain/event"
)

// Bitbucket parses Bitbucket Cloud webhooks. The kind lives in the
// X-Event-Key header as "subject:action" pairs, so routing matches on
// substrings rather than an exact registry lookup.
type Bitbucket struct{}

func NewBitbucket() *Bitbucket { return &Bitbucket{} }

func (b *Bitbucket) Platform() event.Platform { return event.PlatformBitbucket }

func (b *Bitbucket) CanParse(headers http.Header, payload Payload) bool {
	if headers.Get("X-Event-Key") != "" {
		return true
	}
	return payload.Map("repository").Str("uuid") != ""
}

func (b *Bitbucket) Parse(headers http.Header, payload Payload) (*event.Event, error) {
	if len(payload) == 0 {
		return nil, &Error{Platform: event.PlatformBitbucket, Reason: "empty payload"}
	}

	key := headers.Get("X-Event-Key")
	switch {
	case strings.Contains(key, "push"):
		return b.push(payload), nil
	case strings.Contains(key, "pullrequest"):
		return b.pullRequest(payload, key), nil
	case strings.Contains(key, "issue"):
		return b.issue(payload, key), nil
	case strings.Contains(key, "pipeline"), strings.Contains(key, "build_status"):
		return b.pipeline(payload), nil
	case key == "repo:fork":
		return b.fork(payload), nil
	case key == "repo:updated":
		return b.repoChange(payload, "updated"), nil
	case key == "repo:transfer":
		return b.repoChange(payload, "transferred"), nil
	case key == "repo:deleted":
		return b.repoChange(payload, "deleted"), nil
	case key == "repo:commit_comment_created":
		return b.commitComment(payload), nil
	}
	return b.unknown(payload), nil
}

// base fills identity fields from "repository" and "actor". Bitbucket buries
// every URL under links.html.href.
func (b *Bitbucket) base(payload Payload, eventType string) *event.Event {
	repo := payload.Map("repository")
	actor := payload.Map("actor")
	return &event.Event{
		Platform:       event.PlatformBitbucket,
		EventType:      eventType,
		Project:        repo.Str("full_name"),
		ProjectURL:     htmlHref(repo),
		Author:         actor.StrOr("display_name", "Unknown"),
		AuthorUsername: actor.Str("username"),
		AuthorAvatar:   actor.Map("links").Map("avatar").Str("href"),
		RawData:        payload,
	}
}

func htmlHref(p Payload) string {
	return p.Map("links").Map("html").Str("href")
}

func (b *Bitbucket) push(payload Payload) *event.Event {
	e := b.base(payload, "push")
	changes := payload.Map("push").Slice("changes")
	var cs []event.Commit
	for _, raw := range changes {
		m, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		change := Payload(m)
		if e.Ref == "" {
			e.Ref = change.Map("new").Str("name")
		}
		for _, c := range change.Slice("commits") {
			cm, ok := c.(map[string]any)
			if !ok {
				continue
			}
			commit := Payload(cm)
			cs = append(cs, event.Commit{
				ID:      commit.Str("hash"),
				Message: commit.Str("message"),
				URL:     htmlHref(commit),
				Author:  commit.Map("author").Map("user").Str("display_name"),
			})
		}
	}
	e.Commits = cs
	e.CommitCount = len(cs)
	return e
}

// prActions maps X-Event-Key suffixes onto the canonical action vocabulary
// shared with the other platforms. Order matters: longer suffixes first so
// "changes_request_removed" is not swallowed by "updated".
var prActions = []struct {
	fragment string
	action   string
}{
	{"changes_request_created", "changes_requested"},
	{"changes_request_removed", "changes_request_removed"},
	{"comment_created", "comment_created"},
	{"comment_updated", "comment_updated"},
	{"comment_deleted", "comment_deleted"},
	{"comment_resolved", "comment_resolved"},
	{"comment_reopened", "comment_reopened"},
	{"unapproved", "unapproved"},
	{"approved", "approved"},
	{"updated", "updated"},
	{"merged", "merged"},
	{"fulfilled", "merged"},
	{"declined", "closed"},
	{"rejected", "closed"},
}

func (b *Bitbucket) pullRequest(payload Payload, key string) *event.Event {
	e := b.base(payload, "pull_request")
	pr := payload.Map("pullrequest")
	action := "opened"
	for _, a := range prActions {
		if strings.Contains(key, a.fragment) {
			action = a.action
			break
		}
	}
	e.MRID = pr.Int("id")
	e.MRTitle = pr.Str("title")
	e.MRDescription = truncate(pr.Str("description"), maxDescriptionLen)
	e.MRURL = htmlHref(pr)
	e.MRState = pr.Str("state")
	e.MRAction = action
	e.SourceBranch = pr.Map("source").Map("branch").Str("name")
	e.TargetBranch = pr.Map("destination").Map("branch").Str("name")
	return e
}

func (b *Bitbucket) issue(payload Payload, key string) *event.Event {
	e := b.base(payload, "issue")
	issue := payload.Map("issue")
	action := "opened"
	switch {
	case strings.Contains(key, "updated"):
		action = "updated"
	case strings.Contains(key, "comment"):
		action = "commented"
	}
	e.IssueID = issue.Int("id")
	e.IssueTitle = issue.Str("title")
	e.IssueDescription = truncate(issue.Map("content").Str("raw"), maxDescriptionLen)
	e.IssueURL = htmlHref(issue)
	e.IssueState = issue.Str("state")
	e.IssueAction = action
	return e
}

func (b *Bitbucket) pipeline(payload Payload) *event.Event {
	e := b.base(payload, "pipeline")
	if pipeline := payload.Map("pipeline"); len(pipeline) > 0 {
		e.PipelineID = pipeline.Int("build_number")
		e.PipelineStatus = normalizePipelineStatus(pipeline.Map("state").Str("name"))
		e.Ref = pipeline.Map("target").Str("ref_name")
		e.PipelineDuration = pipeline.Int("duration_in_seconds")
		e.PipelineURL = pipeline.Str("url")
		return e
	}
	buildStatus := payload.Map("build_status")
	e.PipelineID = buildStatus.Int("key")
	e.PipelineStatus = normalizePipelineStatus(buildStatus.Str("state"))
	e.Ref = buildStatus.Str("refname")
	e.PipelineURL = buildStatus.Str("url")
	return e
}

func normalizePipelineStatus(raw string) string {
	switch strings.ToLower(raw) {
	case "successful", "success":
		return "success"
	case "failed", "failure":
		return "failed"
	case "stopped":
		return "canceled"
	case "pending", "in_progress":
		return "running"
	}
	return strings.ToLower(raw)
}

func (b *Bitbucket) fork(payload Payload) *event.Event {
	e := b.base(payload, "fork")
	e.ForkedRepoURL = htmlHref(payload.Map("fork"))
	return e
}

func (b *Bitbucket) repoChange(payload Payload, action string) *event.Event {
	e := b.base(payload, "repository")
	e.RepoAction = action
	if action == "updated" {
		e.RepoDescription = payload.Map("repository").Str("description")
	}
	return e
}

func (b *Bitbucket) commitComment(payload Payload) *event.Event {
	e := b.base(payload, "commit_comment")
	comment := payload.Map("comment")
	e.CommentBody = truncate(comment.Map("content").Str("raw"), maxCommentLen)
	e.CommentURL = htmlHref(comment)
	return e
}

func (b *Bitbucket) unknown(payload Payload) *event.Event {
	e := b.base(payload, event.EventTypeUnknown)
	if e.Project == "" {
		e.Project = "Unknown"
	}
	return e
}
