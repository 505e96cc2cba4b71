package parser

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/ismoilovdevml/webhook-bridge/internal/domain/event"
)

// GitLab parses GitLab webhooks, routing on the payload's object_kind.
type GitLab struct {
	kinds map[string]extractFunc
}

func NewGitLab() *GitLab {
	g := &GitLab{}
	g.kinds = map[string]extractFunc{
		"push":          g.push,
		"tag_push":      g.tagPush,
		"merge_request": g.mergeRequest,
		"pipeline":      g.pipeline,
		"build":         g.job,
		"issue":         g.issue,
		"note":          g.comment,
		"wiki_page":     g.wiki,
		"deployment":    g.deployment,
		"release":       g.release,
		"feature_flag":  g.featureFlag,
		"emoji":         g.emoji,
		"access_token":  g.accessToken,
	}
	return g
}

func (g *GitLab) Platform() event.Platform { return event.PlatformGitLab }

func (g *GitLab) CanParse(headers http.Header, payload Payload) bool {
	return headers.Get("X-Gitlab-Event") != "" || payload.Str("object_kind") != ""
}

func (g *GitLab) Parse(headers http.Header, payload Payload) (*event.Event, error) {
	if len(payload) == 0 {
		return nil, &Error{Platform: event.PlatformGitLab, Reason: "empty payload"}
	}

	kind := payload.Str("object_kind")
	if kind == "" && payload.Str("event_name") == "push" {
		kind = "push"
	}
	extract, ok := g.kinds[kind]
	if !ok {
		return g.unknown(payload), nil
	}
	return extract(payload), nil
}

// base fills the identity fields shared by kinds that nest the actor under
// "user" and the repository under "project".
func (g *GitLab) base(payload Payload, eventType string) *event.Event {
	user := payload.Map("user")
	project := payload.Map("project")
	return &event.Event{
		Platform:       event.PlatformGitLab,
		EventType:      eventType,
		Project:        project.Str("path_with_namespace"),
		ProjectURL:     project.Str("web_url"),
		Author:         user.StrOr("name", "Unknown"),
		AuthorUsername: user.Str("username"),
		AuthorAvatar:   user.Str("avatar_url"),
		RawData:        payload,
	}
}

func (g *GitLab) push(payload Payload) *event.Event {
	project := payload.Map("project")
	return &event.Event{
		Platform:       event.PlatformGitLab,
		EventType:      "push",
		Project:        project.Str("path_with_namespace"),
		ProjectURL:     project.Str("web_url"),
		Author:         payload.StrOr("user_name", "Unknown"),
		AuthorUsername: payload.Str("user_username"),
		AuthorAvatar:   payload.Str("user_avatar"),
		Ref:            strings.TrimPrefix(payload.Str("ref"), "refs/heads/"),
		Commits:        commits(payload.Slice("commits")),
		CommitCount:    payload.Int("total_commits_count"),
		RawData:        payload,
	}
}

func (g *GitLab) tagPush(payload Payload) *event.Event {
	project := payload.Map("project")
	return &event.Event{
		Platform:       event.PlatformGitLab,
		EventType:      "tag_push",
		Project:        project.Str("path_with_namespace"),
		ProjectURL:     project.Str("web_url"),
		Author:         payload.StrOr("user_name", "Unknown"),
		AuthorUsername: payload.Str("user_username"),
		Ref:            strings.TrimPrefix(payload.Str("ref"), "refs/tags/"),
		RawData:        payload,
	}
}

func (g *GitLab) mergeRequest(payload Payload) *event.Event {
	e := g.base(payload, "merge_request")
	mr := payload.Map("object_attributes")
	e.MRID = mr.Int("iid")
	e.MRTitle = mr.Str("title")
	e.MRDescription = truncate(mr.Str("description"), maxDescriptionLen)
	e.MRURL = mr.Str("url")
	e.MRState = mr.Str("state")
	e.MRAction = mr.Str("action")
	e.SourceBranch = mr.Str("source_branch")
	e.TargetBranch = mr.Str("target_branch")
	return e
}

func (g *GitLab) pipeline(payload Payload) *event.Event {
	e := g.base(payload, "pipeline")
	pipeline := payload.Map("object_attributes")
	e.Ref = pipeline.Str("ref")
	e.PipelineID = pipeline.Int("id")
	e.PipelineStatus = pipeline.Str("status")
	e.PipelineDuration = pipeline.Int("duration")
	e.PipelineStages = stringSlice(pipeline.Slice("stages"))
	if e.ProjectURL != "" && e.PipelineID != 0 {
		e.PipelineURL = e.ProjectURL + "/-/pipelines/" + strconv.Itoa(e.PipelineID)
	}
	return e
}

func (g *GitLab) job(payload Payload) *event.Event {
	e := g.base(payload, "job")
	e.Ref = payload.Str("ref")
	e.JobID = payload.Int("build_id")
	e.JobName = payload.Str("build_name")
	e.JobStage = payload.Str("build_stage")
	e.JobStatus = payload.Str("build_status")
	e.PipelineID = payload.Int("pipeline_id")
	// GitLab job payloads flatten the repository under "repository".
	if e.Project == "" {
		e.Project = payload.Map("repository").Str("name")
	}
	return e
}

func (g *GitLab) issue(payload Payload) *event.Event {
	e := g.base(payload, "issue")
	issue := payload.Map("object_attributes")
	e.IssueID = issue.Int("iid")
	e.IssueTitle = issue.Str("title")
	e.IssueDescription = truncate(issue.Str("description"), maxDescriptionLen)
	e.IssueURL = issue.Str("url")
	e.IssueState = issue.Str("state")
	e.IssueAction = issue.Str("action")
	return e
}

func (g *GitLab) comment(payload Payload) *event.Event {
	e := g.base(payload, "comment")
	note := payload.Map("object_attributes")
	e.CommentBody = truncate(note.Str("note"), maxCommentLen)
	e.CommentURL = note.Str("url")
	return e
}

func (g *GitLab) wiki(payload Payload) *event.Event {
	return g.base(payload, "wiki")
}

func (g *GitLab) deployment(payload Payload) *event.Event {
	e := g.base(payload, "deployment")
	deployment := payload.Map("deployment")
	e.Ref = deployment.Str("ref")
	e.DeploymentID = deployment.Int("id")
	e.DeploymentStatus = payload.Str("status")
	e.DeploymentEnvironment = deployment.Str("environment")
	e.DeploymentURL = deployment.Str("deployable_url")
	return e
}

func (g *GitLab) release(payload Payload) *event.Event {
	project := payload.Map("project")
	release := payload
	if _, ok := payload["release"]; ok {
		release = payload.Map("release")
	}
	author := release.Map("author")
	return &event.Event{
		Platform:           event.PlatformGitLab,
		EventType:          "release",
		Project:            project.Str("path_with_namespace"),
		ProjectURL:         project.Str("web_url"),
		Author:             author.StrOr("name", "Unknown"),
		AuthorUsername:     author.Str("username"),
		Ref:                release.Str("tag_name"),
		ReleaseName:        release.Str("name"),
		ReleaseTag:         release.Str("tag_name"),
		ReleaseDescription: truncate(release.Str("description"), maxDescriptionLen),
		ReleaseURL:         release.Map("_links").Str("self"),
		RawData:            payload,
	}
}

func (g *GitLab) featureFlag(payload Payload) *event.Event {
	e := g.base(payload, "feature_flag")
	flag := payload.Map("object_attributes")
	e.FeatureFlagName = flag.Str("name")
	e.FeatureFlagDescription = truncate(flag.Str("description"), maxDescriptionLen)
	e.FeatureFlagActive = flag.Bool("active")
	return e
}

func (g *GitLab) emoji(payload Payload) *event.Event {
	e := g.base(payload, "emoji")
	emoji := payload.Map("object_attributes")
	e.EmojiName = emoji.Str("name")
	e.EmojiAction = emoji.Str("action")
	e.EmojiAwardableType = emoji.Str("awardable_type")
	return e
}

func (g *GitLab) accessToken(payload Payload) *event.Event {
	project := payload.Map("project")
	token := payload.Map("object_attributes")
	return &event.Event{
		Platform:       event.PlatformGitLab,
		EventType:      "access_token",
		Project:        project.Str("path_with_namespace"),
		ProjectURL:     project.Str("web_url"),
		Author:         "System",
		TokenName:      token.Str("name"),
		TokenExpiresAt: token.Str("expires_at"),
		RawData:        payload,
	}
}

func (g *GitLab) unknown(payload Payload) *event.Event {
	project := payload.Map("project")
	return &event.Event{
		Platform:   event.PlatformGitLab,
		EventType:  event.EventTypeUnknown,
		Project:    project.StrOr("path_with_namespace", "Unknown"),
		ProjectURL: project.Str("web_url"),
		Author:     payload.StrOr("user_name", "Unknown"),
		RawData:    payload,
	}
}
