package parser

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/ismoilovdevml/webhook-bridge/internal/domain/event"
)

// GitHub parses GitHub webhooks. Unlike GitLab, the kind lives in the
// X-GitHub-Event header rather than the payload body.
type GitHub struct {
	kinds map[string]extractFunc
}

func NewGitHub() *GitHub {
	g := &GitHub{}
	g.kinds = map[string]extractFunc{
		"push":                       g.push,
		"pull_request":               g.pullRequest,
		"workflow_run":               g.workflow,
		"check_run":                  g.workflow,
		"workflow_job":               g.workflowJob,
		"issues":                     g.issue,
		"issue_comment":              g.comment,
		"pull_request_review_comment": g.comment,
		"create":                     g.create,
		"delete":                     g.delete,
		"release":                    g.release,
		"deployment":                 g.deployment,
		"deployment_status":          g.deployment,
		"fork":                       g.fork,
		"star":                       g.star,
		"watch":                      g.watch,
		"gollum":                     g.wiki,
		"discussion":                 g.discussion,
		"discussion_comment":         g.discussionComment,
		"commit_comment":             g.commitComment,
		"code_scanning_alert":        g.codeScanningAlert,
		"secret_scanning_alert":      g.secretScanningAlert,
		"dependabot_alert":           g.dependabotAlert,
		"branch_protection_rule":     g.branchProtectionRule,
		"repository":                 g.repository,
		"public":                     g.public,
		"member":                     g.member,
		"membership":                 g.membership,
		"organization":               g.organization,
		"sponsorship":                g.sponsorship,
		"check_suite":                g.checkSuite,
	}
	return g
}

func (g *GitHub) Platform() event.Platform { return event.PlatformGitHub }

func (g *GitHub) CanParse(headers http.Header, payload Payload) bool {
	if headers.Get("X-GitHub-Event") != "" {
		return true
	}
	_, ok := payload["repository"]
	return ok
}

func (g *GitHub) Parse(headers http.Header, payload Payload) (*event.Event, error) {
	if len(payload) == 0 {
		return nil, &Error{Platform: event.PlatformGitHub, Reason: "empty payload"}
	}

	kind := headers.Get("X-GitHub-Event")
	switch kind {
	case "project", "project_card", "project_column":
		return g.board(payload, kind), nil
	case "team", "team_add":
		return g.team(payload, kind), nil
	case "projects_v2", "projects_v2_item":
		return g.boardV2(payload, kind), nil
	}
	extract, ok := g.kinds[kind]
	if !ok {
		return g.unknown(payload), nil
	}
	return extract(payload), nil
}

// base fills identity fields from "repository" and "sender", which nearly
// every GitHub payload carries.
func (g *GitHub) base(payload Payload, eventType string) *event.Event {
	repo := payload.Map("repository")
	sender := payload.Map("sender")
	return &event.Event{
		Platform:       event.PlatformGitHub,
		EventType:      eventType,
		Project:        repo.Str("full_name"),
		ProjectURL:     repo.Str("html_url"),
		Author:         sender.StrOr("login", "Unknown"),
		AuthorUsername: sender.Str("login"),
		AuthorAvatar:   sender.Str("avatar_url"),
		RawData:        payload,
	}
}

// orgBase fills identity fields for org-scoped kinds that carry no repository.
func (g *GitHub) orgBase(payload Payload, eventType string) *event.Event {
	org := payload.Map("organization")
	sender := payload.Map("sender")
	return &event.Event{
		Platform:       event.PlatformGitHub,
		EventType:      eventType,
		Project:        org.StrOr("login", "Organization"),
		ProjectURL:     org.Str("url"),
		Author:         sender.StrOr("login", "Unknown"),
		AuthorUsername: sender.Str("login"),
		AuthorAvatar:   sender.Str("avatar_url"),
		RawData:        payload,
	}
}

func (g *GitHub) push(payload Payload) *event.Event {
	e := g.base(payload, "push")
	e.Ref = strings.TrimPrefix(payload.Str("ref"), "refs/heads/")
	e.Commits = commits(payload.Slice("commits"))
	e.CommitCount = len(e.Commits)
	return e
}

func (g *GitHub) pullRequest(payload Payload) *event.Event {
	e := g.base(payload, "pull_request")
	pr := payload.Map("pull_request")
	e.MRID = pr.Int("number")
	e.MRTitle = pr.Str("title")
	e.MRDescription = truncate(pr.Str("body"), maxDescriptionLen)
	e.MRURL = pr.Str("html_url")
	e.MRState = pr.Str("state")
	e.MRAction = payload.Str("action")
	e.SourceBranch = pr.Map("head").Str("ref")
	e.TargetBranch = pr.Map("base").Str("ref")
	return e
}

func (g *GitHub) workflow(payload Payload) *event.Event {
	e := g.base(payload, "pipeline")
	run := payload.Map("workflow_run")
	if len(run) == 0 {
		run = payload.Map("check_run")
	}
	e.Ref = run.Str("head_branch")
	e.PipelineID = run.Int("id")
	e.PipelineStatus = run.StrOr("conclusion", run.Str("status"))
	e.PipelineURL = run.Str("html_url")
	return e
}

func (g *GitHub) workflowJob(payload Payload) *event.Event {
	e := g.base(payload, "job")
	job := payload.Map("workflow_job")
	status := job.StrOr("conclusion", job.Str("status"))
	if status == "queued" {
		status = "pending"
	}
	e.Ref = job.Str("head_branch")
	e.JobID = job.Int("id")
	e.JobName = job.Str("name")
	e.JobStatus = status
	e.PipelineID = job.Int("run_id")
	e.PipelineURL = job.Str("html_url")
	return e
}

func (g *GitHub) issue(payload Payload) *event.Event {
	e := g.base(payload, "issue")
	issue := payload.Map("issue")
	e.IssueID = issue.Int("number")
	e.IssueTitle = issue.Str("title")
	e.IssueDescription = truncate(issue.Str("body"), maxDescriptionLen)
	e.IssueURL = issue.Str("html_url")
	e.IssueState = issue.Str("state")
	e.IssueAction = payload.Str("action")
	return e
}

func (g *GitHub) comment(payload Payload) *event.Event {
	e := g.base(payload, "comment")
	comment := payload.Map("comment")
	e.CommentBody = truncate(comment.Str("body"), maxCommentLen)
	e.CommentURL = comment.Str("html_url")
	return e
}

func (g *GitHub) create(payload Payload) *event.Event {
	eventType := "branch_create"
	if payload.Str("ref_type") == "tag" {
		eventType = "tag_push"
	}
	e := g.base(payload, eventType)
	e.Ref = payload.Str("ref")
	return e
}

func (g *GitHub) delete(payload Payload) *event.Event {
	eventType := "branch_delete"
	if payload.Str("ref_type") == "tag" {
		eventType = "tag_delete"
	}
	e := g.base(payload, eventType)
	e.Ref = payload.Str("ref")
	return e
}

func (g *GitHub) release(payload Payload) *event.Event {
	e := g.base(payload, "release")
	release := payload.Map("release")
	e.ReleaseTag = release.Str("tag_name")
	e.ReleaseName = release.Str("name")
	e.ReleaseDescription = truncate(release.Str("body"), maxDescriptionLen)
	e.ReleaseURL = release.Str("html_url")
	return e
}

func (g *GitHub) deployment(payload Payload) *event.Event {
	e := g.base(payload, "deployment")
	deployment := payload.Map("deployment")
	status := payload.Map("deployment_status")
	e.Ref = deployment.Str("ref")
	e.DeploymentID = deployment.Int("id")
	e.DeploymentEnvironment = deployment.Str("environment")
	e.DeploymentStatus = status.StrOr("state", deployment.StrOr("status", "pending"))
	e.DeploymentURL = status.StrOr("target_url", deployment.Str("url"))
	return e
}

func (g *GitHub) fork(payload Payload) *event.Event {
	e := g.base(payload, "fork")
	e.ForkCount = payload.Map("repository").Int("forks_count")
	e.ForkedRepoURL = payload.Map("forkee").Str("html_url")
	return e
}

func (g *GitHub) star(payload Payload) *event.Event {
	e := g.base(payload, "star")
	e.StarAction = payload.Str("action")
	e.StarCount = payload.Map("repository").Int("stargazers_count")
	return e
}

func (g *GitHub) watch(payload Payload) *event.Event {
	e := g.base(payload, "watch")
	e.WatchAction = payload.Str("action")
	return e
}

func (g *GitHub) wiki(payload Payload) *event.Event {
	return g.base(payload, "wiki")
}

func (g *GitHub) discussion(payload Payload) *event.Event {
	e := g.base(payload, "discussion")
	discussion := payload.Map("discussion")
	e.DiscussionID = discussion.Int("number")
	e.DiscussionTitle = discussion.Str("title")
	e.DiscussionBody = truncate(discussion.Str("body"), maxDescriptionLen)
	e.DiscussionURL = discussion.Str("html_url")
	e.DiscussionAction = payload.Str("action")
	e.DiscussionCategory = discussion.Map("category").Str("name")
	return e
}

func (g *GitHub) discussionComment(payload Payload) *event.Event {
	e := g.base(payload, "discussion_comment")
	discussion := payload.Map("discussion")
	comment := payload.Map("comment")
	e.DiscussionID = discussion.Int("number")
	e.DiscussionTitle = discussion.Str("title")
	e.DiscussionURL = discussion.Str("html_url")
	e.CommentBody = truncate(comment.Str("body"), maxCommentLen)
	e.CommentURL = comment.Str("html_url")
	return e
}

func (g *GitHub) commitComment(payload Payload) *event.Event {
	e := g.base(payload, "commit_comment")
	comment := payload.Map("comment")
	e.CommentBody = truncate(comment.Str("body"), maxCommentLen)
	e.CommentURL = comment.Str("html_url")
	return e
}

func (g *GitHub) codeScanningAlert(payload Payload) *event.Event {
	e := g.base(payload, "code_scanning_alert")
	alert := payload.Map("alert")
	rule := alert.Map("rule")
	e.AlertID = alert.Int("number")
	e.AlertType = "code_scanning"
	e.AlertSeverity = rule.Str("severity")
	e.AlertState = alert.Str("state")
	e.AlertURL = alert.Str("html_url")
	e.AlertDescription = truncate(rule.Str("description"), maxDescriptionLen)
	return e
}

func (g *GitHub) secretScanningAlert(payload Payload) *event.Event {
	e := g.base(payload, "secret_scanning_alert")
	alert := payload.Map("alert")
	e.AlertID = alert.Int("number")
	e.AlertType = "secret_scanning"
	e.AlertState = alert.Str("state")
	e.AlertURL = alert.Str("html_url")
	e.AlertDescription = "Secret type: " + alert.StrOr("secret_type", "Unknown")
	return e
}

func (g *GitHub) dependabotAlert(payload Payload) *event.Event {
	e := g.base(payload, "dependabot_alert")
	alert := payload.Map("alert")
	advisory := alert.Map("security_advisory")
	pkg := alert.Map("security_vulnerability").Map("package")
	e.AlertID = alert.Int("number")
	e.AlertType = "dependabot"
	e.AlertSeverity = advisory.Str("severity")
	e.AlertState = alert.Str("state")
	e.AlertURL = alert.Str("html_url")
	e.AlertDescription = truncate(
		fmt.Sprintf("%s: %s", pkg.StrOr("name", "Unknown package"), advisory.Str("summary")),
		maxDescriptionLen,
	)
	return e
}

func (g *GitHub) branchProtectionRule(payload Payload) *event.Event {
	e := g.base(payload, "branch_protection_rule")
	rule := payload.Map("rule")
	e.RuleID = rule.Int("id")
	e.RuleName = rule.Str("name")
	e.RuleEnforcement = payload.Str("action")
	return e
}

func (g *GitHub) repository(payload Payload) *event.Event {
	e := g.base(payload, "repository")
	repo := payload.Map("repository")
	e.RepoAction = payload.Str("action")
	e.RepoDescription = repo.Str("description")
	e.RepoVisibility = repo.Str("visibility")
	return e
}

func (g *GitHub) public(payload Payload) *event.Event {
	e := g.base(payload, "public")
	e.RepoAction = "publicized"
	e.RepoVisibility = "public"
	return e
}

func (g *GitHub) member(payload Payload) *event.Event {
	e := g.base(payload, "member")
	e.MemberUsername = payload.Map("member").Str("login")
	e.MemberAction = payload.Str("action")
	return e
}

func (g *GitHub) membership(payload Payload) *event.Event {
	e := g.orgBase(payload, "membership")
	e.MemberUsername = payload.Map("member").Str("login")
	e.MemberAction = payload.Str("action")
	e.TeamName = payload.Map("team").Str("name")
	return e
}

func (g *GitHub) board(payload Payload, eventType string) *event.Event {
	e := g.base(payload, eventType)
	if e.Project == "" {
		e.Project = "Organization"
	}
	board := payload.Map("project")
	e.BoardID = board.Int("id")
	e.BoardName = board.Str("name")
	e.BoardAction = payload.Str("action")
	return e
}

func (g *GitHub) boardV2(payload Payload, eventType string) *event.Event {
	e := g.orgBase(payload, eventType)
	board := payload.Map("projects_v2")
	e.BoardID = board.Int("id")
	e.BoardName = board.Str("title")
	e.BoardAction = payload.Str("action")
	return e
}

func (g *GitHub) organization(payload Payload) *event.Event {
	e := g.orgBase(payload, "organization")
	e.RepoAction = payload.Str("action")
	return e
}

func (g *GitHub) team(payload Payload, eventType string) *event.Event {
	e := g.orgBase(payload, eventType)
	e.TeamName = payload.Map("team").Str("name")
	e.TeamAction = payload.Str("action")
	return e
}

func (g *GitHub) sponsorship(payload Payload) *event.Event {
	sender := payload.Map("sender")
	sponsorship := payload.Map("sponsorship")
	return &event.Event{
		Platform:        event.PlatformGitHub,
		EventType:       "sponsorship",
		Project:         "GitHub Sponsors",
		Author:          sender.StrOr("login", "Unknown"),
		AuthorUsername:  sender.Str("login"),
		AuthorAvatar:    sender.Str("avatar_url"),
		SponsorUsername: sponsorship.Map("sponsor").Str("login"),
		SponsorTier:     sponsorship.Map("tier").Str("name"),
		SponsorAction:   payload.Str("action"),
		RawData:         payload,
	}
}

func (g *GitHub) checkSuite(payload Payload) *event.Event {
	e := g.base(payload, "check_suite")
	suite := payload.Map("check_suite")
	e.CheckSuiteID = suite.Int("id")
	e.CheckSuiteStatus = suite.Str("status")
	e.CheckSuiteConclusion = suite.Str("conclusion")
	e.CheckSuiteURL = suite.Str("url")
	return e
}

func (g *GitHub) unknown(payload Payload) *event.Event {
	e := g.base(payload, event.EventTypeUnknown)
	if e.Project == "" {
		e.Project = "Unknown"
	}
	return e
}
