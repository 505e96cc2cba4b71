package event

// Platform identifies the Git hosting service a webhook came from.
type Platform string

const (
	PlatformGitLab    Platform = "gitlab"
	PlatformGitHub    Platform = "github"
	PlatformBitbucket Platform = "bitbucket"
)

// Commit is a single commit carried by a push event.
type Commit struct {
	ID      string `json:"id"`
	Message string `json:"message"`
	URL     string `json:"url,omitempty"`
	Author  string `json:"author,omitempty"`
}

// Event is the canonical, platform-agnostic record produced by parsing and
// consumed by formatting. Platform and EventType are always set; every other
// field is either present-and-meaningful or zero. At most one family of
// kind-specific fields is populated, selected by EventType.
type Event struct {
	Platform  Platform `json:"platform"`
	EventType string   `json:"event_type"`

	Project        string `json:"project"`
	ProjectURL     string `json:"project_url,omitempty"`
	Author         string `json:"author"`
	AuthorUsername string `json:"author_username,omitempty"`
	AuthorAvatar   string `json:"author_avatar,omitempty"`

	// Push / tag push
	Ref         string   `json:"ref,omitempty"`
	Commits     []Commit `json:"commits,omitempty"`
	CommitCount int      `json:"commit_count,omitempty"`

	// Merge / pull request
	MRID          int    `json:"mr_iid,omitempty"`
	MRTitle       string `json:"mr_title,omitempty"`
	MRDescription string `json:"mr_description,omitempty"`
	MRURL         string `json:"mr_url,omitempty"`
	MRState       string `json:"mr_state,omitempty"`
	MRAction      string `json:"mr_action,omitempty"`
	SourceBranch  string `json:"source_branch,omitempty"`
	TargetBranch  string `json:"target_branch,omitempty"`

	// Issue
	IssueID          int    `json:"issue_iid,omitempty"`
	IssueTitle       string `json:"issue_title,omitempty"`
	IssueDescription string `json:"issue_description,omitempty"`
	IssueURL         string `json:"issue_url,omitempty"`
	IssueState       string `json:"issue_state,omitempty"`
	IssueAction      string `json:"issue_action,omitempty"`

	// Pipeline / CI
	PipelineID       int      `json:"pipeline_id,omitempty"`
	PipelineStatus   string   `json:"pipeline_status,omitempty"`
	PipelineURL      string   `json:"pipeline_url,omitempty"`
	PipelineDuration int      `json:"pipeline_duration,omitempty"`
	PipelineStages   []string `json:"pipeline_stages,omitempty"`

	// Comment
	CommentBody string `json:"comment_body,omitempty"`
	CommentURL  string `json:"comment_url,omitempty"`

	// Deployment
	DeploymentID          int    `json:"deployment_id,omitempty"`
	DeploymentStatus      string `json:"deployment_status,omitempty"`
	DeploymentEnvironment string `json:"deployment_environment,omitempty"`
	DeploymentURL         string `json:"deployment_url,omitempty"`

	// Release
	ReleaseName        string `json:"release_name,omitempty"`
	ReleaseTag         string `json:"release_tag,omitempty"`
	ReleaseDescription string `json:"release_description,omitempty"`
	ReleaseURL         string `json:"release_url,omitempty"`

	// Job / build
	JobID     int    `json:"job_id,omitempty"`
	JobName   string `json:"job_name,omitempty"`
	JobStage  string `json:"job_stage,omitempty"`
	JobStatus string `json:"job_status,omitempty"`

	// Feature flag
	FeatureFlagName        string `json:"feature_flag_name,omitempty"`
	FeatureFlagDescription string `json:"feature_flag_description,omitempty"`
	FeatureFlagActive      bool   `json:"feature_flag_active,omitempty"`

	// Emoji award
	EmojiName          string `json:"emoji_name,omitempty"`
	EmojiAction        string `json:"emoji_action,omitempty"`
	EmojiAwardableType string `json:"emoji_awardable_type,omitempty"`

	// Access token expiry notice
	TokenName      string `json:"token_name,omitempty"`
	TokenExpiresAt string `json:"token_expires_at,omitempty"`

	// Fork / star / watch
	ForkCount     int    `json:"fork_count,omitempty"`
	ForkedRepoURL string `json:"forked_repo_url,omitempty"`
	StarAction    string `json:"star_action,omitempty"`
	StarCount     int    `json:"star_count,omitempty"`
	WatchAction   string `json:"watch_action,omitempty"`

	// Discussion
	DiscussionID       int    `json:"discussion_id,omitempty"`
	DiscussionTitle    string `json:"discussion_title,omitempty"`
	DiscussionBody     string `json:"discussion_body,omitempty"`
	DiscussionURL      string `json:"discussion_url,omitempty"`
	DiscussionAction   string `json:"discussion_action,omitempty"`
	DiscussionCategory string `json:"discussion_category,omitempty"`

	// Security alerts (code scanning, secret scanning, dependabot)
	AlertID          int    `json:"alert_id,omitempty"`
	AlertType        string `json:"alert_type,omitempty"`
	AlertSeverity    string `json:"alert_severity,omitempty"`
	AlertState       string `json:"alert_state,omitempty"`
	AlertURL         string `json:"alert_url,omitempty"`
	AlertDescription string `json:"alert_description,omitempty"`

	// Branch protection rule
	RuleID          int    `json:"rule_id,omitempty"`
	RuleName        string `json:"rule_name,omitempty"`
	RuleEnforcement string `json:"rule_enforcement,omitempty"`

	// Repository / membership administration
	RepoAction      string `json:"repo_action,omitempty"`
	RepoDescription string `json:"repo_description,omitempty"`
	RepoVisibility  string `json:"repo_visibility,omitempty"`
	MemberUsername  string `json:"member_username,omitempty"`
	MemberAction    string `json:"member_action,omitempty"`
	TeamName        string `json:"team_name,omitempty"`
	TeamAction      string `json:"team_action,omitempty"`

	// Project boards
	BoardID     int    `json:"board_id,omitempty"`
	BoardName   string `json:"board_name,omitempty"`
	BoardAction string `json:"board_action,omitempty"`

	// Sponsorship
	SponsorUsername string `json:"sponsor_username,omitempty"`
	SponsorTier     string `json:"sponsor_tier,omitempty"`
	SponsorAction   string `json:"sponsor_action,omitempty"`

	// Check suite
	CheckSuiteID         int    `json:"check_suite_id,omitempty"`
	CheckSuiteStatus     string `json:"check_suite_status,omitempty"`
	CheckSuiteConclusion string `json:"check_suite_conclusion,omitempty"`
	CheckSuiteURL        string `json:"check_suite_url,omitempty"`

	// Original payload, kept verbatim for formatter fallback and debugging.
	RawData map[string]any `json:"raw_data,omitempty"`
}

// EventTypeUnknown tags events whose kind no extraction routine recognizes.
const EventTypeUnknown = "unknown"

// Branch returns the branch dimension used by destination filters: the ref
// for push-family events, otherwise the MR source branch when present.
func (e *Event) Branch() string {
	if e.Ref != "" {
		return e.Ref
	}
	return e.SourceBranch
}
