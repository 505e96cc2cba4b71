package destination

import (
	"path"
	"time"
)

// Type identifies the downstream notification integration.
type Type string

const (
	TypeTelegram   Type = "telegram"
	TypeSlack      Type = "slack"
	TypeDiscord    Type = "discord"
	TypeMattermost Type = "mattermost"
	TypeEmail      Type = "email"
)

// Types lists every supported destination type.
var Types = []Type{TypeTelegram, TypeSlack, TypeDiscord, TypeMattermost, TypeEmail}

// SensitiveFields names the config keys stored encrypted at rest, per type.
var SensitiveFields = map[Type][]string{
	TypeTelegram:   {"bot_token"},
	TypeSlack:      {"webhook_url"},
	TypeDiscord:    {"webhook_url"},
	TypeMattermost: {"webhook_url"},
	TypeEmail:      {"smtp_password"},
}

// Filters restricts which events a destination receives. A nil Filters, or
// any empty dimension, matches everything: filtering is opt-in and the
// default behavior stays "notify for every event".
type Filters struct {
	Platforms  []string `json:"platforms,omitempty"`
	EventTypes []string `json:"event_types,omitempty"`
	Projects   []string `json:"projects,omitempty"`
	Branches   []string `json:"branches,omitempty"`
}

// Destination is a configured notification target. Sensitive config values
// are encrypted before persistence and decrypted only at send time.
type Destination struct {
	ID        int64             `json:"id,string"`
	Name      string            `json:"name"`
	Type      Type              `json:"type"`
	Active    bool              `json:"active"`
	Config    map[string]string `json:"-"`
	Filters   *Filters          `json:"filters,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// WithConfig returns a copy of the destination carrying the given config.
// Dispatch uses it to hand decrypted config to a provider without mutating
// the stored snapshot.
func (d *Destination) WithConfig(config map[string]string) *Destination {
	clone := *d
	clone.Config = config
	return &clone
}

// ShouldNotify reports whether an event with the given coordinates should be
// delivered to this destination. Project entries may be shell-style globs
// (frontend-*); platforms, event types and branches are exact matches. An
// empty branch at the call site passes the branch dimension, since not every
// event kind carries a branch.
func (d *Destination) ShouldNotify(platform, eventType, project, branch string) bool {
	f := d.Filters
	if f == nil {
		return true
	}
	if len(f.Platforms) > 0 && !contains(f.Platforms, platform) {
		return false
	}
	if len(f.EventTypes) > 0 && !contains(f.EventTypes, eventType) {
		return false
	}
	if len(f.Projects) > 0 && !matchesProject(f.Projects, project) {
		return false
	}
	if len(f.Branches) > 0 && branch != "" && !contains(f.Branches, branch) {
		return false
	}
	return true
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func matchesProject(patterns []string, project string) bool {
	for _, pattern := range patterns {
		if pattern == project {
			return true
		}
		if ok, err := path.Match(pattern, project); err == nil && ok {
			return true
		}
	}
	return false
}
