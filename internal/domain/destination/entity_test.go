package destination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShouldNotifyNilFiltersMatchesEverything(t *testing.T) {
	d := &Destination{Name: "all", Type: TypeSlack}
	assert.True(t, d.ShouldNotify("github", "push", "acme/api", "main"))
	assert.True(t, d.ShouldNotify("", "", "", ""))
}

func TestShouldNotifyFilterDimensions(t *testing.T) {
	d := &Destination{
		Name: "filtered",
		Type: TypeTelegram,
		Filters: &Filters{
			Platforms:  []string{"gitlab"},
			EventTypes: []string{"push", "merge_request"},
			Branches:   []string{"main"},
		},
	}

	assert.True(t, d.ShouldNotify("gitlab", "push", "acme/api", "main"))
	assert.False(t, d.ShouldNotify("github", "push", "acme/api", "main"))
	assert.False(t, d.ShouldNotify("gitlab", "issue", "acme/api", "main"))
	assert.False(t, d.ShouldNotify("gitlab", "push", "acme/api", "develop"))
}

func TestShouldNotifyEmptyBranchPasses(t *testing.T) {
	d := &Destination{
		Filters: &Filters{Branches: []string{"main"}},
	}
	// Issue and pipeline events have no branch; the branch filter must not
	// swallow them.
	assert.True(t, d.ShouldNotify("gitlab", "issue", "acme/api", ""))
}

func TestShouldNotifyProjectGlobs(t *testing.T) {
	d := &Destination{
		Filters: &Filters{Projects: []string{"frontend-*", "acme/api"}},
	}

	assert.True(t, d.ShouldNotify("github", "push", "frontend-web", ""))
	assert.True(t, d.ShouldNotify("github", "push", "acme/api", ""))
	assert.False(t, d.ShouldNotify("github", "push", "backend-core", ""))
}

func TestShouldNotifyEmptyFilterListsMatch(t *testing.T) {
	d := &Destination{Filters: &Filters{}}
	assert.True(t, d.ShouldNotify("bitbucket", "pipeline", "x", "y"))
}

func TestWithConfigDoesNotMutateOriginal(t *testing.T) {
	d := &Destination{
		Name:   "tg",
		Config: map[string]string{"bot_token": "sealed"},
	}
	clone := d.WithConfig(map[string]string{"bot_token": "plain"})

	assert.Equal(t, "plain", clone.Config["bot_token"])
	assert.Equal(t, "sealed", d.Config["bot_token"])
	assert.Equal(t, d.Name, clone.Name)
}
