package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ismoilovdevml/webhook-bridge/internal/config"
	"github.com/ismoilovdevml/webhook-bridge/internal/cryptoutils"
	"github.com/ismoilovdevml/webhook-bridge/internal/dispatch"
	"github.com/ismoilovdevml/webhook-bridge/internal/domain/delivery"
	"github.com/ismoilovdevml/webhook-bridge/internal/domain/destination"
	"github.com/ismoilovdevml/webhook-bridge/internal/parser"
	"github.com/ismoilovdevml/webhook-bridge/internal/provider"
	"github.com/ismoilovdevml/webhook-bridge/internal/signature"
)

type memDestinations struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]*destination.Destination
}

func newMemDestinations() *memDestinations {
	return &memDestinations{items: make(map[int64]*destination.Destination)}
}

func (m *memDestinations) Create(_ context.Context, d *destination.Destination) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	d.ID = m.nextID
	d.CreatedAt = time.Now()
	d.UpdatedAt = d.CreatedAt
	clone := *d
	m.items[d.ID] = &clone
	return nil
}

func (m *memDestinations) FindByID(_ context.Context, id int64) (*destination.Destination, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	clone := *d
	return &clone, nil
}

func (m *memDestinations) List(_ context.Context, _, _ int) ([]*destination.Destination, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*destination.Destination, 0, len(m.items))
	for _, d := range m.items {
		clone := *d
		out = append(out, &clone)
	}
	return out, nil
}

func (m *memDestinations) ListActive(ctx context.Context) ([]*destination.Destination, error) {
	all, _ := m.List(ctx, 0, 0)
	active := all[:0]
	for _, d := range all {
		if d.Active {
			active = append(active, d)
		}
	}
	return active, nil
}

func (m *memDestinations) Update(_ context.Context, d *destination.Destination) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *d
	m.items[d.ID] = &clone
	return nil
}

func (m *memDestinations) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
	return nil
}

type memOutcomes struct {
	mu    sync.Mutex
	items []*delivery.Outcome
}

func (m *memOutcomes) Create(_ context.Context, o *delivery.Outcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o.ID = int64(len(m.items) + 1)
	o.CreatedAt = time.Now()
	m.items = append(m.items, o)
	return nil
}

func (m *memOutcomes) List(_ context.Context, _ delivery.Query) ([]*delivery.Outcome, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*delivery.Outcome(nil), m.items...), int64(len(m.items)), nil
}

func (m *memOutcomes) DeleteOlderThan(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

func (m *memOutcomes) StatsSince(_ context.Context, _ time.Time) (*delivery.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &delivery.Stats{
		ByPlatform:  map[string]int64{},
		ByEventType: map[string]int64{},
	}
	for _, o := range m.items {
		stats.Total++
		if o.Status == delivery.StatusSuccess {
			stats.Succeeded++
		} else if o.Status == delivery.StatusFailed {
			stats.Failed++
		}
		stats.ByPlatform[o.Platform]++
		stats.ByEventType[o.EventType]++
	}
	return stats, nil
}

type testEnv struct {
	router       *Router
	destinations *memDestinations
	outcomes     *memOutcomes
	dispatcher   *dispatch.Dispatcher
}

func newTestEnv(t *testing.T, webhookSecret string) *testEnv {
	t.Helper()

	cfg := &config.Config{
		AppVersion:    "1.0.0",
		Port:          "0",
		AdminAPIToken: "admin-token",
		AdminUser:     "admin",
		AdminPassword: "hunter2",
		AuthJWTSecret: "jwt-secret",
		WebhookSecret: webhookSecret,
		EncryptionKey: "test-key",
	}

	logger := zap.NewNop()
	cipher, err := cryptoutils.NewCipher(cfg.EncryptionKey, logger)
	require.NoError(t, err)

	destinations := newMemDestinations()
	outcomes := &memOutcomes{}

	dispatcher := dispatch.New(
		destinations, outcomes, cipher, provider.Deps{Logger: logger}, logger,
		dispatch.Config{MaxAttempts: 1, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffBase: 2.0},
	)

	router := NewRouter(
		cfg, dispatcher, parser.Default(),
		signature.NewValidator(cfg.WebhookSecret, logger),
		cipher, destinations, outcomes, provider.Deps{Logger: logger}, logger,
	)

	return &testEnv{router: router, destinations: destinations, outcomes: outcomes, dispatcher: dispatcher}
}

func (e *testEnv) do(method, path string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.router.engine.ServeHTTP(w, req)
	return w
}

func authed(extra map[string]string) map[string]string {
	headers := map[string]string{"Authorization": "Bearer admin-token"}
	for k, v := range extra {
		headers[k] = v
	}
	return headers
}

var gitlabPush = []byte(`{
	"object_kind": "push",
	"ref": "refs/heads/main",
	"user_name": "Dilshod",
	"project": {"path_with_namespace": "acme/api", "web_url": "https://gitlab.com/acme/api"},
	"commits": [{"id": "abc123", "message": "fix parser", "url": "u", "author": {"name": "Dilshod"}}],
	"total_commits_count": 1
}`)

func TestHealth(t *testing.T) {
	env := newTestEnv(t, "")
	w := env.do(http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWebhookTestEndpoint(t *testing.T) {
	env := newTestEnv(t, "")
	w := env.do(http.MethodGet, "/webhook/test", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, "1.0.0", resp["version"])
}

func TestWebhookInvalidJSON(t *testing.T) {
	env := newTestEnv(t, "")
	w := env.do(http.MethodPost, "/webhook/git", []byte("{not json"), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhookUnknownPlatform(t *testing.T) {
	env := newTestEnv(t, "")
	w := env.do(http.MethodPost, "/webhook/git", []byte(`{"hello":"world"}`), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unknown webhook platform")
}

func TestWebhookNoDestinationsAccepted(t *testing.T) {
	env := newTestEnv(t, "")
	w := env.do(http.MethodPost, "/webhook/git", gitlabPush,
		map[string]string{"X-Gitlab-Event": "Push Hook"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "accepted", resp["status"])
	assert.Equal(t, float64(0), resp["providers"])

	evt := resp["event"].(map[string]any)
	assert.Equal(t, "gitlab", evt["platform"])
	assert.Equal(t, "push", evt["type"])
	assert.Equal(t, "acme/api", evt["project"])

	// The event is still recorded as a failed null-destination outcome.
	outcomes, _, err := env.outcomes.List(context.Background(), delivery.Query{})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, delivery.StatusFailed, outcomes[0].Status)
	assert.Nil(t, outcomes[0].DestinationID)
}

func TestWebhookDispatchesToMatchingDestination(t *testing.T) {
	env := newTestEnv(t, "")

	// Missing bot_token makes provider construction fail, which still
	// exercises the full dispatch path and records a failed outcome.
	require.NoError(t, env.destinations.Create(context.Background(), &destination.Destination{
		Name:   "team-telegram",
		Type:   destination.TypeTelegram,
		Active: true,
		Config: map[string]string{"chat_id": "42"},
	}))

	w := env.do(http.MethodPost, "/webhook/git", gitlabPush,
		map[string]string{"X-Gitlab-Event": "Push Hook"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp["status"])
	assert.Equal(t, float64(1), resp["providers"])

	env.dispatcher.Wait()

	outcomes, _, err := env.outcomes.List(context.Background(), delivery.Query{})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, delivery.StatusFailed, outcomes[0].Status)
	assert.Equal(t, "team-telegram", outcomes[0].DestinationName)
}

func TestWebhookSignatureRejected(t *testing.T) {
	env := newTestEnv(t, "s3cret")

	w := env.do(http.MethodPost, "/webhook/git", gitlabPush,
		map[string]string{"X-Gitlab-Event": "Push Hook", "X-Gitlab-Token": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWebhookSignatureAccepted(t *testing.T) {
	env := newTestEnv(t, "s3cret")

	w := env.do(http.MethodPost, "/webhook/git", gitlabPush,
		map[string]string{"X-Gitlab-Event": "Push Hook", "X-Gitlab-Token": "s3cret"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestManagementAPIRequiresAuth(t *testing.T) {
	env := newTestEnv(t, "")

	w := env.do(http.MethodGet, "/api/destinations", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(http.MethodGet, "/api/destinations", nil,
		map[string]string{"Authorization": "Bearer wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(http.MethodGet, "/api/destinations", nil, authed(nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLoginIssuesUsableJWT(t *testing.T) {
	env := newTestEnv(t, "")

	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "hunter2"})
	w := env.do(http.MethodPost, "/auth/login", body, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	token := resp["access_token"].(string)
	require.NotEmpty(t, token)

	w = env.do(http.MethodGet, "/api/destinations", nil,
		map[string]string{"Authorization": "Bearer " + token})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	env := newTestEnv(t, "")

	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "wrong"})
	w := env.do(http.MethodPost, "/auth/login", body, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDestinationCRUD(t *testing.T) {
	env := newTestEnv(t, "")

	create, _ := json.Marshal(map[string]any{
		"name":   "team-telegram",
		"type":   "telegram",
		"config": map[string]string{"bot_token": "123:abc", "chat_id": "42"},
		"filters": map[string]any{
			"platforms": []string{"gitlab"},
		},
	})
	w := env.do(http.MethodPost, "/api/destinations", create, authed(map[string]string{"Content-Type": "application/json"}))
	require.Equal(t, http.StatusCreated, w.Code)

	var created destination.Destination
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotZero(t, created.ID)
	// Config must not appear in responses.
	assert.NotContains(t, w.Body.String(), "123:abc")
	assert.NotContains(t, w.Body.String(), "bot_token")

	// Sensitive field is encrypted at rest.
	stored, err := env.destinations.FindByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "123:abc", stored.Config["bot_token"])
	assert.Equal(t, "42", stored.Config["chat_id"])

	w = env.do(http.MethodGet, "/api/destinations/1", nil, authed(nil))
	assert.Equal(t, http.StatusOK, w.Code)

	update, _ := json.Marshal(map[string]any{
		"name":   "team-telegram",
		"type":   "telegram",
		"active": false,
		"config": map[string]string{"bot_token": "456:def", "chat_id": "42"},
	})
	w = env.do(http.MethodPut, "/api/destinations/1", update, authed(nil))
	require.Equal(t, http.StatusOK, w.Code)

	stored, err = env.destinations.FindByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.False(t, stored.Active)

	w = env.do(http.MethodDelete, "/api/destinations/1", nil, authed(nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodGet, "/api/destinations/1", nil, authed(nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateDestinationRejectsUnknownType(t *testing.T) {
	env := newTestEnv(t, "")

	body, _ := json.Marshal(map[string]any{
		"name":   "x",
		"type":   "carrier-pigeon",
		"config": map[string]string{"coop": "roof"},
	})
	w := env.do(http.MethodPost, "/api/destinations", body, authed(nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDashboardStats(t *testing.T) {
	env := newTestEnv(t, "")

	require.NoError(t, env.outcomes.Create(context.Background(), &delivery.Outcome{
		Platform: "gitlab", EventType: "push", Project: "acme/api", Status: delivery.StatusSuccess,
	}))

	w := env.do(http.MethodGet, "/api/dashboard/stats", nil, authed(nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	stats := resp["stats"].(map[string]any)
	assert.Equal(t, float64(1), stats["total"])
}

func TestListEvents(t *testing.T) {
	env := newTestEnv(t, "")

	require.NoError(t, env.outcomes.Create(context.Background(), &delivery.Outcome{
		Platform: "github", EventType: "pull_request", Project: "acme/web", Status: delivery.StatusFailed,
	}))

	w := env.do(http.MethodGet, "/api/events", nil, authed(nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "pull_request")
}

func TestCleanupEventsValidatesDays(t *testing.T) {
	env := newTestEnv(t, "")

	w := env.do(http.MethodDelete, "/api/events?days=0", nil, authed(nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodDelete, "/api/events?days=30", nil, authed(nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
