package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ismoilovdevml/webhook-bridge/internal/cryptoutils"
	"github.com/ismoilovdevml/webhook-bridge/internal/domain/delivery"
	"github.com/ismoilovdevml/webhook-bridge/internal/domain/destination"
	"github.com/ismoilovdevml/webhook-bridge/internal/domain/event"
	"github.com/ismoilovdevml/webhook-bridge/internal/formatter"
	"github.com/ismoilovdevml/webhook-bridge/internal/provider"
)

type fakeDestinations struct {
	destination.Repository
	active []*destination.Destination
}

func (f *fakeDestinations) ListActive(context.Context) ([]*destination.Destination, error) {
	return f.active, nil
}

type fakeOutcomes struct {
	delivery.Repository
	mu       sync.Mutex
	outcomes []*delivery.Outcome
}

func (f *fakeOutcomes) Create(_ context.Context, o *delivery.Outcome) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes = append(f.outcomes, o)
	return nil
}

func (f *fakeOutcomes) all() []*delivery.Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*delivery.Outcome(nil), f.outcomes...)
}

type fakeProvider struct {
	mu    sync.Mutex
	calls int
	errs  []error
}

func (f *fakeProvider) Send(context.Context, formatter.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= len(f.errs) {
		return f.errs[f.calls-1]
	}
	return nil
}

func (f *fakeProvider) TestConnection(context.Context) error { return nil }

func (f *fakeProvider) sendCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestDispatcher(t *testing.T, dests []*destination.Destination, factory ProviderFactory) (*Dispatcher, *fakeOutcomes) {
	t.Helper()
	cipher, err := cryptoutils.NewCipher("test-key", zap.NewNop())
	require.NoError(t, err)

	outcomes := &fakeOutcomes{}
	cfg := DefaultConfig()
	cfg.InitialDelay = time.Millisecond
	cfg.MaxDelay = 5 * time.Millisecond

	d := New(&fakeDestinations{active: dests}, outcomes, cipher, provider.Deps{}, zap.NewNop(), cfg)
	if factory != nil {
		d.newProvider = factory
	}
	return d, outcomes
}

func telegramDest(id int64, name string, filters *destination.Filters) *destination.Destination {
	return &destination.Destination{
		ID:      id,
		Name:    name,
		Type:    destination.TypeTelegram,
		Active:  true,
		Config:  map[string]string{"bot_token": "t", "chat_id": "1"},
		Filters: filters,
	}
}

func pushEvent() *event.Event {
	return &event.Event{
		Platform:  event.PlatformGitLab,
		EventType: "push",
		Project:   "group/app",
		Author:    "Alice",
		Ref:       "main",
	}
}

func TestDispatch_SuccessWritesOneOutcomePerDestination(t *testing.T) {
	p := &fakeProvider{}
	d, outcomes := newTestDispatcher(t,
		[]*destination.Destination{
			telegramDest(1, "team-a", nil),
			telegramDest(2, "team-b", nil),
		},
		func(*destination.Destination, provider.Deps) (provider.Provider, error) { return p, nil },
	)

	launched, err := d.Dispatch(context.Background(), pushEvent())
	require.NoError(t, err)
	assert.Equal(t, 2, launched)
	d.Wait()

	all := outcomes.all()
	require.Len(t, all, 2)
	for _, o := range all {
		assert.Equal(t, delivery.StatusSuccess, o.Status)
		assert.Equal(t, "push", o.EventType)
		assert.Equal(t, "main", o.Branch)
		assert.NotNil(t, o.DestinationID)
	}
}

func TestDispatch_FilteredDestinationGetsNoOutcome(t *testing.T) {
	p := &fakeProvider{}
	d, outcomes := newTestDispatcher(t,
		[]*destination.Destination{
			telegramDest(1, "only-github", &destination.Filters{Platforms: []string{"github"}}),
			telegramDest(2, "everything", nil),
		},
		func(*destination.Destination, provider.Deps) (provider.Provider, error) { return p, nil },
	)

	launched, err := d.Dispatch(context.Background(), pushEvent())
	require.NoError(t, err)
	assert.Equal(t, 1, launched)
	d.Wait()

	all := outcomes.all()
	require.Len(t, all, 1)
	assert.Equal(t, "everything", all[0].DestinationName)
}

func TestDispatch_NoActiveDestinationsWritesNullDestinationRow(t *testing.T) {
	d, outcomes := newTestDispatcher(t, nil, nil)

	launched, err := d.Dispatch(context.Background(), pushEvent())
	require.NoError(t, err)
	assert.Equal(t, 0, launched)

	all := outcomes.all()
	require.Len(t, all, 1)
	assert.Nil(t, all[0].DestinationID)
	assert.Equal(t, delivery.StatusFailed, all[0].Status)
	assert.Contains(t, all[0].ErrorMessage, "no active destinations")
}

func TestDispatch_TransientFailureRetriesThenSucceeds(t *testing.T) {
	p := &fakeProvider{errs: []error{
		&provider.SendError{Provider: "telegram", Reason: "503"},
		&provider.SendError{Provider: "telegram", Reason: "503"},
	}}
	d, outcomes := newTestDispatcher(t,
		[]*destination.Destination{telegramDest(1, "team-a", nil)},
		func(*destination.Destination, provider.Deps) (provider.Provider, error) { return p, nil },
	)

	_, err := d.Dispatch(context.Background(), pushEvent())
	require.NoError(t, err)
	d.Wait()

	assert.Equal(t, 3, p.sendCalls())
	all := outcomes.all()
	require.Len(t, all, 1)
	assert.Equal(t, delivery.StatusSuccess, all[0].Status)
}

func TestDispatch_ExhaustedRetriesRecordFailure(t *testing.T) {
	sendErr := &provider.SendError{Provider: "telegram", Reason: "chat not found"}
	p := &fakeProvider{errs: []error{sendErr, sendErr, sendErr}}
	d, outcomes := newTestDispatcher(t,
		[]*destination.Destination{telegramDest(1, "team-a", nil)},
		func(*destination.Destination, provider.Deps) (provider.Provider, error) { return p, nil },
	)

	_, err := d.Dispatch(context.Background(), pushEvent())
	require.NoError(t, err)
	d.Wait()

	assert.Equal(t, 3, p.sendCalls())
	all := outcomes.all()
	require.Len(t, all, 1)
	assert.Equal(t, delivery.StatusFailed, all[0].Status)
	assert.Contains(t, all[0].ErrorMessage, "chat not found")
}

func TestDispatch_ConfigurationErrorIsNotRetried(t *testing.T) {
	p := &fakeProvider{errs: []error{
		&provider.ConfigurationError{Provider: "telegram", Field: "chat_id"},
	}}
	d, outcomes := newTestDispatcher(t,
		[]*destination.Destination{telegramDest(1, "team-a", nil)},
		func(*destination.Destination, provider.Deps) (provider.Provider, error) { return p, nil },
	)

	_, err := d.Dispatch(context.Background(), pushEvent())
	require.NoError(t, err)
	d.Wait()

	assert.Equal(t, 1, p.sendCalls())
	all := outcomes.all()
	require.Len(t, all, 1)
	assert.Equal(t, delivery.StatusFailed, all[0].Status)
}

func TestDispatch_OneFailureDoesNotAffectSiblings(t *testing.T) {
	bad := &fakeProvider{errs: []error{
		errors.New("boom"), errors.New("boom"), errors.New("boom"),
	}}
	good := &fakeProvider{}
	d, outcomes := newTestDispatcher(t,
		[]*destination.Destination{
			telegramDest(1, "bad", nil),
			telegramDest(2, "good", nil),
		},
		func(dst *destination.Destination, _ provider.Deps) (provider.Provider, error) {
			if dst.Name == "bad" {
				return bad, nil
			}
			return good, nil
		},
	)

	_, err := d.Dispatch(context.Background(), pushEvent())
	require.NoError(t, err)
	d.Wait()

	byName := map[string]delivery.Status{}
	for _, o := range outcomes.all() {
		byName[o.DestinationName] = o.Status
	}
	assert.Equal(t, delivery.StatusFailed, byName["bad"])
	assert.Equal(t, delivery.StatusSuccess, byName["good"])
}

func TestDispatch_ProviderConstructionFailureRecordsFailedOutcome(t *testing.T) {
	d, outcomes := newTestDispatcher(t,
		[]*destination.Destination{
			{ID: 1, Name: "broken", Type: destination.TypeTelegram, Active: true, Config: map[string]string{}},
		},
		nil, // real factory: missing bot_token fails construction
	)

	_, err := d.Dispatch(context.Background(), pushEvent())
	require.NoError(t, err)
	d.Wait()

	all := outcomes.all()
	require.Len(t, all, 1)
	assert.Equal(t, delivery.StatusFailed, all[0].Status)
	assert.Contains(t, all[0].ErrorMessage, "bot_token")
}

func TestBackoff_GrowsAndCaps(t *testing.T) {
	d := &Dispatcher{cfg: Config{
		InitialDelay: time.Second,
		MaxDelay:     10 * time.Second,
		BackoffBase:  2.0,
	}}

	assert.Equal(t, time.Second, d.backoff(1))
	assert.Equal(t, 2*time.Second, d.backoff(2))
	assert.Equal(t, 4*time.Second, d.backoff(3))
	assert.Equal(t, 10*time.Second, d.backoff(10))
}
