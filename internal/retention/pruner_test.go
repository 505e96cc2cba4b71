package retention

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/ismoilovdevml/webhook-bridge/internal/domain/delivery"
)

type countingRepo struct {
	delivery.Repository
	calls  atomic.Int32
	cutoff atomic.Value
}

func (c *countingRepo) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	c.calls.Add(1)
	c.cutoff.Store(cutoff)
	return 3, nil
}

func TestPrunerRunsImmediately(t *testing.T) {
	repo := &countingRepo{}
	p := NewPruner(repo, 30, zap.NewNop())
	p.interval = 10 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 35*time.Millisecond)
	defer cancel()
	p.Run(ctx)

	assert.GreaterOrEqual(t, repo.calls.Load(), int32(2))

	cutoff := repo.cutoff.Load().(time.Time)
	expected := time.Now().AddDate(0, 0, -30)
	assert.WithinDuration(t, expected, cutoff, time.Minute)
}

func TestPrunerDisabledByZeroRetention(t *testing.T) {
	repo := &countingRepo{}
	p := NewPruner(repo, 0, zap.NewNop())

	done := make(chan struct{})
	go func() {
		p.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pruner did not return when retention is disabled")
	}
	assert.Zero(t, repo.calls.Load())
}
