package dispatch

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/ismoilovdevml/webhook-bridge/internal/cryptoutils"
	"github.com/ismoilovdevml/webhook-bridge/internal/domain/delivery"
	"github.com/ismoilovdevml/webhook-bridge/internal/domain/destination"
	"github.com/ismoilovdevml/webhook-bridge/internal/domain/event"
	"github.com/ismoilovdevml/webhook-bridge/internal/formatter"
	"github.com/ismoilovdevml/webhook-bridge/internal/provider"
)

var (
	deliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_bridge_deliveries_total",
		Help: "Delivery outcomes by destination type and terminal status.",
	}, []string{"destination_type", "status"})

	deliveryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "webhook_bridge_delivery_duration_seconds",
		Help:    "Wall time of one delivery including retries.",
		Buckets: prometheus.DefBuckets,
	}, []string{"destination_type"})
)

// Config tunes the per-delivery retry schedule.
type Config struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	BackoffBase  float64
}

func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: time.Second,
		MaxDelay:     60 * time.Second,
		BackoffBase:  2.0,
	}
}

// ProviderFactory builds the provider for one destination. Injectable so
// tests can dispatch against fakes.
type ProviderFactory func(d *destination.Destination, deps provider.Deps) (provider.Provider, error)

// Dispatcher fans one event out to every active, matching destination.
// Each delivery runs in its own goroutine and records exactly one outcome;
// a destination's failure never touches its siblings.
type Dispatcher struct {
	destinations destination.Repository
	outcomes     delivery.Repository
	cipher       *cryptoutils.Cipher
	deps         provider.Deps
	logger       *zap.Logger
	cfg          Config
	newProvider  ProviderFactory

	wg sync.WaitGroup
}

func New(
	destinations destination.Repository,
	outcomes delivery.Repository,
	cipher *cryptoutils.Cipher,
	deps provider.Deps,
	logger *zap.Logger,
	cfg Config,
) *Dispatcher {
	return &Dispatcher{
		destinations: destinations,
		outcomes:     outcomes,
		cipher:       cipher,
		deps:         deps,
		logger:       logger,
		cfg:          cfg,
		newProvider:  provider.New,
	}
}

// Dispatch filters the active destinations against the event and launches
// one delivery goroutine per match. It returns the number of launched
// deliveries; delivery itself continues after the webhook response is sent.
func (d *Dispatcher) Dispatch(ctx context.Context, e *event.Event) (int, error) {
	active, err := d.destinations.ListActive(ctx)
	if err != nil {
		return 0, err
	}

	if len(active) == 0 {
		d.logger.Warn("no_active_destinations_configured",
			zap.String("platform", string(e.Platform)),
			zap.String("event_type", e.EventType))
		d.recordNoDestination(ctx, e)
		return 0, nil
	}

	branch := e.Branch()
	launched := 0
	for _, dst := range active {
		if !dst.ShouldNotify(string(e.Platform), e.EventType, e.Project, branch) {
			d.logger.Debug("destination_filtered_out",
				zap.String("destination", dst.Name),
				zap.String("event_type", e.EventType))
			continue
		}

		launched++
		d.wg.Add(1)
		// Delivery outlives the webhook request.
		go d.deliver(context.WithoutCancel(ctx), e, dst)
	}
	return launched, nil
}

// Wait blocks until in-flight deliveries drain. Called on shutdown.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) deliver(ctx context.Context, e *event.Event, dst *destination.Destination) {
	defer d.wg.Done()
	start := time.Now()

	outcome := &delivery.Outcome{
		Platform:        string(e.Platform),
		EventType:       e.EventType,
		Project:         e.Project,
		Author:          e.Author,
		Branch:          e.Branch(),
		DestinationID:   &dst.ID,
		DestinationName: dst.Name,
		Status:          delivery.StatusPending,
	}

	// The outcome row is written no matter how delivery ends.
	defer func() {
		if outcome.Status == delivery.StatusPending {
			outcome.Status = delivery.StatusFailed
			outcome.ErrorMessage = "delivery did not complete"
		}
		deliveriesTotal.WithLabelValues(string(dst.Type), string(outcome.Status)).Inc()
		deliveryDuration.WithLabelValues(string(dst.Type)).Observe(time.Since(start).Seconds())

		if err := d.outcomes.Create(ctx, outcome); err != nil {
			d.logger.Error("failed_to_persist_delivery_outcome",
				zap.String("destination", dst.Name),
				zap.Error(err))
		}
	}()

	config := d.cipher.DecryptConfig(dst.Type, dst.Config)
	p, err := d.newProvider(dst.WithConfig(config), d.deps)
	if err != nil {
		outcome.Status = delivery.StatusFailed
		outcome.ErrorMessage = err.Error()
		d.logger.Error("provider_construction_failed",
			zap.String("destination", dst.Name),
			zap.Error(err))
		return
	}

	msg := formatter.Render(formatter.ForDestination(dst.Type), e, d.logger)

	if err := d.sendWithRetry(ctx, p, msg, dst); err != nil {
		outcome.Status = delivery.StatusFailed
		outcome.ErrorMessage = err.Error()
		d.logger.Error("delivery_failed",
			zap.String("destination", dst.Name),
			zap.String("destination_type", string(dst.Type)),
			zap.Error(err))
		return
	}

	outcome.Status = delivery.StatusSuccess
	d.logger.Info("delivery_succeeded",
		zap.String("destination", dst.Name),
		zap.String("destination_type", string(dst.Type)),
		zap.String("event_type", e.EventType))
}

func (d *Dispatcher) sendWithRetry(ctx context.Context, p provider.Provider, msg formatter.Message, dst *destination.Destination) error {
	var lastErr error
	for attempt := 1; attempt <= d.cfg.MaxAttempts; attempt++ {
		lastErr = p.Send(ctx, msg)
		if lastErr == nil {
			return nil
		}

		// Config problems are permanent; retry cannot fix them.
		var cfgErr *provider.ConfigurationError
		if errors.As(lastErr, &cfgErr) {
			return lastErr
		}

		if attempt < d.cfg.MaxAttempts {
			delay := d.backoff(attempt)
			d.logger.Warn("delivery_attempt_failed_retrying",
				zap.String("destination", dst.Name),
				zap.Int("attempt", attempt),
				zap.Duration("retry_in", delay),
				zap.Error(lastErr))

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return lastErr
}

func (d *Dispatcher) backoff(attempt int) time.Duration {
	delay := time.Duration(float64(d.cfg.InitialDelay) * math.Pow(d.cfg.BackoffBase, float64(attempt-1)))
	if delay > d.cfg.MaxDelay {
		return d.cfg.MaxDelay
	}
	return delay
}

// recordNoDestination writes the single null-destination outcome row kept
// for the zero-active-destinations case, so the event is still queryable.
func (d *Dispatcher) recordNoDestination(ctx context.Context, e *event.Event) {
	outcome := &delivery.Outcome{
		Platform:     string(e.Platform),
		EventType:    e.EventType,
		Project:      e.Project,
		Author:       e.Author,
		Branch:       e.Branch(),
		Status:       delivery.StatusFailed,
		ErrorMessage: "no active destinations configured",
	}
	if err := d.outcomes.Create(ctx, outcome); err != nil {
		d.logger.Error("failed_to_persist_delivery_outcome", zap.Error(err))
	}
}
