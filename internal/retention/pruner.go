package retention

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ismoilovdevml/webhook-bridge/internal/domain/delivery"
)

// Pruner deletes delivery outcomes older than the configured retention
// window. Retention of zero days disables pruning.
type Pruner struct {
	outcomes delivery.Repository
	logger   *zap.Logger
	days     int
	interval time.Duration
}

func NewPruner(outcomes delivery.Repository, days int, logger *zap.Logger) *Pruner {
	return &Pruner{
		outcomes: outcomes,
		logger:   logger.Named("retention.pruner"),
		days:     days,
		interval: 12 * time.Hour,
	}
}

func (p *Pruner) Run(ctx context.Context) {
	if p.days <= 0 {
		p.logger.Info("outcome_retention_disabled")
		return
	}

	if err := p.prune(ctx); err != nil {
		p.logger.Error("prune_initial_failed", zap.Error(err))
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.prune(ctx); err != nil {
				p.logger.Error("prune_failed", zap.Error(err))
			}
		}
	}
}

func (p *Pruner) prune(ctx context.Context) error {
	cutoff := time.Now().AddDate(0, 0, -p.days)
	deleted, err := p.outcomes.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return err
	}
	if deleted > 0 {
		p.logger.Info("pruned_old_outcomes",
			zap.Int64("deleted", deleted),
			zap.Time("cutoff", cutoff),
		)
	}
	return nil
}
