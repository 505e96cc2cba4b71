package delivery

import (
	"context"
	"time"
)

// Query narrows outcome listings. Zero values mean "no constraint".
type Query struct {
	Platform  string
	EventType string
	Project   string
	Status    Status
	Offset    int
	Limit     int
}

// Stats aggregates outcomes over a time window for the dashboard.
type Stats struct {
	Total       int64            `json:"total"`
	Succeeded   int64            `json:"succeeded"`
	Failed      int64            `json:"failed"`
	SuccessRate float64          `json:"success_rate"`
	ByPlatform  map[string]int64 `json:"by_platform"`
	ByEventType map[string]int64 `json:"by_event_type"`
}

// Repository is the persistence port for delivery outcomes.
type Repository interface {
	Create(ctx context.Context, o *Outcome) error
	List(ctx context.Context, q Query) ([]*Outcome, int64, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	StatsSince(ctx context.Context, since time.Time) (*Stats, error)
}
