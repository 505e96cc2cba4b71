package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/ismoilovdevml/webhook-bridge/internal/domain/delivery"
)

// OutcomeModel is the append-only delivery log row.
type OutcomeModel struct {
	ID              int64  `gorm:"primaryKey"`
	Platform        string `gorm:"type:varchar(50);index"`
	EventType       string `gorm:"type:varchar(100);index"`
	Project         string `gorm:"type:varchar(255);index"`
	Author          string `gorm:"type:varchar(255)"`
	Branch          string `gorm:"type:varchar(255)"`
	DestinationID   *int64 `gorm:"index"`
	DestinationName string `gorm:"type:varchar(255)"`
	Status          string `gorm:"type:varchar(20);index"`
	ErrorMessage    string `gorm:"type:text"`

	CreatedAt time.Time `gorm:"index"`
}

func (OutcomeModel) TableName() string {
	return "delivery_outcomes"
}

type OutcomeRepository struct {
	db *gorm.DB
}

func NewOutcomeRepository(db *gorm.DB) *OutcomeRepository {
	return &OutcomeRepository{db: db}
}

var _ delivery.Repository = (*OutcomeRepository)(nil)

func (r *OutcomeRepository) Create(ctx context.Context, o *delivery.Outcome) error {
	model := toOutcomeModel(o)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return err
	}
	o.ID = model.ID
	o.CreatedAt = model.CreatedAt
	return nil
}

func (r *OutcomeRepository) List(ctx context.Context, q delivery.Query) ([]*delivery.Outcome, int64, error) {
	query := r.db.WithContext(ctx).Model(&OutcomeModel{})
	if q.Platform != "" {
		query = query.Where("platform = ?", q.Platform)
	}
	if q.EventType != "" {
		query = query.Where("event_type = ?", q.EventType)
	}
	if q.Project != "" {
		query = query.Where("project = ?", q.Project)
	}
	if q.Status != "" {
		query = query.Where("status = ?", string(q.Status))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order("created_at desc").Offset(q.Offset)
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}

	var models []OutcomeModel
	if err := query.Find(&models).Error; err != nil {
		return nil, 0, err
	}

	items := make([]*delivery.Outcome, 0, len(models))
	for _, model := range models {
		items = append(items, toOutcome(model))
	}
	return items, total, nil
}

func (r *OutcomeRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&OutcomeModel{})
	return result.RowsAffected, result.Error
}

func (r *OutcomeRepository) StatsSince(ctx context.Context, since time.Time) (*delivery.Stats, error) {
	base := r.db.WithContext(ctx).Model(&OutcomeModel{}).Where("created_at >= ?", since)

	stats := &delivery.Stats{
		ByPlatform:  map[string]int64{},
		ByEventType: map[string]int64{},
	}

	if err := base.Session(&gorm.Session{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	if err := base.Session(&gorm.Session{}).Where("status = ?", string(delivery.StatusSuccess)).Count(&stats.Succeeded).Error; err != nil {
		return nil, err
	}
	if err := base.Session(&gorm.Session{}).Where("status = ?", string(delivery.StatusFailed)).Count(&stats.Failed).Error; err != nil {
		return nil, err
	}
	if stats.Total > 0 {
		stats.SuccessRate = float64(stats.Succeeded) / float64(stats.Total) * 100
	}

	type bucket struct {
		Key   string
		Count int64
	}

	var byPlatform []bucket
	if err := base.Session(&gorm.Session{}).
		Select("platform as key, count(*) as count").
		Group("platform").Scan(&byPlatform).Error; err != nil {
		return nil, err
	}
	for _, b := range byPlatform {
		stats.ByPlatform[b.Key] = b.Count
	}

	var byEventType []bucket
	if err := base.Session(&gorm.Session{}).
		Select("event_type as key, count(*) as count").
		Group("event_type").Scan(&byEventType).Error; err != nil {
		return nil, err
	}
	for _, b := range byEventType {
		stats.ByEventType[b.Key] = b.Count
	}

	return stats, nil
}

// Mappers

func toOutcomeModel(o *delivery.Outcome) OutcomeModel {
	return OutcomeModel{
		ID:              o.ID,
		Platform:        o.Platform,
		EventType:       o.EventType,
		Project:         o.Project,
		Author:          o.Author,
		Branch:          o.Branch,
		DestinationID:   o.DestinationID,
		DestinationName: o.DestinationName,
		Status:          string(o.Status),
		ErrorMessage:    o.ErrorMessage,
		CreatedAt:       o.CreatedAt,
	}
}

func toOutcome(m OutcomeModel) *delivery.Outcome {
	return &delivery.Outcome{
		ID:              m.ID,
		Platform:        m.Platform,
		EventType:       m.EventType,
		Project:         m.Project,
		Author:          m.Author,
		Branch:          m.Branch,
		DestinationID:   m.DestinationID,
		DestinationName: m.DestinationName,
		Status:          delivery.Status(m.Status),
		ErrorMessage:    m.ErrorMessage,
		CreatedAt:       m.CreatedAt,
	}
}
