package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/ismoilovdevml/webhook-bridge/internal/domain/destination"
)

// DestinationModel is the database DTO with Gorm tags. Config and Filters
// are stored as JSON columns; config values arrive already encrypted.
type DestinationModel struct {
	ID      int64  `gorm:"primaryKey"`
	Name    string `gorm:"type:varchar(255);uniqueIndex"`
	Type    string `gorm:"type:varchar(50);index"`
	Active  bool   `gorm:"index"`
	Config  []byte `gorm:"type:jsonb"`
	Filters []byte `gorm:"type:jsonb"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (DestinationModel) TableName() string {
	return "destinations"
}

type DestinationRepository struct {
	db *gorm.DB
}

func NewDestinationRepository(db *gorm.DB) *DestinationRepository {
	return &DestinationRepository{db: db}
}

var _ destination.Repository = (*DestinationRepository)(nil)

func (r *DestinationRepository) Create(ctx context.Context, d *destination.Destination) error {
	model, err := toDestinationModel(d)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return err
	}
	d.ID = model.ID
	d.CreatedAt = model.CreatedAt
	d.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *DestinationRepository) FindByID(ctx context.Context, id int64) (*destination.Destination, error) {
	var model DestinationModel
	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return toDestination(model)
}

func (r *DestinationRepository) List(ctx context.Context, offset, limit int) ([]*destination.Destination, error) {
	query := r.db.WithContext(ctx).Order("id asc").Offset(offset)
	if limit > 0 {
		query = query.Limit(limit)
	}

	var models []DestinationModel
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return toDestinations(models)
}

func (r *DestinationRepository) ListActive(ctx context.Context) ([]*destination.Destination, error) {
	var models []DestinationModel
	if err := r.db.WithContext(ctx).Where("active = ?", true).Order("id asc").Find(&models).Error; err != nil {
		return nil, err
	}
	return toDestinations(models)
}

func (r *DestinationRepository) Update(ctx context.Context, d *destination.Destination) error {
	model, err := toDestinationModel(d)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Save(&model).Error
}

func (r *DestinationRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&DestinationModel{}, id).Error
}

// Mappers

func toDestinationModel(d *destination.Destination) (DestinationModel, error) {
	config, err := json.Marshal(d.Config)
	if err != nil {
		return DestinationModel{}, err
	}
	var filters []byte
	if d.Filters != nil {
		if filters, err = json.Marshal(d.Filters); err != nil {
			return DestinationModel{}, err
		}
	}
	return DestinationModel{
		ID:        d.ID,
		Name:      d.Name,
		Type:      string(d.Type),
		Active:    d.Active,
		Config:    config,
		Filters:   filters,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}, nil
}

func toDestination(m DestinationModel) (*destination.Destination, error) {
	d := &destination.Destination{
		ID:        m.ID,
		Name:      m.Name,
		Type:      destination.Type(m.Type),
		Active:    m.Active,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	if len(m.Config) > 0 {
		if err := json.Unmarshal(m.Config, &d.Config); err != nil {
			return nil, err
		}
	}
	if len(m.Filters) > 0 {
		var f destination.Filters
		if err := json.Unmarshal(m.Filters, &f); err != nil {
			return nil, err
		}
		d.Filters = &f
	}
	return d, nil
}

func toDestinations(models []DestinationModel) ([]*destination.Destination, error) {
	items := make([]*destination.Destination, 0, len(models))
	for _, model := range models {
		d, err := toDestination(model)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, nil
}
