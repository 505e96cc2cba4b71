package destination

import "context"

// Repository is the persistence port for destinations. The dispatch pipeline
// only reads snapshots; writes happen through the management API.
type Repository interface {
	Create(ctx context.Context, d *Destination) error
	FindByID(ctx context.Context, id int64) (*Destination, error)
	List(ctx context.Context, offset, limit int) ([]*Destination, error)
	ListActive(ctx context.Context) ([]*Destination, error)
	Update(ctx context.Context, d *Destination) error
	Delete(ctx context.Context, id int64) error
}
