package device

import "context"

// Repository persists devices. *store.Collection[*Device] satisfies it.
type Repository interface {
	FindAll(ctx context.Context) ([]*Device, error)
	Save(ctx context.Context, id string, d *Device) error
	DeleteByID(ctx context.Context, id string) (bool, error)
}
