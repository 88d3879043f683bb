package automation

import (
	"context"

	"github.com/nerrad567/gray-logic-automation/internal/device"
)

// ActionStore persists actions. *store.Collection[*Action] satisfies it.
type ActionStore interface {
	Save(ctx context.Context, id string, a *Action) error
	FindAll(ctx context.Context) ([]*Action, error)
	DeleteByID(ctx context.Context, id string) (bool, error)
}

// SceneStore persists scenes. *store.Collection[*Scene] satisfies it.
type SceneStore interface {
	Save(ctx context.Context, id string, s *Scene) error
	FindAll(ctx context.Context) ([]*Scene, error)
	DeleteByID(ctx context.Context, id string) (bool, error)
}

// Devices is what the registry needs from the device registry.
type Devices interface {
	Get(id string) (*device.Device, bool)
	ByModule(moduleID string) []*device.Device
}
