package convert

import (
	"context"

	"github.com/foldr-org/howl/internal/hass"
)

// Source is the registry the engine pulls its inventory from. It is
// implemented by *hass.Client; tests supply a fake.
//
// String-valued lookups use Home Assistant's "None" sentinel for
// absent values rather than an error.
type Source interface {
	// Devices lists all device registry identifiers.
	Devices(ctx context.Context) ([]string, error)

	// DeviceAttr returns one device registry attribute or "None".
	DeviceAttr(ctx context.Context, deviceID, attr string) (string, error)

	// DeviceEntities lists the entity ids owned by a device.
	DeviceEntities(ctx context.Context, deviceID string) ([]string, error)

	// DeviceID resolves the owning device of an entity, or "None".
	DeviceID(ctx context.Context, entityID string) (string, error)

	// AreaID and AreaName resolve a device's area assignment, or "None".
	AreaID(ctx context.Context, deviceID string) (string, error)
	AreaName(ctx context.Context, deviceID string) (string, error)

	// EntityAttributes returns an entity's state attribute map.
	EntityAttributes(ctx context.Context, entityID string) (map[string]any, error)

	// States returns the full state listing.
	States(ctx context.Context) ([]hass.State, error)

	// Services returns the service catalog as domain -> service names.
	Services(ctx context.Context) (map[string][]string, error)

	// AutomationConfig fetches one automation's full configuration.
	AutomationConfig(ctx context.Context, automationID string) (map[string]any, error)
}
