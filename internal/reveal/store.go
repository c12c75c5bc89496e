package reveal

import (
	"context"

	id "veil/pkg/domain"
)

// Store is the append-only reveal audit log. Implementations must never
// support mutation or deletion; per-coordination ordering follows append
// order under the engine's single-writer discipline.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByCoordination(ctx context.Context, coordinationID id.CoordinationID) ([]Event, error)
}
