package coordination

import (
	"context"
	"time"

	id "veil/pkg/domain"
)

// Store persists coordination aggregates as documents. Implementations
// return sentinel errors; the service translates them into domain errors.
type Store interface {
	Create(ctx context.Context, c Coordination) error
	Get(ctx context.Context, coordinationID id.CoordinationID) (Coordination, error)
	// Update replaces the stored aggregate. The engine's per-coordination
	// single-writer discipline makes read-modify-write safe.
	Update(ctx context.Context, c Coordination) error
	// Anonymize scrubs the aggregate into its audit shell: transcript and
	// pseudonym link removed, state and disclosure history retained.
	// Returns the scrubbed pseudonym and tier so cleanup can decide on the
	// maximum-discretion path. Fails with sentinel.ErrAlreadyUsed when the
	// coordination was already finalized and sentinel.ErrInvalidState when
	// it is not yet terminal.
	Anonymize(ctx context.Context, coordinationID id.CoordinationID, erasure string, at time.Time) (id.PseudonymID, id.Tier, error)
	// ListUnfinalizedTerminal returns terminal coordinations the inline
	// finalizer missed, for the background sweeper.
	ListUnfinalizedTerminal(ctx context.Context, limit int) ([]Coordination, error)
}
