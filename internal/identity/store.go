package identity

import (
	"context"

	id "veil/pkg/domain"
)

// Store persists the pseudonym map. Implementations must treat it as the
// single most sensitive resource in the system: encrypted at rest where the
// backend supports it, and never exposed outside this package.
type Store interface {
	// Save persists a new pseudonym mapping.
	Save(ctx context.Context, p Pseudonym) error
	// FindActive returns the live pseudonym for a (user, tier) pair, or
	// sentinel.ErrNotFound.
	FindActive(ctx context.Context, userID id.UserID, tier id.Tier) (Pseudonym, error)
	// FindByID returns the mapping for a pseudonym whether or not it is
	// still active, or sentinel.ErrNotFound.
	FindByID(ctx context.Context, pseudonymID id.PseudonymID) (Pseudonym, error)
	// Revoke marks a pseudonym inactive. Idempotent.
	Revoke(ctx context.Context, pseudonymID id.PseudonymID) error
	// Delete removes the mapping entirely (maximum-discretion path). The
	// next request for that user and tier forces re-issuance.
	Delete(ctx context.Context, pseudonymID id.PseudonymID) error
}

// ProfileStore persists real identity fields keyed by user.
type ProfileStore interface {
	Save(ctx context.Context, profile Profile) error
	FindByUser(ctx context.Context, userID id.UserID) (Profile, error)
}
