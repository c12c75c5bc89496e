// Package identity owns the pseudonym-to-identity mapping. It is the only
// component allowed to touch real identity data; everything else sees
// pseudonyms, and resolution happens exclusively through Resolve with a
// reveal grant.
package identity

import (
	"time"

	id "veil/pkg/domain"
)

// Pseudonym is a tier-scoped anonymous identifier standing in for a real
// client. At any instant exactly one active pseudonym exists per
// (user, tier) pair.
type Pseudonym struct {
	ID       id.PseudonymID
	UserID   id.UserID
	Tier     id.Tier
	IssuedAt time.Time
	// RevokedAt is set when the pseudonym is rotated, invalidated on tier
	// change, or scrubbed on the maximum-discretion cleanup path.
	RevokedAt *time.Time
}

// Active reports whether the pseudonym is still the live mapping.
func (p Pseudonym) Active() bool { return p.RevokedAt == nil }

// Profile holds a client's real identity fields. Stored encrypted at rest;
// never serialized into coordination records.
type Profile struct {
	UserID id.UserID
	Fields map[id.IdentityField]string
}

// Grant authorizes a single resolution at a specific disclosure level. The
// reveal protocol and the emergency controller are the only producers.
type Grant struct {
	CoordinationID id.CoordinationID
	Level          id.DisclosureLevel
	// Fields enumerates exactly what the caller may receive. Resolve never
	// returns a field missing from this list, whatever the level implies.
	Fields       []id.IdentityField
	AuthorizedBy string
}

// Disclosure is the result of a resolution: the real user plus only the
// granted fields.
type Disclosure struct {
	UserID id.UserID
	Fields map[id.IdentityField]string
}
