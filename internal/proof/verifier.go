// Package proof verifies capability proofs: opaque bundles asserting tier
// membership, payment capability, and service eligibility without revealing
// who the submitter is. The verifier is deliberately independent of the
// identity manager; it reasons over proof bytes and a replay store only.
package proof

import (
	"context"

	id "veil/pkg/domain"
)

// Capability names a fact a proof can assert beyond tier membership.
type Capability string

const (
	CapabilityPayment          Capability = "payment"
	CapabilityLocationRange    Capability = "location_range"
	CapabilityTimeWindow       Capability = "time_window"
	CapabilityEmergencyContact Capability = "emergency_contact"
)

// Result is the outcome of verification. Reasons are populated on rejection
// so callers can return actionable errors without re-inspecting the proof.
type Result struct {
	OK      bool
	Reasons []string
	// Fingerprint identifies the proof for replay bookkeeping. Stable for
	// identical proof bytes.
	Fingerprint string
	// Asserted claims, valid only when OK.
	Tier         id.Tier
	Capabilities []Capability
}

// HasCapability reports whether the verified proof asserted cap.
func (r Result) HasCapability(cap Capability) bool {
	for _, c := range r.Capabilities {
		if c == cap {
			return true
		}
	}
	return false
}

//go:generate mockgen -source=verifier.go -destination=mocks/proof-mocks.go -package=mocks Verifier

// Verifier validates a submitted proof against a tier and capability
// requirement. Implementations must enforce replay prevention: a proof that
// verifies once is rejected on any subsequent submission within its validity
// window.
type Verifier interface {
	Verify(ctx context.Context, rawProof string, requiredTier id.Tier, required []Capability) (Result, error)
}
