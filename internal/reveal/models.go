// Package reveal implements the progressive identity disclosure ladder: a
// strictly-ordered, monotonic climb from full anonymity toward full
// identity, with every step recorded in an append-only audit log.
package reveal

import (
	"time"

	id "veil/pkg/domain"
)

// Event is the append-only audit record of a disclosure change. Events are
// never mutated or deleted; cleanup anonymizes coordinations but keeps this
// trail for compliance traceability.
type Event struct {
	CoordinationID      id.CoordinationID
	TriggeringCondition string
	LevelBefore         id.DisclosureLevel
	LevelAfter          id.DisclosureLevel
	AuthorizedBy        string
	Timestamp           time.Time
}

// Authorizer values recorded on events.
const (
	AuthorizedByUserConsent       = "user_consent"
	AuthorizedByPhaseMandate      = "phase_mandate"
	AuthorizedByEmergencyOverride = "emergency_override"
	AuthorizedByLookup            = "identity_manager_lookup"
)

// JustificationKind discriminates the three valid reveal justifications.
type JustificationKind string

const (
	// JustificationConsent carries an explicit user consent token.
	JustificationConsent JustificationKind = "user_consent"
	// JustificationPhase is a phase-mandated minimum from the engine.
	JustificationPhase JustificationKind = "phase_mandate"
	// JustificationEmergency is a grant from the override controller.
	JustificationEmergency JustificationKind = "emergency_grant"
)

// Justification is the authorization evidence for a reveal request. Exactly
// one of the kind-specific fields is meaningful.
type Justification struct {
	Kind JustificationKind
	// ConsentToken is the signed user consent (JustificationConsent).
	ConsentToken string
	// Phase is the phase whose minimum mandates the reveal
	// (JustificationPhase).
	Phase id.Phase
	// Condition describes the emergency trigger (JustificationEmergency);
	// the override controller is the only producer.
	Condition string
	// Fields optionally narrows the disclosure below what the target level
	// implies (emergency grants enumerate statutes' exact field sets).
	Fields []id.IdentityField
}

// Request asks for a disclosure climb on one coordination. The engine owns
// the coordination record; it passes the current level in and persists the
// new level from the outcome.
type Request struct {
	CoordinationID id.CoordinationID
	PseudonymID    id.PseudonymID
	Current        id.DisclosureLevel
	Target         id.DisclosureLevel
	Justification  Justification
}

// Outcome reports a successful (or no-op) reveal. Event is nil for the
// idempotent no-op case where the target did not exceed the current level.
type Outcome struct {
	Event *Event
	Level id.DisclosureLevel
	// Disclosed carries the resolved identity fields for delivery on the
	// provider's private channel. Never serialized into status responses.
	Disclosed map[id.IdentityField]string
}
