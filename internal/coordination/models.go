// Package coordination owns the central state machine: one Coordination per
// accepted service request, driven from intake through provider matching and
// execution phases into a terminal state.
package coordination

import (
	"time"

	id "veil/pkg/domain"
	dErrors "veil/pkg/domain-errors"
)

// State is a coordination lifecycle state. Transitions are one-directional;
// the single loop is escalated back into executing, bounded by the
// escalation limit.
type State string

const (
	StateReceived  State = "received"
	StateVerified  State = "verified"
	StateMatched   State = "matched"
	StateExecuting State = "executing"
	StateCompleted State = "completed"
	StateEscalated State = "escalated"
	StateAbandoned State = "abandoned"
)

// Terminal reports whether the state ends the coordination. Escalated is
// not terminal: the request is still alive from the client's perspective.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateAbandoned
}

// validTransitions is the single source of truth for the state machine.
var validTransitions = map[State][]State{
	StateReceived:  {StateVerified, StateAbandoned},
	StateVerified:  {StateMatched, StateAbandoned},
	StateMatched:   {StateExecuting, StateEscalated, StateAbandoned},
	StateExecuting: {StateCompleted, StateEscalated, StateAbandoned},
	StateEscalated: {StateExecuting, StateCompleted, StateAbandoned},
}

// CanTransition reports whether from→to is a legal step.
func CanTransition(from, to State) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Erasure marks how a finalized coordination was scrubbed.
const (
	ErasureAnonymized    = "anonymized"
	ErasureQuantumErased = "quantum_erased"
)

// ServiceRequest is the immutable intake payload. Only RevealTriggers is
// appended by the engine after creation.
type ServiceRequest struct {
	RequestID      id.RequestID
	PseudonymID    id.PseudonymID
	Kind           id.ServiceKind
	Tier           id.Tier
	Urgency        id.Urgency
	Category       string
	AnonymityLevel id.DisclosureLevel
	CreatedAt      time.Time
}

// PhaseRecord is one entry in the execution phase history.
type PhaseRecord struct {
	Phase     id.Phase
	EnteredAt time.Time
}

// TranscriptEntry is one line of coordination communication. Transcripts
// are deleted at finalization.
type TranscriptEntry struct {
	From string
	Body string
	At   time.Time
}

// Coordination is the central aggregate. The engine is its single writer;
// the reveal protocol and cleanup reference it but never own it.
type Coordination struct {
	ID      id.CoordinationID
	Request ServiceRequest

	State           State
	DisclosureLevel id.DisclosureLevel
	// DeliveredLevel is the highest level whose fields the matched provider
	// has actually received. It trails DisclosureLevel when a delivery
	// failed and still has to be retried.
	DeliveredLevel  id.DisclosureLevel
	MatchedProvider id.ProviderID
	Escalations     int
	PhaseHistory    []PhaseRecord
	RevealTriggers  []string
	Transcript      []TranscriptEntry
	CancelRequested bool

	CreatedAt   time.Time
	UpdatedAt   time.Time
	FinalizedAt *time.Time
	Erasure     string
}

// transition applies a legal state change or fails with terminal_state for
// post-finalization attempts and invalid_state otherwise.
func (c *Coordination) transition(to State, now time.Time) error {
	if c.State.Terminal() {
		return dErrors.New(dErrors.CodeTerminalState, "coordination already terminal")
	}
	if !CanTransition(c.State, to) {
		return dErrors.New(dErrors.CodeConflict, "illegal transition "+string(c.State)+" -> "+string(to))
	}
	c.State = to
	c.UpdatedAt = now
	return nil
}

// StatusView is the sanitized answer for status queries. It never carries
// resolved identity fields regardless of internal disclosure level; those
// only ever reach the matched provider's private channel.
type StatusView struct {
	CoordinationID  id.CoordinationID
	State           State
	DisclosureLevel id.DisclosureLevel
	// MatchedProviderID is empty until a provider is matched.
	MatchedProviderID string
}
