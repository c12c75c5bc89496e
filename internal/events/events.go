// Package events defines the typed event stream consumed by notification,
// billing, and audit collaborators. Payloads carry only the minimum
// disclosure already authorized for the coordination; real identity fields
// never transit this stream.
package events

import (
	"context"
	"time"

	id "veil/pkg/domain"
)

// Kind names an event on the stream.
type Kind string

const (
	KindCoordinationCreated  Kind = "coordination.created"
	KindCoordinationMatched  Kind = "coordination.matched"
	KindRevealOccurred       Kind = "reveal.occurred"
	KindCoordinationTerminal Kind = "coordination.terminal"
	KindEmergencyNotified    Kind = "emergency.notified"
)

// Event is the envelope published for every kind. Optional fields are set
// only for the kinds that define them.
type Event struct {
	Kind           Kind              `json:"kind"`
	CoordinationID id.CoordinationID `json:"coordination_id"`
	Timestamp      time.Time         `json:"timestamp"`

	// KindCoordinationMatched
	ProviderID string `json:"provider_id,omitempty"`

	// KindRevealOccurred: the resulting ladder level, never field values.
	DisclosureLevel string `json:"disclosure_level,omitempty"`

	// KindCoordinationTerminal
	Outcome string `json:"outcome,omitempty"`

	// KindEmergencyNotified: post-hoc user notification of an override.
	EmergencyType string `json:"emergency_type,omitempty"`
}

// Publisher fans events out to the stream. Implementations must be safe for
// concurrent use; publishing is best-effort and never blocks domain logic on
// consumer availability.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}
