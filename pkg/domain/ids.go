// Package domain holds typed identifiers and value objects shared across
// services. Typed UUIDs make cross-entity assignment a compile error; Parse
// constructors enforce validity at trust boundaries.
package domain

import (
	"github.com/google/uuid"

	dErrors "veil/pkg/domain-errors"
)

// Typed identifiers. Direct casting bypasses validation; construct from
// external input via the ParseXxx functions.
type (
	UserID         uuid.UUID
	PseudonymID    uuid.UUID
	RequestID      uuid.UUID
	CoordinationID uuid.UUID
	ProviderID     uuid.UUID
)

func (id UserID) String() string         { return uuid.UUID(id).String() }
func (id PseudonymID) String() string    { return uuid.UUID(id).String() }
func (id RequestID) String() string      { return uuid.UUID(id).String() }
func (id CoordinationID) String() string { return uuid.UUID(id).String() }
func (id ProviderID) String() string     { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id PseudonymID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id RequestID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id CoordinationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ProviderID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }

// Text marshaling keeps typed IDs in canonical UUID form inside persisted
// JSON documents.
func (id UserID) MarshalText() ([]byte, error)         { return uuid.UUID(id).MarshalText() }
func (id PseudonymID) MarshalText() ([]byte, error)    { return uuid.UUID(id).MarshalText() }
func (id RequestID) MarshalText() ([]byte, error)      { return uuid.UUID(id).MarshalText() }
func (id CoordinationID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id ProviderID) MarshalText() ([]byte, error)     { return uuid.UUID(id).MarshalText() }

func (id *UserID) UnmarshalText(b []byte) error         { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *PseudonymID) UnmarshalText(b []byte) error    { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *RequestID) UnmarshalText(b []byte) error      { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *CoordinationID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *ProviderID) UnmarshalText(b []byte) error     { return (*uuid.UUID)(id).UnmarshalText(b) }

// NewPseudonymID mints a fresh pseudonym identifier.
func NewPseudonymID() PseudonymID { return PseudonymID(uuid.New()) }

// NewRequestID mints a fresh request identifier.
func NewRequestID() RequestID { return RequestID(uuid.New()) }

// NewCoordinationID mints a fresh coordination identifier.
func NewCoordinationID() CoordinationID { return CoordinationID(uuid.New()) }

// NewProviderID mints a fresh provider identifier.
func NewProviderID() ProviderID { return ProviderID(uuid.New()) }

// NewUserID mints a fresh user identifier.
func NewUserID() UserID { return UserID(uuid.New()) }

func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be empty")
	}
	if len(s) > 64 {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id too long")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id is not a valid uuid")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be the nil uuid")
	}
	return u, nil
}

// ParseUserID constructs a UserID from external input.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s)
	return UserID(u), err
}

// ParsePseudonymID constructs a PseudonymID from external input.
func ParsePseudonymID(s string) (PseudonymID, error) {
	u, err := parseUUID(s)
	return PseudonymID(u), err
}

// ParseRequestID constructs a RequestID from external input.
func ParseRequestID(s string) (RequestID, error) {
	u, err := parseUUID(s)
	return RequestID(u), err
}

// ParseCoordinationID constructs a CoordinationID from external input.
func ParseCoordinationID(s string) (CoordinationID, error) {
	u, err := parseUUID(s)
	return CoordinationID(u), err
}

// ParseProviderID constructs a ProviderID from external input.
func ParseProviderID(s string) (ProviderID, error) {
	u, err := parseUUID(s)
	return ProviderID(u), err
}
