package domain

import dErrors "veil/pkg/domain-errors"

// ServiceKind distinguishes routine concierge work from emergency dispatch.
type ServiceKind string

const (
	ServiceConcierge ServiceKind = "concierge"
	ServiceEmergency ServiceKind = "emergency"
)

// ParseServiceKind constructs a ServiceKind from external input.
func ParseServiceKind(s string) (ServiceKind, error) {
	switch ServiceKind(s) {
	case ServiceConcierge, ServiceEmergency:
		return ServiceKind(s), nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "invalid service kind")
}

func (k ServiceKind) String() string { return string(k) }

// Urgency drives provider response timeouts.
type Urgency string

const (
	UrgencyStandard        Urgency = "standard"
	UrgencyPriority        Urgency = "priority"
	UrgencyLifeThreatening Urgency = "life_threatening"
)

// ParseUrgency constructs an Urgency from external input. Empty defaults to
// standard so routine submissions need not spell it out.
func ParseUrgency(s string) (Urgency, error) {
	switch Urgency(s) {
	case UrgencyStandard, UrgencyPriority, UrgencyLifeThreatening:
		return Urgency(s), nil
	case "":
		return UrgencyStandard, nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "invalid urgency")
}

func (u Urgency) String() string { return string(u) }

// EmergencyType is a narrow, auditable override trigger condition.
type EmergencyType string

const (
	EmergencyLifeThreatening  EmergencyType = "life_threatening"
	EmergencyLegalRequirement EmergencyType = "legal_requirement"
	EmergencyServiceDelivery  EmergencyType = "service_delivery_need"
)

// ParseEmergencyType constructs an EmergencyType from external input.
func ParseEmergencyType(s string) (EmergencyType, error) {
	switch EmergencyType(s) {
	case EmergencyLifeThreatening, EmergencyLegalRequirement, EmergencyServiceDelivery:
		return EmergencyType(s), nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "invalid emergency type")
}

func (t EmergencyType) String() string { return string(t) }

// Phase is an execution phase within a matched coordination. Each phase has
// a minimum disclosure level the reveal ladder enforces before entry.
type Phase string

const (
	PhaseBriefing   Phase = "briefing"
	PhaseContact    Phase = "contact"
	PhaseRendezvous Phase = "rendezvous"
	PhaseSettlement Phase = "settlement"
)

// ParsePhase constructs a Phase from external input.
func ParsePhase(s string) (Phase, error) {
	switch Phase(s) {
	case PhaseBriefing, PhaseContact, PhaseRendezvous, PhaseSettlement:
		return Phase(s), nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "invalid phase")
}

func (p Phase) String() string { return string(p) }
