package domain

import dErrors "veil/pkg/domain-errors"

// DisclosureLevel is a rung on the progressive reveal ladder. The ladder is
// strictly ordered and, per coordination, the level only ever climbs.
type DisclosureLevel string

const (
	DisclosureNone      DisclosureLevel = "none"
	DisclosureNameOnly  DisclosureLevel = "name_only"
	DisclosureContact   DisclosureLevel = "contact_info"
	DisclosureLocation  DisclosureLevel = "location"
	DisclosureFinancial DisclosureLevel = "financial_info"
	DisclosureFull      DisclosureLevel = "full_identity"
)

// disclosureRank is the single source of truth for ladder ordering.
var disclosureRank = map[DisclosureLevel]int{
	DisclosureNone:      0,
	DisclosureNameOnly:  1,
	DisclosureContact:   2,
	DisclosureLocation:  3,
	DisclosureFinancial: 4,
	DisclosureFull:      5,
}

// ParseDisclosureLevel constructs a DisclosureLevel from external input.
func ParseDisclosureLevel(s string) (DisclosureLevel, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "disclosure level cannot be empty")
	}
	l := DisclosureLevel(s)
	if !l.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid disclosure level")
	}
	return l, nil
}

// IsValid checks if the level is a known ladder rung.
func (l DisclosureLevel) IsValid() bool {
	_, ok := disclosureRank[l]
	return ok
}

// Rank returns the ladder position; higher means more disclosed.
func (l DisclosureLevel) Rank() int { return disclosureRank[l] }

// Allows reports whether the current level already satisfies required.
func (l DisclosureLevel) Allows(required DisclosureLevel) bool {
	return disclosureRank[l] >= disclosureRank[required]
}

// Exceeds reports whether target is a strict step up from the current level.
// Callers treat an equal or lower request as an idempotent no-op.
func (l DisclosureLevel) Exceeds(current DisclosureLevel) bool {
	return disclosureRank[l] > disclosureRank[current]
}

// String returns the string representation of the level.
func (l DisclosureLevel) String() string { return string(l) }

// IdentityField names a concrete piece of real identity data. Reveal grants
// enumerate fields explicitly so a level never fetches more than it names.
type IdentityField string

const (
	FieldLegalName         IdentityField = "legal_name"
	FieldContactPhone      IdentityField = "contact_phone"
	FieldContactEmail      IdentityField = "contact_email"
	FieldLocation          IdentityField = "location"
	FieldPaymentReference  IdentityField = "payment_reference"
	FieldBillingAddress    IdentityField = "billing_address"
	FieldMedicalInfo       IdentityField = "medical_info"
	FieldEmergencyContacts IdentityField = "emergency_contacts"
	FieldGovernmentID      IdentityField = "government_id"
)

// FieldsForLevel maps each ladder rung to the exact fields it authorizes.
// Levels are cumulative on the ladder but the sets here are per-rung: a
// contact_info reveal fetches contact fields only, never financial data.
func FieldsForLevel(l DisclosureLevel) []IdentityField {
	switch l {
	case DisclosureNameOnly:
		return []IdentityField{FieldLegalName}
	case DisclosureContact:
		return []IdentityField{FieldContactPhone, FieldContactEmail}
	case DisclosureLocation:
		return []IdentityField{FieldLocation}
	case DisclosureFinancial:
		return []IdentityField{FieldPaymentReference, FieldBillingAddress}
	case DisclosureFull:
		return []IdentityField{
			FieldLegalName, FieldContactPhone, FieldContactEmail,
			FieldLocation, FieldPaymentReference, FieldBillingAddress,
			FieldGovernmentID,
		}
	default:
		return nil
	}
}
