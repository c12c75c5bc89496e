// Package emergency authorizes disclosure outside the normal ladder under a
// narrow, auditable set of trigger conditions. Policy lives here as data:
// each trigger maps to an explicit, enumerable field set, never an implicit
// "everything".
package emergency

import (
	id "veil/pkg/domain"
	dErrors "veil/pkg/domain-errors"
)

// Grant is an authorized override: the target ladder level, the exact field
// set, and the condition string recorded on the reveal event.
type Grant struct {
	Target    id.DisclosureLevel
	Fields    []id.IdentityField
	Condition string
}

// lifeThreateningBundle is the fixed disclosure for medical emergencies:
// medical info, location, and emergency contacts. Nothing financial.
var lifeThreateningBundle = Grant{
	Target: id.DisclosureLocation,
	Fields: []id.IdentityField{
		id.FieldMedicalInfo,
		id.FieldLocation,
		id.FieldEmergencyContacts,
	},
	Condition: "life_threatening",
}

// serviceDeliveryBundle is the minimal set a provider needs to complete
// delivery when the ladder stalls mid-service: a name and a way to make
// contact. Deliberately pinned well below full identity.
var serviceDeliveryBundle = Grant{
	Target: id.DisclosureContact,
	Fields: []id.IdentityField{
		id.FieldLegalName,
		id.FieldContactPhone,
	},
	Condition: "service_delivery_need",
}

// statuteBundles enumerates the minimum fields each supported statute can
// compel. A legal_requirement trigger must name one of these; there is no
// default and none of them is full_identity.
var statuteBundles = map[string]Grant{
	"kyc_aml": {
		Target:    id.DisclosureNameOnly,
		Fields:    []id.IdentityField{id.FieldLegalName, id.FieldGovernmentID},
		Condition: "legal_requirement:kyc_aml",
	},
	"court_order_contact": {
		Target:    id.DisclosureContact,
		Fields:    []id.IdentityField{id.FieldLegalName, id.FieldContactPhone, id.FieldContactEmail},
		Condition: "legal_requirement:court_order_contact",
	},
	"tax_reporting": {
		Target:    id.DisclosureFinancial,
		Fields:    []id.IdentityField{id.FieldLegalName, id.FieldPaymentReference, id.FieldBillingAddress},
		Condition: "legal_requirement:tax_reporting",
	},
}

// Statutes lists the supported statute names, for validation messages.
func Statutes() []string {
	out := make([]string, 0, len(statuteBundles))
	for name := range statuteBundles {
		out = append(out, name)
	}
	return out
}

// GrantFor resolves the policy grant for a trigger. legal_requirement
// requires a statute naming its field set; the other types ignore statute.
func GrantFor(emergencyType id.EmergencyType, statute string) (Grant, error) {
	switch emergencyType {
	case id.EmergencyLifeThreatening:
		return lifeThreateningBundle, nil
	case id.EmergencyServiceDelivery:
		return serviceDeliveryBundle, nil
	case id.EmergencyLegalRequirement:
		grant, ok := statuteBundles[statute]
		if !ok {
			return Grant{}, dErrors.New(dErrors.CodeInvalidInput, "legal_requirement must name a supported statute")
		}
		return grant, nil
	default:
		return Grant{}, dErrors.New(dErrors.CodeInvalidInput, "unknown emergency type")
	}
}
