package emergency

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "veil/pkg/domain"
	dErrors "veil/pkg/domain-errors"
)

func TestGrantFor_Bundles(t *testing.T) {
	tests := []struct {
		name          string
		emergencyType id.EmergencyType
		statute       string
		wantTarget    id.DisclosureLevel
		wantFields    []id.IdentityField
		wantCondition string
	}{
		{
			name:          "life threatening discloses medical bundle at location level",
			emergencyType: id.EmergencyLifeThreatening,
			wantTarget:    id.DisclosureLocation,
			wantFields:    []id.IdentityField{id.FieldMedicalInfo, id.FieldLocation, id.FieldEmergencyContacts},
			wantCondition: "life_threatening",
		},
		{
			name:          "service delivery discloses name and phone only",
			emergencyType: id.EmergencyServiceDelivery,
			statute:       "ignored",
			wantTarget:    id.DisclosureContact,
			wantFields:    []id.IdentityField{id.FieldLegalName, id.FieldContactPhone},
			wantCondition: "service_delivery_need",
		},
		{
			name:          "kyc_aml statute",
			emergencyType: id.EmergencyLegalRequirement,
			statute:       "kyc_aml",
			wantTarget:    id.DisclosureNameOnly,
			wantFields:    []id.IdentityField{id.FieldLegalName, id.FieldGovernmentID},
			wantCondition: "legal_requirement:kyc_aml",
		},
		{
			name:          "court order contact statute",
			emergencyType: id.EmergencyLegalRequirement,
			statute:       "court_order_contact",
			wantTarget:    id.DisclosureContact,
			wantFields:    []id.IdentityField{id.FieldLegalName, id.FieldContactPhone, id.FieldContactEmail},
			wantCondition: "legal_requirement:court_order_contact",
		},
		{
			name:          "tax reporting statute",
			emergencyType: id.EmergencyLegalRequirement,
			statute:       "tax_reporting",
			wantTarget:    id.DisclosureFinancial,
			wantFields:    []id.IdentityField{id.FieldLegalName, id.FieldPaymentReference, id.FieldBillingAddress},
			wantCondition: "legal_requirement:tax_reporting",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			grant, err := GrantFor(tt.emergencyType, tt.statute)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTarget, grant.Target)
			assert.Equal(t, tt.wantFields, grant.Fields)
			assert.Equal(t, tt.wantCondition, grant.Condition)
		})
	}
}

// No policy bundle ever reaches full identity; overrides stay minimal.
func TestGrantFor_NeverFullIdentity(t *testing.T) {
	grants := []Grant{lifeThreateningBundle, serviceDeliveryBundle}
	for _, grant := range statuteBundles {
		grants = append(grants, grant)
	}
	for _, grant := range grants {
		assert.True(t, id.DisclosureFull.Exceeds(grant.Target),
			"bundle %q must stay below full_identity", grant.Condition)
		assert.NotEmpty(t, grant.Fields)
	}
}

func TestGrantFor_Rejections(t *testing.T) {
	t.Run("legal requirement without statute", func(t *testing.T) {
		_, err := GrantFor(id.EmergencyLegalRequirement, "")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("unsupported statute", func(t *testing.T) {
		_, err := GrantFor(id.EmergencyLegalRequirement, "maritime_salvage")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("unknown emergency type", func(t *testing.T) {
		_, err := GrantFor(id.EmergencyType("weather"), "")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func TestStatutes_ListsSupportedNames(t *testing.T) {
	names := Statutes()
	assert.ElementsMatch(t, []string{"kyc_aml", "court_order_contact", "tax_reporting"}, names)
}
