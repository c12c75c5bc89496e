package provider

import (
	id "veil/pkg/domain"
)

// DevSeed returns a small provider set for development and tests when no
// database is configured.
func DevSeed() []Profile {
	return []Profile{
		{
			ID:                  id.NewProviderID(),
			Name:                "meridian-concierge",
			ServiceCategories:   []string{"transport", "dining", "lodging"},
			TierAuthorization:   []id.Tier{id.TierSterling, id.TierObsidian},
			AnonymityCompliance: true,
			ResponseCapability:  id.UrgencyPriority,
			QualityScore:        92,
		},
		{
			ID:                  id.NewProviderID(),
			Name:                "aegis-response",
			ServiceCategories:   []string{"medical", "security"},
			TierAuthorization:   []id.Tier{id.TierSterling, id.TierObsidian, id.TierVoid},
			AnonymityCompliance: true,
			ResponseCapability:  id.UrgencyLifeThreatening,
			QualityScore:        88,
		},
		{
			ID:                  id.NewProviderID(),
			Name:                "lowline-services",
			ServiceCategories:   []string{"transport", "courier"},
			TierAuthorization:   []id.Tier{id.TierSterling},
			AnonymityCompliance: false,
			ResponseCapability:  id.UrgencyStandard,
			QualityScore:        75,
		},
	}
}
