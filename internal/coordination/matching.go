package coordination

import (
	"sort"

	"veil/internal/provider"
	id "veil/pkg/domain"
)

// RankProviders is the deterministic selection policy: filter to providers
// authorized for the tier, covering the category, and able to respond at
// the request urgency; rank by anonymity compliance, then quality score,
// then provider ID as the reproducibility tie-break. Identical inputs
// always produce identical output; there is deliberately no randomness.
func RankProviders(profiles []provider.Profile, tier id.Tier, category string, urgency id.Urgency) []provider.Profile {
	eligible := make([]provider.Profile, 0, len(profiles))
	for _, p := range profiles {
		if p.AuthorizedFor(tier) && p.Serves(category) && p.CanRespond(urgency) {
			eligible = append(eligible, p)
		}
	}
	sort.Slice(eligible, func(i, j int) bool {
		a, b := eligible[i], eligible[j]
		if a.AnonymityCompliance != b.AnonymityCompliance {
			return a.AnonymityCompliance
		}
		if a.QualityScore != b.QualityScore {
			return a.QualityScore > b.QualityScore
		}
		return a.ID.String() < b.ID.String()
	})
	return eligible
}
