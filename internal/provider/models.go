// Package provider holds the read-mostly provider registry consumed by
// matching. Profiles live independently of any single coordination.
package provider

import (
	id "veil/pkg/domain"
)

// Profile describes a real-world service provider.
type Profile struct {
	ID                id.ProviderID
	Name              string
	ServiceCategories []string
	TierAuthorization []id.Tier
	// AnonymityCompliance flags providers vetted for minimum-disclosure
	// operation; matching ranks these first.
	AnonymityCompliance bool
	// ResponseCapability is the most urgent request class the provider can
	// serve.
	ResponseCapability id.Urgency
	// QualityScore is the historical quality ranking input, 0..100.
	QualityScore float64
}

// AuthorizedFor reports whether the provider may serve the given tier.
func (p Profile) AuthorizedFor(tier id.Tier) bool {
	for _, t := range p.TierAuthorization {
		if t == tier {
			return true
		}
	}
	return false
}

// Serves reports whether the provider covers a service category.
func (p Profile) Serves(category string) bool {
	for _, c := range p.ServiceCategories {
		if c == category {
			return true
		}
	}
	return false
}

// CanRespond reports whether the provider's response capability covers the
// request urgency.
func (p Profile) CanRespond(urgency id.Urgency) bool {
	rank := map[id.Urgency]int{
		id.UrgencyStandard:        1,
		id.UrgencyPriority:        2,
		id.UrgencyLifeThreatening: 3,
	}
	return rank[p.ResponseCapability] >= rank[urgency]
}
