package domain

import dErrors "veil/pkg/domain-errors"

// Tier is a membership tier. Tiers are ordered: a proof asserting a higher
// tier satisfies a lower requirement, never the reverse.
//
// Usage: construct via ParseTier at trust boundaries to enforce the
// allowlist; direct casting bypasses validation.
type Tier string

const (
	// TierSterling is the entry tier.
	TierSterling Tier = "sterling"
	// TierObsidian is the premium tier.
	TierObsidian Tier = "obsidian"
	// TierVoid is the maximum-discretion tier; coordinations at this tier
	// take the full-erasure cleanup path.
	TierVoid Tier = "void"
)

// tierRank orders tiers for comparison. Higher rank covers lower.
var tierRank = map[Tier]int{
	TierSterling: 1,
	TierObsidian: 2,
	TierVoid:     3,
}

// ParseTier constructs a Tier from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported.
func ParseTier(s string) (Tier, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "tier cannot be empty")
	}
	t := Tier(s)
	if !t.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid tier")
	}
	return t, nil
}

// IsValid checks if the tier is one of the supported enum values.
func (t Tier) IsValid() bool {
	_, ok := tierRank[t]
	return ok
}

// Covers reports whether this tier satisfies a requirement for other.
func (t Tier) Covers(other Tier) bool {
	return tierRank[t] >= tierRank[other]
}

// String returns the string representation of the tier.
func (t Tier) String() string { return string(t) }
