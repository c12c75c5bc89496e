package provider

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	id "veil/pkg/domain"
	dErrors "veil/pkg/domain-errors"
	pstrings "veil/pkg/platform/strings"
)

// Store persists provider profiles.
type Store interface {
	Save(ctx context.Context, profile Profile) error
	List(ctx context.Context) ([]Profile, error)
}

// Registry serves immutable snapshots of the provider set. Matching is a
// pure function over a snapshot, so concurrent matches share the registry
// without locking.
type Registry struct {
	store Store
}

func NewRegistry(store Store) *Registry {
	return &Registry{store: store}
}

// Register validates and normalizes a profile before persisting it.
// Categories are case-insensitive, so they are lowercased and deduplicated;
// tier grants are deduplicated preserving order.
func (r *Registry) Register(ctx context.Context, profile Profile) error {
	if uuid.UUID(profile.ID) == uuid.Nil {
		return dErrors.New(dErrors.CodeInvalidInput, "provider id is required")
	}
	if profile.Name == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "provider name is required")
	}
	if profile.QualityScore < 0 || profile.QualityScore > 100 {
		return dErrors.New(dErrors.CodeInvalidInput, "quality score must be within 0..100")
	}
	capability, err := id.ParseUrgency(string(profile.ResponseCapability))
	if err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "unknown response capability")
	}
	profile.ResponseCapability = capability

	profile.ServiceCategories = pstrings.DedupeAndTrimLower(profile.ServiceCategories)
	if len(profile.ServiceCategories) == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "at least one service category is required")
	}

	tiers := make([]string, 0, len(profile.TierAuthorization))
	for _, t := range profile.TierAuthorization {
		tiers = append(tiers, string(t))
	}
	profile.TierAuthorization = profile.TierAuthorization[:0]
	for _, s := range pstrings.DedupeAndTrim(tiers) {
		t, err := id.ParseTier(s)
		if err != nil {
			return dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unknown tier %q", s))
		}
		profile.TierAuthorization = append(profile.TierAuthorization, t)
	}
	if len(profile.TierAuthorization) == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "at least one tier grant is required")
	}

	return r.store.Save(ctx, profile)
}

// Snapshot returns a copy of the current provider set. Callers own the
// returned slice.
func (r *Registry) Snapshot(ctx context.Context) ([]Profile, error) {
	profiles, err := r.store.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Profile, len(profiles))
	copy(out, profiles)
	return out, nil
}
