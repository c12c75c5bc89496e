package identity

import (
	"context"
	"errors"
	"log/slog"
	"time"

	id "veil/pkg/domain"
	dErrors "veil/pkg/domain-errors"
	"veil/pkg/platform/sentinel"
)

// RevealRecorder is the audit hook for resolution attempts. Every Resolve
// call produces a lookup record regardless of outcome; there is no silent
// lookup path. The reveal protocol's append-only log implements this port.
type RevealRecorder interface {
	RecordLookup(ctx context.Context, coordinationID id.CoordinationID, pseudonymID id.PseudonymID, authorizedBy string, outcome string) error
}

// Service issues, rotates, and resolves pseudonyms.
type Service struct {
	store    Store
	profiles ProfileStore
	recorder RevealRecorder
	logger   *slog.Logger
}

func NewService(store Store, profiles ProfileStore, recorder RevealRecorder, logger *slog.Logger) *Service {
	return &Service{store: store, profiles: profiles, recorder: recorder, logger: logger}
}

// IssuePseudonym mints a pseudonym for a (user, tier) pair. Fails with
// duplicate_issuance when an active pseudonym already exists and rotation
// was not requested.
func (s *Service) IssuePseudonym(ctx context.Context, userID id.UserID, tier id.Tier) (Pseudonym, error) {
	if userID.IsNil() {
		return Pseudonym{}, dErrors.New(dErrors.CodeInvalidInput, "user id is required")
	}
	if !tier.IsValid() {
		return Pseudonym{}, dErrors.New(dErrors.CodeInvalidInput, "invalid tier")
	}

	existing, err := s.store.FindActive(ctx, userID, tier)
	switch {
	case err == nil && existing.Active():
		return Pseudonym{}, dErrors.New(dErrors.CodeDuplicateIssuance, "active pseudonym already exists for tier")
	case err != nil && !errors.Is(err, sentinel.ErrNotFound):
		return Pseudonym{}, dErrors.Wrap(dErrors.CodeInternal, "pseudonym lookup failed", err)
	}

	return s.mint(ctx, userID, tier)
}

// Rotate revokes the active pseudonym for a (user, tier) pair and issues a
// replacement. Rotation with no active pseudonym simply issues.
func (s *Service) Rotate(ctx context.Context, userID id.UserID, tier id.Tier) (Pseudonym, error) {
	existing, err := s.store.FindActive(ctx, userID, tier)
	if err == nil {
		if err := s.store.Revoke(ctx, existing.ID); err != nil {
			return Pseudonym{}, dErrors.Wrap(dErrors.CodeInternal, "pseudonym revoke failed", err)
		}
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return Pseudonym{}, dErrors.Wrap(dErrors.CodeInternal, "pseudonym lookup failed", err)
	}
	return s.mint(ctx, userID, tier)
}

func (s *Service) mint(ctx context.Context, userID id.UserID, tier id.Tier) (Pseudonym, error) {
	p := Pseudonym{
		ID:       id.NewPseudonymID(),
		UserID:   userID,
		Tier:     tier,
		IssuedAt: time.Now(),
	}
	if err := s.store.Save(ctx, p); err != nil {
		return Pseudonym{}, dErrors.Wrap(dErrors.CodeInternal, "pseudonym save failed", err)
	}
	s.logger.InfoContext(ctx, "pseudonym issued",
		"pseudonym_id", p.ID.String(),
		"tier", tier.String(),
	)
	return p, nil
}

// InvalidateOnTierChange revokes the user's pseudonym for the old tier. The
// next request at the new tier issues fresh.
func (s *Service) InvalidateOnTierChange(ctx context.Context, userID id.UserID, oldTier id.Tier) error {
	existing, err := s.store.FindActive(ctx, userID, oldTier)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil
	}
	if err != nil {
		return dErrors.Wrap(dErrors.CodeInternal, "pseudonym lookup failed", err)
	}
	return s.store.Revoke(ctx, existing.ID)
}

// Lookup returns the pseudonym record (not the identity) for request
// validation: callers check tier scope without learning who the client is.
func (s *Service) Lookup(ctx context.Context, pseudonymID id.PseudonymID) (Pseudonym, error) {
	p, err := s.store.FindByID(ctx, pseudonymID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return Pseudonym{}, dErrors.New(dErrors.CodeNotFound, "unknown pseudonym")
	}
	if err != nil {
		return Pseudonym{}, dErrors.Wrap(dErrors.CodeInternal, "pseudonym lookup failed", err)
	}
	return p, nil
}

// Resolve maps a pseudonym back to real identity fields under a grant. The
// lookup itself is an audited reveal at the "lookup" level, regardless of
// outcome, and only the granted fields are returned.
func (s *Service) Resolve(ctx context.Context, pseudonymID id.PseudonymID, grant Grant) (Disclosure, error) {
	outcome := "denied"
	defer func() {
		if err := s.recorder.RecordLookup(ctx, grant.CoordinationID, pseudonymID, grant.AuthorizedBy, outcome); err != nil {
			s.logger.ErrorContext(ctx, "reveal lookup record failed",
				"pseudonym_id", pseudonymID.String(),
				"error", err,
			)
		}
	}()

	if grant.AuthorizedBy == "" || len(grant.Fields) == 0 {
		return Disclosure{}, dErrors.New(dErrors.CodeUnauthorized, "resolution requires an authorization grant")
	}

	p, err := s.store.FindByID(ctx, pseudonymID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return Disclosure{}, dErrors.New(dErrors.CodeNotFound, "unknown pseudonym")
	}
	if err != nil {
		return Disclosure{}, dErrors.Wrap(dErrors.CodeInternal, "pseudonym lookup failed", err)
	}

	profile, err := s.profiles.FindByUser(ctx, p.UserID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return Disclosure{}, dErrors.New(dErrors.CodeNotFound, "no identity profile for pseudonym")
	}
	if err != nil {
		return Disclosure{}, dErrors.Wrap(dErrors.CodeInternal, "profile lookup failed", err)
	}

	fields := make(map[id.IdentityField]string, len(grant.Fields))
	for _, f := range grant.Fields {
		if v, ok := profile.Fields[f]; ok {
			fields[f] = v
		}
	}

	outcome = "resolved"
	return Disclosure{UserID: p.UserID, Fields: fields}, nil
}

// Scrub removes the pseudonym map entry entirely. This is the maximum-
// discretion cleanup path: the mapping is unrecoverable afterwards and the
// user's next request forces re-issuance.
func (s *Service) Scrub(ctx context.Context, pseudonymID id.PseudonymID) error {
	if err := s.store.Delete(ctx, pseudonymID); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(dErrors.CodeInternal, "pseudonym scrub failed", err)
	}
	s.logger.InfoContext(ctx, "pseudonym scrubbed", "pseudonym_id", pseudonymID.String())
	return nil
}
