package reveal

import (
	"context"
	"log/slog"
	"time"

	"veil/internal/events"
	"veil/internal/identity"
	"veil/internal/platform/metrics"
	id "veil/pkg/domain"
	dErrors "veil/pkg/domain-errors"
)

// Resolver is the identity manager's controlled resolution API. It is the
// only path from a pseudonym back to real identity data.
type Resolver interface {
	Resolve(ctx context.Context, pseudonymID id.PseudonymID, grant identity.Grant) (identity.Disclosure, error)
}

// Service drives the disclosure ladder. It validates justifications, keeps
// the climb monotonic, resolves only level-scoped fields, and appends one
// audit event per successful step.
type Service struct {
	store     Store
	resolver  Resolver
	consent   *ConsentValidator
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func NewService(store Store, resolver Resolver, consent *ConsentValidator, publisher events.Publisher, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		store:     store,
		resolver:  resolver,
		consent:   consent,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
	}
}

// RequestReveal climbs the ladder for one coordination. Requesting a level
// at or below the current one is an idempotent no-op: no event, no error.
// Returns unauthorized when the justification does not hold.
func (s *Service) RequestReveal(ctx context.Context, req Request) (Outcome, error) {
	if !req.Target.IsValid() {
		return Outcome{}, dErrors.New(dErrors.CodeInvalidInput, "invalid target disclosure level")
	}
	if !req.Target.Exceeds(req.Current) {
		return Outcome{Level: req.Current}, nil
	}

	authorizedBy, err := s.authorize(req)
	if err != nil {
		return Outcome{}, err
	}

	fields := req.Justification.Fields
	if len(fields) == 0 {
		fields = id.FieldsForLevel(req.Target)
	}

	disclosure, err := s.resolver.Resolve(ctx, req.PseudonymID, identity.Grant{
		CoordinationID: req.CoordinationID,
		Level:          req.Target,
		Fields:         fields,
		AuthorizedBy:   authorizedBy,
	})
	if err != nil {
		return Outcome{}, err
	}

	event := Event{
		CoordinationID:      req.CoordinationID,
		TriggeringCondition: s.condition(req),
		LevelBefore:         req.Current,
		LevelAfter:          req.Target,
		AuthorizedBy:        authorizedBy,
		Timestamp:           time.Now(),
	}
	if err := s.store.Append(ctx, event); err != nil {
		return Outcome{}, dErrors.Wrap(dErrors.CodeInternal, "reveal audit append failed", err)
	}

	s.metrics.RevealEvents.WithLabelValues(req.Target.String()).Inc()
	if err := s.publisher.Publish(ctx, events.Event{
		Kind:            events.KindRevealOccurred,
		CoordinationID:  req.CoordinationID,
		DisclosureLevel: req.Target.String(),
	}); err != nil {
		s.logger.WarnContext(ctx, "reveal event publish failed", "error", err)
	}

	s.logger.InfoContext(ctx, "disclosure level raised",
		"coordination_id", req.CoordinationID.String(),
		"level_before", req.Current.String(),
		"level_after", req.Target.String(),
		"authorized_by", authorizedBy,
	)

	return Outcome{Event: &event, Level: req.Target, Disclosed: disclosure.Fields}, nil
}

// EmergencyReveal is the override controller's path around the step-by-step
// ladder. It always appends exactly one event; the recorded level never
// decreases but, unlike RequestReveal, an already-sufficient level is not a
// reason to skip the disclosure or the audit record.
func (s *Service) EmergencyReveal(ctx context.Context, req Request) (Outcome, error) {
	if req.Justification.Kind != JustificationEmergency {
		return Outcome{}, dErrors.New(dErrors.CodeUnauthorized, "emergency reveal requires an emergency grant")
	}
	if req.Justification.Condition == "" {
		return Outcome{}, dErrors.New(dErrors.CodeUnauthorized, "emergency grant missing trigger condition")
	}
	if len(req.Justification.Fields) == 0 {
		return Outcome{}, dErrors.New(dErrors.CodeUnauthorized, "emergency grant must enumerate its field set")
	}

	// Monotonicity: the ladder may only climb. A bundle below the current
	// level still discloses its fields, recorded at the unchanged level.
	target := req.Target
	if !target.Exceeds(req.Current) {
		target = req.Current
	}

	disclosure, err := s.resolver.Resolve(ctx, req.PseudonymID, identity.Grant{
		CoordinationID: req.CoordinationID,
		Level:          target,
		Fields:         req.Justification.Fields,
		AuthorizedBy:   AuthorizedByEmergencyOverride,
	})
	if err != nil {
		return Outcome{}, err
	}

	event := Event{
		CoordinationID:      req.CoordinationID,
		TriggeringCondition: req.Justification.Condition,
		LevelBefore:         req.Current,
		LevelAfter:          target,
		AuthorizedBy:        AuthorizedByEmergencyOverride,
		Timestamp:           time.Now(),
	}
	if err := s.store.Append(ctx, event); err != nil {
		return Outcome{}, dErrors.Wrap(dErrors.CodeInternal, "reveal audit append failed", err)
	}

	s.metrics.RevealEvents.WithLabelValues(target.String()).Inc()
	if err := s.publisher.Publish(ctx, events.Event{
		Kind:            events.KindRevealOccurred,
		CoordinationID:  req.CoordinationID,
		DisclosureLevel: target.String(),
	}); err != nil {
		s.logger.WarnContext(ctx, "reveal event publish failed", "error", err)
	}

	return Outcome{Event: &event, Level: target, Disclosed: disclosure.Fields}, nil
}

// ResolveDisclosed re-resolves the fields already authorized at the given
// level. It never climbs the ladder and appends no event; it exists so a
// provider delivery that failed after a recorded reveal can be retried from
// the persisted level. Resolution still goes through the identity manager's
// access-logged path.
func (s *Service) ResolveDisclosed(ctx context.Context, coordinationID id.CoordinationID, pseudonymID id.PseudonymID, level id.DisclosureLevel) (map[id.IdentityField]string, error) {
	if !level.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid disclosure level")
	}
	if level == id.DisclosureNone {
		return nil, nil
	}
	disclosure, err := s.resolver.Resolve(ctx, pseudonymID, identity.Grant{
		CoordinationID: coordinationID,
		Level:          level,
		Fields:         id.FieldsForLevel(level),
		AuthorizedBy:   AuthorizedByPhaseMandate,
	})
	if err != nil {
		return nil, err
	}
	return disclosure.Fields, nil
}

// authorize maps a justification onto the recorded authorizer, rejecting
// anything outside the three valid grounds.
func (s *Service) authorize(req Request) (string, error) {
	switch req.Justification.Kind {
	case JustificationConsent:
		if err := s.consent.Validate(req.Justification.ConsentToken, req.PseudonymID, req.Target); err != nil {
			return "", err
		}
		return AuthorizedByUserConsent, nil
	case JustificationPhase:
		minimum := MinimumLevelForPhase(req.Justification.Phase)
		if !minimum.Allows(req.Target) {
			// The engine may only mandate up to the phase's floor; more
			// needs consent or an override.
			return "", dErrors.New(dErrors.CodeUnauthorized, "phase does not mandate the requested level")
		}
		return AuthorizedByPhaseMandate, nil
	case JustificationEmergency:
		if req.Justification.Condition == "" {
			return "", dErrors.New(dErrors.CodeUnauthorized, "emergency grant missing trigger condition")
		}
		return AuthorizedByEmergencyOverride, nil
	default:
		return "", dErrors.New(dErrors.CodeUnauthorized, "reveal requires a valid justification")
	}
}

func (s *Service) condition(req Request) string {
	switch req.Justification.Kind {
	case JustificationPhase:
		return "phase:" + req.Justification.Phase.String()
	case JustificationEmergency:
		return req.Justification.Condition
	default:
		return string(req.Justification.Kind)
	}
}

// LookupRecorder implements the identity manager's audit hook over the
// reveal log: every resolution attempt lands there, successful or not. It
// wraps the store directly so it can exist before the identity service does.
type LookupRecorder struct {
	store Store
}

func NewLookupRecorder(store Store) *LookupRecorder {
	return &LookupRecorder{store: store}
}

func (r *LookupRecorder) RecordLookup(ctx context.Context, coordinationID id.CoordinationID, _ id.PseudonymID, _ string, outcome string) error {
	return r.store.Append(ctx, Event{
		CoordinationID:      coordinationID,
		TriggeringCondition: "lookup:" + outcome,
		AuthorizedBy:        AuthorizedByLookup,
		Timestamp:           time.Now(),
	})
}

// History returns the ordered reveal trail for a coordination.
func (s *Service) History(ctx context.Context, coordinationID id.CoordinationID) ([]Event, error) {
	return s.store.ListByCoordination(ctx, coordinationID)
}
