package coordination

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"veil/internal/events"
	"veil/internal/identity"
	"veil/internal/platform/metrics"
	"veil/internal/proof"
	"veil/internal/provider"
	"veil/internal/reveal"
	id "veil/pkg/domain"
	dErrors "veil/pkg/domain-errors"
	"veil/pkg/platform/sentinel"
)

// PseudonymDirectory is the slice of the identity manager the engine needs:
// pseudonym records for tier validation, never identities.
type PseudonymDirectory interface {
	Lookup(ctx context.Context, pseudonymID id.PseudonymID) (identity.Pseudonym, error)
}

// Revealer climbs the disclosure ladder on the engine's behalf when an
// execution phase mandates a level, and re-resolves already-authorized
// fields when a provider delivery has to be retried.
type Revealer interface {
	RequestReveal(ctx context.Context, req reveal.Request) (reveal.Outcome, error)
	ResolveDisclosed(ctx context.Context, coordinationID id.CoordinationID, pseudonymID id.PseudonymID, level id.DisclosureLevel) (map[id.IdentityField]string, error)
}

// Overrider executes emergency overrides. The engine guards coordination
// state and persists the resulting level; policy lives behind this port.
type Overrider interface {
	Trigger(ctx context.Context, coordinationID id.CoordinationID, pseudonymID id.PseudonymID, current id.DisclosureLevel, emergencyType id.EmergencyType, statute string) (reveal.Outcome, error)
}

// Finalizer runs anonymity cleanup after a terminal transition. Wired after
// construction because cleanup depends on this package's store.
type Finalizer interface {
	Finalize(ctx context.Context, coordinationID id.CoordinationID) error
}

// Engine drives coordinations through the state machine. It is the single
// writer for every aggregate: all mutating operations serialize on a
// per-coordination lock, so stores never see concurrent read-modify-write.
type Engine struct {
	store      Store
	verifier   proof.Verifier
	directory  PseudonymDirectory
	registry   *provider.Registry
	revealer   Revealer
	overrider  Overrider
	client     ProviderClient
	publisher  events.Publisher
	metrics    *metrics.Metrics
	logger     *slog.Logger
	tracer     trace.Tracer
	locks      keyedMutex
	finalizeMu sync.RWMutex
	finalizer  Finalizer

	escalationLimit  int
	dispatchTimeout  time.Duration
	emergencyTimeout time.Duration
	now              func() time.Time
}

// EngineParams collects the engine's collaborators.
type EngineParams struct {
	Store     Store
	Verifier  proof.Verifier
	Directory PseudonymDirectory
	Registry  *provider.Registry
	Revealer  Revealer
	Overrider Overrider
	Client    ProviderClient
	Publisher events.Publisher
	Metrics   *metrics.Metrics
	Logger    *slog.Logger

	EscalationLimit          int
	DispatchTimeout          time.Duration
	EmergencyDispatchTimeout time.Duration
}

func NewEngine(p EngineParams) *Engine {
	return &Engine{
		store:            p.Store,
		verifier:         p.Verifier,
		directory:        p.Directory,
		registry:         p.Registry,
		revealer:         p.Revealer,
		overrider:        p.Overrider,
		client:           p.Client,
		publisher:        p.Publisher,
		metrics:          p.Metrics,
		logger:           p.Logger,
		tracer:           otel.Tracer("veil/coordination"),
		escalationLimit:  p.EscalationLimit,
		dispatchTimeout:  p.DispatchTimeout,
		emergencyTimeout: p.EmergencyDispatchTimeout,
		now:              time.Now,
	}
}

// SetFinalizer wires the cleanup hook. Called once during startup, before
// the engine serves traffic.
func (e *Engine) SetFinalizer(f Finalizer) {
	e.finalizeMu.Lock()
	e.finalizer = f
	e.finalizeMu.Unlock()
}

// SubmitInput is the intake payload for a new coordination.
type SubmitInput struct {
	PseudonymID    id.PseudonymID
	Kind           id.ServiceKind
	Tier           id.Tier
	Urgency        id.Urgency
	Category       string
	Proof          string
	AnonymityLevel id.DisclosureLevel
}

// Submit verifies the capability proof and creates the coordination in the
// received state. Verification is synchronous: a 201 means the proof held.
// The proof must cover the pseudonym's tier; emergency requests additionally
// require the emergency_contact capability. The anonymity level supplied at
// intake becomes the disclosure floor: reveals and overrides only climb
// from it, never below it.
func (e *Engine) Submit(ctx context.Context, in SubmitInput) (Coordination, error) {
	ctx, span := e.tracer.Start(ctx, "coordination.Submit")
	defer span.End()

	if in.PseudonymID.IsNil() {
		return Coordination{}, dErrors.New(dErrors.CodeInvalidInput, "pseudonym id is required")
	}
	if in.Category == "" {
		return Coordination{}, dErrors.New(dErrors.CodeInvalidInput, "service category is required")
	}
	if in.Kind != id.ServiceConcierge && in.Kind != id.ServiceEmergency {
		return Coordination{}, dErrors.New(dErrors.CodeInvalidInput, "invalid service kind")
	}
	if !in.Tier.IsValid() {
		return Coordination{}, dErrors.New(dErrors.CodeInvalidInput, "invalid tier")
	}
	floor := in.AnonymityLevel
	if floor == "" {
		floor = id.DisclosureNone
	}
	if !floor.IsValid() {
		return Coordination{}, dErrors.New(dErrors.CodeInvalidInput, "invalid anonymity level")
	}

	pseudonym, err := e.directory.Lookup(ctx, in.PseudonymID)
	if err != nil {
		return Coordination{}, err
	}
	if !pseudonym.Active() {
		return Coordination{}, dErrors.New(dErrors.CodeUnauthorized, "pseudonym is revoked")
	}
	if in.Tier != pseudonym.Tier {
		return Coordination{}, dErrors.New(dErrors.CodeTierMismatch, "tier does not match the pseudonym's membership")
	}

	required := []proof.Capability{proof.CapabilityPayment}
	if in.Kind == id.ServiceEmergency {
		required = append(required, proof.CapabilityEmergencyContact)
	}

	result, err := e.verifier.Verify(ctx, in.Proof, pseudonym.Tier, required)
	if err != nil {
		e.metrics.ProofVerifications.WithLabelValues("rejected").Inc()
		return Coordination{}, err
	}
	if !result.OK {
		e.metrics.ProofVerifications.WithLabelValues("rejected").Inc()
		msg := "capability proof rejected"
		if len(result.Reasons) > 0 {
			msg = msg + ": " + result.Reasons[0]
		}
		return Coordination{}, dErrors.New(dErrors.CodeInvalidProof, msg)
	}
	e.metrics.ProofVerifications.WithLabelValues("accepted").Inc()

	now := e.now()
	c := Coordination{
		ID: id.NewCoordinationID(),
		Request: ServiceRequest{
			RequestID:      id.NewRequestID(),
			PseudonymID:    in.PseudonymID,
			Kind:           in.Kind,
			Tier:           pseudonym.Tier,
			Urgency:        in.Urgency,
			Category:       in.Category,
			AnonymityLevel: floor,
			CreatedAt:      now,
		},
		State:           StateReceived,
		DisclosureLevel: floor,
		DeliveredLevel:  id.DisclosureNone,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := e.store.Create(ctx, c); err != nil {
		return Coordination{}, dErrors.Wrap(dErrors.CodeInternal, "coordination create failed", err)
	}

	span.SetAttributes(attribute.String("coordination_id", c.ID.String()))
	e.metrics.CoordinationsCreated.Inc()
	e.publish(ctx, events.Event{
		Kind:           events.KindCoordinationCreated,
		CoordinationID: c.ID,
	})
	e.logger.InfoContext(ctx, "coordination created",
		"coordination_id", c.ID.String(),
		"kind", c.Request.Kind.String(),
		"tier", c.Request.Tier.String(),
		"urgency", c.Request.Urgency.String(),
	)
	return c, nil
}

// GetStatus returns the sanitized view. Identity fields are structurally
// absent from StatusView; there is nothing here to redact.
func (e *Engine) GetStatus(ctx context.Context, coordinationID id.CoordinationID) (StatusView, error) {
	c, err := e.get(ctx, coordinationID)
	if err != nil {
		return StatusView{}, err
	}
	return e.view(c), nil
}

func (e *Engine) view(c Coordination) StatusView {
	v := StatusView{
		CoordinationID:  c.ID,
		State:           c.State,
		DisclosureLevel: c.DisclosureLevel,
	}
	if !c.MatchedProvider.IsNil() {
		v.MatchedProviderID = c.MatchedProvider.String()
	}
	return v
}

// MatchProvider verifies intake, picks the top-ranked eligible provider,
// and dispatches. Dispatch failure retries once against the next-ranked
// provider; two failures escalate.
func (e *Engine) MatchProvider(ctx context.Context, coordinationID id.CoordinationID) (StatusView, error) {
	ctx, span := e.tracer.Start(ctx, "coordination.MatchProvider")
	defer span.End()

	unlock := e.locks.lock(coordinationID)
	defer unlock()

	c, err := e.get(ctx, coordinationID)
	if err != nil {
		return StatusView{}, err
	}
	now := e.now()

	if c.State == StateReceived {
		if err := c.transition(StateVerified, now); err != nil {
			return StatusView{}, err
		}
	}
	if c.State != StateVerified {
		return StatusView{}, dErrors.New(dErrors.CodeConflict, "coordination is not awaiting a match")
	}

	profiles, err := e.registry.Snapshot(ctx)
	if err != nil {
		return StatusView{}, dErrors.Wrap(dErrors.CodeInternal, "provider snapshot failed", err)
	}
	ranked := RankProviders(profiles, c.Request.Tier, c.Request.Category, c.Request.Urgency)
	if len(ranked) == 0 {
		// Persist the verified step so a later retry skips re-verification.
		if err := e.store.Update(ctx, c); err != nil {
			return StatusView{}, dErrors.Wrap(dErrors.CodeInternal, "coordination update failed", err)
		}
		return StatusView{}, dErrors.New(dErrors.CodeProviderUnavailable, "no eligible provider for request")
	}

	c.MatchedProvider = ranked[0].ID
	if err := c.transition(StateMatched, now); err != nil {
		return StatusView{}, err
	}
	if err := e.store.Update(ctx, c); err != nil {
		return StatusView{}, dErrors.Wrap(dErrors.CodeInternal, "coordination update failed", err)
	}
	e.publish(ctx, events.Event{
		Kind:           events.KindCoordinationMatched,
		CoordinationID: c.ID,
		ProviderID:     c.MatchedProvider.String(),
	})

	return e.dispatch(ctx, c, ranked)
}

// dispatch offers the coordination to up to two ranked providers and moves
// it into executing, or escalates when both refuse.
func (e *Engine) dispatch(ctx context.Context, c Coordination, ranked []provider.Profile) (StatusView, error) {
	timeout := dispatchTimeout(c.Request.Urgency, e.dispatchTimeout, e.emergencyTimeout)
	attempts := ranked
	if len(attempts) > 2 {
		attempts = attempts[:2]
	}

	var lastErr error
	for _, p := range attempts {
		start := e.now()
		dispatchCtx, cancel := context.WithTimeout(ctx, timeout)
		err := e.client.Dispatch(dispatchCtx, p, c.ID, c.Request.Kind, c.Request.Category, c.Request.Urgency)
		cancel()
		e.metrics.DispatchDuration.Observe(e.now().Sub(start).Seconds())
		if err == nil {
			c.MatchedProvider = p.ID
			if err := c.transition(StateExecuting, e.now()); err != nil {
				return StatusView{}, err
			}
			if err := e.store.Update(ctx, c); err != nil {
				return StatusView{}, dErrors.Wrap(dErrors.CodeInternal, "coordination update failed", err)
			}
			e.logger.InfoContext(ctx, "coordination executing",
				"coordination_id", c.ID.String(),
				"provider_id", p.ID.String(),
			)
			return e.view(c), nil
		}
		lastErr = err
		e.logger.WarnContext(ctx, "provider dispatch failed",
			"coordination_id", c.ID.String(),
			"provider_id", p.ID.String(),
			"error", err,
		)
	}

	reason := "dispatch failed"
	if lastErr != nil {
		reason = reason + ": " + lastErr.Error()
	}
	return e.escalateLocked(ctx, &c, reason)
}

// AdvancePhase enters an execution phase. If the phase's disclosure floor
// exceeds the current level, the engine requests the mandated reveal,
// persists the raised level, and delivers the resolved fields to the
// matched provider's private channel before recording the phase. Delivery
// is tracked separately from the ladder: a failed delivery is retried from
// the stored level without producing a second reveal.
func (e *Engine) AdvancePhase(ctx context.Context, coordinationID id.CoordinationID, phase id.Phase) (StatusView, error) {
	ctx, span := e.tracer.Start(ctx, "coordination.AdvancePhase",
		trace.WithAttributes(attribute.String("phase", phase.String())))
	defer span.End()

	unlock := e.locks.lock(coordinationID)
	defer unlock()

	c, err := e.get(ctx, coordinationID)
	if err != nil {
		return StatusView{}, err
	}
	if c.State.Terminal() {
		return StatusView{}, dErrors.New(dErrors.CodeTerminalState, "coordination already terminal")
	}
	if c.State != StateExecuting {
		return StatusView{}, dErrors.New(dErrors.CodeConflict, "coordination is not executing")
	}

	minimum := reveal.MinimumLevelForPhase(phase)
	var disclosed map[id.IdentityField]string
	if minimum.Exceeds(c.DisclosureLevel) {
		outcome, err := e.revealer.RequestReveal(ctx, reveal.Request{
			CoordinationID: c.ID,
			PseudonymID:    c.Request.PseudonymID,
			Current:        c.DisclosureLevel,
			Target:         minimum,
			Justification:  reveal.Justification{Kind: reveal.JustificationPhase, Phase: phase},
		})
		if err != nil {
			return StatusView{}, err
		}
		// The reveal is on the audit trail at this point. Persist the raised
		// level before attempting delivery so a retry after a delivery
		// failure does not re-run the reveal and duplicate the event.
		if outcome.Level.Exceeds(c.DisclosureLevel) {
			c.DisclosureLevel = outcome.Level
		}
		c.RevealTriggers = append(c.RevealTriggers, "phase:"+phase.String())
		c.UpdatedAt = e.now()
		if err := e.store.Update(ctx, c); err != nil {
			return StatusView{}, dErrors.Wrap(dErrors.CodeInternal, "coordination update failed", err)
		}
		disclosed = outcome.Disclosed
	}
	if minimum.Exceeds(c.DeliveredLevel) {
		if disclosed == nil {
			// Retry of a failed delivery: the level is already recorded, so
			// re-resolve the authorized fields instead of revealing again.
			disclosed, err = e.revealer.ResolveDisclosed(ctx, c.ID, c.Request.PseudonymID, c.DisclosureLevel)
			if err != nil {
				return StatusView{}, err
			}
		}
		if err := e.client.DeliverDisclosure(ctx, c.MatchedProvider, c.ID, c.DisclosureLevel, disclosed); err != nil {
			return StatusView{}, dErrors.Wrap(dErrors.CodeInternal, "disclosure delivery failed", err)
		}
		c.DeliveredLevel = c.DisclosureLevel
	}

	c.PhaseHistory = append(c.PhaseHistory, PhaseRecord{Phase: phase, EnteredAt: e.now()})
	c.UpdatedAt = e.now()
	if err := e.store.Update(ctx, c); err != nil {
		return StatusView{}, dErrors.Wrap(dErrors.CodeInternal, "coordination update failed", err)
	}
	e.logger.InfoContext(ctx, "phase entered",
		"coordination_id", c.ID.String(),
		"phase", phase.String(),
		"disclosure_level", c.DisclosureLevel.String(),
	)
	return e.view(c), nil
}

// Escalate moves an active coordination into escalated, or abandons it when
// the escalation budget is spent.
func (e *Engine) Escalate(ctx context.Context, coordinationID id.CoordinationID, reason string) (StatusView, error) {
	ctx, span := e.tracer.Start(ctx, "coordination.Escalate")
	defer span.End()

	unlock := e.locks.lock(coordinationID)
	defer unlock()

	c, err := e.get(ctx, coordinationID)
	if err != nil {
		return StatusView{}, err
	}
	return e.escalateLocked(ctx, &c, reason)
}

func (e *Engine) escalateLocked(ctx context.Context, c *Coordination, reason string) (StatusView, error) {
	now := e.now()
	if err := c.transition(StateEscalated, now); err != nil {
		return StatusView{}, err
	}
	c.Escalations++
	if c.Escalations > e.escalationLimit {
		if err := c.transition(StateAbandoned, now); err != nil {
			return StatusView{}, err
		}
		if err := e.store.Update(ctx, *c); err != nil {
			return StatusView{}, dErrors.Wrap(dErrors.CodeInternal, "coordination update failed", err)
		}
		e.terminal(ctx, *c)
		return StatusView{}, dErrors.New(dErrors.CodeEscalationLimit, "escalation limit exhausted, coordination abandoned")
	}
	if err := e.store.Update(ctx, *c); err != nil {
		return StatusView{}, dErrors.Wrap(dErrors.CodeInternal, "coordination update failed", err)
	}
	e.logger.WarnContext(ctx, "coordination escalated",
		"coordination_id", c.ID.String(),
		"escalations", c.Escalations,
		"reason", reason,
	)
	return e.view(*c), nil
}

// Resume re-matches an escalated coordination, excluding the provider whose
// failure caused the escalation, and dispatches again.
func (e *Engine) Resume(ctx context.Context, coordinationID id.CoordinationID) (StatusView, error) {
	ctx, span := e.tracer.Start(ctx, "coordination.Resume")
	defer span.End()

	unlock := e.locks.lock(coordinationID)
	defer unlock()

	c, err := e.get(ctx, coordinationID)
	if err != nil {
		return StatusView{}, err
	}
	if c.State != StateEscalated {
		return StatusView{}, dErrors.New(dErrors.CodeConflict, "coordination is not escalated")
	}

	profiles, err := e.registry.Snapshot(ctx)
	if err != nil {
		return StatusView{}, dErrors.Wrap(dErrors.CodeInternal, "provider snapshot failed", err)
	}
	ranked := RankProviders(profiles, c.Request.Tier, c.Request.Category, c.Request.Urgency)
	retry := ranked[:0:len(ranked)]
	for _, p := range ranked {
		if p.ID != c.MatchedProvider {
			retry = append(retry, p)
		}
	}
	if len(retry) == 0 {
		return StatusView{}, dErrors.New(dErrors.CodeProviderUnavailable, "no alternative provider for escalated request")
	}
	return e.dispatch(ctx, c, retry)
}

// Complete finishes an executing or escalated coordination.
func (e *Engine) Complete(ctx context.Context, coordinationID id.CoordinationID) (StatusView, error) {
	ctx, span := e.tracer.Start(ctx, "coordination.Complete")
	defer span.End()

	unlock := e.locks.lock(coordinationID)
	defer unlock()

	c, err := e.get(ctx, coordinationID)
	if err != nil {
		return StatusView{}, err
	}
	if err := c.transition(StateCompleted, e.now()); err != nil {
		return StatusView{}, err
	}
	if err := e.store.Update(ctx, c); err != nil {
		return StatusView{}, dErrors.Wrap(dErrors.CodeInternal, "coordination update failed", err)
	}
	e.terminal(ctx, c)
	return e.view(c), nil
}

// Cancel abandons a coordination. Before execution a cancel is immediate;
// once a provider is executing it must acknowledge first, so nobody is left
// mid-rendezvous with a request that silently vanished. Cancelling a
// terminal coordination fails with terminal_state.
func (e *Engine) Cancel(ctx context.Context, coordinationID id.CoordinationID) (StatusView, error) {
	ctx, span := e.tracer.Start(ctx, "coordination.Cancel")
	defer span.End()

	unlock := e.locks.lock(coordinationID)
	defer unlock()

	c, err := e.get(ctx, coordinationID)
	if err != nil {
		return StatusView{}, err
	}
	if c.State.Terminal() {
		return StatusView{}, dErrors.New(dErrors.CodeTerminalState, "coordination already terminal")
	}

	c.CancelRequested = true
	if c.State == StateExecuting {
		ackCtx, cancel := context.WithTimeout(ctx, e.dispatchTimeout)
		err := e.client.AcknowledgeCancel(ackCtx, c.MatchedProvider, c.ID)
		cancel()
		if err != nil {
			// Persist the intent so the provider-facing side can retry.
			c.UpdatedAt = e.now()
			if uerr := e.store.Update(ctx, c); uerr != nil {
				return StatusView{}, dErrors.Wrap(dErrors.CodeInternal, "coordination update failed", uerr)
			}
			return StatusView{}, dErrors.Wrap(dErrors.CodeProviderUnavailable, "provider has not acknowledged the cancel", err)
		}
	}

	if err := c.transition(StateAbandoned, e.now()); err != nil {
		return StatusView{}, err
	}
	if err := e.store.Update(ctx, c); err != nil {
		return StatusView{}, dErrors.Wrap(dErrors.CodeInternal, "coordination update failed", err)
	}
	e.terminal(ctx, c)
	return e.view(c), nil
}

// TriggerEmergency runs an emergency override against an active
// coordination and persists the resulting disclosure level. Overrides on
// terminal coordinations are refused outright.
func (e *Engine) TriggerEmergency(ctx context.Context, coordinationID id.CoordinationID, emergencyType id.EmergencyType, statute string) (StatusView, error) {
	ctx, span := e.tracer.Start(ctx, "coordination.TriggerEmergency",
		trace.WithAttributes(attribute.String("emergency_type", emergencyType.String())))
	defer span.End()

	unlock := e.locks.lock(coordinationID)
	defer unlock()

	c, err := e.get(ctx, coordinationID)
	if err != nil {
		return StatusView{}, err
	}
	if c.State.Terminal() {
		return StatusView{}, dErrors.New(dErrors.CodeTerminalState, "no overrides after a terminal state")
	}

	outcome, err := e.overrider.Trigger(ctx, c.ID, c.Request.PseudonymID, c.DisclosureLevel, emergencyType, statute)
	if err != nil {
		return StatusView{}, err
	}

	// Overrides only ever add disclosure. The level recorded on the
	// coordination never drops below the anonymity floor from intake.
	if outcome.Level.Exceeds(c.DisclosureLevel) {
		c.DisclosureLevel = outcome.Level
	}

	if !c.MatchedProvider.IsNil() {
		if err := e.client.DeliverDisclosure(ctx, c.MatchedProvider, c.ID, c.DisclosureLevel, outcome.Disclosed); err != nil {
			e.logger.ErrorContext(ctx, "emergency disclosure delivery failed",
				"coordination_id", c.ID.String(),
				"provider_id", c.MatchedProvider.String(),
				"error", err,
			)
		} else if c.DisclosureLevel.Exceeds(c.DeliveredLevel) {
			c.DeliveredLevel = c.DisclosureLevel
		}
	}

	c.RevealTriggers = append(c.RevealTriggers, "emergency:"+emergencyType.String())
	c.UpdatedAt = e.now()
	if err := e.store.Update(ctx, c); err != nil {
		return StatusView{}, dErrors.Wrap(dErrors.CodeInternal, "coordination update failed", err)
	}
	return e.view(c), nil
}

// AppendTranscript records a communication line. Transcripts are deleted at
// finalization and never appear in status views.
func (e *Engine) AppendTranscript(ctx context.Context, coordinationID id.CoordinationID, from, body string) error {
	unlock := e.locks.lock(coordinationID)
	defer unlock()

	c, err := e.get(ctx, coordinationID)
	if err != nil {
		return err
	}
	if c.State.Terminal() {
		return dErrors.New(dErrors.CodeTerminalState, "coordination already terminal")
	}
	c.Transcript = append(c.Transcript, TranscriptEntry{From: from, Body: body, At: e.now()})
	c.UpdatedAt = e.now()
	if err := e.store.Update(ctx, c); err != nil {
		return dErrors.Wrap(dErrors.CodeInternal, "coordination update failed", err)
	}
	return nil
}

func (e *Engine) get(ctx context.Context, coordinationID id.CoordinationID) (Coordination, error) {
	c, err := e.store.Get(ctx, coordinationID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return Coordination{}, dErrors.New(dErrors.CodeNotFound, "unknown coordination")
	}
	if err != nil {
		return Coordination{}, dErrors.Wrap(dErrors.CodeInternal, "coordination fetch failed", err)
	}
	return c, nil
}

// terminal publishes the terminal event and hands the coordination to the
// finalizer. Finalization failures are swept up later by the background
// cleanup loop, so they are logged, not surfaced.
func (e *Engine) terminal(ctx context.Context, c Coordination) {
	e.metrics.CoordinationsTerminal.WithLabelValues(string(c.State)).Inc()
	e.publish(ctx, events.Event{
		Kind:           events.KindCoordinationTerminal,
		CoordinationID: c.ID,
		Outcome:        string(c.State),
	})
	e.logger.InfoContext(ctx, "coordination terminal",
		"coordination_id", c.ID.String(),
		"outcome", string(c.State),
	)

	e.finalizeMu.RLock()
	f := e.finalizer
	e.finalizeMu.RUnlock()
	if f == nil {
		return
	}
	if err := f.Finalize(ctx, c.ID); err != nil {
		e.logger.ErrorContext(ctx, "inline finalization failed",
			"coordination_id", c.ID.String(),
			"error", err,
		)
	}
}

func (e *Engine) publish(ctx context.Context, event events.Event) {
	if err := e.publisher.Publish(ctx, event); err != nil {
		e.logger.WarnContext(ctx, "event publish failed",
			"kind", string(event.Kind),
			"coordination_id", event.CoordinationID.String(),
			"error", err,
		)
	}
}

// keyedMutex serializes operations per coordination. Entries are reference
// counted and removed when the last holder unlocks.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[id.CoordinationID]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key id.CoordinationID) (unlock func()) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[id.CoordinationID]*lockEntry)
	}
	entry, ok := k.locks[key]
	if !ok {
		entry = &lockEntry{}
		k.locks[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
