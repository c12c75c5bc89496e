package coordination

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"veil/internal/coordination/mocks"
	"veil/internal/events"
	"veil/internal/identity"
	"veil/internal/platform/metrics"
	"veil/internal/proof"
	proofmocks "veil/internal/proof/mocks"
	"veil/internal/provider"
	"veil/internal/reveal"
	id "veil/pkg/domain"
	dErrors "veil/pkg/domain-errors"
)

type stubDirectory struct {
	pseudonyms map[id.PseudonymID]identity.Pseudonym
}

func (d *stubDirectory) Lookup(_ context.Context, pseudonymID id.PseudonymID) (identity.Pseudonym, error) {
	p, ok := d.pseudonyms[pseudonymID]
	if !ok {
		return identity.Pseudonym{}, dErrors.New(dErrors.CodeNotFound, "unknown pseudonym")
	}
	return p, nil
}

type stubEngineRevealer struct {
	requests []reveal.Request
	outcome  reveal.Outcome
	err      error

	resolves   int
	resolved   map[id.IdentityField]string
	resolveErr error
}

func (r *stubEngineRevealer) RequestReveal(_ context.Context, req reveal.Request) (reveal.Outcome, error) {
	r.requests = append(r.requests, req)
	if r.err != nil {
		return reveal.Outcome{}, r.err
	}
	return r.outcome, nil
}

func (r *stubEngineRevealer) ResolveDisclosed(_ context.Context, _ id.CoordinationID, _ id.PseudonymID, _ id.DisclosureLevel) (map[id.IdentityField]string, error) {
	r.resolves++
	if r.resolveErr != nil {
		return nil, r.resolveErr
	}
	return r.resolved, nil
}

type stubOverrider struct {
	calls   int
	outcome reveal.Outcome
	err     error
}

func (o *stubOverrider) Trigger(_ context.Context, _ id.CoordinationID, _ id.PseudonymID, _ id.DisclosureLevel, _ id.EmergencyType, _ string) (reveal.Outcome, error) {
	o.calls++
	return o.outcome, o.err
}

type stubFinalizer struct {
	finalized []id.CoordinationID
}

func (f *stubFinalizer) Finalize(_ context.Context, coordinationID id.CoordinationID) error {
	f.finalized = append(f.finalized, coordinationID)
	return nil
}

type engineFixture struct {
	engine    *Engine
	store     *InMemoryStore
	providers *provider.InMemoryStore
	verifier  *proofmocks.MockVerifier
	client    *mocks.MockProviderClient
	directory *stubDirectory
	revealer  *stubEngineRevealer
	overrider *stubOverrider
	publisher *events.MemoryPublisher
	finalizer *stubFinalizer
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &engineFixture{
		store:     NewInMemoryStore(),
		providers: provider.NewInMemoryStore(),
		verifier:  proofmocks.NewMockVerifier(ctrl),
		client:    mocks.NewMockProviderClient(ctrl),
		directory: &stubDirectory{pseudonyms: make(map[id.PseudonymID]identity.Pseudonym)},
		revealer:  &stubEngineRevealer{},
		overrider: &stubOverrider{},
		publisher: events.NewMemoryPublisher(),
		finalizer: &stubFinalizer{},
	}
	f.engine = NewEngine(EngineParams{
		Store:                    f.store,
		Verifier:                 f.verifier,
		Directory:                f.directory,
		Registry:                 provider.NewRegistry(f.providers),
		Revealer:                 f.revealer,
		Overrider:                f.overrider,
		Client:                   f.client,
		Publisher:                f.publisher,
		Metrics:                  metrics.NewWithRegistry(prometheus.NewRegistry()),
		Logger:                   slog.Default(),
		EscalationLimit:          2,
		DispatchTimeout:          time.Second,
		EmergencyDispatchTimeout: 100 * time.Millisecond,
	})
	f.engine.SetFinalizer(f.finalizer)
	return f
}

func (f *engineFixture) activePseudonym(tier id.Tier) identity.Pseudonym {
	p := identity.Pseudonym{
		ID:       id.NewPseudonymID(),
		UserID:   id.NewUserID(),
		Tier:     tier,
		IssuedAt: time.Now(),
	}
	f.directory.pseudonyms[p.ID] = p
	return p
}

func (f *engineFixture) seed(t *testing.T, state State) Coordination {
	t.Helper()
	c := storedCoordination(state)
	require.NoError(t, f.store.Create(context.Background(), c))
	return c
}

func eligibleProfile(name string, quality float64) provider.Profile {
	return provider.Profile{
		ID:                  id.NewProviderID(),
		Name:                name,
		ServiceCategories:   []string{"logistics"},
		TierAuthorization:   []id.Tier{id.TierSterling, id.TierObsidian, id.TierVoid},
		AnonymityCompliance: true,
		ResponseCapability:  id.UrgencyLifeThreatening,
		QualityScore:        quality,
	}
}

func TestEngineSubmit(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a received coordination after proof verification", func(t *testing.T) {
		f := newEngineFixture(t)
		pseudonym := f.activePseudonym(id.TierObsidian)
		f.verifier.EXPECT().
			Verify(gomock.Any(), "signed-proof", id.TierObsidian, []proof.Capability{proof.CapabilityPayment}).
			Return(proof.Result{OK: true, Tier: id.TierObsidian}, nil)

		c, err := f.engine.Submit(ctx, SubmitInput{
			PseudonymID: pseudonym.ID,
			Kind:        id.ServiceConcierge,
			Tier:        id.TierObsidian,
			Urgency:     id.UrgencyStandard,
			Category:    "logistics",
			Proof:       "signed-proof",
		})
		require.NoError(t, err)
		assert.Equal(t, StateReceived, c.State)
		assert.Equal(t, id.DisclosureNone, c.DisclosureLevel)
		assert.Equal(t, id.DisclosureNone, c.Request.AnonymityLevel)
		assert.Equal(t, id.TierObsidian, c.Request.Tier)

		stored, err := f.store.Get(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, pseudonym.ID, stored.Request.PseudonymID)
		assert.Len(t, f.publisher.ByKind(events.KindCoordinationCreated), 1)
	})

	t.Run("emergency requests require the emergency_contact capability", func(t *testing.T) {
		f := newEngineFixture(t)
		pseudonym := f.activePseudonym(id.TierVoid)
		f.verifier.EXPECT().
			Verify(gomock.Any(), gomock.Any(), id.TierVoid,
				[]proof.Capability{proof.CapabilityPayment, proof.CapabilityEmergencyContact}).
			Return(proof.Result{OK: true, Tier: id.TierVoid}, nil)

		_, err := f.engine.Submit(ctx, SubmitInput{
			PseudonymID: pseudonym.ID,
			Kind:        id.ServiceEmergency,
			Tier:        id.TierVoid,
			Urgency:     id.UrgencyLifeThreatening,
			Category:    "logistics",
			Proof:       "signed-proof",
		})
		require.NoError(t, err)
	})

	t.Run("anonymity level becomes the disclosure floor", func(t *testing.T) {
		f := newEngineFixture(t)
		pseudonym := f.activePseudonym(id.TierObsidian)
		f.verifier.EXPECT().
			Verify(gomock.Any(), gomock.Any(), id.TierObsidian, gomock.Any()).
			Return(proof.Result{OK: true, Tier: id.TierObsidian}, nil)

		c, err := f.engine.Submit(ctx, SubmitInput{
			PseudonymID:    pseudonym.ID,
			Kind:           id.ServiceConcierge,
			Tier:           id.TierObsidian,
			Urgency:        id.UrgencyStandard,
			Category:       "logistics",
			Proof:          "signed-proof",
			AnonymityLevel: id.DisclosureContact,
		})
		require.NoError(t, err)
		assert.Equal(t, id.DisclosureContact, c.Request.AnonymityLevel)
		assert.Equal(t, id.DisclosureContact, c.DisclosureLevel)
	})

	t.Run("tier disagreement is refused before verification", func(t *testing.T) {
		f := newEngineFixture(t)
		pseudonym := f.activePseudonym(id.TierObsidian)

		_, err := f.engine.Submit(ctx, SubmitInput{
			PseudonymID: pseudonym.ID,
			Kind:        id.ServiceConcierge,
			Tier:        id.TierSterling,
			Urgency:     id.UrgencyStandard,
			Category:    "logistics",
			Proof:       "signed-proof",
		})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeTierMismatch))
		assert.Empty(t, f.publisher.ByKind(events.KindCoordinationCreated))
	})

	t.Run("rejected proof creates no record", func(t *testing.T) {
		f := newEngineFixture(t)
		pseudonym := f.activePseudonym(id.TierSterling)
		f.verifier.EXPECT().
			Verify(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(proof.Result{OK: false, Reasons: []string{"proof expired"}}, nil)

		_, err := f.engine.Submit(ctx, SubmitInput{
			PseudonymID: pseudonym.ID,
			Kind:        id.ServiceConcierge,
			Tier:        id.TierSterling,
			Urgency:     id.UrgencyStandard,
			Category:    "logistics",
			Proof:       "stale-proof",
		})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidProof))
		assert.Contains(t, err.Error(), "proof expired")
		assert.Empty(t, f.publisher.ByKind(events.KindCoordinationCreated))
	})

	t.Run("revoked pseudonym never reaches the verifier", func(t *testing.T) {
		f := newEngineFixture(t)
		revoked := time.Now()
		p := identity.Pseudonym{ID: id.NewPseudonymID(), Tier: id.TierSterling, RevokedAt: &revoked}
		f.directory.pseudonyms[p.ID] = p

		_, err := f.engine.Submit(ctx, SubmitInput{
			PseudonymID: p.ID,
			Kind:        id.ServiceConcierge,
			Tier:        id.TierSterling,
			Urgency:     id.UrgencyStandard,
			Category:    "logistics",
			Proof:       "signed-proof",
		})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("input validation", func(t *testing.T) {
		f := newEngineFixture(t)
		pseudonym := f.activePseudonym(id.TierSterling)

		_, err := f.engine.Submit(ctx, SubmitInput{Kind: id.ServiceConcierge, Tier: id.TierSterling, Category: "logistics"})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

		_, err = f.engine.Submit(ctx, SubmitInput{PseudonymID: pseudonym.ID, Kind: id.ServiceConcierge, Tier: id.TierSterling})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

		_, err = f.engine.Submit(ctx, SubmitInput{PseudonymID: pseudonym.ID, Kind: id.ServiceKind("valet"), Tier: id.TierSterling, Category: "logistics"})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

		_, err = f.engine.Submit(ctx, SubmitInput{PseudonymID: pseudonym.ID, Kind: id.ServiceConcierge, Category: "logistics"})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput), "tier is required")

		_, err = f.engine.Submit(ctx, SubmitInput{
			PseudonymID: pseudonym.ID, Kind: id.ServiceConcierge, Tier: id.TierSterling,
			Category: "logistics", AnonymityLevel: id.DisclosureLevel("translucent"),
		})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func TestEngineMatchProvider(t *testing.T) {
	ctx := context.Background()

	t.Run("dispatches the top-ranked provider and starts executing", func(t *testing.T) {
		f := newEngineFixture(t)
		best := eligibleProfile("best", 90)
		second := eligibleProfile("second", 50)
		require.NoError(t, f.providers.Save(ctx, best))
		require.NoError(t, f.providers.Save(ctx, second))
		c := f.seed(t, StateReceived)

		f.client.EXPECT().
			Dispatch(gomock.Any(), gomock.Any(), c.ID, c.Request.Kind, "logistics", id.UrgencyStandard).
			DoAndReturn(func(_ context.Context, p provider.Profile, _ id.CoordinationID, _ id.ServiceKind, _ string, _ id.Urgency) error {
				assert.Equal(t, best.ID, p.ID)
				return nil
			})

		view, err := f.engine.MatchProvider(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, StateExecuting, view.State)
		assert.Equal(t, best.ID.String(), view.MatchedProviderID)
		assert.Len(t, f.publisher.ByKind(events.KindCoordinationMatched), 1)
	})

	t.Run("retries the next-ranked provider on dispatch failure", func(t *testing.T) {
		f := newEngineFixture(t)
		best := eligibleProfile("best", 90)
		second := eligibleProfile("second", 50)
		require.NoError(t, f.providers.Save(ctx, best))
		require.NoError(t, f.providers.Save(ctx, second))
		c := f.seed(t, StateReceived)

		gomock.InOrder(
			f.client.EXPECT().
				Dispatch(gomock.Any(), profileWithID(best.ID), c.ID, gomock.Any(), gomock.Any(), gomock.Any()).
				Return(errors.New("channel offline")),
			f.client.EXPECT().
				Dispatch(gomock.Any(), profileWithID(second.ID), c.ID, gomock.Any(), gomock.Any(), gomock.Any()).
				Return(nil),
		)

		view, err := f.engine.MatchProvider(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, StateExecuting, view.State)
		assert.Equal(t, second.ID.String(), view.MatchedProviderID)
	})

	t.Run("two dispatch failures escalate", func(t *testing.T) {
		f := newEngineFixture(t)
		require.NoError(t, f.providers.Save(ctx, eligibleProfile("best", 90)))
		require.NoError(t, f.providers.Save(ctx, eligibleProfile("second", 50)))
		c := f.seed(t, StateReceived)

		f.client.EXPECT().
			Dispatch(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(errors.New("channel offline")).
			Times(2)

		view, err := f.engine.MatchProvider(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, StateEscalated, view.State)

		stored, err := f.store.Get(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, stored.Escalations)
	})

	t.Run("no eligible provider leaves the coordination verified", func(t *testing.T) {
		f := newEngineFixture(t)
		c := f.seed(t, StateReceived)

		_, err := f.engine.MatchProvider(ctx, c.ID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeProviderUnavailable))

		stored, err := f.store.Get(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, StateVerified, stored.State)
	})

	t.Run("rejects a coordination past matching", func(t *testing.T) {
		f := newEngineFixture(t)
		c := f.seed(t, StateExecuting)

		_, err := f.engine.MatchProvider(ctx, c.ID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func TestEngineAdvancePhase(t *testing.T) {
	ctx := context.Background()

	t.Run("reveals the phase floor and delivers before recording", func(t *testing.T) {
		f := newEngineFixture(t)
		providerID := id.NewProviderID()
		c := storedCoordination(StateExecuting)
		c.MatchedProvider = providerID
		require.NoError(t, f.store.Create(ctx, c))

		disclosed := map[id.IdentityField]string{id.FieldContactPhone: "+1-555-0100"}
		f.revealer.outcome = reveal.Outcome{Level: id.DisclosureContact, Disclosed: disclosed}
		f.client.EXPECT().
			DeliverDisclosure(gomock.Any(), providerID, c.ID, id.DisclosureContact, disclosed).
			Return(nil)

		view, err := f.engine.AdvancePhase(ctx, c.ID, id.PhaseContact)
		require.NoError(t, err)
		assert.Equal(t, id.DisclosureContact, view.DisclosureLevel)

		require.Len(t, f.revealer.requests, 1)
		assert.Equal(t, id.DisclosureContact, f.revealer.requests[0].Target)
		assert.Equal(t, reveal.JustificationPhase, f.revealer.requests[0].Justification.Kind)

		stored, err := f.store.Get(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"phase:contact"}, stored.RevealTriggers)
		assert.Equal(t, id.DisclosureContact, stored.DeliveredLevel)
		require.Len(t, stored.PhaseHistory, 1)
		assert.Equal(t, id.PhaseContact, stored.PhaseHistory[0].Phase)
	})

	t.Run("sufficient level skips the reveal", func(t *testing.T) {
		f := newEngineFixture(t)
		c := storedCoordination(StateExecuting)
		c.MatchedProvider = id.NewProviderID()
		c.DisclosureLevel = id.DisclosureLocation
		c.DeliveredLevel = id.DisclosureLocation
		require.NoError(t, f.store.Create(ctx, c))

		view, err := f.engine.AdvancePhase(ctx, c.ID, id.PhaseBriefing)
		require.NoError(t, err)
		assert.Equal(t, id.DisclosureLocation, view.DisclosureLevel, "the ladder never steps down")
		assert.Empty(t, f.revealer.requests)
	})

	t.Run("failed delivery retries without a second reveal", func(t *testing.T) {
		f := newEngineFixture(t)
		providerID := id.NewProviderID()
		c := storedCoordination(StateExecuting)
		c.MatchedProvider = providerID
		require.NoError(t, f.store.Create(ctx, c))

		disclosed := map[id.IdentityField]string{id.FieldContactPhone: "+1-555-0100"}
		f.revealer.outcome = reveal.Outcome{Level: id.DisclosureContact, Disclosed: disclosed}
		f.revealer.resolved = disclosed
		f.client.EXPECT().
			DeliverDisclosure(gomock.Any(), providerID, c.ID, id.DisclosureContact, disclosed).
			Return(errors.New("provider channel down"))
		f.client.EXPECT().
			DeliverDisclosure(gomock.Any(), providerID, c.ID, id.DisclosureContact, disclosed).
			Return(nil)

		_, err := f.engine.AdvancePhase(ctx, c.ID, id.PhaseContact)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))

		// The reveal happened and its level survived the failed delivery.
		stored, err := f.store.Get(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, id.DisclosureContact, stored.DisclosureLevel)
		assert.Equal(t, id.DisclosureNone, stored.DeliveredLevel)
		assert.Equal(t, []string{"phase:contact"}, stored.RevealTriggers)
		assert.Empty(t, stored.PhaseHistory)

		_, err = f.engine.AdvancePhase(ctx, c.ID, id.PhaseContact)
		require.NoError(t, err)

		stored, err = f.store.Get(ctx, c.ID)
		require.NoError(t, err)
		require.Len(t, f.revealer.requests, 1, "retry must not reveal again")
		assert.Equal(t, 1, f.revealer.resolves)
		assert.Equal(t, id.DisclosureContact, stored.DeliveredLevel)
		assert.Equal(t, []string{"phase:contact"}, stored.RevealTriggers)
		require.Len(t, stored.PhaseHistory, 1)
	})

	t.Run("only executing coordinations advance", func(t *testing.T) {
		f := newEngineFixture(t)
		c := f.seed(t, StateVerified)

		_, err := f.engine.AdvancePhase(ctx, c.ID, id.PhaseBriefing)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))

		terminal := f.seed(t, StateCompleted)
		_, err = f.engine.AdvancePhase(ctx, terminal.ID, id.PhaseBriefing)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeTerminalState))
	})
}

func TestEngineEscalationBudget(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t)
	c := f.seed(t, StateExecuting)

	// Limit is 2: two escalations survive, the third abandons.
	for i := 0; i < 2; i++ {
		view, err := f.engine.Escalate(ctx, c.ID, "provider unresponsive")
		require.NoError(t, err)
		assert.Equal(t, StateEscalated, view.State)

		stored, err := f.store.Get(ctx, c.ID)
		require.NoError(t, err)
		require.NoError(t, stored.transition(StateExecuting, time.Now()))
		require.NoError(t, f.store.Update(ctx, stored))
	}

	_, err := f.engine.Escalate(ctx, c.ID, "provider unresponsive")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeEscalationLimit))

	stored, err := f.store.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, StateAbandoned, stored.State)
	assert.Equal(t, []id.CoordinationID{c.ID}, f.finalizer.finalized)
	assert.Len(t, f.publisher.ByKind(events.KindCoordinationTerminal), 1)
}

func TestEngineResume(t *testing.T) {
	ctx := context.Background()

	t.Run("re-matches excluding the failed provider", func(t *testing.T) {
		f := newEngineFixture(t)
		failed := eligibleProfile("failed", 90)
		fallback := eligibleProfile("fallback", 50)
		require.NoError(t, f.providers.Save(ctx, failed))
		require.NoError(t, f.providers.Save(ctx, fallback))

		c := storedCoordination(StateEscalated)
		c.MatchedProvider = failed.ID
		c.Escalations = 1
		require.NoError(t, f.store.Create(ctx, c))

		f.client.EXPECT().
			Dispatch(gomock.Any(), profileWithID(fallback.ID), c.ID, gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil)

		view, err := f.engine.Resume(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, StateExecuting, view.State)
		assert.Equal(t, fallback.ID.String(), view.MatchedProviderID)
	})

	t.Run("no alternative provider", func(t *testing.T) {
		f := newEngineFixture(t)
		only := eligibleProfile("only", 90)
		require.NoError(t, f.providers.Save(ctx, only))

		c := storedCoordination(StateEscalated)
		c.MatchedProvider = only.ID
		require.NoError(t, f.store.Create(ctx, c))

		_, err := f.engine.Resume(ctx, c.ID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeProviderUnavailable))
	})

	t.Run("only escalated coordinations resume", func(t *testing.T) {
		f := newEngineFixture(t)
		c := f.seed(t, StateExecuting)

		_, err := f.engine.Resume(ctx, c.ID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func TestEngineComplete(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t)
	c := f.seed(t, StateExecuting)

	view, err := f.engine.Complete(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, view.State)
	assert.Equal(t, []id.CoordinationID{c.ID}, f.finalizer.finalized)

	_, err = f.engine.Complete(ctx, c.ID)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeTerminalState))
}

func TestEngineCancel(t *testing.T) {
	ctx := context.Background()

	t.Run("before execution a cancel is immediate", func(t *testing.T) {
		f := newEngineFixture(t)
		c := f.seed(t, StateReceived)

		view, err := f.engine.Cancel(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, StateAbandoned, view.State)
		assert.Equal(t, []id.CoordinationID{c.ID}, f.finalizer.finalized)
	})

	t.Run("executing requires provider acknowledgement", func(t *testing.T) {
		f := newEngineFixture(t)
		providerID := id.NewProviderID()
		c := storedCoordination(StateExecuting)
		c.MatchedProvider = providerID
		require.NoError(t, f.store.Create(ctx, c))

		f.client.EXPECT().
			AcknowledgeCancel(gomock.Any(), providerID, c.ID).
			Return(nil)

		view, err := f.engine.Cancel(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, StateAbandoned, view.State)
	})

	t.Run("unacknowledged cancel persists the intent", func(t *testing.T) {
		f := newEngineFixture(t)
		providerID := id.NewProviderID()
		c := storedCoordination(StateExecuting)
		c.MatchedProvider = providerID
		require.NoError(t, f.store.Create(ctx, c))

		f.client.EXPECT().
			AcknowledgeCancel(gomock.Any(), providerID, c.ID).
			Return(errors.New("channel offline"))

		_, err := f.engine.Cancel(ctx, c.ID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeProviderUnavailable))

		stored, err := f.store.Get(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, StateExecuting, stored.State)
		assert.True(t, stored.CancelRequested)
	})

	t.Run("terminal coordinations cannot be cancelled", func(t *testing.T) {
		f := newEngineFixture(t)
		c := f.seed(t, StateCompleted)

		_, err := f.engine.Cancel(ctx, c.ID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeTerminalState))
	})
}

func TestEngineTriggerEmergency(t *testing.T) {
	ctx := context.Background()

	t.Run("persists the override level and delivers to the provider", func(t *testing.T) {
		f := newEngineFixture(t)
		providerID := id.NewProviderID()
		c := storedCoordination(StateExecuting)
		c.MatchedProvider = providerID
		require.NoError(t, f.store.Create(ctx, c))

		disclosed := map[id.IdentityField]string{id.FieldMedicalInfo: "type O-"}
		f.overrider.outcome = reveal.Outcome{Level: id.DisclosureLocation, Disclosed: disclosed}
		f.client.EXPECT().
			DeliverDisclosure(gomock.Any(), providerID, c.ID, id.DisclosureLocation, disclosed).
			Return(nil)

		view, err := f.engine.TriggerEmergency(ctx, c.ID, id.EmergencyLifeThreatening, "")
		require.NoError(t, err)
		assert.Equal(t, id.DisclosureLocation, view.DisclosureLevel)

		stored, err := f.store.Get(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"emergency:life_threatening"}, stored.RevealTriggers)
		assert.Equal(t, id.DisclosureLocation, stored.DeliveredLevel)
	})

	t.Run("never records below the intake anonymity floor", func(t *testing.T) {
		f := newEngineFixture(t)
		c := storedCoordination(StateExecuting)
		c.Request.AnonymityLevel = id.DisclosureLocation
		c.DisclosureLevel = id.DisclosureLocation
		require.NoError(t, f.store.Create(ctx, c))

		f.overrider.outcome = reveal.Outcome{Level: id.DisclosureContact}

		view, err := f.engine.TriggerEmergency(ctx, c.ID, id.EmergencyLegalRequirement, "CPL-140.10")
		require.NoError(t, err)
		assert.Equal(t, id.DisclosureLocation, view.DisclosureLevel)

		stored, err := f.store.Get(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, id.DisclosureLocation, stored.DisclosureLevel)
		assert.Equal(t, id.DisclosureLocation, stored.Request.AnonymityLevel)
		assert.Equal(t, []string{"emergency:legal_requirement"}, stored.RevealTriggers)
	})

	t.Run("works before a provider is matched", func(t *testing.T) {
		f := newEngineFixture(t)
		c := f.seed(t, StateReceived)

		f.overrider.outcome = reveal.Outcome{Level: id.DisclosureLocation}

		view, err := f.engine.TriggerEmergency(ctx, c.ID, id.EmergencyLifeThreatening, "")
		require.NoError(t, err)
		assert.Equal(t, id.DisclosureLocation, view.DisclosureLevel)
	})

	t.Run("never fires after a terminal state", func(t *testing.T) {
		f := newEngineFixture(t)
		c := f.seed(t, StateAbandoned)

		_, err := f.engine.TriggerEmergency(ctx, c.ID, id.EmergencyLifeThreatening, "")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeTerminalState))
		assert.Zero(t, f.overrider.calls)
	})
}

func TestEngineGetStatus(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t)
	c := f.seed(t, StateExecuting)

	view, err := f.engine.GetStatus(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, view.CoordinationID)
	assert.Equal(t, StateExecuting, view.State)
	assert.Empty(t, view.MatchedProviderID)

	_, err = f.engine.GetStatus(ctx, id.NewCoordinationID())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestEngineAppendTranscript(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t)
	c := f.seed(t, StateExecuting)

	require.NoError(t, f.engine.AppendTranscript(ctx, c.ID, "client", "north gate, 21:00"))
	stored, err := f.store.Get(ctx, c.ID)
	require.NoError(t, err)
	// storedCoordination seeds one transcript line.
	require.Len(t, stored.Transcript, 2)
	assert.Equal(t, "north gate, 21:00", stored.Transcript[1].Body)

	terminal := f.seed(t, StateCompleted)
	err = f.engine.AppendTranscript(ctx, terminal.ID, "client", "too late")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeTerminalState))
}

// profileWithID matches a provider.Profile argument by its ID.
func profileWithID(providerID id.ProviderID) gomock.Matcher {
	return profileMatcher{providerID}
}

type profileMatcher struct {
	providerID id.ProviderID
}

func (m profileMatcher) Matches(x any) bool {
	p, ok := x.(provider.Profile)
	return ok && p.ID == m.providerID
}

func (m profileMatcher) String() string {
	return "provider profile with ID " + m.providerID.String()
}
