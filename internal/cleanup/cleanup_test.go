package cleanup

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veil/internal/coordination"
	id "veil/pkg/domain"
)

type scrubRecorder struct {
	mu       sync.Mutex
	scrubbed []id.PseudonymID
}

func (s *scrubRecorder) Scrub(_ context.Context, pseudonymID id.PseudonymID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scrubbed = append(s.scrubbed, pseudonymID)
	return nil
}

func (s *scrubRecorder) all() []id.PseudonymID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]id.PseudonymID(nil), s.scrubbed...)
}

func terminalCoordination(tier id.Tier, state coordination.State) coordination.Coordination {
	return coordination.Coordination{
		ID: id.NewCoordinationID(),
		Request: coordination.ServiceRequest{
			RequestID:   id.NewRequestID(),
			PseudonymID: id.NewPseudonymID(),
			Kind:        id.ServiceConcierge,
			Tier:        tier,
			Urgency:     id.UrgencyStandard,
			Category:    "logistics",
		},
		State:      state,
		Transcript: []coordination.TranscriptEntry{{From: "client", Body: "north gate", At: time.Now()}},
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
}

func TestFinalize(t *testing.T) {
	ctx := context.Background()

	t.Run("scrubs the aggregate into its audit shell", func(t *testing.T) {
		store := coordination.NewInMemoryStore()
		scrubber := &scrubRecorder{}
		finalizer := NewFinalizer(store, scrubber, slog.Default())

		c := terminalCoordination(id.TierObsidian, coordination.StateCompleted)
		require.NoError(t, store.Create(ctx, c))

		require.NoError(t, finalizer.Finalize(ctx, c.ID))

		got, err := store.Get(ctx, c.ID)
		require.NoError(t, err)
		assert.True(t, got.Request.PseudonymID.IsNil())
		assert.Nil(t, got.Transcript)
		assert.NotNil(t, got.FinalizedAt)
		assert.Equal(t, coordination.ErasureAnonymized, got.Erasure)
		assert.Equal(t, coordination.StateCompleted, got.State, "the outcome record survives")
		assert.Empty(t, scrubber.all(), "standard tiers keep the pseudonym mapping")
	})

	t.Run("void tier erases the pseudonym mapping too", func(t *testing.T) {
		store := coordination.NewInMemoryStore()
		scrubber := &scrubRecorder{}
		finalizer := NewFinalizer(store, scrubber, slog.Default())

		c := terminalCoordination(id.TierVoid, coordination.StateAbandoned)
		require.NoError(t, store.Create(ctx, c))

		require.NoError(t, finalizer.Finalize(ctx, c.ID))

		got, err := store.Get(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, coordination.ErasureQuantumErased, got.Erasure)
		assert.Equal(t, []id.PseudonymID{c.Request.PseudonymID}, scrubber.all())
	})

	t.Run("is idempotent", func(t *testing.T) {
		store := coordination.NewInMemoryStore()
		scrubber := &scrubRecorder{}
		finalizer := NewFinalizer(store, scrubber, slog.Default())

		c := terminalCoordination(id.TierVoid, coordination.StateCompleted)
		require.NoError(t, store.Create(ctx, c))

		require.NoError(t, finalizer.Finalize(ctx, c.ID))
		require.NoError(t, finalizer.Finalize(ctx, c.ID))
		assert.Len(t, scrubber.all(), 1, "the scrub runs exactly once")
	})

	t.Run("concurrent finalizers scrub exactly once", func(t *testing.T) {
		store := coordination.NewInMemoryStore()
		scrubber := &scrubRecorder{}
		finalizer := NewFinalizer(store, scrubber, slog.Default())

		c := terminalCoordination(id.TierVoid, coordination.StateCompleted)
		require.NoError(t, store.Create(ctx, c))

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, finalizer.Finalize(ctx, c.ID))
			}()
		}
		wg.Wait()
		assert.Len(t, scrubber.all(), 1)
	})

	t.Run("non-terminal and unknown coordinations", func(t *testing.T) {
		store := coordination.NewInMemoryStore()
		finalizer := NewFinalizer(store, &scrubRecorder{}, slog.Default())

		running := terminalCoordination(id.TierObsidian, coordination.StateExecuting)
		require.NoError(t, store.Create(ctx, running))
		require.Error(t, finalizer.Finalize(ctx, running.ID))

		// A vanished record is not an error: there is nothing left to scrub.
		require.NoError(t, finalizer.Finalize(ctx, id.NewCoordinationID()))
	})
}

func TestSweeper(t *testing.T) {
	ctx := context.Background()
	store := coordination.NewInMemoryStore()
	scrubber := &scrubRecorder{}
	finalizer := NewFinalizer(store, scrubber, slog.Default())
	sweeper := NewSweeper(store, finalizer, slog.Default(), time.Hour)

	missed := terminalCoordination(id.TierVoid, coordination.StateCompleted)
	running := terminalCoordination(id.TierObsidian, coordination.StateExecuting)
	require.NoError(t, store.Create(ctx, missed))
	require.NoError(t, store.Create(ctx, running))

	require.NoError(t, sweeper.sweep(ctx))

	got, err := store.Get(ctx, missed.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.FinalizedAt)
	assert.Equal(t, []id.PseudonymID{missed.Request.PseudonymID}, scrubber.all())

	untouched, err := store.Get(ctx, running.ID)
	require.NoError(t, err)
	assert.Nil(t, untouched.FinalizedAt)
}

func TestSweeperRun_StopsOnCancel(t *testing.T) {
	store := coordination.NewInMemoryStore()
	finalizer := NewFinalizer(store, &scrubRecorder{}, slog.Default())
	sweeper := NewSweeper(store, finalizer, slog.Default(), time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sweeper.Run(ctx) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop on cancel")
	}
}
