// Package cleanup finalizes terminal coordinations: the aggregate is
// scrubbed into its audit shell exactly once, and void-tier coordinations
// additionally erase the pseudonym mapping itself. Reveal events are owned
// by the reveal log and deliberately survive everything here.
package cleanup

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"veil/internal/coordination"
	id "veil/pkg/domain"
	"veil/pkg/platform/sentinel"
)

// Records is the slice of the coordination store cleanup needs. The
// coordination store satisfies it structurally.
type Records interface {
	Get(ctx context.Context, coordinationID id.CoordinationID) (coordination.Coordination, error)
	Anonymize(ctx context.Context, coordinationID id.CoordinationID, erasure string, at time.Time) (id.PseudonymID, id.Tier, error)
	ListUnfinalizedTerminal(ctx context.Context, limit int) ([]coordination.Coordination, error)
}

// PseudonymScrubber erases a pseudonym mapping. The identity service
// satisfies it structurally.
type PseudonymScrubber interface {
	Scrub(ctx context.Context, pseudonymID id.PseudonymID) error
}

// Finalizer runs the anonymity cleanup for one coordination. Safe to call
// any number of times: the store's finalized marker makes the scrub
// exactly-once, repeat calls are no-ops.
type Finalizer struct {
	records  Records
	scrubber PseudonymScrubber
	logger   *slog.Logger
	now      func() time.Time
}

func NewFinalizer(records Records, scrubber PseudonymScrubber, logger *slog.Logger) *Finalizer {
	return &Finalizer{records: records, scrubber: scrubber, logger: logger, now: time.Now}
}

// Finalize scrubs a terminal coordination. Transcript and pseudonym link go;
// state transitions and disclosure history stay as the audit shell. Void
// tier takes the full-erasure path: the erasure marker is upgraded and the
// pseudonym map entry is deleted outright.
func (f *Finalizer) Finalize(ctx context.Context, coordinationID id.CoordinationID) error {
	c, err := f.records.Get(ctx, coordinationID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if c.FinalizedAt != nil {
		return nil
	}

	// Tier is immutable on the request, so choosing the erasure class from
	// this read does not race with the atomic scrub below.
	erasure := coordination.ErasureAnonymized
	if c.Request.Tier == id.TierVoid {
		erasure = coordination.ErasureQuantumErased
	}

	pseudonym, tier, err := f.records.Anonymize(ctx, coordinationID, erasure, f.now())
	if errors.Is(err, sentinel.ErrAlreadyUsed) {
		// Lost the race with another finalizer. Done either way.
		return nil
	}
	if err != nil {
		return err
	}

	if tier == id.TierVoid && !pseudonym.IsNil() {
		if err := f.scrubber.Scrub(ctx, pseudonym); err != nil {
			return err
		}
	}

	f.logger.InfoContext(ctx, "coordination finalized",
		"coordination_id", coordinationID.String(),
		"erasure", erasure,
	)
	return nil
}

// Sweeper periodically finalizes terminal coordinations the inline hook
// missed, e.g. after a crash between the terminal transition and the
// finalize call.
type Sweeper struct {
	records   Records
	finalizer *Finalizer
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
}

func NewSweeper(records Records, finalizer *Finalizer, logger *slog.Logger, interval time.Duration) *Sweeper {
	return &Sweeper{
		records:   records,
		finalizer: finalizer,
		logger:    logger,
		interval:  interval,
		batchSize: 100,
	}
}

// Run sweeps until ctx is cancelled. Always returns ctx.Err(); individual
// sweep failures are logged and retried on the next tick.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.sweep(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.ErrorContext(ctx, "cleanup sweep failed", "error", err)
			}
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) error {
	pending, err := s.records.ListUnfinalizedTerminal(ctx, s.batchSize)
	if err != nil {
		return err
	}
	for _, c := range pending {
		if err := s.finalizer.Finalize(ctx, c.ID); err != nil {
			s.logger.ErrorContext(ctx, "finalize failed during sweep",
				"coordination_id", c.ID.String(),
				"error", err,
			)
		}
	}
	return nil
}
