package proof

import (
	"context"
	"time"
)

// ReplayStore is the consumed-proof cache. Consume is first-writer-wins
// under concurrent submission of the same fingerprint: exactly one caller
// observes true, every other caller observes false.
type ReplayStore interface {
	// Consume marks the fingerprint consumed for ttl. Returns true when
	// this call performed the consumption, false when the fingerprint was
	// already consumed within its validity window.
	Consume(ctx context.Context, fingerprint string, ttl time.Duration) (bool, error)
}
