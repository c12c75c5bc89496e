package coordination

import (
	"context"
	"log/slog"
	"sync"

	"veil/internal/provider"
	id "veil/pkg/domain"
	dErrors "veil/pkg/domain-errors"
	"veil/pkg/platform/circuit"
)

// BreakerClient wraps a ProviderClient with a per-provider circuit breaker
// on the dispatch path. Every offer still probes the provider, but once the
// circuit opens the failure is reported as provider_unavailable so the
// engine moves straight to the next ranked candidate instead of treating it
// as a transient refusal. Cancel acknowledgements and disclosure delivery
// pass through: both target a provider that already accepted the work.
type BreakerClient struct {
	inner  ProviderClient
	logger *slog.Logger

	mu       sync.Mutex
	breakers map[id.ProviderID]*circuit.Breaker
	opts     []circuit.Option
}

func NewBreakerClient(inner ProviderClient, logger *slog.Logger, opts ...circuit.Option) *BreakerClient {
	return &BreakerClient{
		inner:    inner,
		logger:   logger,
		breakers: make(map[id.ProviderID]*circuit.Breaker),
		opts:     opts,
	}
}

func (c *BreakerClient) breaker(providerID id.ProviderID) *circuit.Breaker {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.breakers[providerID]
	if !ok {
		b = circuit.New(providerID.String(), c.opts...)
		c.breakers[providerID] = b
	}
	return b
}

func (c *BreakerClient) Dispatch(ctx context.Context, p provider.Profile, coordinationID id.CoordinationID, kind id.ServiceKind, category string, urgency id.Urgency) error {
	b := c.breaker(p.ID)

	err := c.inner.Dispatch(ctx, p, coordinationID, kind, category, urgency)
	if err != nil {
		open, change := b.RecordFailure()
		if change.Opened {
			c.logger.WarnContext(ctx, "provider circuit opened",
				slog.String("provider_id", p.ID.String()),
			)
		}
		if open {
			return dErrors.Wrap(dErrors.CodeProviderUnavailable, "provider circuit open", err)
		}
		return err
	}
	if _, change := b.RecordSuccess(); change.Closed {
		c.logger.InfoContext(ctx, "provider circuit closed",
			slog.String("provider_id", p.ID.String()),
		)
	}
	return nil
}

func (c *BreakerClient) AcknowledgeCancel(ctx context.Context, providerID id.ProviderID, coordinationID id.CoordinationID) error {
	return c.inner.AcknowledgeCancel(ctx, providerID, coordinationID)
}

func (c *BreakerClient) DeliverDisclosure(ctx context.Context, providerID id.ProviderID, coordinationID id.CoordinationID, level id.DisclosureLevel, fields map[id.IdentityField]string) error {
	return c.inner.DeliverDisclosure(ctx, providerID, coordinationID, level, fields)
}
