package coordination

import (
	"context"
	"log/slog"
	"time"

	"veil/internal/provider"
	id "veil/pkg/domain"
)

//go:generate mockgen -source=dispatch.go -destination=mocks/coordination-mocks.go -package=mocks ProviderClient

// ProviderClient is the outbound channel to matched providers. Dispatch and
// cancellation acknowledgements are synchronous within the deadline the
// engine derives from urgency; disclosure delivery is the only path that
// ever carries resolved identity fields out of the system.
type ProviderClient interface {
	// Dispatch offers the coordination to the provider. A nil error means
	// the provider accepted and execution begins.
	Dispatch(ctx context.Context, p provider.Profile, coordinationID id.CoordinationID, kind id.ServiceKind, category string, urgency id.Urgency) error

	// AcknowledgeCancel asks an executing provider to confirm a cancel.
	AcknowledgeCancel(ctx context.Context, providerID id.ProviderID, coordinationID id.CoordinationID) error

	// DeliverDisclosure hands identity fields to the provider's private
	// channel when an execution phase mandates them.
	DeliverDisclosure(ctx context.Context, providerID id.ProviderID, coordinationID id.CoordinationID, level id.DisclosureLevel, fields map[id.IdentityField]string) error
}

// LoggingProviderClient is the default out-of-process stand-in: it accepts
// every dispatch and logs disclosure deliveries without the field values.
// Real deployments supply a transport-backed implementation.
type LoggingProviderClient struct {
	logger *slog.Logger
}

func NewLoggingProviderClient(logger *slog.Logger) *LoggingProviderClient {
	return &LoggingProviderClient{logger: logger}
}

func (c *LoggingProviderClient) Dispatch(ctx context.Context, p provider.Profile, coordinationID id.CoordinationID, kind id.ServiceKind, category string, urgency id.Urgency) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	c.logger.InfoContext(ctx, "dispatched to provider",
		slog.String("provider_id", p.ID.String()),
		slog.String("coordination_id", coordinationID.String()),
		slog.String("kind", string(kind)),
		slog.String("category", category),
		slog.String("urgency", string(urgency)),
	)
	return nil
}

func (c *LoggingProviderClient) AcknowledgeCancel(ctx context.Context, providerID id.ProviderID, coordinationID id.CoordinationID) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	c.logger.InfoContext(ctx, "provider acknowledged cancel",
		slog.String("provider_id", providerID.String()),
		slog.String("coordination_id", coordinationID.String()),
	)
	return nil
}

func (c *LoggingProviderClient) DeliverDisclosure(ctx context.Context, providerID id.ProviderID, coordinationID id.CoordinationID, level id.DisclosureLevel, fields map[id.IdentityField]string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	// Field names only. Values never reach logs.
	names := make([]string, 0, len(fields))
	for f := range fields {
		names = append(names, string(f))
	}
	c.logger.InfoContext(ctx, "delivered disclosure to provider",
		slog.String("provider_id", providerID.String()),
		slog.String("coordination_id", coordinationID.String()),
		slog.String("level", string(level)),
		slog.Any("fields", names),
	)
	return nil
}

// dispatchTimeout picks the deadline class for an outbound dispatch.
func dispatchTimeout(urgency id.Urgency, standard, emergency time.Duration) time.Duration {
	if urgency == id.UrgencyLifeThreatening {
		return emergency
	}
	return standard
}
