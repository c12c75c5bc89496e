package emergency

import (
	"context"
	"log/slog"

	"veil/internal/events"
	"veil/internal/platform/metrics"
	"veil/internal/reveal"
	id "veil/pkg/domain"
)

// Revealer is the slice of the reveal protocol the controller needs: the
// ladder-bypassing emergency path.
type Revealer interface {
	EmergencyReveal(ctx context.Context, req reveal.Request) (reveal.Outcome, error)
}

// Controller executes authorized overrides. The coordination engine guards
// state (no overrides after a terminal state) and persists the resulting
// level; the controller owns policy, disclosure, audit, and the mandatory
// post-hoc user notification.
type Controller struct {
	revealer  Revealer
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func NewController(revealer Revealer, publisher events.Publisher, m *metrics.Metrics, logger *slog.Logger) *Controller {
	return &Controller{revealer: revealer, publisher: publisher, metrics: m, logger: logger}
}

// Trigger applies the policy grant for emergencyType and returns the reveal
// outcome. Exactly one reveal event is appended per successful trigger, and
// the user is notified post-hoc via the event stream; an override is never
// silent.
func (c *Controller) Trigger(ctx context.Context, coordinationID id.CoordinationID, pseudonymID id.PseudonymID, current id.DisclosureLevel, emergencyType id.EmergencyType, statute string) (reveal.Outcome, error) {
	grant, err := GrantFor(emergencyType, statute)
	if err != nil {
		return reveal.Outcome{}, err
	}

	outcome, err := c.revealer.EmergencyReveal(ctx, reveal.Request{
		CoordinationID: coordinationID,
		PseudonymID:    pseudonymID,
		Current:        current,
		Target:         grant.Target,
		Justification: reveal.Justification{
			Kind:      reveal.JustificationEmergency,
			Condition: grant.Condition,
			Fields:    grant.Fields,
		},
	})
	if err != nil {
		return reveal.Outcome{}, err
	}

	c.metrics.EmergencyOverrides.WithLabelValues(emergencyType.String()).Inc()
	if err := c.publisher.Publish(ctx, events.Event{
		Kind:           events.KindEmergencyNotified,
		CoordinationID: coordinationID,
		EmergencyType:  emergencyType.String(),
	}); err != nil {
		c.logger.WarnContext(ctx, "emergency notification publish failed",
			"coordination_id", coordinationID.String(),
			"error", err,
		)
	}

	c.logger.WarnContext(ctx, "emergency override executed",
		"coordination_id", coordinationID.String(),
		"emergency_type", emergencyType.String(),
		"level_after", outcome.Level.String(),
	)
	return outcome, nil
}
