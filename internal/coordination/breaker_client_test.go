package coordination

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veil/internal/provider"
	id "veil/pkg/domain"
	dErrors "veil/pkg/domain-errors"
	"veil/pkg/platform/circuit"
)

type scriptedClient struct {
	errs       []error
	dispatches int
}

func (c *scriptedClient) Dispatch(_ context.Context, _ provider.Profile, _ id.CoordinationID, _ id.ServiceKind, _ string, _ id.Urgency) error {
	c.dispatches++
	if len(c.errs) == 0 {
		return nil
	}
	err := c.errs[0]
	c.errs = c.errs[1:]
	return err
}

func (c *scriptedClient) AcknowledgeCancel(context.Context, id.ProviderID, id.CoordinationID) error {
	return nil
}

func (c *scriptedClient) DeliverDisclosure(context.Context, id.ProviderID, id.CoordinationID, id.DisclosureLevel, map[id.IdentityField]string) error {
	return nil
}

func breakerProfile(t *testing.T) provider.Profile {
	t.Helper()
	pid, err := id.ParseProviderID("7f1c8a52-93d4-4a1e-9c3b-0d2f6e8b4a10")
	require.NoError(t, err)
	return provider.Profile{ID: pid, Name: "courier-nine"}
}

func TestBreakerClientDispatch_PassesThroughWhileClosed(t *testing.T) {
	inner := &scriptedClient{errs: []error{errors.New("offer refused")}}
	client := NewBreakerClient(inner, slog.New(slog.NewTextHandler(io.Discard, nil)),
		circuit.WithFailureThreshold(3))

	err := client.Dispatch(context.Background(), breakerProfile(t), id.NewCoordinationID(), id.ServiceConcierge, "logistics", id.UrgencyStandard)

	require.Error(t, err)
	assert.False(t, dErrors.Is(err, dErrors.CodeProviderUnavailable),
		"a single refusal is a transient failure, not an outage")

	err = client.Dispatch(context.Background(), breakerProfile(t), id.NewCoordinationID(), id.ServiceConcierge, "logistics", id.UrgencyStandard)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.dispatches)
}

func TestBreakerClientDispatch_OpensAfterRepeatedFailures(t *testing.T) {
	refused := errors.New("offer refused")
	inner := &scriptedClient{errs: []error{refused, refused, refused}}
	client := NewBreakerClient(inner, slog.New(slog.NewTextHandler(io.Discard, nil)),
		circuit.WithFailureThreshold(2))

	p := breakerProfile(t)
	err := client.Dispatch(context.Background(), p, id.NewCoordinationID(), id.ServiceConcierge, "logistics", id.UrgencyStandard)
	require.Error(t, err)
	assert.False(t, dErrors.Is(err, dErrors.CodeProviderUnavailable))

	err = client.Dispatch(context.Background(), p, id.NewCoordinationID(), id.ServiceConcierge, "logistics", id.UrgencyStandard)
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeProviderUnavailable),
		"hitting the threshold reports the provider as unavailable")
	assert.ErrorIs(t, err, refused, "the probe's cause stays reachable")
}

func TestBreakerClientDispatch_ClosesAfterRecovery(t *testing.T) {
	refused := errors.New("offer refused")
	inner := &scriptedClient{errs: []error{refused}}
	client := NewBreakerClient(inner, slog.New(slog.NewTextHandler(io.Discard, nil)),
		circuit.WithFailureThreshold(1), circuit.WithSuccessThreshold(2))

	p := breakerProfile(t)
	require.Error(t, client.Dispatch(context.Background(), p, id.NewCoordinationID(), id.ServiceConcierge, "logistics", id.UrgencyStandard))

	// Two clean probes close the circuit again.
	require.NoError(t, client.Dispatch(context.Background(), p, id.NewCoordinationID(), id.ServiceConcierge, "logistics", id.UrgencyStandard))
	require.NoError(t, client.Dispatch(context.Background(), p, id.NewCoordinationID(), id.ServiceConcierge, "logistics", id.UrgencyStandard))
	assert.Equal(t, 3, inner.dispatches)
}

func TestBreakerClientTracksProvidersIndependently(t *testing.T) {
	refused := errors.New("offer refused")
	inner := &scriptedClient{errs: []error{refused}}
	client := NewBreakerClient(inner, slog.New(slog.NewTextHandler(io.Discard, nil)),
		circuit.WithFailureThreshold(1))

	first := breakerProfile(t)
	require.Error(t, client.Dispatch(context.Background(), first, id.NewCoordinationID(), id.ServiceConcierge, "logistics", id.UrgencyStandard))

	otherID, err := id.ParseProviderID("2b9e4d71-6c30-48f5-8a27-51c0d3b9ef64")
	require.NoError(t, err)
	other := provider.Profile{ID: otherID, Name: "courier-ten"}

	require.NoError(t, client.Dispatch(context.Background(), other, id.NewCoordinationID(), id.ServiceConcierge, "logistics", id.UrgencyStandard),
		"one provider's open circuit must not punish another")
}
