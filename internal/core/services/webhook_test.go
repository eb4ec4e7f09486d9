package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dust-tt/connectors-go/internal/adapters/driven/storage/memory"
	"github.com/dust-tt/connectors-go/internal/core/domain"
)

type webhookFixture struct {
	connectors *memory.ConnectorStore
	messages   *memory.BotMessageStore
	queue      *mockQueue
	router     *WebhookRouter
}

func newWebhookFixture(t *testing.T, state domain.ConnectorState, botEnabled bool) *webhookFixture {
	t.Helper()

	f := &webhookFixture{
		connectors: memory.NewConnectorStore(),
		messages:   memory.NewBotMessageStore(),
		queue:      &mockQueue{},
	}
	bot := NewBotService(
		f.connectors, f.messages,
		&mockProviderFactory{client: &mockProviderClient{}}, &mockAssistant{}, f.queue,
	)
	f.router = NewWebhookRouter(f.connectors, f.queue, bot)

	ctx := context.Background()
	require.NoError(t, f.connectors.Save(ctx, nil, domain.Connector{
		ID:       "c1",
		Provider: domain.ProviderSlack,
		State:    state,
	}))
	require.NoError(t, f.connectors.SaveConfiguration(ctx, nil, domain.SlackConfiguration{
		ConnectorID: "c1",
		TeamID:      "T1",
		BotEnabled:  botEnabled,
	}))
	return f
}

func TestRouteResourceChangeEnqueuesScopedSync(t *testing.T) {
	f := newWebhookFixture(t, domain.StateIncrementalSync, false)

	require.NoError(t, f.router.Route(context.Background(), domain.Event{
		Kind:       domain.EventResourceChanged,
		TeamID:     "T1",
		ResourceID: "C1",
	}))

	require.Len(t, f.queue.syncs, 1)
	assert.Equal(t, "c1", f.queue.syncs[0].connectorID)
	assert.Equal(t, []string{"C1"}, f.queue.syncs[0].scope)
}

func TestRouteUnknownTeamIsDropped(t *testing.T) {
	f := newWebhookFixture(t, domain.StateIncrementalSync, false)

	require.NoError(t, f.router.Route(context.Background(), domain.Event{
		Kind:       domain.EventResourceChanged,
		TeamID:     "T-OTHER",
		ResourceID: "C1",
	}))
	assert.Empty(t, f.queue.syncs)
}

func TestRoutePausedConnectorIgnoresTriggers(t *testing.T) {
	f := newWebhookFixture(t, domain.StatePaused, false)

	require.NoError(t, f.router.Route(context.Background(), domain.Event{
		Kind:       domain.EventResourceChanged,
		TeamID:     "T1",
		ResourceID: "C1",
	}))
	assert.Empty(t, f.queue.syncs)
}

func TestRouteUninstallMarksErroredAndTearsDown(t *testing.T) {
	f := newWebhookFixture(t, domain.StateIncrementalSync, false)

	ctx := context.Background()
	require.NoError(t, f.router.Route(ctx, domain.Event{
		Kind:   domain.EventUninstalled,
		TeamID: "T1",
	}))

	connector, err := f.connectors.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, domain.StateErrored, connector.State)
	assert.Equal(t, domain.ErrorTypeUninstalled, connector.ErrorType)
	assert.Equal(t, []string{"c1"}, f.queue.teardowns)
}

func TestRouteUninstallReachesPausedConnectors(t *testing.T) {
	f := newWebhookFixture(t, domain.StatePaused, false)

	ctx := context.Background()
	require.NoError(t, f.router.Route(ctx, domain.Event{
		Kind:   domain.EventUninstalled,
		TeamID: "T1",
	}))

	connector, err := f.connectors.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, domain.StateErrored, connector.State)
}

func TestRouteMessageWithBotDisabled(t *testing.T) {
	f := newWebhookFixture(t, domain.StateIncrementalSync, false)

	require.NoError(t, f.router.Route(context.Background(), domain.Event{
		Kind:       domain.EventMessage,
		TeamID:     "T1",
		ResourceID: "C1",
		MessageTS:  "1.000",
	}))
	assert.Empty(t, f.queue.replies)
}

func TestRouteMessageWithBotEnabled(t *testing.T) {
	f := newWebhookFixture(t, domain.StateIncrementalSync, true)

	require.NoError(t, f.router.Route(context.Background(), domain.Event{
		Kind:        domain.EventMessage,
		TeamID:      "T1",
		ResourceID:  "C1",
		MessageTS:   "1.000",
		MessageText: "<@UBOT> hello",
	}))
	assert.Len(t, f.queue.replies, 1)
}

func TestRouteFansOutToAllTeamConnectors(t *testing.T) {
	f := newWebhookFixture(t, domain.StateIncrementalSync, false)

	ctx := context.Background()
	require.NoError(t, f.connectors.Save(ctx, nil, domain.Connector{
		ID:       "c2",
		Provider: domain.ProviderSlack,
		State:    domain.StateIncrementalSync,
	}))
	require.NoError(t, f.connectors.SaveConfiguration(ctx, nil, domain.SlackConfiguration{
		ConnectorID: "c2",
		TeamID:      "T1",
	}))

	require.NoError(t, f.router.Route(ctx, domain.Event{
		Kind:       domain.EventResourceChanged,
		TeamID:     "T1",
		ResourceID: "C1",
	}))
	assert.Len(t, f.queue.syncs, 2)
}
