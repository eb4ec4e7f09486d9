package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dust-tt/connectors-go/internal/core/domain"
	"github.com/dust-tt/connectors-go/internal/core/ports/driven"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func saveConnector(t *testing.T, store *Store, id, teamID string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.ConnectorStore().Save(ctx, nil, domain.Connector{
		ID:                id,
		Provider:          domain.ProviderSlack,
		WorkspaceID:       "w1",
		DataSourceID:      "ds-" + id,
		ConnectionID:      "conn-" + id,
		DefaultPermission: domain.PermissionReadWrite,
		State:             domain.StateCreated,
	}))
	require.NoError(t, store.ConnectorStore().SaveConfiguration(ctx, nil, domain.SlackConfiguration{
		ConnectorID: id,
		TeamID:      teamID,
		TeamName:    "Acme",
	}))
}

func TestConnectorStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	saveConnector(t, store, "c1", "T1")

	connector, err := store.ConnectorStore().Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, domain.ProviderSlack, connector.Provider)
	assert.Equal(t, domain.StateCreated, connector.State)
	assert.False(t, connector.CreatedAt.IsZero())
	assert.True(t, connector.LastSyncAt.IsZero())

	cfg, err := store.ConnectorStore().GetConfiguration(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "T1", cfg.TeamID)
	assert.False(t, cfg.BotEnabled)

	_, err = store.ConnectorStore().Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConnectorStoreListByTeam(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	saveConnector(t, store, "c1", "T1")
	saveConnector(t, store, "c2", "T1")
	saveConnector(t, store, "c3", "T2")

	ids, err := store.ConnectorStore().ListByTeam(ctx, "T1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"c1", "c2"}, ids)
}

func TestResourceStoreUpsertIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	saveConnector(t, store, "c1", "T1")

	r := domain.Resource{
		ConnectorID: "c1",
		ExternalID:  "C1",
		Title:       "general",
		Type:        domain.ResourceChannel,
		Permission:  domain.PermissionRead,
	}
	require.NoError(t, store.ResourceStore().Upsert(ctx, nil, r))
	r.Title = "general-renamed"
	require.NoError(t, store.ResourceStore().Upsert(ctx, nil, r))

	all, err := store.ResourceStore().ListByConnector(ctx, "c1", "")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "general-renamed", all[0].Title)
}

func TestResourceStorePermissionFilter(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	saveConnector(t, store, "c1", "T1")

	for id, perm := range map[string]domain.Permission{
		"A": domain.PermissionRead,
		"B": domain.PermissionWrite,
		"C": domain.PermissionReadWrite,
		"D": domain.PermissionNone,
	} {
		require.NoError(t, store.ResourceStore().Upsert(ctx, nil, domain.Resource{
			ConnectorID: "c1", ExternalID: id, Type: domain.ResourceChannel, Permission: perm,
		}))
	}

	readable, err := store.ResourceStore().ListByConnector(ctx, "c1", domain.PermissionRead)
	require.NoError(t, err)
	require.Len(t, readable, 2)
	assert.Equal(t, "A", readable[0].ExternalID)
	assert.Equal(t, "C", readable[1].ExternalID)
}

func TestResourceStoreDeleteCascadesToChildren(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	saveConnector(t, store, "c1", "T1")

	rs := store.ResourceStore()
	require.NoError(t, rs.Upsert(ctx, nil, domain.Resource{
		ConnectorID: "c1", ExternalID: "parent", Type: domain.ResourceFolder, Permission: domain.PermissionRead,
	}))
	require.NoError(t, rs.Upsert(ctx, nil, domain.Resource{
		ConnectorID: "c1", ExternalID: "child", ParentExternalID: "parent",
		Type: domain.ResourceFile, Permission: domain.PermissionRead,
	}))
	require.NoError(t, rs.Upsert(ctx, nil, domain.Resource{
		ConnectorID: "c1", ExternalID: "other", Type: domain.ResourceChannel, Permission: domain.PermissionRead,
	}))

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, rs.Delete(ctx, tx, "c1", []string{"parent"}))
	require.NoError(t, tx.Commit())

	all, err := rs.ListByConnector(ctx, "c1", "")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "other", all[0].ExternalID)
}

func TestTransactionRollbackLeavesRows(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	saveConnector(t, store, "c1", "T1")

	require.NoError(t, store.ResourceStore().Upsert(ctx, nil, domain.Resource{
		ConnectorID: "c1", ExternalID: "C1", Type: domain.ResourceChannel, Permission: domain.PermissionRead,
	}))

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, store.ResourceStore().DeleteAll(ctx, tx, "c1"))
	require.NoError(t, tx.Rollback())

	all, err := store.ResourceStore().ListByConnector(ctx, "c1", "")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSyncStateRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	saveConnector(t, store, "c1", "T1")

	state := domain.SyncState{
		ConnectorID:    "c1",
		Cursor:         "abc",
		LastSync:       time.Now().UTC().Truncate(time.Second),
		CrawlStartedAt: time.Now().UTC().Add(-time.Hour).Truncate(time.Second),
		GCRequired:     true,
	}
	require.NoError(t, store.SyncStateStore().Save(ctx, state))

	got, err := store.SyncStateStore().Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "abc", got.Cursor)
	assert.True(t, got.GCRequired)
	assert.Equal(t, state.CrawlStartedAt, got.CrawlStartedAt.UTC())

	_, err = store.SyncStateStore().Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBotMessageDedupKey(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	msg := domain.BotMessage{
		ID:          "m1",
		ConnectorID: "c1",
		ChannelID:   "C1",
		MessageTS:   "111.222",
	}
	require.NoError(t, store.BotMessageStore().Save(ctx, msg))

	got, err := store.BotMessageStore().GetByMessage(ctx, "c1", "C1", "111.222")
	require.NoError(t, err)
	assert.Equal(t, "m1", got.ID)

	_, err = store.BotMessageStore().GetByMessage(ctx, "c1", "C1", "999.000")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSchedulerStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	task, err := store.SchedulerStore().GetTask(ctx, "sync")
	require.NoError(t, err)
	assert.Nil(t, task)

	next := time.Now().UTC().Add(time.Hour).Truncate(time.Second)
	require.NoError(t, store.SchedulerStore().SaveTask(ctx, &driven.ScheduledTask{
		ID:       "sync",
		Name:     "Periodic Sync",
		Interval: 10 * time.Minute,
		Enabled:  true,
		NextRun:  next,
	}))

	task, err = store.SchedulerStore().GetTask(ctx, "sync")
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, 10*time.Minute, task.Interval)
	assert.True(t, task.Enabled)
}
