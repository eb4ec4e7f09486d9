package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dust-tt/connectors-go/internal/adapters/driven/storage/memory"
	"github.com/dust-tt/connectors-go/internal/core/domain"
	"github.com/dust-tt/connectors-go/internal/core/ports/driven"
)

type permFixture struct {
	connectors *memory.ConnectorStore
	resources  *memory.ResourceStore
	syncStore  *memory.SyncStateStore
	client     *mockProviderClient
	queue      *mockQueue
	service    *PermissionService
}

func newPermFixture(t *testing.T) *permFixture {
	t.Helper()

	f := &permFixture{
		connectors: memory.NewConnectorStore(),
		resources:  memory.NewResourceStore(),
		syncStore:  memory.NewSyncStateStore(),
		client: &mockProviderClient{
			resources: make(map[string]driven.ProviderResource),
		},
		queue: &mockQueue{},
	}
	f.service = NewPermissionService(
		f.connectors, f.resources, f.syncStore,
		&mockProviderFactory{client: f.client}, f.queue,
	)

	require.NoError(t, f.connectors.Save(context.Background(), nil, domain.Connector{
		ID:           "c1",
		Provider:     domain.ProviderSlack,
		WorkspaceID:  "w1",
		DataSourceID: "ds1",
		ConnectionID: "conn1",
		State:        domain.StateIncrementalSync,
	}))
	return f
}

func (f *permFixture) seed(t *testing.T, externalID string, perm domain.Permission) {
	t.Helper()
	require.NoError(t, f.resources.Upsert(context.Background(), nil, domain.Resource{
		ConnectorID: "c1",
		ExternalID:  externalID,
		Title:       externalID,
		Type:        domain.ResourceChannel,
		Permission:  perm,
	}))
}

func TestListPermissionsFilterUnions(t *testing.T) {
	f := newPermFixture(t)
	f.seed(t, "A", domain.PermissionRead)
	f.seed(t, "B", domain.PermissionWrite)
	f.seed(t, "C", domain.PermissionReadWrite)
	f.seed(t, "D", domain.PermissionNone)

	ctx := context.Background()

	titles := func(nodes []domain.ResourceNode) []string {
		var out []string
		for _, n := range nodes {
			out = append(out, n.Title)
		}
		return out
	}

	nodes, err := f.service.ListPermissions(ctx, "c1", "", domain.PermissionRead)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C"}, titles(nodes))

	nodes, err = f.service.ListPermissions(ctx, "c1", "", domain.PermissionWrite)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C"}, titles(nodes))

	nodes, err = f.service.ListPermissions(ctx, "c1", "", domain.PermissionReadWrite)
	require.NoError(t, err)
	assert.Equal(t, []string{"C"}, titles(nodes))

	nodes, err = f.service.ListPermissions(ctx, "c1", "", "")
	require.NoError(t, err)
	assert.Len(t, nodes, 4)
}

func TestSetPermissionsJoinsOnGainingRead(t *testing.T) {
	f := newPermFixture(t)
	f.seed(t, "C1", domain.PermissionNone)

	ctx := context.Background()
	require.NoError(t, f.service.SetPermissions(ctx, "c1", map[string]domain.Permission{
		"C1": domain.PermissionRead,
	}))

	assert.Equal(t, []string{"C1"}, f.client.joined)
	res, err := f.resources.Get(ctx, "c1", "C1")
	require.NoError(t, err)
	assert.Equal(t, domain.PermissionRead, res.Permission)

	// The newly readable channel gets a scoped sync.
	require.Len(t, f.queue.syncs, 1)
	assert.Equal(t, []string{"C1"}, f.queue.syncs[0].scope)
	assert.Empty(t, f.queue.gcs)
}

func TestSetPermissionsMarksGCOncePerBatch(t *testing.T) {
	f := newPermFixture(t)
	f.seed(t, "C1", domain.PermissionRead)
	f.seed(t, "C2", domain.PermissionReadWrite)

	ctx := context.Background()
	require.NoError(t, f.service.SetPermissions(ctx, "c1", map[string]domain.Permission{
		"C1": domain.PermissionNone,
		"C2": domain.PermissionNone,
	}))

	// Two revocations, one GC mark, one enqueue.
	state, err := f.syncStore.Get(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, state.GCRequired)
	assert.Equal(t, []string{"c1"}, f.queue.gcs)
}

func TestSetPermissionsIdempotent(t *testing.T) {
	f := newPermFixture(t)
	f.seed(t, "C1", domain.PermissionNone)

	batch := map[string]domain.Permission{"C1": domain.PermissionRead}
	ctx := context.Background()
	require.NoError(t, f.service.SetPermissions(ctx, "c1", batch))
	require.NoError(t, f.service.SetPermissions(ctx, "c1", batch))

	// The second application changes nothing: no second join, no sync.
	assert.Equal(t, []string{"C1"}, f.client.joined)
	assert.Len(t, f.queue.syncs, 1)
}

func TestSetPermissionsJoinFailureAbortsBatch(t *testing.T) {
	f := newPermFixture(t)
	f.seed(t, "C1", domain.PermissionNone)
	f.seed(t, "C2", domain.PermissionRead)
	f.client.joinErr = assert.AnError

	ctx := context.Background()
	err := f.service.SetPermissions(ctx, "c1", map[string]domain.Permission{
		"C1": domain.PermissionRead,
		"C2": domain.PermissionNone,
	})
	assert.Error(t, err)

	// C1 sorts first, so its failed join aborts before C2 is touched.
	res, err := f.resources.Get(ctx, "c1", "C1")
	require.NoError(t, err)
	assert.Equal(t, domain.PermissionNone, res.Permission)
	res, err = f.resources.Get(ctx, "c1", "C2")
	require.NoError(t, err)
	assert.Equal(t, domain.PermissionRead, res.Permission)
	assert.Empty(t, f.queue.gcs)
}

func TestSetPermissionsSkipsUnknownIDs(t *testing.T) {
	f := newPermFixture(t)
	f.seed(t, "C1", domain.PermissionNone)

	ctx := context.Background()
	require.NoError(t, f.service.SetPermissions(ctx, "c1", map[string]domain.Permission{
		"C1":      domain.PermissionRead,
		"UNKNOWN": domain.PermissionRead,
	}))

	// The known resource is still applied.
	res, err := f.resources.Get(ctx, "c1", "C1")
	require.NoError(t, err)
	assert.Equal(t, domain.PermissionRead, res.Permission)
	assert.Equal(t, []string{"C1"}, f.client.joined)
}

func TestSetPermissionsRejectsInvalidPermission(t *testing.T) {
	f := newPermFixture(t)
	err := f.service.SetPermissions(context.Background(), "c1", map[string]domain.Permission{
		"C1": "admin",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestResourceTitles(t *testing.T) {
	f := newPermFixture(t)
	f.seed(t, "C1", domain.PermissionRead)
	f.seed(t, "C2", domain.PermissionRead)

	titles, err := f.service.ResourceTitles(context.Background(), "c1",
		[]string{"slack-channel-C1", "slack-channel-C2", "slack-channel-MISSING"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"slack-channel-C1": "C1",
		"slack-channel-C2": "C2",
	}, titles)
}

func TestResourceTitlesRejectsMalformedID(t *testing.T) {
	f := newPermFixture(t)
	_, err := f.service.ResourceTitles(context.Background(), "c1", []string{"bogus-id"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestResourceParents(t *testing.T) {
	f := newPermFixture(t)

	ctx := context.Background()
	require.NoError(t, f.resources.Upsert(ctx, nil, domain.Resource{
		ConnectorID: "c1", ExternalID: "root", Type: domain.ResourceFolder, Permission: domain.PermissionRead,
	}))
	require.NoError(t, f.resources.Upsert(ctx, nil, domain.Resource{
		ConnectorID: "c1", ExternalID: "mid", Type: domain.ResourceFolder,
		ParentExternalID: "root", Permission: domain.PermissionRead,
	}))
	require.NoError(t, f.resources.Upsert(ctx, nil, domain.Resource{
		ConnectorID: "c1", ExternalID: "leaf", Type: domain.ResourceFile,
		ParentExternalID: "mid", Permission: domain.PermissionRead,
	}))

	parents, err := f.service.ResourceParents(ctx, "c1", []string{"slack-channel-leaf", "slack-channel-root"})
	require.NoError(t, err)
	assert.Equal(t, []string{"slack-channel-mid", "slack-channel-root"}, parents["slack-channel-leaf"])
	assert.Empty(t, parents["slack-channel-root"])
}
