package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dust-tt/connectors-go/internal/core/domain"
)

func TestResourceStoreUpsertIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewResourceStore()

	r := domain.Resource{
		ConnectorID: "c1",
		ExternalID:  "C1",
		Title:       "general",
		Type:        domain.ResourceChannel,
		Permission:  domain.PermissionRead,
	}
	require.NoError(t, store.Upsert(ctx, nil, r))

	// Replay with a new title: still one row, most recent values win.
	r.Title = "general-renamed"
	r.Permission = domain.PermissionReadWrite
	require.NoError(t, store.Upsert(ctx, nil, r))

	all, err := store.ListByConnector(ctx, "c1", "")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "general-renamed", all[0].Title)
	assert.Equal(t, domain.PermissionReadWrite, all[0].Permission)
	assert.False(t, all[0].CreatedAt.IsZero())
}

func TestResourceStorePermissionFilter(t *testing.T) {
	ctx := context.Background()
	store := NewResourceStore()

	for id, perm := range map[string]domain.Permission{
		"A": domain.PermissionRead,
		"B": domain.PermissionWrite,
		"C": domain.PermissionReadWrite,
		"D": domain.PermissionNone,
	} {
		require.NoError(t, store.Upsert(ctx, nil, domain.Resource{
			ConnectorID: "c1", ExternalID: id, Permission: perm,
		}))
	}

	ids := func(filter domain.Permission) []string {
		resources, err := store.ListByConnector(ctx, "c1", filter)
		require.NoError(t, err)
		var out []string
		for _, r := range resources {
			out = append(out, r.ExternalID)
		}
		return out
	}

	assert.ElementsMatch(t, []string{"A", "C"}, ids(domain.PermissionRead))
	assert.ElementsMatch(t, []string{"B", "C"}, ids(domain.PermissionWrite))
	assert.ElementsMatch(t, []string{"C"}, ids(domain.PermissionReadWrite))
	assert.ElementsMatch(t, []string{"D"}, ids(domain.PermissionNone))
	assert.ElementsMatch(t, []string{"A", "B", "C", "D"}, ids(""))
}

func TestResourceStoreDeleteCascadesToChildren(t *testing.T) {
	ctx := context.Background()
	store := NewResourceStore()

	require.NoError(t, store.Upsert(ctx, nil, domain.Resource{
		ConnectorID: "c1", ExternalID: "parent", Type: domain.ResourceFolder,
	}))
	require.NoError(t, store.Upsert(ctx, nil, domain.Resource{
		ConnectorID: "c1", ExternalID: "child", ParentExternalID: "parent",
	}))
	require.NoError(t, store.Upsert(ctx, nil, domain.Resource{
		ConnectorID: "c1", ExternalID: "grandchild", ParentExternalID: "child",
	}))
	require.NoError(t, store.Upsert(ctx, nil, domain.Resource{
		ConnectorID: "c1", ExternalID: "unrelated",
	}))

	require.NoError(t, store.Delete(ctx, nil, "c1", []string{"parent"}))

	all, err := store.ListByConnector(ctx, "c1", "")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "unrelated", all[0].ExternalID)
}

func TestResourceStoreSetPermission(t *testing.T) {
	ctx := context.Background()
	store := NewResourceStore()

	require.NoError(t, store.Upsert(ctx, nil, domain.Resource{
		ConnectorID: "c1", ExternalID: "C1", Permission: domain.PermissionNone,
	}))
	require.NoError(t, store.SetPermission(ctx, nil, "c1", "C1", domain.PermissionRead))

	r, err := store.Get(ctx, "c1", "C1")
	require.NoError(t, err)
	assert.Equal(t, domain.PermissionRead, r.Permission)

	err = store.SetPermission(ctx, nil, "c1", "missing", domain.PermissionRead)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestResourceStoreGetBatchSkipsMissing(t *testing.T) {
	ctx := context.Background()
	store := NewResourceStore()

	require.NoError(t, store.Upsert(ctx, nil, domain.Resource{ConnectorID: "c1", ExternalID: "C1"}))

	batch, err := store.GetBatch(ctx, "c1", []string{"C1", "C2"})
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, "C1", batch[0].ExternalID)
}

func TestResourceStoreDeleteAll(t *testing.T) {
	ctx := context.Background()
	store := NewResourceStore()

	require.NoError(t, store.Upsert(ctx, nil, domain.Resource{ConnectorID: "c1", ExternalID: "C1"}))
	require.NoError(t, store.Upsert(ctx, nil, domain.Resource{ConnectorID: "c2", ExternalID: "C1"}))
	require.NoError(t, store.DeleteAll(ctx, nil, "c1"))

	all, err := store.ListByConnector(ctx, "c1", "")
	require.NoError(t, err)
	assert.Empty(t, all)

	other, err := store.ListByConnector(ctx, "c2", "")
	require.NoError(t, err)
	assert.Len(t, other, 1)
}
