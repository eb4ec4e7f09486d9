package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dust-tt/connectors-go/internal/core/domain"
	"github.com/dust-tt/connectors-go/internal/core/ports/driven"
	"github.com/dust-tt/connectors-go/internal/core/ports/driving"
	"github.com/dust-tt/connectors-go/internal/logger"
)

// contentFetchParallelism bounds concurrent content fetches per sync run.
const contentFetchParallelism = 8

// Ensure SyncOrchestrator implements the interface.
var _ driving.SyncOrchestrator = (*SyncOrchestrator)(nil)

// SyncOrchestrator coordinates resource synchronisation between the provider
// and the mirror store, and ingestion into the search index.
type SyncOrchestrator struct {
	connectors driven.ConnectorStore
	resources  driven.ResourceStore
	syncStore  driven.SyncStateStore
	factory    driven.ProviderFactory
	index      driven.SearchIndex
	queue      driven.WorkflowQueue

	// Status tracking and single-flight guard
	mu          sync.Mutex
	activeSyncs map[string]*driving.SyncStatus
}

// NewSyncOrchestrator creates a sync orchestrator.
func NewSyncOrchestrator(
	connectors driven.ConnectorStore,
	resources driven.ResourceStore,
	syncStore driven.SyncStateStore,
	factory driven.ProviderFactory,
	index driven.SearchIndex,
	queue driven.WorkflowQueue,
) *SyncOrchestrator {
	return &SyncOrchestrator{
		connectors:  connectors,
		resources:   resources,
		syncStore:   syncStore,
		factory:     factory,
		index:       index,
		queue:       queue,
		activeSyncs: make(map[string]*driving.SyncStatus),
	}
}

// Trigger enqueues a sync run for the connector.
func (o *SyncOrchestrator) Trigger(ctx context.Context, connectorID string, scope []string) error {
	connector, err := o.connectors.Get(ctx, connectorID)
	if err != nil {
		return fmt.Errorf("get connector: %w", err)
	}
	if err := stateError(connector.State); err != nil {
		return err
	}
	return o.queue.EnqueueSync(ctx, connectorID, scope)
}

// RunSync executes one sync run. Single-flight per connector.
func (o *SyncOrchestrator) RunSync(ctx context.Context, connectorID string, scope []string) error {
	status, ok := o.acquire(connectorID)
	if !ok {
		return fmt.Errorf("connector %s: %w", connectorID, domain.ErrSyncInProgress)
	}
	defer o.release(connectorID)

	connector, err := o.connectors.Get(ctx, connectorID)
	if err != nil {
		return fmt.Errorf("get connector: %w", err)
	}
	if err := stateError(connector.State); err != nil {
		return err
	}

	state, err := o.syncStore.Get(ctx, connectorID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("get sync state: %w", err)
	}
	if state == nil {
		state = &domain.SyncState{ConnectorID: connectorID}
	}

	client, err := o.factory.Client(ctx, connector)
	if err != nil {
		return o.failOnAuth(ctx, connector, fmt.Errorf("create provider client: %w", err))
	}

	// A fresh connector enters full_sync before the first crawl.
	if connector.State == domain.StateCreated {
		if err := o.transition(ctx, connector, domain.StateFullSync); err != nil {
			return err
		}
	}

	logger.Info("Starting sync for connector %s (scope: %d resources)", connectorID, len(scope))

	if len(scope) > 0 && connector.State == domain.StateIncrementalSync {
		err = o.scopedSync(ctx, connector, client, state, scope, status)
	} else {
		err = o.fullSync(ctx, connector, client, state, status)
	}
	if err != nil {
		return o.failOnAuth(ctx, connector, err)
	}

	state.LastSync = time.Now()
	if err := o.syncStore.Save(ctx, *state); err != nil {
		return fmt.Errorf("save sync state: %w", err)
	}

	connector.LastSyncAt = state.LastSync
	if connector.State == domain.StateFullSync {
		connector.State = domain.StateIncrementalSync
	}
	connector.UpdatedAt = time.Now()
	if err := o.connectors.Save(ctx, nil, *connector); err != nil {
		return fmt.Errorf("save connector: %w", err)
	}

	logger.Info("Sync complete for connector %s: %d resources, %d errors",
		connectorID, status.ResourcesProcessed, status.ErrorCount)
	return nil
}

// fullSync crawls every provider resource page by page. The cursor is saved
// after each completed page, so an interrupted run resumes where it stopped
// and replayed pages converge through idempotent upserts. A completed crawl
// purges the rows it never touched: their external resources are gone.
func (o *SyncOrchestrator) fullSync(
	ctx context.Context,
	connector *domain.Connector,
	client driven.ProviderClient,
	state *domain.SyncState,
	status *driving.SyncStatus,
) error {
	// A resumed crawl keeps the start stamp of the run it continues, so
	// rows from its earlier pages are not mistaken for vanished ones.
	if state.Cursor == "" {
		state.CrawlStartedAt = time.Now()
	}

	for {
		page, err := client.ListResources(ctx, state.Cursor)
		if err != nil {
			return fmt.Errorf("list resources: %w", err)
		}

		if err := o.processPage(ctx, connector, client, state, page.Resources, 0, status); err != nil {
			return err
		}

		state.Cursor = page.NextCursor
		if err := o.syncStore.Save(ctx, *state); err != nil {
			return fmt.Errorf("checkpoint cursor: %w", err)
		}

		if page.NextCursor == "" {
			return o.purgeVanished(ctx, connector, state, status)
		}
	}
}

// purgeVanished removes mirror rows the completed crawl never saw, index
// entries first.
func (o *SyncOrchestrator) purgeVanished(
	ctx context.Context,
	connector *domain.Connector,
	state *domain.SyncState,
	status *driving.SyncStatus,
) error {
	if state.CrawlStartedAt.IsZero() {
		return nil
	}

	all, err := o.resources.ListByConnector(ctx, connector.ID, "")
	if err != nil {
		return fmt.Errorf("list mirrored resources: %w", err)
	}
	for _, res := range all {
		if !res.LastSeenAt.Before(state.CrawlStartedAt) {
			continue
		}
		if err := o.purgeResource(ctx, connector, res.ExternalID); err != nil {
			return err
		}
		status.ResourcesProcessed++
	}
	return nil
}

// scopedSync refreshes only the resources named by the trigger. Resources
// the provider no longer knows are removed from the index first, then from
// the mirror.
func (o *SyncOrchestrator) scopedSync(
	ctx context.Context,
	connector *domain.Connector,
	client driven.ProviderClient,
	state *domain.SyncState,
	scope []string,
	status *driving.SyncStatus,
) error {
	since := state.LastSync.Unix()
	if state.LastSync.IsZero() {
		since = 0
	}

	var page []driven.ProviderResource
	for _, externalID := range scope {
		res, err := client.GetResource(ctx, externalID)
		if errors.Is(err, domain.ErrNotFound) {
			if err := o.purgeResource(ctx, connector, externalID); err != nil {
				return err
			}
			status.ResourcesProcessed++
			continue
		}
		if err != nil {
			return fmt.Errorf("get resource %s: %w", externalID, err)
		}
		page = append(page, *res)
	}

	return o.processPage(ctx, connector, client, state, page, since, status)
}

// processPage reconciles one batch of provider resources with the mirror and
// ingests readable content. The default permission applies only on first
// discovery of a resource the bot is a member of; later passes never
// overwrite an operator's choice, except that losing membership revokes read
// access and marks the connector for garbage collection.
func (o *SyncOrchestrator) processPage(
	ctx context.Context,
	connector *domain.Connector,
	client driven.ProviderClient,
	state *domain.SyncState,
	resources []driven.ProviderResource,
	since int64,
	status *driving.SyncStatus,
) error {
	if len(resources) == 0 {
		return nil
	}

	externalIDs := make([]string, 0, len(resources))
	for _, res := range resources {
		externalIDs = append(externalIDs, res.ExternalID)
	}
	existing, err := o.resources.GetBatch(ctx, connector.ID, externalIDs)
	if err != nil {
		return fmt.Errorf("get mirrored resources: %w", err)
	}
	known := make(map[string]domain.Resource, len(existing))
	for _, res := range existing {
		known[res.ExternalID] = res
	}

	now := time.Now()
	var ingest []domain.Resource
	gcNeeded := false
	for _, pr := range resources {
		row, seen := known[pr.ExternalID]
		switch {
		case !seen:
			perm := connector.DefaultPermission
			if !pr.IsMember {
				// Nothing to read until the bot joins.
				perm = domain.PermissionNone
			}
			row = domain.Resource{
				ConnectorID: connector.ID,
				ExternalID:  pr.ExternalID,
				Permission:  perm,
				CreatedAt:   now,
			}
		case !pr.IsMember && row.Permission.CanRead():
			// The bot was removed provider-side. Revoke; GC takes the
			// indexed content out.
			row.Permission = domain.PermissionNone
			gcNeeded = true
		}
		row.Title = pr.Title
		row.Type = pr.Type
		row.ParentExternalID = pr.ParentExternalID
		row.SourceURL = pr.SourceURL
		row.UpdatedAt = now
		row.LastSeenAt = now

		if err := o.resources.Upsert(ctx, nil, row); err != nil {
			return fmt.Errorf("upsert resource %s: %w", pr.ExternalID, err)
		}
		status.ResourcesProcessed++

		if !row.Permission.CanRead() {
			continue
		}
		if pr.Archived {
			// Archived resources keep their mirror row but leave the
			// index; unarchiving re-ingests on a later pass.
			documentID := row.InternalID()
			if err := o.index.DeleteDocument(ctx, connector.DataSourceID, documentID); err != nil {
				logger.Warn("Failed to remove archived %s from index: %v", documentID, err)
				status.ErrorCount++
			}
			continue
		}
		ingest = append(ingest, row)
	}

	if gcNeeded {
		state.GCRequired = true
		if err := o.queue.EnqueueGC(ctx, connector.ID); err != nil {
			return fmt.Errorf("enqueue gc: %w", err)
		}
	}

	return o.ingestContent(ctx, connector, client, ingest, since, status)
}

// ingestContent fetches and indexes resource content with bounded
// parallelism. Per-resource failures count as errors but do not abort the
// run; the next pass retries them.
func (o *SyncOrchestrator) ingestContent(
	ctx context.Context,
	connector *domain.Connector,
	client driven.ProviderClient,
	resources []domain.Resource,
	since int64,
	status *driving.SyncStatus,
) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(contentFetchParallelism)

	var mu sync.Mutex
	for _, res := range resources {
		res := res
		g.Go(func() error {
			content, err := client.FetchContent(gctx, res.ExternalID, since)
			if err != nil {
				if errors.Is(err, domain.ErrAuthExpired) {
					return err
				}
				logger.Warn("Failed to fetch content for %s: %v", res.ExternalID, err)
				mu.Lock()
				status.ErrorCount++
				mu.Unlock()
				return nil
			}

			doc := driven.IndexDocument{
				DocumentID:  res.InternalID(),
				Title:       content.Title,
				Body:        content.Body,
				SourceURL:   content.SourceURL,
				TimestampMs: time.Now().UnixMilli(),
			}
			if err := o.index.UpsertDocument(gctx, connector.DataSourceID, doc); err != nil {
				logger.Warn("Failed to index %s: %v", res.InternalID(), err)
				mu.Lock()
				status.ErrorCount++
				mu.Unlock()
			}
			return nil
		})
	}

	return g.Wait()
}

// purgeResource removes one resource from the index and then the mirror.
// The mirror row stays put if the index deletion is not confirmed.
func (o *SyncOrchestrator) purgeResource(ctx context.Context, connector *domain.Connector, externalID string) error {
	documentID := domain.InternalIDPrefix + externalID
	if err := o.index.DeleteDocument(ctx, connector.DataSourceID, documentID); err != nil {
		return fmt.Errorf("delete document %s: %w", documentID, err)
	}
	if err := o.resources.Delete(ctx, nil, connector.ID, []string{externalID}); err != nil {
		return fmt.Errorf("delete mirrored resource %s: %w", externalID, err)
	}
	return nil
}

// RunGC purges index and mirror entries for permission=none resources.
func (o *SyncOrchestrator) RunGC(ctx context.Context, connectorID string) error {
	connector, err := o.connectors.Get(ctx, connectorID)
	if err != nil {
		return fmt.Errorf("get connector: %w", err)
	}

	revoked, err := o.resources.ListByConnector(ctx, connectorID, domain.PermissionNone)
	if err != nil {
		return fmt.Errorf("list revoked resources: %w", err)
	}

	var errs []error
	for _, res := range revoked {
		if err := o.purgeResource(ctx, connector, res.ExternalID); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("gc for connector %s: %w", connectorID, errors.Join(errs...))
	}

	state, err := o.syncStore.Get(ctx, connectorID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("get sync state: %w", err)
	}
	if state.GCRequired {
		state.GCRequired = false
		if err := o.syncStore.Save(ctx, *state); err != nil {
			return fmt.Errorf("save sync state: %w", err)
		}
	}

	logger.Info("GC complete for connector %s: %d resources purged", connectorID, len(revoked))
	return nil
}

// Status reports sync activity for a connector.
func (o *SyncOrchestrator) Status(_ context.Context, connectorID string) (*driving.SyncStatus, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if status, ok := o.activeSyncs[connectorID]; ok {
		// Return a copy to avoid race conditions
		return &driving.SyncStatus{
			ConnectorID:        status.ConnectorID,
			Running:            status.Running,
			ResourcesProcessed: status.ResourcesProcessed,
			ErrorCount:         status.ErrorCount,
		}, nil
	}

	return &driving.SyncStatus{ConnectorID: connectorID}, nil
}

// acquire registers a running sync, failing if one is already active.
func (o *SyncOrchestrator) acquire(connectorID string) (*driving.SyncStatus, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, running := o.activeSyncs[connectorID]; running {
		return nil, false
	}
	status := &driving.SyncStatus{ConnectorID: connectorID, Running: true}
	o.activeSyncs[connectorID] = status
	return status, true
}

func (o *SyncOrchestrator) release(connectorID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.activeSyncs, connectorID)
}

// transition moves the connector to a new lifecycle state.
func (o *SyncOrchestrator) transition(ctx context.Context, connector *domain.Connector, to domain.ConnectorState) error {
	if !connector.State.CanTransition(to) {
		return fmt.Errorf("transition %s -> %s: %w", connector.State, to, domain.ErrInvalidInput)
	}
	connector.State = to
	connector.UpdatedAt = time.Now()
	if err := o.connectors.Save(ctx, nil, *connector); err != nil {
		return fmt.Errorf("save connector: %w", err)
	}
	return nil
}

// failOnAuth records a dead credential on the connector before surfacing the
// error; other errors pass through for the queue to retry.
func (o *SyncOrchestrator) failOnAuth(ctx context.Context, connector *domain.Connector, err error) error {
	if !errors.Is(err, domain.ErrAuthExpired) {
		return err
	}

	connector.State = domain.StateErrored
	connector.ErrorType = domain.ErrorTypeAuthExpired
	connector.UpdatedAt = time.Now()
	if saveErr := o.connectors.Save(ctx, nil, *connector); saveErr != nil {
		logger.Error("Failed to mark connector %s errored: %v", connector.ID, saveErr)
	}
	logger.Warn("Connector %s entered errored state: credentials expired", connector.ID)
	return err
}

// stateError maps a non-syncable state to its domain error.
func stateError(state domain.ConnectorState) error {
	switch state {
	case domain.StatePaused:
		return domain.ErrConnectorPaused
	case domain.StateErrored:
		return domain.ErrConnectorErrored
	case domain.StateDeleted:
		return domain.ErrConnectorDeleted
	}
	return nil
}
