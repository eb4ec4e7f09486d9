package domain

import "time"

// SyncState tracks synchronisation progress for a connector.
// The cursor is owned exclusively by the sync orchestrator and advanced only
// after the corresponding batch has been fully ingested, so an interrupted
// run resumes from the last completed page.
type SyncState struct {
	// ConnectorID links to the connector being synced.
	ConnectorID string

	// Cursor is an opaque token for incremental sync and full-sync resume.
	Cursor string

	// LastSync is when the last successful sync completed.
	LastSync time.Time

	// CrawlStartedAt is when the current (or last completed) full crawl
	// began at its first page. Rows whose LastSeenAt predates it when the
	// crawl completes have vanished provider-side and are purged.
	CrawlStartedAt time.Time

	// GCRequired is set by the permission engine when read access was
	// revoked for at least one resource since the last garbage collection.
	GCRequired bool
}
