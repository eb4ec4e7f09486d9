package driven

import "context"

// IndexDocument is one document upserted into the search-index service.
type IndexDocument struct {
	// DocumentID is the index-side identifier, derived from the
	// resource's internal ID.
	DocumentID string

	// Title and Body are the indexed content.
	Title string
	Body  string

	// SourceURL is attached as document metadata.
	SourceURL string

	// TimestampMs is the content timestamp in Unix milliseconds.
	TimestampMs int64
}

// SearchIndex is the external semantic-search data store the connector
// ingests into. Deletion must be confirmed (nil error) before the caller may
// remove the corresponding mirror row, to avoid orphaned index entries.
type SearchIndex interface {
	// UpsertDocument creates or replaces a document in a data source.
	UpsertDocument(ctx context.Context, dataSourceID string, doc IndexDocument) error

	// DeleteDocument removes a document from a data source. Deleting a
	// document that does not exist is not an error.
	DeleteDocument(ctx context.Context, dataSourceID, documentID string) error
}
