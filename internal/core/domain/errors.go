package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrSyncInProgress indicates a sync is already running for the
	// connector. New triggers are coalesced, never run in parallel.
	ErrSyncInProgress = errors.New("sync in progress")

	// ErrConnectorPaused indicates the connector is administratively
	// stopped and ignores sync triggers.
	ErrConnectorPaused = errors.New("connector paused")

	// ErrConnectorErrored indicates the connector halted on a permanent
	// failure and needs an explicit resume after re-authentication.
	ErrConnectorErrored = errors.New("connector errored")

	// ErrConnectorDeleted indicates the connector reached its terminal
	// state.
	ErrConnectorDeleted = errors.New("connector deleted")

	// Authentication errors.

	// ErrAuthExpired indicates the provider credential is no longer valid.
	// Fatal for the current sync run; the connector transitions to
	// errored until re-authentication.
	ErrAuthExpired = errors.New("authentication expired")

	// ErrRateLimited indicates the provider rate limit was exceeded after
	// retries were exhausted.
	ErrRateLimited = errors.New("rate limited")

	// ErrExternalRevoke indicates teardown's provider-side revoke call
	// failed after local rows were already removed. Local state is clean;
	// the revoke is retryable on its own.
	ErrExternalRevoke = errors.New("external authorization revoke failed")

	// ErrConfiguration indicates a missing or invalid service
	// configuration value. Fatal at startup, never per-request.
	ErrConfiguration = errors.New("invalid configuration")
)
