// Package driving defines the service interfaces exposed to the HTTP API
// and the workflow queue: connector lifecycle, permission management, sync
// orchestration, webhook routing and bot handling.
package driving
