// Package driven defines the interfaces the core services depend on:
// stores, the provider client, the credential broker, the search index and
// the workflow queue. Adapters implement these interfaces.
package driven
