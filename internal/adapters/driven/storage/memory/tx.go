// Package memory provides in-memory implementations of the driven store
// interfaces. Used by tests and for ephemeral development runs.
package memory

import (
	"context"

	"github.com/dust-tt/connectors-go/internal/core/ports/driven"
)

// Transactor is a no-op transactor for the in-memory stores. Memory store
// mutations apply immediately; the transaction discipline is only exercised
// by the SQLite adapter.
type Transactor struct{}

var _ driven.Transactor = (*Transactor)(nil)

// NewTransactor creates a no-op transactor.
func NewTransactor() *Transactor {
	return &Transactor{}
}

// Begin returns a no-op transaction.
func (t *Transactor) Begin(_ context.Context) (driven.Tx, error) {
	return noopTx{}, nil
}

type noopTx struct{}

func (noopTx) Commit() error   { return nil }
func (noopTx) Rollback() error { return nil }
