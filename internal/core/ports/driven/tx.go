package driven

import "context"

// Tx is an opaque storage transaction. Mutating store operations accept a Tx
// so sibling rows (connector, configuration, resources) are written or
// removed atomically during lifecycle operations. A nil Tx means the
// operation runs standalone.
type Tx interface {
	Commit() error
	Rollback() error
}

// Transactor begins storage transactions.
type Transactor interface {
	Begin(ctx context.Context) (Tx, error)
}
