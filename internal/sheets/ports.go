package sheets

import (
	"context"
	"errors"

	"budget/internal/core"
)

// ErrUnavailable is returned by Load when a table is empty or cannot be
// reached. Callers substitute an empty table with the canonical columns.
var ErrUnavailable = errors.New("table unavailable")

// Ports for outbound adapters.
type (
	// TableLoader reads every data row of a table, header excluded, in
	// stored order.
	TableLoader interface {
		Load(ctx context.Context, table core.Table) ([]core.Row, error)
	}

	// TableAppender appends rows, serialized as text, in order.
	TableAppender interface {
		Append(ctx context.Context, table core.Table, rows []core.Row) error
	}

	RecordStore interface {
		TableLoader
		TableAppender
	}

	// Pinger reports whether the store can be reached.
	Pinger interface {
		Ping(ctx context.Context) error
	}
)
