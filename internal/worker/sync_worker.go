package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"budget/internal/amqp"
	"budget/internal/core"
	"budget/internal/sheets"
	"budget/internal/storage"
)

// Outbox is the local side of the sync: rows waiting to be copied.
type Outbox interface {
	PendingRows(ctx context.Context, table core.Table, limit int) ([]storage.PendingRow, error)
	MarkSynced(ctx context.Context, table core.Table, ids []int64) error
	MarkSyncError(ctx context.Context, table core.Table, ids []int64, cause error) error
}

// SyncWorker copies rows appended to SQLite into Google Sheets.
type SyncWorker struct {
	outbox    Outbox
	sheets    sheets.TableAppender
	batchSize int

	// one sync at a time, so a message and a sweep never append the same rows
	mu sync.Mutex
}

func NewSyncWorker(outbox Outbox, sheets sheets.TableAppender, batchSize int) *SyncWorker {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &SyncWorker{
		outbox:    outbox,
		sheets:    sheets,
		batchSize: batchSize,
	}
}

// HandleRowsAppended processes a message from AMQP. The message is a
// trigger: every pending row of its table is synced, oldest first, which
// includes the announced IDs unless an earlier sweep got to them.
func (w *SyncWorker) HandleRowsAppended(ctx context.Context, msg *amqp.RowsAppendedMessage) error {
	slog.InfoContext(ctx, "Processing rows appended message",
		"table", msg.Table,
		"ids", len(msg.IDs),
		"timestamp", msg.Timestamp)

	_, err := w.SyncTable(ctx, msg.Table)
	return err
}

// SyncTable syncs pending rows of table in batches until none are left
// or a batch fails. It returns the number of rows synced.
func (w *SyncWorker) SyncTable(ctx context.Context, table core.Table) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, err := w.syncBatch(ctx, table)
		total += n
		if err != nil {
			return total, err
		}
		if n < w.batchSize {
			return total, nil
		}
	}
}

func (w *SyncWorker) syncBatch(ctx context.Context, table core.Table) (int, error) {
	pending, err := w.outbox.PendingRows(ctx, table, w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("get pending %s rows: %w", table, err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	ids := make([]int64, len(pending))
	rows := make([]core.Row, len(pending))
	for i, p := range pending {
		ids[i] = p.ID
		rows[i] = p.Row
	}

	if err := w.sheets.Append(ctx, table, rows); err != nil {
		if markErr := w.outbox.MarkSyncError(ctx, table, ids, err); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "table", table, "error", markErr)
		}
		return 0, fmt.Errorf("append %s to sheets: %w", table, err)
	}

	// The rows are in Sheets now; if they cannot be marked they will be
	// sent again on a later sweep.
	if err := w.outbox.MarkSynced(ctx, table, ids); err != nil {
		return len(ids), fmt.Errorf("mark %s rows synced: %w", table, err)
	}

	slog.InfoContext(ctx, "Synced rows to Google Sheets",
		"table", table,
		"count", len(ids),
		"first_id", ids[0],
		"last_id", ids[len(ids)-1])
	return len(ids), nil
}

// ProcessPending sweeps every table. It is the backup for lost messages
// and also runs once at worker startup.
func (w *SyncWorker) ProcessPending(ctx context.Context) error {
	var firstErr error
	for _, table := range core.Tables() {
		n, err := w.SyncTable(ctx, table)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to sync pending rows", "table", table, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if n > 0 {
			slog.InfoContext(ctx, "Pending rows synced", "table", table, "count", n)
		}
	}
	return firstErr
}
