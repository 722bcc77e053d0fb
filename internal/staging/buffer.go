// Package staging holds records a user has entered or uploaded but not yet
// written to the record store.
package staging

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"budget/internal/core"
)

// ErrSubmitFailed wraps any error returned by the record store on submit.
// The buffer is left intact when it is returned.
var ErrSubmitFailed = errors.New("submit failed")

// Appender writes rows to a record store table in a single call.
type Appender interface {
	Append(ctx context.Context, table core.Table, rows []core.Row) error
}

// Buffer is an ordered, session-local list of pending records.
type Buffer[T core.Record] struct {
	mu    sync.Mutex
	items []T
	gen   int
}

func New[T core.Record]() *Buffer[T] {
	return &Buffer[T]{}
}

// Table is the record store table the buffer submits to.
func (b *Buffer[T]) Table() core.Table { return core.TableOf[T]() }

// Append adds rec to the end of the buffer.
func (b *Buffer[T]) Append(rec T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = append(b.items, normalize(rec))
}

// AppendBatch adds recs in order. An empty batch leaves the buffer untouched.
func (b *Buffer[T]) AppendBatch(recs []T) {
	if len(recs) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, r := range recs {
		b.items = append(b.items, normalize(r))
	}
}

// Clear empties the buffer and advances Generation so bound form widgets
// can reset.
func (b *Buffer[T]) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clearLocked()
}

func (b *Buffer[T]) clearLocked() {
	b.items = nil
	b.gen++
}

// Items returns a copy of the pending records in arrival order.
func (b *Buffer[T]) Items() []T {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]T, len(b.items))
	copy(out, b.items)
	return out
}

func (b *Buffer[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// Generation changes every time the buffer is cleared.
func (b *Buffer[T]) Generation() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.gen
}

// Submit hands the whole buffer to app in one call and clears it only when
// the call succeeds. It returns the number of records written. Submitting
// an empty buffer is a no-op.
func (b *Buffer[T]) Submit(ctx context.Context, app Appender) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.items) == 0 {
		return 0, nil
	}
	rows := core.ToRows(b.items)
	if err := app.Append(ctx, core.TableOf[T](), rows); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSubmitFailed, err)
	}
	n := len(b.items)
	b.clearLocked()
	return n, nil
}

// normalize trims free-text fields so manual and uploaded records share
// one shape. Optional fields stay as empty strings.
func normalize[T core.Record](rec T) T {
	switch v := any(rec).(type) {
	case core.Transaction:
		v.Category = strings.TrimSpace(v.Category)
		v.Notes = strings.TrimSpace(v.Notes)
		return any(v).(T)
	case core.Bill:
		v.Name = strings.TrimSpace(v.Name)
		v.Category = strings.TrimSpace(v.Category)
		return any(v).(T)
	}
	return rec
}
