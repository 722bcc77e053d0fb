package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"budget/internal/cache"
	"budget/internal/core"
	"budget/internal/sheets"

	"golang.org/x/sync/errgroup"
)

const snapshotKey = "snapshot"

type (
	// Publisher announces rows stored locally that still need syncing.
	Publisher interface {
		PublishRowsAppended(ctx context.Context, table core.Table, ids []int64) error
	}

	// rowAppender is implemented by stores that hand back row IDs.
	rowAppender interface {
		AppendRows(ctx context.Context, table core.Table, rows []core.Row) ([]int64, error)
	}
)

// Dataset is a loaded table. An unavailable table loads as no rows with
// the canonical columns.
type Dataset struct {
	Table       core.Table
	Columns     []string
	Rows        []core.Row
	Unavailable bool
}

// Snapshot is the decoded content of both tables.
type Snapshot struct {
	Transactions        []core.Transaction
	Bills               []core.Bill
	SkippedTransactions int
	SkippedBills        int
	LoadedAt            time.Time
}

// Ledger reads and writes the record store on behalf of the web layer.
type Ledger struct {
	store     sheets.RecordStore
	publisher Publisher
	snapshots *cache.LRUCache[Snapshot]
	now       func() time.Time

	// gen is bumped by every invalidation; a snapshot loaded across a bump
	// is returned but not cached.
	mu  sync.Mutex
	gen uint64
}

type LedgerOption func(*Ledger)

// WithPublisher announces appended rows when the store returns row IDs.
func WithPublisher(p Publisher) LedgerOption {
	return func(l *Ledger) { l.publisher = p }
}

// WithSnapshotTTL caches decoded tables for ttl. Zero disables caching.
func WithSnapshotTTL(ttl time.Duration) LedgerOption {
	return func(l *Ledger) {
		if ttl > 0 {
			l.snapshots = cache.NewLRUCache[Snapshot](1, ttl)
		} else {
			l.snapshots = nil
		}
	}
}

// WithClock overrides the source of "today".
func WithClock(now func() time.Time) LedgerOption {
	return func(l *Ledger) { l.now = now }
}

func NewLedger(store sheets.RecordStore, opts ...LedgerOption) *Ledger {
	l := &Ledger{
		store:     store,
		snapshots: cache.NewLRUCache[Snapshot](1, 30*time.Second),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// SnapshotCache exposes the cache for periodic cleanup, or nil.
func (l *Ledger) SnapshotCache() cache.Cleaner {
	if l.snapshots == nil {
		return nil
	}
	return l.snapshots
}

// Today is the reference date for upcoming bills.
func (l *Ledger) Today() core.Date { return core.DateOf(l.now()) }

// Load reads table. An unavailable table is not an error: it comes back
// empty with the canonical columns.
func (l *Ledger) Load(ctx context.Context, table core.Table) (Dataset, error) {
	ds := Dataset{Table: table, Columns: table.Columns()}
	rows, err := l.store.Load(ctx, table)
	switch {
	case errors.Is(err, sheets.ErrUnavailable):
		slog.WarnContext(ctx, "Table unavailable, using empty table", "table", table, "error", err)
		ds.Unavailable = true
		return ds, nil
	case err != nil:
		return ds, fmt.Errorf("load %s: %w", table, err)
	}
	ds.Rows = rows
	return ds, nil
}

// Snapshot loads and decodes both tables concurrently.
func (l *Ledger) Snapshot(ctx context.Context) (Snapshot, error) {
	if l.snapshots != nil {
		if s, ok := l.snapshots.Get(snapshotKey); ok {
			return s, nil
		}
	}
	gen := l.generation()

	var txData, billData Dataset
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		txData, err = l.Load(gctx, core.TransactionsTable)
		return err
	})
	g.Go(func() error {
		var err error
		billData, err = l.Load(gctx, core.BillsTable)
		return err
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}

	s := Snapshot{LoadedAt: l.now()}
	s.Transactions, s.SkippedTransactions = core.DecodeTransactions(txData.Rows)
	s.Bills, s.SkippedBills = core.DecodeBills(billData.Rows)
	if s.SkippedTransactions > 0 || s.SkippedBills > 0 {
		slog.WarnContext(ctx, "Rows skipped while decoding",
			"transactions", s.SkippedTransactions,
			"bills", s.SkippedBills)
	}

	if l.snapshots != nil {
		l.mu.Lock()
		if l.gen == gen {
			l.snapshots.Set(snapshotKey, s)
		}
		l.mu.Unlock()
	}
	return s, nil
}

// Dashboard builds the dashboard for month; a zero month picks the first
// available one.
func (l *Ledger) Dashboard(ctx context.Context, month core.MonthKey) (core.Dashboard, error) {
	s, err := l.Snapshot(ctx)
	if err != nil {
		return core.Dashboard{}, err
	}
	d := core.BuildDashboard(s.Transactions, s.Bills, month, l.Today())
	d.SkippedTransactions = s.SkippedTransactions
	d.SkippedBills = s.SkippedBills
	return d, nil
}

// Append writes rows in one store call. When the store returns row IDs and
// a publisher is configured, the rows are announced for syncing; a failed
// announcement is logged only since the rows are already stored.
func (l *Ledger) Append(ctx context.Context, table core.Table, rows []core.Row) error {
	defer l.invalidate()

	ra, ok := l.store.(rowAppender)
	if !ok {
		if err := l.store.Append(ctx, table, rows); err != nil {
			return fmt.Errorf("append %s: %w", table, err)
		}
		return nil
	}

	ids, err := ra.AppendRows(ctx, table, rows)
	if err != nil {
		return fmt.Errorf("append %s: %w", table, err)
	}
	if l.publisher == nil {
		return nil
	}
	if err := l.publisher.PublishRowsAppended(ctx, table, ids); err != nil {
		slog.ErrorContext(ctx, "Failed to publish rows appended message",
			"table", table, "count", len(ids), "error", err)
	}
	return nil
}

// Ready reports whether the store can be reached.
func (l *Ledger) Ready(ctx context.Context) error {
	if p, ok := l.store.(sheets.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (l *Ledger) generation() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.gen
}

func (l *Ledger) invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gen++
	if l.snapshots != nil {
		l.snapshots.Clear()
	}
}
