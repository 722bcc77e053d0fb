// Package storage is a local SQLite record store. Rows appended here are
// tracked with a sync status so the worker can copy them to Google Sheets.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"budget/internal/core"
	ports "budget/internal/sheets"

	_ "modernc.org/sqlite"
)

// Sync states of a stored row.
const (
	SyncPending = "pending"
	SyncSynced  = "synced"
	SyncError   = "error"
)

var (
	_ ports.RecordStore = (*SQLiteRepository)(nil)
	_ ports.Pinger      = (*SQLiteRepository)(nil)
)

// schema maps a record store table onto its SQL table. Columns are listed
// in the table's canonical order.
type schema struct {
	name    string
	columns []string
}

var schemas = map[core.Table]schema{
	core.TransactionsTable: {name: "transactions", columns: []string{"date", "type", "amount", "category", "notes"}},
	core.BillsTable:        {name: "bills", columns: []string{"name", "amount", "due_day", "recurring", "category"}},
}

type SQLiteRepository struct {
	db *sql.DB
}

// PendingRow is a stored row that has not reached Google Sheets yet.
type PendingRow struct {
	ID        int64
	Row       core.Row
	CreatedAt time.Time
}

// SyncStats counts rows of a table per sync status.
type SyncStats struct {
	Pending int
	Synced  int
	Errored int
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func schemaFor(table core.Table) (schema, error) {
	s, ok := schemas[table]
	if !ok {
		return schema{}, fmt.Errorf("unknown table %q", table)
	}
	return s, nil
}

// Load returns every row of table in insertion order, or
// ports.ErrUnavailable when the table is empty or cannot be read.
func (r *SQLiteRepository) Load(ctx context.Context, table core.Table) ([]core.Row, error) {
	s, err := schemaFor(table)
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf("SELECT %s FROM %s ORDER BY id", strings.Join(s.columns, ", "), s.name)
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w: %w", s.name, ports.ErrUnavailable, err)
	}
	defer rows.Close()

	var out []core.Row
	for rows.Next() {
		vals, err := scanValues(rows, len(s.columns))
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", s.name, err)
		}
		out = append(out, rowFromValues(table, vals))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", s.name, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: %w", s.name, ports.ErrUnavailable)
	}
	return out, nil
}

// Append stores rows in one transaction.
func (r *SQLiteRepository) Append(ctx context.Context, table core.Table, rows []core.Row) error {
	_, err := r.AppendRows(ctx, table, rows)
	return err
}

// AppendRows stores rows in one transaction and returns their IDs in order.
func (r *SQLiteRepository) AppendRows(ctx context.Context, table core.Table, rows []core.Row) ([]int64, error) {
	s, err := schemaFor(table)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(s.columns)), ", ")
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		s.name, strings.Join(s.columns, ", "), placeholders))
	if err != nil {
		return nil, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	ids := make([]int64, 0, len(rows))
	for _, row := range rows {
		vals := table.Values(row)
		args := make([]any, len(vals))
		for i, v := range vals {
			args[i] = v
		}
		res, err := stmt.ExecContext(ctx, args...)
		if err != nil {
			return nil, fmt.Errorf("insert into %s: %w", s.name, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("last insert id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	slog.InfoContext(ctx, "Rows saved to SQLite", "table", table, "count", len(ids))
	return ids, nil
}

// PendingRows returns up to limit rows of table that are pending or failed
// a previous sync, oldest first.
func (r *SQLiteRepository) PendingRows(ctx context.Context, table core.Table, limit int) ([]PendingRow, error) {
	s, err := schemaFor(table)
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf("SELECT id, created_at, %s FROM %s WHERE sync_status IN (?, ?) ORDER BY id LIMIT ?",
		strings.Join(s.columns, ", "), s.name)
	rows, err := r.db.QueryContext(ctx, q, SyncPending, SyncError, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending %s: %w", s.name, err)
	}
	defer rows.Close()

	var out []PendingRow
	for rows.Next() {
		var (
			id      int64
			created any
		)
		dest := []any{&id, &created}
		vals := make([]string, len(s.columns))
		for i := range vals {
			dest = append(dest, &vals[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan pending %s: %w", s.name, err)
		}
		out = append(out, PendingRow{ID: id, CreatedAt: parseTimestamp(created), Row: rowFromValues(table, vals)})
	}
	return out, rows.Err()
}

// MarkSynced flags ids of table as copied to Google Sheets.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, table core.Table, ids []int64) error {
	return r.setStatus(ctx, table, ids, SyncSynced, "")
}

// MarkSyncError records a failed sync attempt; the rows stay eligible for
// the next sweep.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, table core.Table, ids []int64, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	if err := r.setStatus(ctx, table, ids, SyncError, msg); err != nil {
		return err
	}
	slog.WarnContext(ctx, "Rows marked with sync error", "table", table, "count", len(ids), "error", msg)
	return nil
}

func (r *SQLiteRepository) setStatus(ctx context.Context, table core.Table, ids []int64, status, msg string) error {
	s, err := schemaFor(table)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	q := fmt.Sprintf(`UPDATE %s
		SET sync_status = ?, sync_error = ?,
		    synced_at = CASE WHEN ? = 'synced' THEN CURRENT_TIMESTAMP ELSE synced_at END
		WHERE id IN (%s)`, s.name, placeholders)
	args := []any{status, msg, status}
	for _, id := range ids {
		args = append(args, id)
	}
	if _, err := r.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("update sync status of %s: %w", s.name, err)
	}
	return nil
}

// Stats counts the rows of table per sync status.
func (r *SQLiteRepository) Stats(ctx context.Context, table core.Table) (SyncStats, error) {
	s, err := schemaFor(table)
	if err != nil {
		return SyncStats{}, err
	}
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf("SELECT sync_status, COUNT(*) FROM %s GROUP BY sync_status", s.name))
	if err != nil {
		return SyncStats{}, fmt.Errorf("query stats of %s: %w", s.name, err)
	}
	defer rows.Close()

	var st SyncStats
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return SyncStats{}, fmt.Errorf("scan stats: %w", err)
		}
		switch status {
		case SyncPending:
			st.Pending = n
		case SyncSynced:
			st.Synced = n
		case SyncError:
			st.Errored = n
		}
	}
	return st, rows.Err()
}

func scanValues(rows *sql.Rows, n int) ([]string, error) {
	vals := make([]string, n)
	dest := make([]any, n)
	for i := range vals {
		dest[i] = &vals[i]
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, err
	}
	return vals, nil
}

func rowFromValues(table core.Table, vals []string) core.Row {
	return table.NewRow(table.Columns(), vals)
}

// parseTimestamp accepts both driver representations of a DATETIME column.
func parseTimestamp(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		return parseTimestampText(t)
	case []byte:
		return parseTimestampText(string(t))
	}
	return time.Time{}
}

func parseTimestampText(s string) time.Time {
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
