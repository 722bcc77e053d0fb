// Package memory is an in-process record store used for local development
// and tests.
package memory

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"budget/internal/core"
	ports "budget/internal/sheets"
)

var (
	_ ports.RecordStore = (*Store)(nil)
	_ ports.Pinger      = (*Store)(nil)
)

type Store struct {
	mu     sync.Mutex
	tables map[core.Table][]core.Row
	// FailAppend, when set, is returned by Append without storing anything.
	FailAppend error
}

func New() *Store {
	return &Store{tables: make(map[core.Table][]core.Row)}
}

// NewFromFiles seeds the store from transactions.csv and bills.csv under
// base. Each file starts with a header row in either schema casing.
// Missing files leave the table empty.
func NewFromFiles(base string) (*Store, error) {
	s := New()
	for table, name := range map[core.Table]string{
		core.TransactionsTable: "transactions.csv",
		core.BillsTable:        "bills.csv",
	} {
		rows, err := readSeed(filepath.Join(base, name), table)
		if err != nil {
			return nil, err
		}
		s.tables[table] = rows
	}
	return s, nil
}

// Load returns a copy of the table's rows, or ports.ErrUnavailable when the
// table is empty.
func (s *Store) Load(_ context.Context, table core.Table) ([]core.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.tables[table]
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: %w", table, ports.ErrUnavailable)
	}
	out := make([]core.Row, len(rows))
	for i, r := range rows {
		out[i] = cloneRow(r)
	}
	return out, nil
}

func (s *Store) Append(_ context.Context, table core.Table, rows []core.Row) error {
	if !table.Valid() {
		return fmt.Errorf("unknown table %q", table)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAppend != nil {
		return s.FailAppend
	}
	for _, r := range rows {
		s.tables[table] = append(s.tables[table], cloneRow(r))
	}
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

// Len returns the number of rows stored in table.
func (s *Store) Len(table core.Table) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tables[table])
}

func cloneRow(r core.Row) core.Row {
	out := make(core.Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

func readSeed(path string, table core.Table) ([]core.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open seed %s: %w", path, err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	cr.Comment = '#'
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read seed %s: %w", path, err)
	}
	if len(records) < 2 {
		return nil, nil
	}
	header := records[0]
	rows := make([]core.Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		if strings.TrimSpace(strings.Join(rec, "")) == "" {
			continue
		}
		rows = append(rows, table.NewRow(header, rec))
	}
	return rows, nil
}
