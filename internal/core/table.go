package core

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	TransactionsTable Table = "Transactions"
	BillsTable        Table = "Bills"
)

// Canonical column names.
const (
	ColDate      = "Date"
	ColType      = "Type"
	ColAmount    = "Amount"
	ColCategory  = "Category"
	ColNotes     = "Notes"
	ColName      = "Name"
	ColDueDay    = "Due Day"
	ColRecurring = "Recurring"
)

type (
	// Table names one of the two record store tables.
	Table string

	// Row maps a canonical column name to its text value.
	Row map[string]string
)

var tableColumns = map[Table][]string{
	TransactionsTable: {ColDate, ColType, ColAmount, ColCategory, ColNotes},
	BillsTable:        {ColName, ColAmount, ColDueDay, ColRecurring, ColCategory},
}

// Tables lists every known table.
func Tables() []Table { return []Table{TransactionsTable, BillsTable} }

func ParseTable(s string) (Table, error) {
	for _, t := range Tables() {
		if strings.EqualFold(string(t), strings.TrimSpace(s)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown table %q", s)
}

// Columns returns the canonical column set of t, in write order.
func (t Table) Columns() []string {
	cols := tableColumns[t]
	out := make([]string, len(cols))
	copy(out, cols)
	return out
}

func (t Table) Valid() bool {
	_, ok := tableColumns[t]
	return ok
}

// CanonicalColumn maps a header cell onto t's canonical column name.
// Matching ignores case and treats "_" like a space, so the legacy
// lowercase schema (date, due_day, ...) reads as the canonical one.
// Unknown headers are returned trimmed but otherwise unchanged.
func (t Table) CanonicalColumn(header string) string {
	key := normalizeHeader(header)
	for _, c := range tableColumns[t] {
		if normalizeHeader(c) == key {
			return c
		}
	}
	return strings.TrimSpace(header)
}

func normalizeHeader(s string) string {
	s = strings.ReplaceAll(s, "_", " ")
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// NewRow builds a Row from a header and a value line. Missing trailing
// values read as empty strings.
func (t Table) NewRow(header, values []string) Row {
	r := make(Row, len(header))
	for i, h := range header {
		if strings.TrimSpace(h) == "" {
			continue
		}
		v := ""
		if i < len(values) {
			v = values[i]
		}
		r[t.CanonicalColumn(h)] = v
	}
	return r
}

// Values returns r's cells in t's canonical column order.
func (t Table) Values(r Row) []string {
	cols := tableColumns[t]
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = r[c]
	}
	return out
}

// TransactionToRow serializes tx as text.
func TransactionToRow(tx Transaction) Row {
	return Row{
		ColDate:     tx.Date.String(),
		ColType:     string(tx.Type),
		ColAmount:   tx.Amount.String(),
		ColCategory: tx.Category,
		ColNotes:    tx.Notes,
	}
}

// BillToRow serializes b as text.
func BillToRow(b Bill) Row {
	return Row{
		ColName:      b.Name,
		ColAmount:    b.Amount.String(),
		ColDueDay:    strconv.Itoa(b.DueDay),
		ColRecurring: string(b.Recurring),
		ColCategory:  b.Category,
	}
}

// ToRows serializes a slice of transactions or bills.
func ToRows[T Record](items []T) []Row {
	rows := make([]Row, 0, len(items))
	for _, it := range items {
		switch v := any(it).(type) {
		case Transaction:
			rows = append(rows, TransactionToRow(v))
		case Bill:
			rows = append(rows, BillToRow(v))
		}
	}
	return rows
}

// TableOf returns the table a record type is written to.
func TableOf[T Record]() Table {
	var zero T
	if _, ok := any(zero).(Bill); ok {
		return BillsTable
	}
	return TransactionsTable
}

// RowToTransaction parses a stored transaction row.
func RowToTransaction(r Row) (Transaction, error) {
	d, err := ParseDate(r[ColDate])
	if err != nil {
		return Transaction{}, err
	}
	typ, err := ParseTxType(r[ColType])
	if err != nil {
		return Transaction{}, err
	}
	amt, err := ParseAmount(r[ColAmount])
	if err != nil {
		return Transaction{}, err
	}
	return Transaction{
		Date:     d,
		Type:     typ,
		Amount:   amt,
		Category: r[ColCategory],
		Notes:    r[ColNotes],
	}, nil
}

// RowToBill parses a stored bill row. An unrecognized recurrence is kept
// as written since it plays no part in due date computation.
func RowToBill(r Row) (Bill, error) {
	amt, err := ParseAmount(r[ColAmount])
	if err != nil {
		return Bill{}, err
	}
	day, err := strconv.Atoi(strings.TrimSpace(r[ColDueDay]))
	if err != nil {
		return Bill{}, fmt.Errorf("%w: %q", ErrInvalidDueDay, r[ColDueDay])
	}
	if day < MinDueDay || day > MaxDueDay {
		return Bill{}, fmt.Errorf("%w: %d", ErrInvalidDueDay, day)
	}
	rec, err := ParseRecurrence(r[ColRecurring])
	if err != nil {
		rec = Recurrence(strings.TrimSpace(r[ColRecurring]))
	}
	return Bill{
		Name:      r[ColName],
		Amount:    amt,
		DueDay:    day,
		Recurring: rec,
		Category:  r[ColCategory],
	}, nil
}

// DecodeTransactions parses rows, excluding the ones that fail to parse.
// skipped reports how many were excluded.
func DecodeTransactions(rows []Row) (txs []Transaction, skipped int) {
	txs = make([]Transaction, 0, len(rows))
	for _, r := range rows {
		tx, err := RowToTransaction(r)
		if err != nil {
			skipped++
			continue
		}
		txs = append(txs, tx)
	}
	return txs, skipped
}

// DecodeBills parses rows, excluding the ones that fail to parse.
func DecodeBills(rows []Row) (bills []Bill, skipped int) {
	bills = make([]Bill, 0, len(rows))
	for _, r := range rows {
		b, err := RowToBill(r)
		if err != nil {
			skipped++
			continue
		}
		bills = append(bills, b)
	}
	return bills, skipped
}
