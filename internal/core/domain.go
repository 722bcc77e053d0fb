package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Income  TxType = "Income"
	Expense TxType = "Expense"
)

const (
	Monthly   Recurrence = "Monthly"
	Quarterly Recurrence = "Quarterly"
	Yearly    Recurrence = "Yearly"
)

// Bills are due on a day that exists in every month.
const (
	MinDueDay = 1
	MaxDueDay = 28
)

type (
	TxType     string
	Recurrence string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Transaction struct {
		Date     Date
		Type     TxType
		Amount   Money
		Category string
		Notes    string // optional
	}

	Bill struct {
		Name      string
		Amount    Money
		DueDay    int
		Recurring Recurrence
		Category  string
	}

	// MonthKey buckets transactions for monthly reporting.
	MonthKey struct {
		Year  int
		Month time.Month
	}

	// Record is the set of types a staging buffer can hold.
	Record interface {
		Transaction | Bill
	}
)

var (
	ErrInvalidDate       = errors.New("invalid date")
	ErrInvalidMonth      = errors.New("invalid month")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidType       = errors.New("invalid transaction type")
	ErrInvalidDueDay     = errors.New("invalid due day")
	ErrInvalidRecurrence = errors.New("invalid recurrence")
	ErrEmptyName         = errors.New("empty bill name")
)

// TxTypes lists the accepted transaction types in display order.
func TxTypes() []TxType { return []TxType{Income, Expense} }

// Recurrences lists the accepted bill recurrences in display order.
func Recurrences() []Recurrence { return []Recurrence{Monthly, Quarterly, Yearly} }

// ParseTxType accepts any casing and surrounding whitespace.
func ParseTxType(s string) (TxType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "income":
		return Income, nil
	case "expense":
		return Expense, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
}

func ParseRecurrence(s string) (Recurrence, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "monthly":
		return Monthly, nil
	case "quarterly":
		return Quarterly, nil
	case "yearly":
		return Yearly, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRecurrence, s)
}

func (t TxType) Valid() bool { return t == Income || t == Expense }

func (r Recurrence) Valid() bool { return r == Monthly || r == Quarterly || r == Yearly }

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: date cannot be zero", ErrInvalidDate)
	}
	return nil
}

// String formats the date the way it is written to the record store.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01-02")
}

// MonthKey returns the (year, month) bucket of d.
func (d Date) MonthKey() MonthKey {
	return MonthKey{Year: d.Year(), Month: d.Month()}
}

func (k MonthKey) String() string {
	return fmt.Sprintf("%04d-%02d", k.Year, int(k.Month))
}

// Label renders the key for month pickers, e.g. "June 2024".
func (k MonthKey) Label() string {
	return fmt.Sprintf("%s %d", k.Month, k.Year)
}

// ParseMonthKey parses the YYYY-MM form produced by MonthKey.String.
func ParseMonthKey(s string) (MonthKey, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return MonthKey{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return MonthKey{Year: t.Year(), Month: t.Month()}, nil
}

func (tx Transaction) Validate() error {
	if err := tx.Date.Validate(); err != nil {
		return err
	}
	if !tx.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidType, tx.Type)
	}
	if tx.Amount.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (b Bill) Validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return ErrEmptyName
	}
	if b.Amount.Cents < 0 {
		return ErrInvalidAmount
	}
	if b.DueDay < MinDueDay || b.DueDay > MaxDueDay {
		return fmt.Errorf("%w: %d (must be %d-%d)", ErrInvalidDueDay, b.DueDay, MinDueDay, MaxDueDay)
	}
	if !b.Recurring.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidRecurrence, b.Recurring)
	}
	return nil
}

// DueDate places the bill's due day in the month of ref.
func (b Bill) DueDate(ref Date) Date {
	return NewDate(ref.Year(), int(ref.Month()), b.DueDay)
}
