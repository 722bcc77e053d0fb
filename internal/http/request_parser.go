// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request
// data: entry forms, the dashboard month and the upcoming bills sort order.

package http

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"budget/internal/core"
)

// FormError is a user-facing validation message for one form field.
type FormError struct {
	Field   string
	Message string
}

func (e *FormError) Error() string { return e.Field + ": " + e.Message }

func fieldError(field, format string, args ...any) *FormError {
	return &FormError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ParseTransactionForm builds a transaction from the manual entry form.
// Date is ISO (what a date input submits); category and notes are optional.
func ParseTransactionForm(form url.Values) (core.Transaction, error) {
	var tx core.Transaction

	date, err := core.ParseDate(formValue(form, "date"))
	if err != nil {
		return tx, fieldError("date", "enter a valid date")
	}
	typ, err := core.ParseTxType(formValue(form, "type"))
	if err != nil {
		return tx, fieldError("type", "choose Income or Expense")
	}
	amount, err := core.ParseAmount(formValue(form, "amount"))
	if err != nil {
		return tx, fieldError("amount", "enter a non-negative amount")
	}

	tx = core.Transaction{
		Date:     date,
		Type:     typ,
		Amount:   amount,
		Category: formValue(form, "category"),
		Notes:    formValue(form, "notes"),
	}
	if err := tx.Validate(); err != nil {
		return tx, fieldError("transaction", "%v", err)
	}
	return tx, nil
}

// ParseBillForm builds a bill from the entry form.
func ParseBillForm(form url.Values) (core.Bill, error) {
	var b core.Bill

	name := formValue(form, "name")
	if name == "" {
		return b, fieldError("name", "enter a name")
	}
	amount, err := core.ParseAmount(formValue(form, "amount"))
	if err != nil {
		return b, fieldError("amount", "enter a non-negative amount")
	}
	dueDay, err := strconv.Atoi(formValue(form, "due_day"))
	if err != nil || dueDay < core.MinDueDay || dueDay > core.MaxDueDay {
		return b, fieldError("due_day", "due day must be between %d and %d", core.MinDueDay, core.MaxDueDay)
	}
	rec, err := core.ParseRecurrence(formValue(form, "recurring"))
	if err != nil {
		return b, fieldError("recurring", "choose Monthly, Quarterly or Yearly")
	}

	b = core.Bill{
		Name:      name,
		Amount:    amount,
		DueDay:    dueDay,
		Recurring: rec,
		Category:  formValue(form, "category"),
	}
	if err := b.Validate(); err != nil {
		return b, fieldError("bill", "%v", err)
	}
	return b, nil
}

// ParseMonthParam reads ?month=YYYY-MM. A missing or malformed value is the
// zero key, which selects the first available month.
func ParseMonthParam(query url.Values) core.MonthKey {
	k, err := core.ParseMonthKey(strings.TrimSpace(query.Get("month")))
	if err != nil {
		return core.MonthKey{}
	}
	return k
}

// SortParams is the upcoming bills table order.
type SortParams struct {
	Key  string
	Desc bool
}

// ParseSortParams reads ?sort= and ?dir=. Unknown keys fall back to due
// date, anything but "desc" is ascending.
func ParseSortParams(query url.Values) SortParams {
	p := SortParams{Key: core.SortByDueDate}
	switch k := strings.TrimSpace(query.Get("sort")); k {
	case core.SortByDueDate, core.SortByName, core.SortByAmount, core.SortByCategory:
		p.Key = k
	}
	p.Desc = strings.EqualFold(strings.TrimSpace(query.Get("dir")), "desc")
	return p
}

func formValue(form url.Values, key string) string {
	return sanitizeInput(form.Get(key))
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
