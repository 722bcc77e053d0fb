package core

import (
	"sort"
	"strings"
)

// ListAvailableMonths returns the distinct months present in txs in the
// order they are first encountered. Transactions without a date are ignored.
func ListAvailableMonths(txs []Transaction) []MonthKey {
	seen := make(map[MonthKey]struct{})
	months := make([]MonthKey, 0)
	for _, tx := range txs {
		if tx.Date.IsZero() {
			continue
		}
		k := tx.Date.MonthKey()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		months = append(months, k)
	}
	return months
}

// SummarizeMonth totals income and expense for month. Net is always
// Income minus Expense, in exact cents.
func SummarizeMonth(txs []Transaction, month MonthKey) MonthSummary {
	s := MonthSummary{Month: month}
	for _, tx := range txs {
		if tx.Date.IsZero() || tx.Date.MonthKey() != month {
			continue
		}
		switch tx.Type {
		case Income:
			s.Income = s.Income.Add(tx.Amount)
		case Expense:
			s.Expense = s.Expense.Add(tx.Amount)
		}
	}
	s.Net = s.Income.Sub(s.Expense)
	return s
}

// CategoryBreakdown sums expenses of month per category. Categories match
// exactly, case included, and come back sorted by name. An empty result
// means the month has no expenses.
func CategoryBreakdown(txs []Transaction, month MonthKey) []CategoryAmount {
	totals := make(map[string]Money)
	for _, tx := range txs {
		if tx.Type != Expense || tx.Date.IsZero() || tx.Date.MonthKey() != month {
			continue
		}
		totals[tx.Category] = totals[tx.Category].Add(tx.Amount)
	}
	out := make([]CategoryAmount, 0, len(totals))
	for name, amt := range totals {
		out = append(out, CategoryAmount{Name: name, Amount: amt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// UpcomingBills places every bill in today's month and keeps the ones due
// today or later, sorted by due date. Bills already past are not rolled to
// the next month.
func UpcomingBills(bills []Bill, today Date) []UpcomingBill {
	out := make([]UpcomingBill, 0, len(bills))
	for _, b := range bills {
		if b.DueDay < MinDueDay || b.DueDay > MaxDueDay || b.DueDay < today.Day() {
			continue
		}
		out = append(out, UpcomingBill{
			Name:     b.Name,
			Amount:   b.Amount,
			Category: b.Category,
			DueDate:  b.DueDate(today),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate.Time) })
	return out
}

// Upcoming bill sort keys.
const (
	SortByDueDate  = "due_date"
	SortByName     = "name"
	SortByAmount   = "amount"
	SortByCategory = "category"
)

// SortUpcoming reorders items in place by key. Unknown keys sort by due
// date. Ties keep their existing order.
func SortUpcoming(items []UpcomingBill, key string, desc bool) {
	less := func(a, b UpcomingBill) bool { return a.DueDate.Before(b.DueDate.Time) }
	switch key {
	case SortByName:
		less = func(a, b UpcomingBill) bool { return strings.ToLower(a.Name) < strings.ToLower(b.Name) }
	case SortByAmount:
		less = func(a, b UpcomingBill) bool { return a.Amount.Cents < b.Amount.Cents }
	case SortByCategory:
		less = func(a, b UpcomingBill) bool { return strings.ToLower(a.Category) < strings.ToLower(b.Category) }
	}
	sort.SliceStable(items, func(i, j int) bool {
		if desc {
			return less(items[j], items[i])
		}
		return less(items[i], items[j])
	})
}

// BuildDashboard computes the dashboard for month. A zero month selects
// the first available one.
func BuildDashboard(txs []Transaction, bills []Bill, month MonthKey, today Date) Dashboard {
	d := Dashboard{Months: ListAvailableMonths(txs)}
	if !d.HasData() {
		return d
	}
	if month == (MonthKey{}) || !containsMonth(d.Months, month) {
		month = d.Months[0]
	}
	d.Month = month
	d.Summary = SummarizeMonth(txs, month)
	d.Breakdown = CategoryBreakdown(txs, month)
	d.Upcoming = UpcomingBills(bills, today)
	return d
}

func containsMonth(months []MonthKey, k MonthKey) bool {
	for _, m := range months {
		if m == k {
			return true
		}
	}
	return false
}
