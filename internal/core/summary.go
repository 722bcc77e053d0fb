package core

// CategoryAmount represents an expense total aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount Money
}

// MonthSummary holds the totals of a single month. Net may be negative.
type MonthSummary struct {
	Month   MonthKey
	Income  Money
	Expense Money
	Net     Money
}

// UpcomingBill is a bill placed on a concrete date in the current month.
type UpcomingBill struct {
	Name     string
	Amount   Money
	Category string
	DueDate  Date
}

// Dashboard bundles everything the monthly dashboard renders.
type Dashboard struct {
	Months    []MonthKey
	Month     MonthKey
	Summary   MonthSummary
	Breakdown []CategoryAmount
	Upcoming  []UpcomingBill

	// Rows excluded because they failed to parse.
	SkippedTransactions int
	SkippedBills        int
}

// HasData reports whether any month is available. Without one the
// dashboard renders an empty state instead of tiles.
func (d Dashboard) HasData() bool { return len(d.Months) > 0 }

func (d Dashboard) Skipped() int { return d.SkippedTransactions + d.SkippedBills }
