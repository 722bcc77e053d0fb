package http

import (
	"html/template"
	"strings"

	"budget/internal/core"
	"budget/internal/staging"

	"github.com/dustin/go-humanize"
)

var templateFuncs = template.FuncMap{
	"dollars": func(m core.Money) string { return m.Dollars() },
	"grouped": func(m core.Money) string { return m.Grouped() },
	"date":    func(d core.Date) string { return d.Format("Jan 2, 2006") },
	"iso":     func(d core.Date) string { return d.String() },
	"ordinal": func(n int) string { return humanize.Ordinal(n) },
	"count":   func(n int) string { return humanize.Comma(int64(n)) },
	"lower":   strings.ToLower,
}

// page is the data every full page template receives.
type page struct {
	Title    string
	Username string
	Active   string
}

type loginView struct {
	page
	Error string
	Login string
}

type transactionsView struct {
	page
	Staged     stagedView[core.Transaction]
	Types      []core.TxType
	Today      string
	Extensions string
}

type billsView struct {
	page
	Staged      stagedView[core.Bill]
	Recurrences []core.Recurrence
	MinDueDay   int
	MaxDueDay   int
}

// stagedView is the staged list partial of either table.
type stagedView[T core.Record] struct {
	Items []T
	Error string
	Info  string
}

func newStagedView[T core.Record](buf *staging.Buffer[T], errMsg, info string) stagedView[T] {
	return stagedView[T]{Items: buf.Items(), Error: errMsg, Info: info}
}

type monthOption struct {
	Value    string
	Label    string
	Selected bool
}

type breakdownRow struct {
	Name    string
	Amount  core.Money
	Percent int
}

type sortColumn struct {
	Key    string
	Label  string
	Dir    string // direction a click on the header applies
	Active bool
	Arrow  string
}

type dashboardPanel struct {
	HasData     bool
	Months      []monthOption
	Month       string
	MonthLabel  string
	Income      core.Money
	Expense     core.Money
	Net         core.Money
	NetDelta    string
	NetNegative bool
	Breakdown   []breakdownRow
	NoExpenses  bool
	Upcoming    []core.UpcomingBill
	Columns     []sortColumn
	Sort        string
	Dir         string
	Skipped     int
	Error       string
}

type dashboardView struct {
	page
	Panel dashboardPanel
}

// newDashboardPanel shapes a dashboard for the template. Upcoming bills are
// reordered by sp.
func newDashboardPanel(d core.Dashboard, sp SortParams) dashboardPanel {
	p := dashboardPanel{
		HasData: d.HasData(),
		Skipped: d.Skipped(),
		Sort:    sp.Key,
		Dir:     dirString(sp.Desc),
	}
	if !p.HasData {
		return p
	}

	p.Month = d.Month.String()
	p.MonthLabel = d.Month.Label()
	for _, m := range d.Months {
		p.Months = append(p.Months, monthOption{Value: m.String(), Label: m.Label(), Selected: m == d.Month})
	}

	p.Income = d.Summary.Income
	p.Expense = d.Summary.Expense
	p.Net = d.Summary.Net
	p.NetDelta = d.Summary.Net.Signed()
	p.NetNegative = d.Summary.Net.Cents < 0

	p.NoExpenses = len(d.Breakdown) == 0
	for _, c := range d.Breakdown {
		pct := 0
		if d.Summary.Expense.Cents > 0 {
			pct = int((c.Amount.Cents*100 + d.Summary.Expense.Cents/2) / d.Summary.Expense.Cents)
		}
		p.Breakdown = append(p.Breakdown, breakdownRow{Name: c.Name, Amount: c.Amount, Percent: pct})
	}

	p.Upcoming = append([]core.UpcomingBill(nil), d.Upcoming...)
	core.SortUpcoming(p.Upcoming, sp.Key, sp.Desc)
	p.Columns = sortColumns(sp)
	return p
}

func sortColumns(sp SortParams) []sortColumn {
	cols := []sortColumn{
		{Key: core.SortByName, Label: "Name"},
		{Key: core.SortByAmount, Label: "Amount"},
		{Key: core.SortByCategory, Label: "Category"},
		{Key: core.SortByDueDate, Label: "Due date"},
	}
	for i := range cols {
		cols[i].Dir = "asc"
		if cols[i].Key != sp.Key {
			continue
		}
		cols[i].Active = true
		if sp.Desc {
			cols[i].Arrow = "▼"
		} else {
			cols[i].Arrow = "▲"
			cols[i].Dir = "desc"
		}
	}
	return cols
}

func dirString(desc bool) string {
	if desc {
		return "desc"
	}
	return "asc"
}

// breakdownChart is the JSON the category pie chart is drawn from.
type breakdownChart struct {
	Month  string    `json:"month"`
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
	Total  string    `json:"total"`
}

func newBreakdownChart(d core.Dashboard) breakdownChart {
	c := breakdownChart{Labels: []string{}, Values: []float64{}}
	if !d.HasData() {
		return c
	}
	c.Month = d.Month.String()
	c.Total = d.Summary.Expense.Dollars()
	for _, b := range d.Breakdown {
		c.Labels = append(c.Labels, b.Name)
		c.Values = append(c.Values, b.Amount.Float64())
	}
	return c
}
