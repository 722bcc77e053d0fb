package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"budget/internal/core"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	reportMonth string
	reportSort  string
	reportDesc  bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the dashboard for a month",
	Long: `Prints the month's income, expense and net, the expense breakdown by
category and the bills still due this month. Without --month the first
available month is used, as on the web dashboard.`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVarP(&reportMonth, "month", "m", "", "Month to report, YYYY-MM")
	reportCmd.Flags().StringVar(&reportSort, "sort", core.SortByDueDate, "Upcoming bills order: due_date, name, amount or category")
	reportCmd.Flags().BoolVar(&reportDesc, "desc", false, "Sort upcoming bills in descending order")
}

func runReport(cmd *cobra.Command, _ []string) error {
	var month core.MonthKey
	if reportMonth != "" {
		var err error
		if month, err = core.ParseMonthKey(reportMonth); err != nil {
			return fmt.Errorf("invalid --month: %w", err)
		}
	}

	ledger, closeFn, err := openLedger(cmd.Context())
	if err != nil {
		return err
	}
	defer closeFn()

	d, err := ledger.Dashboard(cmd.Context(), month)
	if err != nil {
		return err
	}
	core.SortUpcoming(d.Upcoming, reportSort, reportDesc)
	return writeReport(cmd.OutOrStdout(), d, month)
}

func writeReport(out io.Writer, d core.Dashboard, requested core.MonthKey) error {
	if !d.HasData() {
		fmt.Fprintln(out, "No transactions yet.")
		return nil
	}
	if requested != (core.MonthKey{}) && requested != d.Month {
		fmt.Fprintf(out, "No transactions in %s, showing %s.\n\n", requested.Label(), d.Month.Label())
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(out, "%s\n\n", d.Month.Label())
	fmt.Fprintf(tw, "Income\t%s\t\n", d.Summary.Income.Dollars())
	fmt.Fprintf(tw, "Expense\t%s\t\n", d.Summary.Expense.Dollars())
	fmt.Fprintf(tw, "Net\t%s\t\n", d.Summary.Net.Signed())
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\nExpenses by category\n")
	if len(d.Breakdown) == 0 {
		fmt.Fprintln(out, "  none")
	}
	tw = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, c := range d.Breakdown {
		fmt.Fprintf(tw, "  %s\t%s\t\n", c.Name, c.Amount.Dollars())
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\nUpcoming bills\n")
	if len(d.Upcoming) == 0 {
		fmt.Fprintln(out, "  none")
	}
	tw = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, b := range d.Upcoming {
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t\n", b.DueDate.Format("Jan 2"), b.Name, b.Amount.Dollars(), b.Category)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if n := d.Skipped(); n > 0 {
		fmt.Fprintf(out, "\n%s skipped: unparseable rows.\n", humanize.Comma(int64(n)))
	}
	return nil
}
