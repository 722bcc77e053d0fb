package cmd

import (
	"fmt"
	"text/tabwriter"

	"budget/internal/core"
	"budget/internal/storage"

	"github.com/spf13/cobra"
)

var outboxTable string

var outboxCmd = &cobra.Command{
	Use:   "outbox",
	Short: "Show how many SQLite rows are waiting to reach Google Sheets",
	Args:  cobra.NoArgs,
	RunE:  runOutbox,
}

func init() {
	outboxCmd.Flags().StringVarP(&outboxTable, "table", "t", "", "Only show one table: Transactions or Bills")
}

func runOutbox(cmd *cobra.Command, _ []string) error {
	tables := core.Tables()
	if outboxTable != "" {
		table, err := core.ParseTable(outboxTable)
		if err != nil {
			return err
		}
		tables = []core.Table{table}
	}

	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return err
	}
	defer repo.Close()

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TABLE\tPENDING\tSYNCED\tERROR\t")
	for _, table := range tables {
		st, err := repo.Stats(cmd.Context(), table)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t\n", table, st.Pending, st.Synced, st.Errored)
	}
	return tw.Flush()
}
