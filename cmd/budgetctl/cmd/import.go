package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"budget/internal/core"
	"budget/internal/staging"
	"budget/internal/upload"

	"github.com/dustin/go-humanize/english"
	"github.com/spf13/cobra"
)

var importDryRun bool

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Append transactions from a CSV, TSV or XLSX file",
	Long: `Parses FILE the same way the web upload does and appends every row to
the Transactions table in one call. Nothing is written when any row fails
to parse.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().BoolVarP(&importDryRun, "dry-run", "n", false, "Parse and list the rows without writing them")
}

func runImport(cmd *cobra.Command, args []string) error {
	path := args[0]
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	txs, err := upload.Parse(filepath.Base(path), f)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if importDryRun {
		for _, tx := range txs {
			fmt.Fprintf(out, "%s\t%s\t%s\t%s\t%s\n", tx.Date, tx.Type, tx.Amount.Grouped(), tx.Category, tx.Notes)
		}
		fmt.Fprintf(out, "Parsed %s, nothing written.\n", english.Plural(len(txs), "transaction", ""))
		return nil
	}

	ledger, closeFn, err := openLedger(cmd.Context())
	if err != nil {
		return err
	}
	defer closeFn()

	buf := staging.New[core.Transaction]()
	buf.AppendBatch(txs)
	n, err := buf.Submit(cmd.Context(), ledger)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Imported %s from %s.\n", english.Plural(n, "transaction", ""), filepath.Base(path))
	return nil
}
