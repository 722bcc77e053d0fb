package upload

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"budget/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestParseCSV(t *testing.T) {
	in := "15/06/2024,500,Expense\n01/06/2024, 2000.00 ,income\n\n"
	txs, err := Parse("june.csv", strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, txs, 2)

	assert.Equal(t, core.NewDate(2024, 6, 15), txs[0].Date)
	assert.Equal(t, core.Expense, txs[0].Type)
	assert.Equal(t, int64(50000), txs[0].Amount.Cents)
	assert.Empty(t, txs[0].Category)
	assert.Empty(t, txs[0].Notes)

	assert.Equal(t, core.Income, txs[1].Type)
	assert.Equal(t, int64(200000), txs[1].Amount.Cents)
}

func TestParseTSV(t *testing.T) {
	txs, err := Parse("export.TSV", strings.NewReader("3/7/2024\t12,50\tExpense\n"))
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, core.NewDate(2024, 7, 3), txs[0].Date)
	assert.Equal(t, int64(1250), txs[0].Amount.Cents)
}

func TestParseRejectsMalformed(t *testing.T) {
	cases := map[string]struct {
		name string
		body string
	}{
		"fourth column":  {"a.csv", "15/06/2024,500,Expense,Rent\n"},
		"two columns":    {"a.csv", "15/06/2024,500\n"},
		"header row":     {"a.csv", "Date,Amount,Type\n15/06/2024,500,Expense\n"},
		"month first":    {"a.csv", "06/15/2024,500,Expense\n"},
		"bad amount":     {"a.csv", "15/06/2024,lots,Expense\n"},
		"bad type":       {"a.csv", "15/06/2024,500,Transfer\n"},
		"empty":          {"a.csv", ""},
		"unknown format": {"a.pdf", "15/06/2024,500,Expense\n"},
		"broken quoting": {"a.csv", "\"15/06/2024,500,Expense\n"},
		"mixed grouping": {"a.tsv", "15/06/2024\t1.23,4,5\tExpense\n"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			txs, err := Parse(tc.name, strings.NewReader(tc.body))
			assert.ErrorIs(t, err, ErrUploadFormat)
			assert.Nil(t, txs)
		})
	}
}

func TestParseEuropeanAmounts(t *testing.T) {
	txs, err := Parse("bank.tsv", strings.NewReader("15/06/2024\t1.234,56\tExpense\n"))
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, int64(123456), txs[0].Amount.Cents)

	txs, err = Parse("bank.csv", strings.NewReader("15/06/2024,\"2.000,00\",Income\n01/06/2024,\"1,234.50\",Expense\n"))
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, int64(200000), txs[0].Amount.Cents)
	assert.Equal(t, int64(123450), txs[1].Amount.Cents)
}

func TestParseXLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"15/06/2024", 500, "Expense"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), "2000", "Income"}))

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	txs, err := Parse("bank.xlsx", &buf)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, core.NewDate(2024, 6, 15), txs[0].Date)
	assert.Equal(t, int64(50000), txs[0].Amount.Cents)
	assert.Equal(t, core.NewDate(2024, 6, 1), txs[1].Date)
	assert.Equal(t, core.Income, txs[1].Type)
}

func TestParseXLSXRejectsExtraColumn(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"15/06/2024", 500, "Expense", "Rent"}))

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	_, err := Parse("bank.xlsx", &buf)
	assert.ErrorIs(t, err, ErrUploadFormat)
}
