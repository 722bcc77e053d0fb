// Package upload reads bank-style transaction exports into staged
// transactions.
//
// An upload has exactly three positional columns and no header:
//
//	Date (day-first), Amount, Type
//
// Category and Notes are left empty. Any malformed row rejects the whole
// file so nothing is staged partially.
package upload

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"budget/internal/core"

	"github.com/xuri/excelize/v2"
)

// Columns is the number of positional columns an upload must have.
const Columns = 3

// ErrUploadFormat is returned for any file that does not match the expected
// shape.
var ErrUploadFormat = errors.New("upload format error")

// Extensions lists the accepted file extensions.
func Extensions() []string { return []string{".csv", ".txt", ".tsv", ".xlsx"} }

// Parse reads the file named filename from r. The format is chosen by
// extension.
func Parse(filename string, r io.Reader) ([]core.Transaction, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	var (
		records [][]string
		serial  func(string) (core.Date, bool)
		err     error
	)
	switch ext {
	case ".csv", ".txt":
		records, err = readDelimited(r, ',')
	case ".tsv":
		records, err = readDelimited(r, '\t')
	case ".xlsx":
		records, serial, err = readWorkbook(r)
	default:
		return nil, fmt.Errorf("%w: unsupported file type %q", ErrUploadFormat, ext)
	}
	if err != nil {
		return nil, err
	}
	return toTransactions(records, serial)
}

func readDelimited(r io.Reader, comma rune) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUploadFormat, err)
	}
	return records, nil
}

// readWorkbook reads the first sheet with raw cell values, so date cells
// come back as spreadsheet serial numbers rather than locale-formatted text.
func readWorkbook(r io.Reader) ([][]string, func(string) (core.Date, bool), error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrUploadFormat, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("%w: workbook has no sheets", ErrUploadFormat)
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrUploadFormat, err)
	}
	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}
	serial := func(s string) (core.Date, bool) {
		n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return core.Date{}, false
		}
		t, err := excelize.ExcelDateToTime(n, date1904)
		if err != nil {
			return core.Date{}, false
		}
		return core.DateOf(t), true
	}
	return rows, serial, nil
}

func toTransactions(records [][]string, serial func(string) (core.Date, bool)) ([]core.Transaction, error) {
	out := make([]core.Transaction, 0, len(records))
	for i, rec := range records {
		line := i + 1
		if blank(rec) {
			continue
		}
		if len(rec) != Columns {
			return nil, fmt.Errorf("%w: row %d has %d columns, expected %d (date, amount, type)", ErrUploadFormat, line, len(rec), Columns)
		}
		d, err := core.ParseDayFirst(rec[0])
		if err != nil && serial != nil {
			if sd, ok := serial(rec[0]); ok {
				d, err = sd, nil
			}
		}
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %w", ErrUploadFormat, line, err)
		}
		amt, err := core.ParseAmount(rec[1])
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %w", ErrUploadFormat, line, err)
		}
		typ, err := core.ParseTxType(rec[2])
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %w", ErrUploadFormat, line, err)
		}
		out = append(out, core.Transaction{Date: d, Type: typ, Amount: amt})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: file contains no rows", ErrUploadFormat)
	}
	return out, nil
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
