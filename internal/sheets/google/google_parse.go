package google

import (
	"fmt"
	"strconv"
	"strings"

	"budget/internal/core"
)

// parseValues converts a values matrix (as returned by the Sheets API with
// unformatted values) into rows keyed by canonical column. The first
// non-empty row is the header. Blank rows are dropped. Numeric cells in
// the Date column are serial dates and come out as YYYY-MM-DD.
func parseValues(table core.Table, values [][]interface{}) []core.Row {
	var header []string
	dateCol := -1
	rows := make([]core.Row, 0, len(values))
	for _, raw := range values {
		cols := toStrings(raw, dateCol)
		if blank(cols) {
			continue
		}
		if header == nil {
			header = cols
			for i, h := range header {
				if table.CanonicalColumn(h) == core.ColDate {
					dateCol = i
				}
			}
			continue
		}
		rows = append(rows, table.NewRow(header, cols))
	}
	return rows
}

// a1Range quotes the sheet name so names with spaces resolve.
func a1Range(sheet, from, to string) string {
	return fmt.Sprintf("'%s'!%s:%s", strings.ReplaceAll(sheet, "'", "''"), from, to)
}

func toStrings(in []interface{}, dateCol int) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = cellString(v, i == dateCol)
	}
	return out
}

func cellString(v interface{}, date bool) string {
	switch x := v.(type) {
	case nil:
		return ""
	case float64:
		if date {
			return core.DateFromSerial(x).String()
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}

func blank(cols []string) bool {
	for _, c := range cols {
		if c != "" {
			return false
		}
	}
	return true
}
