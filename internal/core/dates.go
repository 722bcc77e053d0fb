package core

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Layouts the record store may hand back as text. Sheets date cells are
// read as serial numbers instead, see DateFromSerial.
var storedLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2/1/2006",
	"2/1/2006 15:04:05",
}

// serialEpoch is day zero of spreadsheet serial dates.
var serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// Layouts for uploaded files, which are read day-first.
var dayFirstLayouts = []string{
	"2/1/2006",
	"2-1-2006",
	"2.1.2006",
	"2/1/06",
	"2006-01-02",
	"2006-01-02 15:04:05",
}

// ParseDate parses a date as stored in the record store.
func ParseDate(s string) (Date, error) {
	return parseWith(s, storedLayouts)
}

// DateFromSerial converts a spreadsheet serial date (days since
// 1899-12-30, time of day as the fraction) to its calendar date.
func DateFromSerial(serial float64) Date {
	return DateOf(serialEpoch.AddDate(0, 0, int(math.Floor(serial))))
}

// ParseDayFirst parses a date written day-first, e.g. 15/06/2024.
func ParseDayFirst(s string) (Date, error) {
	return parseWith(s, dayFirstLayouts)
}

func parseWith(s string, layouts []string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, fmt.Errorf("%w: empty", ErrInvalidDate)
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), nil
		}
	}
	return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}
