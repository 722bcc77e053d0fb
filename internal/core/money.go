// Package core provides money parsing and handling utilities.
//
// Amounts are held as integer cents so sums and differences are exact.
// Parsing goes through shopspring/decimal and display uses comma grouping.
package core

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// ParseAmount converts a decimal string to cents with half-up rounding.
//
// It accepts an optional leading "$", thousands separators and either a dot
// or a comma as decimal separator. Ambiguous grouping and negative values
// are rejected.
//
// Examples:
//
//	ParseAmount("12.34")     -> 1234
//	ParseAmount("$1,234.50") -> 123450
//	ParseAmount("1.234,50")  -> 123450
//	ParseAmount("12,5")      -> 1250
//	ParseAmount("12.345")    -> 1235
func ParseAmount(s string) (Money, error) {
	norm, err := normalizeAmount(s)
	if err != nil {
		return Money{}, err
	}
	d, err := decimal.NewFromString(norm)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if d.IsNegative() {
		return Money{}, fmt.Errorf("%w: %q is negative", ErrInvalidAmount, s)
	}
	return MoneyFromDecimal(d), nil
}

// normalizeAmount rewrites s with a dot as the only separator. When both
// separators appear the last one is the decimal separator, so 1,234.56 and
// 1.234,56 read the same. A lone comma followed by three digits groups
// thousands; several dots group thousands too. Grouping must come in
// threes.
func normalizeAmount(s string) (string, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidAmount)
	}

	dot, comma := strings.LastIndex(s, "."), strings.LastIndex(s, ",")
	var dec, group string
	switch {
	case dot >= 0 && comma >= 0:
		dec, group = ".", ","
		if comma > dot {
			dec, group = ",", "."
		}
	case dot >= 0:
		if strings.Count(s, ".") > 1 {
			group = "."
		} else {
			dec = "."
		}
	case comma >= 0:
		if strings.Count(s, ",") == 1 && len(s)-comma-1 != 3 {
			dec = ","
		} else {
			group = ","
		}
	default:
		return s, nil
	}

	whole, frac := s, ""
	if dec != "" {
		if strings.Count(s, dec) > 1 {
			return "", fmt.Errorf("%w: %q has more than one decimal separator", ErrInvalidAmount, s)
		}
		i := strings.LastIndex(s, dec)
		whole, frac = s[:i], s[i+1:]
	}
	if group != "" {
		if !groupedByThousands(whole, group) {
			return "", fmt.Errorf("%w: %q has misplaced thousands separators", ErrInvalidAmount, s)
		}
		whole = strings.ReplaceAll(whole, group, "")
	}
	if dec == "" {
		return whole, nil
	}
	return whole + "." + frac, nil
}

func groupedByThousands(s, sep string) bool {
	if !strings.Contains(s, sep) {
		return true
	}
	parts := strings.Split(s, sep)
	lead := strings.TrimPrefix(parts[0], "-")
	if len(lead) < 1 || len(lead) > 3 {
		return false
	}
	for _, p := range parts[1:] {
		if len(p) != 3 {
			return false
		}
	}
	return true
}

// MoneyFromDecimal rounds d half away from zero to whole cents.
func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money{Cents: d.Shift(2).Round(0).IntPart()}
}

// Decimal returns the amount in dollars as an exact decimal.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// Float64 is only meant for charting; never sum the result.
func (m Money) Float64() float64 {
	f, _ := m.Decimal().Float64()
	return f
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }

func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }

func (m Money) IsZero() bool { return m.Cents == 0 }

// String renders the amount with two decimals and no grouping, the form
// written to the record store.
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Grouped renders the amount with comma grouping, e.g. "-1,234.50".
func (m Money) Grouped() string {
	cents := m.Cents
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%s.%02d", sign, humanize.Comma(cents/100), cents%100)
}

// Dollars renders the amount for summary tiles, e.g. "$2,000.00".
func (m Money) Dollars() string {
	return "$" + m.Grouped()
}

// Signed renders a delta with an explicit sign, e.g. "+1,500.00".
func (m Money) Signed() string {
	if m.Cents >= 0 {
		return "+" + m.Grouped()
	}
	return m.Grouped()
}
