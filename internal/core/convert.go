package core

// convert.go provides value coercion for spreadsheet cells.
//
// These functions handle the messy reality of user-provided spreadsheets:
//   - Currency symbols and thousand separators in numbers
//   - Accounting negatives written as (123.45)
//   - Excel formula prefixes (="value")
//   - Whitespace around values

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// numericRegex validates that a string is a valid numeric format after cleanup.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// currencyReplacer strips the currency symbols and separators accepted in numeric cells.
var currencyReplacer = strings.NewReplacer(
	"$", "",
	"€", "", // Euro
	"£", "", // Pound
	",", "",
)

// ParseNumber converts a cell to a decimal.
// Returns false if the cell is empty or not numeric after cleanup.
func ParseNumber(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}

	// Detect negative accounting format "(123.45)"
	isNegative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		isNegative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.TrimSpace(currencyReplacer.Replace(s))

	if isNegative {
		s = "-" + s
	}

	if !numericRegex.MatchString(s) {
		return decimal.Zero, false
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// CoerceNumber applies the numeric field policy to a raw cell:
// blank input is 0 with no warning, unparsable input is 0 with a warning.
func CoerceNumber(field, raw string) (Value, *CoercionWarning) {
	if strings.TrimSpace(raw) == "" {
		return NumberValue(raw, decimal.Zero), nil
	}
	n, ok := ParseNumber(raw)
	if !ok {
		return NumberValue(raw, decimal.Zero), &CoercionWarning{Field: field, Value: raw}
	}
	return NumberValue(raw, n), nil
}

// CleanCell removes spreadsheet artifacts from a cell value:
// - Trims whitespace
// - Unwraps the Excel text formula form ="..."
// Quotes that are part of the text are kept.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") && len(s) >= 3 {
		s = s[2 : len(s)-1]
	}

	return s
}
