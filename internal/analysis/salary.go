// Package analysis computes salary statistics over scraped job listings.
// Salary text that cannot be parsed is treated as absent and never
// reported as an error.
package analysis

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	currencySymbol = "€"
	perMonthSuffix = "/permėn."
	rangeSeparator = "-"
)

// ParseSalary extracts a monthly salary from the board's salary text.
// A range such as "1000-2000" yields its midpoint. The second return value
// is false when the text holds no usable number.
func ParseSalary(text string) (float64, bool) {
	text = strings.TrimSpace(norm.NFKC.String(text))
	if text == "" || text == "–" || text == rangeSeparator {
		return 0, false
	}

	text = strings.ReplaceAll(text, currencySymbol, "")
	text = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, text)
	text = strings.ReplaceAll(text, perMonthSuffix, "")

	if strings.Contains(text, rangeSeparator) {
		bounds := strings.Split(text, rangeSeparator)
		if len(bounds) != 2 {
			return 0, false
		}
		low, ok := parseNumber(bounds[0])
		if !ok {
			return 0, false
		}
		high, ok := parseNumber(bounds[1])
		if !ok {
			return 0, false
		}
		return (low + high) / 2, true
	}

	return parseNumber(text)
}

func parseNumber(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
