package table

import (
	"math"
	"strconv"
	"strings"
)

// ParseNumber parses a spreadsheet-ish numeric cell. It accepts thousands separators,
// either '.' or ',' as decimal separator, a trailing percent sign and NBSP padding.
// Values such as "", "nan" or "n/a" report ok=false.
func ParseNumber(s string) (float64, bool) {
	raw := strings.TrimSpace(strings.ReplaceAll(s, "\u00A0", " "))
	raw = strings.TrimSuffix(raw, "%")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	// Decide decimal separator by the last occurrence of each candidate.
	dec := '.'
	cpos := strings.LastIndex(raw, ",")
	dpos := strings.LastIndex(raw, ".")
	switch {
	case cpos >= 0 && dpos >= 0 && cpos > dpos:
		dec = ','
	case cpos >= 0 && dpos < 0 && strings.Count(raw, ",") == 1 && len(raw)-cpos-1 != 3:
		// "0,5" is a decimal; "1,000" is a thousands group.
		dec = ','
	}
	for _, sep := range []rune{',', '.', ' '} {
		if sep != dec {
			raw = strings.ReplaceAll(raw, string(sep), "")
		}
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Coerce parses s as a number and falls back to zero. It never fails.
func Coerce(s string) float64 {
	f, _ := ParseNumber(s)
	return f
}

// FormatNumber renders a numeric cell for CSV export and option labels.
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
