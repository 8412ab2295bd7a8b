package model

import (
	"strconv"
	"strings"
)

// acsSentinels are ACS annotation values that stand in for missing estimates.
var acsSentinels = map[float64]bool{
	-999999999: true,
	-888888888: true,
	-666666666: true,
	-555555555: true,
	-333333333: true,
	-222222222: true,
}

// StatisticRow is one row of a statistics table keyed by small-area identifier.
type StatisticRow struct {
	ID     string            `json:"id"`
	Values map[string]string `json:"values"`
}

// Numeric returns the value of code as a number. Non-numeric values, blanks,
// and ACS annotation sentinels report false.
func (r StatisticRow) Numeric(code string) (float64, bool) {
	raw, ok := r.Values[code]
	if !ok {
		return 0, false
	}
	return ParseNumeric(raw)
}

// ParseNumeric parses a statistics cell, treating ACS sentinels as missing.
func ParseNumeric(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || acsSentinels[v] {
		return 0, false
	}
	return v, true
}

// IsSentinel reports whether raw is an ACS annotation value.
func IsSentinel(raw string) bool {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	return err == nil && acsSentinels[v]
}

// NumericValue extracts a number from a joined feature attribute.
func NumericValue(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, !acsSentinels[x]
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		return ParseNumeric(x)
	default:
		return 0, false
	}
}
