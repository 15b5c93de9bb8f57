package core

import (
	"strconv"
	"strings"
)

// ParseDecimal parses a numeric string with a layered fallback: direct
// parse first, then a retry with thousands-separator commas removed.
// The "give up" path is the explicit second return value, never a panic
// or a swallowed error.
func ParseDecimal(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v, true
	}
	cleaned := strings.ReplaceAll(s, ",", "")
	if v, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return v, true
	}
	return 0, false
}

// FormatDecimal formats a float in plain decimal notation, never
// scientific, so downstream float parsing stays unambiguous.
func FormatDecimal(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// NormalizeDecimal re-serializes a numeric string to plain decimal
// notation when it parses; otherwise the input is returned verbatim.
func NormalizeDecimal(s string) string {
	if v, ok := ParseDecimal(s); ok {
		return FormatDecimal(v)
	}
	return s
}
