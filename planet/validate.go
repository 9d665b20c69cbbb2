package planet

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	ReasonNonNumeric = "non-numeric"
	ReasonOutOfRange = "out of range"
)

// ValidationError reports the first field that failed validation.
type ValidationError struct {
	Field  Field
	Reason string
}

func (e *ValidationError) Error() string {
	if r, ok := ScientificRanges[e.Field]; ok && e.Reason == ReasonOutOfRange {
		return fmt.Sprintf("%s %s [%g,%g]", e.Field, e.Reason, r.Min, r.Max)
	}
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// Validate checks every field in order and stops at the first failure.
// It returns nil when all six values parse and sit inside their ranges.
func Validate(values RawValues) error {
	for _, f := range Fields {
		v, ok := ParseValue(values[f])
		if !ok {
			return &ValidationError{Field: f, Reason: ReasonNonNumeric}
		}
		if r, ok := ScientificRanges[f]; ok && !r.Contains(v) {
			return &ValidationError{Field: f, Reason: ReasonOutOfRange}
		}
	}
	return nil
}

// ParseValue reads the longest numeric prefix of raw, so "1.5 AU" yields 1.5.
// Only plain decimal notation and "Infinity" count as numeric. Empty input,
// a missing prefix and NaN are rejected.
func ParseValue(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	if v, ok := parseInfinity(s); ok {
		return v, true
	}
	for end := len(s); end > 0; end-- {
		prefix := s[:end]
		if !isDecimalPrefix(prefix) {
			continue
		}
		v, err := strconv.ParseFloat(prefix, 64)
		if err == nil || errors.Is(err, strconv.ErrRange) {
			return v, !math.IsNaN(v)
		}
	}
	return 0, false
}

func parseInfinity(s string) (float64, bool) {
	sign := 1
	switch {
	case strings.HasPrefix(s, "-"):
		sign, s = -1, s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}
	if !strings.HasPrefix(s, "Infinity") {
		return 0, false
	}
	return math.Inf(sign), true
}

// isDecimalPrefix limits prefix parsing to plain decimal notation, keeping
// ParseFloat extensions such as hex floats and "inf" spellings out.
func isDecimalPrefix(s string) bool {
	for i, c := range s {
		switch {
		case c >= '0' && c <= '9', c == '.':
		case (c == '+' || c == '-') && (i == 0 || s[i-1] == 'e' || s[i-1] == 'E'):
		case (c == 'e' || c == 'E') && i > 0:
		default:
			return false
		}
	}
	return true
}
