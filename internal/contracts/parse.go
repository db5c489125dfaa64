package contracts

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseError reports a source cell that could not be read as a number
type ParseError struct {
	Field string
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: invalid number %q", e.Field, e.Input)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParsePolicy decides what happens to a row whose value does not parse
type ParsePolicy int

const (
	// DefaultToZero keeps the row with value 0.0
	DefaultToZero ParsePolicy = iota
	// SkipRow drops the row
	SkipRow
)

func (p ParsePolicy) String() string {
	switch p {
	case DefaultToZero:
		return "default-to-zero"
	case SkipRow:
		return "skip-row"
	default:
		return "unknown"
	}
}

// Apply resolves a parse result under the policy. keep is false when the
// row must be dropped.
func (p ParsePolicy) Apply(v float64, err error) (value float64, keep bool) {
	if err == nil {
		return v, true
	}
	if p == SkipRow {
		return 0, false
	}
	return 0, true
}

// ErrNotFinite is wrapped by a ParseError for NaN and infinite inputs
var ErrNotFinite = errors.New("value is not finite")

// ParseFloat reads a decimal value such as a positivity percentage or an
// RSV rate. Surrounding space and a trailing percent sign are ignored.
// NaN and infinities are rejected.
func ParseFloat(field, input string) (float64, error) {
	s := strings.TrimSpace(input)
	s = strings.TrimSuffix(s, "%")
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, &ParseError{Field: field, Input: input, Err: err}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &ParseError{Field: field, Input: input, Err: ErrNotFinite}
	}
	return v, nil
}

// ParseCount reads an integer counter as printed on Worldometers,
// e.g. "+1,234" or "1,234,567".
func ParseCount(field, input string) (float64, error) {
	s := strings.TrimSpace(input)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, "+", "")
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, &ParseError{Field: field, Input: input, Err: err}
	}
	return float64(n), nil
}
