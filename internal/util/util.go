// Package util provides shared utilities: date and year-range parsing,
// numeric coercion of raw table cells and error collection.
package util

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/derickschaefer/almanac/internal/model"
)

// ─── Date Parsing ─────────────────────────────────────────────────────────────

// ParseDate parses a YYYY-MM-DD string into a time.Time (UTC midnight).
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(model.DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return t, nil
}

// ParseYearRange parses "2000-2020", "2000-", "-2020", "2000" or "" into a
// YearRange. An empty side is unbounded; a single year is a one-year range.
func ParseYearRange(s string) (model.YearRange, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return model.YearRange{}, nil
	}
	from, to, found := strings.Cut(s, "-")
	if !found {
		to = from
	}
	var r model.YearRange
	var err error
	if from = strings.TrimSpace(from); from != "" && from != "*" {
		if r.From, err = strconv.Atoi(from); err != nil {
			return model.YearRange{}, fmt.Errorf("invalid year range %q", s)
		}
	}
	if to = strings.TrimSpace(to); to != "" && to != "*" {
		if r.To, err = strconv.Atoi(to); err != nil {
			return model.YearRange{}, fmt.Errorf("invalid year range %q", s)
		}
	}
	if err := r.Validate(); err != nil {
		return model.YearRange{}, err
	}
	return r, nil
}

// ─── Value Parsing ────────────────────────────────────────────────────────────

// ParseValue coerces a raw cell to float64. Strings are trimmed and parsed
// with strconv; anything unparseable or infinite becomes NaN.
func ParseValue(v any) float64 {
	switch x := v.(type) {
	case nil:
		return math.NaN()
	case float64:
		if math.IsInf(x, 0) {
			return math.NaN()
		}
		return x
	case float32:
		if math.IsInf(float64(x), 0) {
			return math.NaN()
		}
		return float64(x)
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case string:
		s := strings.TrimSpace(x)
		if s == "" || s == "." {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsInf(f, 0) {
			return math.NaN()
		}
		return f
	}
	return math.NaN()
}

// ─── Error Helpers ────────────────────────────────────────────────────────────

// MultiError collects multiple errors and presents them as one.
type MultiError struct {
	Errors []error
}

func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

func (m *MultiError) Err() error {
	if len(m.Errors) == 0 {
		return nil
	}
	return m
}

func (m *MultiError) Error() string {
	msgs := make([]string, len(m.Errors))
	for i, e := range m.Errors {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (m *MultiError) Unwrap() []error {
	return m.Errors
}

// Strings returns each collected error message.
func (m *MultiError) Strings() []string {
	out := make([]string, len(m.Errors))
	for i, e := range m.Errors {
		out[i] = e.Error()
	}
	return out
}
