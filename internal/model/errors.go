package model

import (
	"errors"
	"fmt"
)

// Sentinel errors for statistical insufficiency. They are scoped to the
// computation that produced them and never abort sibling computations.
var (
	// ErrEmptyRankingSet means the target day has no historical precedent.
	ErrEmptyRankingSet = errors.New("no historical data for this day")
	// ErrTargetNotFound means the target date is absent from the ranking set
	// or carries no value for the ranked metric.
	ErrTargetNotFound = errors.New("target date not present in ranking set")
	// ErrInsufficientData is matched by every *InsufficientDataError.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrEmptyWindow means the recent window holds no valid records.
	ErrEmptyWindow = errors.New("no data for this period")
)

// MissingColumnError reports a required column absent from the input schema.
// It aborts analysis of the whole dataset.
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("required column %q not found", e.Column)
}

// UnsupportedEncodingError is raised by the loader when the raw bytes are
// neither UTF-8 nor CP949.
type UnsupportedEncodingError struct {
	Path string
}

func (e *UnsupportedEncodingError) Error() string {
	if e.Path == "" {
		return "unsupported encoding (expected UTF-8 or CP949)"
	}
	return fmt.Sprintf("%s: unsupported encoding (expected UTF-8 or CP949)", e.Path)
}

// DateParseError describes one record whose date field could not be parsed.
// These are recovered: the record is dropped and counted.
type DateParseError struct {
	Row   int
	Value string
}

func (e *DateParseError) Error() string {
	return fmt.Sprintf("row %d: invalid date %q", e.Row, e.Value)
}

// InsufficientDataError reports a regression with fewer than two usable points.
type InsufficientDataError struct {
	Metric Metric
	Points int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("trend %s: need at least 2 years with data, got %d", e.Metric, e.Points)
}

// Is lets errors.Is(err, ErrInsufficientData) match.
func (e *InsufficientDataError) Is(target error) bool {
	return target == ErrInsufficientData
}
