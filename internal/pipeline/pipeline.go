// Package pipeline reads and writes daily records via stdin/stdout in JSONL,
// the canonical pipe format:
//
//	{"date":"2024-07-15","high":31.2,"low":23.9,"mean":27.0}
//
// Missing values are null.
package pipeline

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/derickschaefer/almanac/internal/model"
	"github.com/derickschaefer/almanac/internal/normalize"
)

// Column names of the pipe format.
const (
	ColDate = "date"
	ColHigh = "high"
	ColLow  = "low"
	ColMean = "mean"
)

// ErrEmptyInput is returned when the stream holds no records.
var ErrEmptyInput = errors.New("no records read from input (is stdin empty?)")

// Schema is the normalizer schema for pipe records. Every metric is
// optional so partial streams still load.
func Schema() normalize.Schema {
	return normalize.Schema{
		Date:   ColDate,
		High:   ColHigh,
		Low:    ColLow,
		Mean:   ColMean,
		Layout: model.DateLayout,
	}
}

// ReadRecords reads JSONL records from r into a raw table. Dates and values
// are passed through untouched so the normalizer applies its usual
// duplicate and missing-value policy.
func ReadRecords(r io.Reader) (normalize.Table, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	t := normalize.Table{Columns: []string{ColDate, ColHigh, ColLow, ColMean}}
	lineNum := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		lineNum++
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		var raw map[string]any
		if err := json.Unmarshal([]byte(line), &raw); err != nil {
			return normalize.Table{}, fmt.Errorf("line %d: invalid JSON: %w", lineNum, err)
		}
		rec := make(normalize.Record, 4)
		for _, c := range t.Columns {
			v, ok := raw[c]
			if !ok {
				continue
			}
			switch v.(type) {
			case nil, string, float64:
				rec[c] = v
			default:
				return normalize.Table{}, fmt.Errorf("line %d: unexpected %s type %T", lineNum, c, v)
			}
		}
		t.Records = append(t.Records, rec)
	}
	if err := scanner.Err(); err != nil {
		return normalize.Table{}, fmt.Errorf("reading input: %w", err)
	}
	if len(t.Records) == 0 {
		return normalize.Table{}, ErrEmptyInput
	}
	return t, nil
}

// WriteJSONL writes every record of ts as one JSON line.
func WriteJSONL(w io.Writer, ts *model.TimeSeries) error {
	enc := json.NewEncoder(w)
	for i := 0; i < ts.Len(); i++ {
		if err := enc.Encode(ts.At(i)); err != nil {
			return err
		}
	}
	return nil
}

// IsTTY returns true if stdout is a terminal (not a pipe).
func IsTTY() bool {
	return isCharDevice(os.Stdout)
}

// StdinPiped returns true when stdin is a pipe or file rather than a terminal.
func StdinPiped() bool {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice == 0 && (fi.Mode()&os.ModeNamedPipe != 0 || fi.Mode().IsRegular())
}

func isCharDevice(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
