// Package loader reads a raw temperature table from disk: CSV exports in
// UTF-8 (with or without BOM) or CP949, and .xlsx workbooks. It produces a
// normalize.Table and leaves every semantic decision to the normalizer.
package loader

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/derickschaefer/almanac/internal/model"
	"github.com/derickschaefer/almanac/internal/normalize"
)

// AutoDetect as Options.SkipRows locates the header row by the date column.
const AutoDetect = -1

// KMASkipRows is the length of the preamble in KMA daily exports.
const KMASkipRows = 7

// Encoding names reported by Decode.
const (
	EncodingUTF8  = "utf-8"
	EncodingCP949 = "cp949"
)

// ErrNoHeader is returned when no header row can be found.
var ErrNoHeader = errors.New("no header row found")

// Options controls how a file is turned into a table.
type Options struct {
	// SkipRows skips exactly that many leading rows before the header.
	// AutoDetect picks the first row containing DateColumn.
	SkipRows int
	// DateColumn identifies the header row when auto-detecting.
	DateColumn string
	// Sheet selects an .xlsx worksheet; empty means the first one.
	Sheet string
}

// Load reads path into a table, dispatching on the file extension.
func Load(path string, opts Options) (normalize.Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return loadXLSX(path, opts)
	default:
		raw, err := os.ReadFile(path)
		if err != nil {
			return normalize.Table{}, fmt.Errorf("reading %s: %w", path, err)
		}
		text, enc, err := Decode(raw)
		if err != nil {
			var uee *model.UnsupportedEncodingError
			if errors.As(err, &uee) {
				uee.Path = path
			}
			return normalize.Table{}, err
		}
		t, err := ReadCSV(bytes.NewReader(text), opts)
		if err != nil {
			return normalize.Table{}, fmt.Errorf("parsing %s: %w", path, err)
		}
		slog.Info("loaded table", "path", path, "encoding", enc, "columns", len(t.Columns), "rows", len(t.Records))
		return t, nil
	}
}

// Decode returns raw as UTF-8 text. Valid UTF-8 is used as is, minus any
// BOM; anything else is decoded as CP949. If CP949 decoding still yields
// replacement characters the error is *model.UnsupportedEncodingError.
func Decode(raw []byte) ([]byte, string, error) {
	if utf8.Valid(raw) {
		out, _, err := transform.Bytes(unicode.UTF8BOM.NewDecoder(), raw)
		if err != nil {
			return nil, "", fmt.Errorf("decoding utf-8: %w", err)
		}
		return out, EncodingUTF8, nil
	}
	out, _, err := transform.Bytes(korean.EUCKR.NewDecoder(), raw)
	if err != nil || bytes.ContainsRune(out, utf8.RuneError) {
		return nil, "", &model.UnsupportedEncodingError{}
	}
	return out, EncodingCP949, nil
}

// ReadCSV parses UTF-8 CSV text into a table.
func ReadCSV(r io.Reader, opts Options) (normalize.Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return normalize.Table{}, err
	}
	return fromRows(rows, opts)
}

func loadXLSX(path string, opts Options) (normalize.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return normalize.Table{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	sheet := opts.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return normalize.Table{}, fmt.Errorf("%s: workbook has no sheets", path)
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return normalize.Table{}, fmt.Errorf("reading sheet %q of %s: %w", sheet, path, err)
	}
	t, err := fromRows(rows, opts)
	if err != nil {
		return normalize.Table{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	slog.Info("loaded table", "path", path, "sheet", sheet, "columns", len(t.Columns), "rows", len(t.Records))
	return t, nil
}

// fromRows picks the header row and maps every following non-blank row
// onto it. Cells are whitespace-trimmed; short rows leave columns unset.
func fromRows(rows [][]string, opts Options) (normalize.Table, error) {
	hdr, err := headerIndex(rows, opts)
	if err != nil {
		return normalize.Table{}, err
	}
	cols := make([]string, len(rows[hdr]))
	for i, c := range rows[hdr] {
		cols[i] = strings.TrimSpace(strings.TrimPrefix(c, "\ufeff"))
	}

	t := normalize.Table{Columns: cols}
	for _, row := range rows[hdr+1:] {
		if blank(row) {
			continue
		}
		rec := make(normalize.Record, len(cols))
		for i, c := range cols {
			if c == "" || i >= len(row) {
				continue
			}
			rec[c] = strings.TrimSpace(row[i])
		}
		t.Records = append(t.Records, rec)
	}
	return t, nil
}

func headerIndex(rows [][]string, opts Options) (int, error) {
	if opts.SkipRows >= 0 {
		if opts.SkipRows >= len(rows) {
			return 0, fmt.Errorf("%w: skip %d of %d rows", ErrNoHeader, opts.SkipRows, len(rows))
		}
		return opts.SkipRows, nil
	}
	for i, row := range rows {
		for _, c := range row {
			if strings.TrimSpace(strings.TrimPrefix(c, "\ufeff")) == opts.DateColumn {
				return i, nil
			}
		}
	}
	return 0, fmt.Errorf("%w: no row contains %q", ErrNoHeader, opts.DateColumn)
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// FindDefault returns the first file in dir matching glob, in name order.
func FindDefault(dir, glob string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, glob))
	if err != nil {
		return "", fmt.Errorf("bad glob %q: %w", glob, err)
	}
	sort.Strings(matches)
	for _, m := range matches {
		if fi, err := os.Stat(m); err == nil && fi.Mode().IsRegular() {
			return m, nil
		}
	}
	return "", fmt.Errorf("no file matching %q in %s", glob, dir)
}
