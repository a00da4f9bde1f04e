// Package config handles loading and resolving almanac configuration.
// Resolution order (first non-empty value wins):
//  1. CLI flags (--file, --format, --skip-rows, --metrics-out)
//  2. Environment variables ALMANAC_FILE, ALMANAC_FORMAT, ALMANAC_METRICS_OUT,
//     also read from a .env file in the working directory
//  3. config.json in the current working directory
//  4. Built-in defaults
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DefaultConfigFile  = "config.json"
	DefaultEnvFile     = ".env"
	DefaultFormat      = "table"
	DefaultGlob        = "ta*.csv"
	DefaultDateLayout  = "2006-01-02"
	DefaultSkipRows    = -1
	DefaultTopK        = 5
	DefaultWindowDays  = 7
	DefaultConcurrency = 3
	EnvFile            = "ALMANAC_FILE"
	EnvFormat          = "ALMANAC_FORMAT"
	EnvMetricsOut      = "ALMANAC_METRICS_OUT"
)

// Where Config.DataFile was set.
const (
	SourceFlag = "flag"
	SourceEnv  = "env"
	SourceFile = "config"
)

// Explicit reports whether the data file was named by a flag or the
// environment rather than config.json.
func (c *Config) Explicit() bool {
	return c.FileSource == SourceFlag || c.FileSource == SourceEnv
}

// Columns names the source table's headers.
type Columns struct {
	Date string `json:"date,omitempty"`
	High string `json:"high,omitempty"`
	Low  string `json:"low,omitempty"`
	Mean string `json:"mean,omitempty"`
}

// DefaultColumns matches the KMA daily temperature export.
func DefaultColumns() Columns {
	return Columns{
		Date: "날짜",
		High: "최고기온(℃)",
		Low:  "최저기온(℃)",
		Mean: "평균기온(℃)",
	}
}

// File is the on-disk representation of config.json.
type File struct {
	DataFile      string  `json:"data_file"`
	DefaultGlob   string  `json:"default_glob"`
	DefaultFormat string  `json:"default_format"`
	DateLayout    string  `json:"date_layout"`
	Columns       Columns `json:"columns"`
	SkipRows      *int    `json:"skip_rows,omitempty"` // nil → default; -1 → auto-detect
	TopK          int     `json:"top_k"`
	WindowDays    int     `json:"window_days"`
	Concurrency   int     `json:"concurrency"`
	MetricsOut    string  `json:"metrics_out"`
}

// Config is the fully-resolved runtime configuration.
// All callers use this struct; the File is only read during loading.
type Config struct {
	DataFile    string
	FileSource  string // SourceFlag, SourceEnv, SourceFile or empty
	Glob        string
	Format      string
	DateLayout  string
	Columns     Columns
	SkipRows    int
	TopK        int
	WindowDays  int
	Concurrency int
	MetricsOut  string
	ConfigPath  string // path of the config.json that was loaded (empty if none found)

	// Runtime overrides set from CLI flags after Load()
	Quiet   bool
	Verbose bool
	Debug   bool
}

// Flags carries the CLI values that take part in resolution.
// Empty strings and a nil SkipRows mean "not set".
type Flags struct {
	File       string
	Format     string
	MetricsOut string
	SkipRows   *int
}

// Load resolves configuration from all sources.
func Load(flags Flags) (*Config, error) {
	cfg := &Config{
		Glob:        DefaultGlob,
		Format:      DefaultFormat,
		DateLayout:  DefaultDateLayout,
		Columns:     DefaultColumns(),
		SkipRows:    DefaultSkipRows,
		TopK:        DefaultTopK,
		WindowDays:  DefaultWindowDays,
		Concurrency: DefaultConcurrency,
	}

	// Layer 1: config.json (lowest priority)
	f, path, err := loadFile()
	if err != nil {
		return nil, err
	}
	if f != nil {
		applyFile(cfg, f, path)
	}

	// Layer 2: environment, with .env filling in unset variables
	if err := godotenv.Load(DefaultEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("ignoring .env", "path", DefaultEnvFile, "error", err)
	}
	if v := os.Getenv(EnvFile); v != "" {
		cfg.DataFile, cfg.FileSource = v, SourceEnv
	}
	if v := os.Getenv(EnvFormat); v != "" {
		cfg.Format = v
	}
	if v := os.Getenv(EnvMetricsOut); v != "" {
		cfg.MetricsOut = v
	}

	// Layer 3: CLI flags (highest priority)
	if flags.File != "" {
		cfg.DataFile, cfg.FileSource = flags.File, SourceFlag
	}
	if flags.Format != "" {
		cfg.Format = flags.Format
	}
	if flags.MetricsOut != "" {
		cfg.MetricsOut = flags.MetricsOut
	}
	if flags.SkipRows != nil {
		cfg.SkipRows = *flags.SkipRows
	}

	return cfg, nil
}

// loadFile reads config.json from the current working directory.
// A missing file is not an error and returns a nil File.
func loadFile() (*File, string, error) {
	path, err := filepath.Abs(DefaultConfigFile)
	if err != nil {
		return nil, "", err
	}
	f, err := ReadFile(path)
	if os.IsNotExist(err) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", err
	}
	return f, path, nil
}

// ReadFile parses the config file at path.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, err
		}
		return nil, fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return &f, nil
}

// applyFile copies values from a parsed File into cfg,
// skipping any fields that are zero/empty.
func applyFile(cfg *Config, f *File, path string) {
	cfg.ConfigPath = path
	if f.DataFile != "" {
		cfg.DataFile, cfg.FileSource = f.DataFile, SourceFile
	}
	if f.DefaultGlob != "" {
		cfg.Glob = f.DefaultGlob
	}
	if f.DefaultFormat != "" {
		cfg.Format = f.DefaultFormat
	}
	if f.DateLayout != "" {
		cfg.DateLayout = f.DateLayout
	}
	if f.Columns.Date != "" {
		cfg.Columns.Date = f.Columns.Date
	}
	if f.Columns.High != "" {
		cfg.Columns.High = f.Columns.High
	}
	if f.Columns.Low != "" {
		cfg.Columns.Low = f.Columns.Low
	}
	if f.Columns.Mean != "" {
		cfg.Columns.Mean = f.Columns.Mean
	}
	if f.SkipRows != nil && *f.SkipRows >= -1 {
		cfg.SkipRows = *f.SkipRows
	}
	if f.TopK > 0 {
		cfg.TopK = f.TopK
	}
	if f.WindowDays > 0 {
		cfg.WindowDays = f.WindowDays
	}
	if f.Concurrency > 0 {
		cfg.Concurrency = f.Concurrency
	}
	if f.MetricsOut != "" {
		cfg.MetricsOut = f.MetricsOut
	}
}

// Template returns a File populated with sensible defaults, suitable for
// writing an initial config.json via `almanac config init`.
func Template() File {
	skip := DefaultSkipRows
	return File{
		DefaultGlob:   DefaultGlob,
		DefaultFormat: DefaultFormat,
		DateLayout:    DefaultDateLayout,
		Columns:       DefaultColumns(),
		SkipRows:      &skip,
		TopK:          DefaultTopK,
		WindowDays:    DefaultWindowDays,
		Concurrency:   DefaultConcurrency,
	}
}

// WriteFile serialises a File to the given path.
func WriteFile(path string, f File) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0600)
}

// ─── Keys ─────────────────────────────────────────────────────────────────────

// field binds a dotted config key to a File field.
type field struct {
	get func(f *File) string
	set func(f *File, v string) error
}

func stringField(p func(f *File) *string) field {
	return field{
		get: func(f *File) string { return *p(f) },
		set: func(f *File, v string) error { *p(f) = v; return nil },
	}
}

func intField(key string, min int, p func(f *File) *int) field {
	return field{
		get: func(f *File) string { return strconv.Itoa(*p(f)) },
		set: func(f *File, v string) error {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil || n < min {
				return fmt.Errorf("%s: expected an integer ≥ %d, got %q", key, min, v)
			}
			*p(f) = n
			return nil
		},
	}
}

var fields = map[string]field{
	"data_file":      stringField(func(f *File) *string { return &f.DataFile }),
	"default_glob":   stringField(func(f *File) *string { return &f.DefaultGlob }),
	"default_format": stringField(func(f *File) *string { return &f.DefaultFormat }),
	"date_layout":    stringField(func(f *File) *string { return &f.DateLayout }),
	"columns.date":   stringField(func(f *File) *string { return &f.Columns.Date }),
	"columns.high":   stringField(func(f *File) *string { return &f.Columns.High }),
	"columns.low":    stringField(func(f *File) *string { return &f.Columns.Low }),
	"columns.mean":   stringField(func(f *File) *string { return &f.Columns.Mean }),
	"metrics_out":    stringField(func(f *File) *string { return &f.MetricsOut }),
	"top_k":          intField("top_k", 1, func(f *File) *int { return &f.TopK }),
	"window_days":    intField("window_days", 1, func(f *File) *int { return &f.WindowDays }),
	"concurrency":    intField("concurrency", 1, func(f *File) *int { return &f.Concurrency }),
	"skip_rows": {
		get: func(f *File) string {
			if f.SkipRows == nil {
				return ""
			}
			return strconv.Itoa(*f.SkipRows)
		},
		set: func(f *File, v string) error {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil || n < -1 {
				return fmt.Errorf("skip_rows: expected -1 (auto) or a row count, got %q", v)
			}
			f.SkipRows = &n
			return nil
		},
	},
}

// Keys lists every settable key, sorted.
func Keys() []string {
	out := make([]string, 0, len(fields))
	for k := range fields {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Get returns the value of key in f.
func (f *File) Get(key string) (string, error) {
	fd, ok := fields[key]
	if !ok {
		return "", unknownKey(key)
	}
	return fd.get(f), nil
}

// Set parses value and stores it under key in f.
func (f *File) Set(key, value string) error {
	fd, ok := fields[key]
	if !ok {
		return unknownKey(key)
	}
	return fd.set(f, value)
}

func unknownKey(key string) error {
	return fmt.Errorf("unknown config key %q (valid: %s)", key, strings.Join(Keys(), ", "))
}
