// Package app wires together configuration, logging and the data source
// into a single Deps struct that commands receive at runtime.
package app

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/derickschaefer/almanac/internal/config"
	"github.com/derickschaefer/almanac/internal/loader"
	"github.com/derickschaefer/almanac/internal/model"
	"github.com/derickschaefer/almanac/internal/normalize"
	"github.com/derickschaefer/almanac/internal/pipeline"
)

// Deps holds all runtime dependencies injected into command Run functions.
type Deps struct {
	Config *config.Config
	Logger *slog.Logger

	// Stdin is read when it is piped and no --file is given.
	Stdin      io.Reader
	StdinPiped bool
	// Dir is where default_glob is searched.
	Dir string
}

// New builds a Deps from resolved config and installs its logger as the
// slog default.
func New(cfg *config.Config) *Deps {
	logger := NewLogger(os.Stderr, cfg)
	slog.SetDefault(logger)
	return &Deps{
		Config:     cfg,
		Logger:     logger,
		Stdin:      os.Stdin,
		StdinPiped: pipeline.StdinPiped(),
		Dir:        ".",
	}
}

// NewLogger returns a text logger on w: Debug with --debug, Info with
// --verbose, Warn otherwise.
func NewLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	level := slog.LevelWarn
	switch {
	case cfg.Debug:
		level = slog.LevelDebug
	case cfg.Verbose:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Schema is the normalizer schema for file sources.
func (d *Deps) Schema() normalize.Schema {
	s := normalize.DefaultSchema()
	c := d.Config.Columns
	s.Date, s.High, s.Low, s.Mean = c.Date, c.High, c.Low, c.Mean
	if d.Config.DateLayout != "" {
		s.Layout = d.Config.DateLayout
	}
	return s
}

// LoaderOptions maps the config onto loader options.
func (d *Deps) LoaderOptions() loader.Options {
	return loader.Options{
		SkipRows:   d.Config.SkipRows,
		DateColumn: d.Config.Columns.Date,
	}
}

// ─── Source resolution ────────────────────────────────────────────────────────

// Source describes where the series came from.
type Source struct {
	Stdin bool   `json:"stdin,omitempty"`
	Path  string `json:"path,omitempty"`
}

func (s Source) String() string {
	if s.Stdin {
		return "stdin"
	}
	return s.Path
}

// ResolveSource picks the data source: a file named by --file or
// ALMANAC_FILE, then piped stdin, then data_file from config.json, then the
// first default_glob match.
func (d *Deps) ResolveSource() (Source, error) {
	if d.Config.DataFile != "" && d.Config.Explicit() {
		return Source{Path: d.Config.DataFile}, nil
	}
	if d.StdinPiped && d.Stdin != nil {
		return Source{Stdin: true}, nil
	}
	if d.Config.DataFile != "" {
		return Source{Path: d.Config.DataFile}, nil
	}
	path, err := loader.FindDefault(d.Dir, d.Config.Glob)
	if err != nil {
		return Source{}, fmt.Errorf("no data source: pass --file, pipe JSONL on stdin, or place a %s file here (%w)", d.Config.Glob, err)
	}
	return Source{Path: path}, nil
}

// LoadSeries resolves the source, reads it and normalizes it.
func (d *Deps) LoadSeries() (*model.TimeSeries, normalize.Diagnostics, Source, error) {
	src, err := d.ResolveSource()
	if err != nil {
		return nil, normalize.Diagnostics{}, src, err
	}

	var table normalize.Table
	schema := d.Schema()
	if src.Stdin {
		table, err = pipeline.ReadRecords(d.Stdin)
		schema = pipeline.Schema()
	} else {
		table, err = loader.Load(src.Path, d.LoaderOptions())
	}
	if err != nil {
		return nil, normalize.Diagnostics{}, src, err
	}

	ts, diag, err := normalize.Normalize(table, schema)
	if err != nil {
		return nil, diag, src, fmt.Errorf("%s: %w", src, err)
	}
	d.Logger.Debug("series loaded", "source", src.String(), "records", ts.Len(), "span", ts.YearSpan().String())
	return ts, diag, src, nil
}
