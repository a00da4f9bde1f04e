// Package cmd implements the almanac CLI command tree.
// This file defines the root command and registers all global persistent flags.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/almanac/internal/app"
	"github.com/derickschaefer/almanac/internal/config"
	"github.com/derickschaefer/almanac/internal/metrics"
)

// globalFlags holds the parsed values of all persistent (global) flags.
// Commands read from this struct via the deps they receive.
var globalFlags struct {
	File       string
	Format     string
	Out        string
	SkipRows   int
	MetricsOut string
	Quiet      bool
	Verbose    bool
	Debug      bool
}

// runDeps is the container built by the running command, kept for the
// post-run metrics export.
var runDeps *app.Deps

// rootCmd is the base command. Running `almanac` with no subcommand
// prints help.
var rootCmd = &cobra.Command{
	Use:   "almanac",
	Short: "almanac — daily temperature history and same-day rankings",
	Long: `almanac reads a daily temperature history (a KMA CSV export, an .xlsx
sheet or JSONL on stdin) and answers: how extreme was a day compared with
the same calendar day in every other year, how does the last week compare
with the same days historically, and which way is the long-term trend going.

Data source, first match wins:
  --file / ALMANAC_FILE, piped JSONL on stdin, data_file in config.json,
  then the first default_glob (ta*.csv) match in the working directory.

Quick start:
  almanac config init             # create config.json with KMA column names
  almanac day --date 2024-07-15   # rank a day against its history
  almanac report                  # everything for yesterday`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if runDeps == nil || runDeps.Config.MetricsOut == "" {
			return nil
		}
		if err := metrics.WriteTextfile(runDeps.Config.MetricsOut); err != nil {
			return fmt.Errorf("writing metrics: %w", err)
		}
		runDeps.Logger.Debug("metrics written", "path", runDeps.Config.MetricsOut)
		return nil
	},
}

// Execute is the entry point called by main.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

// buildDeps resolves config and constructs the dependency container.
// Called at the start of each command's RunE.
func buildDeps(cmd *cobra.Command) (*app.Deps, error) {
	flags := config.Flags{
		File:       globalFlags.File,
		Format:     globalFlags.Format,
		MetricsOut: globalFlags.MetricsOut,
	}
	if f := cmd.Flags().Lookup("skip-rows"); f != nil && f.Changed {
		n := globalFlags.SkipRows
		flags.SkipRows = &n
	}
	cfg, err := config.Load(flags)
	if err != nil {
		return nil, err
	}

	cfg.Quiet = globalFlags.Quiet
	cfg.Verbose = globalFlags.Verbose
	cfg.Debug = globalFlags.Debug

	runDeps = app.New(cfg)
	if cmd.InOrStdin() != os.Stdin {
		runDeps.Stdin, runDeps.StdinPiped = cmd.InOrStdin(), true
	}
	return runDeps, nil
}

func init() {
	pf := rootCmd.PersistentFlags()

	pf.StringVarP(&globalFlags.File, "file", "f", "",
		"temperature file: .csv (UTF-8 or CP949) or .xlsx (overrides env ALMANAC_FILE and config.json)")
	pf.StringVar(&globalFlags.Format, "format", "",
		"output format: table|json|jsonl|csv|tsv|md (default: table)")
	pf.StringVar(&globalFlags.Out, "out", "",
		"write output to file instead of stdout")
	pf.IntVar(&globalFlags.SkipRows, "skip-rows", config.DefaultSkipRows,
		"lines before the CSV header; -1 finds the header row automatically")
	pf.StringVar(&globalFlags.MetricsOut, "metrics-out", "",
		"write Prometheus text-format metrics to this file after the run")
	pf.BoolVar(&globalFlags.Quiet, "quiet", false,
		"suppress warnings and footers")
	pf.BoolVar(&globalFlags.Verbose, "verbose", false,
		"show timing stats after output and log at info level")
	pf.BoolVar(&globalFlags.Debug, "debug", false,
		"log loader and analysis steps at debug level")
}
