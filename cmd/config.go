package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/almanac/internal/config"
	"github.com/derickschaefer/almanac/internal/model"
	"github.com/derickschaefer/almanac/internal/render"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage almanac configuration",
	Long: `Read and write almanac configuration stored in config.json.

Settable keys:
  ` + strings.Join(config.Keys(), "\n  "),
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a template config.json in the current directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.DefaultConfigFile
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config.json already exists at %s (delete it first to re-initialise)", path)
		}
		if err := config.WriteFile(path, config.Template()); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "✓ Created %s\n", path)
		fmt.Fprintln(out, "  Column names default to the KMA daily export (일시, 최고기온(℃), …).")
		fmt.Fprintln(out, "  Set data_file or drop a ta*.csv next to it to get started.")
		return nil
	},
}

// configOut is the resolved configuration as printed by `config get`.
type configOut struct {
	DataFile    string         `json:"data_file"`
	FileSource  string         `json:"data_file_source,omitempty"`
	Glob        string         `json:"default_glob"`
	Format      string         `json:"default_format"`
	DateLayout  string         `json:"date_layout"`
	Columns     config.Columns `json:"columns"`
	SkipRows    int            `json:"skip_rows"`
	TopK        int            `json:"top_k"`
	WindowDays  int            `json:"window_days"`
	Concurrency int            `json:"concurrency"`
	MetricsOut  string         `json:"metrics_out"`
	ConfigFile  string         `json:"config_file"`
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print the resolved configuration, or one key from config.json",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			f, err := config.ReadFile(config.DefaultConfigFile)
			if os.IsNotExist(err) {
				f, err = ptr(config.Template()), nil
			}
			if err != nil {
				return err
			}
			v, err := f.Get(strings.ToLower(args[0]))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		}

		start := time.Now()
		deps, err := buildDeps(cmd)
		if err != nil {
			return err
		}
		cfg := deps.Config
		src := "(not found)"
		if cfg.ConfigPath != "" {
			src = cfg.ConfigPath
		}
		out := configOut{
			DataFile:    cfg.DataFile,
			FileSource:  cfg.FileSource,
			Glob:        cfg.Glob,
			Format:      cfg.Format,
			DateLayout:  cfg.DateLayout,
			Columns:     cfg.Columns,
			SkipRows:    cfg.SkipRows,
			TopK:        cfg.TopK,
			WindowDays:  cfg.WindowDays,
			Concurrency: cfg.Concurrency,
			MetricsOut:  cfg.MetricsOut,
			ConfigFile:  src,
		}

		format := resolveFormat(cfg.Format)
		switch format {
		case render.FormatJSON, render.FormatJSONL:
			enc := json.NewEncoder(cmd.OutOrStdout())
			if format == render.FormatJSON {
				enc.SetIndent("", "  ")
			}
			return enc.Encode(out)
		}

		dataFile := out.DataFile
		if dataFile == "" {
			dataFile = "(not set)"
		} else if out.FileSource != "" {
			dataFile += " [" + out.FileSource + "]"
		}
		skip := strconv.Itoa(out.SkipRows)
		if out.SkipRows < 0 {
			skip = "auto"
		}
		rows := [][]string{
			{"data_file", dataFile},
			{"default_glob", out.Glob},
			{"default_format", out.Format},
			{"date_layout", out.DateLayout},
			{"columns.date", out.Columns.Date},
			{"columns.high", out.Columns.High},
			{"columns.low", out.Columns.Low},
			{"columns.mean", out.Columns.Mean},
			{"skip_rows", skip},
			{"top_k", strconv.Itoa(out.TopK)},
			{"window_days", strconv.Itoa(out.WindowDays)},
			{"concurrency", strconv.Itoa(out.Concurrency)},
			{"metrics_out", out.MetricsOut},
			{"config_file", out.ConfigFile},
		}
		if format == render.FormatTable {
			printKVTable(cmd.OutOrStdout(), rows)
			return nil
		}
		tbl := render.Table{Headers: []string{"KEY", "VALUE"}, Rows: rows}
		result := newResult(model.KindTable, "config get", tbl, start)
		result.Stats.Items = len(rows)
		return emit(cmd, deps, result)
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value in config.json",
	Example: `  almanac config set data_file ta_20240101.csv
  almanac config set columns.high "최고기온(°C)"
  almanac config set skip_rows 7`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := strings.ToLower(args[0])
		path := config.DefaultConfigFile

		// Load existing file or start from template
		f, err := config.ReadFile(path)
		if os.IsNotExist(err) {
			f, err = ptr(config.Template()), nil
		}
		if err != nil {
			return err
		}
		if err := f.Set(key, args[1]); err != nil {
			return err
		}
		if err := config.WriteFile(path, *f); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Set %s in %s\n", key, path)
		return nil
	},
}

func ptr[T any](v T) *T { return &v }

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
}
