package cmd

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/almanac/internal/render"
)

// Version is the release string, "dev" for `go run` and untagged builds.
// Release builds set it via:
//
//	go build -ldflags "-X github.com/derickschaefer/almanac/cmd.Version=v0.3.0"
var Version = "dev"

// versionInfo is the payload for --format json and jsonl.
type versionInfo struct {
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	GOOS      string `json:"goos"`
	GOARCH    string `json:"goarch"`
	BuildTime string `json:"build_time,omitempty"`
}

// BuildTime is optionally injected alongside Version:
//
//	-X github.com/derickschaefer/almanac/cmd.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)
var BuildTime = ""

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the almanac version and build information",
	Example: `  almanac version
  almanac version --format json | jq .version`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format := globalFlags.Format
		if format == "" {
			format = "text"
		}

		info := versionInfo{
			Version:   Version,
			GoVersion: runtime.Version(),
			GOOS:      runtime.GOOS,
			GOARCH:    runtime.GOARCH,
			BuildTime: BuildTime,
		}

		switch format {
		case render.FormatJSON:
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(info)

		case render.FormatJSONL:
			b, err := json.Marshal(info)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", b)
			return nil

		default:
			fmt.Fprintf(cmd.OutOrStdout(), "almanac %s\n", info.Version)
			fmt.Fprintf(cmd.OutOrStdout(), "go      %s\n", info.GoVersion)
			fmt.Fprintf(cmd.OutOrStdout(), "os      %s/%s\n", info.GOOS, info.GOARCH)
			if info.BuildTime != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "built   %s\n", info.BuildTime)
			}
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
