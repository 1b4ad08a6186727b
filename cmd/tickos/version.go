package main

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"tickos/internal/version"
)

type buildInfo struct {
	Kernel    string `json:"kernel"`
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
	Host      string `json:"host,omitempty"`
}

var (
	versionFormat string
	versionFull   bool
)

func init() {
	versionCmd.Flags().StringVar(&versionFormat, "format", "pretty", "output format (pretty|json)")
	versionCmd.Flags().BoolVar(&versionFull, "full", false, "include commit, build date and host platform")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the kernel build",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		info := collectBuildInfo(versionFull)
		switch strings.ToLower(versionFormat) {
		case "pretty":
			renderVersionPretty(cmd.OutOrStdout(), info)
			return nil
		case "json":
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		default:
			return fmt.Errorf("unsupported format %q (must be pretty or json)", versionFormat)
		}
	},
}

func collectBuildInfo(full bool) buildInfo {
	info := buildInfo{Kernel: "tickos", Version: strings.TrimSpace(version.Version)}
	if info.Version == "" {
		info.Version = "dev"
	}
	if full {
		info.GitCommit = valueOrUnknown(strings.TrimSpace(version.GitCommit))
		info.BuildDate = valueOrUnknown(strings.TrimSpace(version.BuildDate))
		info.Host = runtime.GOOS + "/" + runtime.GOARCH
	}
	return info
}

func renderVersionPretty(out io.Writer, info buildInfo) {
	fmt.Fprintf(out, "%s %s\n", info.Kernel, version.Colored())
	if info.GitCommit != "" {
		fmt.Fprintf(out, "commit: %s\n", info.GitCommit)
	}
	if info.BuildDate != "" {
		fmt.Fprintf(out, "built:  %s\n", info.BuildDate)
	}
	if info.Host != "" {
		fmt.Fprintf(out, "host:   %s\n", info.Host)
	}
}

func valueOrUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
