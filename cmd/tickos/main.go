package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"tickos/internal/config"
	"tickos/internal/klog"
	"tickos/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "tickos",
	Short: "A hosted toy kernel with a preemptive round-robin scheduler",
	Long: `tickos boots a small kernel inside the host process: a PIT-driven
round-robin scheduler, a PS/2 keyboard and an interactive shell.`,
	SilenceUsage:      true,
	PersistentPreRunE: setupGlobals,
}

func init() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(bootCmd)
	rootCmd.AddCommand(schedCmd)
	rootCmd.AddCommand(topCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("config", "tickos.yml", "path to a YAML or TOML config file")
	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().String("log-level", "", "override the configured log level (error|warn|info|debug)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupGlobals(cmd *cobra.Command, args []string) error {
	mode, err := cmd.Flags().GetString("color")
	if err != nil {
		return err
	}
	switch strings.ToLower(mode) {
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	case "auto":
		color.NoColor = !isTerminal(os.Stdout)
	default:
		return fmt.Errorf("invalid --color value %q (want auto, on or off)", mode)
	}
	return nil
}

// loadConfig reads --config and applies --log-level on top of it.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Config{}, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		if _, err := klog.ParseLevel(lvl); err != nil {
			return cfg, err
		}
		cfg.LogLevel = lvl
	}
	klog.Default.SetLevel(cfg.Level())
	return cfg, nil
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// crlfWriter turns LF into CRLF for a terminal in raw mode.
type crlfWriter struct {
	w io.Writer
}

func (c crlfWriter) Write(p []byte) (int, error) {
	if !strings.Contains(string(p), "\n") {
		return c.w.Write(p)
	}
	out := strings.ReplaceAll(string(p), "\n", "\r\n")
	if _, err := io.WriteString(c.w, out); err != nil {
		return 0, err
	}
	return len(p), nil
}
