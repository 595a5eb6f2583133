// Package cli is the cobra-based command surface, grounded on the
// teacher's internal/cli/root.go: a persistent --config flag, a version
// template populated via ldflags, and a thin set of subcommands that each
// do one thing.
package cli

import (
	"fmt"
	"os"

	"github.com/e-grid/e-grid/internal/app"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string

	// TrayLaunchFunc is set by main to run the server under a status-bar
	// icon instead of purely headless, mirroring the teacher's
	// cli.LaunchFunc hook from main into the CLI package.
	TrayLaunchFunc func(*app.Server)

	// Version is set via ldflags at build time.
	Version = "dev"
	// GitCommit is set via ldflags at build time.
	GitCommit = "unknown"
	// BuildDate is set via ldflags at build time.
	BuildDate = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "e_grid",
	Short: "e_grid - a virtual window grid tracker for Windows",
	Long: `e_grid tracks every top-level window against a virtual grid spanning all
monitors, animates windows into assigned cells, and broadcasts state/events
to subscribing clients over a shared in-process pub/sub fabric.`,
	Version: Version,
	// E_GRID_LOG_LEVEL supplies the log level when --log-level is not given.
	PersistentPreRun: func(*cobra.Command, []string) {
		if logLevel == "" {
			logLevel = os.Getenv("E_GRID_LOG_LEVEL")
		}
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SetVersionTemplate(
		fmt.Sprintf("e_grid version %s\nGit commit: %s\nBuild date: %s\n", Version, GitCommit, BuildDate),
	)

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level")
}
