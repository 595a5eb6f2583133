package cli

import "github.com/spf13/cobra"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cmd.Printf("e_grid version %s\nGit commit: %s\nBuild date: %s\n", Version, GitCommit, BuildDate)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
