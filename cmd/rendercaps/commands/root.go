package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	verbose    bool
	jsonOutput bool
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "rendercaps",
		Short: "Render system capability profiles",
		Long: `rendercaps reads, writes and queries render system capability profiles
stored as .rendercaps scripts.

Profiles are loaded from local directories, S3 buckets, SFTP servers or a
SQLite profile store, and can be compared, selected with Starlark predicates
and checked against OPA requirement policies.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path (.yaml or .cue)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	rootCmd.AddCommand(newListCommand())
	rootCmd.AddCommand(newShowCommand())
	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newNewCommand())
	rootCmd.AddCommand(newDiffCommand())
	rootCmd.AddCommand(newSelectCommand())
	rootCmd.AddCommand(newCheckCommand())
	rootCmd.AddCommand(newImportCommand())
	rootCmd.AddCommand(newExportCommand())
	rootCmd.AddCommand(newImportsCommand())
	rootCmd.AddCommand(newWatchCommand())

	return rootCmd
}
