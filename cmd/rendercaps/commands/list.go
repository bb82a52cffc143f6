package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newListCommand() *cobra.Command {
	var recursive bool

	cmd := &cobra.Command{
		Use:   "list [source...]",
		Short: "List the profiles found in sources",
		Long: `Load every capability script in the given sources and print the names of
the registered profiles. Scripts that fail to load are reported and skipped.
Without arguments the sources from the configuration file are used.`,
		Example: `  # Profiles in a local directory tree
  rendercaps list -r ./caps

  # Profiles in an S3 bucket and a profile store
  rendercaps list s3://gpu-profiles/desktop sqlite://profiles.db`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			sources, err := e.sources(args)
			if err != nil {
				return err
			}
			if _, err := e.load(cmd.Context(), sources, recursive); err != nil {
				return err
			}

			names := e.reg.Names()
			if jsonOutput {
				return printJSON(e.out, names)
			}
			for _, name := range names {
				fmt.Fprintln(e.out, name)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "descend into subdirectories")

	return cmd
}
