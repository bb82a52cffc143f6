package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/openfroyo/rendercaps/pkg/query"
)

func newSelectCommand() *cobra.Command {
	var (
		sources   []string
		recursive bool
		timeout   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "select <predicate>",
		Short: "List the profiles matching a Starlark predicate",
		Long: `Evaluate a Starlark predicate against every loaded profile and print the
names of the profiles for which it is true.

The predicate sees the profile as caps, a struct with one attribute per
script key plus name. It is either one expression or a program defining
select(caps). version("a.b.c.d") returns a comparable tuple.`,
		Example: `  rendercaps select -s ./caps 'caps.vbo and caps.num_texture_units >= 8'
  rendercaps select -s ./caps '"glsl" in caps.shader_profile'
  rendercaps select -s ./caps 'version(caps.driver_version) >= version("4.6")'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			srcs, err := e.sources(sources)
			if err != nil {
				return err
			}
			if _, err := e.load(cmd.Context(), srcs, recursive); err != nil {
				return err
			}

			names, err := query.NewEvaluator(timeout).Select(cmd.Context(), args[0], e.reg.Snapshot())
			if err != nil {
				return err
			}

			if jsonOutput {
				if names == nil {
					names = []string{}
				}
				return printJSON(e.out, names)
			}
			for _, name := range names {
				fmt.Fprintln(e.out, name)
			}
			return nil
		},
	}

	addSourceFlags(cmd, &sources, &recursive)
	cmd.Flags().DurationVar(&timeout, "timeout", query.DefaultTimeout, "evaluation time limit")

	return cmd
}
