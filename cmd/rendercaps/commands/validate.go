package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openfroyo/rendercaps/pkg/registry"
	"github.com/openfroyo/rendercaps/pkg/script"
)

type validateResult struct {
	Source   string   `json:"source"`
	Profiles int      `json:"profiles"`
	Failures []string `json:"failures,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

func newValidateCommand() *cobra.Command {
	var (
		recursive bool
		lenient   bool
	)

	cmd := &cobra.Command{
		Use:   "validate [source...]",
		Short: "Check that capability scripts decode",
		Long: `Decode every capability script in the given sources and report the scripts
that fail. The command exits non-zero when any script fails.

With --lenient unknown keys are reported as warnings instead of failures.`,
		Example: `  rendercaps validate -r ./caps
  rendercaps validate --lenient sftp://ci@caps.example.com/srv/caps`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var extra []registry.Option
			if lenient {
				extra = append(extra, registry.WithUnknownKeyPolicy(script.SkipUnknownKeys))
			}

			e, err := newEnv(cmd, extra...)
			if err != nil {
				return err
			}
			defer e.close()

			sources, err := e.sources(args)
			if err != nil {
				return err
			}

			var results []validateResult
			failed := 0
			for _, src := range sources {
				reports, err := e.load(cmd.Context(), []string{src}, recursive)
				if err != nil {
					return err
				}
				report := reports[0]

				res := validateResult{Source: src, Profiles: len(report.Loaded)}
				for _, f := range report.Failures {
					// Script errors already name their source.
					msg := f.Error()
					var se *script.ScriptError
					if errors.As(f.Err, &se) {
						msg = se.Error()
					}
					res.Failures = append(res.Failures, msg)
				}
				for _, w := range report.Warnings {
					res.Warnings = append(res.Warnings, fmt.Sprintf("%s:%d: %s: %s", w.Resource.Location, w.Line, w.Key, w.Message))
				}
				failed += len(report.Failures)
				results = append(results, res)
			}

			if jsonOutput {
				if err := printJSON(e.out, results); err != nil {
					return err
				}
			} else {
				for _, res := range results {
					for _, f := range res.Failures {
						fmt.Fprintf(e.out, "FAIL %s\n", f)
					}
					for _, w := range res.Warnings {
						fmt.Fprintf(e.out, "WARN %s\n", w)
					}
					fmt.Fprintf(e.out, "%s: %d profiles, %d failed scripts\n", res.Source, res.Profiles, len(res.Failures))
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d scripts failed to decode", failed)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "descend into subdirectories")
	cmd.Flags().BoolVar(&lenient, "lenient", false, "skip unknown keys with a warning")

	return cmd
}
