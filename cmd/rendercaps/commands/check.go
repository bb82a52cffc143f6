package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openfroyo/rendercaps/pkg/caps"
	"github.com/openfroyo/rendercaps/pkg/policy"
)

func newCheckCommand() *cobra.Command {
	var (
		sources    []string
		recursive  bool
		policies   []string
		noBuiltins bool
	)

	cmd := &cobra.Command{
		Use:   "check [name...]",
		Short: "Check profiles against requirement policies",
		Long: `Evaluate OPA requirement policies against profiles. Policies are .rego
files or .json/.yaml definitions; each deny result is a violation. Violations of error or
critical severity fail the check.

Without names every loaded profile is checked. Policies listed in the
configuration file are always loaded.`,
		Example: `  rendercaps check -s ./caps --policy ./policies
  rendercaps check GL --policy min-texture-units.rego --no-builtins`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			e, err := newEnv(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			eng, err := newPolicyEngine(ctx, e, policies, noBuiltins)
			if err != nil {
				return err
			}

			srcs, err := e.sources(sources)
			if err != nil {
				return err
			}
			if _, err := e.load(ctx, srcs, recursive); err != nil {
				return err
			}

			profiles := e.reg.Snapshot()
			if len(args) > 0 {
				profiles = make(map[string]*caps.Set, len(args))
				for _, name := range args {
					set, err := e.lookup(name)
					if err != nil {
						return err
					}
					profiles[name] = set
				}
			}

			results, err := eng.CheckAll(ctx, profiles)
			if err != nil {
				return err
			}

			if jsonOutput {
				if err := printJSON(e.out, results); err != nil {
					return err
				}
			} else {
				printResults(e, results)
			}

			blocked := 0
			for _, r := range results {
				if !r.Allowed {
					blocked++
				}
			}
			if blocked > 0 {
				return fmt.Errorf("%d of %d profiles failed the check", blocked, len(results))
			}
			return nil
		},
	}

	addSourceFlags(cmd, &sources, &recursive)
	cmd.Flags().StringArrayVarP(&policies, "policy", "p", nil, "policy file or directory; repeatable")
	cmd.Flags().BoolVar(&noBuiltins, "no-builtins", false, "disable the built-in consistency policies")

	return cmd
}

func newPolicyEngine(ctx context.Context, e *env, paths []string, noBuiltins bool) (*policy.Engine, error) {
	eng, err := policy.NewEngine(e.log)
	if err != nil {
		return nil, err
	}
	if noBuiltins {
		eng.DisableBuiltins()
	}
	all := append(append([]string{}, e.cfg.Policies...), paths...)
	if len(all) > 0 {
		if err := eng.LoadPolicies(ctx, all); err != nil {
			return nil, err
		}
	}
	return eng, nil
}

func printResults(e *env, results []*policy.Result) {
	for _, r := range results {
		status := "PASS"
		if !r.Allowed {
			status = "FAIL"
		}
		fmt.Fprintf(e.out, "%s %s\n", status, r.Profile)
		for _, v := range r.Violations {
			fmt.Fprintf(e.out, "  [%s] %s: %s\n", v.Severity, v.Policy, v.Message)
		}
		for _, w := range r.Warnings {
			fmt.Fprintf(e.out, "  [warning] %s\n", w)
		}
	}
}
