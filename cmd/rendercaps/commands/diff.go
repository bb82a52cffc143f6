package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/openfroyo/rendercaps/pkg/caps"
	"github.com/openfroyo/rendercaps/pkg/script"
)

type fieldDiff struct {
	Key string `json:"key"`
	A   any    `json:"a"`
	B   any    `json:"b"`
}

// diffFields compares two sets key by key, in key order.
func diffFields(a, b *caps.Set) []fieldDiff {
	fa, fb := script.Fields(a), script.Fields(b)
	keys := make([]string, 0, len(fa))
	for k := range fa {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []fieldDiff
	for _, k := range keys {
		if fmt.Sprint(fa[k]) != fmt.Sprint(fb[k]) {
			out = append(out, fieldDiff{Key: k, A: fa[k], B: fb[k]})
		}
	}
	return out
}

func newDiffCommand() *cobra.Command {
	var (
		sources   []string
		recursive bool
	)

	cmd := &cobra.Command{
		Use:   "diff <a> <b>",
		Short: "Show the differences between two profiles",
		Example: `  rendercaps diff GL GLES2 -s ./caps`,
		Args:    cobra.ExactArgs(2),
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

			a, err := e.lookup(args[0])
			if err != nil {
				return err
			}
			b, err := e.lookup(args[1])
			if err != nil {
				return err
			}

			diffs := diffFields(a, b)
			if jsonOutput {
				return printJSON(e.out, diffs)
			}
			if len(diffs) == 0 {
				fmt.Fprintf(e.out, "%s and %s are identical\n", args[0], args[1])
				return nil
			}
			for _, d := range diffs {
				fmt.Fprintf(e.out, "%-40s %v -> %v\n", d.Key, formatField(d.A), formatField(d.B))
			}
			e.log.Debug().Strs("fields", caps.Diff(a, b)).Msg("Differing set fields")
			return nil
		},
	}

	addSourceFlags(cmd, &sources, &recursive)

	return cmd
}

func formatField(v any) string {
	switch tv := v.(type) {
	case []string:
		return "[" + strings.Join(tv, " ") + "]"
	case string:
		if tv == "" {
			return `""`
		}
		return tv
	default:
		return fmt.Sprint(tv)
	}
}
