package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/openfroyo/rendercaps/pkg/script"
)

// profileDoc is the YAML and JSON form of a profile.
type profileDoc struct {
	Name string         `yaml:"name" json:"name"`
	Caps map[string]any `yaml:"caps" json:"caps"`
}

func newShowCommand() *cobra.Command {
	var (
		sources   []string
		recursive bool
		format    string
	)

	cmd := &cobra.Command{
		Use:   "show <name>",
		Short: "Print one profile",
		Long: `Print a registered profile as a .rendercaps script, YAML or JSON.`,
		Example: `  rendercaps show GL -s ./caps
  rendercaps show "Direct3D 11" -s s3://gpu-profiles --format yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if jsonOutput {
				format = "json"
			}

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

			name := args[0]
			set, err := e.lookup(name)
			if err != nil {
				return err
			}

			doc := profileDoc{Name: name, Caps: script.Fields(set)}
			switch format {
			case "script":
				return script.Encode(e.out, name, set)
			case "json":
				return printJSON(e.out, doc)
			case "yaml":
				enc := yaml.NewEncoder(e.out)
				enc.SetIndent(2)
				if err := enc.Encode(doc); err != nil {
					return err
				}
				return enc.Close()
			default:
				return fmt.Errorf("unknown format %q (want script, yaml or json)", format)
			}
		},
	}

	addSourceFlags(cmd, &sources, &recursive)
	cmd.Flags().StringVarP(&format, "format", "f", "script", "output format: script, yaml or json")

	return cmd
}
