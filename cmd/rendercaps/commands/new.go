package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/openfroyo/rendercaps/pkg/caps"
	"github.com/openfroyo/rendercaps/pkg/script"
)

func newNewCommand() *cobra.Command {
	var (
		flags    []string
		profiles []string
		values   []string
		output   string
	)

	cmd := &cobra.Command{
		Use:   "new <name>",
		Short: "Write a new capability script",
		Long: `Build a capability profile from flags and write it as a .rendercaps script.
Capabilities not named are written as false and scalars default to zero.`,
		Example: `  rendercaps new "GL 4.6" --cap vbo --cap fbo --shader-profile glsl \
    --set num_texture_units=16 --set driver_version=4.6.0.0 -o gl46.rendercaps`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			set := caps.New()

			for _, token := range flags {
				c, ok := caps.ParseCapability(token)
				if !ok {
					return fmt.Errorf("unknown capability %q", token)
				}
				set.SetCapability(c)
			}
			for _, p := range profiles {
				set.AddShaderProfile(p)
			}
			for _, kv := range values {
				key, value, ok := strings.Cut(kv, "=")
				if !ok {
					return fmt.Errorf("--set %q: want key=value", kv)
				}
				if err := script.Apply(set, strings.TrimSpace(key), strings.TrimSpace(value)); err != nil {
					return fmt.Errorf("--set %s: %w", key, err)
				}
			}

			if output == "" || output == "-" {
				return script.Encode(cmd.OutOrStdout(), name, set)
			}
			if err := script.WriteFile(output, name, set); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&flags, "cap", nil, "capability token to enable; repeatable")
	cmd.Flags().StringArrayVar(&profiles, "shader-profile", nil, "supported shader profile; repeatable")
	cmd.Flags().StringArrayVar(&values, "set", nil, "script key=value; repeatable")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")

	return cmd
}
