package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/openfroyo/rendercaps/pkg/script"
	"github.com/openfroyo/rendercaps/pkg/stores"
)

func newImportCommand() *cobra.Command {
	var (
		dbPath    string
		recursive bool
	)

	cmd := &cobra.Command{
		Use:   "import [source...]",
		Short: "Copy profiles into the SQLite profile store",
		Long: `Load profiles from the given sources and save them in the profile store.
Profiles already in the store are replaced. Every import is recorded with
its counts and can be listed with "rendercaps imports".`,
		Example: `  rendercaps import -r ./caps --db profiles.db
  rendercaps import s3://gpu-profiles/mobile`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			e, err := newEnv(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			sources, err := e.sources(args)
			if err != nil {
				return err
			}

			store, err := openStore(ctx, e.storeConfig(dbPath))
			if err != nil {
				return err
			}
			defer store.Close()

			total := 0
			for _, src := range sources {
				started := time.Now().UTC()
				reports, err := e.load(ctx, []string{src}, recursive)
				if err != nil {
					return err
				}
				report := reports[0]

				for _, name := range report.Loaded {
					set, ok := e.reg.Lookup(name)
					if !ok {
						continue
					}
					if _, err := store.SaveSet(ctx, name, report.Origins[name], set); err != nil {
						return err
					}
				}

				imp := &stores.Import{
					ID:          report.LoadID,
					Source:      src,
					Loaded:      len(report.Loaded),
					Failed:      len(report.Failures),
					StartedAt:   started,
					CompletedAt: time.Now().UTC(),
				}
				if err := store.RecordImport(ctx, imp); err != nil {
					return err
				}
				total += imp.Loaded

				e.log.Info().
					Str("source", src).
					Str("import_id", imp.ID).
					Int("loaded", imp.Loaded).
					Int("failed", imp.Failed).
					Msg("Import recorded")
			}

			fmt.Fprintf(e.out, "imported %d profiles\n", total)
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "profile store path (default from config)")
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "descend into subdirectories")

	return cmd
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// profileFileName turns a profile name into a script file name.
func profileFileName(name string) string {
	return unsafeFileChars.ReplaceAllString(name, "_") + script.FileExtension
}

// fileNamer hands out profile file names that are unique within one export.
// Names that collide after sanitising, or differ only in case, get a numeric
// suffix in the order they are requested.
type fileNamer struct {
	used map[string]bool
}

func newFileNamer() *fileNamer {
	return &fileNamer{used: make(map[string]bool)}
}

func (n *fileNamer) name(profile string) string {
	base := strings.TrimSuffix(profileFileName(profile), script.FileExtension)
	candidate := base + script.FileExtension
	for i := 2; n.used[strings.ToLower(candidate)]; i++ {
		candidate = fmt.Sprintf("%s_%d%s", base, i, script.FileExtension)
	}
	n.used[strings.ToLower(candidate)] = true
	return candidate
}

func newExportCommand() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "export <dir>",
		Short: "Write every stored profile as a script",
		Long: `Write each profile in the profile store to its own .rendercaps file in dir.
File names are derived from profile names. Profiles whose names map to the
same file get a numeric suffix such as _2.`,
		Example: `  rendercaps export ./exported --db profiles.db`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			e, err := newEnv(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			store, err := openStore(ctx, e.storeConfig(dbPath))
			if err != nil {
				return err
			}
			defer store.Close()

			dir := args[0]
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("failed to create %s: %w", dir, err)
			}

			profiles, err := store.ListProfiles(ctx, "", 0, 0)
			if err != nil {
				return err
			}
			names := newFileNamer()
			for _, p := range profiles {
				set, err := store.LoadSet(ctx, p.Name)
				if err != nil {
					return err
				}
				file := names.name(p.Name)
				if file != profileFileName(p.Name) {
					e.log.Warn().Str("profile", p.Name).Str("file", file).Msg("Profile file name already taken, using suffix")
				}
				path := filepath.Join(dir, file)
				if err := script.WriteFile(path, p.Name, set); err != nil {
					return err
				}
				e.log.Debug().Str("profile", p.Name).Str("path", path).Msg("Profile exported")
			}

			fmt.Fprintf(e.out, "exported %d profiles to %s\n", len(profiles), dir)
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "profile store path (default from config)")

	return cmd
}

func newImportsCommand() *cobra.Command {
	var (
		dbPath string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "imports",
		Short: "List recorded imports, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			e, err := newEnv(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			store, err := openStore(ctx, e.storeConfig(dbPath))
			if err != nil {
				return err
			}
			defer store.Close()

			imports, err := store.ListImports(ctx, limit, 0)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(e.out, imports)
			}
			for _, imp := range imports {
				fmt.Fprintf(e.out, "%s  %s  loaded=%d failed=%d  %s\n",
					imp.StartedAt.Format(time.RFC3339), imp.ID, imp.Loaded, imp.Failed, imp.Source)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "profile store path (default from config)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of imports, 0 for all")

	return cmd
}
