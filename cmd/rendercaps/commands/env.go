package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/openfroyo/rendercaps/pkg/caps"
	"github.com/openfroyo/rendercaps/pkg/config"
	"github.com/openfroyo/rendercaps/pkg/registry"
	"github.com/openfroyo/rendercaps/pkg/script"
	"github.com/openfroyo/rendercaps/pkg/stores"
	"github.com/openfroyo/rendercaps/pkg/telemetry"
)

// env is what every command works with: configuration, telemetry and a
// registry wired to both.
type env struct {
	cfg *config.Config
	tel *telemetry.Telemetry
	log zerolog.Logger
	reg *registry.Registry
	out io.Writer
}

// newEnv loads the configuration and builds the registry. Options in extra
// are applied after the configured ones.
func newEnv(cmd *cobra.Command, extra ...registry.Option) (*env, error) {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	tel, err := telemetry.New(&cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("failed to set up telemetry: %w", err)
	}

	policy, err := script.ParseUnknownKeyPolicy(cfg.UnknownKeys)
	if err != nil {
		return nil, err
	}

	logger := tel.Logger.Zerolog()
	opts := []registry.Option{
		registry.WithLogger(tel.Logger.Component("registry")),
		registry.WithMetrics(tel.Metrics),
		registry.WithTracer(tel.Tracer),
		registry.WithEvents(tel.Events),
		registry.WithUnknownKeyPolicy(policy),
		registry.WithPattern(cfg.Pattern),
		registry.WithDebounce(cfg.Watch.Debounce),
	}
	reg := registry.New(append(opts, extra...)...)

	return &env{
		cfg: cfg,
		tel: tel,
		log: logger,
		reg: reg,
		out: cmd.OutOrStdout(),
	}, nil
}

func (e *env) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.tel.Shutdown(ctx); err != nil {
		e.log.Warn().Err(err).Msg("Telemetry shutdown failed")
	}
}

// sources returns args, or the configured sources when args is empty.
func (e *env) sources(args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	if len(e.cfg.Sources) > 0 {
		return e.cfg.Sources, nil
	}
	return nil, fmt.Errorf("no sources given and none configured")
}

// load bulk-loads every source into the registry. Script failures are
// logged by the registry; only unreachable sources are errors.
func (e *env) load(ctx context.Context, sources []string, recursive bool) ([]*registry.LoadReport, error) {
	var reports []*registry.LoadReport
	for _, uri := range sources {
		src, err := resolveSource(ctx, e.cfg, e.log, uri)
		if err != nil {
			return nil, err
		}
		report, err := e.reg.BulkLoad(ctx, src.archive, src.locator, recursive || e.cfg.Recursive)
		if cerr := src.close(); cerr != nil {
			e.log.Warn().Err(cerr).Str("source", uri).Msg("Failed to close source")
		}
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// lookup returns a registered profile or a not-found error.
func (e *env) lookup(name string) (*caps.Set, error) {
	set, ok := e.reg.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("profile %q not found", name)
	}
	return set, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// addSourceFlags registers the flags of commands that load profiles before
// working on them.
func addSourceFlags(cmd *cobra.Command, sources *[]string, recursive *bool) {
	cmd.Flags().StringArrayVarP(sources, "source", "s", nil, "profile source (directory, s3://, sftp://, sqlite://); repeatable")
	cmd.Flags().BoolVarP(recursive, "recursive", "r", false, "descend into subdirectories")
}

// storeConfig returns the configured store settings with path overriding
// the configured path when set.
func (e *env) storeConfig(path string) stores.Config {
	cfg := e.cfg.Database
	if path != "" {
		cfg.Path = path
	}
	return cfg
}
