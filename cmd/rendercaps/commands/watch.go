package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openfroyo/rendercaps/pkg/archive"
	"github.com/openfroyo/rendercaps/pkg/policy"
	"github.com/openfroyo/rendercaps/pkg/telemetry"
)

func newWatchCommand() *cobra.Command {
	var (
		recursive   bool
		metricsAddr string
		policies    []string
	)

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Keep a registry loaded while scripts change",
		Long: `Load the capability scripts in dir and reload them whenever a script is
written or created, until interrupted. Registry events are logged.

With --metrics-addr Prometheus metrics are served over HTTP. When policies
are given, every profile is re-checked after each reload and violations
are logged.`,
		Example: `  rendercaps watch -r ./caps --metrics-addr :9090
  rendercaps watch ./caps --policy ./policies`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			e, err := newEnv(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			dir := args[0]
			recursive = recursive || e.cfg.Recursive
			if metricsAddr == "" {
				metricsAddr = e.cfg.Watch.MetricsAddr
			}

			e.tel.Events.Subscribe(func(ev telemetry.Event) {
				e.log.Info().
					Str("event", ev.Type).
					Str("profile", ev.Profile).
					Str("load_id", ev.LoadID).
					Msg(ev.Message)
			}, telemetry.FilterByType(
				telemetry.EventTypeScriptFailed,
				telemetry.EventTypeRegistryReloaded,
			))

			var eng *policy.Engine
			if len(policies) > 0 || len(e.cfg.Policies) > 0 {
				if eng, err = newPolicyEngine(ctx, e, policies, false); err != nil {
					return err
				}
				e.tel.Events.Subscribe(func(telemetry.Event) {
					runChecks(ctx, e, eng)
				}, telemetry.FilterByType(telemetry.EventTypeRegistryReloaded))
			}

			fsys, err := archive.NewFileSystem(archive.WithPattern(e.cfg.Pattern))
			if err != nil {
				return err
			}
			report, err := e.reg.BulkLoad(ctx, fsys, dir, recursive)
			if err != nil {
				return err
			}
			e.log.Info().Int("profiles", len(report.Loaded)).Int("failures", len(report.Failures)).Msg("Initial load complete")
			if eng != nil {
				runChecks(ctx, e, eng)
			}

			serveErr := make(chan error, 1)
			if metricsAddr != "" {
				go func() {
					if err := e.tel.Metrics.Serve(ctx, metricsAddr, e.log); err != nil {
						serveErr <- err
					}
				}()
			}

			wait, err := e.reg.Watch(ctx, dir, recursive)
			if err != nil {
				return err
			}
			defer wait()

			select {
			case <-ctx.Done():
				return nil
			case err := <-serveErr:
				cancel()
				return fmt.Errorf("metrics server failed: %w", err)
			}
		},
	}

	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "watch subdirectories too")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	cmd.Flags().StringArrayVarP(&policies, "policy", "p", nil, "policy file or directory to check after each reload; repeatable")

	return cmd
}

func runChecks(ctx context.Context, e *env, eng *policy.Engine) {
	results, err := eng.CheckAll(ctx, e.reg.Snapshot())
	if err != nil {
		e.log.Error().Err(err).Msg("Policy check failed")
		return
	}
	for _, r := range results {
		for _, v := range r.Violations {
			e.log.Warn().
				Str("profile", r.Profile).
				Str("policy", v.Policy).
				Str("severity", string(v.Severity)).
				Msg(v.Message)
		}
	}
}
