package registry

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/openfroyo/rendercaps/pkg/archive"
	"github.com/openfroyo/rendercaps/pkg/script"
	"github.com/openfroyo/rendercaps/pkg/telemetry"
)

// LoadFailure is a script that could not be loaded. Nothing from it was
// registered.
type LoadFailure struct {
	Resource archive.Resource
	Err      error
}

func (f LoadFailure) Error() string {
	return fmt.Sprintf("%s: %v", f.Resource.Location, f.Err)
}

func (f LoadFailure) Unwrap() error { return f.Err }

// LoadWarning is a problem the decoder stepped over in a loaded script.
type LoadWarning struct {
	Resource archive.Resource
	script.Warning
}

// LoadReport summarizes one BulkLoad.
type LoadReport struct {
	LoadID string

	// Loaded lists registered profile names in load order.
	Loaded []string

	// Origins maps each loaded profile to the location of its script.
	Origins map[string]string

	Failures []LoadFailure
	Warnings []LoadWarning
}

// Err joins every failure, or returns nil when all scripts loaded.
func (r *LoadReport) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// BulkLoad registers every profile found under locator. Each script is
// decoded completely before any of its profiles are inserted; a script that
// fails is logged, recorded in the report and skipped. Later loads replace
// profiles of the same name. The returned error is non-nil only when the
// archive cannot be listed or ctx is cancelled.
func (r *Registry) BulkLoad(ctx context.Context, arc archive.Archive, locator string, recursive bool) (*LoadReport, error) {
	loadID := uuid.New().String()
	timer := telemetry.NewTimer()

	ctx, span := r.tracer.StartLoadSpan(ctx, loadID, arc.Type(), locator)
	defer span.End()

	logger := r.logger.With().
		Str("load_id", loadID).
		Str("archive", arc.Type()).
		Str("locator", locator).
		Logger()

	resources, err := arc.List(ctx, locator, recursive)
	if err != nil {
		err = fmt.Errorf("failed to list %s: %w", locator, err)
		telemetry.RecordError(span, err)
		return nil, err
	}

	report := &LoadReport{LoadID: loadID, Origins: make(map[string]string)}
	for _, res := range resources {
		if err := ctx.Err(); err != nil {
			telemetry.RecordError(span, err)
			return report, err
		}

		blocks, warnings, err := r.decodeResource(ctx, arc, res)
		r.metrics.RecordScriptParsed(err == nil)
		if err != nil {
			logger.Warn().Err(err).Str("resource", res.Location).Msg("Failed to load capability script")
			report.Failures = append(report.Failures, LoadFailure{Resource: res, Err: err})
			r.events.PublishScriptFailed(loadID, res.Location, err)
			continue
		}
		for _, w := range warnings {
			report.Warnings = append(report.Warnings, LoadWarning{Resource: res, Warning: w})
		}
		if len(blocks) == 0 {
			logger.Debug().Str("resource", res.Location).Msg("Script declares no profiles")
			continue
		}

		r.insert(blocks)
		for _, b := range blocks {
			report.Loaded = append(report.Loaded, b.Name)
			report.Origins[b.Name] = res.Location
			r.events.PublishProfileRegistered(loadID, b.Name, res.Location)
			logger.Debug().Str("profile", b.Name).Str("resource", res.Location).Msg("Profile registered")
		}
	}

	r.metrics.RecordLoad(arc.Type(), timer.Duration())
	span.SetAttributes(
		telemetry.AttrLoaded.Int(len(report.Loaded)),
		telemetry.AttrFailed.Int(len(report.Failures)),
	)
	telemetry.RecordSuccess(span)

	logger.Info().
		Int("resources", len(resources)).
		Int("profiles", len(report.Loaded)).
		Int("failures", len(report.Failures)).
		Dur("duration", timer.Duration()).
		Msg("Capability scripts loaded")

	return report, nil
}

func (r *Registry) decodeResource(ctx context.Context, arc archive.Archive, res archive.Resource) (blocks []script.Block, warnings []script.Warning, err error) {
	ctx, span := r.tracer.StartDecodeSpan(ctx, res.Location)
	defer func() {
		if err != nil {
			telemetry.RecordError(span, err)
		} else {
			span.SetAttributes(telemetry.AttrProfiles.Int(len(blocks)))
		}
		span.End()
	}()

	rc, err := arc.Open(ctx, res)
	if err != nil {
		return nil, nil, err
	}
	defer rc.Close()

	dec := script.NewDecoder(rc,
		script.WithSource(res.Location),
		script.WithUnknownKeyPolicy(r.policy),
		script.WithLogger(r.logger),
	)

	for {
		b, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			return blocks, dec.Warnings(), nil
		}
		if err != nil {
			return nil, nil, err
		}
		blocks = append(blocks, *b)
	}
}
