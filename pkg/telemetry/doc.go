// Package telemetry provides logging, tracing, metrics and events for
// rendercaps.
//
// The pieces are built from one Config:
//
//  1. Structured logging with zerolog
//  2. OpenTelemetry tracing with stdout or OTLP exporters
//  3. Prometheus metrics on a private registry
//  4. A synchronous in-process event bus
//
// # Usage
//
//	tel, err := telemetry.New(telemetry.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
//	reg := registry.New(
//	    registry.WithLogger(tel.Logger.Zerolog()),
//	    registry.WithMetrics(tel.Metrics),
//	    registry.WithTracer(tel.Tracer),
//	    registry.WithEvents(tel.Events),
//	)
//
// # Metrics
//
// All metrics live under the configured namespace (default "rendercaps"):
//
//   - scripts_parsed_total{result}: scripts decoded, ok or failed
//   - profiles_registered: current registry size
//   - lookups_total{result}: registry lookups, hit or miss
//   - load_duration_seconds{archive}: bulk load latency
//   - reloads_total{result}: reloads triggered by file changes
//
// A nil *Metrics, *Tracer or *EventBus is valid and does nothing, so
// library code never has to check whether telemetry was configured.
package telemetry
