// Package observability wires OpenTelemetry traces and metrics for crud
// operations, plus a small health model for transports.
//
// Both providers export over OTLP/HTTP and are configured from YAML:
//
//	tracing:
//	  endpoint: otel-collector:4318
//	  insecure: true
//	  sample_rate: 0.25
//	metrics:
//	  endpoint: otel-collector:4318
//	  interval: 30s
//
// An operation groups the span and metrics of one user-level call:
//
//	ctx, op := observability.StartOperation(ctx, "crudctl", "get", requestID, metrics)
//	resp, err := ...
//	op.End(ctx, err)
package observability
