// Package instrumentation provides OpenTelemetry metrics and tracing for the
// token-issuance engine. When disabled it falls back to no-op providers with
// zero overhead.
package instrumentation
