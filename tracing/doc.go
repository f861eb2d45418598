// Package tracing integrates OpenTelemetry with the weft operators.
// All instrumentation is kept in a separate package so that
// applications which do not require tracing can exclude it from their
// build.
package tracing
