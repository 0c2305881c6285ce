// Package observability builds the process logger and tracer provider.
//
// Logging is zap based: JSON in production, console for local work.
// Tracing exports OTLP over HTTP when an endpoint is configured and
// otherwise keeps spans in-process so instrumentation stays cheap.
package observability
