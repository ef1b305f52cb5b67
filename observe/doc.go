// Package observe provides the logging, tracing and metrics primitives used
// by the n8n MCP server.
//
// Logs are JSON lines on stderr (stdout belongs to the MCP stdio transport),
// with sensitive field names redacted using the same rule as fault contexts.
// Traces and metrics use OpenTelemetry; the exporter is chosen by
// configuration and the prometheus exporter is served over HTTP by the ops
// server through Observer.MetricsHandler.
package observe
