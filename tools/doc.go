// Package tools exposes the n8n client as MCP tools.
//
// Every tool body runs inside the observe middleware, which assigns a
// request ID and records a span, a tool-call metric and a log line. Results
// are returned as indented JSON text. Failures are returned as tool results
// with isError set whose text is the domain error JSON (name, code,
// statusCode, message, context, timestamp).
//
// Workflow, execution and tag tools call n8n through the client's
// resilience handler. get_error_stats, get_cache_stats and
// reset_circuit_breakers inspect and reset that handler and the client
// caches.
package tools
