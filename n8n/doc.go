// Package n8n is a client for the n8n public REST API (/api/v1).
//
// Requests are authenticated with the X-N8N-API-KEY header and run through
// a resilience.Handler, so they share circuit breakers, retries and error
// statistics under operation names such as "n8n.getWorkflow". Responses to
// reads are cached; writes invalidate the affected entries. Errors are
// fault domain errors: NotFound, Security and Validation for client errors,
// Upstream for 429 and 5xx responses.
package n8n
