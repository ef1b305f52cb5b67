// Package auth authenticates requests to the ops HTTP server.
//
// Two methods are supported: static API keys in the X-API-Key header and
// HMAC-signed JWT bearer tokens. New combines the configured methods into a
// Chain and Middleware enforces it on an http.Handler.
package auth
