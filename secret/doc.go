// Package secret resolves the credentials the server needs, chiefly the n8n
// API key, from configuration values.
//
// A value may reference environment variables (${N8N_API_KEY}) and secret
// providers (secretref:<provider>:<ref>):
//   - secretref:env:N8N_API_KEY
//   - secretref:file:/run/secrets/n8n_api_key
//
// Providers are pluggable through Registry.
package secret
