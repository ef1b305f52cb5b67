package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"
)

// DefaultAPIKeyHeader carries ops API keys.
const DefaultAPIKeyHeader = "X-API-Key"

// APIKeyConfig configures the API key authenticator.
type APIKeyConfig struct {
	// HeaderName is the header containing the API key.
	// Default: "X-API-Key"
	HeaderName string
	// Keys are the accepted keys. Only their SHA-256 hashes are kept.
	Keys []string
}

// APIKeyAuthenticator accepts a fixed set of API keys.
type APIKeyAuthenticator struct {
	header string
	hashes []string
}

// NewAPIKeyAuthenticator creates an API key authenticator. Empty keys are
// ignored.
func NewAPIKeyAuthenticator(config APIKeyConfig) *APIKeyAuthenticator {
	if config.HeaderName == "" {
		config.HeaderName = DefaultAPIKeyHeader
	}
	a := &APIKeyAuthenticator{header: config.HeaderName}
	for _, k := range config.Keys {
		if k = strings.TrimSpace(k); k != "" {
			a.hashes = append(a.hashes, HashAPIKey(k))
		}
	}
	return a
}

// Name returns "api_key".
func (a *APIKeyAuthenticator) Name() string { return string(AuthMethodAPIKey) }

// Supports returns true if the request carries the API key header.
func (a *APIKeyAuthenticator) Supports(req *http.Request) bool {
	return req.Header.Get(a.header) != ""
}

// Authenticate compares the key against every accepted key in constant
// time.
func (a *APIKeyAuthenticator) Authenticate(_ context.Context, req *http.Request) (*AuthResult, error) {
	key := strings.TrimSpace(req.Header.Get(a.header))
	if key == "" {
		return AuthFailure(ErrMissingCredentials, AuthMethodAPIKey), nil
	}

	hash := HashAPIKey(key)
	match := -1
	for i, h := range a.hashes {
		if ConstantTimeCompare(hash, h) && match < 0 {
			match = i
		}
	}
	if match < 0 {
		return AuthFailure(ErrInvalidCredentials, AuthMethodAPIKey), nil
	}

	// The key ID is a hash prefix, never the key.
	keyID := hash[:12]
	return AuthSuccess(&Identity{
		Principal: "api-key:" + keyID,
		Method:    AuthMethodAPIKey,
		Claims:    map[string]any{"key_id": keyID},
	}), nil
}

// HashAPIKey hashes an API key using SHA-256.
func HashAPIKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}

// ConstantTimeCompare performs constant-time comparison of two strings.
func ConstantTimeCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

var _ Authenticator = (*APIKeyAuthenticator)(nil)
