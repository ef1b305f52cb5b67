package auth

import (
	"context"
	"net/http"
)

// Authenticator validates the credentials of an ops request.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Errors: Authenticate returns (nil, error) for internal errors and
//     (AuthResult, nil) for accepted or rejected credentials.
type Authenticator interface {
	// Name identifies the method, e.g. "api_key".
	Name() string

	// Supports reports whether the request carries credentials this
	// authenticator understands.
	Supports(req *http.Request) bool

	Authenticate(ctx context.Context, req *http.Request) (*AuthResult, error)
}

// AuthResult is the outcome of an authentication attempt.
type AuthResult struct {
	Authenticated bool
	// Identity is set when Authenticated.
	Identity *Identity
	// Error is set when not Authenticated.
	Error  error
	Method string
}

// AuthSuccess creates a successful authentication result.
func AuthSuccess(identity *Identity) *AuthResult {
	return &AuthResult{
		Authenticated: true,
		Identity:      identity,
		Method:        string(identity.Method),
	}
}

// AuthFailure creates a failed authentication result.
func AuthFailure(err error, method AuthMethod) *AuthResult {
	return &AuthResult{Error: err, Method: string(method)}
}

// Chain tries authenticators in order and returns the result of the first
// one that supports the request.
type Chain []Authenticator

// Name returns "chain".
func (c Chain) Name() string { return "chain" }

// Supports reports whether any authenticator supports the request.
func (c Chain) Supports(req *http.Request) bool {
	for _, a := range c {
		if a.Supports(req) {
			return true
		}
	}
	return false
}

// Authenticate delegates to the first supporting authenticator.
func (c Chain) Authenticate(ctx context.Context, req *http.Request) (*AuthResult, error) {
	for _, a := range c {
		if a.Supports(req) {
			return a.Authenticate(ctx, req)
		}
	}
	return AuthFailure(ErrMissingCredentials, AuthMethodNone), nil
}

var _ Authenticator = Chain(nil)
