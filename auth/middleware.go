package auth

import (
	"encoding/json"
	"net/http"

	"github.com/leonardsellem/n8n-mcp-server-sub013/observe"
)

// Config selects the ops authentication methods.
type Config struct {
	APIKeys   []string
	JWTSecret string
	JWTIssuer string
}

// New builds an authenticator accepting API keys, JWTs, or both. It fails
// with ErrNoMethods when neither is configured.
func New(cfg Config) (Authenticator, error) {
	var chain Chain
	apiKeys := NewAPIKeyAuthenticator(APIKeyConfig{Keys: cfg.APIKeys})
	if len(apiKeys.hashes) > 0 {
		chain = append(chain, apiKeys)
	}
	if cfg.JWTSecret != "" {
		chain = append(chain, NewJWTAuthenticator(JWTConfig{
			Secret: []byte(cfg.JWTSecret),
			Issuer: cfg.JWTIssuer,
		}))
	}
	if len(chain) == 0 {
		return nil, ErrNoMethods
	}
	return chain, nil
}

// Middleware rejects requests that a does not authenticate with 401 and
// attaches the identity to the context of those it does.
func Middleware(a Authenticator, logger observe.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = observe.NopLogger()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if !a.Supports(r) {
				unauthorized(w, ErrMissingCredentials)
				return
			}
			res, err := a.Authenticate(ctx, r)
			if err != nil {
				logger.Error(ctx, "authentication error", observe.F("path", r.URL.Path), observe.F("error", err.Error()))
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			if !res.Authenticated {
				logger.Warn(ctx, "authentication rejected",
					observe.F("path", r.URL.Path),
					observe.F("method", res.Method),
					observe.F("error", res.Error.Error()),
				)
				unauthorized(w, res.Error)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, res.Identity)))
		})
	}
}

func unauthorized(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="n8n-mcp-ops"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
