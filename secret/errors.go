package secret

import "errors"

// Sentinel errors for secret resolution.
var (
	ErrSecretNotFound         = errors.New("secret not found")
	ErrProviderNotRegistered  = errors.New("secret provider is not registered")
	ErrEmptySecret            = errors.New("secret provider returned empty value")
	ErrInvalidRegistration    = errors.New("invalid provider registration")
	ErrMissingEnvironmentVars = errors.New("missing required environment variables")
)
