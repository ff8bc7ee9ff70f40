package auth

import "errors"

// Authentication error types enable 5-tier error taxonomy.
// Unauthenticated for missing/invalid (doesn't confirm key existence).
// Forbidden / PERMISSION_DENIED for revoked (confirms key exists but blocked).
var (
	ErrMissingKey       = errors.New("API key required in x-api-key header or metadata")
	ErrInvalidKeyFormat = errors.New("invalid API key format")
	ErrUnknownKey       = errors.New("unknown secret ID")
	ErrInvalidKey       = errors.New("invalid API key")
	ErrKeyRevoked       = errors.New("API key has been revoked")
	ErrNoSecrets        = errors.New("no HMAC secrets configured")

	// ErrUnavailable wraps key store failures; maps to UNAVAILABLE / 503.
	ErrUnavailable = errors.New("authentication backend unavailable")
)
