// Package auth provides HMAC-based API key authentication for the HTTP and
// gRPC catalog endpoints.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/solatis/siren/internal/types"
)

// contextKey is a typed key for context values to avoid collisions.
type contextKey string

// principalKey is the context key for storing the authenticated principal.
const principalKey = contextKey("principal")

// HeaderAPIKey carries the key on HTTP requests and gRPC metadata.
const HeaderAPIKey = "x-api-key"

// Queries interface defines database operations needed for authentication.
// Implemented by *db.Queries to allow query loading via LoadQueries().
type Queries interface {
	Get(name string, dest interface{}, args ...interface{}) error
	Exec(name string, args ...interface{}) (sql.Result, error)
}

// Principal identifies the holder of an authenticated key.
type Principal struct {
	KeyID string
	Name  string
}

// Authenticator validates API keys using HMAC-SHA256 signatures.
// Holds in-memory secret map for O(1) lookup and queries for key verification.
type Authenticator struct {
	secrets map[string][]byte
	queries Queries
	logger  *zap.Logger
}

// NewAuthenticator creates an authenticator with HMAC secrets and query interface.
func NewAuthenticator(secrets map[string][]byte, queries Queries, logger *zap.Logger) *Authenticator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Authenticator{
		secrets: secrets,
		queries: queries,
		logger:  logger,
	}
}

// Authenticate validates an API key and returns its principal.
// Returns specific error for each failure mode (5-tier taxonomy).
func (a *Authenticator) Authenticate(ctx context.Context, apiKey string) (Principal, error) {
	secretID, _, err := ParseAPIKey(apiKey)
	if err != nil {
		return Principal{}, err
	}

	// O(1) lookup of HMAC secret using secret_id from key format
	secret, ok := a.secrets[secretID]
	if !ok {
		return Principal{}, ErrUnknownKey
	}

	computedHash := ComputeHMAC(secret, apiKey)

	// key_hash is unique, so at most one row
	var result struct {
		APIKeyID   string       `db:"api_key_id"`
		Name       string       `db:"name"`
		RevokedAt  sql.NullTime `db:"revoked_at"`
		LastUsedAt sql.NullTime `db:"last_used_at"`
	}

	err = a.queries.Get("get-api-key-by-hash", &result, computedHash)
	if errors.Is(err, sql.ErrNoRows) {
		return Principal{}, ErrInvalidKey
	}
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if result.RevokedAt.Valid {
		return Principal{}, ErrKeyRevoked
	}

	// 1-minute throttle keeps reads from turning into writes
	if shouldUpdateLastUsed(result.LastUsedAt) {
		if _, err := a.queries.Exec("update-last-used", time.Now().UTC(), result.APIKeyID); err != nil {
			a.logger.Warn("failed to record key use", zap.String("api_key_id", result.APIKeyID), zap.Error(err))
		}
	}

	return Principal{KeyID: result.APIKeyID, Name: result.Name}, nil
}

// shouldUpdateLastUsed implements 1-minute throttle to reduce write amplification.
func shouldUpdateLastUsed(lastUsed sql.NullTime) bool {
	if !lastUsed.Valid {
		return true
	}
	return time.Since(lastUsed.Time) > time.Minute
}

// CreateKey issues a key named name under secretID and stores its hash.
// An empty secretID selects the only configured secret. The plaintext key is
// returned once and never stored.
func (a *Authenticator) CreateKey(name, secretID string) (key string, id types.ID, err error) {
	if strings.TrimSpace(name) == "" {
		return "", "", fmt.Errorf("key name is required")
	}
	if secretID == "" {
		if secretID, err = a.soleSecretID(); err != nil {
			return "", "", err
		}
	}
	secret, ok := a.secrets[secretID]
	if !ok {
		return "", "", fmt.Errorf("%w: %s", ErrUnknownKey, secretID)
	}

	key, err = GenerateAPIKey(secretID)
	if err != nil {
		return "", "", err
	}
	id = types.NewID()
	if _, err := a.queries.Exec("insert-api-key", id, name, secretID, ComputeHMAC(secret, key), time.Now().UTC()); err != nil {
		return "", "", fmt.Errorf("store key: %w", err)
	}
	a.logger.Info("api key created", zap.String("api_key_id", id.String()), zap.String("name", name))
	return key, id, nil
}

// RevokeKey marks a key revoked. Revoking twice is an error.
func (a *Authenticator) RevokeKey(id types.ID) error {
	res, err := a.queries.Exec("revoke-api-key", time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("revoke key: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("key %s: %w", id, types.ErrNotFound)
	}
	return nil
}

func (a *Authenticator) soleSecretID() (string, error) {
	switch len(a.secrets) {
	case 0:
		return "", ErrNoSecrets
	case 1:
		for id := range a.secrets {
			return id, nil
		}
	}
	ids := make([]string, 0, len(a.secrets))
	for id := range a.secrets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return "", fmt.Errorf("multiple secrets configured, choose one of %s", strings.Join(ids, ", "))
}

// UnaryInterceptor returns gRPC interceptor that authenticates requests.
// Health checks pass through unauthenticated.
func (a *Authenticator) UnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if strings.HasPrefix(info.FullMethod, "/grpc.health.v1.Health/") {
			return handler(ctx, req)
		}

		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing metadata")
		}

		apiKeys := md.Get(HeaderAPIKey)
		if len(apiKeys) == 0 {
			return nil, status.Error(codes.Unauthenticated, ErrMissingKey.Error())
		}

		principal, err := a.Authenticate(ctx, apiKeys[0])
		if err != nil {
			return nil, status.Error(GRPCCode(err), err.Error())
		}

		return handler(WithPrincipal(ctx, principal), req)
	}
}

// Middleware returns HTTP middleware that authenticates requests by the
// X-API-Key header. Failures are reported through onError with the status
// from HTTPStatus.
func (a *Authenticator) Middleware(onError func(w http.ResponseWriter, r *http.Request, err error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := r.Header.Get(HeaderAPIKey)
			if apiKey == "" {
				onError(w, r, ErrMissingKey)
				return
			}
			principal, err := a.Authenticate(r.Context(), apiKey)
			if err != nil {
				onError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

// GRPCCode maps an authentication error to its gRPC status code.
func GRPCCode(err error) codes.Code {
	switch {
	case errors.Is(err, ErrKeyRevoked):
		return codes.PermissionDenied
	case errors.Is(err, ErrUnavailable):
		return codes.Unavailable
	default:
		return codes.Unauthenticated
	}
}

// HTTPStatus maps an authentication error to its HTTP status code.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrKeyRevoked):
		return http.StatusForbidden
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusUnauthorized
	}
}

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext extracts the authenticated principal from context.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}
