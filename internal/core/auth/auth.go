// Package auth provides HMAC-based API key authentication for gRPC services.
//
// Keys are never stored. The api_keys table holds HMAC-SHA256(secret, key),
// where the secret is picked by the id embedded in the key. Rotating a secret
// means adding WL_HMAC_SECRET_N and issuing new keys against it.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/solatis/wordloom/internal/types"
)

// contextKey is a typed key for context values to avoid collisions.
type contextKey string

// tenantIDKey is the context key for storing authenticated tenant ID.
const tenantIDKey = contextKey("tenant_id")

// Queries defines the database operations needed for authentication.
// Implemented by *db.Queries.
type Queries interface {
	GetContext(ctx context.Context, name string, dest any, args ...any) error
	ExecContext(ctx context.Context, name string, args ...any) (sql.Result, error)
}

// Authenticator validates and issues API keys.
type Authenticator struct {
	secrets map[string][]byte
	queries Queries
	logger  *slog.Logger
	now     func() time.Time
}

// NewAuthenticator creates an authenticator with HMAC secrets and query interface.
func NewAuthenticator(secrets map[string][]byte, queries Queries, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Authenticator{
		secrets: secrets,
		queries: queries,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Authenticate validates an API key and returns its tenant.
func (a *Authenticator) Authenticate(ctx context.Context, apiKey string) (types.TenantID, error) {
	secretID, _, err := ParseAPIKey(apiKey)
	if err != nil {
		return "", err
	}

	secret, ok := a.secrets[secretID]
	if !ok {
		return "", ErrUnknownKey
	}

	var result struct {
		APIKeyID   string       `db:"api_key_id"`
		TenantID   string       `db:"tenant_id"`
		RevokedAt  sql.NullTime `db:"revoked_at"`
		LastUsedAt sql.NullTime `db:"last_used_at"`
	}

	err = a.queries.GetContext(ctx, "get-api-key-by-hash", &result, ComputeHMAC(secret, apiKey))
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrInvalidKey
	}
	if err != nil {
		return "", fmt.Errorf("%w: %w", types.ErrStorage, err)
	}

	if result.RevokedAt.Valid {
		return "", ErrKeyRevoked
	}

	// 1-minute throttle keeps busy clients from writing on every call
	if a.shouldUpdateLastUsed(result.LastUsedAt) {
		if _, err := a.queries.ExecContext(ctx, "update-last-used", a.now(), result.APIKeyID); err != nil {
			a.logger.Warn("failed to update key last_used_at", "api_key_id", result.APIKeyID, "error", err)
		}
	}

	return types.TenantID(result.TenantID), nil
}

func (a *Authenticator) shouldUpdateLastUsed(lastUsed sql.NullTime) bool {
	if !lastUsed.Valid {
		return true
	}
	return a.now().Sub(lastUsed.Time) > time.Minute
}

// IssuedKey is a newly created API key. Key is shown once and never stored.
type IssuedKey struct {
	ID       types.APIKeyID
	TenantID types.TenantID
	Name     string
	Key      string
}

// Issue creates an API key for tenant, bound to the newest configured secret.
func (a *Authenticator) Issue(ctx context.Context, tenant types.TenantID, name string) (*IssuedKey, error) {
	if tenant == "" {
		return nil, fmt.Errorf("tenant is required")
	}
	secretID, ok := a.newestSecretID()
	if !ok {
		return nil, fmt.Errorf("no HMAC secrets configured (set WL_HMAC_SECRET environment variable)")
	}

	key, err := GenerateAPIKey(secretID)
	if err != nil {
		return nil, err
	}
	id := types.NewAPIKeyID()

	_, err = a.queries.ExecContext(ctx, "insert-api-key",
		string(id), string(tenant), name, secretID, ComputeHMAC(a.secrets[secretID], key), a.now())
	if err != nil {
		return nil, fmt.Errorf("%w: insert API key: %w", types.ErrStorage, err)
	}

	return &IssuedKey{ID: id, TenantID: tenant, Name: name, Key: key}, nil
}

// newestSecretID picks the highest secret id. Secret ids are UUIDv7 hex, so
// the highest is the most recently generated.
func (a *Authenticator) newestSecretID() (string, bool) {
	if len(a.secrets) == 0 {
		return "", false
	}
	ids := make([]string, 0, len(a.secrets))
	for id := range a.secrets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids[len(ids)-1], true
}

// Revoke marks an API key revoked. Revoking twice reports ErrInvalidKey.
func (a *Authenticator) Revoke(ctx context.Context, id types.APIKeyID) error {
	res, err := a.queries.ExecContext(ctx, "revoke-api-key", a.now(), string(id))
	if err != nil {
		return fmt.Errorf("%w: revoke API key: %w", types.ErrStorage, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrInvalidKey
	}
	return nil
}

// publicMethods skip authentication.
var publicMethods = map[string]bool{
	"/grpc.health.v1.Health/Check": true,
	"/grpc.health.v1.Health/Watch": true,
	"/grpc.health.v1.Health/List":  true,
}

// UnaryInterceptor returns gRPC interceptor that authenticates requests.
func (a *Authenticator) UnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if publicMethods[info.FullMethod] {
			return handler(ctx, req)
		}

		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing metadata")
		}

		apiKeys := md.Get("x-api-key")
		if len(apiKeys) == 0 {
			return nil, status.Error(codes.Unauthenticated, ErrMissingKey.Error())
		}

		tenantID, err := a.Authenticate(ctx, apiKeys[0])
		if err != nil {
			switch {
			case errors.Is(err, ErrKeyRevoked):
				return nil, status.Error(codes.PermissionDenied, err.Error())
			case errors.Is(err, types.ErrStorage):
				return nil, status.Error(codes.Unavailable, err.Error())
			default:
				return nil, status.Error(codes.Unauthenticated, err.Error())
			}
		}

		return handler(WithTenantID(ctx, tenantID), req)
	}
}

// WithTenantID returns ctx carrying tenant.
func WithTenantID(ctx context.Context, tenant types.TenantID) context.Context {
	return context.WithValue(ctx, tenantIDKey, tenant)
}

// TenantIDFromContext extracts tenant ID from context.
// Returns empty string if not found.
func TenantIDFromContext(ctx context.Context) types.TenantID {
	if tenantID, ok := ctx.Value(tenantIDKey).(types.TenantID); ok {
		return tenantID
	}
	return ""
}
