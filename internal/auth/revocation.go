package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
)

// RevocationStore is a denylist of token ids that must be rejected before
// their natural expiry (logout).
type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// SQLRevocationStore keeps revoked token ids in the revoked_tokens table.
type SQLRevocationStore struct {
	db *sqlx.DB
}

// NewSQLRevocationStore creates a new SQLRevocationStore.
func NewSQLRevocationStore(db *sqlx.DB) *SQLRevocationStore {
	return &SQLRevocationStore{db: db}
}

// Revoke adds a token id to the denylist. Revoking twice is a no-op.
func (s *SQLRevocationStore) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	query := s.db.Rebind(`INSERT INTO revoked_tokens (jti, expires_at) VALUES (?, ?) ON CONFLICT (jti) DO NOTHING`)
	if _, err := s.db.ExecContext(ctx, query, tokenID, expiresAt.UTC().Truncate(time.Second)); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether the token id is on the denylist.
func (s *SQLRevocationStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	var n int
	query := s.db.Rebind(`SELECT COUNT(*) FROM revoked_tokens WHERE jti = ?`)
	if err := s.db.GetContext(ctx, &n, query, tokenID); err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return n > 0, nil
}

// PurgeExpired drops entries whose token has expired anyway.
func (s *SQLRevocationStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	query := s.db.Rebind(`DELETE FROM revoked_tokens WHERE expires_at <= ?`)
	res, err := s.db.ExecContext(ctx, query, now.UTC().Truncate(time.Second))
	if err != nil {
		return 0, fmt.Errorf("purge revoked tokens: %w", err)
	}
	return res.RowsAffected()
}

const redisRevokedPrefix = "revoked:"

// RedisRevocationStore keeps revoked token ids as Redis keys that expire
// together with the token.
type RedisRevocationStore struct {
	client *redis.Client
}

// NewRedisRevocationStore creates a new RedisRevocationStore.
func NewRedisRevocationStore(client *redis.Client) *RedisRevocationStore {
	return &RedisRevocationStore{client: client}
}

// Revoke adds a token id to the denylist until expiresAt.
func (s *RedisRevocationStore) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, redisRevokedPrefix+tokenID, 1, ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether the token id is on the denylist.
func (s *RedisRevocationStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.client.Exists(ctx, redisRevokedPrefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return n > 0, nil
}

// PurgeExpired is a no-op: Redis expires the keys itself.
func (s *RedisRevocationStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}
