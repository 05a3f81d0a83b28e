package mysql

import (
	"context"
	"database/sql"
	"time"

	"github.com/mkravets/famhub/internal/storage"
)

// tokenStore persists refresh tokens; only the SHA-256 hash of the raw
// token is stored.
type tokenStore struct {
	q querier
}

var _ storage.TokenStore = (*tokenStore)(nil)

func (s *tokenStore) StoreRefresh(ctx context.Context, userID uint64, tokenHash string, expiresAt time.Time) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?,?,?)`,
		userID, tokenHash, expiresAt.UTC().Format("2006-01-02 15:04:05"))
	return err
}

func (s *tokenStore) ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error) {
	var (
		userID    uint64
		expiresAt time.Time
		revokedAt sql.NullTime
	)
	err := s.q.QueryRowContext(ctx,
		`SELECT user_id, expires_at, revoked_at FROM refresh_tokens WHERE token_hash = ? LIMIT 1`,
		tokenHash).Scan(&userID, &expiresAt, &revokedAt)
	if err != nil {
		return 0, notFound(err)
	}
	if revokedAt.Valid || time.Now().UTC().After(expiresAt) {
		return 0, storage.ErrNotFound
	}
	return userID, nil
}

func (s *tokenStore) RevokeByHash(ctx context.Context, tokenHash string) error {
	_, err := s.q.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at = UTC_TIMESTAMP() WHERE token_hash = ? AND revoked_at IS NULL`,
		tokenHash)
	return err
}

func (s *tokenStore) RevokeAllForUser(ctx context.Context, userID uint64) error {
	_, err := s.q.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at = UTC_TIMESTAMP() WHERE user_id = ? AND revoked_at IS NULL`,
		userID)
	return err
}
