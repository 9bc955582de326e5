package repository

import (
	"context"
	"database/sql"
	"time"
)

// TokenRepo persists refresh tokens and password reset tokens.  Only
// sha256 hashes are stored; the raw values live with the client.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// StoreRefresh inserts a refresh token hash row.
func (r *TokenRepo) StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?,?,?)",
		userID, tokenHash, exp)
	return err
}

// ValidateRefresh returns userID if a non-revoked, non-expired token exists.
func (r *TokenRepo) ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error) {
	var (
		userID    uint64
		expiresAt time.Time
		revokedAt sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT user_id, expires_at, revoked_at FROM refresh_tokens WHERE token_hash=? LIMIT 1",
		tokenHash).Scan(&userID, &expiresAt, &revokedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, ErrNotFound
		}
		return 0, err
	}
	if revokedAt.Valid || time.Now().UTC().After(expiresAt) {
		return 0, ErrNotFound
	}
	return userID, nil
}

// RevokeByHash marks a token as revoked.
func (r *TokenRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=NOW() WHERE token_hash=? AND revoked_at IS NULL",
		tokenHash)
	return err
}

// RevokeAllForUser revokes all user's active tokens.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=NOW() WHERE user_id=? AND revoked_at IS NULL",
		userID)
	return err
}

// StoreReset records a single-use password reset token.
func (r *TokenRepo) StoreReset(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO password_resets (user_id, token_hash, expires_at) VALUES (?,?,?)",
		userID, tokenHash, exp)
	return err
}

// ConsumeReset marks a reset token used and returns its user.  A token
// that is unknown, expired or already used yields ErrNotFound.
func (r *TokenRepo) ConsumeReset(ctx context.Context, tokenHash string, now time.Time) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE password_resets SET used_at=? WHERE token_hash=? AND used_at IS NULL AND expires_at > ?",
		now, tokenHash, now)
	if err != nil {
		return 0, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, ErrNotFound
	}
	var userID uint64
	err = r.DB.QueryRowContext(ctx,
		"SELECT user_id FROM password_resets WHERE token_hash=? LIMIT 1", tokenHash).Scan(&userID)
	if err != nil {
		return 0, err
	}
	return userID, nil
}

// PurgeExpired deletes refresh tokens that are revoked or expired and reset
// tokens that are used or expired.  It returns the number of removed rows.
func (r *TokenRepo) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM refresh_tokens WHERE revoked_at IS NOT NULL OR expires_at < ?", now)
	if err != nil {
		return 0, err
	}
	n1, _ := res.RowsAffected()
	res, err = r.DB.ExecContext(ctx,
		"DELETE FROM password_resets WHERE used_at IS NOT NULL OR expires_at < ?", now)
	if err != nil {
		return n1, err
	}
	n2, _ := res.RowsAffected()
	return n1 + n2, nil
}
