package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/grouptable/grouptable-api/internal/models"
)

// TokenRepository stores refresh tokens.
type TokenRepository struct {
	db *sqlx.DB
}

// NewTokenRepository creates a new token repository.
func NewTokenRepository(db *sqlx.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// Create persists a refresh token.
func (r *TokenRepository) Create(ctx context.Context, token *models.RefreshToken) error {
	const query = `INSERT INTO refresh_tokens (id, principal_id, role, token, expires_at, created_at, revoked)
        VALUES (:id, :principal_id, :role, :token, :expires_at, :created_at, :revoked)`
	if _, err := r.db.NamedExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("create refresh token: %w", err)
	}
	return nil
}

// Find returns the stored refresh token by its opaque value.
func (r *TokenRepository) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	var stored models.RefreshToken
	const query = `SELECT id, principal_id, role, token, expires_at, created_at, revoked, revoked_at
        FROM refresh_tokens WHERE token = $1`
	if err := r.db.GetContext(ctx, &stored, query, token); err != nil {
		return nil, err
	}
	return &stored, nil
}

// Revoke marks a single refresh token as revoked.
func (r *TokenRepository) Revoke(ctx context.Context, id string, revokedAt time.Time) error {
	const query = `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, revokedAt); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// RevokeAllForPrincipal revokes every live token of a principal, used
// after password changes.
func (r *TokenRepository) RevokeAllForPrincipal(ctx context.Context, principalID int64, role models.Role) error {
	const query = `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = NOW()
        WHERE principal_id = $1 AND role = $2 AND NOT revoked`
	if _, err := r.db.ExecContext(ctx, query, principalID, role); err != nil {
		return fmt.Errorf("revoke principal tokens: %w", err)
	}
	return nil
}
