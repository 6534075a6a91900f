package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/shared"
)

const tokenColumns = "id, email, token, expires_at, created_at"

// TokenRepository stores one-time email verification tokens.
type TokenRepository struct {
	db *sql.DB
}

// NewTokenRepository creates a new [TokenRepository]
func NewTokenRepository(db *sql.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// Create stores a verification token
func (r *TokenRepository) Create(ctx context.Context, token *models.VerificationToken) error {
	token.Email = shared.NormalizeEmail(token.Email)
	if err := token.Validate(); err != nil {
		return err
	}

	if token.ID == "" {
		token.ID = shared.GenerateID()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO verification_tokens (` + tokenColumns + `) VALUES (?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, token.ID, token.Email, token.Token, token.ExpiresAt.UTC(), token.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("verification token: %w", shared.ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("failed to create verification token: %w", err)
	}
	return nil
}

// GetByToken looks up a token by its secret value. Expiry is left to the caller.
func (r *TokenRepository) GetByToken(ctx context.Context, value string) (*models.VerificationToken, error) {
	b := sq.Select(tokenColumns).From("verification_tokens").Where("token = ?", value)
	return queryOne(ctx, r.db, b, "verification token", scanToken)
}

// DeleteByEmail removes every token issued to email and returns how many were removed.
func (r *TokenRepository) DeleteByEmail(ctx context.Context, email string) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM verification_tokens WHERE email = ?", shared.NormalizeEmail(email))
	if err != nil {
		return 0, fmt.Errorf("failed to delete verification tokens: %w", err)
	}
	return result.RowsAffected()
}

// Delete removes a token by ID
func (r *TokenRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM verification_tokens WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete verification token: %w", err)
	}
	return expectOne(result, "verification token", id)
}

// DeleteExpired removes tokens that expired at or before now.
func (r *TokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM verification_tokens WHERE expires_at <= ?", now.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired tokens: %w", err)
	}
	return result.RowsAffected()
}

func scanToken(s scanner) (*models.VerificationToken, error) {
	var token models.VerificationToken
	if err := s.Scan(&token.ID, &token.Email, &token.Token, &token.ExpiresAt, &token.CreatedAt); err != nil {
		return nil, err
	}
	return &token, nil
}
