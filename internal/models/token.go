package models

import (
	"time"

	"github.com/desertthunder/encore/internal/shared"
)

// VerificationToken is a one-time email verification token.
type VerificationToken struct {
	ID        string    `json:"id"`
	Email     string    `json:"email" validate:"required,email"`
	Token     string    `json:"-" validate:"required"`
	ExpiresAt time.Time `json:"expires_at" validate:"required"`
	CreatedAt time.Time `json:"created_at"`
}

// NewVerificationToken issues a random token for email valid for ttl.
func NewVerificationToken(email string, ttl time.Duration) *VerificationToken {
	now := time.Now().UTC()
	return &VerificationToken{
		Email:     shared.NormalizeEmail(email),
		Token:     shared.GenerateID(),
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
}

func (t *VerificationToken) Validate() error { return Validate(t) }

// Expired reports whether the token is no longer usable at now.
func (t *VerificationToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
