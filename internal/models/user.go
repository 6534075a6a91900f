package models

import (
	"time"

	"github.com/desertthunder/encore/internal/shared"
)

// Provider identifies how a [User] signs in.
type Provider string

const (
	ProviderCredentials Provider = "credentials"
	ProviderGoogle      Provider = "google"
)

// User is a login account. Admins manage the school; users see their linked student records.
type User struct {
	ID              string     `json:"id"`
	Name            string     `json:"name" form:"name" validate:"required,notblank,max=120"`
	Email           string     `json:"email" form:"email" validate:"required,email,max=254"`
	PasswordHash    string     `json:"-"`
	Role            Role       `json:"role" form:"role" validate:"required,role"`
	Provider        Provider   `json:"provider"`
	EmailVerifiedAt *time.Time `json:"email_verified_at,omitempty"`
	LastLoginAt     *time.Time `json:"last_login_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// NewUser creates an unverified credentials user with the default role.
func NewUser(name, email string) *User {
	now := time.Now().UTC()
	return &User{
		Name:      name,
		Email:     shared.NormalizeEmail(email),
		Role:      RoleUser,
		Provider:  ProviderCredentials,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (u *User) Validate() error { return Validate(u) }

// Verified reports whether the user has confirmed their email address.
func (u *User) Verified() bool { return u.EmailVerifiedAt != nil }

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool { return u.Role.IsAdmin() }

// HasPassword reports whether credentials login is possible for this account.
func (u *User) HasPassword() bool { return u.PasswordHash != "" }
