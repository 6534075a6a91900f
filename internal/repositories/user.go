package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/shared"
)

const userColumns = "id, name, email, password_hash, role, provider, email_verified_at, last_login_at, created_at, updated_at"

// UserRepository implements [models.Repository] for [models.User].
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new [UserRepository]
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user into the database. Emails are normalized before insert.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	user.Email = shared.NormalizeEmail(user.Email)
	if err := user.Validate(); err != nil {
		return err
	}

	if user.ID == "" {
		user.ID = shared.GenerateID()
	}

	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	query := `INSERT INTO users (` + userColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Name, user.Email, user.PasswordHash, string(user.Role), string(user.Provider),
		nullableTime(user.EmailVerifiedAt), nullableTime(user.LastLoginAt), user.CreatedAt, user.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("user with email %s: %w", user.Email, shared.ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// CreateBootstrapAdmin inserts user like [UserRepository.Create], except the account becomes an admin when the
// users table is empty. The emptiness check and the insert are one statement, so two concurrent sign-ups cannot
// both become the first admin. user.Role is updated to the stored role.
func (r *UserRepository) CreateBootstrapAdmin(ctx context.Context, user *models.User) error {
	user.Email = shared.NormalizeEmail(user.Email)
	if err := user.Validate(); err != nil {
		return err
	}

	if user.ID == "" {
		user.ID = shared.GenerateID()
	}

	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	query := `
		INSERT INTO users (` + userColumns + `)
		SELECT ?, ?, ?, ?, CASE WHEN EXISTS (SELECT 1 FROM users) THEN ? ELSE ? END, ?, ?, ?, ?, ?
	`
	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Name, user.Email, user.PasswordHash, string(user.Role), string(models.RoleAdmin),
		string(user.Provider), nullableTime(user.EmailVerifiedAt), nullableTime(user.LastLoginAt),
		user.CreatedAt, user.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("user with email %s: %w", user.Email, shared.ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	var role string
	if err := r.db.QueryRowContext(ctx, "SELECT role FROM users WHERE id = ?", user.ID).Scan(&role); err != nil {
		return fmt.Errorf("failed to read user role: %w", err)
	}
	user.Role = models.Role(role)
	return nil
}

// Get retrieves a user by ID
func (r *UserRepository) Get(ctx context.Context, id string) (*models.User, error) {
	return queryOne(ctx, r.db, sq.Select(userColumns).From("users").Where("id = ?", id), "user "+id, scanUser)
}

// GetByEmail retrieves a user by (normalized) email address
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	email = shared.NormalizeEmail(email)
	return queryOne(ctx, r.db, sq.Select(userColumns).From("users").Where("email = ?", email), "user "+email, scanUser)
}

// Update modifies an existing user's profile, password hash, role and provider.
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	user.Email = shared.NormalizeEmail(user.Email)
	if err := user.Validate(); err != nil {
		return err
	}

	user.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE users
		SET name = ?, email = ?, password_hash = ?, role = ?, provider = ?, email_verified_at = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		user.Name, user.Email, user.PasswordHash, string(user.Role), string(user.Provider),
		nullableTime(user.EmailVerifiedAt), user.UpdatedAt, user.ID,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("user with email %s: %w", user.Email, shared.ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return expectOne(result, "user", user.ID)
}

// UpdateRole changes the role of a user.
func (r *UserRepository) UpdateRole(ctx context.Context, id string, role models.Role) error {
	if !role.Valid() {
		return models.NewValidationError("role", "role must be a valid role")
	}

	result, err := r.db.ExecContext(ctx, "UPDATE users SET role = ?, updated_at = ? WHERE id = ?",
		string(role), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update user role: %w", err)
	}
	return expectOne(result, "user", id)
}

// MarkVerified records the time the user confirmed their email address.
func (r *UserRepository) MarkVerified(ctx context.Context, id string, at time.Time) error {
	result, err := r.db.ExecContext(ctx, "UPDATE users SET email_verified_at = ?, updated_at = ? WHERE id = ?",
		at.UTC(), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to mark user verified: %w", err)
	}
	return expectOne(result, "user", id)
}

// TouchLogin records a successful sign-in.
func (r *UserRepository) TouchLogin(ctx context.Context, id string, at time.Time) error {
	result, err := r.db.ExecContext(ctx, "UPDATE users SET last_login_at = ? WHERE id = ?", at.UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to record login: %w", err)
	}
	return expectOne(result, "user", id)
}

// Delete removes a user. Linked students are unlinked by the users foreign key.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return expectOne(result, "user", id)
}

// List retrieves users ordered by name.
//
// Criteria: "role" and "search" (name or email substring).
func (r *UserRepository) List(ctx context.Context, criteria models.Criteria) ([]*models.User, error) {
	b := r.filter(sq.Select(userColumns).From("users"), criteria).OrderBy("name ASC", "email ASC")
	return queryAll(ctx, r.db, b, scanUser)
}

// Count returns the number of users matching criteria.
func (r *UserRepository) Count(ctx context.Context, criteria models.Criteria) (int, error) {
	return countRows(ctx, r.db, r.filter(sq.Select("COUNT(*)").From("users"), criteria))
}

func (r *UserRepository) filter(b squirrel.SelectBuilder, c models.Criteria) squirrel.SelectBuilder {
	b = withEq(b, c, map[string]string{"role": "role"})
	if term, ok := c.String("search"); ok {
		b = withSearch(b, term, "name", "email")
	}
	return b
}

func scanUser(s scanner) (*models.User, error) {
	var (
		user             models.User
		role, provider   string
		verified, logged sql.NullTime
	)

	err := s.Scan(
		&user.ID, &user.Name, &user.Email, &user.PasswordHash, &role, &provider,
		&verified, &logged, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	user.Role = models.Role(role)
	user.Provider = models.Provider(provider)
	user.EmailVerifiedAt = timePtr(verified)
	user.LastLoginAt = timePtr(logged)
	return &user, nil
}
