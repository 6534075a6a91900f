package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/desertthunder/encore/internal/auth"
	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/shared"
	"github.com/urfave/cli/v3"
)

// UserAdd provisions a verified account, typically the first administrator.
func (r *Runner) UserAdd(ctx context.Context, cmd *cli.Command) error {
	name := strings.TrimSpace(cmd.String("name"))
	email := strings.TrimSpace(cmd.String("email"))
	password := cmd.String("password")

	switch {
	case name == "":
		return fmt.Errorf("%w: --name", shared.ErrMissingArgument)
	case email == "":
		return fmt.Errorf("%w: --email", shared.ErrMissingArgument)
	case password == "":
		return fmt.Errorf("%w: --password", shared.ErrMissingArgument)
	}

	role := models.Role(strings.ToLower(cmd.String("role")))
	if !role.Valid() {
		return fmt.Errorf("%w: role %q (want admin or user)", shared.ErrInvalidArgument, role)
	}

	s, err := r.stores(ctx)
	if err != nil {
		return err
	}
	mailer, err := r.mail()
	if err != nil {
		return err
	}

	sessions := auth.NewSessions(r.config.Auth.Secret, r.config.Auth.SessionTTL.Duration, false)
	user, err := r.accounts(s, sessions, mailer).Provision(ctx, name, email, password, role)
	if err != nil {
		return err
	}

	r.logger.Info("user provisioned", "id", user.ID, "email", user.Email, "role", user.Role)
	r.writePlain("✓ Created %s <%s> as %s\n", user.Name, user.Email, user.Role.Label())
	return nil
}

// UserList prints every account, optionally filtered by role.
func (r *Runner) UserList(ctx context.Context, cmd *cli.Command) error {
	criteria := models.Criteria{}
	if role := strings.ToLower(cmd.String("role")); role != "" {
		if !models.Role(role).Valid() {
			return fmt.Errorf("%w: role %q", shared.ErrInvalidArgument, role)
		}
		criteria["role"] = role
	}
	if search := cmd.String("search"); search != "" {
		criteria["search"] = search
	}

	s, err := r.stores(ctx)
	if err != nil {
		return err
	}

	users, err := s.users.List(ctx, criteria)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(users, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("Users (%d)", len(users)))
	for _, u := range users {
		verified := "unverified"
		if u.EmailVerifiedAt != nil {
			verified = "verified"
		}
		r.writePlain("%-24s %-32s %-14s %s\n", u.Name, u.Email, u.Role.Label(), verified)
	}
	return nil
}

// UserRole changes the role of the account with the given email.
func (r *Runner) UserRole(ctx context.Context, cmd *cli.Command) error {
	email := cmd.StringArg("email")
	if email == "" {
		return fmt.Errorf("%w: email", shared.ErrMissingArgument)
	}
	role := models.Role(strings.ToLower(cmd.StringArg("role")))
	if !role.Valid() {
		return fmt.Errorf("%w: role %q (want admin or user)", shared.ErrInvalidArgument, role)
	}

	s, err := r.stores(ctx)
	if err != nil {
		return err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if err := s.users.UpdateRole(ctx, user.ID, role); err != nil {
		return err
	}

	r.logger.Info("role changed", "email", user.Email, "from", user.Role, "to", role)
	r.writePlain("✓ %s is now %s\n", user.Email, role.Label())
	return nil
}

// UserVerify marks an account's email as confirmed and links its student record.
func (r *Runner) UserVerify(ctx context.Context, cmd *cli.Command) error {
	email := cmd.StringArg("email")
	if email == "" {
		return fmt.Errorf("%w: email", shared.ErrMissingArgument)
	}

	s, err := r.stores(ctx)
	if err != nil {
		return err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user.EmailVerifiedAt != nil {
		r.writePlain("%s is already verified\n", user.Email)
		return nil
	}

	if err := s.users.MarkVerified(ctx, user.ID, r.now()); err != nil {
		return err
	}
	if err := s.students.LinkUser(ctx, user.Email, user.ID); err != nil && !errors.Is(err, shared.ErrNotFound) {
		return err
	}

	r.writePlain("✓ Verified %s\n", user.Email)
	return nil
}
