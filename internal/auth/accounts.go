package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/repositories"
	"github.com/desertthunder/encore/internal/services"
	"github.com/desertthunder/encore/internal/shared"
)

// RegisterInput is the sign-up form.
type RegisterInput struct {
	Name            string `form:"name" validate:"required,notblank,max=120"`
	Email           string `form:"email" validate:"required,email,max=254"`
	Password        string `form:"password" validate:"required,min=8,max=72"`
	ConfirmPassword string `form:"confirm_password" validate:"required,eqfield=Password"`
}

// AccountsOpts configures [Accounts].
type AccountsOpts struct {
	Users           *repositories.UserRepository
	Students        *repositories.StudentRepository
	Tokens          *repositories.TokenRepository
	Sessions        *Sessions
	Mailer          services.Mailer
	Logger          *log.Logger
	School          string
	BaseURL         string
	VerificationTTL time.Duration
}

// Accounts implements registration, verification and login.
type Accounts struct {
	users           *repositories.UserRepository
	students        *repositories.StudentRepository
	tokens          *repositories.TokenRepository
	sessions        *Sessions
	mailer          services.Mailer
	logger          *log.Logger
	school          string
	baseURL         string
	verificationTTL time.Duration
	now             func() time.Time
}

// NewAccounts creates an [Accounts] service.
func NewAccounts(opts AccountsOpts) *Accounts {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.VerificationTTL <= 0 {
		opts.VerificationTTL = time.Hour
	}
	if opts.School == "" {
		opts.School = "Encore School of Music"
	}

	return &Accounts{
		users:           opts.Users,
		students:        opts.Students,
		tokens:          opts.Tokens,
		sessions:        opts.Sessions,
		mailer:          opts.Mailer,
		logger:          opts.Logger,
		school:          opts.School,
		baseURL:         strings.TrimRight(opts.BaseURL, "/"),
		verificationTTL: opts.VerificationTTL,
		now:             time.Now,
	}
}

// Register creates an unverified credentials account and emails a verification link.
//
// The first account ever created is an admin. When the email cannot be sent the account still exists and the
// returned error wraps [shared.ErrMailFailed]; the user can ask for a new link.
func (a *Accounts) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Email = shared.NormalizeEmail(in.Email)
	if err := models.Validate(&in); err != nil {
		return nil, err
	}

	if _, err := a.users.GetByEmail(ctx, in.Email); err == nil {
		return nil, fmt.Errorf("account for %s: %w", in.Email, shared.ErrDuplicate)
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := models.NewUser(strings.TrimSpace(in.Name), in.Email)
	user.PasswordHash = hash

	if err := a.users.CreateBootstrapAdmin(ctx, user); err != nil {
		return nil, err
	}
	a.logger.Info("account registered", "id", user.ID, "role", user.Role)

	if err := a.sendVerification(ctx, user); err != nil {
		return user, err
	}
	return user, nil
}

// Verify consumes a verification token, marks its account verified and links the student with the
// same email. Expired tokens are deleted and rejected.
func (a *Accounts) Verify(ctx context.Context, value string) (*models.User, error) {
	if strings.TrimSpace(value) == "" {
		return nil, shared.ErrInvalidToken
	}

	token, err := a.tokens.GetByToken(ctx, value)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, shared.ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}

	if token.Expired(a.now()) {
		if err := a.tokens.Delete(ctx, token.ID); err != nil {
			a.logger.Warn("failed to delete expired token", "error", err)
		}
		return nil, shared.ErrTokenExpired
	}

	user, err := a.users.GetByEmail(ctx, token.Email)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, shared.ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}

	now := a.now().UTC()
	if err := a.users.MarkVerified(ctx, user.ID, now); err != nil {
		return nil, err
	}
	user.EmailVerifiedAt = &now

	if _, err := a.tokens.DeleteByEmail(ctx, user.Email); err != nil {
		a.logger.Warn("failed to delete used tokens", "email", user.Email, "error", err)
	}

	a.linkStudent(ctx, user)
	a.logger.Info("email verified", "id", user.ID)
	return user, nil
}

// ResendVerification issues a fresh link for an unverified account. Unknown and already verified
// addresses succeed silently so the form does not reveal which emails have accounts.
func (a *Accounts) ResendVerification(ctx context.Context, email string) error {
	user, err := a.users.GetByEmail(ctx, email)
	if errors.Is(err, shared.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if user.Verified() {
		return nil
	}

	if _, err := a.tokens.DeleteByEmail(ctx, user.Email); err != nil {
		return err
	}
	return a.sendVerification(ctx, user)
}

// Login checks credentials and returns the account with a signed session token.
func (a *Accounts) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	user, err := a.users.GetByEmail(ctx, email)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, "", shared.ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", err
	}

	if !CheckPassword(user.PasswordHash, password) {
		return nil, "", shared.ErrInvalidCredentials
	}
	if !user.Verified() {
		return nil, "", shared.ErrEmailNotVerified
	}

	return a.startSession(ctx, user)
}

// LoginWithProfile signs in with an OAuth identity, creating a verified account on first use.
func (a *Accounts) LoginWithProfile(ctx context.Context, profile *services.OAuthProfile) (*models.User, string, error) {
	if profile == nil || profile.Email == "" {
		return nil, "", shared.ErrAuthFailed
	}
	if !profile.EmailVerified {
		return nil, "", shared.ErrEmailNotVerified
	}

	now := a.now().UTC()
	user, err := a.users.GetByEmail(ctx, profile.Email)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		name := strings.TrimSpace(profile.Name)
		if name == "" {
			name = strings.SplitN(profile.Email, "@", 2)[0]
		}

		user = models.NewUser(name, profile.Email)
		user.Provider = models.ProviderGoogle
		user.EmailVerifiedAt = &now

		if err := a.users.CreateBootstrapAdmin(ctx, user); err != nil {
			return nil, "", err
		}
		a.logger.Info("account created from oauth", "id", user.ID, "provider", profile.Provider)
	case err != nil:
		return nil, "", err
	case !user.Verified():
		// An unverified sign-up password does not survive a verified Google login.
		user.PasswordHash = ""
		user.Provider = models.ProviderGoogle
		user.EmailVerifiedAt = &now
		if err := a.users.Update(ctx, user); err != nil {
			return nil, "", err
		}
		if _, err := a.tokens.DeleteByEmail(ctx, user.Email); err != nil {
			a.logger.Warn("failed to delete pending tokens", "email", user.Email, "error", err)
		}
		a.logger.Info("unverified account claimed via oauth", "id", user.ID, "provider", profile.Provider)
	}

	a.linkStudent(ctx, user)
	return a.startSession(ctx, user)
}

// Provision creates a verified credentials account directly, for the command line.
func (a *Accounts) Provision(ctx context.Context, name, email, password string, role models.Role) (*models.User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	now := a.now().UTC()
	user := models.NewUser(name, email)
	user.PasswordHash = hash
	user.Role = role
	user.EmailVerifiedAt = &now

	if err := a.users.Create(ctx, user); err != nil {
		return nil, err
	}

	a.linkStudent(ctx, user)
	return user, nil
}

// VerificationLink builds the URL emailed to the user.
func (a *Accounts) VerificationLink(token string) string {
	return a.baseURL + "/verify?token=" + url.QueryEscape(token)
}

func (a *Accounts) startSession(ctx context.Context, user *models.User) (*models.User, string, error) {
	now := a.now().UTC()
	if err := a.users.TouchLogin(ctx, user.ID, now); err != nil {
		return nil, "", err
	}
	user.LastLoginAt = &now

	token, err := a.sessions.Issue(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (a *Accounts) sendVerification(ctx context.Context, user *models.User) error {
	token := models.NewVerificationToken(user.Email, a.verificationTTL)
	if err := a.tokens.Create(ctx, token); err != nil {
		return err
	}

	msg, err := services.VerificationMessage(user.Email, services.VerifyData{
		School:  a.school,
		Name:    user.Name,
		Link:    a.VerificationLink(token.Token),
		Expires: services.FormatTTL(a.verificationTTL),
	})
	if err != nil {
		return err
	}

	if err := a.mailer.Send(ctx, msg); err != nil {
		a.logger.Error("failed to send verification email", "email", user.Email, "error", err)
		if errors.Is(err, shared.ErrMailFailed) {
			return err
		}
		return fmt.Errorf("%w: %v", shared.ErrMailFailed, err)
	}
	return nil
}

// linkStudent attaches the student with the user's email, if there is one.
func (a *Accounts) linkStudent(ctx context.Context, user *models.User) {
	if a.students == nil {
		return
	}
	err := a.students.LinkUser(ctx, user.Email, user.ID)
	switch {
	case err == nil:
		a.logger.Info("student linked to account", "user", user.ID)
	case !errors.Is(err, shared.ErrNotFound):
		a.logger.Warn("failed to link student", "user", user.ID, "error", err)
	}
}
