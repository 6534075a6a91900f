package web

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/encore/internal/actions"
	"github.com/desertthunder/encore/internal/auth"
	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/server"
	"github.com/desertthunder/encore/internal/shared"
)

type loginData struct {
	Next   string
	Google bool
}

func (a *App) loginView(w http.ResponseWriter, r *http.Request, next string) *view {
	v := a.newView(w, r, "Sign in")
	v.Data = loginData{Next: next, Google: a.oauth != nil}
	return v
}

// landing is where a user goes after signing in when no return path was requested.
func landing(role models.Role) string {
	if role.IsAdmin() {
		return "/admin"
	}
	return "/dashboard"
}

func (a *App) loginForm(w http.ResponseWriter, r *http.Request) {
	if claims, ok := auth.CurrentUser(r.Context()); ok {
		http.Redirect(w, r, auth.SafeNext(r.URL.Query().Get("next"), landing(claims.Role)), http.StatusSeeOther)
		return
	}
	a.render(w, r, http.StatusOK, "login", a.loginView(w, r, r.URL.Query().Get("next")))
}

// loginAddressFactor sizes the per-address login bucket relative to the per-address-and-email one.
const loginAddressFactor = 5

// login checks credentials and starts a session. Attempts are rate limited per address and email, which
// resets after a successful sign in, and per address alone, which does not.
func (a *App) login(w http.ResponseWriter, r *http.Request) {
	form, err := parseForm(w, r)
	if err != nil {
		a.renderError(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}

	email := shared.NormalizeEmail(form.Get("email"))
	next := form.Get("next")
	ip := clientIP(r)
	key := "login:" + ip + ":" + email

	fail := func(status int, res models.Result) {
		if wantsJSON(r) {
			a.writeJSON(w, status, res)
			return
		}
		v := a.loginView(w, r, next)
		v.Result = &res
		v.Form = url.Values{"email": {email}}
		a.render(w, r, status, "login", v)
	}

	if !a.limiter.Allow(key) || !a.limiter.AllowScaled("login-ip:"+ip, loginAddressFactor) {
		a.metrics.RecordLogin("rate_limited")
		fail(http.StatusTooManyRequests, models.FromError(shared.ErrRateLimited, ""))
		return
	}

	user, token, err := a.accounts.Login(r.Context(), email, form.Get("password"))
	switch {
	case errors.Is(err, shared.ErrInvalidCredentials):
		a.metrics.RecordLogin("invalid")
		fail(http.StatusUnauthorized, models.FromError(err, ""))
		return
	case errors.Is(err, shared.ErrEmailNotVerified):
		a.metrics.RecordLogin("unverified")
		res := models.FromError(err, "")
		res.Message = "Please verify your email address first. Check your inbox or request a new link."
		fail(http.StatusForbidden, res)
		return
	case err != nil:
		a.metrics.RecordLogin("error")
		a.serverError(w, r, err)
		return
	}

	a.limiter.Reset(key)
	a.metrics.RecordLogin("success")
	a.sessions.SetCookie(w, token)
	a.logger.Info("signed in", "user", user.ID)

	dest := auth.SafeNext(next, landing(user.Role))
	if wantsJSON(r) {
		a.writeJSON(w, http.StatusOK, models.Result{Status: models.StatusSuccess, Message: "Signed in.", ID: user.ID, Data: map[string]string{"redirect": dest}})
		return
	}
	http.Redirect(w, r, dest, http.StatusSeeOther)
}

func (a *App) logout(w http.ResponseWriter, r *http.Request) {
	a.sessions.ClearCookie(w)
	if wantsJSON(r) {
		a.writeJSON(w, http.StatusOK, models.Success("Signed out.", ""))
		return
	}
	a.setFlash(w, "success", "You have been signed out.")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (a *App) registerForm(w http.ResponseWriter, r *http.Request) {
	v := a.newView(w, r, "Create an account")
	v.Data = loginData{Google: a.oauth != nil}
	a.render(w, r, http.StatusOK, "register", v)
}

// register creates an account and emails a verification link.
func (a *App) register(w http.ResponseWriter, r *http.Request) {
	form, err := parseForm(w, r)
	if err != nil {
		a.renderError(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}

	var res models.Result
	var in auth.RegisterInput
	if err := actions.Bind(form, &in); err != nil {
		res = models.FromError(err, "The form could not be read.")
	} else {
		user, err := a.accounts.Register(r.Context(), in)
		switch {
		case err == nil:
			a.metrics.RecordEmail("verification", nil)
			res = models.Success("Account created. Check your email for a verification link.", user.ID)
		case errors.Is(err, shared.ErrMailFailed):
			a.metrics.RecordEmail("verification", err)
			res = models.Success("Account created, but we could not send the verification email. Request a new link below.", user.ID)
		case errors.Is(err, shared.ErrDuplicate):
			res = models.Failure("An account with this email already exists.")
			res.FieldErrors = map[string]string{"email": "email is already registered"}
		default:
			res = models.FromError(err, "We could not create your account. Please try again.")
			if res.FieldErrors == nil {
				a.logger.Error("registration failed", "error", err)
			}
		}
	}

	a.respond(w, r, res, "/verify", func(res models.Result) {
		form.Del("password")
		form.Del("confirm_password")
		v := a.newView(w, r, "Create an account")
		v.Data = loginData{Google: a.oauth != nil}
		v.Result = &res
		v.Form = form
		a.render(w, r, http.StatusUnprocessableEntity, "register", v)
	})
}

type verifyData struct {
	Verified bool
	Email    string
}

// verify consumes the token from an emailed link. Without a token it shows the resend form.
func (a *App) verify(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	v := a.newView(w, r, "Verify your email")

	if token == "" {
		v.Data = verifyData{}
		a.render(w, r, http.StatusOK, "verify", v)
		return
	}

	user, err := a.accounts.Verify(r.Context(), token)
	if err != nil {
		if !errors.Is(err, shared.ErrInvalidToken) && !errors.Is(err, shared.ErrTokenExpired) {
			a.serverError(w, r, err)
			return
		}
		res := models.FromError(err, "")
		if wantsJSON(r) {
			a.writeJSON(w, http.StatusBadRequest, res)
			return
		}
		v.Result = &res
		v.Data = verifyData{}
		a.render(w, r, http.StatusBadRequest, "verify", v)
		return
	}

	if wantsJSON(r) {
		a.writeJSON(w, http.StatusOK, models.Success("Email verified.", user.ID))
		return
	}
	v.Data = verifyData{Verified: true, Email: user.Email}
	a.render(w, r, http.StatusOK, "verify", v)
}

// resendVerification always reports success so the form does not reveal which emails have accounts.
func (a *App) resendVerification(w http.ResponseWriter, r *http.Request) {
	form, err := parseForm(w, r)
	if err != nil {
		a.renderError(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}

	email := shared.NormalizeEmail(form.Get("email"))
	var res models.Result
	switch {
	case email == "":
		res = models.Failure("Please enter your email address.")
	case !a.limiter.Allow("resend:" + clientIP(r)):
		res = models.FromError(shared.ErrRateLimited, "")
	default:
		err := a.accounts.ResendVerification(r.Context(), email)
		a.metrics.RecordEmail("verification", err)
		if err != nil {
			a.logger.Error("failed to resend verification", "error", err)
		}
		res = models.Success("If an unverified account exists for that address, a new link is on its way.", "")
	}

	a.respond(w, r, res, "/verify", nil)
}

// completeOAuth finishes a provider sign in started by [server.OAuthHandler].
func (a *App) completeOAuth(w http.ResponseWriter, r *http.Request, result server.OAuthResult) {
	if err := result.Error(); err != nil {
		a.metrics.RecordLogin("oauth_failed")
		a.logger.Warn("oauth sign in failed", "error", err)
		a.setFlash(w, "error", "Sign in with Google failed. Please try again.")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	user, token, err := a.accounts.LoginWithProfile(r.Context(), result.Profile)
	if err != nil {
		a.metrics.RecordLogin("oauth_failed")
		res := models.FromError(err, "Sign in with Google failed. Please try again.")
		a.setFlash(w, "error", res.Message)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	a.metrics.RecordLogin("success")
	a.sessions.SetCookie(w, token)
	http.Redirect(w, r, landing(user.Role), http.StatusSeeOther)
}
