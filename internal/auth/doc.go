// Package auth handles sign-in for the web application.
//
// Passwords are hashed with bcrypt. A successful login issues an HS256 JWT ([Claims]) that is stored in
// an HttpOnly cookie by [Sessions]; the [Sessions.Middleware] parses it on every request and the
// [RequireUser] and [RequireRole] guards gate the user and admin areas.
//
// [Accounts] implements the account flows: registration with email verification, resending the
// verification link, credentials login, and Google login via an [services.OAuthProfile]. The first account
// ever created becomes an admin. Verifying an email links the student record with the same address.
//
// [Limiter] throttles login and contact submissions per client key with token buckets.
package auth
