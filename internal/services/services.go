// package services defines the integrations with external APIs
//
// SendGrid, reCAPTCHA, Google OAuth2, Google Sheets
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/desertthunder/encore/internal/shared"
)

// Message is a rendered email ready for delivery.
type Message struct {
	To      string
	ToName  string
	ReplyTo string
	Subject string
	Text    string
	HTML    string
}

// Mailer delivers email.
type Mailer interface {
	// Send delivers msg or returns an error wrapping [shared.ErrMailFailed].
	Send(ctx context.Context, msg *Message) error

	// Name returns the name of the provider (e.g., "sendgrid", "log")
	Name() string
}

// Verifier checks a human-verification token submitted with a public form.
type Verifier interface {
	// Verify returns nil when the token is accepted, or an error wrapping [shared.ErrCaptchaFailed].
	Verify(ctx context.Context, token, remoteIP string) error

	// Enabled reports whether verification is configured; forms skip the widget otherwise.
	Enabled() bool
}

// OAuthProfile is the identity returned by an OAuth provider after sign-in.
type OAuthProfile struct {
	Provider      string `json:"-"`
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

// decodeJSON checks the response status and decodes the JSON body into result.
func decodeJSON(resp *http.Response, service string, result any) error {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s status %d", shared.ErrServiceUnavailable, service, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode %s response: %w", service, err)
		}
	}
	return nil
}
