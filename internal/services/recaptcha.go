package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/encore/internal/shared"
)

const defaultVerifyURL = "https://www.google.com/recaptcha/api/siteverify"

// recaptchaResponse is the siteverify answer. Score is only present for v3 keys.
type recaptchaResponse struct {
	Success    bool     `json:"success"`
	Score      *float64 `json:"score,omitempty"`
	Action     string   `json:"action,omitempty"`
	Hostname   string   `json:"hostname"`
	ErrorCodes []string `json:"error-codes"`
}

// Recaptcha implements [Verifier] with Google reCAPTCHA.
type Recaptcha struct {
	secret     string
	verifyURL  string
	minScore   float64
	httpClient *http.Client
}

var _ Verifier = (*Recaptcha)(nil)

// NewRecaptcha creates a verifier from cfg. A nil client uses [http.DefaultClient].
func NewRecaptcha(cfg shared.RecaptchaConfig, client *http.Client) *Recaptcha {
	if client == nil {
		client = http.DefaultClient
	}
	verifyURL := cfg.VerifyURL
	if verifyURL == "" {
		verifyURL = defaultVerifyURL
	}
	return &Recaptcha{secret: cfg.SecretKey, verifyURL: verifyURL, minScore: cfg.MinScore, httpClient: client}
}

// Enabled reports whether a secret key is configured.
func (r *Recaptcha) Enabled() bool { return r.secret != "" }

// Verify posts token to siteverify. Disabled verifiers accept everything.
func (r *Recaptcha) Verify(ctx context.Context, token, remoteIP string) error {
	if !r.Enabled() {
		return nil
	}
	if strings.TrimSpace(token) == "" {
		return fmt.Errorf("%w: missing token", shared.ErrCaptchaFailed)
	}

	form := url.Values{"secret": {r.secret}, "response": {token}}
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: recaptcha: %v", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	var result recaptchaResponse
	if err := decodeJSON(resp, "recaptcha", &result); err != nil {
		return err
	}

	if !result.Success {
		return fmt.Errorf("%w: %s", shared.ErrCaptchaFailed, strings.Join(result.ErrorCodes, ", "))
	}
	if result.Score != nil && *result.Score < r.minScore {
		return fmt.Errorf("%w: score %.2f below %.2f", shared.ErrCaptchaFailed, *result.Score, r.minScore)
	}
	return nil
}
