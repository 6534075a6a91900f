package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrForbidden        = fmt.Errorf("forbidden")
	ErrEmailNotVerified = fmt.Errorf("email not verified")
	ErrTokenExpired     = fmt.Errorf("token expired")
	ErrInvalidToken     = fmt.Errorf("invalid token")
	ErrRateLimited      = fmt.Errorf("too many attempts")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// Persistence errors
	ErrNotFound            = fmt.Errorf("record not found")
	ErrDuplicate           = fmt.Errorf("record already exists")
	ErrDuplicateAttendance = fmt.Errorf("attendance already marked for this date")
	ErrExistingStudent     = fmt.Errorf("student already registered")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrCaptchaFailed      = fmt.Errorf("captcha verification failed")
	ErrMailFailed         = fmt.Errorf("email delivery failed")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
