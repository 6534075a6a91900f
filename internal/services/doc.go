// Package services integrates the third-party APIs the school relies on.
//
// # Mail
//
// All outgoing email goes through the [Mailer] interface. [SendGridMailer] delivers through the SendGrid v3
// mail send API; [LogMailer] writes messages to the logger for development. [NewMailer] picks one from the
// mail provider configured. Message bodies come from embedded text and HTML templates: see
// [VerificationMessage], [ContactMessage] and [ReminderMessage].
//
// # reCAPTCHA
//
// [Recaptcha] implements [Verifier] against the siteverify endpoint. Without a secret key it is disabled and
// every submission passes.
//
// # Google
//
// [GoogleProvider] wraps an [oauth2.Config] for Google sign-in and turns an authorization code into an
// [OAuthProfile] from the userinfo endpoint. [ScheduleSource] reads the class timetable from a Google
// Sheets range.
//
// # Error Handling
//
// Services use sentinel errors from the shared package:
//   - [shared.ErrMailFailed] : the mail provider rejected or failed a send
//   - [shared.ErrCaptchaFailed] : the token was missing, invalid, or scored too low
//   - [shared.ErrServiceUnavailable] : the remote API could not be reached or answered with an error
//   - [shared.ErrMissingCredentials] : the integration is not configured
package services
