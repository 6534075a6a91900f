package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/encore/internal/shared"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

const (
	sendGridHost     = "https://api.sendgrid.com"
	sendGridEndpoint = "/v3/mail/send"
)

// SendGridMailer implements [Mailer] with the SendGrid v3 mail send API.
type SendGridMailer struct {
	key  string
	host string
	from *sgmail.Email
}

var _ Mailer = (*SendGridMailer)(nil)

// NewSendGridMailer creates a mailer sending as fromName <fromEmail>.
func NewSendGridMailer(key, fromName, fromEmail string) *SendGridMailer {
	return &SendGridMailer{key: key, host: sendGridHost, from: sgmail.NewEmail(fromName, fromEmail)}
}

func (m *SendGridMailer) Name() string { return "sendgrid" }

// Send posts msg to SendGrid. Any transport failure or 4xx/5xx answer wraps [shared.ErrMailFailed].
func (m *SendGridMailer) Send(ctx context.Context, msg *Message) error {
	req := sendgrid.GetRequest(m.key, sendGridEndpoint, m.host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(m.prepare(msg))

	res, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrMailFailed, err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%w: sendgrid status %d: %s", shared.ErrMailFailed, res.StatusCode, res.Body)
	}
	return nil
}

func (m *SendGridMailer) prepare(msg *Message) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = msg.Subject
	p.AddTos(sgmail.NewEmail(msg.ToName, msg.To))

	mail := sgmail.NewV3Mail()
	mail.SetFrom(m.from)
	mail.AddPersonalizations(p)
	if msg.ReplyTo != "" {
		mail.SetReplyTo(sgmail.NewEmail("", msg.ReplyTo))
	}

	mail.AddContent(sgmail.NewContent("text/plain", msg.Text))
	if msg.HTML != "" {
		mail.AddContent(sgmail.NewContent("text/html", msg.HTML))
	}
	return mail
}

// LogMailer implements [Mailer] by logging each message. Used in development.
type LogMailer struct {
	logger *log.Logger
}

var _ Mailer = (*LogMailer)(nil)

// NewLogMailer creates a mailer writing to logger.
func NewLogMailer(logger *log.Logger) *LogMailer {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Name() string { return "log" }

func (m *LogMailer) Send(_ context.Context, msg *Message) error {
	m.logger.Info("email", "to", msg.To, "reply_to", msg.ReplyTo, "subject", msg.Subject)
	m.logger.Debug(msg.Text)
	return nil
}

// NewMailer builds the [Mailer] selected by cfg.Provider.
func NewMailer(cfg shared.MailConfig, logger *log.Logger) (Mailer, error) {
	switch cfg.Provider {
	case "", "log":
		return NewLogMailer(logger), nil
	case "sendgrid":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("%w: sendgrid api key", shared.ErrMissingCredentials)
		}
		return NewSendGridMailer(cfg.APIKey, cfg.FromName, cfg.FromEmail), nil
	default:
		return nil, fmt.Errorf("%w: unknown mail provider %q", shared.ErrInvalidConfig, cfg.Provider)
	}
}
