package actions

import (
	"context"
	"strings"

	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/services"
	"github.com/desertthunder/encore/internal/shared"
)

// ContactInput is the public enquiry form.
type ContactInput struct {
	Name       string `form:"name" validate:"required,notblank,max=120"`
	Email      string `form:"email" validate:"required,email,max=254"`
	Phone      string `form:"phone" validate:"omitempty,max=20"`
	Instrument string `form:"instrument" validate:"omitempty,instrument"`
	Message    string `form:"message" validate:"required,notblank,max=2000"`
	Captcha    string `form:"g-recaptcha-response" validate:"-"`
}

// SubmitContact validates an enquiry, checks the captcha and emails it to the school.
func (a *Actions) SubmitContact(ctx context.Context, in ContactInput, remoteIP string) models.Result {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = shared.NormalizeEmail(in.Email)
	in.Message = strings.TrimSpace(in.Message)

	if err := models.Validate(&in); err != nil {
		return a.fail("submit contact", err, "Could not send your message.")
	}

	if a.verifier != nil && a.verifier.Enabled() {
		if err := a.verifier.Verify(ctx, in.Captcha, remoteIP); err != nil {
			return a.fail("submit contact", err, "We could not verify your submission. Please try again.")
		}
	}

	if a.mailer == nil || a.contactEmail == "" {
		a.logger.Error("contact form received without a mailer or contact address", "from", in.Email)
		return models.Failure("Messages cannot be sent right now. Please call or email us instead.")
	}

	instrument := ""
	if in.Instrument != "" {
		instrument = models.Instrument(in.Instrument).Label()
	}

	msg, err := services.ContactMessage(a.contactEmail, services.ContactData{
		School:     a.school,
		Name:       in.Name,
		Email:      in.Email,
		Phone:      strings.TrimSpace(in.Phone),
		Instrument: instrument,
		Message:    in.Message,
	})
	if err != nil {
		return a.fail("submit contact", err, "Could not send your message.")
	}

	err = a.mailer.Send(ctx, msg)
	a.metrics.RecordEmail("contact", err)
	if err != nil {
		a.logger.Error("failed to send contact email", "from", in.Email, "error", err)
		return models.Failure("Could not send your message. Please try again later.")
	}

	a.logger.Info("contact enquiry sent", "from", in.Email)
	return models.Success("Thanks! We will get back to you soon.", "")
}
