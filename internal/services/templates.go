package services

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
	"time"
)

//go:embed templates/*.txt templates/*.html
var templateFS embed.FS

var (
	textTemplates = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/*.txt"))
	htmlTemplates = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/*.html"))
)

// VerifyData fills the verification email.
type VerifyData struct {
	School  string
	Name    string
	Link    string
	Expires string
}

// ContactData is a submission of the public contact form.
type ContactData struct {
	School     string
	Name       string
	Email      string
	Phone      string
	Instrument string
	Message    string
}

// ReminderItem is one due fee listed in a reminder.
type ReminderItem struct {
	Receipt     int
	Date        string
	Amount      string
	Description string
}

// ReminderData fills the fee reminder email.
type ReminderData struct {
	School string
	Name   string
	Items  []ReminderItem
	Total  string
}

// VerificationMessage renders the email-verification message sent after registration.
func VerificationMessage(to string, data VerifyData) (*Message, error) {
	return render("verify", &Message{
		To:      to,
		ToName:  data.Name,
		Subject: fmt.Sprintf("Verify your email for %s", data.School),
	}, data)
}

// ContactMessage renders a contact-form enquiry addressed to the school. Replies go to the sender.
func ContactMessage(to string, data ContactData) (*Message, error) {
	return render("contact", &Message{
		To:      to,
		ReplyTo: data.Email,
		Subject: fmt.Sprintf("Website enquiry from %s", data.Name),
	}, data)
}

// ReminderMessage renders a fee reminder for one student.
func ReminderMessage(to string, data ReminderData) (*Message, error) {
	return render("reminder", &Message{
		To:      to,
		ToName:  data.Name,
		Subject: fmt.Sprintf("Fee reminder from %s", data.School),
	}, data)
}

// FormatTTL renders a duration for humans ("1 hour", "30 minutes", "2 days").
func FormatTTL(d time.Duration) string {
	switch {
	case d >= 24*time.Hour && d%(24*time.Hour) == 0:
		return plural(int(d/(24*time.Hour)), "day")
	case d >= time.Hour && d%time.Hour == 0:
		return plural(int(d/time.Hour), "hour")
	default:
		return plural(int(d.Round(time.Minute)/time.Minute), "minute")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

func render(name string, msg *Message, data any) (*Message, error) {
	var text, html bytes.Buffer

	if err := textTemplates.ExecuteTemplate(&text, name+".txt", data); err != nil {
		return nil, fmt.Errorf("failed to render %s text: %w", name, err)
	}
	if err := htmlTemplates.ExecuteTemplate(&html, name+".html", data); err != nil {
		return nil, fmt.Errorf("failed to render %s html: %w", name, err)
	}

	msg.Text = text.String()
	msg.HTML = html.String()
	return msg, nil
}
