package web

import (
	"html/template"
	"net/http"

	"github.com/desertthunder/encore/internal/actions"
	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/services"
	"github.com/desertthunder/encore/internal/shared"
)

type contentData struct {
	Body template.HTML
	Home bool
}

// contentPage serves a page rendered from the embedded markdown under content/.
func (a *App) contentPage(name, title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, ok := a.content[name]
		if !ok {
			a.notFound(w, r)
			return
		}

		v := a.newView(w, r, title)
		v.Data = contentData{Body: body, Home: name == "home"}
		a.render(w, r, http.StatusOK, "content", v)
	}
}

type contactData struct {
	SiteKey string
	Email   string
}

func (a *App) contactView(w http.ResponseWriter, r *http.Request) *view {
	v := a.newView(w, r, "Contact us")
	data := contactData{Email: a.cfg.Mail.ContactEmail}
	if a.verifier != nil && a.verifier.Enabled() {
		data.SiteKey = a.cfg.Recaptcha.SiteKey
	}
	v.Data = data
	return v
}

func (a *App) contactForm(w http.ResponseWriter, r *http.Request) {
	a.render(w, r, http.StatusOK, "contact", a.contactView(w, r))
}

// submitContact emails an enquiry to the school. Submissions are rate limited per client address.
func (a *App) submitContact(w http.ResponseWriter, r *http.Request) {
	form, err := parseForm(w, r)
	if err != nil {
		a.renderError(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}

	ip := clientIP(r)
	limited := !a.limiter.Allow("contact:" + ip)

	var res models.Result
	switch {
	case limited:
		res = models.FromError(shared.ErrRateLimited, "")
	default:
		var in actions.ContactInput
		if err := actions.Bind(form, &in); err != nil {
			res = models.FromError(err, "The form could not be read.")
		} else {
			res = a.actions.SubmitContact(r.Context(), in, ip)
		}
	}

	a.respond(w, r, res, "/contact", func(res models.Result) {
		v := a.contactView(w, r)
		v.Result = &res
		v.Form = form
		status := http.StatusUnprocessableEntity
		if limited {
			status = http.StatusTooManyRequests
		}
		a.render(w, r, status, "contact", v)
	})
}

type scheduleData struct {
	Schedule *services.Schedule
	EmbedURL string
}

// schedulePage shows the class timetable from the configured sheet, falling back to the embedded
// sheet when it cannot be read.
func (a *App) schedulePage(w http.ResponseWriter, r *http.Request) {
	data := scheduleData{EmbedURL: a.cfg.Schedule.EmbedURL}

	if a.schedule != nil {
		schedule, err := a.schedule.Fetch(r.Context())
		if err != nil {
			a.logger.Warn("failed to fetch schedule", "error", err)
		} else {
			data.Schedule = schedule
		}
	}

	if wantsJSON(r) {
		if data.Schedule == nil {
			a.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "schedule unavailable", "embed_url": data.EmbedURL})
			return
		}
		a.writeJSON(w, http.StatusOK, data.Schedule)
		return
	}

	v := a.newView(w, r, "Class schedule")
	v.Data = data
	a.render(w, r, http.StatusOK, "schedule", v)
}
