package web

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/desertthunder/encore/internal/actions"
	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/server"
	"github.com/desertthunder/encore/internal/shared"
	"github.com/desertthunder/encore/internal/tasks"
)

type paymentsData struct {
	listData[*models.Payment]
	Students []*models.Student
	Today    time.Time
}

func (a *App) paymentsView(w http.ResponseWriter, r *http.Request) (*view, error) {
	q := r.URL.Query()
	page, err := a.payments.Page(r.Context(), criteria(q, "student_id", "status", "method", "search", "from", "to"), pageNumber(r))
	if err != nil {
		return nil, err
	}

	students, err := a.students.List(r.Context(), models.Criteria{"active": true})
	if err != nil {
		return nil, err
	}

	v := a.newView(w, r, "Payments")
	v.Data = paymentsData{
		listData: listData[*models.Payment]{Page: page, Filter: q},
		Students: students,
		Today:    a.today(),
	}
	return v, nil
}

func (a *App) listPayments(w http.ResponseWriter, r *http.Request) {
	if wantsJSON(r) {
		page, err := a.payments.Page(r.Context(), criteria(r.URL.Query(), "student_id", "status", "method", "search", "from", "to"), pageNumber(r))
		if err != nil {
			a.serverError(w, r, err)
			return
		}
		a.writeJSON(w, http.StatusOK, page)
		return
	}

	v, err := a.paymentsView(w, r)
	if err != nil {
		a.serverError(w, r, err)
		return
	}
	a.render(w, r, http.StatusOK, "payments", v)
}

func (a *App) createPayment(w http.ResponseWriter, r *http.Request) {
	form, err := parseForm(w, r)
	if err != nil {
		a.renderError(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}

	var in actions.PaymentInput
	res := models.Result{}
	if err := actions.Bind(form, &in); err != nil {
		res = models.FromError(err, "The form could not be read.")
	} else {
		res = a.actions.RecordPayment(r.Context(), in)
	}

	a.respond(w, r, res, "/admin/payments", func(res models.Result) {
		v, err := a.paymentsView(w, r)
		if err != nil {
			a.serverError(w, r, err)
			return
		}
		v.Form = form
		v.Result = &res
		a.render(w, r, http.StatusUnprocessableEntity, "payments", v)
	})
}

func (a *App) markPaymentPaid(w http.ResponseWriter, r *http.Request) {
	form, err := parseForm(w, r)
	if err != nil {
		a.renderError(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}

	res := a.actions.MarkPaymentPaid(r.Context(), server.URLParam(r, "id"), models.PaymentMethod(form.Get("method")))
	a.respond(w, r, res, returnTo(form, "/admin/payments"), nil)
}

func (a *App) deletePayment(w http.ResponseWriter, r *http.Request) {
	form, err := parseForm(w, r)
	if err != nil {
		a.renderError(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}
	a.respond(w, r, a.actions.DeletePayment(r.Context(), server.URLParam(r, "id")), returnTo(form, "/admin/payments"), nil)
}

// sendReminders emails every student with fees due on or before the posted date.
func (a *App) sendReminders(w http.ResponseWriter, r *http.Request) {
	form, err := parseForm(w, r)
	if err != nil {
		a.renderError(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}

	opts := tasks.ReminderOpts{
		NumWorkers: a.cfg.Reminders.Workers,
		RateLimit:  a.cfg.Reminders.Rate,
		DryRun:     form.Get("dry_run") == "on" || form.Get("dry_run") == "true",
	}
	if before := form.Get("before"); before != "" {
		if opts.Before, err = shared.ParseDate(before); err != nil {
			a.respond(w, r, models.FromError(err, "Enter the date as YYYY-MM-DD."), "/admin/payments", nil)
			return
		}
	}

	result, err := a.reminders.Send(r.Context(), nil, opts)
	if err != nil {
		a.logger.Error("reminder run failed", "error", err)
		a.respond(w, r, models.Failure("Reminders could not be sent."), "/admin/payments", nil)
		return
	}

	res := models.Success(reminderMessage(result), "")
	res.Data = result
	if result.Failed > 0 && result.Sent == 0 {
		res.Status = models.StatusError
	}
	a.respond(w, r, res, "/admin/payments", nil)
}

func reminderMessage(r *tasks.ReminderResult) string {
	switch {
	case r.Students == 0:
		return "No fees are due."
	case r.DryRun:
		return fmt.Sprintf("Dry run: %d reminder(s) would be sent for %d due fee(s).", r.Students-r.Skipped, r.DuePayments)
	}

	msg := fmt.Sprintf("Sent %d reminder(s)", r.Sent)
	if r.Skipped > 0 {
		msg += fmt.Sprintf(", skipped %d", r.Skipped)
	}
	if r.Failed > 0 {
		msg += fmt.Sprintf(", %d failed", r.Failed)
	}
	return msg + "."
}

// returnTo reads the local path a form asks to go back to.
func returnTo(form url.Values, fallback string) string {
	next := form.Get("next")
	if next == "" || next[0] != '/' || (len(next) > 1 && (next[1] == '/' || next[1] == '\\')) {
		return fallback
	}
	return next
}
