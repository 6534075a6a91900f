package web

import (
	"errors"
	"net/http"

	"github.com/desertthunder/encore/internal/auth"
	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/shared"
	"github.com/desertthunder/encore/internal/tasks"
)

type dashboardData struct {
	Summary    *tasks.StudentSummary `json:"summary,omitempty"`
	Attendance []*models.Attendance  `json:"attendance"`
	Payments   []*models.Payment     `json:"payments"`
	Linked     bool                  `json:"linked"`
}

// dashboard shows a signed in user the attendance and fees of the student linked to their account.
func (a *App) dashboard(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.CurrentUser(r.Context())
	data := dashboardData{}

	student, err := a.students.GetByUser(r.Context(), claims.UserID)
	switch {
	case errors.Is(err, shared.ErrNotFound):
	case err != nil:
		a.serverError(w, r, err)
		return
	default:
		data.Linked = true
		if data.Summary, err = a.stats.StudentSummary(r.Context(), student.ID); err != nil {
			a.serverError(w, r, err)
			return
		}
		if data.Attendance, err = a.attendance.List(r.Context(), models.Criteria{"student_id": student.ID}); err != nil {
			a.serverError(w, r, err)
			return
		}
		if data.Payments, err = a.payments.List(r.Context(), models.Criteria{"student_id": student.ID}); err != nil {
			a.serverError(w, r, err)
			return
		}
	}

	if wantsJSON(r) {
		a.writeJSON(w, http.StatusOK, data)
		return
	}

	v := a.newView(w, r, "My dashboard")
	v.Data = data
	a.render(w, r, http.StatusOK, "dashboard", v)
}
