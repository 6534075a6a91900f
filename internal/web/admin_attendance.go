package web

import (
	"net/http"
	"net/url"
	"time"

	"github.com/desertthunder/encore/internal/actions"
	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/server"
	"github.com/desertthunder/encore/internal/shared"
)

// SheetRow is one student on the attendance sheet with their mark for the day, if any.
type SheetRow struct {
	Student *models.Student    `json:"student"`
	Mark    *models.Attendance `json:"mark,omitempty"`
}

type attendanceData struct {
	Date    time.Time  `json:"date"`
	Batch   string     `json:"batch"`
	Timing  string     `json:"timing"`
	Rows    []SheetRow `json:"rows"`
	Present int        `json:"present"`
	Absent  int        `json:"absent"`
}

// attendanceSheet lists active students for a class on a date alongside their marks. The date
// defaults to today and the class to every batch and timing.
func (a *App) attendanceSheet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	day := a.today()
	if d, err := shared.ParseDate(q.Get("date")); err == nil {
		day = d
	}

	filter := criteria(q, "batch", "timing")
	filter["active"] = true

	students, err := a.students.List(r.Context(), filter)
	if err != nil {
		a.serverError(w, r, err)
		return
	}

	marks, err := a.attendance.ForDate(r.Context(), day)
	if err != nil {
		a.serverError(w, r, err)
		return
	}

	data := attendanceData{Date: day, Batch: q.Get("batch"), Timing: q.Get("timing")}
	for _, s := range students {
		row := SheetRow{Student: s, Mark: marks[s.ID]}
		if row.Mark != nil {
			if row.Mark.Present() {
				data.Present++
			} else {
				data.Absent++
			}
		}
		data.Rows = append(data.Rows, row)
	}

	if wantsJSON(r) {
		a.writeJSON(w, http.StatusOK, data)
		return
	}

	v := a.newView(w, r, "Attendance")
	v.Data = data
	a.render(w, r, http.StatusOK, "attendance", v)
}

// sheetURL returns to the sheet the form was posted from.
func sheetURL(form url.Values) string {
	q := url.Values{}
	for _, key := range []string{"date", "batch", "timing"} {
		if v := form.Get(key); v != "" {
			q.Set(key, v)
		}
	}
	if len(q) == 0 {
		return "/admin/attendance"
	}
	return "/admin/attendance?" + q.Encode()
}

func (a *App) markAttendance(w http.ResponseWriter, r *http.Request) {
	form, err := parseForm(w, r)
	if err != nil {
		a.renderError(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}

	var in actions.AttendanceInput
	res := models.Result{}
	if err := actions.Bind(form, &in); err != nil {
		res = models.FromError(err, "The form could not be read.")
	} else {
		res = a.actions.MarkAttendance(r.Context(), in)
	}
	a.respond(w, r, res, sheetURL(form), nil)
}

// markAttendanceBatch saves the whole sheet; students already marked for the date are skipped.
func (a *App) markAttendanceBatch(w http.ResponseWriter, r *http.Request) {
	form, err := parseForm(w, r)
	if err != nil {
		a.renderError(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}

	var in actions.BatchAttendanceInput
	res := models.Result{}
	if err := actions.Bind(form, &in); err != nil {
		res = models.FromError(err, "The form could not be read.")
	} else {
		res = a.actions.MarkAttendanceBatch(r.Context(), in)
	}
	a.respond(w, r, res, sheetURL(form), nil)
}

func (a *App) deleteAttendance(w http.ResponseWriter, r *http.Request) {
	form, err := parseForm(w, r)
	if err != nil {
		a.renderError(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}
	a.respond(w, r, a.actions.DeleteAttendance(r.Context(), server.URLParam(r, "id")), sheetURL(form), nil)
}
