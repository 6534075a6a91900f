package web

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/desertthunder/encore/internal/actions"
	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/server"
	"github.com/desertthunder/encore/internal/shared"
	"github.com/desertthunder/encore/internal/tasks"
)

type listData[T any] struct {
	Page   *models.PageResult[T] `json:"page"`
	Filter url.Values            `json:"-"`
}

// criteria copies the non-empty query parameters named by keys into list criteria. The keys from and
// to are parsed as dates.
func criteria(q url.Values, keys ...string) models.Criteria {
	c := models.Criteria{}
	for _, key := range keys {
		value := q.Get(key)
		if value == "" {
			continue
		}
		switch key {
		case "from", "to", "date", "joined_from", "joined_to":
			if t, err := shared.ParseDate(value); err == nil {
				c[key] = t
			}
		case "active":
			c[key] = value == "yes" || value == "true"
		default:
			c[key] = value
		}
	}
	return c
}

func (a *App) listStudents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := a.students.Page(r.Context(), criteria(q, "search", "instrument", "grade", "batch", "timing", "active"), pageNumber(r))
	if err != nil {
		a.serverError(w, r, err)
		return
	}

	if wantsJSON(r) {
		a.writeJSON(w, http.StatusOK, page)
		return
	}

	v := a.newView(w, r, "Students")
	v.Data = listData[*models.Student]{Page: page, Filter: q}
	a.render(w, r, http.StatusOK, "students", v)
}

type studentFormData struct {
	Student *models.Student
	Action  string
}

// studentValues prefills the student form.
func studentValues(s *models.Student) url.Values {
	v := url.Values{
		"name":          {s.Name},
		"email":         {s.Email},
		"phone":         {s.Phone},
		"guardian_name": {s.GuardianName},
		"address":       {s.Address},
		"instrument":    {string(s.Instrument)},
		"grade":         {string(s.Grade)},
		"batch":         {string(s.Batch)},
		"timing":        {string(s.Timing)},
		"joined_on":     {s.JoinedOn.Format(shared.DateLayout)},
		"notes":         {s.Notes},
	}
	if s.DateOfBirth != nil {
		v.Set("date_of_birth", s.DateOfBirth.Format(shared.DateLayout))
	}
	if s.Active {
		v.Set("active", "on")
	}
	return v
}

func (a *App) studentForm(w http.ResponseWriter, r *http.Request, status int, data studentFormData, form url.Values, res *models.Result) {
	title := "New student"
	if data.Student != nil {
		title = "Edit " + data.Student.Name
	}

	v := a.newView(w, r, title)
	v.Data = data
	v.Form = form
	v.Result = res
	a.render(w, r, status, "student_form", v)
}

func (a *App) newStudent(w http.ResponseWriter, r *http.Request) {
	form := url.Values{
		"joined_on": {a.today().Format(shared.DateLayout)},
		"active":    {"on"},
	}
	a.studentForm(w, r, http.StatusOK, studentFormData{Action: "/admin/students"}, form, nil)
}

// createStudent registers a student. An email that is already enrolled answers with a link to the
// existing record instead of creating a duplicate.
func (a *App) createStudent(w http.ResponseWriter, r *http.Request) {
	form, in, res := a.bindStudent(w, r)
	if form == nil {
		return
	}
	if res == nil {
		result := a.actions.RegisterStudent(r.Context(), in)
		res = &result
	}

	a.respond(w, r, *res, "/admin/students/"+res.ID, func(res models.Result) {
		status := http.StatusUnprocessableEntity
		if res.Status == models.StatusExistingStudent {
			status = http.StatusConflict
		}
		a.studentForm(w, r, status, studentFormData{Action: "/admin/students"}, form, &res)
	})
}

func (a *App) bindStudent(w http.ResponseWriter, r *http.Request) (url.Values, actions.StudentInput, *models.Result) {
	var in actions.StudentInput
	form, err := parseForm(w, r)
	if err != nil {
		a.renderError(w, r, http.StatusBadRequest, "The form could not be read.")
		return nil, in, nil
	}

	if err := actions.Bind(form, &in); err != nil {
		res := models.FromError(err, "The form could not be read.")
		return form, in, &res
	}
	return form, in, nil
}

type studentData struct {
	Summary    *tasks.StudentSummary `json:"summary"`
	Attendance []*models.Attendance  `json:"attendance"`
	Payments   []*models.Payment     `json:"payments"`
}

func (a *App) showStudent(w http.ResponseWriter, r *http.Request) {
	id := server.URLParam(r, "id")
	summary, err := a.stats.StudentSummary(r.Context(), id)
	if errors.Is(err, shared.ErrNotFound) {
		a.notFound(w, r)
		return
	}
	if err != nil {
		a.serverError(w, r, err)
		return
	}

	data := studentData{Summary: summary}
	if data.Attendance, err = a.attendance.List(r.Context(), models.Criteria{"student_id": id}); err != nil {
		a.serverError(w, r, err)
		return
	}
	if data.Payments, err = a.payments.List(r.Context(), models.Criteria{"student_id": id}); err != nil {
		a.serverError(w, r, err)
		return
	}

	if wantsJSON(r) {
		a.writeJSON(w, http.StatusOK, data)
		return
	}

	v := a.newView(w, r, summary.Student.Name)
	v.Data = data
	a.render(w, r, http.StatusOK, "student", v)
}

func (a *App) editStudent(w http.ResponseWriter, r *http.Request) {
	student, err := a.students.Get(r.Context(), server.URLParam(r, "id"))
	if errors.Is(err, shared.ErrNotFound) {
		a.notFound(w, r)
		return
	}
	if err != nil {
		a.serverError(w, r, err)
		return
	}

	data := studentFormData{Student: student, Action: "/admin/students/" + student.ID}
	a.studentForm(w, r, http.StatusOK, data, studentValues(student), nil)
}

func (a *App) updateStudent(w http.ResponseWriter, r *http.Request) {
	id := server.URLParam(r, "id")
	student, err := a.students.Get(r.Context(), id)
	if errors.Is(err, shared.ErrNotFound) {
		a.notFound(w, r)
		return
	}
	if err != nil {
		a.serverError(w, r, err)
		return
	}

	form, in, res := a.bindStudent(w, r)
	if form == nil {
		return
	}
	if res == nil {
		result := a.actions.UpdateStudent(r.Context(), id, in)
		res = &result
	}

	a.respond(w, r, *res, "/admin/students/"+id, func(res models.Result) {
		data := studentFormData{Student: student, Action: "/admin/students/" + id}
		a.studentForm(w, r, http.StatusUnprocessableEntity, data, form, &res)
	})
}

// toggleStudent activates or deactivates a student; the form posts active=true or active=false.
func (a *App) toggleStudent(w http.ResponseWriter, r *http.Request) {
	form, err := parseForm(w, r)
	if err != nil {
		a.renderError(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}

	id := server.URLParam(r, "id")
	active, err := strconv.ParseBool(form.Get("active"))
	if err != nil {
		a.respond(w, r, models.Failure("Choose whether the student is active."), "/admin/students/"+id, nil)
		return
	}

	a.respond(w, r, a.actions.SetStudentActive(r.Context(), id, active), "/admin/students/"+id, nil)
}

func (a *App) deleteStudent(w http.ResponseWriter, r *http.Request) {
	res := a.actions.DeleteStudent(r.Context(), server.URLParam(r, "id"))
	next := "/admin/students"
	if !res.OK() {
		next = "/admin/students/" + server.URLParam(r, "id")
	}
	a.respond(w, r, res, next, nil)
}
