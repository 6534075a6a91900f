package web

import (
	"net/http"

	"github.com/desertthunder/encore/internal/auth"
	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/server"
)

type usersData struct {
	Users  []*models.User `json:"users"`
	Search string         `json:"-"`
	Role   string         `json:"-"`
}

func (a *App) listUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	users, err := a.users.List(r.Context(), criteria(q, "role", "search"))
	if err != nil {
		a.serverError(w, r, err)
		return
	}

	if wantsJSON(r) {
		a.writeJSON(w, http.StatusOK, users)
		return
	}

	v := a.newView(w, r, "Users")
	v.Data = usersData{Users: users, Search: q.Get("search"), Role: q.Get("role")}
	a.render(w, r, http.StatusOK, "users", v)
}

func (a *App) setUserRole(w http.ResponseWriter, r *http.Request) {
	form, err := parseForm(w, r)
	if err != nil {
		a.renderError(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}

	claims, _ := auth.CurrentUser(r.Context())
	res := a.actions.SetUserRole(r.Context(), claims.UserID, server.URLParam(r, "id"), models.Role(form.Get("role")))
	a.respond(w, r, res, "/admin/users", nil)
}
