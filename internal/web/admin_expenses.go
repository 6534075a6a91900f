package web

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/desertthunder/encore/internal/actions"
	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/server"
	"github.com/desertthunder/encore/internal/shared"
)

type expensesData struct {
	listData[*models.Expense]
	Expense *models.Expense
}

func expenseValues(e *models.Expense) url.Values {
	return url.Values{
		"date":        {e.Date.Format(shared.DateLayout)},
		"amount":      {formatFloat(e.Amount)},
		"category":    {string(e.Category)},
		"status":      {string(e.Status)},
		"description": {e.Description},
	}
}

func (a *App) expensesView(w http.ResponseWriter, r *http.Request) (*view, error) {
	q := r.URL.Query()
	page, err := a.expenses.Page(r.Context(), criteria(q, "category", "status", "search", "from", "to"), pageNumber(r))
	if err != nil {
		return nil, err
	}

	v := a.newView(w, r, "Expenses")
	v.Data = expensesData{listData: listData[*models.Expense]{Page: page, Filter: q}}
	v.Form = url.Values{"date": {a.today().Format(shared.DateLayout)}}
	return v, nil
}

func (a *App) listExpenses(w http.ResponseWriter, r *http.Request) {
	v, err := a.expensesView(w, r)
	if err != nil {
		a.serverError(w, r, err)
		return
	}

	if wantsJSON(r) {
		a.writeJSON(w, http.StatusOK, v.Data.(expensesData).Page)
		return
	}
	a.render(w, r, http.StatusOK, "expenses", v)
}

func (a *App) bindExpense(w http.ResponseWriter, r *http.Request) (url.Values, actions.ExpenseInput, *models.Result, bool) {
	var in actions.ExpenseInput
	form, err := parseForm(w, r)
	if err != nil {
		a.renderError(w, r, http.StatusBadRequest, "The form could not be read.")
		return nil, in, nil, false
	}

	if err := actions.Bind(form, &in); err != nil {
		res := models.FromError(err, "The form could not be read.")
		return form, in, &res, true
	}
	return form, in, nil, true
}

func (a *App) createExpense(w http.ResponseWriter, r *http.Request) {
	form, in, res, ok := a.bindExpense(w, r)
	if !ok {
		return
	}
	if res == nil {
		result := a.actions.RecordExpense(r.Context(), in)
		res = &result
	}

	a.respond(w, r, *res, "/admin/expenses", func(res models.Result) {
		v, err := a.expensesView(w, r)
		if err != nil {
			a.serverError(w, r, err)
			return
		}
		v.Form = form
		v.Result = &res
		a.render(w, r, http.StatusUnprocessableEntity, "expenses", v)
	})
}

func (a *App) editExpense(w http.ResponseWriter, r *http.Request) {
	expense, err := a.expenses.Get(r.Context(), server.URLParam(r, "id"))
	if errors.Is(err, shared.ErrNotFound) {
		a.notFound(w, r)
		return
	}
	if err != nil {
		a.serverError(w, r, err)
		return
	}

	v := a.newView(w, r, "Edit expense")
	v.Data = expensesData{Expense: expense}
	v.Form = expenseValues(expense)
	a.render(w, r, http.StatusOK, "expense_form", v)
}

func (a *App) updateExpense(w http.ResponseWriter, r *http.Request) {
	id := server.URLParam(r, "id")
	expense, err := a.expenses.Get(r.Context(), id)
	if errors.Is(err, shared.ErrNotFound) {
		a.notFound(w, r)
		return
	}
	if err != nil {
		a.serverError(w, r, err)
		return
	}

	form, in, res, ok := a.bindExpense(w, r)
	if !ok {
		return
	}
	if res == nil {
		result := a.actions.UpdateExpense(r.Context(), id, in)
		res = &result
	}

	a.respond(w, r, *res, "/admin/expenses", func(res models.Result) {
		v := a.newView(w, r, "Edit expense")
		v.Data = expensesData{Expense: expense}
		v.Form = form
		v.Result = &res
		a.render(w, r, http.StatusUnprocessableEntity, "expense_form", v)
	})
}

func (a *App) deleteExpense(w http.ResponseWriter, r *http.Request) {
	a.respond(w, r, a.actions.DeleteExpense(r.Context(), server.URLParam(r, "id")), "/admin/expenses", nil)
}
