package web

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/desertthunder/encore/internal/formatter"
	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/server"
)

// export downloads a listing as CSV, e.g. /admin/export/payments.csv?status=due. The listing filters
// apply to exports too.
func (a *App) export(w http.ResponseWriter, r *http.Request) {
	kind := strings.TrimSuffix(server.URLParam(r, "file"), ".csv")
	q := r.URL.Query()
	ctx := r.Context()

	var (
		table formatter.Table
		err   error
	)
	switch kind {
	case "students":
		var rows []*models.Student
		if rows, err = a.students.List(ctx, criteria(q, "search", "instrument", "grade", "batch", "timing", "active")); err == nil {
			table = formatter.StudentsTable(rows)
		}
	case "attendance":
		var rows []*models.Attendance
		if rows, err = a.attendance.List(ctx, criteria(q, "student_id", "status", "batch", "timing", "date", "from", "to")); err == nil {
			table = formatter.AttendanceTable(rows)
		}
	case "payments":
		var rows []*models.Payment
		if rows, err = a.payments.List(ctx, criteria(q, "student_id", "status", "method", "search", "from", "to")); err == nil {
			table = formatter.PaymentsTable(rows)
		}
	case "expenses":
		var rows []*models.Expense
		if rows, err = a.expenses.List(ctx, criteria(q, "category", "status", "search", "from", "to")); err == nil {
			table = formatter.ExpensesTable(rows)
		}
	default:
		a.notFound(w, r)
		return
	}
	if err != nil {
		a.serverError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", formatter.Filename(kind, a.now(), "csv")))
	if err := table.WriteCSV(w); err != nil {
		a.logger.Error("failed to write export", "kind", kind, "error", err)
	}
}
