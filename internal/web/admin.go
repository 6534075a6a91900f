package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/shared"
	"github.com/desertthunder/encore/internal/tasks"
)

type statsData struct {
	Stats     *tasks.CombinedStats `json:"stats"`
	Monthly   []tasks.MonthlyTotal `json:"monthly"`
	Year      int                  `json:"year"`
	Month     int                  `json:"month"`
	MaxAmount float64              `json:"-"`
	DueCount  int                  `json:"due_count"`
}

// InstrumentCount is one row of the enrolment breakdown, in display order.
type InstrumentCount struct {
	Instrument models.Instrument
	Count      int
}

// CategoryTotal is one row of the expense breakdown, in display order.
type CategoryTotal struct {
	Category models.ExpenseCategory
	Amount   float64
}

func (d statsData) Instruments() []InstrumentCount {
	var out []InstrumentCount
	for _, i := range models.Instruments() {
		if n := d.Stats.Students.ByInstrument[i]; n > 0 {
			out = append(out, InstrumentCount{Instrument: i, Count: n})
		}
	}
	return out
}

func (d statsData) Categories() []CategoryTotal {
	var out []CategoryTotal
	for _, c := range models.ExpenseCategories() {
		if amount := d.Stats.Expenses.ByCategory[c]; amount > 0 {
			out = append(out, CategoryTotal{Category: c, Amount: amount})
		}
	}
	return out
}

func (d statsData) Months() []time.Month {
	months := make([]time.Month, 12)
	for i := range months {
		months[i] = time.Month(i + 1)
	}
	return months
}

// period reads ?year=&month= from the query. The current month is the default; month=0 selects the
// whole year.
func (a *App) period(r *http.Request) (shared.Period, int, int) {
	now := a.now()
	year, month := now.Year(), int(now.Month())

	q := r.URL.Query()
	if y, err := strconv.Atoi(q.Get("year")); err == nil && y >= 2000 && y <= 9999 {
		year = y
	}
	if q.Has("month") {
		if m, err := strconv.Atoi(q.Get("month")); err == nil && m >= 0 && m <= 12 {
			month = m
		}
	}

	if month == 0 {
		return shared.YearRange(year), year, 0
	}
	return shared.MonthRange(year, time.Month(month)), year, month
}

func (a *App) loadStats(r *http.Request) (*statsData, error) {
	period, year, month := a.period(r)

	stats, err := a.stats.CombinedStats(r.Context(), period)
	if err != nil {
		return nil, err
	}

	monthly, err := a.stats.MonthlyPaymentsAndExpenses(r.Context(), year)
	if err != nil {
		return nil, err
	}

	due, err := a.payments.Count(r.Context(), models.Criteria{"status": string(models.PaymentDue)})
	if err != nil {
		return nil, err
	}

	data := &statsData{Stats: stats, Monthly: monthly, Year: year, Month: month, DueCount: due}
	for _, m := range monthly {
		data.MaxAmount = max(data.MaxAmount, m.Payments, m.Expenses)
	}
	return data, nil
}

// adminHome is the admin dashboard with the figures for the selected period.
func (a *App) adminHome(w http.ResponseWriter, r *http.Request) {
	data, err := a.loadStats(r)
	if err != nil {
		a.serverError(w, r, err)
		return
	}

	if wantsJSON(r) {
		a.writeJSON(w, http.StatusOK, data)
		return
	}

	v := a.newView(w, r, "Dashboard")
	v.Data = data
	a.render(w, r, http.StatusOK, "admin", v)
}

// adminStats serves the dashboard figures as JSON for charts and scripts.
func (a *App) adminStats(w http.ResponseWriter, r *http.Request) {
	data, err := a.loadStats(r)
	if err != nil {
		a.serverError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, data)
}
