package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/repositories"
	"github.com/desertthunder/encore/internal/shared"
)

// StudentStats describes enrolment at the end of a period.
type StudentStats struct {
	Total        int                       `json:"total"`
	Active       int                       `json:"active"`
	Inactive     int                       `json:"inactive"`
	New          int                       `json:"new"`           // joined within the period
	ByInstrument map[models.Instrument]int `json:"by_instrument"` // active students only
}

// AttendanceStats counts the marks within a period.
type AttendanceStats struct {
	Present int     `json:"present"`
	Absent  int     `json:"absent"`
	Total   int     `json:"total"`
	Rate    float64 `json:"rate"` // present / total as a percentage; 0 without marks
}

// PaymentStats sums fees dated within a period.
type PaymentStats struct {
	Collected   float64 `json:"collected"`   // paid
	Outstanding float64 `json:"outstanding"` // due
	PaidCount   int     `json:"paid_count"`
	DueCount    int     `json:"due_count"`
}

// ExpenseStats sums expenses dated within a period.
type ExpenseStats struct {
	Total      float64                            `json:"total"`
	Paid       float64                            `json:"paid"`
	Pending    float64                            `json:"pending"`
	Count      int                                `json:"count"`
	ByCategory map[models.ExpenseCategory]float64 `json:"by_category"`
}

// Change compares a period with the previous one. Money and new students are percentage changes; the
// attendance rate is a difference in percentage points.
type Change struct {
	NewStudents    float64 `json:"new_students"`
	AttendanceRate float64 `json:"attendance_rate"`
	Collected      float64 `json:"collected"`
	Expenses       float64 `json:"expenses"`
	NetIncome      float64 `json:"net_income"`
}

// CombinedStats are the dashboard figures for one period.
type CombinedStats struct {
	Period     shared.Period   `json:"-"`
	Label      string          `json:"period"`
	Students   StudentStats    `json:"students"`
	Attendance AttendanceStats `json:"attendance"`
	Payments   PaymentStats    `json:"payments"`
	Expenses   ExpenseStats    `json:"expenses"`
	NetIncome  float64         `json:"net_income"` // collected minus all expenses
	Previous   *CombinedStats  `json:"previous,omitempty"`
	Change     Change          `json:"change"`
}

// MonthlyTotal is one point of the payments and expenses chart.
type MonthlyTotal struct {
	Month    time.Month `json:"-"`
	Label    string     `json:"month"`
	Payments float64    `json:"payments"` // paid fees dated in the month
	Expenses float64    `json:"expenses"`
	Net      float64    `json:"net"`
}

// StudentSummary is the per-student view of the dashboard.
type StudentSummary struct {
	Student      *models.Student `json:"student"`
	Attendance   AttendanceStats `json:"attendance"`
	Paid         float64         `json:"paid"`
	Due          float64         `json:"due"`
	LastAttended *time.Time      `json:"last_attended,omitempty"`
}

// StatsEngine computes reports by fetching rows and reducing them in memory.
type StatsEngine struct {
	students   *repositories.StudentRepository
	attendance *repositories.AttendanceRepository
	payments   *repositories.PaymentRepository
	expenses   *repositories.ExpenseRepository
}

// NewStatsEngine creates a [StatsEngine] over the given repositories.
func NewStatsEngine(
	students *repositories.StudentRepository,
	attendance *repositories.AttendanceRepository,
	payments *repositories.PaymentRepository,
	expenses *repositories.ExpenseRepository,
) *StatsEngine {
	return &StatsEngine{students: students, attendance: attendance, payments: payments, expenses: expenses}
}

// CombinedStats reports on period and compares it with the previous period of the same kind.
func (e *StatsEngine) CombinedStats(ctx context.Context, period shared.Period) (*CombinedStats, error) {
	students, err := e.students.List(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load students: %w", err)
	}

	current, err := e.periodStats(ctx, period, students)
	if err != nil {
		return nil, err
	}

	previous, err := e.periodStats(ctx, period.Previous(), students)
	if err != nil {
		return nil, err
	}

	current.Previous = previous
	current.Change = Change{
		NewStudents:    shared.PercentChange(float64(previous.Students.New), float64(current.Students.New)),
		AttendanceRate: current.Attendance.Rate - previous.Attendance.Rate,
		Collected:      shared.PercentChange(previous.Payments.Collected, current.Payments.Collected),
		Expenses:       shared.PercentChange(previous.Expenses.Total, current.Expenses.Total),
		NetIncome:      shared.PercentChange(previous.NetIncome, current.NetIncome),
	}
	return current, nil
}

func (e *StatsEngine) periodStats(ctx context.Context, period shared.Period, students []*models.Student) (*CombinedStats, error) {
	rng := models.Criteria{"from": period.Start, "to": period.End}

	attendance, err := e.attendance.List(ctx, rng)
	if err != nil {
		return nil, fmt.Errorf("failed to load attendance: %w", err)
	}

	payments, err := e.payments.List(ctx, rng)
	if err != nil {
		return nil, fmt.Errorf("failed to load payments: %w", err)
	}

	expenses, err := e.expenses.List(ctx, rng)
	if err != nil {
		return nil, fmt.Errorf("failed to load expenses: %w", err)
	}

	stats := &CombinedStats{
		Period:     period,
		Label:      period.Label(),
		Students:   SummarizeStudents(students, period),
		Attendance: SummarizeAttendance(attendance, period),
		Payments:   SummarizePayments(payments, period),
		Expenses:   SummarizeExpenses(expenses, period),
	}
	stats.NetIncome = stats.Payments.Collected - stats.Expenses.Total
	return stats, nil
}

// MonthlyPaymentsAndExpenses returns twelve monthly totals for year.
func (e *StatsEngine) MonthlyPaymentsAndExpenses(ctx context.Context, year int) ([]MonthlyTotal, error) {
	period := shared.YearRange(year)
	rng := models.Criteria{"from": period.Start, "to": period.End}

	payments, err := e.payments.List(ctx, models.Criteria{"from": period.Start, "to": period.End, "status": string(models.PaymentPaid)})
	if err != nil {
		return nil, fmt.Errorf("failed to load payments: %w", err)
	}

	expenses, err := e.expenses.List(ctx, rng)
	if err != nil {
		return nil, fmt.Errorf("failed to load expenses: %w", err)
	}

	return MonthlyTotals(year, payments, expenses), nil
}

// StudentSummary reports all-time attendance and fees for one student.
func (e *StatsEngine) StudentSummary(ctx context.Context, studentID string) (*StudentSummary, error) {
	student, err := e.students.Get(ctx, studentID)
	if err != nil {
		return nil, err
	}

	byStudent := models.Criteria{"student_id": studentID}
	attendance, err := e.attendance.List(ctx, byStudent)
	if err != nil {
		return nil, fmt.Errorf("failed to load attendance: %w", err)
	}

	payments, err := e.payments.List(ctx, byStudent)
	if err != nil {
		return nil, fmt.Errorf("failed to load payments: %w", err)
	}

	summary := &StudentSummary{Student: student, Attendance: countAttendance(attendance)}
	for _, a := range attendance {
		if a.Present() && (summary.LastAttended == nil || a.Date.After(*summary.LastAttended)) {
			d := a.Date
			summary.LastAttended = &d
		}
	}
	for _, p := range payments {
		if p.Paid() {
			summary.Paid += p.Amount
		} else {
			summary.Due += p.Amount
		}
	}
	return summary, nil
}

// SummarizeStudents counts enrolment; New counts students who joined within period.
func SummarizeStudents(students []*models.Student, period shared.Period) StudentStats {
	stats := StudentStats{ByInstrument: make(map[models.Instrument]int)}
	for _, s := range students {
		if !s.JoinedOn.Before(period.End) {
			continue
		}
		stats.Total++
		if period.Contains(s.JoinedOn) {
			stats.New++
		}
		if s.Active {
			stats.Active++
			stats.ByInstrument[s.Instrument]++
		} else {
			stats.Inactive++
		}
	}
	return stats
}

// SummarizeAttendance counts the marks dated within period.
func SummarizeAttendance(rows []*models.Attendance, period shared.Period) AttendanceStats {
	inPeriod := make([]*models.Attendance, 0, len(rows))
	for _, a := range rows {
		if period.Contains(a.Date) {
			inPeriod = append(inPeriod, a)
		}
	}
	return countAttendance(inPeriod)
}

func countAttendance(rows []*models.Attendance) AttendanceStats {
	var stats AttendanceStats
	for _, a := range rows {
		stats.Total++
		if a.Present() {
			stats.Present++
		} else {
			stats.Absent++
		}
	}
	if stats.Total > 0 {
		stats.Rate = float64(stats.Present) / float64(stats.Total) * 100
	}
	return stats
}

// SummarizePayments sums paid and due fees dated within period.
func SummarizePayments(rows []*models.Payment, period shared.Period) PaymentStats {
	var stats PaymentStats
	for _, p := range rows {
		if !period.Contains(p.Date) {
			continue
		}
		if p.Paid() {
			stats.Collected += p.Amount
			stats.PaidCount++
		} else {
			stats.Outstanding += p.Amount
			stats.DueCount++
		}
	}
	return stats
}

// SummarizeExpenses sums expenses dated within period.
func SummarizeExpenses(rows []*models.Expense, period shared.Period) ExpenseStats {
	stats := ExpenseStats{ByCategory: make(map[models.ExpenseCategory]float64)}
	for _, e := range rows {
		if !period.Contains(e.Date) {
			continue
		}
		stats.Count++
		stats.Total += e.Amount
		stats.ByCategory[e.Category] += e.Amount
		if e.Status == models.ExpensePaid {
			stats.Paid += e.Amount
		} else {
			stats.Pending += e.Amount
		}
	}
	return stats
}

// MonthlyTotals buckets paid payments and all expenses of year by month. Rows outside the year and unpaid
// payments are ignored.
func MonthlyTotals(year int, payments []*models.Payment, expenses []*models.Expense) []MonthlyTotal {
	totals := make([]MonthlyTotal, 12)
	for i := range totals {
		m := time.Month(i + 1)
		totals[i] = MonthlyTotal{Month: m, Label: m.String()[:3]}
	}

	for _, p := range payments {
		if p.Date.Year() == year && p.Paid() {
			totals[p.Date.Month()-1].Payments += p.Amount
		}
	}
	for _, e := range expenses {
		if e.Date.Year() == year {
			totals[e.Date.Month()-1].Expenses += e.Amount
		}
	}
	for i := range totals {
		totals[i].Net = totals[i].Payments - totals[i].Expenses
	}
	return totals
}
