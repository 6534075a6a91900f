// package formatter exports school records and reports to CSV, Markdown and plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/shared"
	"github.com/desertthunder/encore/internal/tasks"
)

// Table is a header row plus records, ready to be written as CSV.
type Table struct {
	Headers []string
	Rows    [][]string
}

// StudentsTable lays out students with columns: Roll, Name, Email, Phone, Guardian, Date of Birth, Instrument,
// Grade, Batch, Timing, Active, Joined, Notes
func StudentsTable(students []*models.Student) Table {
	t := Table{Headers: []string{
		"Roll", "Name", "Email", "Phone", "Guardian", "Date of Birth", "Instrument",
		"Grade", "Batch", "Timing", "Active", "Joined", "Notes",
	}}

	for _, s := range students {
		dob := ""
		if s.DateOfBirth != nil {
			dob = formatDate(*s.DateOfBirth)
		}
		t.Rows = append(t.Rows, []string{
			strconv.Itoa(s.RollNumber),
			s.Name,
			s.Email,
			s.Phone,
			s.GuardianName,
			dob,
			s.Instrument.Label(),
			s.Grade.Label(),
			string(s.Batch),
			string(s.Timing),
			yesNo(s.Active),
			formatDate(s.JoinedOn),
			s.Notes,
		})
	}
	return t
}

// AttendanceTable lays out marks with columns: Date, Student ID, Student, Status, Notes
func AttendanceTable(rows []*models.Attendance) Table {
	t := Table{Headers: []string{"Date", "Student ID", "Student", "Status", "Notes"}}
	for _, a := range rows {
		t.Rows = append(t.Rows, []string{formatDate(a.Date), a.StudentID, a.StudentName, a.Status.Label(), a.Notes})
	}
	return t
}

// PaymentsTable lays out payments with columns: Receipt, Date, Student ID, Student, Amount, Method, Status,
// Description
func PaymentsTable(rows []*models.Payment) Table {
	t := Table{Headers: []string{"Receipt", "Date", "Student ID", "Student", "Amount", "Method", "Status", "Description"}}
	for _, p := range rows {
		t.Rows = append(t.Rows, []string{
			strconv.Itoa(p.ReceiptNumber),
			formatDate(p.Date),
			p.StudentID,
			p.StudentName,
			formatAmount(p.Amount),
			p.Method.Label(),
			p.Status.Label(),
			p.Description,
		})
	}
	return t
}

// ExpensesTable lays out expenses with columns: Date, Category, Amount, Status, Description
func ExpensesTable(rows []*models.Expense) Table {
	t := Table{Headers: []string{"Date", "Category", "Amount", "Status", "Description"}}
	for _, e := range rows {
		t.Rows = append(t.Rows, []string{
			formatDate(e.Date),
			e.Category.Label(),
			formatAmount(e.Amount),
			e.Status.Label(),
			e.Description,
		})
	}
	return t
}

// MonthlyTable lays out the monthly series with columns: Month, Payments, Expenses, Net
func MonthlyTable(totals []tasks.MonthlyTotal) Table {
	t := Table{Headers: []string{"Month", "Payments", "Expenses", "Net"}}
	for _, m := range totals {
		t.Rows = append(t.Rows, []string{m.Label, formatAmount(m.Payments), formatAmount(m.Expenses), formatAmount(m.Net)})
	}
	return t
}

// WriteCSV writes the table to w.
func (t Table) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(t.Headers); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, record := range t.Rows {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("CSV writer error: %w", err)
	}
	return nil
}

// ExportToCSV renders the table as CSV bytes.
func ExportToCSV(t Table) ([]byte, error) {
	var buf bytes.Buffer
	if err := t.WriteCSV(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ExportStatsToMarkdown renders a period report and the monthly series as a Markdown document.
func ExportStatsToMarkdown(school string, stats *tasks.CombinedStats, monthly []tasks.MonthlyTotal, currency string) []byte {
	var buf bytes.Buffer
	money := func(v float64) string { return shared.FormatMoney(v, currency) }

	buf.WriteString(fmt.Sprintf("# %s report: %s\n\n", school, stats.Label))

	buf.WriteString("## Students\n\n")
	buf.WriteString(fmt.Sprintf("**Total**: %d (%d active, %d inactive)\n", stats.Students.Total, stats.Students.Active, stats.Students.Inactive))
	buf.WriteString(fmt.Sprintf("**New**: %d%s\n\n", stats.Students.New, changeSuffix(stats, stats.Change.NewStudents, "%")))

	if len(stats.Students.ByInstrument) > 0 {
		buf.WriteString("| Instrument | Active students |\n|---|---|\n")
		for _, i := range models.Instruments() {
			if n := stats.Students.ByInstrument[i]; n > 0 {
				buf.WriteString(fmt.Sprintf("| %s | %d |\n", i.Label(), n))
			}
		}
		buf.WriteString("\n")
	}

	buf.WriteString("## Attendance\n\n")
	buf.WriteString(fmt.Sprintf("**Rate**: %.1f%%%s\n", stats.Attendance.Rate, changeSuffix(stats, stats.Change.AttendanceRate, " pts")))
	buf.WriteString(fmt.Sprintf("**Marks**: %d present, %d absent\n\n", stats.Attendance.Present, stats.Attendance.Absent))

	buf.WriteString("## Fees and expenses\n\n")
	buf.WriteString(fmt.Sprintf("**Collected**: %s (%d payments)%s\n", money(stats.Payments.Collected), stats.Payments.PaidCount, changeSuffix(stats, stats.Change.Collected, "%")))
	buf.WriteString(fmt.Sprintf("**Outstanding**: %s (%d payments)\n", money(stats.Payments.Outstanding), stats.Payments.DueCount))
	buf.WriteString(fmt.Sprintf("**Expenses**: %s (%s pending)%s\n", money(stats.Expenses.Total), money(stats.Expenses.Pending), changeSuffix(stats, stats.Change.Expenses, "%")))
	buf.WriteString(fmt.Sprintf("**Net income**: %s%s\n\n", money(stats.NetIncome), changeSuffix(stats, stats.Change.NetIncome, "%")))

	if len(stats.Expenses.ByCategory) > 0 {
		buf.WriteString("| Category | Amount |\n|---|---|\n")
		for _, c := range models.ExpenseCategories() {
			if v, ok := stats.Expenses.ByCategory[c]; ok {
				buf.WriteString(fmt.Sprintf("| %s | %s |\n", c.Label(), money(v)))
			}
		}
		buf.WriteString("\n")
	}

	if len(monthly) > 0 {
		buf.WriteString("## Monthly payments and expenses\n\n")
		buf.WriteString("| Month | Payments | Expenses | Net |\n|---|---|---|---|\n")
		for _, m := range monthly {
			buf.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n", m.Label, money(m.Payments), money(m.Expenses), money(m.Net)))
		}
	}

	return buf.Bytes()
}

// ExportStatsToText renders a period report as plain text for the terminal.
func ExportStatsToText(school string, stats *tasks.CombinedStats, monthly []tasks.MonthlyTotal, currency string) []byte {
	var buf bytes.Buffer
	money := func(v float64) string { return shared.FormatMoney(v, currency) }

	buf.WriteString(fmt.Sprintf("%s: %s\n\n", school, stats.Label))
	buf.WriteString(fmt.Sprintf("Students:    %d total, %d active, %d new\n", stats.Students.Total, stats.Students.Active, stats.Students.New))
	buf.WriteString(fmt.Sprintf("Attendance:  %.1f%% (%d of %d)\n", stats.Attendance.Rate, stats.Attendance.Present, stats.Attendance.Total))
	buf.WriteString(fmt.Sprintf("Collected:   %s\n", money(stats.Payments.Collected)))
	buf.WriteString(fmt.Sprintf("Outstanding: %s\n", money(stats.Payments.Outstanding)))
	buf.WriteString(fmt.Sprintf("Expenses:    %s\n", money(stats.Expenses.Total)))
	buf.WriteString(fmt.Sprintf("Net income:  %s\n", money(stats.NetIncome)))

	if len(monthly) > 0 {
		buf.WriteString("\n")
		for _, m := range monthly {
			buf.WriteString(fmt.Sprintf("%s  %14s  %14s  %14s\n", m.Label, money(m.Payments), money(m.Expenses), money(m.Net)))
		}
	}

	return buf.Bytes()
}

// WriteFile writes data to path, creating parent directories as needed, and returns the path written.
func WriteFile(path string, data []byte) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: output path", shared.ErrMissingArgument)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return path, nil
}

// Filename builds a dated export filename such as "students_2025-03-14.csv".
func Filename(kind string, now time.Time, ext string) string {
	return fmt.Sprintf("%s_%s.%s", kind, now.Format(shared.DateLayout), strings.TrimPrefix(ext, "."))
}

func changeSuffix(stats *tasks.CombinedStats, delta float64, unit string) string {
	if stats.Previous == nil {
		return ""
	}
	return fmt.Sprintf(" (%+.1f%s vs %s)", delta, unit, stats.Previous.Label)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(shared.DateLayout)
}

func formatAmount(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
