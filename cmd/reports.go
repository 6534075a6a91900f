package main

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/encore/internal/formatter"
	"github.com/desertthunder/encore/internal/metrics"
	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/shared"
	"github.com/desertthunder/encore/internal/tasks"
	"github.com/urfave/cli/v3"
)

// exportKinds lists the record types accepted by the export command.
var exportKinds = []string{"students", "attendance", "payments", "expenses"}

// reportPeriod resolves --year, --month and --annual into a period. The current month is the default.
func (r *Runner) reportPeriod(cmd *cli.Command) (shared.Period, error) {
	now := r.now()
	year := cmd.Int("year")
	if year == 0 {
		year = now.Year()
	}
	if cmd.Bool("annual") {
		return shared.YearRange(year), nil
	}

	month := cmd.Int("month")
	if month == 0 {
		month = int(now.Month())
	}
	if month < 1 || month > 12 {
		return shared.Period{}, fmt.Errorf("%w: --month must be between 1 and 12", shared.ErrInvalidFlag)
	}
	return shared.MonthRange(year, time.Month(month)), nil
}

// Report prints period statistics with the month-by-month fee and expense series for the year.
func (r *Runner) Report(ctx context.Context, cmd *cli.Command) error {
	period, err := r.reportPeriod(cmd)
	if err != nil {
		return err
	}

	s, err := r.stores(ctx)
	if err != nil {
		return err
	}
	engine := s.stats()

	stats, err := engine.CombinedStats(ctx, period)
	if err != nil {
		return err
	}
	monthly, err := engine.MonthlyPaymentsAndExpenses(ctx, period.Start.Year())
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(struct {
			Stats   *tasks.CombinedStats `json:"stats"`
			Monthly []tasks.MonthlyTotal `json:"monthly"`
		}{stats, monthly}, true)
	}

	school, currency := r.config.App.Name, r.config.App.Currency
	var data []byte
	if cmd.Bool("md") {
		data = formatter.ExportStatsToMarkdown(school, stats, monthly, currency)
	} else {
		data = formatter.ExportStatsToText(school, stats, monthly, currency)
	}

	if out := cmd.String("output"); out != "" {
		path, err := formatter.WriteFile(out, data)
		if err != nil {
			return err
		}
		r.writePlain("✓ Report written to %s\n", path)
		return nil
	}

	_, err = r.output.Write(data)
	return err
}

// Export writes one record type to CSV.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	kind := strings.ToLower(cmd.StringArg("kind"))
	if kind == "" {
		return fmt.Errorf("%w: kind (one of %s)", shared.ErrMissingArgument, strings.Join(exportKinds, ", "))
	}

	s, err := r.stores(ctx)
	if err != nil {
		return err
	}

	table, err := exportTable(ctx, s, kind)
	if err != nil {
		return err
	}

	if cmd.Bool("stdout") {
		return table.WriteCSV(r.output)
	}

	data, err := formatter.ExportToCSV(table)
	if err != nil {
		return err
	}

	out := cmd.String("output")
	if out == "" {
		out = formatter.Filename(kind, r.now(), "csv")
	}
	path, err := formatter.WriteFile(out, data)
	if err != nil {
		return err
	}

	r.logger.Info("export written", "kind", kind, "rows", len(table.Rows), "path", path)
	r.writePlain("✓ Exported %d %s to %s\n", len(table.Rows), kind, path)
	return nil
}

func exportTable(ctx context.Context, s *stores, kind string) (formatter.Table, error) {
	all := models.Criteria{}
	switch kind {
	case "students":
		rows, err := s.students.List(ctx, all)
		if err != nil {
			return formatter.Table{}, err
		}
		return formatter.StudentsTable(rows), nil
	case "attendance":
		rows, err := s.attendance.List(ctx, all)
		if err != nil {
			return formatter.Table{}, err
		}
		return formatter.AttendanceTable(rows), nil
	case "payments":
		rows, err := s.payments.List(ctx, all)
		if err != nil {
			return formatter.Table{}, err
		}
		return formatter.PaymentsTable(rows), nil
	case "expenses":
		rows, err := s.expenses.List(ctx, all)
		if err != nil {
			return formatter.Table{}, err
		}
		return formatter.ExpensesTable(rows), nil
	default:
		return formatter.Table{}, fmt.Errorf("%w: kind %q (one of %s)", shared.ErrInvalidArgument, kind, strings.Join(exportKinds, ", "))
	}
}

// Remind emails fee reminders for every due payment dated on or before --before.
func (r *Runner) Remind(ctx context.Context, cmd *cli.Command) error {
	opts := tasks.ReminderOpts{
		NumWorkers: cmd.Int("workers"),
		RateLimit:  r.config.Reminders.Rate,
		DryRun:     cmd.Bool("dry-run"),
	}
	if opts.NumWorkers == 0 {
		opts.NumWorkers = r.config.Reminders.Workers
	}
	if before := cmd.String("before"); before != "" {
		t, err := shared.ParseDate(before)
		if err != nil {
			return fmt.Errorf("%w: --before: %v", shared.ErrInvalidFlag, err)
		}
		opts.Before = t
	}

	s, err := r.stores(ctx)
	if err != nil {
		return err
	}
	mailer, err := r.mail()
	if err != nil {
		return err
	}

	progress := make(chan tasks.ProgressUpdate, 16)
	done := make(chan struct{})
	var lines bytes.Buffer
	go func() {
		defer close(done)
		for update := range progress {
			fmt.Fprintf(&lines, "  %s\n", update.Message)
		}
	}()

	result, err := r.reminders(s, mailer, metrics.New()).Send(ctx, progress, opts)
	close(progress)
	<-done

	if result == nil {
		return err
	}

	if cmd.Bool("json") {
		if jsonErr := r.writeJSON(result, true); jsonErr != nil {
			return jsonErr
		}
		return err
	}

	r.output.Write(lines.Bytes())
	verb := "Sent"
	if result.DryRun {
		verb = "Prepared (dry run)"
	}
	r.writePlainln("%s %d reminder(s) for %d due payment(s): %d failed, %d skipped",
		verb, len(result.Outcomes)-result.Failed-result.Skipped, result.DuePayments, result.Failed, result.Skipped)
	return err
}
