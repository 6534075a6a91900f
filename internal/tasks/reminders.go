package tasks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/encore/internal/metrics"
	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/repositories"
	"github.com/desertthunder/encore/internal/services"
	"github.com/desertthunder/encore/internal/shared"
	"golang.org/x/time/rate"
)

// ReminderOpts configures a reminder run.
type ReminderOpts struct {
	Before     time.Time // Remind fees dated on or before this day (default: today)
	NumWorkers int       // Concurrent senders (default: 3, max: 10)
	RateLimit  float64   // Emails per second (default: 2)
	DryRun     bool      // Build messages without sending them
}

// ReminderOutcome is the result for one student.
type ReminderOutcome struct {
	StudentID string
	Name      string
	Email     string
	Items     int
	Amount    float64
	Skipped   string // reason the student was not emailed
	Err       error
}

// ReminderResult summarizes a reminder run.
type ReminderResult struct {
	DuePayments int
	Students    int
	Sent        int
	Failed      int
	Skipped     int
	DryRun      bool
	Outcomes    []ReminderOutcome
}

type reminderJob struct {
	student  *models.Student
	payments []*models.Payment
}

// Reminders emails students about their due fees.
type Reminders struct {
	students *repositories.StudentRepository
	payments *repositories.PaymentRepository
	mailer   services.Mailer
	metrics  *metrics.Metrics
	logger   *log.Logger
	school   string
	currency string
}

// NewReminders creates a [Reminders]. m may be nil.
func NewReminders(
	students *repositories.StudentRepository,
	payments *repositories.PaymentRepository,
	mailer services.Mailer,
	m *metrics.Metrics,
	logger *log.Logger,
	school, currency string,
) *Reminders {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Reminders{
		students: students,
		payments: payments,
		mailer:   mailer,
		metrics:  m,
		logger:   logger,
		school:   school,
		currency: currency,
	}
}

// Send emails one reminder per student listing their due fees.
//
// Due payments are grouped per student; inactive students are skipped. Emails go out through a bounded worker
// pool under a rate limiter, and one student's failure never stops the others. Cancelling ctx stops queuing
// new students.
func (r *Reminders) Send(ctx context.Context, prog chan<- ProgressUpdate, opts ReminderOpts) (*ReminderResult, error) {
	if r.mailer == nil && !opts.DryRun {
		return nil, fmt.Errorf("%w: mailer not configured", shared.ErrServiceUnavailable)
	}

	if opts.Before.IsZero() {
		opts.Before = time.Now()
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 3
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 2
	}

	due, err := r.payments.Due(ctx, shared.DateOnly(opts.Before))
	if err != nil {
		return nil, fmt.Errorf("failed to load due payments: %w", err)
	}
	sendProgress(prog, loadDueUpdate(len(due)))

	grouped := make(map[string][]*models.Payment)
	var order []string
	for _, p := range due {
		if _, ok := grouped[p.StudentID]; !ok {
			order = append(order, p.StudentID)
		}
		grouped[p.StudentID] = append(grouped[p.StudentID], p)
	}

	result := &ReminderResult{
		DuePayments: len(due),
		Students:    len(order),
		DryRun:      opts.DryRun,
		Outcomes:    make([]ReminderOutcome, 0, len(order)),
	}
	if len(order) == 0 {
		return result, nil
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	jobs := make(chan reminderJob, len(order))
	results := make(chan ReminderOutcome, len(order))

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go r.worker(ctx, &wg, limiter, jobs, results, opts)
	}

	go func() {
		defer close(jobs)
		sendProgress(prog, sendingUpdate(len(order)))
		for _, id := range order {
			if ctx.Err() != nil {
				return
			}

			student, err := r.students.Get(ctx, id)
			if err != nil {
				results <- ReminderOutcome{StudentID: id, Name: id, Err: err}
				continue
			}
			jobs <- reminderJob{student: student, payments: grouped[id]}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for outcome := range results {
		completed++
		result.Outcomes = append(result.Outcomes, outcome)
		switch {
		case outcome.Err != nil:
			result.Failed++
		case outcome.Skipped != "":
			result.Skipped++
		case !opts.DryRun:
			result.Sent++
		}
		sendProgress(prog, outcomeUpdate(completed, len(order), outcome))
	}

	sort.SliceStable(result.Outcomes, func(i, j int) bool { return result.Outcomes[i].Name < result.Outcomes[j].Name })

	r.logger.Info("fee reminders finished", "students", result.Students, "sent", result.Sent,
		"failed", result.Failed, "skipped", result.Skipped, "dry_run", opts.DryRun)

	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("reminders interrupted: %w", err)
	}
	return result, nil
}

// worker sends reminders from the jobs channel.
func (r *Reminders) worker(
	ctx context.Context,
	wg *sync.WaitGroup,
	limiter *rate.Limiter,
	jobs <-chan reminderJob,
	results chan<- ReminderOutcome,
	opts ReminderOpts,
) {
	defer wg.Done()

	for job := range jobs {
		results <- r.remind(ctx, limiter, job, opts)
	}
}

func (r *Reminders) remind(ctx context.Context, limiter *rate.Limiter, job reminderJob, opts ReminderOpts) ReminderOutcome {
	s := job.student
	outcome := ReminderOutcome{StudentID: s.ID, Name: s.Name, Email: s.Email, Items: len(job.payments)}

	data := services.ReminderData{School: r.school, Name: s.Name}
	for _, p := range job.payments {
		outcome.Amount += p.Amount
		data.Items = append(data.Items, services.ReminderItem{
			Receipt:     p.ReceiptNumber,
			Date:        p.Date.Format("2 Jan 2006"),
			Amount:      shared.FormatMoney(p.Amount, r.currency),
			Description: p.Description,
		})
	}
	data.Total = shared.FormatMoney(outcome.Amount, r.currency)

	switch {
	case !s.Active:
		outcome.Skipped = "inactive"
		return outcome
	case s.Email == "":
		outcome.Skipped = "no email address"
		return outcome
	}

	msg, err := services.ReminderMessage(s.Email, data)
	if err != nil {
		outcome.Err = err
		return outcome
	}
	if opts.DryRun {
		return outcome
	}

	if err := limiter.Wait(ctx); err != nil {
		outcome.Err = errors.Join(shared.ErrTimeout, err)
		return outcome
	}

	outcome.Err = r.mailer.Send(ctx, msg)
	r.metrics.RecordEmail("reminder", outcome.Err)
	if outcome.Err != nil {
		r.logger.Warn("failed to send fee reminder", "student", s.ID, "error", outcome.Err)
	}
	return outcome
}
