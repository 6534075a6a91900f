package actions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/shared"
)

// AttendanceInput marks one student on one date. A zero date means today.
type AttendanceInput struct {
	StudentID string                  `form:"student_id"`
	Date      time.Time               `form:"date"`
	Status    models.AttendanceStatus `form:"status"`
	Notes     string                  `form:"notes"`
}

// AttendanceMark is one row of the batch attendance sheet. Rows without a status are left unmarked.
type AttendanceMark struct {
	StudentID string                  `form:"student_id"`
	Status    models.AttendanceStatus `form:"status"`
	Notes     string                  `form:"notes"`
}

// BatchAttendanceInput marks many students on a single date, posted as marks.0.student_id, marks.0.status, ...
type BatchAttendanceInput struct {
	Date  time.Time        `form:"date"`
	Marks []AttendanceMark `form:"marks"`
}

// BatchSummary counts the outcome of [Actions.MarkAttendanceBatch].
type BatchSummary struct {
	Created int               `json:"created"`
	Skipped int               `json:"skipped"`
	Failed  int               `json:"failed"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// MarkAttendance records a single mark. Marking a student twice on the same date fails.
func (a *Actions) MarkAttendance(ctx context.Context, in AttendanceInput) models.Result {
	date := in.Date
	if date.IsZero() {
		date = a.today()
	}

	record := models.NewAttendance(in.StudentID, date, in.Status)
	record.Notes = strings.TrimSpace(in.Notes)

	if err := a.attendance.Create(ctx, record); err != nil {
		return a.fail("mark attendance", err, "Could not mark attendance.")
	}

	a.metrics.RecordAttendance(string(record.Status), 1)
	a.logger.Info("attendance marked", "student", record.StudentID, "date", record.Date.Format(shared.DateLayout),
		"status", record.Status)
	return models.Success("Attendance marked "+record.Status.Label()+".", record.ID)
}

// MarkAttendanceBatch records marks for several students on one date.
//
// Students already marked on that date are skipped rather than failing the whole sheet. The result carries a
// [BatchSummary] and is an error only when nothing could be recorded.
func (a *Actions) MarkAttendanceBatch(ctx context.Context, in BatchAttendanceInput) models.Result {
	date := in.Date
	if date.IsZero() {
		date = a.today()
	}

	summary := &BatchSummary{}
	counts := map[models.AttendanceStatus]int{}
	for _, mark := range in.Marks {
		if mark.StudentID == "" || mark.Status == "" {
			continue
		}

		record := models.NewAttendance(mark.StudentID, date, mark.Status)
		record.Notes = strings.TrimSpace(mark.Notes)

		err := a.attendance.Create(ctx, record)
		switch {
		case err == nil:
			summary.Created++
			counts[record.Status]++
		case errors.Is(err, shared.ErrDuplicateAttendance):
			summary.Skipped++
		default:
			summary.Failed++
			if summary.Errors == nil {
				summary.Errors = make(map[string]string)
			}
			summary.Errors[mark.StudentID] = models.FromError(err, "could not be marked").Message
			a.logger.Warn("batch attendance mark failed", "student", mark.StudentID, "error", err)
		}
	}

	for status, n := range counts {
		a.metrics.RecordAttendance(string(status), n)
	}

	message := fmt.Sprintf("Marked %d student(s) for %s", summary.Created, date.Format("2 Jan 2006"))
	if summary.Skipped > 0 {
		message += fmt.Sprintf(", %d already marked", summary.Skipped)
	}
	if summary.Failed > 0 {
		message += fmt.Sprintf(", %d failed", summary.Failed)
	}
	message += "."

	a.logger.Info("batch attendance marked", "date", date.Format(shared.DateLayout),
		"created", summary.Created, "skipped", summary.Skipped, "failed", summary.Failed)

	result := models.Success(message, "")
	if summary.Created == 0 && summary.Skipped == 0 {
		result = models.Failure("No attendance was recorded.")
		if summary.Failed > 0 {
			result.Message = message
		}
	}
	result.Data = summary
	return result
}

// UpdateAttendance changes the date, status or notes of a mark.
func (a *Actions) UpdateAttendance(ctx context.Context, id string, in AttendanceInput) models.Result {
	record, err := a.attendance.Get(ctx, id)
	if err != nil {
		return a.fail("update attendance", err, "Could not update attendance.")
	}

	if !in.Date.IsZero() {
		record.Date = shared.DateOnly(in.Date)
	}
	record.Status = in.Status
	record.Notes = strings.TrimSpace(in.Notes)

	if err := a.attendance.Update(ctx, record); err != nil {
		return a.fail("update attendance", err, "Could not update attendance.")
	}

	a.logger.Info("attendance updated", "id", id)
	return models.Success("Attendance updated.", id)
}

// DeleteAttendance removes a mark.
func (a *Actions) DeleteAttendance(ctx context.Context, id string) models.Result {
	if err := a.attendance.Delete(ctx, id); err != nil {
		return a.fail("delete attendance", err, "Could not delete attendance.")
	}

	a.logger.Info("attendance deleted", "id", id)
	return models.Success("Attendance deleted.", id)
}
