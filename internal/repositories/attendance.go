package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/shared"
)

var attendanceColumns = []string{
	"a.id", "a.student_id", "a.date", "a.status", "a.notes", "a.created_at", "a.updated_at", "s.name",
}

// AttendanceRepository implements [models.Repository] and [models.Pager] for [models.Attendance].
type AttendanceRepository struct {
	db *sql.DB
}

// NewAttendanceRepository creates a new [AttendanceRepository]
func NewAttendanceRepository(db *sql.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Create inserts a new attendance mark.
//
// A student can only be marked once per date; a second mark fails with [shared.ErrDuplicateAttendance].
func (r *AttendanceRepository) Create(ctx context.Context, attendance *models.Attendance) error {
	if err := attendance.Validate(); err != nil {
		return err
	}

	if attendance.ID == "" {
		attendance.ID = shared.GenerateID()
	}

	now := time.Now().UTC()
	attendance.Date = shared.DateOnly(attendance.Date)
	attendance.CreatedAt = now
	attendance.UpdatedAt = now

	query := `
		INSERT INTO attendance (id, student_id, date, status, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		attendance.ID, attendance.StudentID, attendance.Date, string(attendance.Status),
		attendance.Notes, attendance.CreatedAt, attendance.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("student %s on %s: %w",
			attendance.StudentID, attendance.Date.Format(shared.DateLayout), shared.ErrDuplicateAttendance)
	}
	if isForeignKeyViolation(err) {
		return fmt.Errorf("student %s: %w", attendance.StudentID, shared.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to create attendance: %w", err)
	}
	return nil
}

// Get retrieves an attendance mark by ID
func (r *AttendanceRepository) Get(ctx context.Context, id string) (*models.Attendance, error) {
	return queryOne(ctx, r.db, r.selectJoined().Where("a.id = ?", id), "attendance "+id, scanAttendance)
}

// Update changes the date, status and notes of a mark. Moving it onto a date that is already marked fails
// with [shared.ErrDuplicateAttendance].
func (r *AttendanceRepository) Update(ctx context.Context, attendance *models.Attendance) error {
	if err := attendance.Validate(); err != nil {
		return err
	}

	attendance.Date = shared.DateOnly(attendance.Date)
	attendance.UpdatedAt = time.Now().UTC()

	query := `UPDATE attendance SET date = ?, status = ?, notes = ?, updated_at = ? WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query,
		attendance.Date, string(attendance.Status), attendance.Notes, attendance.UpdatedAt, attendance.ID)
	if isUniqueViolation(err) {
		return fmt.Errorf("student %s on %s: %w",
			attendance.StudentID, attendance.Date.Format(shared.DateLayout), shared.ErrDuplicateAttendance)
	}
	if err != nil {
		return fmt.Errorf("failed to update attendance: %w", err)
	}
	return expectOne(result, "attendance", attendance.ID)
}

// Delete removes an attendance mark
func (r *AttendanceRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM attendance WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete attendance: %w", err)
	}
	return expectOne(result, "attendance", id)
}

// List retrieves attendance marks, newest date first.
//
// Criteria: "student_id", "status", "batch", "timing" (of the student), "date" (a single day),
// "from" (inclusive) and "to" (exclusive).
func (r *AttendanceRepository) List(ctx context.Context, criteria models.Criteria) ([]*models.Attendance, error) {
	b := r.filter(r.selectJoined(), criteria).OrderBy("a.date DESC", "s.name ASC")
	return queryAll(ctx, r.db, b, scanAttendance)
}

// Page retrieves one page of attendance marks matching criteria.
func (r *AttendanceRepository) Page(ctx context.Context, criteria models.Criteria, page models.Page) (*models.PageResult[*models.Attendance], error) {
	total, err := r.Count(ctx, criteria)
	if err != nil {
		return nil, err
	}

	b := paged(r.filter(r.selectJoined(), criteria).OrderBy("a.date DESC", "s.name ASC"), page)
	items, err := queryAll(ctx, r.db, b, scanAttendance)
	if err != nil {
		return nil, err
	}
	return models.NewPageResult(items, total, page), nil
}

// Count returns the number of attendance marks matching criteria.
func (r *AttendanceRepository) Count(ctx context.Context, criteria models.Criteria) (int, error) {
	b := sq.Select("COUNT(*)").From("attendance a").Join("students s ON s.id = a.student_id")
	return countRows(ctx, r.db, r.filter(b, criteria))
}

// ForDate returns the marks recorded on day keyed by student ID.
func (r *AttendanceRepository) ForDate(ctx context.Context, day time.Time) (map[string]*models.Attendance, error) {
	items, err := r.List(ctx, models.Criteria{"date": day})
	if err != nil {
		return nil, err
	}

	marks := make(map[string]*models.Attendance, len(items))
	for _, a := range items {
		marks[a.StudentID] = a
	}
	return marks, nil
}

func (r *AttendanceRepository) selectJoined() squirrel.SelectBuilder {
	return sq.Select(attendanceColumns...).From("attendance a").Join("students s ON s.id = a.student_id")
}

func (r *AttendanceRepository) filter(b squirrel.SelectBuilder, c models.Criteria) squirrel.SelectBuilder {
	b = withEq(b, c, map[string]string{
		"student_id": "a.student_id",
		"status":     "a.status",
		"batch":      "s.batch",
		"timing":     "s.timing",
	})
	if day, ok := c.Time("date"); ok {
		b = b.Where(squirrel.Eq{"a.date": shared.DateOnly(day)})
	}
	return withDateRange(b, "a.date", c)
}

func scanAttendance(s scanner) (*models.Attendance, error) {
	var (
		attendance models.Attendance
		status     string
	)

	err := s.Scan(
		&attendance.ID, &attendance.StudentID, &attendance.Date, &status, &attendance.Notes,
		&attendance.CreatedAt, &attendance.UpdatedAt, &attendance.StudentName,
	)
	if err != nil {
		return nil, err
	}

	attendance.Status = models.AttendanceStatus(status)
	return &attendance, nil
}
