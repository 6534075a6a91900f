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

const studentColumns = "id, roll_number, name, email, phone, guardian_name, date_of_birth, address, " +
	"instrument, grade, batch, timing, active, joined_on, user_id, notes, created_at, updated_at"

// StudentRepository implements [models.Repository] and [models.Pager] for [models.Student].
type StudentRepository struct {
	db *sql.DB
}

// NewStudentRepository creates a new [StudentRepository]
func NewStudentRepository(db *sql.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// Create inserts a new student and assigns the next roll number.
//
// A second student with the same email fails with [shared.ErrDuplicate].
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	student.Email = shared.NormalizeEmail(student.Email)
	if err := student.Validate(); err != nil {
		return err
	}

	if student.ID == "" {
		student.ID = shared.GenerateID()
	}

	now := time.Now().UTC()
	student.CreatedAt = now
	student.UpdatedAt = now
	student.JoinedOn = shared.DateOnly(student.JoinedOn)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rollNumber, err := NextSequence(ctx, tx, "students")
	if err != nil {
		return err
	}

	query := `INSERT INTO students (` + studentColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, query,
		student.ID, rollNumber, student.Name, student.Email, student.Phone, student.GuardianName,
		nullableDate(student.DateOfBirth), student.Address, string(student.Instrument), string(student.Grade),
		string(student.Batch), string(student.Timing), student.Active, student.JoinedOn,
		nullableString(student.UserID), student.Notes, student.CreatedAt, student.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("student with email %s: %w", student.Email, shared.ErrDuplicate)
	}
	if isForeignKeyViolation(err) {
		return fmt.Errorf("user for student: %w", shared.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to create student: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit student: %w", err)
	}

	student.RollNumber = rollNumber
	return nil
}

// Get retrieves a student by ID
func (r *StudentRepository) Get(ctx context.Context, id string) (*models.Student, error) {
	b := sq.Select(studentColumns).From("students").Where("id = ?", id)
	return queryOne(ctx, r.db, b, "student "+id, scanStudent)
}

// GetByEmail retrieves a student by (normalized) email address
func (r *StudentRepository) GetByEmail(ctx context.Context, email string) (*models.Student, error) {
	email = shared.NormalizeEmail(email)
	b := sq.Select(studentColumns).From("students").Where("email = ?", email)
	return queryOne(ctx, r.db, b, "student "+email, scanStudent)
}

// GetByUser retrieves the student linked to a login account.
func (r *StudentRepository) GetByUser(ctx context.Context, userID string) (*models.Student, error) {
	b := sq.Select(studentColumns).From("students").Where("user_id = ?", userID).OrderBy("roll_number ASC").Limit(1)
	return queryOne(ctx, r.db, b, "student for user "+userID, scanStudent)
}

// Update modifies an existing student's profile. Roll number and creation time never change.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.Email = shared.NormalizeEmail(student.Email)
	if err := student.Validate(); err != nil {
		return err
	}

	student.UpdatedAt = time.Now().UTC()
	student.JoinedOn = shared.DateOnly(student.JoinedOn)

	query := `
		UPDATE students
		SET name = ?, email = ?, phone = ?, guardian_name = ?, date_of_birth = ?, address = ?,
			instrument = ?, grade = ?, batch = ?, timing = ?, active = ?, joined_on = ?, user_id = ?,
			notes = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		student.Name, student.Email, student.Phone, student.GuardianName, nullableDate(student.DateOfBirth),
		student.Address, string(student.Instrument), string(student.Grade), string(student.Batch),
		string(student.Timing), student.Active, student.JoinedOn, nullableString(student.UserID),
		student.Notes, student.UpdatedAt, student.ID,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("student with email %s: %w", student.Email, shared.ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("failed to update student: %w", err)
	}
	return expectOne(result, "student", student.ID)
}

// SetActive marks a student as active or inactive.
func (r *StudentRepository) SetActive(ctx context.Context, id string, active bool) error {
	result, err := r.db.ExecContext(ctx, "UPDATE students SET active = ?, updated_at = ? WHERE id = ?",
		active, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update student status: %w", err)
	}
	return expectOne(result, "student", id)
}

// LinkUser attaches the student holding email to the given user account.
//
// Returns [shared.ErrNotFound] when no student has that email.
func (r *StudentRepository) LinkUser(ctx context.Context, email, userID string) error {
	email = shared.NormalizeEmail(email)
	result, err := r.db.ExecContext(ctx, "UPDATE students SET user_id = ?, updated_at = ? WHERE email = ?",
		userID, time.Now().UTC(), email)
	if err != nil {
		return fmt.Errorf("failed to link student: %w", err)
	}
	return expectOne(result, "student with email", email)
}

// Delete removes a student. Attendance and payment rows are deleted with it.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM students WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete student: %w", err)
	}
	return expectOne(result, "student", id)
}

// List retrieves students ordered by roll number.
//
// Criteria: "active" (bool), "instrument", "grade", "batch", "timing", "user_id", "search" (name, email,
// phone or guardian substring), "joined_from" (inclusive) and "joined_to" (exclusive).
func (r *StudentRepository) List(ctx context.Context, criteria models.Criteria) ([]*models.Student, error) {
	b := r.filter(sq.Select(studentColumns).From("students"), criteria).OrderBy("roll_number ASC")
	return queryAll(ctx, r.db, b, scanStudent)
}

// Page retrieves one page of students matching criteria.
func (r *StudentRepository) Page(ctx context.Context, criteria models.Criteria, page models.Page) (*models.PageResult[*models.Student], error) {
	total, err := r.Count(ctx, criteria)
	if err != nil {
		return nil, err
	}

	b := paged(r.filter(sq.Select(studentColumns).From("students"), criteria).OrderBy("roll_number ASC"), page)
	items, err := queryAll(ctx, r.db, b, scanStudent)
	if err != nil {
		return nil, err
	}
	return models.NewPageResult(items, total, page), nil
}

// Count returns the number of students matching criteria.
func (r *StudentRepository) Count(ctx context.Context, criteria models.Criteria) (int, error) {
	return countRows(ctx, r.db, r.filter(sq.Select("COUNT(*)").From("students"), criteria))
}

func (r *StudentRepository) filter(b squirrel.SelectBuilder, c models.Criteria) squirrel.SelectBuilder {
	b = withEq(b, c, map[string]string{
		"active":     "active",
		"instrument": "instrument",
		"grade":      "grade",
		"batch":      "batch",
		"timing":     "timing",
		"user_id":    "user_id",
	})
	if term, ok := c.String("search"); ok {
		b = withSearch(b, term, "name", "email", "phone", "guardian_name")
	}
	if from, ok := c.Time("joined_from"); ok {
		b = b.Where(squirrel.GtOrEq{"joined_on": shared.DateOnly(from)})
	}
	if to, ok := c.Time("joined_to"); ok {
		b = b.Where(squirrel.Lt{"joined_on": shared.DateOnly(to)})
	}
	return b
}

func scanStudent(s scanner) (*models.Student, error) {
	var (
		student                          models.Student
		instrument, grade, batch, timing string
		dob                              sql.NullTime
		userID                           sql.NullString
	)

	err := s.Scan(
		&student.ID, &student.RollNumber, &student.Name, &student.Email, &student.Phone, &student.GuardianName,
		&dob, &student.Address, &instrument, &grade, &batch, &timing, &student.Active, &student.JoinedOn,
		&userID, &student.Notes, &student.CreatedAt, &student.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	student.Instrument = models.Instrument(instrument)
	student.Grade = models.Grade(grade)
	student.Batch = models.Batch(batch)
	student.Timing = models.Timing(timing)
	student.DateOfBirth = timePtr(dob)
	student.UserID = stringPtr(userID)
	return &student, nil
}
