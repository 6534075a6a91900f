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

// StudentInput is the registration and edit form for a student.
type StudentInput struct {
	Name         string            `form:"name"`
	Email        string            `form:"email"`
	Phone        string            `form:"phone"`
	GuardianName string            `form:"guardian_name"`
	DateOfBirth  time.Time         `form:"date_of_birth"`
	Address      string            `form:"address"`
	Instrument   models.Instrument `form:"instrument"`
	Grade        models.Grade      `form:"grade"`
	Batch        models.Batch      `form:"batch"`
	Timing       models.Timing     `form:"timing"`
	JoinedOn     time.Time         `form:"joined_on"`
	Active       bool              `form:"active"`
	Notes        string            `form:"notes"`
}

// apply copies the form onto s, leaving identity and bookkeeping fields alone.
func (in StudentInput) apply(s *models.Student) {
	s.Name = strings.TrimSpace(in.Name)
	s.Email = shared.NormalizeEmail(in.Email)
	s.Phone = strings.TrimSpace(in.Phone)
	s.GuardianName = strings.TrimSpace(in.GuardianName)
	s.Address = strings.TrimSpace(in.Address)
	s.Instrument = in.Instrument
	s.Grade = in.Grade
	s.Batch = in.Batch
	s.Timing = in.Timing
	s.Active = in.Active
	s.Notes = strings.TrimSpace(in.Notes)

	s.DateOfBirth = nil
	if !in.DateOfBirth.IsZero() {
		dob := shared.DateOnly(in.DateOfBirth)
		s.DateOfBirth = &dob
	}
	if !in.JoinedOn.IsZero() {
		s.JoinedOn = shared.DateOnly(in.JoinedOn)
	}
}

// RegisterStudent enrolls a new student.
//
// New students are active and linked to the verified login account with their email, if one exists. When a
// student with the same email already exists the result has status existingStudent and carries the existing
// student's ID.
func (a *Actions) RegisterStudent(ctx context.Context, in StudentInput) models.Result {
	email := shared.NormalizeEmail(in.Email)
	if email != "" {
		if existing, err := a.students.GetByEmail(ctx, email); err == nil {
			return models.ExistingStudent(existing.ID)
		} else if !errors.Is(err, shared.ErrNotFound) {
			return a.fail("register student", err, "Could not register the student. Please try again.")
		}
	}

	student := &models.Student{JoinedOn: a.today()}
	in.apply(student)
	student.Active = true

	if a.users != nil && email != "" {
		if user, err := a.users.GetByEmail(ctx, email); err == nil && user.Verified() {
			student.UserID = &user.ID
		}
	}

	if err := a.students.Create(ctx, student); err != nil {
		if errors.Is(err, shared.ErrDuplicate) {
			if existing, lookupErr := a.students.GetByEmail(ctx, email); lookupErr == nil {
				return models.ExistingStudent(existing.ID)
			}
		}
		return a.fail("register student", err, "Could not register the student. Please try again.")
	}

	a.metrics.RecordStudentRegistered()
	a.logger.Info("student registered", "id", student.ID, "roll", student.RollNumber)

	result := models.Success(fmt.Sprintf("%s registered with roll number %d.", student.Name, student.RollNumber), student.ID)
	result.Data = student
	return result
}

// UpdateStudent saves the edit form for an existing student.
func (a *Actions) UpdateStudent(ctx context.Context, id string, in StudentInput) models.Result {
	student, err := a.students.Get(ctx, id)
	if err != nil {
		return a.fail("update student", err, "Could not update the student.")
	}

	in.apply(student)
	if err := a.students.Update(ctx, student); err != nil {
		if errors.Is(err, shared.ErrDuplicate) {
			return models.Result{
				Status:      models.StatusError,
				Message:     "Please correct the highlighted fields.",
				FieldErrors: map[string]string{"email": "another student already uses this email"},
			}
		}
		return a.fail("update student", err, "Could not update the student.")
	}

	a.logger.Info("student updated", "id", student.ID)
	result := models.Success(student.Name+" updated.", student.ID)
	result.Data = student
	return result
}

// SetStudentActive activates or deactivates a student.
func (a *Actions) SetStudentActive(ctx context.Context, id string, active bool) models.Result {
	if err := a.students.SetActive(ctx, id, active); err != nil {
		return a.fail("set student active", err, "Could not change the student's status.")
	}

	state := "deactivated"
	if active {
		state = "activated"
	}
	a.logger.Info("student "+state, "id", id)
	return models.Success("Student "+state+".", id)
}

// DeleteStudent removes a student together with their attendance and payments.
func (a *Actions) DeleteStudent(ctx context.Context, id string) models.Result {
	if err := a.students.Delete(ctx, id); err != nil {
		return a.fail("delete student", err, "Could not delete the student.")
	}

	a.logger.Info("student deleted", "id", id)
	return models.Success("Student deleted.", id)
}
