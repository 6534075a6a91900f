package models

import (
	"time"

	"github.com/desertthunder/encore/internal/shared"
)

// Attendance is a single present/absent mark. A student has at most one mark per date.
type Attendance struct {
	ID        string           `json:"id"`
	StudentID string           `json:"student_id" form:"student_id" validate:"required"`
	Date      time.Time        `json:"date" form:"date" validate:"required"`
	Status    AttendanceStatus `json:"status" form:"status" validate:"required,attendance_status"`
	Notes     string           `json:"notes" form:"notes" validate:"max=500"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`

	// StudentName is populated by listings that join students; it is not persisted.
	StudentName string `json:"student_name,omitempty"`
}

// NewAttendance creates a mark for the given student and calendar day.
func NewAttendance(studentID string, date time.Time, status AttendanceStatus) *Attendance {
	now := time.Now().UTC()
	return &Attendance{
		StudentID: studentID,
		Date:      shared.DateOnly(date),
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (a *Attendance) Validate() error { return Validate(a) }

// Present reports whether the student attended.
func (a *Attendance) Present() bool { return a.Status == AttendancePresent }
