package models

import (
	"time"

	"github.com/desertthunder/encore/internal/shared"
)

// Student is an enrolled (or formerly enrolled) learner.
//
// RollNumber is a human-readable sequence assigned on creation. UserID links the student to the login
// account that may view their attendance and payments.
type Student struct {
	ID           string     `json:"id"`
	RollNumber   int        `json:"roll_number"`
	Name         string     `json:"name" form:"name" validate:"required,notblank,max=120"`
	Email        string     `json:"email" form:"email" validate:"required,email,max=254"`
	Phone        string     `json:"phone" form:"phone" validate:"omitempty,max=20"`
	GuardianName string     `json:"guardian_name" form:"guardian_name" validate:"max=120"`
	DateOfBirth  *time.Time `json:"date_of_birth,omitempty" form:"date_of_birth"`
	Address      string     `json:"address" form:"address" validate:"max=300"`
	Instrument   Instrument `json:"instrument" form:"instrument" validate:"required,instrument"`
	Grade        Grade      `json:"grade" form:"grade" validate:"required,grade"`
	Batch        Batch      `json:"batch" form:"batch" validate:"required,batch"`
	Timing       Timing     `json:"timing" form:"timing" validate:"required,timing"`
	Active       bool       `json:"active" form:"active"`
	JoinedOn     time.Time  `json:"joined_on" form:"joined_on" validate:"required"`
	UserID       *string    `json:"user_id,omitempty"`
	Notes        string     `json:"notes" form:"notes" validate:"max=1000"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// NewStudent creates an active student joining today.
func NewStudent(name, email string, instrument Instrument, grade Grade, batch Batch, timing Timing) *Student {
	now := time.Now().UTC()
	return &Student{
		Name:       name,
		Email:      shared.NormalizeEmail(email),
		Instrument: instrument,
		Grade:      grade,
		Batch:      batch,
		Timing:     timing,
		Active:     true,
		JoinedOn:   shared.DateOnly(now),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func (s *Student) Validate() error {
	if err := Validate(s); err != nil {
		return err
	}
	if s.DateOfBirth != nil && s.DateOfBirth.After(time.Now()) {
		return NewValidationError("date_of_birth", "date_of_birth cannot be in the future")
	}
	return nil
}

// Linked reports whether the student is attached to a login account.
func (s *Student) Linked() bool { return s.UserID != nil && *s.UserID != "" }
