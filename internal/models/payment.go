package models

import (
	"time"

	"github.com/desertthunder/encore/internal/shared"
)

// Payment is a fee owed (due) or collected (paid) from a student.
type Payment struct {
	ID            string        `json:"id"`
	ReceiptNumber int           `json:"receipt_number"`
	StudentID     string        `json:"student_id" form:"student_id" validate:"required"`
	Date          time.Time     `json:"date" form:"date" validate:"required"`
	Amount        float64       `json:"amount" form:"amount" validate:"gt=0"`
	Method        PaymentMethod `json:"method" form:"method" validate:"required,payment_method"`
	Status        PaymentStatus `json:"status" form:"status" validate:"required,payment_status"`
	Description   string        `json:"description" form:"description" validate:"max=300"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`

	// StudentName is populated by listings that join students; it is not persisted.
	StudentName string `json:"student_name,omitempty"`
}

// NewPayment creates a payment for the given student and calendar day.
func NewPayment(studentID string, date time.Time, amount float64, method PaymentMethod, status PaymentStatus) *Payment {
	now := time.Now().UTC()
	return &Payment{
		StudentID: studentID,
		Date:      shared.DateOnly(date),
		Amount:    amount,
		Method:    method,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (p *Payment) Validate() error { return Validate(p) }

// Paid reports whether the fee has been collected.
func (p *Payment) Paid() bool { return p.Status == PaymentPaid }
