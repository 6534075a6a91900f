package models

import (
	"time"

	"github.com/desertthunder/encore/internal/shared"
)

// Expense is a running cost of the school.
type Expense struct {
	ID          string          `json:"id"`
	Date        time.Time       `json:"date" form:"date" validate:"required"`
	Amount      float64         `json:"amount" form:"amount" validate:"gt=0"`
	Category    ExpenseCategory `json:"category" form:"category" validate:"required,expense_category"`
	Description string          `json:"description" form:"description" validate:"max=300"`
	Status      ExpenseStatus   `json:"status" form:"status" validate:"required,expense_status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// NewExpense creates an expense dated on the given calendar day.
func NewExpense(date time.Time, amount float64, category ExpenseCategory, status ExpenseStatus) *Expense {
	now := time.Now().UTC()
	return &Expense{
		Date:      shared.DateOnly(date),
		Amount:    amount,
		Category:  category,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (e *Expense) Validate() error { return Validate(e) }
