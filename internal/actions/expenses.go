package actions

import (
	"context"
	"strings"
	"time"

	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/shared"
)

// ExpenseInput records or edits a running cost. A zero date means today.
type ExpenseInput struct {
	Date        time.Time              `form:"date"`
	Amount      float64                `form:"amount"`
	Category    models.ExpenseCategory `form:"category"`
	Description string                 `form:"description"`
	Status      models.ExpenseStatus   `form:"status"`
}

func (a *Actions) RecordExpense(ctx context.Context, in ExpenseInput) models.Result {
	date := in.Date
	if date.IsZero() {
		date = a.today()
	}

	expense := models.NewExpense(date, in.Amount, in.Category, in.Status)
	expense.Description = strings.TrimSpace(in.Description)

	if err := a.expenses.Create(ctx, expense); err != nil {
		return a.fail("record expense", err, "Could not record the expense.")
	}

	a.logger.Info("expense recorded", "id", expense.ID, "category", expense.Category, "amount", expense.Amount)
	result := models.Success(expense.Category.Label()+" expense recorded.", expense.ID)
	result.Data = expense
	return result
}

func (a *Actions) UpdateExpense(ctx context.Context, id string, in ExpenseInput) models.Result {
	expense, err := a.expenses.Get(ctx, id)
	if err != nil {
		return a.fail("update expense", err, "Could not update the expense.")
	}

	if !in.Date.IsZero() {
		expense.Date = shared.DateOnly(in.Date)
	}
	expense.Amount = in.Amount
	expense.Category = in.Category
	expense.Description = strings.TrimSpace(in.Description)
	expense.Status = in.Status

	if err := a.expenses.Update(ctx, expense); err != nil {
		return a.fail("update expense", err, "Could not update the expense.")
	}

	a.logger.Info("expense updated", "id", id)
	return models.Success("Expense updated.", id)
}

func (a *Actions) DeleteExpense(ctx context.Context, id string) models.Result {
	if err := a.expenses.Delete(ctx, id); err != nil {
		return a.fail("delete expense", err, "Could not delete the expense.")
	}

	a.logger.Info("expense deleted", "id", id)
	return models.Success("Expense deleted.", id)
}
