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

const expenseColumns = "id, date, amount, category, description, status, created_at, updated_at"

// ExpenseRepository implements [models.Repository] and [models.Pager] for [models.Expense].
type ExpenseRepository struct {
	db *sql.DB
}

// NewExpenseRepository creates a new [ExpenseRepository]
func NewExpenseRepository(db *sql.DB) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

// Create inserts a new expense
func (r *ExpenseRepository) Create(ctx context.Context, expense *models.Expense) error {
	if err := expense.Validate(); err != nil {
		return err
	}

	if expense.ID == "" {
		expense.ID = shared.GenerateID()
	}

	now := time.Now().UTC()
	expense.Date = shared.DateOnly(expense.Date)
	expense.CreatedAt = now
	expense.UpdatedAt = now

	query := `INSERT INTO expenses (` + expenseColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		expense.ID, expense.Date, expense.Amount, string(expense.Category), expense.Description,
		string(expense.Status), expense.CreatedAt, expense.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create expense: %w", err)
	}
	return nil
}

// Get retrieves an expense by ID
func (r *ExpenseRepository) Get(ctx context.Context, id string) (*models.Expense, error) {
	b := sq.Select(expenseColumns).From("expenses").Where("id = ?", id)
	return queryOne(ctx, r.db, b, "expense "+id, scanExpense)
}

// Update modifies an existing expense
func (r *ExpenseRepository) Update(ctx context.Context, expense *models.Expense) error {
	if err := expense.Validate(); err != nil {
		return err
	}

	expense.Date = shared.DateOnly(expense.Date)
	expense.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE expenses
		SET date = ?, amount = ?, category = ?, description = ?, status = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		expense.Date, expense.Amount, string(expense.Category), expense.Description,
		string(expense.Status), expense.UpdatedAt, expense.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update expense: %w", err)
	}
	return expectOne(result, "expense", expense.ID)
}

// Delete removes an expense
func (r *ExpenseRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM expenses WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	return expectOne(result, "expense", id)
}

// List retrieves expenses, newest first.
//
// Criteria: "category", "status", "search" (description substring), "from" (inclusive) and "to" (exclusive).
func (r *ExpenseRepository) List(ctx context.Context, criteria models.Criteria) ([]*models.Expense, error) {
	b := r.filter(sq.Select(expenseColumns).From("expenses"), criteria).OrderBy("date DESC", "created_at DESC")
	return queryAll(ctx, r.db, b, scanExpense)
}

// Page retrieves one page of expenses matching criteria.
func (r *ExpenseRepository) Page(ctx context.Context, criteria models.Criteria, page models.Page) (*models.PageResult[*models.Expense], error) {
	total, err := r.Count(ctx, criteria)
	if err != nil {
		return nil, err
	}

	b := r.filter(sq.Select(expenseColumns).From("expenses"), criteria).OrderBy("date DESC", "created_at DESC")
	items, err := queryAll(ctx, r.db, paged(b, page), scanExpense)
	if err != nil {
		return nil, err
	}
	return models.NewPageResult(items, total, page), nil
}

// Count returns the number of expenses matching criteria.
func (r *ExpenseRepository) Count(ctx context.Context, criteria models.Criteria) (int, error) {
	return countRows(ctx, r.db, r.filter(sq.Select("COUNT(*)").From("expenses"), criteria))
}

func (r *ExpenseRepository) filter(b squirrel.SelectBuilder, c models.Criteria) squirrel.SelectBuilder {
	b = withEq(b, c, map[string]string{"category": "category", "status": "status"})
	if term, ok := c.String("search"); ok {
		b = withSearch(b, term, "description")
	}
	return withDateRange(b, "date", c)
}

func scanExpense(s scanner) (*models.Expense, error) {
	var (
		expense          models.Expense
		category, status string
	)

	err := s.Scan(
		&expense.ID, &expense.Date, &expense.Amount, &category, &expense.Description, &status,
		&expense.CreatedAt, &expense.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	expense.Category = models.ExpenseCategory(category)
	expense.Status = models.ExpenseStatus(status)
	return &expense, nil
}
