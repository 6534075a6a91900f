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

var paymentColumns = []string{
	"p.id", "p.receipt_number", "p.student_id", "p.date", "p.amount", "p.method", "p.status",
	"p.description", "p.created_at", "p.updated_at", "s.name",
}

// PaymentRepository implements [models.Repository] and [models.Pager] for [models.Payment].
type PaymentRepository struct {
	db *sql.DB
}

// NewPaymentRepository creates a new [PaymentRepository]
func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create inserts a new payment and assigns the next receipt number.
func (r *PaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	if err := payment.Validate(); err != nil {
		return err
	}

	if payment.ID == "" {
		payment.ID = shared.GenerateID()
	}

	now := time.Now().UTC()
	payment.Date = shared.DateOnly(payment.Date)
	payment.CreatedAt = now
	payment.UpdatedAt = now

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	receipt, err := NextSequence(ctx, tx, "payments")
	if err != nil {
		return err
	}

	query := `
		INSERT INTO payments (id, receipt_number, student_id, date, amount, method, status, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = tx.ExecContext(ctx, query,
		payment.ID, receipt, payment.StudentID, payment.Date, payment.Amount, string(payment.Method),
		string(payment.Status), payment.Description, payment.CreatedAt, payment.UpdatedAt,
	)
	if isForeignKeyViolation(err) {
		return fmt.Errorf("student %s: %w", payment.StudentID, shared.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit payment: %w", err)
	}

	payment.ReceiptNumber = receipt
	return nil
}

// Get retrieves a payment by ID
func (r *PaymentRepository) Get(ctx context.Context, id string) (*models.Payment, error) {
	return queryOne(ctx, r.db, r.selectJoined().Where("p.id = ?", id), "payment "+id, scanPayment)
}

// Update modifies an existing payment. The student and receipt number never change.
func (r *PaymentRepository) Update(ctx context.Context, payment *models.Payment) error {
	if err := payment.Validate(); err != nil {
		return err
	}

	payment.Date = shared.DateOnly(payment.Date)
	payment.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE payments
		SET date = ?, amount = ?, method = ?, status = ?, description = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		payment.Date, payment.Amount, string(payment.Method), string(payment.Status),
		payment.Description, payment.UpdatedAt, payment.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update payment: %w", err)
	}
	return expectOne(result, "payment", payment.ID)
}

// MarkPaid records a due payment as collected via method.
func (r *PaymentRepository) MarkPaid(ctx context.Context, id string, method models.PaymentMethod) error {
	if !method.Valid() {
		return models.NewValidationError("method", "method must be a valid payment method")
	}

	query := `UPDATE payments SET status = ?, method = ?, updated_at = ? WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query, string(models.PaymentPaid), string(method), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to mark payment paid: %w", err)
	}
	return expectOne(result, "payment", id)
}

// Delete removes a payment
func (r *PaymentRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM payments WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete payment: %w", err)
	}
	return expectOne(result, "payment", id)
}

// List retrieves payments, newest first.
//
// Criteria: "student_id", "status", "method", "search" (student name), "from" (inclusive) and "to" (exclusive).
func (r *PaymentRepository) List(ctx context.Context, criteria models.Criteria) ([]*models.Payment, error) {
	b := r.filter(r.selectJoined(), criteria).OrderBy("p.date DESC", "p.receipt_number DESC")
	return queryAll(ctx, r.db, b, scanPayment)
}

// Page retrieves one page of payments matching criteria.
func (r *PaymentRepository) Page(ctx context.Context, criteria models.Criteria, page models.Page) (*models.PageResult[*models.Payment], error) {
	total, err := r.Count(ctx, criteria)
	if err != nil {
		return nil, err
	}

	b := paged(r.filter(r.selectJoined(), criteria).OrderBy("p.date DESC", "p.receipt_number DESC"), page)
	items, err := queryAll(ctx, r.db, b, scanPayment)
	if err != nil {
		return nil, err
	}
	return models.NewPageResult(items, total, page), nil
}

// Count returns the number of payments matching criteria.
func (r *PaymentRepository) Count(ctx context.Context, criteria models.Criteria) (int, error) {
	b := sq.Select("COUNT(*)").From("payments p").Join("students s ON s.id = p.student_id")
	return countRows(ctx, r.db, r.filter(b, criteria))
}

// Due returns due payments dated on or before the given day, oldest first.
func (r *PaymentRepository) Due(ctx context.Context, before time.Time) ([]*models.Payment, error) {
	b := r.selectJoined().
		Where(squirrel.Eq{"p.status": string(models.PaymentDue)}).
		Where(squirrel.LtOrEq{"p.date": shared.DateOnly(before)}).
		OrderBy("p.date ASC", "p.receipt_number ASC")
	return queryAll(ctx, r.db, b, scanPayment)
}

func (r *PaymentRepository) selectJoined() squirrel.SelectBuilder {
	return sq.Select(paymentColumns...).From("payments p").Join("students s ON s.id = p.student_id")
}

func (r *PaymentRepository) filter(b squirrel.SelectBuilder, c models.Criteria) squirrel.SelectBuilder {
	b = withEq(b, c, map[string]string{
		"student_id": "p.student_id",
		"status":     "p.status",
		"method":     "p.method",
	})
	if term, ok := c.String("search"); ok {
		b = withSearch(b, term, "s.name")
	}
	return withDateRange(b, "p.date", c)
}

func scanPayment(s scanner) (*models.Payment, error) {
	var (
		payment        models.Payment
		method, status string
	)

	err := s.Scan(
		&payment.ID, &payment.ReceiptNumber, &payment.StudentID, &payment.Date, &payment.Amount, &method,
		&status, &payment.Description, &payment.CreatedAt, &payment.UpdatedAt, &payment.StudentName,
	)
	if err != nil {
		return nil, err
	}

	payment.Method = models.PaymentMethod(method)
	payment.Status = models.PaymentStatus(status)
	return &payment, nil
}
