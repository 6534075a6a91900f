package actions

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/encore/internal/models"
)

// PaymentInput records or edits a fee. A zero date means today.
type PaymentInput struct {
	StudentID   string               `form:"student_id"`
	Date        time.Time            `form:"date"`
	Amount      float64              `form:"amount"`
	Method      models.PaymentMethod `form:"method"`
	Status      models.PaymentStatus `form:"status"`
	Description string               `form:"description"`
}

// RecordPayment records a fee as due or paid and assigns its receipt number.
func (a *Actions) RecordPayment(ctx context.Context, in PaymentInput) models.Result {
	date := in.Date
	if date.IsZero() {
		date = a.today()
	}

	payment := models.NewPayment(in.StudentID, date, in.Amount, in.Method, in.Status)
	payment.Description = strings.TrimSpace(in.Description)

	if err := a.payments.Create(ctx, payment); err != nil {
		return a.fail("record payment", err, "Could not record the payment.")
	}

	a.metrics.RecordPayment(string(payment.Status))
	a.logger.Info("payment recorded", "id", payment.ID, "receipt", payment.ReceiptNumber,
		"student", payment.StudentID, "status", payment.Status)

	result := models.Success(fmt.Sprintf("Receipt #%d recorded.", payment.ReceiptNumber), payment.ID)
	result.Data = payment
	return result
}

// MarkPaymentPaid settles a due fee. An empty method keeps the method the fee was recorded with.
func (a *Actions) MarkPaymentPaid(ctx context.Context, id string, method models.PaymentMethod) models.Result {
	payment, err := a.payments.Get(ctx, id)
	if err != nil {
		return a.fail("mark payment paid", err, "Could not update the payment.")
	}
	if payment.Paid() {
		return models.Failure(fmt.Sprintf("Receipt #%d is already paid.", payment.ReceiptNumber))
	}

	if method == "" {
		method = payment.Method
	}
	if err := a.payments.MarkPaid(ctx, id, method); err != nil {
		return a.fail("mark payment paid", err, "Could not update the payment.")
	}

	a.metrics.RecordPayment(string(models.PaymentPaid))
	a.logger.Info("payment marked paid", "id", id, "receipt", payment.ReceiptNumber, "method", method)
	return models.Success(fmt.Sprintf("Receipt #%d marked paid.", payment.ReceiptNumber), id)
}

// UpdatePayment saves the edit form for a payment. The student and receipt number never change.
func (a *Actions) UpdatePayment(ctx context.Context, id string, in PaymentInput) models.Result {
	payment, err := a.payments.Get(ctx, id)
	if err != nil {
		return a.fail("update payment", err, "Could not update the payment.")
	}

	if !in.Date.IsZero() {
		payment.Date = in.Date
	}
	payment.Amount = in.Amount
	payment.Method = in.Method
	payment.Status = in.Status
	payment.Description = strings.TrimSpace(in.Description)

	if err := a.payments.Update(ctx, payment); err != nil {
		return a.fail("update payment", err, "Could not update the payment.")
	}

	a.logger.Info("payment updated", "id", id)
	return models.Success(fmt.Sprintf("Receipt #%d updated.", payment.ReceiptNumber), id)
}

// DeletePayment removes a payment.
func (a *Actions) DeletePayment(ctx context.Context, id string) models.Result {
	if err := a.payments.Delete(ctx, id); err != nil {
		return a.fail("delete payment", err, "Could not delete the payment.")
	}

	a.logger.Info("payment deleted", "id", id)
	return models.Success("Payment deleted.", id)
}
