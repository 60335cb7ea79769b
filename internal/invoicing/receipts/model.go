package receipts

import (
	"errors"
	"time"
)

var (
	// ErrReceiptNotFound indicates a missing receipt.
	ErrReceiptNotFound = errors.New("invoicing: receipt not found")
	// ErrReceiptPaid indicates a mutation against an already settled receipt.
	ErrReceiptPaid = errors.New("invoicing: receipt already paid")
	// ErrNoInstallments indicates a schedule request without installments.
	ErrNoInstallments = errors.New("invoicing: at least one installment required")
)

// Receipt is one installment of an invoice's payment schedule.
type Receipt struct {
	ID          int64
	InvoiceCode string
	Sequence    int
	Amount      float64
	DueDate     time.Time
	Paid        bool
	PaidDate    *time.Time
	Method      string
	BankAccount string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Payment event kinds recorded in payment_history.
const (
	EventCreated = "created"
	EventPaid    = "paid"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// PaymentEvent is an immutable history record of what happened to a receipt.
// History survives regeneration of the schedule but not invoice deletion.
type PaymentEvent struct {
	ID          int64
	ReceiptID   int64
	InvoiceCode string
	Amount      float64
	Event       string
	OccurredAt  time.Time
}
