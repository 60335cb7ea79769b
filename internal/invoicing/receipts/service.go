package receipts

import (
	"context"
	"log/slog"
	"time"

	ledgershared "github.com/meridian-erp/meridian-erp/internal/ledger/shared"
)

// InvoicePort is the slice of the invoice service receipts needs to keep the
// header paid flag in sync with the schedule.
type InvoicePort interface {
	GetTotal(ctx context.Context, code string) (float64, error)
	SetPaid(ctx context.Context, code string, paid bool) error
}

// defaultIntervalDays spaces installment due dates.
const defaultIntervalDays = 30

// Service maintains the payment schedule of invoices: generation of
// installments, settlement, and the paid-flag aggregate on the header.
type Service struct {
	repo     Repository
	invoices InvoicePort
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs the receipt service. invoices may be nil in tests
// that only exercise scheduling.
func NewService(repo Repository, invoices InvoicePort, logger *slog.Logger) *Service {
	return &Service{repo: repo, invoices: invoices, logger: logger, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Get returns one receipt.
func (s *Service) Get(ctx context.Context, id int64) (Receipt, error) {
	return s.repo.Get(ctx, id)
}

// ListByInvoice returns an invoice's schedule in sequence order.
func (s *Service) ListByInvoice(ctx context.Context, invoiceCode string) ([]Receipt, error) {
	return s.repo.ListByInvoice(ctx, invoiceCode)
}

// History returns the payment events of an invoice oldest first.
func (s *Service) History(ctx context.Context, invoiceCode string) ([]PaymentEvent, error) {
	return s.repo.History(ctx, invoiceCode)
}

// GenerateForInvoice rewrites the unpaid part of an invoice's schedule. Paid
// receipts are kept; the outstanding amount is split evenly across the
// requested installments with the last one absorbing the rounding remainder.
func (s *Service) GenerateForInvoice(ctx context.Context, invoiceCode string, total float64, due time.Time, installments int) error {
	if installments < 1 {
		return ErrNoInstallments
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		existing, err := tx.ListByInvoice(ctx, invoiceCode)
		if err != nil {
			return err
		}
		var paidSum float64
		maxSeq := 0
		for _, rec := range existing {
			if rec.Paid {
				paidSum += rec.Amount
				if rec.Sequence > maxSeq {
					maxSeq = rec.Sequence
				}
			}
		}
		if err := tx.DeleteUnpaidByInvoice(ctx, invoiceCode); err != nil {
			return err
		}

		outstanding := ledgershared.Round(total - paidSum)
		if outstanding <= 0 {
			return nil
		}
		each := ledgershared.Round(outstanding / float64(installments))
		allocated := 0.0
		for i := 0; i < installments; i++ {
			amount := each
			if i == installments-1 {
				amount = ledgershared.Round(outstanding - allocated)
			}
			allocated = ledgershared.Round(allocated + amount)
			rec := Receipt{
				InvoiceCode: invoiceCode,
				Sequence:    maxSeq + i + 1,
				Amount:      amount,
				DueDate:     due.AddDate(0, 0, i*defaultIntervalDays),
			}
			if err := tx.Insert(ctx, &rec); err != nil {
				return err
			}
			if err := tx.RecordEvent(ctx, PaymentEvent{
				ReceiptID:   rec.ID,
				InvoiceCode: invoiceCode,
				Amount:      rec.Amount,
				Event:       EventCreated,
				OccurredAt:  s.now(),
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

// MarkPaid settles one receipt and refreshes the invoice paid flag.
func (s *Service) MarkPaid(ctx context.Context, id int64, when time.Time, method, bankAccount string) (Receipt, error) {
	var rec Receipt
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		rec, err = tx.Get(ctx, id)
		if err != nil {
			return err
		}
		if rec.Paid {
			return ErrReceiptPaid
		}
		rec.Paid = true
		rec.PaidDate = &when
		if method != "" {
			rec.Method = method
		}
		if bankAccount != "" {
			rec.BankAccount = bankAccount
		}
		if err := tx.Update(ctx, rec); err != nil {
			return err
		}
		return tx.RecordEvent(ctx, PaymentEvent{
			ReceiptID:   rec.ID,
			InvoiceCode: rec.InvoiceCode,
			Amount:      rec.Amount,
			Event:       EventPaid,
			OccurredAt:  s.now(),
		})
	})
	if err != nil {
		return Receipt{}, err
	}
	s.refreshInvoice(ctx, rec.InvoiceCode)
	return rec, nil
}

// UpdateInput carries the mutable fields of an unpaid receipt.
type UpdateInput struct {
	Amount      float64
	DueDate     time.Time
	Method      string
	BankAccount string
}

// Update edits an unpaid receipt and refreshes the invoice paid flag, which
// re-checks the schedule sum against the invoice total.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (Receipt, error) {
	var rec Receipt
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		rec, err = tx.Get(ctx, id)
		if err != nil {
			return err
		}
		if rec.Paid {
			return ErrReceiptPaid
		}
		if in.Amount != 0 {
			rec.Amount = ledgershared.Round(in.Amount)
		}
		if !in.DueDate.IsZero() {
			rec.DueDate = in.DueDate
		}
		if in.Method != "" {
			rec.Method = in.Method
		}
		if in.BankAccount != "" {
			rec.BankAccount = in.BankAccount
		}
		if err := tx.Update(ctx, rec); err != nil {
			return err
		}
		return tx.RecordEvent(ctx, PaymentEvent{
			ReceiptID:   rec.ID,
			InvoiceCode: rec.InvoiceCode,
			Amount:      rec.Amount,
			Event:       EventUpdated,
			OccurredAt:  s.now(),
		})
	})
	if err != nil {
		return Receipt{}, err
	}
	s.refreshInvoice(ctx, rec.InvoiceCode)
	return rec, nil
}

// Delete removes one receipt and refreshes the invoice paid flag.
func (s *Service) Delete(ctx context.Context, id int64) error {
	var invoiceCode string
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		rec, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		invoiceCode = rec.InvoiceCode
		if err := tx.Delete(ctx, id); err != nil {
			return err
		}
		return tx.RecordEvent(ctx, PaymentEvent{
			ReceiptID:   rec.ID,
			InvoiceCode: rec.InvoiceCode,
			Amount:      rec.Amount,
			Event:       EventDeleted,
			OccurredAt:  s.now(),
		})
	})
	if err != nil {
		return err
	}
	s.refreshInvoice(ctx, invoiceCode)
	return nil
}

// Refresh recomputes the invoice paid flag from its schedule. An invoice is
// paid when it has at least one receipt and every receipt is settled.
func (s *Service) Refresh(ctx context.Context, invoiceCode string) error {
	if s.invoices == nil {
		return nil
	}
	recs, err := s.repo.ListByInvoice(ctx, invoiceCode)
	if err != nil {
		return err
	}
	paid := len(recs) > 0
	var sum float64
	for _, rec := range recs {
		if !rec.Paid {
			paid = false
		}
		sum = ledgershared.Round(sum + rec.Amount)
	}
	if total, err := s.invoices.GetTotal(ctx, invoiceCode); err == nil {
		if !ledgershared.WithinTolerance(sum-total, ledgershared.Tolerance) {
			s.logger.Warn("receipt schedule does not cover invoice total",
				"invoice", invoiceCode, "scheduled", sum, "total", total)
		}
	}
	return s.invoices.SetPaid(ctx, invoiceCode, paid)
}

func (s *Service) refreshInvoice(ctx context.Context, invoiceCode string) {
	if err := s.Refresh(ctx, invoiceCode); err != nil {
		s.logger.Warn("invoice paid flag refresh failed", "invoice", invoiceCode, "error", err)
	}
}
