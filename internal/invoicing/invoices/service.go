package invoices

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-erp/meridian-erp/internal/ledger/fiscalyears"
	"github.com/meridian-erp/meridian-erp/internal/ledger/journals"
	ledgershared "github.com/meridian-erp/meridian-erp/internal/ledger/shared"
	internalShared "github.com/meridian-erp/meridian-erp/internal/shared"
)

// LedgerPort is the slice of the journal service invoicing needs. Posting and
// cascade deletion of accounting entries go through it; invoicing never
// touches ledger tables directly.
type LedgerPort interface {
	Create(ctx context.Context, input journals.CreateInput) (journals.JournalEntry, error)
	Get(ctx context.Context, id int64) (journals.JournalEntry, error)
	Delete(ctx context.Context, entryID int64) error
}

// YearPort resolves fiscal years for invoice dates.
type YearPort interface {
	Get(ctx context.Context, code string) (fiscalyears.FiscalYear, error)
	EnsureForDate(ctx context.Context, date time.Time, allowCreate bool) (fiscalyears.FiscalYear, error)
}

// LockPort reports whether a date falls inside a settled tax range.
type LockPort interface {
	IsLocked(ctx context.Context, yearCode string, date time.Time) (bool, error)
}

// ReceiptPort regenerates the payment schedule after an invoice is saved.
type ReceiptPort interface {
	GenerateForInvoice(ctx context.Context, invoiceCode string, total float64, due time.Time, installments int) error
}

// AuditPort records invoicing events for compliance.
type AuditPort interface {
	Record(ctx context.Context, log internalShared.AuditLog) error
}

// PostingAccounts names the sub-accounts an invoice posts against. The party
// account carries the receivable or payable, the counterpart the revenue or
// expense, the tax account the VAT side, and the withholding account the
// retained amount when the invoice carries one.
type PostingAccounts struct {
	Party       string
	Counterpart string
	Tax         string
	Withholding string
}

// Service coordinates invoice lifecycle: creation, ledger posting, cross-year
// date moves, cascade deletion and integrity auditing.
type Service struct {
	repo     Repository
	ledger   LedgerPort
	years    YearPort
	locks    LockPort
	receipts ReceiptPort
	audit    AuditPort
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs the invoice service. receipts may be nil when no
// payment schedule should be maintained.
func NewService(repo Repository, ledger LedgerPort, years YearPort, locks LockPort, receipts ReceiptPort, audit AuditPort, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		ledger:   ledger,
		years:    years,
		locks:    locks,
		receipts: receipts,
		audit:    audit,
		logger:   logger,
		now:      time.Now,
	}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// WithReceipts attaches the receipt port after construction. The receipt
// service itself depends on invoices, so the cycle closes here at wiring time.
func (s *Service) WithReceipts(port ReceiptPort) *Service {
	s.receipts = port
	return s
}

// Get returns one invoice with its lines.
func (s *Service) Get(ctx context.Context, code string) (Invoice, error) {
	return s.repo.Get(ctx, code)
}

// List returns invoices matching the filter, newest first.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Invoice, error) {
	return s.repo.List(ctx, filter)
}

// GetTotal returns the header total of an invoice.
func (s *Service) GetTotal(ctx context.Context, code string) (float64, error) {
	inv, err := s.repo.Get(ctx, code)
	if err != nil {
		return 0, err
	}
	return inv.Total, nil
}

// SetPaid updates the header paid flag from the receipt schedule.
func (s *Service) SetPaid(ctx context.Context, code string, paid bool) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.SetPaid(ctx, code, paid)
	})
}

// invoiceCode derives the stable document code from the numbering triple.
func invoiceCode(kind Kind, yearCode, series string, number int64) string {
	prefix := "FC"
	if kind == KindSupplier {
		prefix = "FP"
	}
	return fmt.Sprintf("%s-%s-%s%06d", prefix, yearCode, series, number)
}

// Create persists a new invoice. The fiscal year is resolved from the date,
// created on demand when none covers it, and the number is the next in the
// year and series sequence. Receipts are regenerated after commit.
func (s *Service) Create(ctx context.Context, input CreateInput) (Invoice, error) {
	totals, err := input.Validate()
	if err != nil {
		return Invoice{}, err
	}

	year, err := s.years.EnsureForDate(ctx, input.Date, true)
	if err != nil {
		return Invoice{}, err
	}
	if !year.IsOpen() {
		return Invoice{}, ledgershared.ErrYearClosed
	}
	if locked, err := s.locks.IsLocked(ctx, year.Code, input.Date); err != nil {
		return Invoice{}, err
	} else if locked {
		return Invoice{}, ledgershared.ErrPeriodLocked
	}

	sourceID := input.SourceID
	if sourceID == uuid.Nil {
		sourceID = uuid.New()
	}

	var inv Invoice
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		number, err := tx.NextNumber(ctx, input.Kind, year.Code, input.Series)
		if err != nil {
			return err
		}
		inv = Invoice{
			Kind:           input.Kind,
			Code:           invoiceCode(input.Kind, year.Code, input.Series, number),
			FiscalYearCode: year.Code,
			Series:         input.Series,
			Number:         number,
			PartyID:        input.PartyID,
			AgentID:        input.AgentID,
			Date:           input.Date,
			Net:            totals.Net,
			Tax:            totals.Tax,
			Withholding:    totals.Withholding,
			Surcharge:      totals.Surcharge,
			Total:          totals.Total,
			Observations:   input.Observations,
			SourceID:       sourceID,
		}
		if err := tx.Insert(ctx, &inv); err != nil {
			return err
		}
		for i := range input.Lines {
			l := input.Lines[i]
			line := InvoiceLine{
				InvoiceID:      inv.ID,
				ProductRef:     l.ProductRef,
				Description:    l.Description,
				Quantity:       l.Quantity,
				UnitPrice:      l.UnitPrice,
				DiscountPct:    l.DiscountPct,
				TaxPct:         l.TaxPct,
				SurchargePct:   l.SurchargePct,
				WithholdingPct: l.WithholdingPct,
			}
			if err := tx.InsertLine(ctx, &line); err != nil {
				return err
			}
			inv.Lines = append(inv.Lines, line)
		}
		return nil
	})
	if err != nil {
		return Invoice{}, err
	}

	if s.receipts != nil {
		if err := s.receipts.GenerateForInvoice(ctx, inv.Code, inv.Total, inv.Date, 1); err != nil {
			s.logger.Warn("receipt generation failed", "invoice", inv.Code, "error", err)
		}
	}
	s.recordAudit(ctx, "invoice.create", inv.Code)
	return inv, nil
}

// Post generates the accounting entry for an unposted invoice. Customer
// invoices debit the party for the total and withholding and credit revenue
// and tax; supplier invoices mirror the directions.
func (s *Service) Post(ctx context.Context, code string, accounts PostingAccounts) (Invoice, error) {
	inv, err := s.repo.Get(ctx, code)
	if err != nil {
		return Invoice{}, err
	}
	if inv.Void {
		return Invoice{}, ErrInvoiceVoid
	}
	if inv.EntryID != nil {
		return Invoice{}, ErrAlreadyPosted
	}

	docType := journals.DocTypeCustomerInvoice
	if inv.Kind == KindSupplier {
		docType = journals.DocTypeSupplierInvoice
	}
	lines := postingLines(inv, accounts)
	entry, err := s.ledger.Create(ctx, journals.CreateInput{
		FiscalYearCode: inv.FiscalYearCode,
		Date:           inv.Date,
		Concept:        fmt.Sprintf("Invoice %s", inv.Code),
		DocType:        docType,
		DocCode:        inv.Code,
		SourceID:       inv.SourceID,
		Lines:          lines,
	})
	if err != nil {
		return Invoice{}, err
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdateEntryRefs(ctx, inv.Code, &entry.ID, inv.PaymentEntryID)
	})
	if err != nil {
		return Invoice{}, err
	}
	inv.EntryID = &entry.ID
	s.recordAudit(ctx, "invoice.post", inv.Code)
	return inv, nil
}

// postingLines builds the balanced line set for an invoice. Withholding gets
// its own line so the party line carries the collectible total.
func postingLines(inv Invoice, accounts PostingAccounts) []journals.LineInput {
	var lines []journals.LineInput
	add := func(subAccount string, debit, credit float64) {
		if subAccount == "" || (debit == 0 && credit == 0) {
			return
		}
		lines = append(lines, journals.LineInput{
			SubAccountCode: subAccount,
			Debit:          ledgershared.Round(debit),
			Credit:         ledgershared.Round(credit),
			DocCode:        inv.Code,
		})
	}
	if inv.Kind == KindCustomer {
		add(accounts.Party, inv.Total, 0)
		add(accounts.Withholding, inv.Withholding, 0)
		add(accounts.Counterpart, 0, inv.Net+inv.Surcharge)
		add(accounts.Tax, 0, inv.Tax)
	} else {
		add(accounts.Party, 0, inv.Total)
		add(accounts.Withholding, 0, inv.Withholding)
		add(accounts.Counterpart, inv.Net+inv.Surcharge, 0)
		add(accounts.Tax, inv.Tax, 0)
	}
	return lines
}

// ChangeDate moves an invoice to a new date. When the new date falls in a
// different fiscal year the invoice is renumbered in the destination year and
// its code and document references follow. Both the old and new positions
// must be mutable.
func (s *Service) ChangeDate(ctx context.Context, code string, newDate time.Time) (Invoice, error) {
	inv, err := s.repo.Get(ctx, code)
	if err != nil {
		return Invoice{}, err
	}
	if inv.Void {
		return Invoice{}, ErrInvoiceVoid
	}

	oldYear, err := s.years.Get(ctx, inv.FiscalYearCode)
	if err != nil {
		return Invoice{}, err
	}
	if !oldYear.IsOpen() {
		return Invoice{}, ledgershared.ErrYearClosed
	}
	if locked, err := s.locks.IsLocked(ctx, oldYear.Code, inv.Date); err != nil {
		return Invoice{}, err
	} else if locked {
		return Invoice{}, ledgershared.ErrPeriodLocked
	}

	newYear, err := s.years.EnsureForDate(ctx, newDate, true)
	if err != nil {
		return Invoice{}, err
	}
	if !newYear.IsOpen() {
		return Invoice{}, ledgershared.ErrYearClosed
	}
	if locked, err := s.locks.IsLocked(ctx, newYear.Code, newDate); err != nil {
		return Invoice{}, err
	} else if locked {
		return Invoice{}, ledgershared.ErrPeriodLocked
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if newYear.Code == inv.FiscalYearCode {
			return tx.UpdateHeaderFiscal(ctx, inv.Code, inv.FiscalYearCode, inv.Number, inv.Code, newDate)
		}
		number, err := tx.NextNumber(ctx, inv.Kind, newYear.Code, inv.Series)
		if err != nil {
			return err
		}
		newCode := invoiceCode(inv.Kind, newYear.Code, inv.Series, number)
		if err := tx.UpdateHeaderFiscal(ctx, inv.Code, newYear.Code, number, newCode, newDate); err != nil {
			return err
		}
		if err := tx.MoveRefs(ctx, inv.Code, newCode); err != nil {
			return err
		}
		inv.Code = newCode
		inv.FiscalYearCode = newYear.Code
		inv.Number = number
		return nil
	})
	if err != nil {
		return Invoice{}, err
	}
	inv.Date = newDate
	s.recordAudit(ctx, "invoice.change_date", inv.Code)
	return inv, nil
}

// Delete removes an invoice and everything hanging off it: delivery notes are
// returned to pending, receipts and payment history are dropped, then the
// invoice row itself. Ledger entry deletion is delegated to the journal
// service after the document cascade commits; its own gates apply there.
func (s *Service) Delete(ctx context.Context, code string) error {
	inv, err := s.repo.Get(ctx, code)
	if err != nil {
		return err
	}

	year, err := s.years.Get(ctx, inv.FiscalYearCode)
	if err != nil {
		return err
	}
	if !year.IsOpen() {
		return ledgershared.ErrYearClosed
	}
	if locked, err := s.locks.IsLocked(ctx, year.Code, inv.Date); err != nil {
		return err
	} else if locked {
		return ledgershared.ErrPeriodLocked
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.UnlinkDeliveryNotes(ctx, inv.Code); err != nil {
			return err
		}
		if err := tx.DeleteReceipts(ctx, inv.Code); err != nil {
			return err
		}
		if err := tx.DeleteLines(ctx, inv.Code); err != nil {
			return err
		}
		return tx.Delete(ctx, inv.Code)
	})
	if err != nil {
		return err
	}

	for _, entryID := range []*int64{inv.EntryID, inv.PaymentEntryID} {
		if entryID == nil {
			continue
		}
		if err := s.ledger.Delete(ctx, *entryID); err != nil {
			s.logger.Warn("orphaned journal entry after invoice delete",
				"invoice", inv.Code, "entry_id", *entryID, "error", err)
		}
	}
	s.recordAudit(ctx, "invoice.delete", code)
	return nil
}

// Audit runs the integrity checks over one invoice and returns the findings.
// Dangling entry references are the only finding corrected in place.
func (s *Service) Audit(ctx context.Context, code string) ([]Issue, error) {
	inv, err := s.repo.Get(ctx, code)
	if err != nil {
		return nil, err
	}

	var issues []Issue
	issues = append(issues, s.checkTotals(inv)...)

	entryIssues, err := s.checkEntries(ctx, &inv)
	if err != nil {
		return nil, err
	}
	issues = append(issues, entryIssues...)

	dupIssues, err := s.checkDuplicates(ctx, inv)
	if err != nil {
		return nil, err
	}
	issues = append(issues, dupIssues...)

	return issues, nil
}

// checkTotals recomputes header amounts from the lines and compares each
// component within the money tolerance.
func (s *Service) checkTotals(inv Invoice) []Issue {
	lineInputs := make([]LineInput, 0, len(inv.Lines))
	for _, l := range inv.Lines {
		lineInputs = append(lineInputs, LineInput{
			Quantity:       l.Quantity,
			UnitPrice:      l.UnitPrice,
			DiscountPct:    l.DiscountPct,
			TaxPct:         l.TaxPct,
			SurchargePct:   l.SurchargePct,
			WithholdingPct: l.WithholdingPct,
		})
	}
	computed := ComputeTotals(lineInputs)

	var issues []Issue
	compare := func(name string, stored, derived float64) {
		if !ledgershared.WithinTolerance(stored-derived, ledgershared.Tolerance) {
			issues = append(issues, Issue{
				Kind:    IssueTotalsMismatch,
				Message: fmt.Sprintf("%s %.2f disagrees with line-derived %.2f", name, stored, derived),
				Context: map[string]any{"field": name, "stored": stored, "derived": derived},
			})
		}
	}
	compare("net", inv.Net, computed.Net)
	compare("tax", inv.Tax, computed.Tax)
	compare("withholding", inv.Withholding, computed.Withholding)
	compare("surcharge", inv.Surcharge, computed.Surcharge)
	compare("total", inv.Total, computed.Total)
	return issues
}

// entryMatchTolerance allows a cent of drift on each side of a posting.
const entryMatchTolerance = 0.02

// checkEntries verifies the referenced journal entries exist and carry the
// invoice amount. A missing entry is a stale pointer left by an out-of-band
// ledger deletion; the reference is cleared and reported.
func (s *Service) checkEntries(ctx context.Context, inv *Invoice) ([]Issue, error) {
	var issues []Issue
	cleared := false

	if inv.EntryID != nil {
		entry, err := s.ledger.Get(ctx, *inv.EntryID)
		switch {
		case errors.Is(err, ledgershared.ErrEntryNotFound):
			issues = append(issues, Issue{
				Kind:    IssueDanglingEntry,
				Message: fmt.Sprintf("posting entry %d no longer exists; reference cleared", *inv.EntryID),
				Context: map[string]any{"entry_id": *inv.EntryID},
			})
			inv.EntryID = nil
			cleared = true
		case err != nil:
			return nil, err
		default:
			if entry.DocCode != "" && entry.DocCode != inv.Code {
				issues = append(issues, Issue{
					Kind:    IssueEntryMismatch,
					Message: fmt.Sprintf("entry %d references document %s, not %s", entry.ID, entry.DocCode, inv.Code),
					Context: map[string]any{"entry_id": entry.ID, "doc_code": entry.DocCode},
				})
			}
			// Withholding is retained at source, so the entry amount may
			// legitimately exceed the collectible total by that amount.
			diff := entry.Amount - inv.Total
			withheld := entry.Amount - (inv.Total + inv.Withholding)
			if !ledgershared.WithinTolerance(diff, entryMatchTolerance) &&
				!ledgershared.WithinTolerance(withheld, entryMatchTolerance) {
				issues = append(issues, Issue{
					Kind:    IssueEntryMismatch,
					Message: fmt.Sprintf("entry %d amount %.2f does not match invoice total %.2f", entry.ID, entry.Amount, inv.Total),
					Context: map[string]any{"entry_id": entry.ID, "entry_amount": entry.Amount, "invoice_total": inv.Total},
				})
			}
		}
	}

	if inv.PaymentEntryID != nil {
		_, err := s.ledger.Get(ctx, *inv.PaymentEntryID)
		switch {
		case errors.Is(err, ledgershared.ErrEntryNotFound):
			issues = append(issues, Issue{
				Kind:    IssueDanglingEntry,
				Message: fmt.Sprintf("payment entry %d no longer exists; reference cleared", *inv.PaymentEntryID),
				Context: map[string]any{"entry_id": *inv.PaymentEntryID},
			})
			inv.PaymentEntryID = nil
			cleared = true
		case err != nil:
			return nil, err
		}
	}

	if cleared {
		err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			return tx.UpdateEntryRefs(ctx, inv.Code, inv.EntryID, inv.PaymentEntryID)
		})
		if err != nil {
			return nil, err
		}
	}
	return issues, nil
}

// checkDuplicates flags invoices whose header and line references both match.
// Header-only matches are common enough (monthly fees) that they stay silent.
func (s *Service) checkDuplicates(ctx context.Context, inv Invoice) ([]Issue, error) {
	candidates, err := s.repo.FindDuplicateCandidates(ctx, inv)
	if err != nil {
		return nil, err
	}
	var issues []Issue
	for _, cand := range candidates {
		full, err := s.repo.Get(ctx, cand.Code)
		if err != nil {
			return nil, err
		}
		if sameLineRefs(inv.Lines, full.Lines) {
			issues = append(issues, Issue{
				Kind:    IssueDuplicateSuspect,
				Message: fmt.Sprintf("invoice %s matches header and lines", full.Code),
				Context: map[string]any{"candidate": full.Code},
			})
		}
	}
	return issues, nil
}

func sameLineRefs(a, b []InvoiceLine) bool {
	if len(a) != len(b) {
		return false
	}
	key := func(l InvoiceLine) string {
		ref := ""
		if l.ProductRef != nil {
			ref = *l.ProductRef
		}
		return fmt.Sprintf("%s|%.4f|%.4f", ref, l.Quantity, l.UnitPrice)
	}
	seen := make(map[string]int, len(a))
	for _, l := range a {
		seen[key(l)]++
	}
	for _, l := range b {
		seen[key(l)]--
		if seen[key(l)] < 0 {
			return false
		}
	}
	return true
}

func (s *Service) recordAudit(ctx context.Context, action, code string) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, internalShared.AuditLog{
		Action:   action,
		Entity:   "invoice",
		EntityID: code,
	}); err != nil {
		s.logger.Warn("audit record failed", "action", action, "invoice", code, "error", err)
	}
}
