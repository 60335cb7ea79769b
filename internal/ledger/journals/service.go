package journals

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-erp/meridian-erp/internal/ledger/shared"
	internalShared "github.com/meridian-erp/meridian-erp/internal/shared"
)

// AuditPort records ledger events for compliance.
type AuditPort interface {
	Record(ctx context.Context, log internalShared.AuditLog) error
}

// renumberPageSize bounds memory while rewalking a fiscal year's entries.
// Each page commits independently; a crash mid-renumber leaves earlier pages
// applied, which the next run converges.
const renumberPageSize = 1000

// Service coordinates creation, repair, deletion and renumbering of journal
// entries.
type Service struct {
	repo  Repository
	audit AuditPort
	now   func() time.Time
}

// NewService constructs the journal service.
func NewService(repo Repository, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Get returns one entry with its lines.
func (s *Service) Get(ctx context.Context, id int64) (JournalEntry, error) {
	entry, lines, err := s.repo.Get(ctx, id)
	if err != nil {
		return JournalEntry{}, err
	}
	entry.Lines = lines
	return entry, nil
}

// List returns entries matching the filter, newest first.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]JournalEntry, error) {
	return s.repo.List(ctx, filter)
}

// Create validates and persists a new journal entry. The number is assigned
// inside the transaction: first integer gap starting from 1, or max+1 when
// the sequence is dense. Every line insert recomputes its sub-account.
func (s *Service) Create(ctx context.Context, input CreateInput) (JournalEntry, error) {
	if err := input.Validate(); err != nil {
		return JournalEntry{}, err
	}
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		year, err := tx.GetFiscalYearForUpdate(ctx, input.FiscalYearCode)
		if err != nil {
			return err
		}
		if !year.IsOpen() {
			return shared.ErrYearClosed
		}
		if !year.Contains(input.Date) {
			return shared.ErrDateOutOfRange
		}
		if !input.Override {
			period, err := tx.RegularizationAt(ctx, year.Code, input.Date)
			if err != nil {
				return err
			}
			if period != nil {
				return shared.ErrPeriodLocked
			}
		}
		numbers, err := tx.NumbersForYear(ctx, year.Code)
		if err != nil {
			return err
		}
		number := firstGap(numbers)

		var debit, credit float64
		for _, line := range input.Lines {
			debit += line.Debit
			credit += line.Credit
		}
		inserted, err := tx.InsertEntry(ctx, JournalEntry{
			Number:         number,
			FiscalYearCode: year.Code,
			Date:           input.Date,
			Concept:        input.Concept,
			Editable:       true,
			DocType:        input.DocType,
			DocCode:        input.DocCode,
			SourceID:       input.SourceID,
			Amount:         entryAmount(debit, credit),
		})
		if err != nil {
			return err
		}
		for _, li := range input.Lines {
			sub, err := tx.GetSubAccountByCode(ctx, year.Code, li.SubAccountCode)
			if err != nil {
				return err
			}
			line, err := tx.InsertLine(ctx, LedgerLine{
				EntryID:           inserted.ID,
				SubAccountID:      sub.ID,
				SubAccountCode:    sub.Code,
				CounterSubAccount: li.CounterSubAccount,
				Debit:             li.Debit,
				Credit:            li.Credit,
				Currency:          li.Currency,
				ConversionRate:    li.ConversionRate,
				DocType:           li.DocType,
				DocCode:           li.DocCode,
				TaxID:             li.TaxID,
			})
			if err != nil {
				return err
			}
			if err := tx.RecomputeSubAccount(ctx, sub.ID); err != nil {
				return err
			}
			inserted.Lines = append(inserted.Lines, line)
		}
		if input.SourceID != uuid.Nil {
			if err := tx.LinkSource(ctx, input.DocType, input.SourceID, inserted.ID); err != nil {
				if errors.Is(err, shared.ErrSourceConflict) {
					return shared.ErrSourceAlreadyLinked
				}
				return err
			}
		}
		// Filling a gap must not pull the sequence below the highest
		// existing number.
		next := number + 1
		if len(numbers) > 0 {
			if last := numbers[len(numbers)-1]; last >= number {
				next = last + 1
			}
		}
		if err := tx.UpsertSequence(ctx, year.Code, next); err != nil {
			return err
		}
		entry = inserted
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, internalShared.AuditLog{
			Action:   "journal.create",
			Entity:   "journal_entry",
			EntityID: fmt.Sprintf("%d", entry.ID),
			Meta: map[string]any{
				"number":      entry.Number,
				"fiscal_year": entry.FiscalYearCode,
				"doc_code":    entry.DocCode,
			},
			At: s.now(),
		})
	}
	return entry, nil
}

// CheckBalance recomputes the debit and credit sums of an entry's lines and
// reports whether they agree at the ledger precision.
func (s *Service) CheckBalance(ctx context.Context, entryID int64) (debit, credit float64, balanced bool, err error) {
	_, lines, err := s.repo.Get(ctx, entryID)
	if err != nil {
		return 0, 0, false, err
	}
	debit, credit = lineSums(lines)
	return debit, credit, shared.Balanced(debit, credit), nil
}

// Fix is the best-effort repair pass for an unbalanced entry: round the lines
// to two decimals when the residual is within tolerance, then absorb whatever
// remains into the first line's non-zero side. Changed lines and the entry's
// recomputed amount persist only when the result balances; otherwise nothing
// is written and ErrUnbalanced is returned.
func (s *Service) Fix(ctx context.Context, entryID int64) (JournalEntry, error) {
	var fixed JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		entry, lines, err := tx.GetEntryWithLines(ctx, entryID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return shared.ErrNoLines
		}
		debit, credit := lineSums(lines)
		changed := make([]bool, len(lines))

		residual := debit - credit
		if math.Abs(residual) > 1e-9 && shared.WithinTolerance(residual, shared.Tolerance) {
			for i := range lines {
				rd, rc := shared.Round(lines[i].Debit), shared.Round(lines[i].Credit)
				if rd != lines[i].Debit || rc != lines[i].Credit {
					lines[i].Debit, lines[i].Credit = rd, rc
					changed[i] = true
				}
			}
			debit, credit = lineSums(lines)
			residual = debit - credit
		}
		if math.Abs(residual) > 1e-9 {
			first := &lines[0]
			switch {
			case first.Debit != 0:
				first.Debit = shared.Round(first.Debit - residual)
			case first.Credit != 0:
				first.Credit = shared.Round(first.Credit + residual)
			default:
				return shared.ErrUnbalanced
			}
			changed[0] = true
			debit, credit = lineSums(lines)
		}
		if !shared.Balanced(debit, credit) {
			return shared.ErrUnbalanced
		}
		for i := range lines {
			if !changed[i] {
				continue
			}
			if err := tx.UpdateLineAmounts(ctx, lines[i].ID, lines[i].Debit, lines[i].Credit); err != nil {
				return err
			}
			if err := tx.RecomputeSubAccount(ctx, lines[i].SubAccountID); err != nil {
				return err
			}
		}
		amount := entryAmount(debit, credit)
		if amount != entry.Amount {
			if err := tx.UpdateEntryAmount(ctx, entry.ID, amount); err != nil {
				return err
			}
			entry.Amount = amount
		}
		entry.Lines = lines
		fixed = entry
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, internalShared.AuditLog{
			Action:   "journal.fix",
			Entity:   "journal_entry",
			EntityID: fmt.Sprintf("%d", fixed.ID),
			Meta:     map[string]any{"amount": fixed.Amount},
			At:       s.now(),
		})
	}
	return fixed, nil
}

// Delete removes an entry and its lines. Lines go one by one so every
// deletion recomputes its sub-account inside the same transaction. Refused
// when the date sits inside a regularization period or the year is closed,
// unless the entry is the year's designated opening/closing/P&L entry.
func (s *Service) Delete(ctx context.Context, entryID int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		entry, lines, err := tx.GetEntryWithLines(ctx, entryID)
		if err != nil {
			return err
		}
		year, err := tx.GetFiscalYearForUpdate(ctx, entry.FiscalYearCode)
		if err != nil {
			return err
		}
		if !year.IsSystemEntry(entry.ID) {
			if !year.IsOpen() {
				return shared.ErrYearClosed
			}
			period, err := tx.RegularizationAt(ctx, year.Code, entry.Date)
			if err != nil {
				return err
			}
			if period != nil {
				return shared.ErrPeriodLocked
			}
		}
		if err := tx.UnlinkInvoiceEntry(ctx, entry.ID); err != nil {
			return err
		}
		for _, line := range lines {
			if err := tx.DeleteLine(ctx, line.ID); err != nil {
				return err
			}
			if err := tx.RecomputeSubAccount(ctx, line.SubAccountID); err != nil {
				return err
			}
		}
		return tx.DeleteEntry(ctx, entry.ID)
	})
	if err != nil {
		return err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, internalShared.AuditLog{
			Action:   "journal.delete",
			Entity:   "journal_entry",
			EntityID: fmt.Sprintf("%d", entryID),
			At:       s.now(),
		})
	}
	return nil
}

// Renumber rewalks an open fiscal year's entries ordered by (date, id) and
// reassigns numbers 1..N, persisting only rows whose number changed. Pages
// commit independently: a failed batch aborts this year without rolling back
// batches already committed.
func (s *Service) Renumber(ctx context.Context, yearCode string) error {
	var next int64 = 1
	for offset := 0; ; offset += renumberPageSize {
		var page []EntryRef
		err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			if offset == 0 {
				year, err := tx.GetFiscalYearForUpdate(ctx, yearCode)
				if err != nil {
					return err
				}
				if !year.IsOpen() {
					return shared.ErrYearClosed
				}
			}
			var err error
			page, err = tx.PageForRenumber(ctx, yearCode, offset, renumberPageSize)
			if err != nil {
				return err
			}
			for _, ref := range page {
				if ref.Number != next {
					if err := tx.UpdateEntryNumber(ctx, ref.ID, next); err != nil {
						return err
					}
				}
				next++
			}
			if len(page) < renumberPageSize {
				return tx.UpsertSequence(ctx, yearCode, next)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("ledger: renumber year %s: %w", yearCode, err)
		}
		if len(page) < renumberPageSize {
			return nil
		}
	}
}

// RenumberAll renumbers each given year, collecting failures instead of
// stopping at the first one.
func (s *Service) RenumberAll(ctx context.Context, yearCodes []string) error {
	var errs []error
	for _, code := range yearCodes {
		if err := s.Renumber(ctx, code); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func lineSums(lines []LedgerLine) (debit, credit float64) {
	for _, line := range lines {
		debit += line.Debit
		credit += line.Credit
	}
	return debit, credit
}

func entryAmount(debit, credit float64) float64 {
	return shared.Round(math.Max(math.Abs(debit), math.Abs(credit)))
}

// firstGap returns the first unused number starting from 1 given the existing
// numbers in ascending order, falling back to max+1 for a dense sequence.
func firstGap(numbers []int64) int64 {
	var expected int64 = 1
	for _, n := range numbers {
		if n > expected {
			break
		}
		if n == expected {
			expected++
		}
	}
	return expected
}
