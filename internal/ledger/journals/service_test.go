package journals

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/ledger/fiscalyears"
	"github.com/meridian-erp/meridian-erp/internal/ledger/regularizations"
	"github.com/meridian-erp/meridian-erp/internal/ledger/shared"
	"github.com/meridian-erp/meridian-erp/internal/ledger/subaccounts"
	internalShared "github.com/meridian-erp/meridian-erp/internal/shared"
)

type memoryLedgerRepo struct {
	years      map[string]fiscalyears.FiscalYear
	periods    []regularizations.Period
	subs       map[int64]subaccounts.SubAccount
	subIndex   map[string]int64 // yearCode|code -> sub id
	entries    map[int64]JournalEntry
	lines      map[int64]LedgerLine
	sources    map[string]int64
	sequences  map[string]int64
	nextEntry  int64
	nextLine   int64
	nextSub    int64
}

type memoryLedgerTx struct {
	repo *memoryLedgerRepo
}

func newMemoryLedgerRepo() *memoryLedgerRepo {
	return &memoryLedgerRepo{
		years:     make(map[string]fiscalyears.FiscalYear),
		subs:      make(map[int64]subaccounts.SubAccount),
		subIndex:  make(map[string]int64),
		entries:   make(map[int64]JournalEntry),
		lines:     make(map[int64]LedgerLine),
		sources:   make(map[string]int64),
		sequences: make(map[string]int64),
	}
}

func (r *memoryLedgerRepo) addYear(year fiscalyears.FiscalYear) {
	r.years[year.Code] = year
}

func (r *memoryLedgerRepo) addSub(yearCode, code string) int64 {
	r.nextSub++
	sub := subaccounts.SubAccount{ID: r.nextSub, Code: code, FiscalYearCode: yearCode}
	r.subs[sub.ID] = sub
	r.subIndex[yearCode+"|"+code] = sub.ID
	return sub.ID
}

func (r *memoryLedgerRepo) addEntry(yearCode string, number int64, date time.Time, lines ...LedgerLine) int64 {
	r.nextEntry++
	entry := JournalEntry{ID: r.nextEntry, Number: number, FiscalYearCode: yearCode, Date: date, Editable: true}
	var debit, credit float64
	for _, line := range lines {
		r.nextLine++
		line.ID = r.nextLine
		line.EntryID = entry.ID
		r.lines[line.ID] = line
		debit += line.Debit
		credit += line.Credit
	}
	entry.Amount = entryAmount(debit, credit)
	r.entries[entry.ID] = entry
	return entry.ID
}

func (r *memoryLedgerRepo) entryLines(entryID int64) []LedgerLine {
	var out []LedgerLine
	for id := int64(1); id <= r.nextLine; id++ {
		if line, ok := r.lines[id]; ok && line.EntryID == entryID {
			out = append(out, line)
		}
	}
	return out
}

func (r *memoryLedgerRepo) Get(ctx context.Context, id int64) (JournalEntry, []LedgerLine, error) {
	entry, ok := r.entries[id]
	if !ok {
		return JournalEntry{}, nil, shared.ErrEntryNotFound
	}
	return entry, r.entryLines(id), nil
}

func (r *memoryLedgerRepo) List(ctx context.Context, filter ListFilter) ([]JournalEntry, error) {
	var out []JournalEntry
	for id := int64(1); id <= r.nextEntry; id++ {
		entry, ok := r.entries[id]
		if !ok {
			continue
		}
		if filter.FiscalYearCode != "" && entry.FiscalYearCode != filter.FiscalYearCode {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

func (r *memoryLedgerRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryLedgerTx{repo: r})
}

func (t *memoryLedgerTx) GetFiscalYearForUpdate(ctx context.Context, code string) (fiscalyears.FiscalYear, error) {
	year, ok := t.repo.years[code]
	if !ok {
		return fiscalyears.FiscalYear{}, shared.ErrYearNotFound
	}
	return year, nil
}

func (t *memoryLedgerTx) RegularizationAt(ctx context.Context, yearCode string, date time.Time) (*regularizations.Period, error) {
	for i := range t.repo.periods {
		p := t.repo.periods[i]
		if p.FiscalYearCode == yearCode && p.Contains(date) {
			return &p, nil
		}
	}
	return nil, nil
}

func (t *memoryLedgerTx) GetSubAccountByCode(ctx context.Context, yearCode, code string) (subaccounts.SubAccount, error) {
	id, ok := t.repo.subIndex[yearCode+"|"+code]
	if !ok {
		return subaccounts.SubAccount{}, shared.ErrSubAccountNotFound
	}
	return t.repo.subs[id], nil
}

func (t *memoryLedgerTx) NumbersForYear(ctx context.Context, yearCode string) ([]int64, error) {
	var numbers []int64
	for id := int64(1); id <= t.repo.nextEntry; id++ {
		if entry, ok := t.repo.entries[id]; ok && entry.FiscalYearCode == yearCode {
			numbers = append(numbers, entry.Number)
		}
	}
	for i := 0; i < len(numbers); i++ {
		for j := i + 1; j < len(numbers); j++ {
			if numbers[j] < numbers[i] {
				numbers[i], numbers[j] = numbers[j], numbers[i]
			}
		}
	}
	return numbers, nil
}

func (t *memoryLedgerTx) UpsertSequence(ctx context.Context, yearCode string, next int64) error {
	t.repo.sequences[yearCode] = next
	return nil
}

func (t *memoryLedgerTx) InsertEntry(ctx context.Context, entry JournalEntry) (JournalEntry, error) {
	t.repo.nextEntry++
	entry.ID = t.repo.nextEntry
	t.repo.entries[entry.ID] = entry
	return entry, nil
}

func (t *memoryLedgerTx) InsertLine(ctx context.Context, line LedgerLine) (LedgerLine, error) {
	t.repo.nextLine++
	line.ID = t.repo.nextLine
	t.repo.lines[line.ID] = line
	return line, nil
}

func (t *memoryLedgerTx) LinkSource(ctx context.Context, docType string, sourceID uuid.UUID, entryID int64) error {
	key := docType + "|" + sourceID.String()
	if _, exists := t.repo.sources[key]; exists {
		return shared.ErrSourceConflict
	}
	t.repo.sources[key] = entryID
	return nil
}

func (t *memoryLedgerTx) GetEntryWithLines(ctx context.Context, id int64) (JournalEntry, []LedgerLine, error) {
	return t.repo.Get(ctx, id)
}

func (t *memoryLedgerTx) UpdateLineAmounts(ctx context.Context, id int64, debit, credit float64) error {
	line, ok := t.repo.lines[id]
	if !ok {
		return shared.ErrEntryNotFound
	}
	line.Debit, line.Credit = debit, credit
	t.repo.lines[id] = line
	return nil
}

func (t *memoryLedgerTx) UpdateEntryAmount(ctx context.Context, id int64, amount float64) error {
	entry, ok := t.repo.entries[id]
	if !ok {
		return shared.ErrEntryNotFound
	}
	entry.Amount = amount
	t.repo.entries[id] = entry
	return nil
}

func (t *memoryLedgerTx) UpdateEntryNumber(ctx context.Context, id, number int64) error {
	entry, ok := t.repo.entries[id]
	if !ok {
		return shared.ErrEntryNotFound
	}
	entry.Number = number
	t.repo.entries[id] = entry
	return nil
}

func (t *memoryLedgerTx) DeleteLine(ctx context.Context, id int64) error {
	delete(t.repo.lines, id)
	return nil
}

func (t *memoryLedgerTx) DeleteEntry(ctx context.Context, id int64) error {
	if _, ok := t.repo.entries[id]; !ok {
		return shared.ErrEntryNotFound
	}
	delete(t.repo.entries, id)
	return nil
}

func (t *memoryLedgerTx) UnlinkInvoiceEntry(ctx context.Context, entryID int64) error {
	return nil
}

func (t *memoryLedgerTx) RecomputeSubAccount(ctx context.Context, subAccountID int64) error {
	sub, ok := t.repo.subs[subAccountID]
	if !ok {
		return shared.ErrSubAccountNotFound
	}
	sub.Debit, sub.Credit = 0, 0
	for _, line := range t.repo.lines {
		if line.SubAccountID == subAccountID {
			sub.Debit += line.Debit
			sub.Credit += line.Credit
		}
	}
	sub.Balance = sub.Debit - sub.Credit
	t.repo.subs[subAccountID] = sub
	return nil
}

func (t *memoryLedgerTx) PageForRenumber(ctx context.Context, yearCode string, offset, limit int) ([]EntryRef, error) {
	type dated struct {
		ref  EntryRef
		date time.Time
	}
	var all []dated
	for id := int64(1); id <= t.repo.nextEntry; id++ {
		entry, ok := t.repo.entries[id]
		if !ok || entry.FiscalYearCode != yearCode {
			continue
		}
		all = append(all, dated{ref: EntryRef{ID: entry.ID, Number: entry.Number}, date: entry.Date})
	}
	for i := 0; i < len(all); i++ {
		for j := i + 1; j < len(all); j++ {
			if all[j].date.Before(all[i].date) || (all[j].date.Equal(all[i].date) && all[j].ref.ID < all[i].ref.ID) {
				all[i], all[j] = all[j], all[i]
			}
		}
	}
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	var out []EntryRef
	for _, d := range all[offset:end] {
		out = append(out, d.ref)
	}
	return out, nil
}

type recordingAudit struct {
	actions []string
}

func (a *recordingAudit) Record(ctx context.Context, log internalShared.AuditLog) error {
	a.actions = append(a.actions, log.Action)
	return nil
}

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func openYear(code string, y int) fiscalyears.FiscalYear {
	return fiscalyears.FiscalYear{
		Code:      code,
		StartDate: date(y, 1, 1),
		EndDate:   date(y, 12, 31),
		Status:    fiscalyears.YearStatusOpen,
	}
}

func setupLedger(t *testing.T) (*memoryLedgerRepo, *Service) {
	t.Helper()
	repo := newMemoryLedgerRepo()
	repo.addYear(openYear("2024", 2024))
	repo.addSub("2024", "4300000001")
	repo.addSub("2024", "7000000001")
	svc := NewService(repo, &recordingAudit{})
	svc.WithNow(func() time.Time { return date(2024, 6, 1) })
	return repo, svc
}

func createInput(lines ...LineInput) CreateInput {
	return CreateInput{
		FiscalYearCode: "2024",
		Date:           date(2024, 3, 15),
		Concept:        "Sale 2024/A12",
		DocType:        DocTypeCustomerInvoice,
		DocCode:        "FC-2024-A000012",
		Lines:          lines,
	}
}

func TestCreateAssignsFirstGap(t *testing.T) {
	repo, svc := setupLedger(t)
	repo.addEntry("2024", 1, date(2024, 1, 10))
	repo.addEntry("2024", 2, date(2024, 1, 20))
	repo.addEntry("2024", 4, date(2024, 2, 5))

	entry, err := svc.Create(context.Background(), createInput(
		LineInput{SubAccountCode: "4300000001", Debit: 121},
		LineInput{SubAccountCode: "7000000001", Credit: 121},
	))
	require.NoError(t, err)
	require.Equal(t, int64(3), entry.Number)
	// Entry 4 still exists, so the sequence must stay above it.
	require.Equal(t, int64(5), repo.sequences["2024"])
}

func TestCreateDenseSequenceAppends(t *testing.T) {
	repo, svc := setupLedger(t)
	repo.addEntry("2024", 1, date(2024, 1, 10))
	repo.addEntry("2024", 2, date(2024, 1, 20))

	entry, err := svc.Create(context.Background(), createInput(
		LineInput{SubAccountCode: "4300000001", Debit: 50},
		LineInput{SubAccountCode: "7000000001", Credit: 50},
	))
	require.NoError(t, err)
	require.Equal(t, int64(3), entry.Number)
	require.Equal(t, int64(4), repo.sequences["2024"])
}

func TestCreateRecomputesSubAccounts(t *testing.T) {
	repo, svc := setupLedger(t)

	_, err := svc.Create(context.Background(), createInput(
		LineInput{SubAccountCode: "4300000001", Debit: 121},
		LineInput{SubAccountCode: "7000000001", Credit: 121},
	))
	require.NoError(t, err)

	customer := repo.subs[repo.subIndex["2024|4300000001"]]
	require.InDelta(t, 121, customer.Debit, 1e-9)
	require.InDelta(t, 121, customer.Balance, 1e-9)
	revenue := repo.subs[repo.subIndex["2024|7000000001"]]
	require.InDelta(t, 121, revenue.Credit, 1e-9)
	require.InDelta(t, -121, revenue.Balance, 1e-9)
}

func TestCreateRejectsUnbalancedLines(t *testing.T) {
	_, svc := setupLedger(t)
	_, err := svc.Create(context.Background(), createInput(
		LineInput{SubAccountCode: "4300000001", Debit: 100},
		LineInput{SubAccountCode: "7000000001", Credit: 99.99},
	))
	require.ErrorIs(t, err, shared.ErrUnbalanced)
}

func TestCreateRejectsDebitAndCreditOnSameLine(t *testing.T) {
	_, svc := setupLedger(t)
	_, err := svc.Create(context.Background(), createInput(
		LineInput{SubAccountCode: "4300000001", Debit: 100, Credit: 100},
	))
	require.ErrorIs(t, err, shared.ErrLineConflict)
}

func TestCreateRejectsClosedYear(t *testing.T) {
	repo, svc := setupLedger(t)
	year := repo.years["2024"]
	year.Status = fiscalyears.YearStatusClosed
	repo.addYear(year)

	_, err := svc.Create(context.Background(), createInput(
		LineInput{SubAccountCode: "4300000001", Debit: 10},
		LineInput{SubAccountCode: "7000000001", Credit: 10},
	))
	require.ErrorIs(t, err, shared.ErrYearClosed)
}

func TestCreateRejectsDateOutsideYear(t *testing.T) {
	_, svc := setupLedger(t)
	input := createInput(
		LineInput{SubAccountCode: "4300000001", Debit: 10},
		LineInput{SubAccountCode: "7000000001", Credit: 10},
	)
	input.Date = date(2025, 1, 1)
	_, err := svc.Create(context.Background(), input)
	require.ErrorIs(t, err, shared.ErrDateOutOfRange)
}

func TestCreateRejectsLockedPeriod(t *testing.T) {
	repo, svc := setupLedger(t)
	repo.periods = append(repo.periods, regularizations.Period{
		FiscalYearCode: "2024",
		PeriodCode:     "1T",
		StartDate:      date(2024, 1, 1),
		EndDate:        date(2024, 3, 31),
	})

	_, err := svc.Create(context.Background(), createInput(
		LineInput{SubAccountCode: "4300000001", Debit: 10},
		LineInput{SubAccountCode: "7000000001", Credit: 10},
	))
	require.ErrorIs(t, err, shared.ErrPeriodLocked)
}

func TestCreateOverrideBypassesLockedPeriod(t *testing.T) {
	repo, svc := setupLedger(t)
	repo.periods = append(repo.periods, regularizations.Period{
		FiscalYearCode: "2024",
		PeriodCode:     "1T",
		StartDate:      date(2024, 1, 1),
		EndDate:        date(2024, 3, 31),
	})

	input := createInput(
		LineInput{SubAccountCode: "4300000001", Debit: 10},
		LineInput{SubAccountCode: "7000000001", Credit: 10},
	)
	input.Override = true
	_, err := svc.Create(context.Background(), input)
	require.NoError(t, err)
}

func TestCreateRejectsDuplicateSource(t *testing.T) {
	_, svc := setupLedger(t)
	sourceID := uuid.New()

	input := createInput(
		LineInput{SubAccountCode: "4300000001", Debit: 10},
		LineInput{SubAccountCode: "7000000001", Credit: 10},
	)
	input.SourceID = sourceID
	_, err := svc.Create(context.Background(), input)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), input)
	require.ErrorIs(t, err, shared.ErrSourceAlreadyLinked)
}

func TestCheckBalanceDetectsCentDrift(t *testing.T) {
	repo, svc := setupLedger(t)
	debitSub := repo.subIndex["2024|4300000001"]
	creditSub := repo.subIndex["2024|7000000001"]
	entryID := repo.addEntry("2024", 1, date(2024, 2, 1),
		LedgerLine{SubAccountID: debitSub, SubAccountCode: "4300000001", Debit: 100},
		LedgerLine{SubAccountID: creditSub, SubAccountCode: "7000000001", Credit: 99.99},
	)

	debit, credit, balanced, err := svc.CheckBalance(context.Background(), entryID)
	require.NoError(t, err)
	require.InDelta(t, 100, debit, 1e-9)
	require.InDelta(t, 99.99, credit, 1e-9)
	require.False(t, balanced)
}

func TestFixAbsorbsResidualIntoFirstLine(t *testing.T) {
	repo, svc := setupLedger(t)
	debitSub := repo.subIndex["2024|4300000001"]
	creditSub := repo.subIndex["2024|7000000001"]
	entryID := repo.addEntry("2024", 1, date(2024, 2, 1),
		LedgerLine{SubAccountID: debitSub, SubAccountCode: "4300000001", Debit: 100},
		LedgerLine{SubAccountID: creditSub, SubAccountCode: "7000000001", Credit: 99.99},
	)

	fixed, err := svc.Fix(context.Background(), entryID)
	require.NoError(t, err)
	require.InDelta(t, 99.99, fixed.Lines[0].Debit, 1e-9)
	require.InDelta(t, 99.99, fixed.Amount, 1e-9)

	_, _, balanced, err := svc.CheckBalance(context.Background(), entryID)
	require.NoError(t, err)
	require.True(t, balanced)

	sub := repo.subs[debitSub]
	require.InDelta(t, 99.99, sub.Debit, 1e-9)
}

func TestFixRoundsUnroundedLines(t *testing.T) {
	repo, svc := setupLedger(t)
	debitSub := repo.subIndex["2024|4300000001"]
	creditSub := repo.subIndex["2024|7000000001"]
	entryID := repo.addEntry("2024", 1, date(2024, 2, 1),
		LedgerLine{SubAccountID: debitSub, SubAccountCode: "4300000001", Debit: 33.333},
		LedgerLine{SubAccountID: creditSub, SubAccountCode: "7000000001", Credit: 33.33},
	)

	fixed, err := svc.Fix(context.Background(), entryID)
	require.NoError(t, err)
	require.InDelta(t, 33.33, fixed.Lines[0].Debit, 1e-9)
	require.InDelta(t, 33.33, fixed.Lines[1].Credit, 1e-9)
}

func TestFixRefusesLargeImbalance(t *testing.T) {
	repo, svc := setupLedger(t)
	debitSub := repo.subIndex["2024|4300000001"]
	creditSub := repo.subIndex["2024|7000000001"]
	entryID := repo.addEntry("2024", 1, date(2024, 2, 1),
		LedgerLine{SubAccountID: debitSub, SubAccountCode: "4300000001", Debit: 100},
		LedgerLine{SubAccountID: creditSub, SubAccountCode: "7000000001", Credit: 50},
	)

	// Absorbing 50 into the first line still balances, so seed a truly
	// unfixable entry instead: a single zero line plus the drifted one.
	_, err := svc.Fix(context.Background(), entryID)
	require.NoError(t, err)

	zeroEntry := repo.addEntry("2024", 2, date(2024, 2, 2),
		LedgerLine{SubAccountID: debitSub, SubAccountCode: "4300000001"},
		LedgerLine{SubAccountID: creditSub, SubAccountCode: "7000000001", Credit: 25},
	)
	_, err = svc.Fix(context.Background(), zeroEntry)
	require.ErrorIs(t, err, shared.ErrUnbalanced)
}

func TestDeleteRemovesEntryAndRecomputes(t *testing.T) {
	repo, svc := setupLedger(t)
	debitSub := repo.subIndex["2024|4300000001"]
	creditSub := repo.subIndex["2024|7000000001"]
	entryID := repo.addEntry("2024", 1, date(2024, 2, 1),
		LedgerLine{SubAccountID: debitSub, SubAccountCode: "4300000001", Debit: 60},
		LedgerLine{SubAccountID: creditSub, SubAccountCode: "7000000001", Credit: 60},
	)
	tx := &memoryLedgerTx{repo: repo}
	require.NoError(t, tx.RecomputeSubAccount(context.Background(), debitSub))

	require.NoError(t, svc.Delete(context.Background(), entryID))
	_, _, err := repo.Get(context.Background(), entryID)
	require.ErrorIs(t, err, shared.ErrEntryNotFound)
	require.InDelta(t, 0, repo.subs[debitSub].Debit, 1e-9)
}

func TestDeleteBlockedInsideRegularization(t *testing.T) {
	repo, svc := setupLedger(t)
	debitSub := repo.subIndex["2024|4300000001"]
	entryID := repo.addEntry("2024", 1, date(2024, 2, 1),
		LedgerLine{SubAccountID: debitSub, SubAccountCode: "4300000001", Debit: 60},
	)
	repo.periods = append(repo.periods, regularizations.Period{
		FiscalYearCode: "2024",
		PeriodCode:     "1T",
		StartDate:      date(2024, 1, 1),
		EndDate:        date(2024, 3, 31),
	})

	err := svc.Delete(context.Background(), entryID)
	require.ErrorIs(t, err, shared.ErrPeriodLocked)
	_, lines, getErr := repo.Get(context.Background(), entryID)
	require.NoError(t, getErr)
	require.Len(t, lines, 1)
}

func TestDeleteBlockedInClosedYear(t *testing.T) {
	repo, svc := setupLedger(t)
	entryID := repo.addEntry("2024", 1, date(2024, 2, 1))
	year := repo.years["2024"]
	year.Status = fiscalyears.YearStatusClosed
	repo.addYear(year)

	require.ErrorIs(t, svc.Delete(context.Background(), entryID), shared.ErrYearClosed)
}

func TestDeleteAllowsSystemEntryInClosedYear(t *testing.T) {
	repo, svc := setupLedger(t)
	closingID := repo.addEntry("2024", 999, date(2024, 12, 31))
	year := repo.years["2024"]
	year.Status = fiscalyears.YearStatusClosed
	year.ClosingEntryID = &closingID
	repo.addYear(year)

	require.NoError(t, svc.Delete(context.Background(), closingID))
}

func TestRenumberCompactsByDateOrder(t *testing.T) {
	repo, svc := setupLedger(t)
	// Inserted out of date order with gapped numbers.
	feb := repo.addEntry("2024", 7, date(2024, 2, 1))
	jan := repo.addEntry("2024", 3, date(2024, 1, 5))
	mar := repo.addEntry("2024", 12, date(2024, 3, 9))

	require.NoError(t, svc.Renumber(context.Background(), "2024"))
	require.Equal(t, int64(1), repo.entries[jan].Number)
	require.Equal(t, int64(2), repo.entries[feb].Number)
	require.Equal(t, int64(3), repo.entries[mar].Number)
	require.Equal(t, int64(4), repo.sequences["2024"])
}

func TestRenumberRejectsClosedYear(t *testing.T) {
	repo, svc := setupLedger(t)
	repo.addEntry("2024", 5, date(2024, 2, 1))
	year := repo.years["2024"]
	year.Status = fiscalyears.YearStatusClosed
	repo.addYear(year)

	err := svc.Renumber(context.Background(), "2024")
	require.ErrorIs(t, err, shared.ErrYearClosed)
}

func TestRenumberAllIsolatesFailures(t *testing.T) {
	repo, svc := setupLedger(t)
	closed := openYear("2023", 2023)
	closed.Status = fiscalyears.YearStatusClosed
	repo.addYear(closed)
	repo.addEntry("2023", 9, date(2023, 5, 1))
	open := repo.addEntry("2024", 9, date(2024, 5, 1))

	err := svc.RenumberAll(context.Background(), []string{"2023", "2024"})
	require.Error(t, err)
	require.ErrorIs(t, err, shared.ErrYearClosed)
	// The open year still got compacted.
	require.Equal(t, int64(1), repo.entries[open].Number)
}

func TestFirstGap(t *testing.T) {
	cases := []struct {
		numbers []int64
		want    int64
	}{
		{nil, 1},
		{[]int64{1, 2, 3}, 4},
		{[]int64{2, 3}, 1},
		{[]int64{1, 2, 4, 5}, 3},
		{[]int64{1, 1, 2}, 3},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, firstGap(tc.numbers), fmt.Sprintf("numbers=%v", tc.numbers))
	}
}

func TestRoundTripLineAmounts(t *testing.T) {
	repo, svc := setupLedger(t)
	entry, err := svc.Create(context.Background(), createInput(
		LineInput{SubAccountCode: "4300000001", Debit: 1234.56, Currency: "EUR"},
		LineInput{SubAccountCode: "7000000001", Credit: 1234.56, Currency: "EUR"},
	))
	require.NoError(t, err)

	stored, err := svc.Get(context.Background(), entry.ID)
	require.NoError(t, err)
	require.Len(t, stored.Lines, 2)
	require.InDelta(t, 1234.56, stored.Lines[0].Debit, 1e-9)
	require.InDelta(t, 1234.56, stored.Lines[1].Credit, 1e-9)
	require.Equal(t, float64(1), stored.Lines[0].ConversionRate)
	_ = repo
}
