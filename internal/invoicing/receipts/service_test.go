package receipts

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type memoryReceiptStore struct {
	nextID   int64
	receipts map[int64]Receipt
	events   []PaymentEvent
}

func newMemoryReceiptStore() *memoryReceiptStore {
	return &memoryReceiptStore{nextID: 1, receipts: map[int64]Receipt{}}
}

func (s *memoryReceiptStore) Get(_ context.Context, id int64) (Receipt, error) {
	rec, ok := s.receipts[id]
	if !ok {
		return Receipt{}, ErrReceiptNotFound
	}
	return rec, nil
}

func (s *memoryReceiptStore) ListByInvoice(_ context.Context, invoiceCode string) ([]Receipt, error) {
	var out []Receipt
	for _, rec := range s.receipts {
		if rec.InvoiceCode == invoiceCode {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, nil
}

func (s *memoryReceiptStore) History(_ context.Context, invoiceCode string) ([]PaymentEvent, error) {
	var out []PaymentEvent
	for _, ev := range s.events {
		if ev.InvoiceCode == invoiceCode {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (s *memoryReceiptStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error {
	return fn(ctx, s)
}

func (s *memoryReceiptStore) Insert(_ context.Context, rec *Receipt) error {
	rec.ID = s.nextID
	s.nextID++
	s.receipts[rec.ID] = *rec
	return nil
}

func (s *memoryReceiptStore) Update(_ context.Context, rec Receipt) error {
	if _, ok := s.receipts[rec.ID]; !ok {
		return ErrReceiptNotFound
	}
	s.receipts[rec.ID] = rec
	return nil
}

func (s *memoryReceiptStore) Delete(_ context.Context, id int64) error {
	if _, ok := s.receipts[id]; !ok {
		return ErrReceiptNotFound
	}
	delete(s.receipts, id)
	return nil
}

func (s *memoryReceiptStore) DeleteUnpaidByInvoice(_ context.Context, invoiceCode string) error {
	for id, rec := range s.receipts {
		if rec.InvoiceCode == invoiceCode && !rec.Paid {
			delete(s.receipts, id)
		}
	}
	return nil
}

func (s *memoryReceiptStore) RecordEvent(_ context.Context, ev PaymentEvent) error {
	ev.ID = s.nextID
	s.nextID++
	s.events = append(s.events, ev)
	return nil
}

type fakeInvoices struct {
	totals       map[string]float64
	paid         map[string]bool
	setPaidCalls int
}

func newFakeInvoices() *fakeInvoices {
	return &fakeInvoices{totals: map[string]float64{}, paid: map[string]bool{}}
}

func (f *fakeInvoices) GetTotal(_ context.Context, code string) (float64, error) {
	return f.totals[code], nil
}

func (f *fakeInvoices) SetPaid(_ context.Context, code string, paid bool) error {
	f.setPaidCalls++
	f.paid[code] = paid
	return nil
}

func setupReceipts() (*Service, *memoryReceiptStore, *fakeInvoices) {
	store := newMemoryReceiptStore()
	invoices := newFakeInvoices()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(store, invoices, logger)
	svc.WithNow(func() time.Time { return day(2024, time.June, 15) })
	return svc, store, invoices
}

func TestGenerateSplitsWithRemainderOnLast(t *testing.T) {
	svc, store, _ := setupReceipts()

	err := svc.GenerateForInvoice(context.Background(), "FC-2024-A000001", 100, day(2024, time.March, 1), 3)
	require.NoError(t, err)

	recs, err := store.ListByInvoice(context.Background(), "FC-2024-A000001")
	require.NoError(t, err)
	require.Len(t, recs, 3)
	require.InDelta(t, 33.33, recs[0].Amount, 0.001)
	require.InDelta(t, 33.33, recs[1].Amount, 0.001)
	require.InDelta(t, 33.34, recs[2].Amount, 0.001)
	require.True(t, recs[0].DueDate.Equal(day(2024, time.March, 1)))
	require.True(t, recs[1].DueDate.Equal(day(2024, time.March, 31)))
	require.True(t, recs[2].DueDate.Equal(day(2024, time.April, 30)))
	require.Equal(t, []int{1, 2, 3}, []int{recs[0].Sequence, recs[1].Sequence, recs[2].Sequence})

	history, err := store.History(context.Background(), "FC-2024-A000001")
	require.NoError(t, err)
	require.Len(t, history, 3)
	for _, ev := range history {
		require.Equal(t, EventCreated, ev.Event)
	}
}

func TestGenerateRejectsZeroInstallments(t *testing.T) {
	svc, _, _ := setupReceipts()
	err := svc.GenerateForInvoice(context.Background(), "FC-2024-A000001", 100, day(2024, time.March, 1), 0)
	require.ErrorIs(t, err, ErrNoInstallments)
}

func TestGeneratePreservesPaidReceipts(t *testing.T) {
	svc, store, _ := setupReceipts()
	require.NoError(t, svc.GenerateForInvoice(context.Background(), "FC-2024-A000001", 100, day(2024, time.March, 1), 2))

	recs, _ := store.ListByInvoice(context.Background(), "FC-2024-A000001")
	_, err := svc.MarkPaid(context.Background(), recs[0].ID, day(2024, time.March, 5), "transfer", "")
	require.NoError(t, err)

	// Regenerating splits only the outstanding half.
	require.NoError(t, svc.GenerateForInvoice(context.Background(), "FC-2024-A000001", 100, day(2024, time.April, 1), 2))

	recs, err = store.ListByInvoice(context.Background(), "FC-2024-A000001")
	require.NoError(t, err)
	require.Len(t, recs, 3)
	require.True(t, recs[0].Paid)
	require.InDelta(t, 50.0, recs[0].Amount, 0.001)
	require.False(t, recs[1].Paid)
	require.InDelta(t, 25.0, recs[1].Amount, 0.001)
	require.InDelta(t, 25.0, recs[2].Amount, 0.001)
	require.Equal(t, 2, recs[1].Sequence)
	require.Equal(t, 3, recs[2].Sequence)
}

func TestGenerateFullyPaidInsertsNothing(t *testing.T) {
	svc, store, _ := setupReceipts()
	require.NoError(t, svc.GenerateForInvoice(context.Background(), "FC-2024-A000001", 80, day(2024, time.March, 1), 1))
	recs, _ := store.ListByInvoice(context.Background(), "FC-2024-A000001")
	_, err := svc.MarkPaid(context.Background(), recs[0].ID, day(2024, time.March, 5), "", "")
	require.NoError(t, err)

	require.NoError(t, svc.GenerateForInvoice(context.Background(), "FC-2024-A000001", 80, day(2024, time.April, 1), 3))
	recs, err = store.ListByInvoice(context.Background(), "FC-2024-A000001")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.True(t, recs[0].Paid)
}

func TestMarkPaidFlipsInvoiceFlag(t *testing.T) {
	svc, store, invoices := setupReceipts()
	invoices.totals["FC-2024-A000001"] = 100
	require.NoError(t, svc.GenerateForInvoice(context.Background(), "FC-2024-A000001", 100, day(2024, time.March, 1), 2))

	recs, _ := store.ListByInvoice(context.Background(), "FC-2024-A000001")
	paid, err := svc.MarkPaid(context.Background(), recs[0].ID, day(2024, time.March, 5), "transfer", "ES12")
	require.NoError(t, err)
	require.True(t, paid.Paid)
	require.Equal(t, "transfer", paid.Method)
	require.Equal(t, "ES12", paid.BankAccount)
	require.False(t, invoices.paid["FC-2024-A000001"])

	_, err = svc.MarkPaid(context.Background(), recs[1].ID, day(2024, time.April, 5), "transfer", "")
	require.NoError(t, err)
	require.True(t, invoices.paid["FC-2024-A000001"])
}

func TestMarkPaidRejectsSettledReceipt(t *testing.T) {
	svc, store, _ := setupReceipts()
	require.NoError(t, svc.GenerateForInvoice(context.Background(), "FC-2024-A000001", 100, day(2024, time.March, 1), 1))
	recs, _ := store.ListByInvoice(context.Background(), "FC-2024-A000001")

	_, err := svc.MarkPaid(context.Background(), recs[0].ID, day(2024, time.March, 5), "", "")
	require.NoError(t, err)
	_, err = svc.MarkPaid(context.Background(), recs[0].ID, day(2024, time.March, 6), "", "")
	require.ErrorIs(t, err, ErrReceiptPaid)
}

func TestUpdateRejectsPaidReceipt(t *testing.T) {
	svc, store, _ := setupReceipts()
	require.NoError(t, svc.GenerateForInvoice(context.Background(), "FC-2024-A000001", 100, day(2024, time.March, 1), 1))
	recs, _ := store.ListByInvoice(context.Background(), "FC-2024-A000001")
	_, err := svc.MarkPaid(context.Background(), recs[0].ID, day(2024, time.March, 5), "", "")
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), recs[0].ID, UpdateInput{Amount: 50})
	require.ErrorIs(t, err, ErrReceiptPaid)
}

func TestUpdateEditsUnpaidReceipt(t *testing.T) {
	svc, store, _ := setupReceipts()
	require.NoError(t, svc.GenerateForInvoice(context.Background(), "FC-2024-A000001", 100, day(2024, time.March, 1), 1))
	recs, _ := store.ListByInvoice(context.Background(), "FC-2024-A000001")

	updated, err := svc.Update(context.Background(), recs[0].ID, UpdateInput{
		Amount:  60.005,
		DueDate: day(2024, time.May, 1),
		Method:  "cash",
	})
	require.NoError(t, err)
	require.InDelta(t, 60.01, updated.Amount, 0.001)
	require.True(t, updated.DueDate.Equal(day(2024, time.May, 1)))
	require.Equal(t, "cash", updated.Method)
}

func TestUpdateRefreshesInvoiceAggregate(t *testing.T) {
	svc, store, invoices := setupReceipts()
	invoices.totals["FC-2024-A000001"] = 100
	require.NoError(t, svc.GenerateForInvoice(context.Background(), "FC-2024-A000001", 100, day(2024, time.March, 1), 1))
	recs, _ := store.ListByInvoice(context.Background(), "FC-2024-A000001")

	before := invoices.setPaidCalls
	_, err := svc.Update(context.Background(), recs[0].ID, UpdateInput{Amount: 40})
	require.NoError(t, err)
	require.Greater(t, invoices.setPaidCalls, before)
	require.False(t, invoices.paid["FC-2024-A000001"])
}

func TestDeleteUnsetsInvoicePaidFlag(t *testing.T) {
	svc, store, invoices := setupReceipts()
	invoices.totals["FC-2024-A000001"] = 100
	require.NoError(t, svc.GenerateForInvoice(context.Background(), "FC-2024-A000001", 100, day(2024, time.March, 1), 1))
	recs, _ := store.ListByInvoice(context.Background(), "FC-2024-A000001")
	_, err := svc.MarkPaid(context.Background(), recs[0].ID, day(2024, time.March, 5), "", "")
	require.NoError(t, err)
	require.True(t, invoices.paid["FC-2024-A000001"])

	require.NoError(t, svc.Delete(context.Background(), recs[0].ID))
	require.False(t, invoices.paid["FC-2024-A000001"])

	history, err := store.History(context.Background(), "FC-2024-A000001")
	require.NoError(t, err)
	require.Equal(t, EventDeleted, history[len(history)-1].Event)
}

func TestRefreshWithoutReceiptsIsUnpaid(t *testing.T) {
	svc, _, invoices := setupReceipts()
	invoices.paid["FC-2024-A000001"] = true

	require.NoError(t, svc.Refresh(context.Background(), "FC-2024-A000001"))
	require.False(t, invoices.paid["FC-2024-A000001"])
}
