package delivery

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/invoicing/invoices"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type memoryNoteRepo struct {
	nextID int64
	notes  map[string]*Note
}

func newMemoryNoteRepo() *memoryNoteRepo {
	return &memoryNoteRepo{nextID: 1, notes: map[string]*Note{}}
}

func (r *memoryNoteRepo) Get(_ context.Context, code string) (Note, error) {
	note, ok := r.notes[code]
	if !ok {
		return Note{}, ErrNoteNotFound
	}
	return *note, nil
}

func (r *memoryNoteRepo) ListPendingByParty(_ context.Context, kind invoices.Kind, partyID int64) ([]Note, error) {
	var out []Note
	for _, note := range r.notes {
		if note.Kind == kind && note.PartyID == partyID && note.Status == StatusPending {
			out = append(out, *note)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (r *memoryNoteRepo) ListByInvoice(_ context.Context, invoiceCode string) ([]Note, error) {
	var out []Note
	for _, note := range r.notes {
		if note.InvoiceCode != nil && *note.InvoiceCode == invoiceCode {
			out = append(out, *note)
		}
	}
	return out, nil
}

func (r *memoryNoteRepo) Insert(_ context.Context, note *Note) error {
	note.ID = r.nextID
	r.nextID++
	stored := *note
	r.notes[note.Code] = &stored
	return nil
}

func (r *memoryNoteRepo) SetInvoice(_ context.Context, code string, invoiceCode *string, status string) error {
	note, ok := r.notes[code]
	if !ok {
		return ErrNoteNotFound
	}
	note.InvoiceCode = invoiceCode
	note.Status = status
	return nil
}

func TestCreateNormalizesCodeAndTotal(t *testing.T) {
	repo := newMemoryNoteRepo()
	svc := NewService(repo)

	note, err := svc.Create(context.Background(), CreateInput{
		Code:    "  alb-2024-001 ",
		Kind:    invoices.KindCustomer,
		PartyID: 42,
		Date:    day(2024, time.March, 1),
		Total:   99.005,
	})
	require.NoError(t, err)
	require.Equal(t, "ALB-2024-001", note.Code)
	require.InDelta(t, 99.01, note.Total, 0.001)
	require.Equal(t, StatusPending, note.Status)
	require.Nil(t, note.InvoiceCode)
}

func TestAttachInvoiceFlipsStatus(t *testing.T) {
	repo := newMemoryNoteRepo()
	svc := NewService(repo)
	_, err := svc.Create(context.Background(), CreateInput{
		Code: "ALB-1", Kind: invoices.KindCustomer, PartyID: 42,
		Date: day(2024, time.March, 1), Total: 50,
	})
	require.NoError(t, err)

	note, err := svc.AttachInvoice(context.Background(), "ALB-1", "FC-2024-A000001")
	require.NoError(t, err)
	require.Equal(t, StatusInvoiced, note.Status)
	require.NotNil(t, note.InvoiceCode)
	require.Equal(t, "FC-2024-A000001", *note.InvoiceCode)

	linked, err := svc.ListByInvoice(context.Background(), "FC-2024-A000001")
	require.NoError(t, err)
	require.Len(t, linked, 1)
}

func TestAttachInvoiceRejectsInvoicedNote(t *testing.T) {
	repo := newMemoryNoteRepo()
	svc := NewService(repo)
	_, err := svc.Create(context.Background(), CreateInput{
		Code: "ALB-1", Kind: invoices.KindCustomer, PartyID: 42,
		Date: day(2024, time.March, 1), Total: 50,
	})
	require.NoError(t, err)
	_, err = svc.AttachInvoice(context.Background(), "ALB-1", "FC-2024-A000001")
	require.NoError(t, err)

	_, err = svc.AttachInvoice(context.Background(), "ALB-1", "FC-2024-A000002")
	require.ErrorIs(t, err, ErrAlreadyInvoiced)
}

func TestUnlinkInvoiceReturnsNoteToPending(t *testing.T) {
	repo := newMemoryNoteRepo()
	svc := NewService(repo)
	_, err := svc.Create(context.Background(), CreateInput{
		Code: "ALB-1", Kind: invoices.KindCustomer, PartyID: 42,
		Date: day(2024, time.March, 1), Total: 50,
	})
	require.NoError(t, err)
	_, err = svc.AttachInvoice(context.Background(), "ALB-1", "FC-2024-A000001")
	require.NoError(t, err)

	note, err := svc.UnlinkInvoice(context.Background(), "ALB-1")
	require.NoError(t, err)
	require.Equal(t, StatusPending, note.Status)
	require.Nil(t, note.InvoiceCode)
}

func TestUnlinkInvoiceRejectsPendingNote(t *testing.T) {
	repo := newMemoryNoteRepo()
	svc := NewService(repo)
	_, err := svc.Create(context.Background(), CreateInput{
		Code: "ALB-1", Kind: invoices.KindCustomer, PartyID: 42,
		Date: day(2024, time.March, 1), Total: 50,
	})
	require.NoError(t, err)

	_, err = svc.UnlinkInvoice(context.Background(), "ALB-1")
	require.ErrorIs(t, err, ErrNotInvoiced)
}

func TestListPendingByPartyOrdersOldestFirst(t *testing.T) {
	repo := newMemoryNoteRepo()
	svc := NewService(repo)
	for i, d := range []time.Time{day(2024, time.May, 10), day(2024, time.February, 1), day(2024, time.March, 20)} {
		_, err := svc.Create(context.Background(), CreateInput{
			Code: "ALB-" + string(rune('A'+i)), Kind: invoices.KindCustomer, PartyID: 42,
			Date: d, Total: 10,
		})
		require.NoError(t, err)
	}
	_, err := svc.Create(context.Background(), CreateInput{
		Code: "ALB-OTHER", Kind: invoices.KindSupplier, PartyID: 42,
		Date: day(2024, time.January, 1), Total: 10,
	})
	require.NoError(t, err)

	pending, err := svc.ListPendingByParty(context.Background(), invoices.KindCustomer, 42)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	require.Equal(t, "ALB-B", pending[0].Code)
	require.Equal(t, "ALB-C", pending[1].Code)
	require.Equal(t, "ALB-A", pending[2].Code)
}
