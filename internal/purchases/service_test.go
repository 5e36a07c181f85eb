package purchases

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-pos/meridian-pos/internal/inventory"
)

type memoryRepo struct {
	invoices map[int64]Invoice
	lines    map[int64][]Line
	nextID   int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{invoices: map[int64]Invoice{}, lines: map[int64][]Line{}}
}

func (r *memoryRepo) Create(ctx context.Context, invoice Invoice, lines []Line) (int64, error) {
	r.nextID++
	invoice.ID = r.nextID
	r.invoices[invoice.ID] = invoice
	for i := range lines {
		lines[i].InvoiceID = invoice.ID
	}
	r.lines[invoice.ID] = lines
	return invoice.ID, nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Invoice, []Line, error) {
	invoice, ok := r.invoices[id]
	if !ok {
		return Invoice{}, nil, ErrNotFound
	}
	return invoice, r.lines[id], nil
}

func (r *memoryRepo) Update(ctx context.Context, invoice Invoice, lines []Line) error {
	stored, ok := r.invoices[invoice.ID]
	if !ok {
		return ErrNotFound
	}
	stored.WarehouseID = invoice.WarehouseID
	stored.Total = invoice.Total
	stored.OccurredAt = invoice.OccurredAt
	r.invoices[invoice.ID] = stored
	r.lines[invoice.ID] = lines
	return nil
}

func (r *memoryRepo) SetStatus(ctx context.Context, id int64, status InvoiceStatus) error {
	invoice, ok := r.invoices[id]
	if !ok {
		return ErrNotFound
	}
	invoice.Status = status
	r.invoices[id] = invoice
	return nil
}

func (r *memoryRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.invoices[id]; !ok {
		return ErrNotFound
	}
	delete(r.invoices, id)
	delete(r.lines, id)
	return nil
}

func (r *memoryRepo) List(ctx context.Context, filter ListFilter) ([]Invoice, int, error) {
	var invoices []Invoice
	for _, invoice := range r.invoices {
		invoices = append(invoices, invoice)
	}
	return invoices, len(invoices), nil
}

type mockInventory struct {
	received   []inventory.ReceiveInput
	reconciled []inventory.ReconcileInput
	purged     []int64
	purgeErr   error
}

func (m *mockInventory) ReceiveLots(ctx context.Context, input inventory.ReceiveInput) ([]inventory.Lot, error) {
	m.received = append(m.received, input)
	return nil, nil
}

func (m *mockInventory) ReconcilePurchaseLots(ctx context.Context, input inventory.ReconcileInput) error {
	m.reconciled = append(m.reconciled, input)
	return nil
}

func (m *mockInventory) PurgePurchaseLots(ctx context.Context, invoiceID int64) error {
	if m.purgeErr != nil {
		return m.purgeErr
	}
	m.purged = append(m.purged, invoiceID)
	return nil
}

func newDraft(t *testing.T, svc *Service) Invoice {
	t.Helper()
	invoice, err := svc.Create(context.Background(), CreateInput{
		SupplierID: 3, WarehouseID: 1,
		OccurredAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Lines: []LineInput{
			{ProductID: 1, Count: 5, Price: inventory.PriceSet{Purchase: 80, Consumer: 100, Store: 95}},
			{ProductID: 2, Count: 3, Price: inventory.PriceSet{Purchase: 40, Consumer: 55, Store: 50}},
		},
	})
	require.NoError(t, err)
	return invoice
}

func TestCreateDraftHasNoLots(t *testing.T) {
	repo := newMemoryRepo()
	inv := &mockInventory{}
	svc := NewService(repo, inv, nil)

	invoice := newDraft(t, svc)
	require.Equal(t, StatusDraft, invoice.Status)
	require.EqualValues(t, 5*80+3*40, invoice.Total)
	require.NotEmpty(t, invoice.Number)
	require.Empty(t, inv.received)
}

func TestCompleteReceivesLotsPerLine(t *testing.T) {
	repo := newMemoryRepo()
	inv := &mockInventory{}
	svc := NewService(repo, inv, nil)
	ctx := context.Background()

	invoice := newDraft(t, svc)
	require.NoError(t, svc.Complete(ctx, invoice.ID, 7))

	stored, _, err := repo.Get(ctx, invoice.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, stored.Status)

	require.Len(t, inv.received, 1)
	input := inv.received[0]
	require.Equal(t, invoice.ID, input.InvoiceID)
	require.EqualValues(t, 1, input.WarehouseID)
	require.EqualValues(t, 7, input.ActorID)
	require.Len(t, input.Lines, 2)
	require.Equal(t, invoice.OccurredAt, input.OccurredAt)

	// Completing twice is a workflow violation.
	require.ErrorIs(t, svc.Complete(ctx, invoice.ID, 7), ErrInvalidState)
	require.Len(t, inv.received, 1)
}

func TestUpdateDraftSkipsReconcile(t *testing.T) {
	repo := newMemoryRepo()
	inv := &mockInventory{}
	svc := NewService(repo, inv, nil)

	invoice := newDraft(t, svc)
	require.NoError(t, svc.Update(context.Background(), UpdateInput{
		InvoiceID: invoice.ID,
		Lines:     []LineInput{{ProductID: 1, Count: 9, Price: inventory.PriceSet{Purchase: 80}}},
	}))
	require.Empty(t, inv.reconciled)

	stored, lines, err := repo.Get(context.Background(), invoice.ID)
	require.NoError(t, err)
	require.EqualValues(t, 9*80, stored.Total)
	require.Len(t, lines, 1)
}

func TestUpdateCompletedReconcilesLots(t *testing.T) {
	repo := newMemoryRepo()
	inv := &mockInventory{}
	svc := NewService(repo, inv, nil)
	ctx := context.Background()

	invoice := newDraft(t, svc)
	require.NoError(t, svc.Complete(ctx, invoice.ID, 0))

	require.NoError(t, svc.Update(ctx, UpdateInput{
		InvoiceID:   invoice.ID,
		WarehouseID: 2,
		Lines: []LineInput{
			{ProductID: 1, Count: 8, Price: inventory.PriceSet{Purchase: 85}},
			{ProductID: 9, Count: 2, Price: inventory.PriceSet{Purchase: 10}},
		},
	}))

	require.Len(t, inv.reconciled, 1)
	input := inv.reconciled[0]
	require.Equal(t, invoice.ID, input.InvoiceID)
	require.EqualValues(t, 2, input.WarehouseID)
	// Previous lines travel with the reconcile so count deltas are exact.
	require.Len(t, input.Previous, 2)
	require.EqualValues(t, 5, input.Previous[0].Count)
	require.Len(t, input.Lines, 2)
}

func TestDeleteCompletedPurgesLots(t *testing.T) {
	repo := newMemoryRepo()
	inv := &mockInventory{}
	svc := NewService(repo, inv, nil)
	ctx := context.Background()

	invoice := newDraft(t, svc)
	require.NoError(t, svc.Complete(ctx, invoice.ID, 0))
	require.NoError(t, svc.Delete(ctx, invoice.ID))

	require.Equal(t, []int64{invoice.ID}, inv.purged)
	_, _, err := repo.Get(ctx, invoice.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteDraftSkipsPurge(t *testing.T) {
	repo := newMemoryRepo()
	inv := &mockInventory{}
	svc := NewService(repo, inv, nil)

	invoice := newDraft(t, svc)
	require.NoError(t, svc.Delete(context.Background(), invoice.ID))
	require.Empty(t, inv.purged)
}

func TestDeleteKeepsInvoiceWhenPurgeFails(t *testing.T) {
	repo := newMemoryRepo()
	inv := &mockInventory{purgeErr: inventory.ErrNoLotsDeleted}
	svc := NewService(repo, inv, nil)
	ctx := context.Background()

	invoice := newDraft(t, svc)
	require.NoError(t, svc.Complete(ctx, invoice.ID, 0))

	require.ErrorIs(t, svc.Delete(ctx, invoice.ID), inventory.ErrNoLotsDeleted)
	_, _, err := repo.Get(ctx, invoice.ID)
	require.NoError(t, err, "invoice survives a failed purge")
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(newMemoryRepo(), &mockInventory{}, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{SupplierID: 1, WarehouseID: 1})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(ctx, CreateInput{SupplierID: 1, WarehouseID: 1,
		Lines: []LineInput{{ProductID: 1, Count: 0}}})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(ctx, CreateInput{WarehouseID: 1,
		Lines: []LineInput{{ProductID: 1, Count: 1}}})
	require.ErrorIs(t, err, ErrValidation)
}
