package sales

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
	nextLine int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{invoices: map[int64]Invoice{}, lines: map[int64][]Line{}}
}

func (r *memoryRepo) Create(ctx context.Context, invoice Invoice, lines []Line) (int64, error) {
	r.nextID++
	invoice.ID = r.nextID
	r.invoices[invoice.ID] = invoice
	for i := range lines {
		r.nextLine++
		lines[i].ID = r.nextLine
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

func (r *memoryRepo) SetStatus(ctx context.Context, id int64, status InvoiceStatus) error {
	invoice, ok := r.invoices[id]
	if !ok {
		return ErrNotFound
	}
	invoice.Status = status
	r.invoices[id] = invoice
	return nil
}

func (r *memoryRepo) SetLineChangeSet(ctx context.Context, lineID, changeSetID int64) error {
	for invoiceID, lines := range r.lines {
		for i := range lines {
			if lines[i].ID == lineID {
				lines[i].ChangeSetID = changeSetID
				r.lines[invoiceID] = lines
				return nil
			}
		}
	}
	return ErrNotFound
}

func (r *memoryRepo) List(ctx context.Context, filter ListFilter) ([]Invoice, int, error) {
	var invoices []Invoice
	for _, invoice := range r.invoices {
		invoices = append(invoices, invoice)
	}
	return invoices, len(invoices), nil
}

type mockInventory struct {
	available  map[int64]int64
	nextSet    int64
	consumed   []inventory.ConsumeInput
	rolledBack []int64
	failAfter  int // fail the Nth consume, 0 disables
}

func (m *mockInventory) ConsumeStock(ctx context.Context, input inventory.ConsumeInput) (int64, error) {
	if m.failAfter > 0 && len(m.consumed)+1 >= m.failAfter {
		return 0, &inventory.InsufficientStockError{
			ProductID: input.ProductID, Requested: input.Count,
		}
	}
	m.consumed = append(m.consumed, input)
	m.nextSet++
	return m.nextSet, nil
}

func (m *mockInventory) RollbackChangeSet(ctx context.Context, changeSetID int64) error {
	m.rolledBack = append(m.rolledBack, changeSetID)
	return nil
}

func (m *mockInventory) AvailabilityOf(ctx context.Context, productID int64) (inventory.Availability, error) {
	return inventory.Availability{ProductID: productID, Total: m.available[productID]}, nil
}

func newDraft(t *testing.T, svc *Service, lines ...LineInput) Invoice {
	t.Helper()
	if len(lines) == 0 {
		lines = []LineInput{
			{ProductID: 1, Count: 5, SalePrice: 150},
			{ProductID: 2, Count: 3, SalePrice: 60},
		}
	}
	invoice, err := svc.Create(context.Background(), CreateInput{
		CustomerID: 4, Type: inventory.SaleTypeRetail,
		OccurredAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Lines:      lines,
	})
	require.NoError(t, err)
	return invoice
}

func TestPostConsumesEveryLine(t *testing.T) {
	repo := newMemoryRepo()
	inv := &mockInventory{available: map[int64]int64{1: 10, 2: 10}}
	svc := NewService(repo, inv, nil)
	ctx := context.Background()

	invoice := newDraft(t, svc)
	require.NoError(t, svc.Post(ctx, invoice.ID, 9))

	stored, lines, err := repo.Get(ctx, invoice.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPosted, stored.Status)
	require.Len(t, inv.consumed, 2)
	require.Equal(t, inventory.SaleTypeRetail, inv.consumed[0].SaleType)
	require.Equal(t, invoice.ID, inv.consumed[0].ReferenceID)
	for _, line := range lines {
		require.NotZero(t, line.ChangeSetID, "posted line must record its change set")
	}

	require.ErrorIs(t, svc.Post(ctx, invoice.ID, 9), ErrInvalidState)
}

func TestPostRejectsShortInvoiceBeforeAllocating(t *testing.T) {
	repo := newMemoryRepo()
	inv := &mockInventory{available: map[int64]int64{1: 10, 2: 1}}
	svc := NewService(repo, inv, nil)

	invoice := newDraft(t, svc)
	err := svc.Post(context.Background(), invoice.ID, 0)
	var insufficient *inventory.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	require.EqualValues(t, 2, insufficient.ProductID)
	require.Empty(t, inv.consumed, "nothing may be allocated when the pre-check fails")

	stored, _, err := repo.Get(context.Background(), invoice.ID)
	require.NoError(t, err)
	require.Equal(t, StatusDraft, stored.Status)
}

func TestPostAggregatesLinesOfSameProduct(t *testing.T) {
	repo := newMemoryRepo()
	inv := &mockInventory{available: map[int64]int64{1: 7}}
	svc := NewService(repo, inv, nil)

	invoice := newDraft(t, svc,
		LineInput{ProductID: 1, Count: 4, SalePrice: 100},
		LineInput{ProductID: 1, Count: 4, SalePrice: 100},
	)
	err := svc.Post(context.Background(), invoice.ID, 0)
	var insufficient *inventory.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	require.EqualValues(t, 8, insufficient.Requested)
}

func TestPostUndoesAllocatedLinesOnFailure(t *testing.T) {
	repo := newMemoryRepo()
	inv := &mockInventory{available: map[int64]int64{1: 10, 2: 10}, failAfter: 2}
	svc := NewService(repo, inv, nil)

	invoice := newDraft(t, svc)
	err := svc.Post(context.Background(), invoice.ID, 0)
	require.Error(t, err)

	// The first line's allocation was compensated.
	require.Len(t, inv.consumed, 1)
	require.Equal(t, []int64{1}, inv.rolledBack)

	stored, _, err := repo.Get(context.Background(), invoice.ID)
	require.NoError(t, err)
	require.Equal(t, StatusDraft, stored.Status)
}

func TestReverseRollsBackEveryLine(t *testing.T) {
	repo := newMemoryRepo()
	inv := &mockInventory{available: map[int64]int64{1: 10, 2: 10}}
	svc := NewService(repo, inv, nil)
	ctx := context.Background()

	invoice := newDraft(t, svc)
	require.NoError(t, svc.Post(ctx, invoice.ID, 0))
	require.NoError(t, svc.Reverse(ctx, invoice.ID))

	require.Equal(t, []int64{1, 2}, inv.rolledBack)
	stored, _, err := repo.Get(ctx, invoice.ID)
	require.NoError(t, err)
	require.Equal(t, StatusReversed, stored.Status)

	require.ErrorIs(t, svc.Reverse(ctx, invoice.ID), ErrInvalidState)
}

func TestReverseRequiresPostedInvoice(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, &mockInventory{}, nil)

	invoice := newDraft(t, svc)
	require.ErrorIs(t, svc.Reverse(context.Background(), invoice.ID), ErrInvalidState)
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(newMemoryRepo(), &mockInventory{}, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{CustomerID: 1, Type: inventory.SaleTypeRetail})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(ctx, CreateInput{CustomerID: 1, Type: "wholesale",
		Lines: []LineInput{{ProductID: 1, Count: 1}}})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(ctx, CreateInput{Type: inventory.SaleTypeRetail,
		Lines: []LineInput{{ProductID: 1, Count: 1}}})
	require.ErrorIs(t, err, ErrValidation)
}
