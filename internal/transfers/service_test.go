package transfers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-pos/meridian-pos/internal/inventory"
)

type memoryRepo struct {
	transfers map[int64]Transfer
	lines     map[int64][]Line
	nextID    int64
	nextLine  int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{transfers: map[int64]Transfer{}, lines: map[int64][]Line{}}
}

func (r *memoryRepo) Create(ctx context.Context, transfer Transfer, lines []Line) (int64, error) {
	r.nextID++
	transfer.ID = r.nextID
	r.transfers[transfer.ID] = transfer
	for i := range lines {
		r.nextLine++
		lines[i].ID = r.nextLine
		lines[i].TransferID = transfer.ID
	}
	r.lines[transfer.ID] = lines
	return transfer.ID, nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Transfer, []Line, error) {
	transfer, ok := r.transfers[id]
	if !ok {
		return Transfer{}, nil, ErrNotFound
	}
	return transfer, r.lines[id], nil
}

func (r *memoryRepo) SetStatus(ctx context.Context, id int64, status TransferStatus) error {
	transfer, ok := r.transfers[id]
	if !ok {
		return ErrNotFound
	}
	transfer.Status = status
	r.transfers[id] = transfer
	return nil
}

func (r *memoryRepo) SetLineChangeSet(ctx context.Context, lineID, changeSetID int64) error {
	for transferID, lines := range r.lines {
		for i := range lines {
			if lines[i].ID == lineID {
				lines[i].ChangeSetID = changeSetID
				r.lines[transferID] = lines
				return nil
			}
		}
	}
	return ErrNotFound
}

func (r *memoryRepo) List(ctx context.Context, filter ListFilter) ([]Transfer, int, error) {
	var transfers []Transfer
	for _, transfer := range r.transfers {
		transfers = append(transfers, transfer)
	}
	return transfers, len(transfers), nil
}

type mockInventory struct {
	nextSet    int64
	moved      []inventory.TransferInput
	rolledBack []int64
	failAfter  int
}

func (m *mockInventory) TransferStock(ctx context.Context, input inventory.TransferInput) (int64, error) {
	if m.failAfter > 0 && len(m.moved)+1 >= m.failAfter {
		return 0, &inventory.InsufficientStockError{
			ProductID:   input.ProductID,
			WarehouseID: input.SourceWarehouseID,
			Requested:   input.Count,
		}
	}
	m.moved = append(m.moved, input)
	m.nextSet++
	return m.nextSet, nil
}

func (m *mockInventory) RollbackChangeSet(ctx context.Context, changeSetID int64) error {
	m.rolledBack = append(m.rolledBack, changeSetID)
	return nil
}

func newDraft(t *testing.T, svc *Service) Transfer {
	t.Helper()
	transfer, err := svc.Create(context.Background(), CreateInput{
		SourceWarehouseID: 1, DestinationWarehouseID: 2,
		OccurredAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Lines: []LineInput{
			{ProductID: 1, Count: 5},
			{ProductID: 2, Count: 3},
		},
	})
	require.NoError(t, err)
	return transfer
}

func TestCompleteMovesEveryLine(t *testing.T) {
	repo := newMemoryRepo()
	inv := &mockInventory{}
	svc := NewService(repo, inv, nil)
	ctx := context.Background()

	transfer := newDraft(t, svc)
	require.NoError(t, svc.Complete(ctx, transfer.ID, 4))

	stored, lines, err := repo.Get(ctx, transfer.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, stored.Status)
	require.Len(t, inv.moved, 2)
	require.EqualValues(t, 1, inv.moved[0].SourceWarehouseID)
	require.EqualValues(t, 2, inv.moved[0].DestinationWarehouseID)
	require.Equal(t, transfer.ID, inv.moved[0].ReferenceID)
	for _, line := range lines {
		require.NotZero(t, line.ChangeSetID)
	}

	require.ErrorIs(t, svc.Complete(ctx, transfer.ID, 4), ErrInvalidState)
}

func TestCompleteUndoesMovedLinesOnFailure(t *testing.T) {
	repo := newMemoryRepo()
	inv := &mockInventory{failAfter: 2}
	svc := NewService(repo, inv, nil)

	transfer := newDraft(t, svc)
	err := svc.Complete(context.Background(), transfer.ID, 0)
	var insufficient *inventory.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)

	require.Len(t, inv.moved, 1)
	require.Equal(t, []int64{1}, inv.rolledBack)

	stored, _, err := repo.Get(context.Background(), transfer.ID)
	require.NoError(t, err)
	require.Equal(t, StatusDraft, stored.Status)
}

func TestRevertRollsBackEveryLine(t *testing.T) {
	repo := newMemoryRepo()
	inv := &mockInventory{}
	svc := NewService(repo, inv, nil)
	ctx := context.Background()

	transfer := newDraft(t, svc)
	require.NoError(t, svc.Complete(ctx, transfer.ID, 0))
	require.NoError(t, svc.Revert(ctx, transfer.ID))

	require.Equal(t, []int64{1, 2}, inv.rolledBack)
	stored, _, err := repo.Get(ctx, transfer.ID)
	require.NoError(t, err)
	require.Equal(t, StatusReverted, stored.Status)

	require.ErrorIs(t, svc.Revert(ctx, transfer.ID), ErrInvalidState)
}

func TestRevertRequiresCompletedTransfer(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, &mockInventory{}, nil)

	transfer := newDraft(t, svc)
	require.ErrorIs(t, svc.Revert(context.Background(), transfer.ID), ErrInvalidState)
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(newMemoryRepo(), &mockInventory{}, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{SourceWarehouseID: 1, DestinationWarehouseID: 1,
		Lines: []LineInput{{ProductID: 1, Count: 1}}})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(ctx, CreateInput{SourceWarehouseID: 1, DestinationWarehouseID: 2})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(ctx, CreateInput{SourceWarehouseID: 1, DestinationWarehouseID: 2,
		Lines: []LineInput{{ProductID: 1, Count: 0}}})
	require.ErrorIs(t, err, ErrValidation)
}
