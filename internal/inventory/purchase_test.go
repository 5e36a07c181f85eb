package inventory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReceiveLotsOnePerLine(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, MethodFIFO)

	created, err := svc.ReceiveLots(context.Background(), ReceiveInput{
		InvoiceID: 7, WarehouseID: 1, OccurredAt: day(10), ActorID: 2,
		Lines: []ReceiveLine{
			{ProductID: 1, Count: 5, Price: PriceSet{Purchase: 80, Consumer: 100, Store: 95}},
			{ProductID: 2, Count: 3, Price: PriceSet{Purchase: 40, Consumer: 55, Store: 50}},
			// Same product twice stays two lots.
			{ProductID: 1, Count: 2, Price: PriceSet{Purchase: 82, Consumer: 100, Store: 95}},
		},
	})
	require.NoError(t, err)
	require.Len(t, created, 3)

	lots, err := repo.AllLotsOfProduct(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, lots, 2)
	for _, lot := range created {
		require.EqualValues(t, 7, lot.PurchaseInvoiceID)
		require.EqualValues(t, 1, lot.WarehouseID)
		require.Equal(t, LotStatusActive, lot.Status)
		require.Equal(t, day(10), lot.OccurredAt)
		require.EqualValues(t, 2, lot.CreatedBy)
	}
}

func TestReceiveLotsValidation(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, MethodFIFO)
	ctx := context.Background()

	_, err := svc.ReceiveLots(ctx, ReceiveInput{InvoiceID: 1, WarehouseID: 1})
	require.Error(t, err)

	_, err = svc.ReceiveLots(ctx, ReceiveInput{InvoiceID: 1, WarehouseID: 1,
		Lines: []ReceiveLine{{ProductID: 1, Count: 0}}})
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.ReceiveLots(ctx, ReceiveInput{WarehouseID: 1,
		Lines: []ReceiveLine{{ProductID: 1, Count: 1}}})
	require.Error(t, err)
}

func TestReconcileAdjustsRemovesAndInserts(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, MethodFIFO)
	ctx := context.Background()

	previous := []ReceiveLine{
		{ProductID: 1, Count: 5, Price: PriceSet{Purchase: 80, Consumer: 100, Store: 95}},
		{ProductID: 2, Count: 3, Price: PriceSet{Purchase: 40, Consumer: 55, Store: 50}},
	}
	created, err := svc.ReceiveLots(ctx, ReceiveInput{
		InvoiceID: 7, WarehouseID: 1, OccurredAt: day(10), Lines: previous,
	})
	require.NoError(t, err)

	// Product 1 already sold 2 units off its lot.
	require.NoError(t, repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.AdjustLotCount(ctx, created[0].ID, -2)
	}))

	err = svc.ReconcilePurchaseLots(ctx, ReconcileInput{
		InvoiceID: 7, WarehouseID: 2, OccurredAt: day(12),
		Previous: previous,
		Lines: []ReceiveLine{
			// Product 1 line grew from 5 to 8: the lot gains the delta
			// on top of its sold-down count.
			{ProductID: 1, Count: 8, Price: PriceSet{Purchase: 85, Consumer: 110, Store: 100}},
			// Product 2 dropped; product 3 is new.
			{ProductID: 3, Count: 4, Price: PriceSet{Purchase: 20, Consumer: 30, Store: 25}},
		},
	})
	require.NoError(t, err)

	lot1 := repo.lot(t, created[0].ID)
	require.EqualValues(t, 6, lot1.Count) // 3 on hand + (8-5)
	require.EqualValues(t, 85, lot1.Price.Purchase)
	require.EqualValues(t, 2, lot1.WarehouseID)
	require.Equal(t, day(12), lot1.OccurredAt)

	repo.mu.Lock()
	_, survived := repo.lots[created[1].ID]
	repo.mu.Unlock()
	require.False(t, survived, "removed line must delete its lot")

	lots3, err := repo.AllLotsOfProduct(ctx, 3)
	require.NoError(t, err)
	require.Len(t, lots3, 1)
	require.EqualValues(t, 4, lots3[0].Count)
	require.EqualValues(t, 7, lots3[0].PurchaseInvoiceID)
}

func TestReconcileRejectsNegativeResult(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, MethodFIFO)
	ctx := context.Background()

	previous := []ReceiveLine{{ProductID: 1, Count: 5, Price: PriceSet{Purchase: 80}}}
	created, err := svc.ReceiveLots(ctx, ReceiveInput{
		InvoiceID: 7, WarehouseID: 1, OccurredAt: day(10), Lines: previous,
	})
	require.NoError(t, err)

	// Everything already sold; shrinking the line to 1 would go negative.
	require.NoError(t, repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.AdjustLotCount(ctx, created[0].ID, -5)
	}))

	err = svc.ReconcilePurchaseLots(ctx, ReconcileInput{
		InvoiceID: 7, WarehouseID: 1, Previous: previous,
		Lines: []ReceiveLine{{ProductID: 1, Count: 1, Price: PriceSet{Purchase: 80}}},
	})
	require.Error(t, err)
	// The run aborted as a unit.
	require.EqualValues(t, 0, repo.lot(t, created[0].ID).Count)
}

func TestPurgePurchaseLots(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, MethodFIFO)
	ctx := context.Background()

	_, err := svc.ReceiveLots(ctx, ReceiveInput{
		InvoiceID: 7, WarehouseID: 1, OccurredAt: day(10),
		Lines: []ReceiveLine{
			{ProductID: 1, Count: 5, Price: PriceSet{Purchase: 80}},
			{ProductID: 2, Count: 3, Price: PriceSet{Purchase: 40}},
		},
	})
	require.NoError(t, err)

	require.NoError(t, svc.PurgePurchaseLots(ctx, 7))

	repo.mu.Lock()
	remaining := len(repo.lots)
	repo.mu.Unlock()
	require.Zero(t, remaining)

	require.ErrorIs(t, svc.PurgePurchaseLots(ctx, 7), ErrNoLotsDeleted)
}
