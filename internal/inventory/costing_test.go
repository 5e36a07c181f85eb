package inventory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func seedCostingLots(repo *memoryRepo) {
	repo.seed(Lot{ProductID: 1, WarehouseID: 1, Count: 3,
		Price: PriceSet{Purchase: 90, Consumer: 100, Store: 95}, OccurredAt: day(1)})
	repo.seed(Lot{ProductID: 1, WarehouseID: 1, Count: 2,
		Price: PriceSet{Purchase: 120, Consumer: 101, Store: 99}, OccurredAt: day(2)})
	repo.seed(Lot{ProductID: 1, WarehouseID: 2, Count: 4,
		Price: PriceSet{Purchase: 70, Consumer: 130, Store: 125}, OccurredAt: day(3)})
}

func TestQuotePriceFIFO(t *testing.T) {
	repo := newMemoryRepo()
	seedCostingLots(repo)
	svc := newTestService(repo, MethodFIFO)

	quote, err := svc.QuotePrice(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, Quote{Consumer: 100, Store: 95}, quote)
}

func TestQuotePriceLIFO(t *testing.T) {
	repo := newMemoryRepo()
	seedCostingLots(repo)
	svc := newTestService(repo, MethodLIFO)

	quote, err := svc.QuotePrice(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, Quote{Consumer: 130, Store: 125}, quote)
}

func TestQuotePriceMaxPicksHighestPurchase(t *testing.T) {
	repo := newMemoryRepo()
	seedCostingLots(repo)
	svc := newTestService(repo, MethodMax)

	quote, err := svc.QuotePrice(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, Quote{Consumer: 101, Store: 99}, quote)
}

func TestQuotePriceWeightedAverageRoundsUp(t *testing.T) {
	repo := newMemoryRepo()
	repo.seed(Lot{ProductID: 1, WarehouseID: 1, Count: 3,
		Price: PriceSet{Consumer: 100}, OccurredAt: day(1)})
	repo.seed(Lot{ProductID: 1, WarehouseID: 1, Count: 2,
		Price: PriceSet{Consumer: 101}, OccurredAt: day(2)})
	svc := newTestService(repo, MethodWeightedAverage)

	// ceil((3*100 + 2*101) / 5) = ceil(100.4) = 101.
	quote, err := svc.QuotePrice(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, Quote{Consumer: 101, Store: 101}, quote)
}

func TestQuotePriceWeightedAverageIncludesExhaustedLots(t *testing.T) {
	repo := newMemoryRepo()
	repo.seed(Lot{ProductID: 1, WarehouseID: 1, Count: 0,
		Price: PriceSet{Consumer: 500}, OccurredAt: day(1)})
	repo.seed(Lot{ProductID: 1, WarehouseID: 1, Count: 4,
		Price: PriceSet{Consumer: 100}, OccurredAt: day(2)})
	svc := newTestService(repo, MethodWeightedAverage)

	// Exhausted lots stay in the population but weigh nothing.
	quote, err := svc.QuotePrice(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, Quote{Consumer: 100, Store: 100}, quote)
}

func TestQuotePriceZeroInventoryQuotesZero(t *testing.T) {
	repo := newMemoryRepo()

	for _, method := range []PricingMethod{MethodFIFO, MethodLIFO, MethodMax, MethodWeightedAverage} {
		svc := newTestService(repo, method)
		quote, err := svc.QuotePrice(context.Background(), 1)
		require.NoError(t, err, "method %s", method)
		require.Equal(t, Quote{}, quote, "method %s", method)
	}
}

func TestQuotePriceIgnoresExhaustedLotsForSingleLotMethods(t *testing.T) {
	repo := newMemoryRepo()
	repo.seed(Lot{ProductID: 1, WarehouseID: 1, Count: 0,
		Price: PriceSet{Consumer: 999, Store: 999}, OccurredAt: day(1)})
	repo.seed(Lot{ProductID: 1, WarehouseID: 1, Count: 5,
		Price: PriceSet{Consumer: 100, Store: 95}, OccurredAt: day(2)})
	svc := newTestService(repo, MethodFIFO)

	quote, err := svc.QuotePrice(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, Quote{Consumer: 100, Store: 95}, quote)
}

func TestQuotePriceWithUnknownMethod(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, MethodFIFO)

	_, err := svc.QuotePriceWith(context.Background(), 1, PricingMethod("average"))
	require.ErrorIs(t, err, ErrUnknownPricingMethod)
}
