package inventory

import (
	"context"
	"errors"
	"fmt"
)

// QuotePrice computes the product's current consumer/store price under the
// costing policy configured in settings.
func (s *Service) QuotePrice(ctx context.Context, productID int64) (Quote, error) {
	method, err := s.settings.PricingMethod(ctx)
	if err != nil {
		return Quote{}, err
	}
	return s.QuotePriceWith(ctx, productID, method)
}

// QuotePriceWith computes the price under an explicit policy. Concurrent
// quotes for the same product and policy collapse into one lookup. A product
// with no matching lots quotes {0, 0}; that is not an error.
func (s *Service) QuotePriceWith(ctx context.Context, productID int64, method PricingMethod) (Quote, error) {
	if !method.Valid() {
		return Quote{}, fmt.Errorf("%w: %q", ErrUnknownPricingMethod, method)
	}
	key := fmt.Sprintf("%d:%s", productID, method)
	v, err, _ := s.quotes.Do(key, func() (any, error) {
		return s.quote(ctx, productID, method)
	})
	if err != nil {
		return Quote{}, err
	}
	return v.(Quote), nil
}

func (s *Service) quote(ctx context.Context, productID int64, method PricingMethod) (Quote, error) {
	if method == MethodWeightedAverage {
		return s.weightedAverage(ctx, productID)
	}

	var (
		lot Lot
		err error
	)
	switch method {
	case MethodFIFO:
		lot, err = s.repo.OldestOnHandLot(ctx, productID)
	case MethodLIFO:
		lot, err = s.repo.NewestOnHandLot(ctx, productID)
	case MethodMax:
		lot, err = s.repo.MaxPurchaseLot(ctx, productID)
	}
	if err != nil {
		if errors.Is(err, ErrLotNotFound) {
			return Quote{}, nil
		}
		return Quote{}, err
	}
	return Quote{Consumer: lot.Price.Consumer, Store: lot.Price.Store}, nil
}

// weightedAverage averages consumer prices over ALL lots of the product,
// including exhausted ones, rounding up. Both price points get the rounded
// value.
func (s *Service) weightedAverage(ctx context.Context, productID int64) (Quote, error) {
	lots, err := s.repo.AllLotsOfProduct(ctx, productID)
	if err != nil {
		return Quote{}, err
	}

	var sumCount, sumPrice int64
	for _, lot := range lots {
		sumCount += lot.Count
		sumPrice += lot.Count * lot.Price.Consumer
	}
	if sumCount <= 0 {
		return Quote{}, nil
	}
	price := ceilDiv(sumPrice, sumCount)
	return Quote{Consumer: price, Store: price}, nil
}

func ceilDiv(sum, count int64) int64 {
	return (sum + count - 1) / count
}
