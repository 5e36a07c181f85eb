package inventory

import (
	"context"
	"fmt"
	"strconv"
)

// ConsumeInput describes a consuming allocation: quantity leaves the system,
// e.g. a sales invoice line.
type ConsumeInput struct {
	ProductID   int64
	WarehouseID int64 // 0 means any warehouse
	Count       int64
	SalePrice   int64
	ReferenceID int64
	SaleType    SaleType
	ActorID     int64
}

// TransferInput describes a transferring allocation: quantity moves between
// warehouses, total on-hand is preserved.
type TransferInput struct {
	ProductID              int64
	SourceWarehouseID      int64
	DestinationWarehouseID int64
	Count                  int64
	ReferenceID            int64
	ActorID                int64
}

// ConsumeStock walks the product's on-hand lots oldest first and deducts the
// requested quantity, emitting one profit entry per lot touched. All lot
// mutations and the resulting change set commit as one unit; the returned id
// identifies the recorded change set.
//
// Availability is re-checked against the row-locked candidate set, so two
// concurrent runs cannot both pass the check and drive a count negative.
func (s *Service) ConsumeStock(ctx context.Context, input ConsumeInput) (int64, error) {
	if input.ProductID == 0 || input.ReferenceID == 0 {
		return 0, fmt.Errorf("inventory: product and reference required")
	}
	if input.Count <= 0 {
		return 0, ErrInvalidQuantity
	}
	if !input.SaleType.Valid() {
		return 0, fmt.Errorf("inventory: invalid sale type %q", input.SaleType)
	}

	var setID int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		candidates, err := tx.CandidateLots(ctx, input.ProductID, input.WarehouseID)
		if err != nil {
			return err
		}
		if err := checkSufficiency(ctx, tx, input.ProductID, input.WarehouseID, input.Count, candidates); err != nil {
			return err
		}

		remaining := input.Count
		var changes []Change
		for _, lot := range candidates {
			if remaining <= 0 {
				break
			}
			if remaining >= lot.Count {
				// Whole lot consumed. Capture the count before
				// zeroing it; remaining must shrink by the
				// original amount.
				taken := lot.Count
				if err := tx.SetLotCount(ctx, lot.ID, taken, 0); err != nil {
					return err
				}
				changes = append(changes, CountChange{LotID: lot.ID, Old: taken, New: 0})
				if _, err := tx.InsertProfitEntry(ctx, ProfitEntry{
					SaleType:    input.SaleType,
					ReferenceID: input.ReferenceID,
					LotID:       lot.ID,
					SalePrice:   input.SalePrice,
					Count:       taken,
				}); err != nil {
					return err
				}
				remaining -= taken
			} else {
				newCount := lot.Count - remaining
				if err := tx.SetLotCount(ctx, lot.ID, lot.Count, newCount); err != nil {
					return err
				}
				changes = append(changes, CountChange{LotID: lot.ID, Old: lot.Count, New: newCount})
				if _, err := tx.InsertProfitEntry(ctx, ProfitEntry{
					SaleType:    input.SaleType,
					ReferenceID: input.ReferenceID,
					LotID:       lot.ID,
					SalePrice:   input.SalePrice,
					Count:       remaining,
				}); err != nil {
					return err
				}
				remaining = 0
			}
		}

		setID, err = tx.InsertChangeSet(ctx, ChangeSet{
			Type:        ChangeSetStockSales,
			ReferenceID: input.ReferenceID,
			Changes:     changes,
		})
		return err
	})
	s.observeAllocation("consume", err)
	if err != nil {
		return 0, err
	}
	s.recordAudit(ctx, "inventory:consume", strconv.FormatInt(input.ProductID, 10), map[string]any{
		"product_id":   input.ProductID,
		"warehouse_id": input.WarehouseID,
		"count":        input.Count,
		"change_set":   setID,
		"reference_id": input.ReferenceID,
	})
	return setID, nil
}

// TransferStock moves the requested quantity of a product from the source
// warehouse to the destination. Whole lots are relabelled in place; a partial
// remainder splits off a new lot at the destination that inherits the source
// lot's purchase price and invoice reference but is re-quoted consumer/store
// pricing at allocation time.
func (s *Service) TransferStock(ctx context.Context, input TransferInput) (int64, error) {
	if input.ProductID == 0 || input.ReferenceID == 0 {
		return 0, fmt.Errorf("inventory: product and reference required")
	}
	if input.SourceWarehouseID == 0 || input.DestinationWarehouseID == 0 {
		return 0, fmt.Errorf("inventory: source and destination warehouse required")
	}
	if input.SourceWarehouseID == input.DestinationWarehouseID {
		return 0, fmt.Errorf("inventory: source and destination warehouse must differ")
	}
	if input.Count <= 0 {
		return 0, ErrInvalidQuantity
	}

	// Quoted up front so the allocation transaction stays free of further
	// reads; a split lot prices at the state the run started from.
	quote, err := s.QuotePrice(ctx, input.ProductID)
	if err != nil {
		return 0, err
	}

	var setID int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		candidates, err := tx.CandidateLots(ctx, input.ProductID, input.SourceWarehouseID)
		if err != nil {
			return err
		}
		if err := checkSufficiency(ctx, tx, input.ProductID, input.SourceWarehouseID, input.Count, candidates); err != nil {
			return err
		}

		remaining := input.Count
		var changes []Change
		for _, lot := range candidates {
			if remaining <= 0 {
				break
			}
			if remaining >= lot.Count {
				if err := tx.SetLotWarehouse(ctx, lot.ID, input.DestinationWarehouseID); err != nil {
					return err
				}
				changes = append(changes, WarehouseChange{
					LotID: lot.ID,
					Old:   lot.WarehouseID,
					New:   input.DestinationWarehouseID,
				})
				remaining -= lot.Count
			} else {
				newCount := lot.Count - remaining
				if err := tx.SetLotCount(ctx, lot.ID, lot.Count, newCount); err != nil {
					return err
				}
				changes = append(changes, CountChange{LotID: lot.ID, Old: lot.Count, New: newCount})

				newLotID, err := tx.InsertLot(ctx, Lot{
					ProductID:         input.ProductID,
					WarehouseID:       input.DestinationWarehouseID,
					PurchaseInvoiceID: lot.PurchaseInvoiceID,
					Count:             remaining,
					Price: PriceSet{
						Purchase: lot.Price.Purchase,
						Consumer: quote.Consumer,
						Store:    quote.Store,
					},
					OccurredAt: s.now().UTC(),
					Status:     LotStatusActive,
					CreatedBy:  input.ActorID,
				})
				if err != nil {
					return err
				}
				changes = append(changes, LotInsert{LotID: newLotID})
				remaining = 0
			}
		}

		setID, err = tx.InsertChangeSet(ctx, ChangeSet{
			Type:        ChangeSetStockTransfer,
			ReferenceID: input.ReferenceID,
			Changes:     changes,
		})
		return err
	})
	s.observeAllocation("transfer", err)
	if err != nil {
		return 0, err
	}
	s.recordAudit(ctx, "inventory:transfer", strconv.FormatInt(input.ProductID, 10), map[string]any{
		"product_id":   input.ProductID,
		"source":       input.SourceWarehouseID,
		"destination":  input.DestinationWarehouseID,
		"count":        input.Count,
		"change_set":   setID,
		"reference_id": input.ReferenceID,
	})
	return setID, nil
}

// checkSufficiency rejects the run before any mutation when the requested
// quantity exceeds what the locked candidates can supply. When a warehouse is
// specified the product-wide total is reported separately so the caller can
// distinguish "not enough anywhere" from "not enough here".
func checkSufficiency(ctx context.Context, tx TxRepository, productID, warehouseID, requested int64, candidates []Lot) error {
	var onHand int64
	for _, lot := range candidates {
		onHand += lot.Count
	}
	if warehouseID != 0 {
		avail, err := tx.Availability(ctx, productID)
		if err != nil {
			return err
		}
		if avail.Total < requested {
			return &InsufficientStockError{ProductID: productID, Requested: requested, Available: avail.Total}
		}
	}
	if onHand < requested {
		return &InsufficientStockError{
			ProductID:   productID,
			WarehouseID: warehouseID,
			Requested:   requested,
			Available:   onHand,
		}
	}
	return nil
}
