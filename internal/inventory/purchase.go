package inventory

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// ReceiveLine is one product line of a purchase document.
type ReceiveLine struct {
	ProductID int64
	Count     int64
	Price     PriceSet
}

// ReceiveInput creates lots for a completed purchase invoice.
type ReceiveInput struct {
	InvoiceID   int64
	WarehouseID int64
	OccurredAt  time.Time
	ActorID     int64
	Lines       []ReceiveLine
}

// ReconcileInput adjusts lots after a purchase invoice edit. Previous holds
// the invoice lines as they were when the lots were created.
type ReconcileInput struct {
	InvoiceID   int64
	WarehouseID int64
	OccurredAt  time.Time
	ActorID     int64
	Previous    []ReceiveLine
	Lines       []ReceiveLine
}

func validateLines(lines []ReceiveLine) error {
	if len(lines) == 0 {
		return fmt.Errorf("inventory: at least one product line required")
	}
	for _, line := range lines {
		if line.ProductID == 0 {
			return fmt.Errorf("inventory: product required on every line")
		}
		if line.Count <= 0 {
			return ErrInvalidQuantity
		}
		if line.Price.Purchase < 0 || line.Price.Consumer < 0 || line.Price.Store < 0 {
			return fmt.Errorf("inventory: prices must be non-negative")
		}
	}
	return nil
}

// ReceiveLots inserts one fresh lot per invoice line. Lots are never merged,
// even for an identical product/warehouse/price: each purchase event stays
// its own lot so FIFO/LIFO traceability is exact.
func (s *Service) ReceiveLots(ctx context.Context, input ReceiveInput) ([]Lot, error) {
	if input.InvoiceID == 0 || input.WarehouseID == 0 {
		return nil, fmt.Errorf("inventory: invoice and warehouse required")
	}
	if err := validateLines(input.Lines); err != nil {
		return nil, err
	}
	occurredAt := input.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = s.now().UTC()
	}

	var created []Lot
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		created = created[:0]
		for _, line := range input.Lines {
			lot := Lot{
				ProductID:         line.ProductID,
				WarehouseID:       input.WarehouseID,
				PurchaseInvoiceID: input.InvoiceID,
				Count:             line.Count,
				Price:             line.Price,
				OccurredAt:        occurredAt,
				Status:            LotStatusActive,
				CreatedBy:         input.ActorID,
			}
			id, err := tx.InsertLot(ctx, lot)
			if err != nil {
				return err
			}
			lot.ID = id
			created = append(created, lot)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, "inventory:receive", strconv.FormatInt(input.InvoiceID, 10), map[string]any{
		"invoice_id":   input.InvoiceID,
		"warehouse_id": input.WarehouseID,
		"lots":         len(created),
	})
	return created, nil
}

// ReconcilePurchaseLots brings the lots of an edited purchase invoice back in
// line with its lines: surviving lines adjust price, count delta, warehouse
// and timestamp in place; removed lines delete their lot outright; brand-new
// lines insert fresh lots.
func (s *Service) ReconcilePurchaseLots(ctx context.Context, input ReconcileInput) error {
	if input.InvoiceID == 0 || input.WarehouseID == 0 {
		return fmt.Errorf("inventory: invoice and warehouse required")
	}
	if err := validateLines(input.Lines); err != nil {
		return err
	}
	occurredAt := input.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = s.now().UTC()
	}

	previous := make(map[int64]ReceiveLine, len(input.Previous))
	for _, line := range input.Previous {
		previous[line.ProductID] = line
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		lots, err := tx.LotsByInvoice(ctx, input.InvoiceID)
		if err != nil {
			return err
		}

		pending := make([]ReceiveLine, len(input.Lines))
		copy(pending, input.Lines)

		for _, lot := range lots {
			idx := -1
			for i, line := range pending {
				if line.ProductID == lot.ProductID {
					idx = i
					break
				}
			}
			if idx < 0 {
				// Line removed from the invoice: the lot goes
				// with it, a direct delete rather than a
				// recorded change.
				if err := tx.DeleteLot(ctx, lot.ID); err != nil {
					return err
				}
				continue
			}
			line := pending[idx]
			lot.Price = line.Price
			if prev, ok := previous[lot.ProductID]; ok {
				lot.Count += line.Count - prev.Count
			} else {
				lot.Count = line.Count
			}
			if lot.Count < 0 {
				return fmt.Errorf("inventory: reconcile would drive lot %d negative", lot.ID)
			}
			lot.WarehouseID = input.WarehouseID
			lot.OccurredAt = occurredAt
			if err := tx.UpdateLot(ctx, lot); err != nil {
				return err
			}
			pending = append(pending[:idx], pending[idx+1:]...)
		}

		for _, line := range pending {
			if _, err := tx.InsertLot(ctx, Lot{
				ProductID:         line.ProductID,
				WarehouseID:       input.WarehouseID,
				PurchaseInvoiceID: input.InvoiceID,
				Count:             line.Count,
				Price:             line.Price,
				OccurredAt:        occurredAt,
				Status:            LotStatusActive,
				CreatedBy:         input.ActorID,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, "inventory:reconcile", strconv.FormatInt(input.InvoiceID, 10), map[string]any{
		"invoice_id": input.InvoiceID,
	})
	return nil
}

// PurgePurchaseLots removes every lot created by a deleted purchase invoice.
// Finding nothing to delete is an inconsistency, not a no-op.
func (s *Service) PurgePurchaseLots(ctx context.Context, invoiceID int64) error {
	if invoiceID == 0 {
		return fmt.Errorf("inventory: invoice required")
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		deleted, err := tx.DeleteLotsByInvoice(ctx, invoiceID)
		if err != nil {
			return err
		}
		if deleted == 0 {
			return ErrNoLotsDeleted
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, "inventory:purge", strconv.FormatInt(invoiceID, 10), map[string]any{
		"invoice_id": invoiceID,
	})
	return nil
}
