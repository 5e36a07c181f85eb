package sales

import (
	"context"
	"fmt"
	"time"

	"github.com/meridian-pos/meridian-pos/internal/inventory"
	"github.com/meridian-pos/meridian-pos/internal/shared"
)

// InventoryPort exposes the allocation operations posting needs.
type InventoryPort interface {
	ConsumeStock(ctx context.Context, input inventory.ConsumeInput) (int64, error)
	RollbackChangeSet(ctx context.Context, changeSetID int64) error
	AvailabilityOf(ctx context.Context, productID int64) (inventory.Availability, error)
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service orchestrates the sales invoice lifecycle.
type Service struct {
	repo      RepositoryPort
	inventory InventoryPort
	audit     AuditPort
}

// NewService constructs the sales service.
func NewService(repo RepositoryPort, inv InventoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, inventory: inv, audit: audit}
}

// LineInput describes one invoice line.
type LineInput struct {
	ProductID   int64
	WarehouseID int64
	Count       int64
	SalePrice   int64
}

// CreateInput describes invoice creation.
type CreateInput struct {
	Number     string
	CustomerID int64
	Type       inventory.SaleType
	OccurredAt time.Time
	ActorID    int64
	Lines      []LineInput
}

// Create persists a draft invoice. Stock is untouched until posting.
func (s *Service) Create(ctx context.Context, input CreateInput) (Invoice, error) {
	if input.CustomerID == 0 {
		return Invoice{}, fmt.Errorf("%w: customer required", ErrValidation)
	}
	if !input.Type.Valid() {
		return Invoice{}, fmt.Errorf("%w: invalid sale type %q", ErrValidation, input.Type)
	}
	if len(input.Lines) == 0 {
		return Invoice{}, fmt.Errorf("%w: at least one line required", ErrValidation)
	}
	var total int64
	lines := make([]Line, 0, len(input.Lines))
	for _, in := range input.Lines {
		if in.ProductID == 0 || in.Count <= 0 {
			return Invoice{}, fmt.Errorf("%w: every line needs a product and a positive count", ErrValidation)
		}
		total += in.Count * in.SalePrice
		lines = append(lines, Line{
			ProductID:   in.ProductID,
			WarehouseID: in.WarehouseID,
			Count:       in.Count,
			SalePrice:   in.SalePrice,
		})
	}
	if input.Number == "" {
		input.Number = generateNumber("SI")
	}
	occurredAt := input.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	invoice := Invoice{
		Number:     input.Number,
		CustomerID: input.CustomerID,
		Type:       input.Type,
		Status:     StatusDraft,
		Total:      total,
		OccurredAt: occurredAt,
		CreatedBy:  input.ActorID,
	}
	id, err := s.repo.Create(ctx, invoice, lines)
	if err != nil {
		return Invoice{}, err
	}
	invoice.ID = id
	s.recordAudit(ctx, "sale:create", id, map[string]any{"number": invoice.Number})
	return invoice, nil
}

// Get fetches an invoice with its lines.
func (s *Service) Get(ctx context.Context, id int64) (Invoice, []Line, error) {
	return s.repo.Get(ctx, id)
}

// List returns a page of invoices.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Invoice, shared.Pagination, error) {
	invoices, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return invoices, shared.NewPagination(filter.Page, filter.PerPage, total), nil
}

// Post consumes stock for every line of a draft invoice and records each
// line's change set id. A failing line undoes the lines already allocated, so
// posting is all-or-nothing even though every line commits its own run.
func (s *Service) Post(ctx context.Context, id int64, actorID int64) error {
	invoice, lines, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if invoice.Status != StatusDraft {
		return ErrInvalidState
	}

	// Availability pre-check product by product so an obviously short
	// invoice fails before any allocation runs.
	needed := map[int64]int64{}
	for _, line := range lines {
		needed[line.ProductID] += line.Count
	}
	for productID, count := range needed {
		avail, err := s.inventory.AvailabilityOf(ctx, productID)
		if err != nil {
			return err
		}
		if avail.Total < count {
			return &inventory.InsufficientStockError{
				ProductID: productID,
				Requested: count,
				Available: avail.Total,
			}
		}
	}

	var posted []struct {
		lineID int64
		setID  int64
	}
	undo := func() {
		for i := len(posted) - 1; i >= 0; i-- {
			_ = s.inventory.RollbackChangeSet(ctx, posted[i].setID)
		}
	}
	for _, line := range lines {
		setID, err := s.inventory.ConsumeStock(ctx, inventory.ConsumeInput{
			ProductID:   line.ProductID,
			WarehouseID: line.WarehouseID,
			Count:       line.Count,
			SalePrice:   line.SalePrice,
			ReferenceID: invoice.ID,
			SaleType:    invoice.Type,
			ActorID:     actorID,
		})
		if err != nil {
			undo()
			return err
		}
		posted = append(posted, struct {
			lineID int64
			setID  int64
		}{line.ID, setID})
	}
	for _, p := range posted {
		if err := s.repo.SetLineChangeSet(ctx, p.lineID, p.setID); err != nil {
			undo()
			return err
		}
	}
	if err := s.repo.SetStatus(ctx, id, StatusPosted); err != nil {
		undo()
		return err
	}
	s.recordAudit(ctx, "sale:post", id, map[string]any{"lines": len(lines)})
	return nil
}

// Reverse rolls back every posted line's change set and marks the invoice
// REVERSED. Lot counts return as algebraic deltas, so stock received since
// the sale is preserved.
func (s *Service) Reverse(ctx context.Context, id int64) error {
	invoice, lines, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if invoice.Status != StatusPosted {
		return ErrInvalidState
	}
	for _, line := range lines {
		if line.ChangeSetID == 0 {
			continue
		}
		if err := s.inventory.RollbackChangeSet(ctx, line.ChangeSetID); err != nil {
			return err
		}
	}
	if err := s.repo.SetStatus(ctx, id, StatusReversed); err != nil {
		return err
	}
	s.recordAudit(ctx, "sale:reverse", id, nil)
	return nil
}

func (s *Service) recordAudit(ctx context.Context, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		Action:   action,
		Entity:   "sales_invoice",
		EntityID: fmt.Sprintf("%d", entityID),
		Meta:     meta,
	})
}

func generateNumber(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}
