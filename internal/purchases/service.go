package purchases

import (
	"context"
	"fmt"
	"time"

	"github.com/meridian-pos/meridian-pos/internal/inventory"
	"github.com/meridian-pos/meridian-pos/internal/shared"
)

// InventoryPort exposes the lot synchronisation the invoice lifecycle needs.
type InventoryPort interface {
	ReceiveLots(ctx context.Context, input inventory.ReceiveInput) ([]inventory.Lot, error)
	ReconcilePurchaseLots(ctx context.Context, input inventory.ReconcileInput) error
	PurgePurchaseLots(ctx context.Context, invoiceID int64) error
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service orchestrates the purchase invoice lifecycle and keeps stock lots in
// step with completed documents.
type Service struct {
	repo      RepositoryPort
	inventory InventoryPort
	audit     AuditPort
}

// NewService constructs the purchases service.
func NewService(repo RepositoryPort, inv InventoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, inventory: inv, audit: audit}
}

// LineInput describes one invoice line.
type LineInput struct {
	ProductID int64
	Count     int64
	Price     inventory.PriceSet
}

// CreateInput describes invoice creation.
type CreateInput struct {
	Number      string
	SupplierID  int64
	WarehouseID int64
	OccurredAt  time.Time
	ActorID     int64
	Lines       []LineInput
}

// UpdateInput describes an invoice edit.
type UpdateInput struct {
	InvoiceID   int64
	WarehouseID int64
	OccurredAt  time.Time
	ActorID     int64
	Lines       []LineInput
}

func validateLineInputs(lines []LineInput) error {
	if len(lines) == 0 {
		return fmt.Errorf("%w: at least one line required", ErrValidation)
	}
	for _, line := range lines {
		if line.ProductID == 0 || line.Count <= 0 {
			return fmt.Errorf("%w: every line needs a product and a positive count", ErrValidation)
		}
	}
	return nil
}

func invoiceTotal(lines []LineInput) int64 {
	var total int64
	for _, line := range lines {
		total += line.Count * line.Price.Purchase
	}
	return total
}

func toLines(invoiceID int64, inputs []LineInput) []Line {
	lines := make([]Line, 0, len(inputs))
	for _, in := range inputs {
		lines = append(lines, Line{
			InvoiceID: invoiceID,
			ProductID: in.ProductID,
			Count:     in.Count,
			Price:     in.Price,
		})
	}
	return lines
}

func toReceiveLines(lines []Line) []inventory.ReceiveLine {
	out := make([]inventory.ReceiveLine, 0, len(lines))
	for _, line := range lines {
		out = append(out, inventory.ReceiveLine{
			ProductID: line.ProductID,
			Count:     line.Count,
			Price:     line.Price,
		})
	}
	return out
}

// Create persists a draft invoice. No lots exist until completion.
func (s *Service) Create(ctx context.Context, input CreateInput) (Invoice, error) {
	if input.SupplierID == 0 || input.WarehouseID == 0 {
		return Invoice{}, fmt.Errorf("%w: supplier and warehouse required", ErrValidation)
	}
	if err := validateLineInputs(input.Lines); err != nil {
		return Invoice{}, err
	}
	if input.Number == "" {
		input.Number = generateNumber("PI")
	}
	occurredAt := input.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	invoice := Invoice{
		Number:      input.Number,
		SupplierID:  input.SupplierID,
		WarehouseID: input.WarehouseID,
		Status:      StatusDraft,
		Total:       invoiceTotal(input.Lines),
		OccurredAt:  occurredAt,
		CreatedBy:   input.ActorID,
	}
	id, err := s.repo.Create(ctx, invoice, toLines(0, input.Lines))
	if err != nil {
		return Invoice{}, err
	}
	invoice.ID = id
	s.recordAudit(ctx, "purchase:create", id, map[string]any{"number": invoice.Number})
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

// Complete moves a draft invoice to COMPLETED and materialises one stock lot
// per line.
func (s *Service) Complete(ctx context.Context, id int64, actorID int64) error {
	invoice, lines, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if invoice.Status != StatusDraft {
		return ErrInvalidState
	}
	if _, err := s.inventory.ReceiveLots(ctx, inventory.ReceiveInput{
		InvoiceID:   invoice.ID,
		WarehouseID: invoice.WarehouseID,
		OccurredAt:  invoice.OccurredAt,
		ActorID:     actorID,
		Lines:       toReceiveLines(lines),
	}); err != nil {
		return err
	}
	if err := s.repo.SetStatus(ctx, id, StatusCompleted); err != nil {
		return err
	}
	s.recordAudit(ctx, "purchase:complete", id, map[string]any{"lines": len(lines)})
	return nil
}

// Update edits an invoice. A draft edit touches only the document; editing a
// completed invoice additionally reconciles its lots against the new lines.
func (s *Service) Update(ctx context.Context, input UpdateInput) error {
	invoice, previous, err := s.repo.Get(ctx, input.InvoiceID)
	if err != nil {
		return err
	}
	if invoice.Status == StatusCancelled {
		return ErrInvalidState
	}
	if err := validateLineInputs(input.Lines); err != nil {
		return err
	}

	if input.WarehouseID != 0 {
		invoice.WarehouseID = input.WarehouseID
	}
	if !input.OccurredAt.IsZero() {
		invoice.OccurredAt = input.OccurredAt
	}
	invoice.Total = invoiceTotal(input.Lines)

	if invoice.Status == StatusCompleted {
		prevLines := make([]inventory.ReceiveLine, 0, len(previous))
		for _, line := range previous {
			prevLines = append(prevLines, inventory.ReceiveLine{
				ProductID: line.ProductID,
				Count:     line.Count,
				Price:     line.Price,
			})
		}
		if err := s.inventory.ReconcilePurchaseLots(ctx, inventory.ReconcileInput{
			InvoiceID:   invoice.ID,
			WarehouseID: invoice.WarehouseID,
			OccurredAt:  invoice.OccurredAt,
			ActorID:     input.ActorID,
			Previous:    prevLines,
			Lines:       toReceiveLinesFromInput(input.Lines),
		}); err != nil {
			return err
		}
	}

	if err := s.repo.Update(ctx, invoice, toLines(invoice.ID, input.Lines)); err != nil {
		return err
	}
	s.recordAudit(ctx, "purchase:update", invoice.ID, map[string]any{"status": invoice.Status})
	return nil
}

// Delete removes an invoice. Deleting a completed invoice purges every lot it
// created; a purge that finds nothing reports the inconsistency instead of
// silently succeeding.
func (s *Service) Delete(ctx context.Context, id int64) error {
	invoice, _, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if invoice.Status == StatusCompleted {
		if err := s.inventory.PurgePurchaseLots(ctx, id); err != nil {
			return err
		}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, "purchase:delete", id, map[string]any{"status": invoice.Status})
	return nil
}

func toReceiveLinesFromInput(inputs []LineInput) []inventory.ReceiveLine {
	out := make([]inventory.ReceiveLine, 0, len(inputs))
	for _, in := range inputs {
		out = append(out, inventory.ReceiveLine{
			ProductID: in.ProductID,
			Count:     in.Count,
			Price:     in.Price,
		})
	}
	return out
}

func (s *Service) recordAudit(ctx context.Context, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		Action:   action,
		Entity:   "purchase_invoice",
		EntityID: fmt.Sprintf("%d", entityID),
		Meta:     meta,
	})
}

func generateNumber(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}
