package transfers

import (
	"context"
	"fmt"
	"time"

	"github.com/meridian-pos/meridian-pos/internal/inventory"
	"github.com/meridian-pos/meridian-pos/internal/shared"
)

// InventoryPort exposes the allocation operations completion needs.
type InventoryPort interface {
	TransferStock(ctx context.Context, input inventory.TransferInput) (int64, error)
	RollbackChangeSet(ctx context.Context, changeSetID int64) error
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service orchestrates the stock transfer lifecycle.
type Service struct {
	repo      RepositoryPort
	inventory InventoryPort
	audit     AuditPort
}

// NewService constructs the transfers service.
func NewService(repo RepositoryPort, inv InventoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, inventory: inv, audit: audit}
}

// LineInput describes one transfer line.
type LineInput struct {
	ProductID int64
	Count     int64
}

// CreateInput describes transfer creation.
type CreateInput struct {
	Number                 string
	SourceWarehouseID      int64
	DestinationWarehouseID int64
	Note                   string
	OccurredAt             time.Time
	ActorID                int64
	Lines                  []LineInput
}

// Create persists a draft transfer. Stock is untouched until completion.
func (s *Service) Create(ctx context.Context, input CreateInput) (Transfer, error) {
	if input.SourceWarehouseID == 0 || input.DestinationWarehouseID == 0 {
		return Transfer{}, fmt.Errorf("%w: source and destination warehouse required", ErrValidation)
	}
	if input.SourceWarehouseID == input.DestinationWarehouseID {
		return Transfer{}, fmt.Errorf("%w: source and destination warehouse must differ", ErrValidation)
	}
	if len(input.Lines) == 0 {
		return Transfer{}, fmt.Errorf("%w: at least one line required", ErrValidation)
	}
	lines := make([]Line, 0, len(input.Lines))
	for _, in := range input.Lines {
		if in.ProductID == 0 || in.Count <= 0 {
			return Transfer{}, fmt.Errorf("%w: every line needs a product and a positive count", ErrValidation)
		}
		lines = append(lines, Line{ProductID: in.ProductID, Count: in.Count})
	}
	if input.Number == "" {
		input.Number = generateNumber("ST")
	}
	occurredAt := input.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	transfer := Transfer{
		Number:                 input.Number,
		SourceWarehouseID:      input.SourceWarehouseID,
		DestinationWarehouseID: input.DestinationWarehouseID,
		Status:                 StatusDraft,
		Note:                   input.Note,
		OccurredAt:             occurredAt,
		CreatedBy:              input.ActorID,
	}
	id, err := s.repo.Create(ctx, transfer, lines)
	if err != nil {
		return Transfer{}, err
	}
	transfer.ID = id
	s.recordAudit(ctx, "transfer:create", id, map[string]any{"number": transfer.Number})
	return transfer, nil
}

// Get fetches a transfer with its lines.
func (s *Service) Get(ctx context.Context, id int64) (Transfer, []Line, error) {
	return s.repo.Get(ctx, id)
}

// List returns a page of transfers.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Transfer, shared.Pagination, error) {
	transfers, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return transfers, shared.NewPagination(filter.Page, filter.PerPage, total), nil
}

// Complete moves stock for every line of a draft transfer and records each
// line's change set id. A failing line undoes the lines already moved.
func (s *Service) Complete(ctx context.Context, id int64, actorID int64) error {
	transfer, lines, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if transfer.Status != StatusDraft {
		return ErrInvalidState
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
		setID, err := s.inventory.TransferStock(ctx, inventory.TransferInput{
			ProductID:              line.ProductID,
			SourceWarehouseID:      transfer.SourceWarehouseID,
			DestinationWarehouseID: transfer.DestinationWarehouseID,
			Count:                  line.Count,
			ReferenceID:            transfer.ID,
			ActorID:                actorID,
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
	if err := s.repo.SetStatus(ctx, id, StatusCompleted); err != nil {
		undo()
		return err
	}
	s.recordAudit(ctx, "transfer:complete", id, map[string]any{"lines": len(lines)})
	return nil
}

// Revert rolls back every completed line's change set: relabelled lots move
// home, decremented lots regain their counts as deltas, split lots vanish.
func (s *Service) Revert(ctx context.Context, id int64) error {
	transfer, lines, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if transfer.Status != StatusCompleted {
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
	if err := s.repo.SetStatus(ctx, id, StatusReverted); err != nil {
		return err
	}
	s.recordAudit(ctx, "transfer:revert", id, nil)
	return nil
}

func (s *Service) recordAudit(ctx context.Context, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		Action:   action,
		Entity:   "stock_transfer",
		EntityID: fmt.Sprintf("%d", entityID),
		Meta:     meta,
	})
}

func generateNumber(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}
