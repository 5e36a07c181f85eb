package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/meridian-pos/meridian-pos/internal/shared"
)

// SettingsPort resolves the configured costing policy.
type SettingsPort interface {
	PricingMethod(ctx context.Context) (PricingMethod, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// MetricsPort receives allocation counters.
type MetricsPort interface {
	ObserveAllocation(mode, outcome string)
	ObserveRollback()
}

// Service coordinates lot allocation, costing and rollback.
type Service struct {
	repo     RepositoryPort
	settings SettingsPort
	audit    AuditPort
	metrics  MetricsPort
	now      Clock
	quotes   singleflight.Group
}

// NewService builds Service.
func NewService(repo RepositoryPort, settings SettingsPort, audit AuditPort, metrics MetricsPort) *Service {
	return &Service{repo: repo, settings: settings, audit: audit, metrics: metrics, now: time.Now}
}

// AvailabilityOf reports total and per-warehouse on-hand quantity.
func (s *Service) AvailabilityOf(ctx context.Context, productID int64) (Availability, error) {
	if productID == 0 {
		return Availability{}, fmt.Errorf("inventory: product required")
	}
	return s.repo.Availability(ctx, productID)
}

// ListLots returns a page of lots with pagination metadata.
func (s *Service) ListLots(ctx context.Context, filter LotListFilter) ([]Lot, shared.Pagination, error) {
	lots, total, err := s.repo.ListLots(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return lots, shared.NewPagination(filter.Page, filter.PerPage, total), nil
}

// ChangeSetOf fetches a recorded change set.
func (s *Service) ChangeSetOf(ctx context.Context, id int64) (ChangeSet, error) {
	return s.repo.GetChangeSet(ctx, id)
}

func (s *Service) recordAudit(ctx context.Context, action string, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  shared.ActorFromContext(ctx),
		Action:   action,
		Entity:   "inventory_lot",
		EntityID: entityID,
		Meta:     meta,
	})
}

func (s *Service) observeAllocation(mode string, err error) {
	if s.metrics == nil {
		return
	}
	outcome := "ok"
	switch {
	case err == nil:
	case isInsufficient(err):
		outcome = "insufficient"
	case errors.Is(err, ErrConflict):
		outcome = "conflict"
	default:
		outcome = "error"
	}
	s.metrics.ObserveAllocation(mode, outcome)
}

func isInsufficient(err error) bool {
	var target *InsufficientStockError
	return errors.As(err, &target)
}
