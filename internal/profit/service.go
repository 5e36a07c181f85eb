package profit

import (
	"context"
	"time"

	"github.com/meridian-pos/meridian-pos/internal/inventory"
)

// Entry is one profit ledger row joined with the cost basis of the lot it
// consumed.
type Entry struct {
	ID            int64
	SaleType      inventory.SaleType
	ReferenceID   int64
	LotID         int64
	ProductID     int64
	SalePrice     int64
	PurchasePrice int64
	Count         int64
	CreatedAt     time.Time
}

// Summary aggregates revenue against cost basis.
type Summary struct {
	SaleType inventory.SaleType `json:"sale_type,omitempty"`
	Units    int64              `json:"units"`
	Revenue  int64              `json:"revenue"`
	Cost     int64              `json:"cost"`
	Profit   int64              `json:"profit"`
}

// Filter narrows profit queries.
type Filter struct {
	SaleType  inventory.SaleType
	ProductID int64
	From      time.Time
	To        time.Time
}

// RepositoryPort describes profit storage reads.
type RepositoryPort interface {
	List(ctx context.Context, filter Filter) ([]Entry, error)
	Summarize(ctx context.Context, filter Filter) ([]Summary, error)
}

// Service exposes profit reporting.
type Service struct {
	repo RepositoryPort
}

// NewService constructs the profit service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// List returns matching profit entries.
func (s *Service) List(ctx context.Context, filter Filter) ([]Entry, error) {
	return s.repo.List(ctx, filter)
}

// Summarize returns one summary per sale type, plus margin already computed.
func (s *Service) Summarize(ctx context.Context, filter Filter) ([]Summary, error) {
	return s.repo.Summarize(ctx, filter)
}
