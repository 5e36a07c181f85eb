package inventory

import (
	"context"
	"time"
)

// LotListFilter narrows paginated lot listings.
type LotListFilter struct {
	WarehouseID int64
	ProductID   int64
	Page        int
	PerPage     int
}

// RepositoryPort abstracts lot storage for the service. Reads outside a
// transaction tolerate eventually consistent snapshots; every mutation goes
// through WithTx so one allocation run commits as a unit.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error

	// Costing reads. Each returns ErrLotNotFound when no lot matches.
	OldestOnHandLot(ctx context.Context, productID int64) (Lot, error)
	NewestOnHandLot(ctx context.Context, productID int64) (Lot, error)
	MaxPurchaseLot(ctx context.Context, productID int64) (Lot, error)
	AllLotsOfProduct(ctx context.Context, productID int64) ([]Lot, error)

	Availability(ctx context.Context, productID int64) (Availability, error)
	ListLots(ctx context.Context, filter LotListFilter) ([]Lot, int, error)
	GetChangeSet(ctx context.Context, id int64) (ChangeSet, error)
}

// TxRepository exposes the mutations available inside one transaction.
type TxRepository interface {
	// CandidateLots returns on-hand lots of the product ordered oldest
	// first, row-locked for the duration of the transaction. warehouseID 0
	// means all warehouses.
	CandidateLots(ctx context.Context, productID, warehouseID int64) ([]Lot, error)

	GetLot(ctx context.Context, id int64) (Lot, error)
	InsertLot(ctx context.Context, lot Lot) (int64, error)
	UpdateLot(ctx context.Context, lot Lot) error
	DeleteLot(ctx context.Context, id int64) error

	// SetLotCount applies a count mutation conditional on the previously
	// observed value; a non-match reports ErrConflict.
	SetLotCount(ctx context.Context, lotID, oldCount, newCount int64) error
	// AdjustLotCount applies an algebraic delta, used by rollback so that
	// third-party mutations between run and rollback are preserved.
	AdjustLotCount(ctx context.Context, lotID, delta int64) error
	SetLotWarehouse(ctx context.Context, lotID, warehouseID int64) error

	LotsByInvoice(ctx context.Context, invoiceID int64) ([]Lot, error)
	DeleteLotsByInvoice(ctx context.Context, invoiceID int64) (int64, error)

	Availability(ctx context.Context, productID int64) (Availability, error)

	InsertChangeSet(ctx context.Context, set ChangeSet) (int64, error)
	GetChangeSet(ctx context.Context, id int64) (ChangeSet, error)

	InsertProfitEntry(ctx context.Context, entry ProfitEntry) (int64, error)
}

// Clock lets tests pin allocation timestamps.
type Clock func() time.Time
