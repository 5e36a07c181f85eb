package inventory

import (
	"errors"
	"fmt"
	"time"
)

// PricingMethod selects how a product price is quoted from its lots.
type PricingMethod string

const (
	// MethodFIFO quotes from the oldest on-hand lot.
	MethodFIFO PricingMethod = "fifo"
	// MethodLIFO quotes from the newest on-hand lot.
	MethodLIFO PricingMethod = "lifo"
	// MethodMax quotes from the on-hand lot with the highest purchase price.
	MethodMax PricingMethod = "max"
	// MethodWeightedAverage quotes the count-weighted average over all lots.
	MethodWeightedAverage PricingMethod = "weightedAverage"
)

// Valid reports whether the method is one of the supported policies.
func (m PricingMethod) Valid() bool {
	switch m {
	case MethodFIFO, MethodLIFO, MethodMax, MethodWeightedAverage:
		return true
	}
	return false
}

// LotStatus tracks the lifecycle of a lot.
type LotStatus string

const (
	LotStatusActive   LotStatus = "active"
	LotStatusInactive LotStatus = "inactive"
)

// PriceSet groups the three price points carried by every lot. Amounts are
// integer minor currency units.
type PriceSet struct {
	Purchase int64 `json:"purchase"`
	Consumer int64 `json:"consumer"`
	Store    int64 `json:"store"`
}

// Lot is a discrete quantity of a product received at a point in time,
// carrying its own cost basis. Count is never negative; a lot with count 0
// stays addressable for audit but is excluded from allocation candidates.
type Lot struct {
	ID                int64
	ProductID         int64
	WarehouseID       int64
	PurchaseInvoiceID int64
	Count             int64
	Price             PriceSet
	OccurredAt        time.Time
	Status            LotStatus
	CreatedBy         int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Quote is the result of a price computation.
type Quote struct {
	Consumer int64 `json:"consumer"`
	Store    int64 `json:"store"`
}

// SaleType distinguishes sales channels on profit entries.
type SaleType string

const (
	SaleTypeRetail SaleType = "retail"
	SaleTypeOnline SaleType = "onlineSales"
)

// Valid reports whether the sale type is supported.
func (t SaleType) Valid() bool {
	return t == SaleTypeRetail || t == SaleTypeOnline
}

// ChangeSetType tags a change set with the operation that produced it.
type ChangeSetType string

const (
	ChangeSetStockSales    ChangeSetType = "stock-sales"
	ChangeSetStockTransfer ChangeSetType = "stock-transfer"
)

// Change is one reversible mutation performed during an allocation run.
// Implementations form a closed set so rollback handling is checked at
// compile time rather than by switching on field-name strings.
type Change interface {
	// TargetLot returns the id of the lot the change applies to.
	TargetLot() int64

	sealed()
}

// CountChange records a lot count mutation with the full old/new pair, not a
// delta, so reversal is exact regardless of intervening reads.
type CountChange struct {
	LotID int64
	Old   int64
	New   int64
}

// WarehouseChange records a lot moving between warehouses.
type WarehouseChange struct {
	LotID int64
	Old   int64
	New   int64
}

// LotInsert records a lot created during the run; rollback deletes it.
type LotInsert struct {
	LotID int64
}

func (c CountChange) TargetLot() int64     { return c.LotID }
func (c WarehouseChange) TargetLot() int64 { return c.LotID }
func (c LotInsert) TargetLot() int64       { return c.LotID }

func (CountChange) sealed()     {}
func (WarehouseChange) sealed() {}
func (LotInsert) sealed()       {}

// ChangeSet is the durable record of one allocation run. Changes are stored
// in application order; rollback replays them in reverse. A set is immutable
// after creation.
type ChangeSet struct {
	ID          int64
	Type        ChangeSetType
	ReferenceID int64
	Changes     []Change
	CreatedAt   time.Time
}

// ProfitEntry is emitted per lot consumed during a sale, for downstream
// profit and margin reporting.
type ProfitEntry struct {
	ID          int64
	SaleType    SaleType
	ReferenceID int64
	LotID       int64
	SalePrice   int64
	Count       int64
	CreatedAt   time.Time
}

// Availability summarises on-hand quantity for a product.
type Availability struct {
	ProductID   int64
	Total       int64
	ByWarehouse map[int64]int64
}

// InWarehouse returns the on-hand quantity in one warehouse.
func (a Availability) InWarehouse(warehouseID int64) int64 {
	return a.ByWarehouse[warehouseID]
}

// Sentinel errors.
var (
	// ErrLotNotFound indicates a referenced lot does not exist. Costing
	// treats it as the zero-price case; everywhere else it propagates.
	ErrLotNotFound = errors.New("inventory: lot not found")
	// ErrChangeSetNotFound indicates a missing ledger entry.
	ErrChangeSetNotFound = errors.New("inventory: change set not found")
	// ErrInvalidQuantity indicates a non-positive requested quantity.
	ErrInvalidQuantity = errors.New("inventory: quantity must be positive")
	// ErrConflict is raised when the atomic commit of an allocation run
	// detects a conflicting concurrent mutation. Callers may retry.
	ErrConflict = errors.New("inventory: concurrent stock mutation")
	// ErrNoLotsDeleted signals that a purchase-invoice cleanup matched
	// nothing when deletions were expected.
	ErrNoLotsDeleted = errors.New("inventory: no lots deleted for purchase invoice")
	// ErrUnknownPricingMethod indicates an unsupported costing policy.
	ErrUnknownPricingMethod = errors.New("inventory: unknown pricing method")
)

// InsufficientStockError rejects a sale or transfer whose requested quantity
// exceeds availability. Raised before any lot is mutated.
type InsufficientStockError struct {
	ProductID   int64
	WarehouseID int64
	Requested   int64
	Available   int64
}

func (e *InsufficientStockError) Error() string {
	if e.WarehouseID != 0 {
		return fmt.Sprintf("inventory: product %d has %d on hand in warehouse %d, requested %d",
			e.ProductID, e.Available, e.WarehouseID, e.Requested)
	}
	return fmt.Sprintf("inventory: product %d has %d on hand, requested %d",
		e.ProductID, e.Available, e.Requested)
}
