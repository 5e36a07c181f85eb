package sales

import (
	"errors"
	"time"

	"github.com/meridian-pos/meridian-pos/internal/inventory"
)

// Sales invoice lifecycle statuses.
type InvoiceStatus string

const (
	StatusDraft    InvoiceStatus = "DRAFT"
	StatusPosted   InvoiceStatus = "POSTED"
	StatusReversed InvoiceStatus = "REVERSED"
)

// Invoice is a sales document. Posting it consumes stock oldest-first for
// every line; reversing restores the allocation from the recorded change
// sets.
type Invoice struct {
	ID         int64
	Number     string
	CustomerID int64
	Type       inventory.SaleType
	Status     InvoiceStatus
	Total      int64
	OccurredAt time.Time
	CreatedBy  int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Line is one product line. ChangeSetID is zero until the line is posted,
// then holds the ledger entry that undoing the sale replays.
type Line struct {
	ID          int64
	InvoiceID   int64
	ProductID   int64
	WarehouseID int64
	Count       int64
	SalePrice   int64
	ChangeSetID int64
}

var (
	// ErrNotFound indicates record missing.
	ErrNotFound = errors.New("sales: not found")
	// ErrInvalidState occurs when action violates status workflow.
	ErrInvalidState = errors.New("sales: invalid state transition")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("sales: invalid input")
)
