package purchases

import (
	"errors"
	"time"

	"github.com/meridian-pos/meridian-pos/internal/inventory"
)

// Purchase invoice lifecycle statuses.
type InvoiceStatus string

const (
	StatusDraft     InvoiceStatus = "DRAFT"
	StatusCompleted InvoiceStatus = "COMPLETED"
	StatusCancelled InvoiceStatus = "CANCELLED"
)

// Invoice is a purchase document. Completing it materialises one stock lot
// per line; later edits and deletion keep those lots in sync.
type Invoice struct {
	ID          int64
	Number      string
	SupplierID  int64
	WarehouseID int64
	Status      InvoiceStatus
	Total       int64
	OccurredAt  time.Time
	CreatedBy   int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Line is one product line of an invoice.
type Line struct {
	ID        int64
	InvoiceID int64
	ProductID int64
	Count     int64
	Price     inventory.PriceSet
}

var (
	// ErrNotFound indicates record missing.
	ErrNotFound = errors.New("purchases: not found")
	// ErrInvalidState occurs when action violates status workflow.
	ErrInvalidState = errors.New("purchases: invalid state transition")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("purchases: invalid input")
)
