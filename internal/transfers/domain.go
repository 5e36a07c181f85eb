package transfers

import (
	"errors"
	"time"
)

// Stock transfer lifecycle statuses.
type TransferStatus string

const (
	StatusDraft     TransferStatus = "DRAFT"
	StatusCompleted TransferStatus = "COMPLETED"
	StatusReverted  TransferStatus = "REVERTED"
)

// Transfer is a stock transfer document between two warehouses. Completing
// it moves lots oldest-first for every line; reverting replays the recorded
// change sets.
type Transfer struct {
	ID                     int64
	Number                 string
	SourceWarehouseID      int64
	DestinationWarehouseID int64
	Status                 TransferStatus
	Note                   string
	OccurredAt             time.Time
	CreatedBy              int64
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// Line is one product line. ChangeSetID is zero until completion.
type Line struct {
	ID          int64
	TransferID  int64
	ProductID   int64
	Count       int64
	ChangeSetID int64
}

var (
	// ErrNotFound indicates record missing.
	ErrNotFound = errors.New("transfers: not found")
	// ErrInvalidState occurs when action violates status workflow.
	ErrInvalidState = errors.New("transfers: invalid state transition")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("transfers: invalid input")
)
