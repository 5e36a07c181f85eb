package transfers

import "context"

// ListFilter narrows transfer listings.
type ListFilter struct {
	WarehouseID int64
	Status      TransferStatus
	Page        int
	PerPage     int
}

// RepositoryPort describes transfer storage used by Service.
type RepositoryPort interface {
	Create(ctx context.Context, transfer Transfer, lines []Line) (int64, error)
	Get(ctx context.Context, id int64) (Transfer, []Line, error)
	SetStatus(ctx context.Context, id int64, status TransferStatus) error
	SetLineChangeSet(ctx context.Context, lineID, changeSetID int64) error
	List(ctx context.Context, filter ListFilter) ([]Transfer, int, error)
}
