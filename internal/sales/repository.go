package sales

import "context"

// ListFilter narrows invoice listings.
type ListFilter struct {
	CustomerID int64
	Status     InvoiceStatus
	Page       int
	PerPage    int
}

// RepositoryPort describes invoice storage used by Service.
type RepositoryPort interface {
	Create(ctx context.Context, invoice Invoice, lines []Line) (int64, error)
	Get(ctx context.Context, id int64) (Invoice, []Line, error)
	SetStatus(ctx context.Context, id int64, status InvoiceStatus) error
	SetLineChangeSet(ctx context.Context, lineID, changeSetID int64) error
	List(ctx context.Context, filter ListFilter) ([]Invoice, int, error)
}
