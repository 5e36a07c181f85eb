package purchases

import "context"

// ListFilter narrows invoice listings.
type ListFilter struct {
	SupplierID int64
	Status     InvoiceStatus
	Page       int
	PerPage    int
}

// RepositoryPort describes invoice storage used by Service.
type RepositoryPort interface {
	Create(ctx context.Context, invoice Invoice, lines []Line) (int64, error)
	Get(ctx context.Context, id int64) (Invoice, []Line, error)
	Update(ctx context.Context, invoice Invoice, lines []Line) error
	SetStatus(ctx context.Context, id int64, status InvoiceStatus) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter ListFilter) ([]Invoice, int, error)
}
