package sales

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-pos/meridian-pos/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Create(ctx context.Context, invoice Invoice, lines []Line) (int64, error) {
	var id int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO sales_invoices (number, customer_id, sale_type, status, total, occurred_at, created_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id`,
			invoice.Number, invoice.CustomerID, invoice.Type, invoice.Status,
			invoice.Total, invoice.OccurredAt, invoice.CreatedBy).Scan(&id)
		if err != nil {
			return err
		}
		for _, line := range lines {
			if _, err := tx.Exec(ctx, `
				INSERT INTO sales_invoice_lines (invoice_id, product_id, warehouse_id, count, sale_price)
				VALUES ($1, $2, $3, $4, $5)`,
				id, line.ProductID, line.WarehouseID, line.Count, line.SalePrice); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *Repository) Get(ctx context.Context, id int64) (Invoice, []Line, error) {
	var inv Invoice
	err := r.pool.QueryRow(ctx, `
		SELECT id, number, customer_id, sale_type, status, total, occurred_at, created_by, created_at, updated_at
		FROM sales_invoices WHERE id = $1`, id).
		Scan(&inv.ID, &inv.Number, &inv.CustomerID, &inv.Type, &inv.Status,
			&inv.Total, &inv.OccurredAt, &inv.CreatedBy, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invoice{}, nil, ErrNotFound
		}
		return Invoice{}, nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, invoice_id, product_id, warehouse_id, count, sale_price, COALESCE(change_set_id, 0)
		FROM sales_invoice_lines WHERE invoice_id = $1 ORDER BY id`, id)
	if err != nil {
		return Invoice{}, nil, err
	}
	defer rows.Close()
	var lines []Line
	for rows.Next() {
		var line Line
		if err := rows.Scan(&line.ID, &line.InvoiceID, &line.ProductID, &line.WarehouseID,
			&line.Count, &line.SalePrice, &line.ChangeSetID); err != nil {
			return Invoice{}, nil, err
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return Invoice{}, nil, err
	}
	return inv, lines, nil
}

func (r *Repository) SetStatus(ctx context.Context, id int64, status InvoiceStatus) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE sales_invoices SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) SetLineChangeSet(ctx context.Context, lineID, changeSetID int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE sales_invoice_lines SET change_set_id = $2 WHERE id = $1`, lineID, changeSetID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Invoice, int, error) {
	const base = `FROM sales_invoices
		WHERE ($1 = 0 OR customer_id = $1)
		  AND ($2 = '' OR status = $2)`

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) `+base, filter.CustomerID, string(filter.Status)).Scan(&total); err != nil {
		return nil, 0, err
	}

	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = 20
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, number, customer_id, sale_type, status, total, occurred_at, created_by, created_at, updated_at `+
		base+` ORDER BY occurred_at DESC, id DESC LIMIT $3 OFFSET $4`,
		filter.CustomerID, string(filter.Status), perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var invoices []Invoice
	for rows.Next() {
		var inv Invoice
		if err := rows.Scan(&inv.ID, &inv.Number, &inv.CustomerID, &inv.Type, &inv.Status,
			&inv.Total, &inv.OccurredAt, &inv.CreatedBy, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
			return nil, 0, err
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return invoices, total, nil
}
