package profit

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-pos/meridian-pos/internal/inventory"
)

// Repository provides PostgreSQL backed reads over the profit ledger.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const filterClause = `
	WHERE ($1 = '' OR p.sale_type = $1)
	  AND ($2 = 0 OR l.product_id = $2)
	  AND ($3::timestamptz IS NULL OR p.created_at >= $3)
	  AND ($4::timestamptz IS NULL OR p.created_at < $4)`

// Acquisition cost comes from the joined lot; the column name is owned by the
// inventory package so the two cannot drift apart.
const (
	listQuery = `
		SELECT p.id, p.sale_type, p.reference_id, p.lot_id, l.product_id,
		       p.sale_price, l.` + inventory.LotPurchasePriceColumn + `, p.count, p.created_at
		FROM profit_entries p
		JOIN lots l ON l.id = p.lot_id` + filterClause + `
		ORDER BY p.created_at DESC, p.id DESC`

	summarizeQuery = `
		SELECT p.sale_type,
		       COALESCE(SUM(p.count), 0),
		       COALESCE(SUM(p.sale_price * p.count), 0),
		       COALESCE(SUM(l.` + inventory.LotPurchasePriceColumn + ` * p.count), 0)
		FROM profit_entries p
		JOIN lots l ON l.id = p.lot_id` + filterClause + `
		GROUP BY p.sale_type
		ORDER BY p.sale_type`
)

func (f Filter) args() []any {
	var from, to any
	if !f.From.IsZero() {
		from = f.From
	}
	if !f.To.IsZero() {
		to = f.To
	}
	return []any{string(f.SaleType), f.ProductID, from, to}
}

func (r *Repository) List(ctx context.Context, filter Filter) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, listQuery, filter.args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.SaleType, &e.ReferenceID, &e.LotID, &e.ProductID,
			&e.SalePrice, &e.PurchasePrice, &e.Count, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *Repository) Summarize(ctx context.Context, filter Filter) ([]Summary, error) {
	rows, err := r.pool.Query(ctx, summarizeQuery, filter.args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []Summary
	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.SaleType, &s.Units, &s.Revenue, &s.Cost); err != nil {
			return nil, err
		}
		s.Profit = s.Revenue - s.Cost
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return summaries, nil
}
