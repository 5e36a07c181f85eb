package transfers

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

func (r *Repository) Create(ctx context.Context, transfer Transfer, lines []Line) (int64, error) {
	var id int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO stock_transfers (number, source_warehouse_id, destination_warehouse_id, status, note, occurred_at, created_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id`,
			transfer.Number, transfer.SourceWarehouseID, transfer.DestinationWarehouseID,
			transfer.Status, transfer.Note, transfer.OccurredAt, transfer.CreatedBy).Scan(&id)
		if err != nil {
			return err
		}
		for _, line := range lines {
			if _, err := tx.Exec(ctx, `
				INSERT INTO stock_transfer_lines (transfer_id, product_id, count)
				VALUES ($1, $2, $3)`,
				id, line.ProductID, line.Count); err != nil {
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

func (r *Repository) Get(ctx context.Context, id int64) (Transfer, []Line, error) {
	var tr Transfer
	err := r.pool.QueryRow(ctx, `
		SELECT id, number, source_warehouse_id, destination_warehouse_id, status, note, occurred_at, created_by, created_at, updated_at
		FROM stock_transfers WHERE id = $1`, id).
		Scan(&tr.ID, &tr.Number, &tr.SourceWarehouseID, &tr.DestinationWarehouseID,
			&tr.Status, &tr.Note, &tr.OccurredAt, &tr.CreatedBy, &tr.CreatedAt, &tr.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transfer{}, nil, ErrNotFound
		}
		return Transfer{}, nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, transfer_id, product_id, count, COALESCE(change_set_id, 0)
		FROM stock_transfer_lines WHERE transfer_id = $1 ORDER BY id`, id)
	if err != nil {
		return Transfer{}, nil, err
	}
	defer rows.Close()
	var lines []Line
	for rows.Next() {
		var line Line
		if err := rows.Scan(&line.ID, &line.TransferID, &line.ProductID, &line.Count, &line.ChangeSetID); err != nil {
			return Transfer{}, nil, err
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return Transfer{}, nil, err
	}
	return tr, lines, nil
}

func (r *Repository) SetStatus(ctx context.Context, id int64, status TransferStatus) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE stock_transfers SET status = $2, updated_at = now() WHERE id = $1`, id, status)
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
		UPDATE stock_transfer_lines SET change_set_id = $2 WHERE id = $1`, lineID, changeSetID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Transfer, int, error) {
	const base = `FROM stock_transfers
		WHERE ($1 = 0 OR source_warehouse_id = $1 OR destination_warehouse_id = $1)
		  AND ($2 = '' OR status = $2)`

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) `+base, filter.WarehouseID, string(filter.Status)).Scan(&total); err != nil {
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
		SELECT id, number, source_warehouse_id, destination_warehouse_id, status, note, occurred_at, created_by, created_at, updated_at `+
		base+` ORDER BY occurred_at DESC, id DESC LIMIT $3 OFFSET $4`,
		filter.WarehouseID, string(filter.Status), perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var transfers []Transfer
	for rows.Next() {
		var tr Transfer
		if err := rows.Scan(&tr.ID, &tr.Number, &tr.SourceWarehouseID, &tr.DestinationWarehouseID,
			&tr.Status, &tr.Note, &tr.OccurredAt, &tr.CreatedBy, &tr.CreatedAt, &tr.UpdatedAt); err != nil {
			return nil, 0, err
		}
		transfers = append(transfers, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return transfers, total, nil
}
