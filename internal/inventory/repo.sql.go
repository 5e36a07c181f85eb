package inventory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-pos/meridian-pos/internal/platform/db"
)

// Repository persists lots, change sets and profit entries in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// LotPurchasePriceColumn names the acquisition-cost column on lots. Profit
// reporting in other packages joins against it, so the spelling lives here.
const LotPurchasePriceColumn = "price_purchase"

const lotColumns = `id, product_id, warehouse_id, purchase_invoice_id, count,
` + LotPurchasePriceColumn + `, price_consumer, price_store, occurred_at, status, created_by, created_at, updated_at`

func scanLot(row pgx.Row) (Lot, error) {
	var lot Lot
	err := row.Scan(&lot.ID, &lot.ProductID, &lot.WarehouseID, &lot.PurchaseInvoiceID, &lot.Count,
		&lot.Price.Purchase, &lot.Price.Consumer, &lot.Price.Store, &lot.OccurredAt, &lot.Status,
		&lot.CreatedBy, &lot.CreatedAt, &lot.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Lot{}, ErrLotNotFound
		}
		return Lot{}, err
	}
	return lot, nil
}

func collectLots(rows pgx.Rows) ([]Lot, error) {
	defer rows.Close()
	var lots []Lot
	for rows.Next() {
		lot, err := scanLot(rows)
		if err != nil {
			return nil, err
		}
		lots = append(lots, lot)
	}
	return lots, rows.Err()
}

// WithTx executes the callback inside a repeatable-read transaction.
// Serialization failures surface as ErrConflict so callers can retry the
// whole allocation run.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("inventory repository not initialised")
	}
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
	return mapConflict(err)
}

func mapConflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "23505":
			return ErrConflict
		}
	}
	return err
}

func (r *Repository) OldestOnHandLot(ctx context.Context, productID int64) (Lot, error) {
	return scanLot(r.pool.QueryRow(ctx, `SELECT `+lotColumns+` FROM lots
WHERE product_id=$1 AND count > 0 ORDER BY occurred_at ASC, id ASC LIMIT 1`, productID))
}

func (r *Repository) NewestOnHandLot(ctx context.Context, productID int64) (Lot, error) {
	return scanLot(r.pool.QueryRow(ctx, `SELECT `+lotColumns+` FROM lots
WHERE product_id=$1 AND count > 0 ORDER BY occurred_at DESC, id DESC LIMIT 1`, productID))
}

func (r *Repository) MaxPurchaseLot(ctx context.Context, productID int64) (Lot, error) {
	return scanLot(r.pool.QueryRow(ctx, `SELECT `+lotColumns+` FROM lots
WHERE product_id=$1 AND count > 0 ORDER BY `+LotPurchasePriceColumn+` DESC, id ASC LIMIT 1`, productID))
}

func (r *Repository) AllLotsOfProduct(ctx context.Context, productID int64) ([]Lot, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+lotColumns+` FROM lots
WHERE product_id=$1 ORDER BY occurred_at DESC, id DESC`, productID)
	if err != nil {
		return nil, err
	}
	return collectLots(rows)
}

func (r *Repository) Availability(ctx context.Context, productID int64) (Availability, error) {
	rows, err := r.pool.Query(ctx, `SELECT warehouse_id, COALESCE(SUM(count), 0) FROM lots
WHERE product_id=$1 AND count > 0 GROUP BY warehouse_id`, productID)
	if err != nil {
		return Availability{}, err
	}
	defer rows.Close()
	avail := Availability{ProductID: productID, ByWarehouse: map[int64]int64{}}
	for rows.Next() {
		var warehouseID, count int64
		if err := rows.Scan(&warehouseID, &count); err != nil {
			return Availability{}, err
		}
		avail.ByWarehouse[warehouseID] = count
		avail.Total += count
	}
	return avail, rows.Err()
}

func (r *Repository) ListLots(ctx context.Context, filter LotListFilter) ([]Lot, int, error) {
	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = 20
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	var total int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM lots
WHERE ($1 = 0 OR warehouse_id = $1) AND ($2 = 0 OR product_id = $2)`,
		filter.WarehouseID, filter.ProductID).Scan(&total)
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+lotColumns+` FROM lots
WHERE ($1 = 0 OR warehouse_id = $1) AND ($2 = 0 OR product_id = $2)
ORDER BY occurred_at DESC, id DESC LIMIT $3 OFFSET $4`,
		filter.WarehouseID, filter.ProductID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	lots, err := collectLots(rows)
	if err != nil {
		return nil, 0, err
	}
	return lots, total, nil
}

func (r *Repository) GetChangeSet(ctx context.Context, id int64) (ChangeSet, error) {
	return getChangeSet(ctx, r.pool, id)
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func getChangeSet(ctx context.Context, q querier, id int64) (ChangeSet, error) {
	var set ChangeSet
	var raw []byte
	err := q.QueryRow(ctx, `SELECT id, set_type, reference_id, changes, created_at
FROM change_sets WHERE id=$1`, id).Scan(&set.ID, &set.Type, &set.ReferenceID, &raw, &set.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ChangeSet{}, ErrChangeSetNotFound
		}
		return ChangeSet{}, err
	}
	set.Changes, err = DecodeChanges(raw)
	if err != nil {
		return ChangeSet{}, err
	}
	return set, nil
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) CandidateLots(ctx context.Context, productID, warehouseID int64) ([]Lot, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+lotColumns+` FROM lots
WHERE product_id=$1 AND count > 0 AND ($2 = 0 OR warehouse_id = $2)
ORDER BY occurred_at ASC, id ASC
FOR UPDATE`, productID, warehouseID)
	if err != nil {
		return nil, err
	}
	return collectLots(rows)
}

func (r *txRepository) GetLot(ctx context.Context, id int64) (Lot, error) {
	return scanLot(r.tx.QueryRow(ctx, `SELECT `+lotColumns+` FROM lots WHERE id=$1 FOR UPDATE`, id))
}

func (r *txRepository) InsertLot(ctx context.Context, lot Lot) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO lots
(product_id, warehouse_id, purchase_invoice_id, count, price_purchase, price_consumer, price_store,
 occurred_at, status, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
RETURNING id`,
		lot.ProductID, lot.WarehouseID, lot.PurchaseInvoiceID, lot.Count,
		lot.Price.Purchase, lot.Price.Consumer, lot.Price.Store,
		lot.OccurredAt, lot.Status, lot.CreatedBy).Scan(&id)
	return id, err
}

func (r *txRepository) UpdateLot(ctx context.Context, lot Lot) error {
	tag, err := r.tx.Exec(ctx, `UPDATE lots SET warehouse_id=$2, count=$3,
price_purchase=$4, price_consumer=$5, price_store=$6, occurred_at=$7, status=$8, updated_at=NOW()
WHERE id=$1`,
		lot.ID, lot.WarehouseID, lot.Count,
		lot.Price.Purchase, lot.Price.Consumer, lot.Price.Store, lot.OccurredAt, lot.Status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrLotNotFound
	}
	return nil
}

func (r *txRepository) DeleteLot(ctx context.Context, id int64) error {
	tag, err := r.tx.Exec(ctx, `DELETE FROM lots WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrLotNotFound
	}
	return nil
}

func (r *txRepository) SetLotCount(ctx context.Context, lotID, oldCount, newCount int64) error {
	tag, err := r.tx.Exec(ctx, `UPDATE lots SET count=$3, updated_at=NOW()
WHERE id=$1 AND count=$2`, lotID, oldCount, newCount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}

func (r *txRepository) AdjustLotCount(ctx context.Context, lotID, delta int64) error {
	tag, err := r.tx.Exec(ctx, `UPDATE lots SET count = count + $2, updated_at=NOW()
WHERE id=$1`, lotID, delta)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrLotNotFound
	}
	return nil
}

func (r *txRepository) SetLotWarehouse(ctx context.Context, lotID, warehouseID int64) error {
	tag, err := r.tx.Exec(ctx, `UPDATE lots SET warehouse_id=$2, updated_at=NOW()
WHERE id=$1`, lotID, warehouseID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrLotNotFound
	}
	return nil
}

func (r *txRepository) LotsByInvoice(ctx context.Context, invoiceID int64) ([]Lot, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+lotColumns+` FROM lots
WHERE purchase_invoice_id=$1 ORDER BY id ASC FOR UPDATE`, invoiceID)
	if err != nil {
		return nil, err
	}
	return collectLots(rows)
}

func (r *txRepository) DeleteLotsByInvoice(ctx context.Context, invoiceID int64) (int64, error) {
	tag, err := r.tx.Exec(ctx, `DELETE FROM lots WHERE purchase_invoice_id=$1`, invoiceID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *txRepository) Availability(ctx context.Context, productID int64) (Availability, error) {
	rows, err := r.tx.Query(ctx, `SELECT warehouse_id, COALESCE(SUM(count), 0) FROM lots
WHERE product_id=$1 AND count > 0 GROUP BY warehouse_id`, productID)
	if err != nil {
		return Availability{}, err
	}
	defer rows.Close()
	avail := Availability{ProductID: productID, ByWarehouse: map[int64]int64{}}
	for rows.Next() {
		var warehouseID, count int64
		if err := rows.Scan(&warehouseID, &count); err != nil {
			return Availability{}, err
		}
		avail.ByWarehouse[warehouseID] = count
		avail.Total += count
	}
	return avail, rows.Err()
}

func (r *txRepository) InsertChangeSet(ctx context.Context, set ChangeSet) (int64, error) {
	raw, err := EncodeChanges(set.Changes)
	if err != nil {
		return 0, err
	}
	var id int64
	err = r.tx.QueryRow(ctx, `INSERT INTO change_sets (set_type, reference_id, changes, created_at)
VALUES ($1, $2, $3, NOW()) RETURNING id`, set.Type, set.ReferenceID, raw).Scan(&id)
	return id, err
}

func (r *txRepository) GetChangeSet(ctx context.Context, id int64) (ChangeSet, error) {
	return getChangeSet(ctx, r.tx, id)
}

func (r *txRepository) InsertProfitEntry(ctx context.Context, entry ProfitEntry) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO profit_entries
(sale_type, reference_id, lot_id, sale_price, count, created_at)
VALUES ($1, $2, $3, $4, $5, NOW()) RETURNING id`,
		entry.SaleType, entry.ReferenceID, entry.LotID, entry.SalePrice, entry.Count).Scan(&id)
	return id, err
}
