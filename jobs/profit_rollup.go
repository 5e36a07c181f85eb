package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-pos/meridian-pos/internal/inventory"
)

// ProfitRollup folds a day's profit entries into one row per sale type so
// reporting doesn't rescan the ledger. Re-running a day overwrites its rows.
type ProfitRollup struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewProfitRollup constructs the rollup job.
func NewProfitRollup(pool *pgxpool.Pool, logger *slog.Logger) *ProfitRollup {
	return &ProfitRollup{pool: pool, logger: logger}
}

const rollupQuery = `
	INSERT INTO profit_rollups (day, sale_type, units, revenue, cost)
	SELECT $1::date, p.sale_type,
	       COALESCE(SUM(p.count), 0),
	       COALESCE(SUM(p.sale_price * p.count), 0),
	       COALESCE(SUM(l.` + inventory.LotPurchasePriceColumn + ` * p.count), 0)
	FROM profit_entries p
	JOIN lots l ON l.id = p.lot_id
	WHERE p.created_at >= $1 AND p.created_at < $1::date + INTERVAL '1 day'
	GROUP BY p.sale_type
	ON CONFLICT (day, sale_type) DO UPDATE
	SET units = EXCLUDED.units, revenue = EXCLUDED.revenue, cost = EXCLUDED.cost`

// HandleTask processes TaskProfitRollup tasks.
func (p *ProfitRollup) HandleTask(ctx context.Context, t *asynq.Task) error {
	var payload ProfitRollupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	day := payload.Day
	if day.IsZero() {
		day = time.Now().UTC().AddDate(0, 0, -1)
	}
	day = day.Truncate(24 * time.Hour)

	tag, err := p.pool.Exec(ctx, rollupQuery, day)
	if err != nil {
		return err
	}
	p.logger.Info("profit rollup finished",
		slog.Time("day", day), slog.Int64("rows", tag.RowsAffected()))
	return nil
}
