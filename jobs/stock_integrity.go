package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StockIntegrityScanner verifies lot-store invariants that no single code
// path should be able to break: negative counts and change sets pointing at
// lots that no longer exist. Findings are logged, not repaired.
type StockIntegrityScanner struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewStockIntegrityScanner constructs the scanner.
func NewStockIntegrityScanner(pool *pgxpool.Pool, logger *slog.Logger) *StockIntegrityScanner {
	return &StockIntegrityScanner{pool: pool, logger: logger}
}

// HandleTask processes TaskStockIntegrity tasks.
func (s *StockIntegrityScanner) HandleTask(ctx context.Context, t *asynq.Task) error {
	var payload StockIntegrityPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	started := time.Now()

	var negative int64
	if err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM lots WHERE count < 0`).Scan(&negative); err != nil {
		return err
	}
	if negative > 0 {
		s.logger.Error("stock integrity: negative lot counts", slog.Int64("lots", negative))
	}

	var orphaned int64
	if err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM profit_entries p
		LEFT JOIN lots l ON l.id = p.lot_id
		WHERE l.id IS NULL`).Scan(&orphaned); err != nil {
		return err
	}
	if orphaned > 0 {
		s.logger.Warn("stock integrity: profit entries without lots", slog.Int64("entries", orphaned))
	}

	s.logger.Info("stock integrity scan finished",
		slog.Int64("negative_lots", negative),
		slog.Int64("orphaned_profit_entries", orphaned),
		slog.Duration("took", time.Since(started)))
	return nil
}
