package jobs

import (
	"context"
	"log/slog"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/meridian-pos/meridian-pos/internal/inventory"
)

func TestRollupQueryMatchesLotSchema(t *testing.T) {
	require.Contains(t, rollupQuery, "l."+inventory.LotPurchasePriceColumn)
	require.NotContains(t, rollupQuery, "purchase_price")
}

func TestProfitRollupSkipsMalformedPayload(t *testing.T) {
	rollup := NewProfitRollup(nil, slog.Default())
	task := asynq.NewTask(TaskProfitRollup, []byte("{not json"))
	err := rollup.HandleTask(context.Background(), task)
	require.ErrorIs(t, err, asynq.SkipRetry)
}
