package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskStockIntegrity scans the lot store for invariant violations.
	TaskStockIntegrity = "stock:integrity"
	// TaskProfitRollup folds yesterday's profit entries into daily rollups.
	TaskProfitRollup = "profit:rollup"
)

// StockIntegrityPayload carries scheduling metadata.
type StockIntegrityPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewStockIntegrityTask constructs an Asynq task for the integrity scan.
func NewStockIntegrityTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(StockIntegrityPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStockIntegrity, body, asynq.Queue(QueueDefault)), nil
}

// ProfitRollupPayload selects the day to fold.
type ProfitRollupPayload struct {
	Day time.Time `json:"day"`
}

// NewProfitRollupTask constructs an Asynq task for the daily profit rollup.
func NewProfitRollupTask(day time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(ProfitRollupPayload{Day: day})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskProfitRollup, body, asynq.Queue(QueueDefault)), nil
}
