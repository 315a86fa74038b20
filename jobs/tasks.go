package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/precifica/internal/shared"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskHistoryRefresh re-derives AUTO_HISTORICAL markup profiles from the ledger.
	TaskHistoryRefresh = "markup:history_refresh"
	// TaskIdempotencyCleanup prunes expired Idempotency-Key records.
	TaskIdempotencyCleanup = "maintenance:idempotency_cleanup"
)

// HistoryRefreshPayload selects the month to refresh. A zero period means the current
// month at execution time.
type HistoryRefreshPayload struct {
	Year  int `json:"year,omitempty"`
	Month int `json:"month,omitempty"`
}

// Period returns the requested period, or false when the payload targets the current month.
func (p HistoryRefreshPayload) Period() (shared.Period, bool, error) {
	if p.Year == 0 && p.Month == 0 {
		return shared.Period{}, false, nil
	}
	period, err := shared.NewPeriod(p.Year, p.Month)
	if err != nil {
		return shared.Period{}, false, err
	}
	return period, true, nil
}

// NewHistoryRefreshTask constructs the refresh task.
func NewHistoryRefreshTask(payload HistoryRefreshPayload) (*asynq.Task, error) {
	if _, _, err := payload.Period(); err != nil {
		return nil, fmt.Errorf("history refresh task: %w", err)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskHistoryRefresh, body, asynq.Queue(QueueDefault), asynq.MaxRetry(3)), nil
}

// NewIdempotencyCleanupTask constructs the key pruning task.
func NewIdempotencyCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskIdempotencyCleanup, nil, asynq.Queue(QueueDefault), asynq.MaxRetry(1))
}
