package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/stockledger/internal/dataimport"
	"github.com/odyssey-erp/stockledger/internal/shared"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskImportApply applies a staged import batch.
	TaskImportApply = "import:apply"
	// TaskLedgerSnapshot rewrites every persisted aggregate.
	TaskLedgerSnapshot = "ledger:snapshot"
	// TaskLedgerIntegrity compares live balances with the persisted ledger.
	TaskLedgerIntegrity = "ledger:integrity"
)

// ImportApplyPayload carries a staged batch and the identity that staged it.
type ImportApplyPayload struct {
	Result            dataimport.Result `json:"result"`
	ExpectedCompanyID string            `json:"expectedCompanyId"`
	Actor             shared.Actor      `json:"actor"`
}

// ScheduledPayload carries scheduling metadata for periodic ledger tasks.
type ScheduledPayload struct {
	RequestedAt time.Time `json:"requested_at"`
}

// NewImportApplyTask constructs an import task. The batch id doubles as the
// task id so a batch cannot be queued twice while pending.
func NewImportApplyTask(payload ImportApplyPayload) (*asynq.Task, error) {
	if payload.Result.Batch.BatchID == "" {
		return nil, dataimport.ErrBatchIDRequired
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("jobs: encode import payload: %w", err)
	}
	return asynq.NewTask(TaskImportApply, body,
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(3),
		asynq.TaskID(importTaskID(payload.Result.Batch.BatchID)),
	), nil
}

func importTaskID(batchID string) string {
	return "import:" + batchID
}

// NewLedgerSnapshotTask constructs a snapshot task.
func NewLedgerSnapshotTask(at time.Time) (*asynq.Task, error) {
	return newScheduledTask(TaskLedgerSnapshot, at)
}

// NewLedgerIntegrityTask constructs an integrity check task.
func NewLedgerIntegrityTask(at time.Time) (*asynq.Task, error) {
	return newScheduledTask(TaskLedgerIntegrity, at)
}

func newScheduledTask(typ string, at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(ScheduledPayload{RequestedAt: at.UTC()})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(typ, body, asynq.Queue(QueueDefault), asynq.MaxRetry(1)), nil
}
