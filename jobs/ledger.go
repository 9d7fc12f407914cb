package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/stockledger/internal/dataimport"
	jobmetrics "github.com/odyssey-erp/stockledger/internal/jobs"
	"github.com/odyssey-erp/stockledger/internal/shared"
)

// ImportApplier applies staged batches.
type ImportApplier interface {
	Apply(ctx context.Context, result dataimport.Result, expectedCompanyID string) (dataimport.ApplyResult, error)
}

// SnapshotFlusher rewrites persisted aggregates; no names means all.
type SnapshotFlusher interface {
	Flush(ctx context.Context, aggregates ...string) error
}

// LedgerTasks holds the dependencies of the ledger task handlers.
type LedgerTasks struct {
	Applier   ImportApplier
	Flusher   SnapshotFlusher
	Ledger    LiveLedger
	Snapshots SnapshotReader
	Metrics   *jobmetrics.Metrics
	Logger    *slog.Logger
}

// Handlers lists the task handlers to register on the worker.
func (l *LedgerTasks) Handlers() []TaskHandler {
	return []TaskHandler{
		{Type: TaskImportApply, Handler: l.HandleImportApply},
		{Type: TaskLedgerSnapshot, Handler: l.HandleSnapshot},
		{Type: TaskLedgerIntegrity, Handler: l.HandleIntegrity},
	}
}

// Cron builds the periodic registrations. Blank specs are skipped.
func (l *LedgerTasks) Cron(snapshotSpec, integritySpec string) ([]CronRegistration, error) {
	var out []CronRegistration
	if snapshotSpec != "" {
		task, err := NewLedgerSnapshotTask(time.Now())
		if err != nil {
			return nil, err
		}
		out = append(out, CronRegistration{Spec: snapshotSpec, Task: task})
	}
	if integritySpec != "" {
		task, err := NewLedgerIntegrityTask(time.Now())
		if err != nil {
			return nil, err
		}
		out = append(out, CronRegistration{Spec: integritySpec, Task: task})
	}
	return out, nil
}

// HandleImportApply applies a queued batch as the actor that staged it.
// Rejections by policy or validation are final; a flush warning means the
// batch is committed and is only logged.
func (l *LedgerTasks) HandleImportApply(ctx context.Context, t *asynq.Task) error {
	tracker := l.Metrics.Track(TaskImportApply)
	var payload ImportApplyPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return tracker.End(fmt.Errorf("jobs: decode import payload: %v: %w", err, asynq.SkipRetry))
	}
	ctx = shared.ContextWithActor(ctx, payload.Actor)
	res, err := l.Applier.Apply(ctx, payload.Result, payload.ExpectedCompanyID)
	switch {
	case err == nil:
	case shared.IsWarning(err):
		l.logger().Warn("import applied with warnings", slog.String("batch_id", res.BatchID), slog.Any("error", err))
		err = nil
	case isFinal(err):
		return tracker.End(fmt.Errorf("jobs: import %s: %v: %w", payload.Result.Batch.BatchID, err, asynq.SkipRetry))
	default:
		return tracker.End(fmt.Errorf("jobs: import %s: %w", payload.Result.Batch.BatchID, err))
	}
	l.logger().Info("import applied",
		slog.String("batch_id", res.BatchID),
		slog.Int("rows_applied", res.RowsApplied),
		slog.Int("rows_rejected", res.RowsRejected),
	)
	return tracker.End(nil)
}

// HandleSnapshot rewrites every aggregate.
func (l *LedgerTasks) HandleSnapshot(ctx context.Context, t *asynq.Task) error {
	tracker := l.Metrics.Track(TaskLedgerSnapshot)
	if err := l.Flusher.Flush(ctx); err != nil {
		return tracker.End(fmt.Errorf("jobs: snapshot: %w", err))
	}
	l.logger().Info("ledger snapshot written")
	return tracker.End(nil)
}

// HandleIntegrity compares the live ledger with its persisted copy and
// publishes the number of drifting balances. Drift is reported, not retried.
func (l *LedgerTasks) HandleIntegrity(ctx context.Context, t *asynq.Task) error {
	tracker := l.Metrics.Track(TaskLedgerIntegrity)
	report, err := CheckIntegrity(ctx, l.Ledger, l.Snapshots)
	if err != nil {
		return tracker.End(err)
	}
	l.Metrics.SetIntegrityDrift(len(report.Drift))
	if !report.Clean() {
		l.logger().Warn("ledger integrity drift",
			slog.Int("live_movements", report.LiveMovements),
			slog.Int("stored_movements", report.StoredMovements),
			slog.Int("drifting_balances", len(report.Drift)),
			slog.Any("duplicate_ids", report.DuplicateIDs),
		)
		return tracker.End(nil)
	}
	l.logger().Info("ledger integrity ok", slog.Int("movements", report.LiveMovements))
	return tracker.End(nil)
}

func (l *LedgerTasks) logger() *slog.Logger {
	if l.Logger == nil {
		return slog.Default()
	}
	return l.Logger
}

func isFinal(err error) bool {
	return errors.Is(err, shared.ErrValidation) ||
		errors.Is(err, shared.ErrForbidden) ||
		errors.Is(err, shared.ErrActorRequired) ||
		errors.Is(err, shared.ErrCompanyMismatch)
}
