package dataimport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/stockledger/internal/audit"
	"github.com/odyssey-erp/stockledger/internal/events"
	"github.com/odyssey-erp/stockledger/internal/inventory"
	"github.com/odyssey-erp/stockledger/internal/rbac"
	"github.com/odyssey-erp/stockledger/internal/shared"
)

// Applier writes staged batches to the ledger exactly once per batch id.
type Applier struct {
	mu         sync.Mutex
	ledger     Ledger
	warehouses WarehouseResolver
	audit      AuditPort
	flusher    Flusher
	bus        Publisher
	logger     *slog.Logger
	now        func() time.Time
	newID      func() string
}

// NewApplier constructs an applier. A nil resolver takes warehouse names as
// ids verbatim; audit, flusher and bus may be nil.
func NewApplier(ledger Ledger, warehouses WarehouseResolver, audit AuditPort, flusher Flusher, bus Publisher, logger *slog.Logger) *Applier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Applier{
		ledger:     ledger,
		warehouses: warehouses,
		audit:      audit,
		flusher:    flusher,
		bus:        bus,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
		newID:      uuid.NewString,
	}
}

// Apply appends every applicable staged movement of result in one batch.
// Rows that cannot be applied are reported, never returned as errors. A batch
// id applied before yields a zero-effect result with DUPLICATE_BATCH.
func (a *Applier) Apply(ctx context.Context, result Result, expectedCompanyID string) (ApplyResult, error) {
	companyID := a.ledger.CompanyID()
	actor, err := shared.ActorFromContext(ctx)
	if err != nil {
		return ApplyResult{}, err
	}
	if err := rbac.Authorize(actor, companyID, rbac.ActionDataImport); err != nil {
		return ApplyResult{}, err
	}
	batch := result.Batch
	if batch.CompanyID == "" {
		batch.CompanyID = companyID
	}
	if batch.CompanyID != companyID || (expectedCompanyID != "" && batch.CompanyID != expectedCompanyID) {
		return ApplyResult{}, shared.ErrCompanyMismatch
	}
	if strings.TrimSpace(batch.BatchID) == "" {
		return ApplyResult{}, ErrBatchIDRequired
	}
	if !batch.Kind.Valid() {
		return ApplyResult{}, ErrUnknownKind
	}
	received := batch.RowsReceived
	if n := len(result.Movements) + len(result.Products); received < n {
		received = n
	}

	a.mu.Lock()
	if a.ledger.BatchImported(batch.BatchID) {
		a.mu.Unlock()
		return duplicate(batch.BatchID, received), nil
	}
	out := ApplyResult{BatchID: batch.BatchID, Errors: append([]ImportError{}, batch.Errors...)}
	var movs []inventory.Movement
	if batch.Kind == KindMovements {
		var rejected []ImportError
		movs, rejected = a.build(actor, companyID, result.Movements)
		out.Errors = append(out.Errors, rejected...)
		out.RowsApplied = len(movs)
	} else {
		out.RowsApplied = len(result.Products)
	}
	out.RowsRejected = received - out.RowsApplied

	rec := shared.IdempotencyRecord{
		Key:       batch.BatchID,
		CreatedAt: a.now(),
		Meta: map[string]any{
			"kind":           string(batch.Kind),
			"sourceFileName": batch.SourceFileName,
			"rowsApplied":    out.RowsApplied,
		},
	}
	if err := a.ledger.AppendBatch(rec, movs); err != nil {
		a.mu.Unlock()
		if errors.Is(err, inventory.ErrBatchAlreadyImported) {
			return duplicate(batch.BatchID, received), nil
		}
		return ApplyResult{}, fmt.Errorf("dataimport: append batch: %w", err)
	}
	a.mu.Unlock()

	a.record(ctx, actor, companyID, batch, out)
	evts := []events.Event{BatchApplied{CompanyID: companyID, Batch: batch, Result: out, UserID: actor.UserID}}
	if len(movs) > 0 {
		evts = append(evts, inventory.MovementsAppended{CompanyID: companyID, Source: inventory.SourceImport, Movements: movs})
	}
	return out, a.afterCommit(ctx, evts)
}

func duplicate(batchID string, received int) ApplyResult {
	return ApplyResult{
		BatchID:      batchID,
		RowsApplied:  0,
		RowsRejected: received,
		Errors:       []ImportError{{RowIndex: -1, Code: CodeDuplicateBatch, Message: fmt.Sprintf("batch %s already applied", batchID)}},
	}
}

func (a *Applier) build(actor shared.Actor, companyID string, staged []StagedMovement) ([]inventory.Movement, []ImportError) {
	now := a.now()
	var (
		movs []inventory.Movement
		errs []ImportError
	)
	for _, sm := range staged {
		reject := func(code ErrorCode, field Field, msg string) {
			errs = append(errs, ImportError{RowIndex: sm.RowIndex, Code: code, Field: string(field), Message: msg})
		}
		rejectedBefore := len(errs)
		if strings.TrimSpace(sm.SKU) == "" {
			reject(CodeMissingField, FieldSKU, "sku is required")
		}
		if !sm.Type.Valid() {
			reject(CodeInvalidFormat, FieldType, fmt.Sprintf("unknown movement type %q", sm.Type))
		}
		warehouseID, ok := a.resolve(sm.WarehouseName)
		if !ok {
			reject(CodeWarehouseUnknown, FieldWarehouse, fmt.Sprintf("unknown warehouse %q", sm.WarehouseName))
		}
		if math.IsNaN(sm.Qty) || math.IsInf(sm.Qty, 0) || (sm.Type != inventory.MovementAdjustment && sm.Qty <= 0) {
			reject(CodeQtyInvalid, FieldQty, "quantity is not a valid number")
		}
		occurred, ok := parseDate(sm.OccurredAt)
		if !ok {
			reject(CodeDateInvalid, FieldOccurredAt, fmt.Sprintf("invalid date %q", sm.OccurredAt))
		}
		if sm.Type == inventory.MovementTransfer {
			reject(CodeTransferNoDest, FieldType, "transfers cannot be imported without a destination warehouse")
		}
		if len(errs) > rejectedBefore {
			continue
		}
		mov := inventory.Movement{
			ID:           a.newID(),
			CompanyID:    companyID,
			Type:         sm.Type,
			SKU:          sm.SKU,
			WarehouseID:  warehouseID,
			Qty:          decimal.NewFromFloat(sm.Qty),
			OccurredAt:   occurred,
			CreatedAt:    now,
			CreatedBy:    actor.UserID,
			Source:       inventory.SourceImport,
			DocumentID:   sm.DocumentRef,
			ExternalRefs: sm.ExternalRefs,
		}
		if sm.UnitCost != nil && !math.IsNaN(*sm.UnitCost) && *sm.UnitCost >= 0 {
			mov.UnitCost, mov.TotalCost = inventory.Costs(decimal.NewFromFloat(*sm.UnitCost), mov.Qty)
		}
		movs = append(movs, mov)
	}
	return movs, errs
}

func (a *Applier) resolve(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", false
	}
	if a.warehouses == nil {
		return name, true
	}
	return a.warehouses.ResolveWarehouseID(name)
}

func (a *Applier) record(ctx context.Context, actor shared.Actor, companyID string, batch Batch, out ApplyResult) {
	if a.audit == nil {
		return
	}
	_, err := a.audit.Record(ctx, audit.Entry{
		CompanyID:         companyID,
		EntityType:        "ImportBatch",
		EntityID:          batch.BatchID,
		Action:            string(rbac.ActionDataImport),
		PerformedByUserID: actor.UserID,
		Metadata: map[string]any{
			"batchId":        batch.BatchID,
			"kind":           string(batch.Kind),
			"sourceFileName": batch.SourceFileName,
			"rowsApplied":    out.RowsApplied,
			"rowsRejected":   out.RowsRejected,
		},
	})
	if err != nil {
		a.logger.Warn("import audit", slog.String("batch", batch.BatchID), slog.Any("error", err))
	}
}

func (a *Applier) afterCommit(ctx context.Context, evts []events.Event) error {
	var steps []shared.PostCommitStep
	if a.flusher != nil {
		steps = append(steps, shared.PostCommitStep{
			Op:  "flush ledger,audit",
			Run: func(ctx context.Context) error { return a.flusher.Flush(ctx, "ledger", "audit") },
		})
	}
	if a.bus != nil {
		for _, evt := range evts {
			evt := evt
			steps = append(steps, shared.PostCommitStep{
				Op:  "publish " + evt.EventType(),
				Run: func(ctx context.Context) error { return a.bus.Publish(ctx, evt) },
			})
		}
	}
	return shared.RunPostCommit(ctx, a.logger, steps...)
}
