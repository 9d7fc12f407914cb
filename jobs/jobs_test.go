package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/stockledger/internal/audit"
	"github.com/odyssey-erp/stockledger/internal/dataimport"
	"github.com/odyssey-erp/stockledger/internal/inventory"
	jobmetrics "github.com/odyssey-erp/stockledger/internal/jobs"
	"github.com/odyssey-erp/stockledger/internal/persist"
	"github.com/odyssey-erp/stockledger/internal/platform/kv"
	"github.com/odyssey-erp/stockledger/internal/rbac"
	"github.com/odyssey-erp/stockledger/internal/shared"
)

type harness struct {
	tasks     *LedgerTasks
	ledger    *inventory.Store
	persister *persist.Persister
	kv        *kv.Memory
}

func newHarness(t *testing.T) harness {
	t.Helper()
	store := kv.NewMemory()
	ledger := inventory.NewStore("acme")
	auditStore := audit.NewStore()
	p := persist.New(store, "sl", "acme", nil)
	p.Register(ledger, auditStore)
	applier := dataimport.NewApplier(ledger, nil, audit.NewService(auditStore, "acme"), p, nil, nil)
	return harness{
		tasks: &LedgerTasks{
			Applier:   applier,
			Flusher:   p,
			Ledger:    ledger,
			Snapshots: p,
			Metrics:   jobmetrics.NewMetrics(prometheus.NewRegistry()),
		},
		ledger:    ledger,
		persister: p,
		kv:        store,
	}
}

func stagedBatch() dataimport.Result {
	rows := []dataimport.Row{
		{"sku": "SKU-1", "warehouse": "Central", "qty": 10.0, "date": "2024-03-01"},
		{"sku": "SKU-2", "warehouse": "Central", "qty": 4.0, "date": "2024-03-02"},
		{"sku": "", "warehouse": "Central", "qty": 4.0, "date": "2024-03-02"},
	}
	return dataimport.NewMapper(nil).Map("acme", dataimport.KindMovements, rows, "march.csv")
}

func importTask(t *testing.T, role rbac.Role) *asynq.Task {
	t.Helper()
	task, err := NewImportApplyTask(ImportApplyPayload{
		Result:            stagedBatch(),
		ExpectedCompanyID: "acme",
		Actor:             shared.Actor{UserID: "u-" + string(role), Role: string(role), CompanyID: "acme"},
	})
	require.NoError(t, err)
	return task
}

func TestImportApplyTaskAppliesOnce(t *testing.T) {
	h := newHarness(t)
	task := importTask(t, rbac.RoleProcurement)

	require.NoError(t, h.tasks.HandleImportApply(context.Background(), task))
	require.Equal(t, 2, h.ledger.Len())

	// A redelivered task hits the batch registry and appends nothing.
	require.NoError(t, h.tasks.HandleImportApply(context.Background(), task))
	require.Equal(t, 2, h.ledger.Len())
}

func TestImportApplyTaskFinalErrorsSkipRetry(t *testing.T) {
	h := newHarness(t)

	err := h.tasks.HandleImportApply(context.Background(), importTask(t, rbac.RoleViewer))
	require.ErrorIs(t, err, asynq.SkipRetry)
	require.ErrorIs(t, err, rbac.ErrPolicyDenied)
	require.Zero(t, h.ledger.Len())

	err = h.tasks.HandleImportApply(context.Background(), asynq.NewTask(TaskImportApply, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestNewImportApplyTaskRequiresBatchID(t *testing.T) {
	_, err := NewImportApplyTask(ImportApplyPayload{})
	require.ErrorIs(t, err, dataimport.ErrBatchIDRequired)
}

func TestSnapshotAndIntegrity(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.ledger.Append(inventory.Movement{
		ID: "m-1", CompanyID: "acme", Type: inventory.MovementReceipt,
		SKU: "SKU-1", WarehouseID: "WH-A", Qty: decimal.NewFromInt(5),
	})
	report, err := CheckIntegrity(ctx, h.ledger, h.persister)
	require.NoError(t, err)
	require.False(t, report.Clean())
	require.Equal(t, 1, report.LiveMovements)
	require.Zero(t, report.StoredMovements)
	require.Len(t, report.Drift, 1)
	require.True(t, report.Drift[0].Live.Equal(decimal.NewFromInt(5)))
	require.True(t, report.Drift[0].Stored.IsZero())

	snap, err := NewLedgerSnapshotTask(h.ledger.All()[0].OccurredAt)
	require.NoError(t, err)
	require.NoError(t, h.tasks.HandleSnapshot(ctx, snap))
	require.Contains(t, h.kv.Keys(), "sl:acme:ledger")

	report, err = CheckIntegrity(ctx, h.ledger, h.persister)
	require.NoError(t, err)
	require.True(t, report.Clean())

	check, err := NewLedgerIntegrityTask(h.ledger.All()[0].OccurredAt)
	require.NoError(t, err)
	require.NoError(t, h.tasks.HandleIntegrity(ctx, check))
}

func TestIntegrityFlagsDuplicateIDs(t *testing.T) {
	h := newHarness(t)
	mov := inventory.Movement{ID: "m-1", CompanyID: "acme", Type: inventory.MovementReceipt, SKU: "SKU-1", WarehouseID: "WH-A", Qty: decimal.NewFromInt(1)}
	h.ledger.Append(mov, mov)
	require.NoError(t, h.persister.Flush(context.Background()))

	report, err := CheckIntegrity(context.Background(), h.ledger, h.persister)
	require.NoError(t, err)
	require.Equal(t, []string{"m-1"}, report.DuplicateIDs)
	require.Empty(t, report.Drift)
	require.False(t, report.Clean())
}

func TestSnapshotFailureIsRetried(t *testing.T) {
	h := newHarness(t)
	h.tasks.Flusher = failingFlusher{}
	err := h.tasks.HandleSnapshot(context.Background(), asynq.NewTask(TaskLedgerSnapshot, nil))
	require.Error(t, err)
	require.NotErrorIs(t, err, asynq.SkipRetry)
}

type failingFlusher struct{}

func (failingFlusher) Flush(ctx context.Context, aggregates ...string) error {
	return errors.New("kv down")
}

func TestCronRegistrations(t *testing.T) {
	h := newHarness(t)
	regs, err := h.tasks.Cron("@every 1h", "")
	require.NoError(t, err)
	require.Len(t, regs, 1)
	require.Equal(t, TaskLedgerSnapshot, regs[0].Task.Type())

	regs, err = h.tasks.Cron("@every 1h", "0 3 * * *")
	require.NoError(t, err)
	require.Len(t, regs, 2)
	require.Equal(t, TaskLedgerIntegrity, regs[1].Task.Type())

	require.Len(t, h.tasks.Handlers(), 3)
}

func TestClientEnqueueApplyDedupesPendingBatch(t *testing.T) {
	mr := miniredis.RunT(t)
	client := NewClient(asynq.RedisClientOpt{Addr: mr.Addr()}, "acme")
	defer client.Close()

	result := stagedBatch()
	actor := shared.Actor{UserID: "u1", Role: string(rbac.RoleProcurement), CompanyID: "acme"}
	id, err := client.EnqueueApply(context.Background(), result, actor)
	require.NoError(t, err)
	require.Equal(t, "import:"+result.Batch.BatchID, id)

	again, err := client.EnqueueApply(context.Background(), result, actor)
	require.NoError(t, err)
	require.Equal(t, id, again)

	_, err = client.Trigger(context.Background(), "mail:send")
	require.ErrorIs(t, err, ErrUnsupportedTask)
}

type fakeInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (f fakeInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	return f.info, f.err
}

func TestHealthHandler(t *testing.T) {
	cases := []struct {
		name      string
		inspector QueueInspector
		status    int
		pending   int
	}{
		{name: "no inspector", status: http.StatusOK},
		{name: "queue info", inspector: fakeInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 4}}, status: http.StatusOK, pending: 4},
		{name: "redis down", inspector: fakeInspector{err: errors.New("dial tcp")}, status: http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewHandler(tc.inspector, nil)
			rec := httptest.NewRecorder()
			h.health(rec, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
			require.Equal(t, tc.status, rec.Code)
			if tc.status != http.StatusOK {
				return
			}
			var body queueHealth
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			require.Equal(t, QueueDefault, body.Queue)
			require.Equal(t, tc.pending, body.Pending)
		})
	}
}
