package persist

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/stockledger/internal/audit"
	"github.com/odyssey-erp/stockledger/internal/inventory"
	"github.com/odyssey-erp/stockledger/internal/platform/kv"
	"github.com/odyssey-erp/stockledger/internal/procurement"
	"github.com/odyssey-erp/stockledger/internal/rbac"
	"github.com/odyssey-erp/stockledger/internal/shared"
)

type failingStore struct{ kv.Store }

func (failingStore) PutMany(ctx context.Context, entries map[string][]byte) error {
	return errors.New("disk full")
}

// gatedStore blocks the first PutMany until release is closed.
type gatedStore struct {
	kv.Store
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (g *gatedStore) PutMany(ctx context.Context, entries map[string][]byte) error {
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.entered)
		<-g.release
	}
	return g.Store.PutMany(ctx, entries)
}

func TestFlushAndReload(t *testing.T) {
	ctx := shared.ContextWithActor(context.Background(), shared.Actor{UserID: "u1", Role: string(rbac.RoleAdmin), CompanyID: "acme"})
	store := kv.NewMemory()

	ledger := inventory.NewStore("acme")
	transfers := inventory.NewTransferStore()
	auditStore := audit.NewStore()
	p := New(store, "stockledger", "acme", nil)
	p.Register(ledger, transfers, auditStore, procurement.NewRequestStore(), procurement.NewOrderStore())
	require.Equal(t, []string{"ledger", "transfers", "audit", "purchase_requests", "purchase_orders"}, p.Names())

	svc := inventory.NewService(ledger, transfers, audit.NewService(auditStore, "acme"), p, nil, nil, inventory.ServiceConfig{CompanyID: "acme"})
	_, err := svc.MoveIn(ctx, inventory.MoveInput{SKU: "SKU-1", WarehouseID: "WH-A", Qty: decimal.NewFromInt(7)})
	require.NoError(t, err)

	raw, err := store.Get(context.Background(), "stockledger:acme:ledger")
	require.NoError(t, err)
	require.Contains(t, string(raw), `"companyId":"acme"`)
	_, err = store.Get(context.Background(), "stockledger:acme:purchase_requests")
	require.ErrorIs(t, err, kv.ErrNotFound)

	restored := inventory.NewStore("acme")
	restoredAudit := audit.NewStore()
	reloaded := New(store, "stockledger", "acme", nil)
	reloaded.Register(restored, restoredAudit, procurement.NewRequestStore())
	require.NoError(t, reloaded.Load(context.Background()))
	require.Equal(t, 1, restored.Len())
	require.Equal(t, 1, restoredAudit.Len())
	q := inventory.NewQueryService(restored)
	require.True(t, q.Balance("SKU-1", "WH-A").Equal(decimal.NewFromInt(7)))
}

func TestFlushAllAndRedisBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	store := kv.NewRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	p := New(store, "sl", "acme", nil)
	p.Register(procurement.NewRequestStore(), procurement.NewOrderStore())
	require.NoError(t, p.Flush(context.Background()))

	raw, err := mr.Get("sl:acme:purchase_orders")
	require.NoError(t, err)
	require.JSONEq(t, `{"purchaseOrders":null,"purchaseOrderLines":null}`, raw)
	require.True(t, mr.Exists("sl:acme:purchase_requests"))
}

func TestFlushFailures(t *testing.T) {
	p := New(failingStore{kv.NewMemory()}, "sl", "acme", nil)
	p.Register(audit.NewStore())
	var failed [][]string
	p.OnFailure(func(aggregates []string, err error) { failed = append(failed, aggregates) })

	require.ErrorContains(t, p.Flush(context.Background(), "audit"), "disk full")
	require.ErrorIs(t, p.Flush(context.Background(), "ledger"), ErrUnknownAggregate)
	require.Equal(t, [][]string{{"audit"}, {"ledger"}}, failed)
}

func TestLoadRejectsCorruptBlob(t *testing.T) {
	store := kv.NewMemory()
	require.NoError(t, store.Put(context.Background(), "sl:acme:ledger", []byte("{not json")))
	p := New(store, "sl", "acme", nil)
	p.Register(inventory.NewStore("acme"))
	require.Error(t, p.Load(context.Background()))
}

func TestStoredReadsPersistedBlob(t *testing.T) {
	p := New(kv.NewMemory(), "sl", "acme", nil)
	p.Register(audit.NewStore())

	_, err := p.Stored(context.Background(), "audit")
	require.ErrorIs(t, err, kv.ErrNotFound)

	require.NoError(t, p.Flush(context.Background()))
	raw, err := p.Stored(context.Background(), "audit")
	require.NoError(t, err)
	require.NotEmpty(t, raw)
}

func TestOverlappingFlushesKeepNewestBlob(t *testing.T) {
	store := &gatedStore{Store: kv.NewMemory(), entered: make(chan struct{}), release: make(chan struct{})}
	ledger := inventory.NewStore("acme")
	p := New(store, "sl", "acme", nil)
	p.Register(ledger)

	ledger.Append(inventory.Movement{ID: "m1", CompanyID: "acme", Type: inventory.MovementReceipt, SKU: "A", WarehouseID: "W", Qty: decimal.NewFromInt(1)})
	first := make(chan error, 1)
	go func() { first <- p.Flush(context.Background()) }()
	<-store.entered

	ledger.Append(inventory.Movement{ID: "m2", CompanyID: "acme", Type: inventory.MovementReceipt, SKU: "A", WarehouseID: "W", Qty: decimal.NewFromInt(2)})
	second := make(chan error, 1)
	go func() { second <- p.Flush(context.Background()) }()

	select {
	case err := <-second:
		t.Fatalf("second flush finished while the first was still writing: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
	close(store.release)
	require.NoError(t, <-first)
	require.NoError(t, <-second)

	raw, err := p.Stored(context.Background(), "ledger")
	require.NoError(t, err)
	restored := inventory.NewStore("acme")
	require.NoError(t, restored.RestoreSnapshot(raw))
	require.Equal(t, 2, restored.Len())
}
