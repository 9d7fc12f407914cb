package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/stockledger/internal/inventory"
	"github.com/odyssey-erp/stockledger/internal/platform/kv"
	"github.com/odyssey-erp/stockledger/internal/rbac"
)

func testConfig() *Config {
	return &Config{
		AppEnv:        "test",
		CompanyID:     "acme",
		StoreDriver:   kv.DriverMemory,
		KVPrefix:      "sl",
		AutoReceipt:   true,
		SnapshotCron:  "@every 1h",
		IntegrityCron: "15 3 * * *",
	}
}

func call(h http.Handler, method, target, role, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if role != "" {
		req.Header.Set(rbac.HeaderActorUser, "u-"+role)
		req.Header.Set(rbac.HeaderActorRole, role)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestContainerEndToEnd(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	c, err := BuildWithStore(ctx, testConfig(), nil, store)
	require.NoError(t, err)
	h := c.Router()

	rec := call(h, http.MethodGet, "/healthz", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	require.NotEmpty(t, rec.Header().Get("X-Frame-Options"))

	rec = call(h, http.MethodPost, "/purchase-requests", "procurement", `{"id":"PR-1","warehouseId":"WH-A","items":[{"code":"SKU-1","desc":"Bolts","totalQty":"40"}]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	for _, step := range []struct{ role, body string }{
		{"procurement", `{"from":"draft","to":"submitted"}`},
		{"manager", `{"from":"submitted","to":"under_review"}`},
		{"manager", `{"from":"under_review","to":"approved"}`},
	} {
		rec = call(h, http.MethodPost, "/purchase-requests/PR-1/transition", step.role, step.body)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
	rec = call(h, http.MethodPost, "/purchase-requests/PR-1/convert", "procurement", "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Empty(t, rec.Header().Get("X-Ledger-Warning"))

	// Conversion books the order lines as receipts.
	rec = call(h, http.MethodGet, "/ledger/balance?sku=SKU-1&warehouse=WH-A", "viewer", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"qty":"40"`)

	rec = call(h, http.MethodPost, "/imports/stage", "manager", `{"kind":"movements","sourceFileName":"march.json","rows":[{"sku":"SKU-1","warehouse":"WH-A","type":"salida","qty":15,"date":"2024-03-01"}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	staged := rec.Body.Bytes()
	rec = call(h, http.MethodPost, "/imports/apply", "manager", string(staged))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = call(h, http.MethodGet, "/ledger/kardex?sku=SKU-1&warehouse=WH-A", "viewer", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var kardex []inventory.KardexEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &kardex))
	require.Len(t, kardex, 2)
	require.Equal(t, "25", kardex[len(kardex)-1].RunningBalance.String())

	rec = call(h, http.MethodGet, "/audit?entity=PurchaseRequest", "viewer", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = call(h, http.MethodGet, "/audit", "", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = call(h, http.MethodGet, "/policy/", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "PR_CONVERT_TO_PO")

	rec = call(h, http.MethodGet, "/jobs/health", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = call(h, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, `stockledger_movements_appended_total{source="erp",type="receipt"} 1`)
	require.Contains(t, body, `stockledger_movements_appended_total{source="import",type="issue"} 1`)
	require.Contains(t, body, `stockledger_import_rows_total{kind="movements",outcome="applied"} 1`)

	worker, err := c.Worker()
	require.NoError(t, err)
	require.Nil(t, worker)
	require.NoError(t, c.Close(ctx))

	// A second process on the same store sees the same ledger.
	restarted, err := BuildWithStore(ctx, testConfig(), nil, store)
	require.NoError(t, err)
	require.Equal(t, c.Ledger.Len(), restarted.Ledger.Len())
	bal := restarted.Inventory.Query().Balance("SKU-1", "WH-A")
	require.Equal(t, "25", bal.String())
	_, err = restarted.Procurement.Get("PR-1")
	require.NoError(t, err)
}

func TestRouterRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitPerMinute = 2
	c, err := BuildWithStore(context.Background(), cfg, nil, kv.NewMemory())
	require.NoError(t, err)
	h := c.Router()
	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, call(h, http.MethodGet, "/healthz", "", "").Code)
	}
	require.Equal(t, http.StatusTooManyRequests, call(h, http.MethodGet, "/healthz", "", "").Code)
}

type downStore struct{ kv.Store }

func (downStore) Ping(ctx context.Context) error { return context.DeadlineExceeded }

func TestHealthzReportsStoreOutage(t *testing.T) {
	c, err := BuildWithStore(context.Background(), testConfig(), nil, downStore{kv.NewMemory()})
	require.NoError(t, err)
	rec := call(c.Router(), http.MethodGet, "/healthz", "", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestBuildRejectsMissingMasterData(t *testing.T) {
	cfg := testConfig()
	cfg.MasterDataFile = "does-not-exist.json"
	_, err := BuildWithStore(context.Background(), cfg, nil, kv.NewMemory())
	require.Error(t, err)
}
