package dataimport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/stockledger/internal/rbac"
	"github.com/odyssey-erp/stockledger/internal/shared"
)

type stubEnqueuer struct {
	results []Result
	actors  []shared.Actor
}

func (e *stubEnqueuer) EnqueueApply(ctx context.Context, result Result, actor shared.Actor) (string, error) {
	e.results = append(e.results, result)
	e.actors = append(e.actors, actor)
	return "task-1", nil
}

func newImportRouter(f applyFixture, enq Enqueuer) http.Handler {
	m := rbac.Middleware{CompanyID: "acme"}
	r := chi.NewRouter()
	r.Use(m.Actor)
	NewHandler(nil, NewMapper(nil), f.applier, enq, m).MountRoutes(r)
	return r
}

func send(h http.Handler, target, role, contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if role != "" {
		req.Header.Set(rbac.HeaderActorUser, "u-"+role)
		req.Header.Set(rbac.HeaderActorRole, role)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHTTPStageThenApply(t *testing.T) {
	f := newApplyFixture(t, nil)
	h := newImportRouter(f, nil)

	rec := send(h, "/imports/stage", "procurement", "application/json",
		`{"kind":"movements","sourceFileName":"feb.xlsx","rows":[{"SKU":"A-1","Bodega":"Central","Cantidad":5,"Fecha":"2024-02-01"},{"SKU":"A-2"}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var staged Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &staged))
	require.Equal(t, 1, staged.Summary.ValidCount)
	require.Equal(t, "acme", staged.Batch.CompanyID)

	rec = send(h, "/imports/apply", "procurement", "application/json", rec.Body.String())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out ApplyResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Equal(t, 1, out.RowsApplied)
	require.Equal(t, 1, f.store.Len())
}

func TestHTTPStageCSV(t *testing.T) {
	f := newApplyFixture(t, nil)
	h := newImportRouter(f, nil)
	rec := send(h, "/imports/stage?kind=products&file=p.csv", "admin", "text/csv", "codigo,nombre\nP-1,Tuerca\n")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Contains(t, rec.Body.String(), `"name":"Tuerca"`)

	rec = send(h, "/imports/stage", "admin", "text/csv", "codigo,nombre\nP-1,Tuerca\n")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHTTPApplyAsync(t *testing.T) {
	f := newApplyFixture(t, nil)
	enq := &stubEnqueuer{}
	h := newImportRouter(f, enq)
	staged := NewMapper(nil).Map("acme", KindMovements, scenarioRows(), "")
	body, err := json.Marshal(staged)
	require.NoError(t, err)

	rec := send(h, "/imports/apply?async=1", "manager", "application/json", string(body))
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Contains(t, rec.Body.String(), `"taskId":"task-1"`)
	require.Len(t, enq.results, 1)
	require.Equal(t, staged.Batch.BatchID, enq.results[0].Batch.BatchID)
	require.Equal(t, "u-manager", enq.actors[0].UserID)
	require.Zero(t, f.store.Len())
}

func TestHTTPImportRequiresPermission(t *testing.T) {
	f := newApplyFixture(t, nil)
	h := newImportRouter(f, nil)
	rec := send(h, "/imports/stage", "viewer", "application/json", `{"kind":"movements","rows":[]}`)
	require.Equal(t, http.StatusForbidden, rec.Code)
	rec = send(h, "/imports/apply", "", "application/json", `{}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
