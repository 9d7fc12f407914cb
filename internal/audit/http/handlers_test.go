package audithttp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/stockledger/internal/audit"
	"github.com/odyssey-erp/stockledger/internal/shared"
)

type stubTimelineService struct {
	result      audit.Result
	lastFilters audit.TimelineFilters
}

func (s *stubTimelineService) Timeline(ctx context.Context, filters audit.TimelineFilters) (audit.Result, error) {
	s.lastFilters = filters
	return s.result, nil
}

func serve(t *testing.T, svc *stubTimelineService, target string, withActor bool) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	NewHandler(nil, svc).MountRoutes(r)
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if withActor {
		req = req.WithContext(shared.ContextWithActor(req.Context(), shared.Actor{UserID: "u1", Role: "viewer", CompanyID: "acme"}))
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestTimelineRequiresActor(t *testing.T) {
	rec := serve(t, &stubTimelineService{}, "/audit", false)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTimelineParsesFilters(t *testing.T) {
	svc := &stubTimelineService{result: audit.Result{
		Rows:   []audit.Entry{{ID: "1", EntityType: "PurchaseRequest", EntityID: "pr-1", Action: "PR_SUBMIT"}},
		Paging: audit.PagingInfo{Page: 2, PageSize: 10},
	}}
	rec := serve(t, svc, "/audit?entity=PurchaseRequest&entity_id=pr-1&action=PR_SUBMIT&actor=ana&page=2&page_size=10&from=2024-03-01&to=2024-03-31", true)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "PurchaseRequest", svc.lastFilters.EntityType)
	require.Equal(t, "pr-1", svc.lastFilters.EntityID)
	require.Equal(t, "ana", svc.lastFilters.Actor)
	require.Equal(t, 2, svc.lastFilters.Page)
	require.Equal(t, 10, svc.lastFilters.PageSize)
	require.Equal(t, 31, svc.lastFilters.To.Day())

	var body audit.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Rows, 1)
}

func TestTimelineRejectsBadFilters(t *testing.T) {
	for _, target := range []string{"/audit?page=0", "/audit?from=yesterday", "/audit?from=2024-05-01&to=2024-03-01", "/audit?from=2024-01-01&to=2024-12-31"} {
		rec := serve(t, &stubTimelineService{}, target, true)
		require.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}
