package rbac

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/stockledger/internal/shared"
)

func newTestRouter() http.Handler {
	m := Middleware{CompanyID: "acme"}
	r := chi.NewRouter()
	r.Use(m.Actor)
	r.Route("/policy", NewPermissionsHandler().MountRoutes)
	r.With(m.Require(ActionLedgerAdjust)).Post("/adjust", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return r
}

func TestRequireRejectsMissingActor(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/adjust", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestActorClearsInheritedIdentity(t *testing.T) {
	inherited := shared.ContextWithActor(context.Background(), shared.Actor{UserID: "root", Role: "admin", CompanyID: "acme"})
	req := httptest.NewRequest(http.MethodPost, "/adjust", nil).WithContext(inherited)
	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireEnforcesMatrix(t *testing.T) {
	cases := []struct {
		role   string
		status int
	}{
		{"admin", http.StatusNoContent},
		{"Manager", http.StatusNoContent},
		{"procurement", http.StatusForbidden},
		{"viewer", http.StatusForbidden},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/adjust", nil)
		req.Header.Set(HeaderActorUser, "u1")
		req.Header.Set(HeaderActorRole, tc.role)
		rec := httptest.NewRecorder()
		newTestRouter().ServeHTTP(rec, req)
		require.Equal(t, tc.status, rec.Code, tc.role)
	}
}

func TestRequireRejectsForeignCompany(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/adjust", nil)
	req.Header.Set(HeaderActorUser, "u1")
	req.Header.Set(HeaderActorRole, "admin")
	req.Header.Set(HeaderActorCompany, "globex")
	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestPolicyListing(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/policy/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Actions []string `json:"actions"`
		Roles   []struct {
			Role    string   `json:"role"`
			Actions []string `json:"actions"`
		} `json:"roles"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Actions, 14)
	require.Len(t, body.Roles, 5)
}

func TestAuthenticatedAllowsViewer(t *testing.T) {
	m := Middleware{CompanyID: "acme"}
	r := chi.NewRouter()
	r.Use(m.Actor)
	r.With(m.Authenticated).Get("/read", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/read", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/read", nil)
	req.Header.Set(HeaderActorUser, "v1")
	req.Header.Set(HeaderActorRole, "viewer")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}
