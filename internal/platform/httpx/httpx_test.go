package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/stockledger/internal/shared"
)

func TestRespondErrorMapsCategories(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{shared.ErrActorRequired, http.StatusUnauthorized},
		{shared.ErrCompanyMismatch, http.StatusForbidden},
		{fmt.Errorf("get: %w", shared.ErrNotFound), http.StatusNotFound},
		{shared.NewKindError(shared.ErrConflict, "stale"), http.StatusConflict},
		{shared.NewKindError(shared.ErrValidation, "qty"), http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		RespondError(rec, tc.err)
		require.Equal(t, tc.status, rec.Code, tc.err.Error())
	}
}

func TestInternalErrorHidesDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, errors.New("pq: password leaked"))
	var body ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Empty(t, body.Detail)
}

type moveBody struct {
	SKU string  `json:"sku" validate:"required"`
	Qty float64 `json:"qty" validate:"gt=0"`
}

func TestDecodeValidates(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"qty":0}`))
	var body moveBody
	err := Decode(req, &body)
	var invalid *ValidationError
	require.ErrorAs(t, err, &invalid)
	require.Contains(t, invalid.Fields, "SKU")
	require.Contains(t, invalid.Fields, "Qty")
	require.ErrorIs(t, err, ErrValidation)

	rec := httptest.NewRecorder()
	RespondError(rec, err)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"sku":"A","qty":2}`))
	require.NoError(t, Decode(req, &body))
}

func TestCoalesceReturnsValue(t *testing.T) {
	val, err, _ := Coalesce(context.Background(), "k", func(context.Context) (any, error) { return 42, nil })
	require.NoError(t, err)
	require.Equal(t, 42, val)
}

func TestCommittedReportsWarnings(t *testing.T) {
	rec := httptest.NewRecorder()
	Committed(rec, http.StatusCreated, map[string]string{"id": "m1"}, shared.NewWarning("flush ledger", errors.New("redis down")))
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Contains(t, rec.Header().Get(WarningHeader), "redis down")

	rec = httptest.NewRecorder()
	Committed(rec, http.StatusCreated, nil, shared.ErrActorRequired)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
