package inventory

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/stockledger/internal/platform/httpx"
	"github.com/odyssey-erp/stockledger/internal/rbac"
	"github.com/odyssey-erp/stockledger/internal/shared"
)

// Handler wires HTTP endpoints for the ledger and transfers.
type Handler struct {
	logger  *slog.Logger
	service *Service
	query   *QueryService
	rbac    rbac.Middleware
}

// NewHandler constructs inventory handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, query: service.Query(), rbac: rbac}
}

// MountRoutes registers /ledger and /transfers routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/ledger", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.Authenticated)
			r.Get("/movements", h.listMovements)
			r.Get("/balance", h.balance)
			r.Get("/kardex", h.kardex)
			r.Get("/warehouses/{id}/summary", h.warehouseSummary)
			r.Get("/warehouses/{id}/balances", h.warehouseBalances)
		})
		r.With(h.rbac.Require(rbac.ActionLedgerMoveIn)).Post("/move-in", h.move(h.service.MoveIn))
		r.With(h.rbac.Require(rbac.ActionLedgerMoveOut)).Post("/move-out", h.move(h.service.MoveOut))
		r.With(h.rbac.Require(rbac.ActionLedgerAdjust)).Post("/adjust", h.move(h.service.Adjust))
	})
	r.Route("/transfers", func(r chi.Router) {
		r.With(h.rbac.Authenticated).Get("/", h.listTransfers)
		r.With(h.rbac.Authenticated).Get("/{id}", h.getTransfer)
		r.With(h.rbac.Require(rbac.ActionTransferCreate)).Post("/", h.createTransfer)
		r.With(h.rbac.Require(rbac.ActionTransferComplete)).Post("/{id}/complete", h.completeTransfer)
		r.With(h.rbac.Require(rbac.ActionTransferCancel)).Post("/{id}/cancel", h.cancelTransfer)
	})
}

type moveRequest struct {
	SKU         string            `json:"sku" validate:"required"`
	WarehouseID string            `json:"warehouseId" validate:"required"`
	Qty         decimal.Decimal   `json:"qty"`
	OccurredAt  string            `json:"occurredAt"`
	UnitCost    *decimal.Decimal  `json:"unitCost"`
	DocumentID  string            `json:"documentId"`
	Note        string            `json:"note" validate:"max=500"`
	References  map[string]string `json:"externalRefs"`
}

type transferRequest struct {
	From  string `json:"from" validate:"required"`
	To    string `json:"to" validate:"required,nefield=From"`
	Items []struct {
		SKU string          `json:"sku" validate:"required"`
		Qty decimal.Decimal `json:"qty"`
	} `json:"items" validate:"required,min=1,dive"`
	Notes string `json:"notes" validate:"max=500"`
}

func (h *Handler) move(post func(context.Context, MoveInput) (Movement, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req moveRequest
		if err := httpx.Decode(r, &req); err != nil {
			httpx.RespondError(w, err)
			return
		}
		occurred, err := parseOccurredAt(req.OccurredAt)
		if err != nil {
			httpx.RespondError(w, &httpx.ValidationError{Fields: map[string]string{"occurredAt": "expected RFC3339 or YYYY-MM-DD"}})
			return
		}
		mov, err := post(r.Context(), MoveInput{
			SKU:          req.SKU,
			WarehouseID:  req.WarehouseID,
			Qty:          req.Qty,
			OccurredAt:   occurred,
			UnitCost:     req.UnitCost,
			DocumentID:   req.DocumentID,
			Note:         req.Note,
			Source:       SourceManual,
			ExternalRefs: req.References,
		})
		if err != nil && !shared.IsWarning(err) {
			h.logger.Info("ledger move rejected", slog.String("path", r.URL.Path), slog.Any("error", err))
		}
		httpx.Committed(w, http.StatusCreated, mov, err)
	}
}

func parseOccurredAt(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	return time.Parse("2006-01-02", raw)
}

func (h *Handler) listMovements(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var movs []Movement
	switch {
	case q.Get("document") != "":
		movs = h.query.ByDocument(q.Get("document"))
	case q.Get("sku") != "":
		movs = h.query.BySKU(q.Get("sku"))
	default:
		movs = h.query.All()
	}
	if movs == nil {
		movs = []Movement{}
	}
	if q.Get("page") == "" && q.Get("per_page") == "" {
		httpx.JSON(w, http.StatusOK, movs)
		return
	}
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	paging := shared.NewPagination(page, perPage, len(movs))
	start, end := paging.Window()
	httpx.JSON(w, http.StatusOK, map[string]any{
		"rows":       movs[start:end],
		"pagination": paging,
	})
}

func (h *Handler) balance(w http.ResponseWriter, r *http.Request) {
	sku, warehouse, ok := skuAndWarehouse(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"sku": sku, "warehouseId": warehouse, "qty": h.query.Balance(sku, warehouse)})
}

func (h *Handler) kardex(w http.ResponseWriter, r *http.Request) {
	sku, warehouse, ok := skuAndWarehouse(w, r)
	if !ok {
		return
	}
	entries := h.query.Kardex(sku, warehouse)
	if entries == nil {
		entries = []KardexEntry{}
	}
	httpx.JSON(w, http.StatusOK, entries)
}

func skuAndWarehouse(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	sku := strings.TrimSpace(r.URL.Query().Get("sku"))
	warehouse := strings.TrimSpace(r.URL.Query().Get("warehouse"))
	if sku == "" || warehouse == "" {
		httpx.RespondError(w, &httpx.ValidationError{Fields: map[string]string{"sku": "required", "warehouse": "required"}})
		return "", "", false
	}
	return sku, warehouse, true
}

func (h *Handler) warehouseSummary(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, h.query.WarehouseSummary(chi.URLParam(r, "id")))
}

func (h *Handler) warehouseBalances(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	result, err, _ := httpx.Coalesce(r.Context(), "balances:"+id, func(context.Context) (any, error) {
		return h.query.BalancesByWarehouse(id), nil
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) listTransfers(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, h.service.ListTransfers())
}

func (h *Handler) getTransfer(w http.ResponseWriter, r *http.Request) {
	t, err := h.service.GetTransfer(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, t)
}

func (h *Handler) createTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	input := TransferInput{From: req.From, To: req.To, Notes: req.Notes}
	for _, item := range req.Items {
		input.Items = append(input.Items, TransferLine{SKU: item.SKU, Qty: item.Qty})
	}
	t, err := h.service.CreateTransfer(r.Context(), input)
	httpx.Committed(w, http.StatusCreated, t, err)
}

func (h *Handler) completeTransfer(w http.ResponseWriter, r *http.Request) {
	t, err := h.service.CompleteTransfer(r.Context(), chi.URLParam(r, "id"))
	httpx.Committed(w, http.StatusOK, t, err)
}

func (h *Handler) cancelTransfer(w http.ResponseWriter, r *http.Request) {
	t, err := h.service.CancelTransfer(r.Context(), chi.URLParam(r, "id"))
	httpx.Committed(w, http.StatusOK, t, err)
}
