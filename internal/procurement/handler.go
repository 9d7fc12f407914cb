package procurement

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/stockledger/internal/platform/httpx"
	"github.com/odyssey-erp/stockledger/internal/rbac"
	"github.com/odyssey-erp/stockledger/internal/shared"
)

// Handler exposes purchase request and order endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs procurement handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers /purchase-requests and /purchase-orders.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/purchase-requests", func(r chi.Router) {
		r.With(h.rbac.Authenticated).Get("/", h.listRequests)
		r.With(h.rbac.Authenticated).Get("/{id}", h.getRequest)
		r.With(h.rbac.Require(rbac.ActionPRCreate)).Post("/", h.createRequest)
		// per-target permission is enforced by the service
		r.With(h.rbac.Authenticated).Post("/{id}/transition", h.transition)
		r.With(h.rbac.Require(rbac.ActionPRConvertToPO)).Post("/{id}/convert", h.convert)
	})
	r.Route("/purchase-orders", func(r chi.Router) {
		r.Use(h.rbac.Authenticated)
		r.Get("/", h.listOrders)
		r.Get("/{number}", h.getOrder)
	})
}

type splitPayload struct {
	Date       string           `json:"date"`
	Qty        decimal.Decimal  `json:"qty"`
	Supplier   string           `json:"supplier"`
	UnitPrice  *decimal.Decimal `json:"unitPrice"`
	ExternalPO string           `json:"externalPo"`
}

type createPayload struct {
	ID          string `json:"id" validate:"omitempty,max=64"`
	WarehouseID string `json:"warehouseId" validate:"required"`
	Notes       string `json:"notes" validate:"max=1000"`
	Items       []struct {
		Code     string          `json:"code" validate:"required"`
		Desc     string          `json:"desc" validate:"max=255"`
		TotalQty decimal.Decimal `json:"totalQty"`
		Splits   []splitPayload  `json:"splits"`
	} `json:"items" validate:"required,min=1,dive"`
}

type transitionPayload struct {
	From    RequestStatus `json:"from" validate:"required"`
	To      RequestStatus `json:"to" validate:"required"`
	Version int           `json:"version" validate:"min=0"`
}

type convertPayload struct {
	Pricing []LinePricing `json:"pricing"`
}

func (h *Handler) listRequests(w http.ResponseWriter, r *http.Request) {
	status := RequestStatus(r.URL.Query().Get("status"))
	out := []PurchaseRequest{}
	for _, req := range h.service.List() {
		if status == "" || req.Status == status {
			out = append(out, req)
		}
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) getRequest(w http.ResponseWriter, r *http.Request) {
	req, err := h.service.Get(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, req)
}

func (h *Handler) createRequest(w http.ResponseWriter, r *http.Request) {
	var payload createPayload
	if err := httpx.Decode(r, &payload); err != nil {
		httpx.RespondError(w, err)
		return
	}
	req := PurchaseRequest{ID: payload.ID, WarehouseID: payload.WarehouseID, Notes: payload.Notes}
	for _, item := range payload.Items {
		ri := RequestItem{Code: item.Code, Desc: item.Desc, TotalQty: item.TotalQty}
		for _, s := range item.Splits {
			ri.Splits = append(ri.Splits, DeliverySplit{Date: s.Date, Qty: s.Qty, Supplier: s.Supplier, UnitPrice: s.UnitPrice, ExternalPO: s.ExternalPO})
		}
		req.Items = append(req.Items, ri)
	}
	created, err := h.service.Create(r.Context(), req)
	httpx.Committed(w, http.StatusCreated, created, err)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request) {
	var payload transitionPayload
	if err := httpx.Decode(r, &payload); err != nil {
		httpx.RespondError(w, err)
		return
	}
	req, err := h.service.Get(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if payload.Version > 0 {
		req.Version = payload.Version
	}
	updated, err := h.service.Transition(r.Context(), req, payload.From, payload.To)
	if err != nil && !shared.IsWarning(err) {
		h.logger.Info("purchase request transition", slog.String("id", req.ID), slog.String("to", string(payload.To)), slog.Any("error", err))
	}
	httpx.Committed(w, http.StatusOK, updated, err)
}

func (h *Handler) convert(w http.ResponseWriter, r *http.Request) {
	var payload convertPayload
	if r.ContentLength != 0 {
		if err := httpx.Decode(r, &payload); err != nil {
			httpx.RespondError(w, err)
			return
		}
	}
	req, err := h.service.Get(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.Convert(r.Context(), req, payload.Pricing)
	httpx.Committed(w, http.StatusCreated, result, err)
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, h.service.ListOrders())
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	order, lines, err := h.service.OrderByNumber(chi.URLParam(r, "number"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"purchaseOrder": order, "purchaseOrderLines": lines})
}
