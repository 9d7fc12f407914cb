package masterdata

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/stockledger/internal/platform/httpx"
)

// Handler exposes the reference tables read-only.
type Handler struct {
	catalog *Catalog
}

// NewHandler builds Handler instance.
func NewHandler(catalog *Catalog) *Handler {
	return &Handler{catalog: catalog}
}

// MountRoutes registers master data routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/warehouses", h.listWarehouses)
	r.Get("/warehouses/resolve", h.resolveWarehouse)
	r.Get("/products", h.listProducts)
}

func (h *Handler) listWarehouses(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, h.catalog.Warehouses())
}

func (h *Handler) resolveWarehouse(w http.ResponseWriter, r *http.Request) {
	id, ok := h.catalog.ResolveWarehouseID(r.URL.Query().Get("name"))
	if !ok {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"id": id})
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, h.catalog.Products())
}
