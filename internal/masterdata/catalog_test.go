package masterdata

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

func sampleCatalog() *Catalog {
	return NewCatalog(Data{
		Warehouses: []Warehouse{
			{ID: "WH-1", Code: "CEN", Name: "Almacén Central", Aliases: []string{"Bodega Principal"}},
			{ID: "WH-2", Code: "NOR", Name: "Sucursal Norte"},
		},
		Products: []Product{{SKU: "sku-001", Name: "Tornillo"}, {SKU: "SKU-002", Name: "Tuerca"}},
	})
}

func TestFold(t *testing.T) {
	require.Equal(t, "almacen central", Fold("  Almacén   CENTRAL "))
	require.Equal(t, "almacen central", Fold("ALMACEN_CENTRAL"))
	require.Equal(t, "cantidad", Fold("Cantidad"))
	require.Equal(t, "e code", Fold("E-CODE"))
}

func TestResolveWarehouseID(t *testing.T) {
	c := sampleCatalog()
	for _, label := range []string{"almacen central", "ALMACÉN CENTRAL", "cen", "WH-1", "bodega principal"} {
		id, ok := c.ResolveWarehouseID(label)
		require.True(t, ok, label)
		require.Equal(t, "WH-1", id)
	}
	_, ok := c.ResolveWarehouseID("Almacén Sur")
	require.False(t, ok)
}

func TestProductExists(t *testing.T) {
	c := sampleCatalog()
	require.True(t, c.ProductExists("SKU-001"))
	require.True(t, c.ProductExists(" sku-002 "))
	require.False(t, c.ProductExists("SKU-404"))
	require.False(t, c.Empty())
	require.True(t, NewCatalog(Data{}).Empty())
}

func TestLoadLatin1(t *testing.T) {
	payload := `{"warehouses":[{"id":"WH-9","name":"Depósito Sur"}]}`
	encoded, err := charmap.ISO8859_1.NewEncoder().String(payload)
	require.NoError(t, err)
	c, err := Load(bytes.NewReader([]byte(encoded)))
	require.NoError(t, err)
	id, ok := c.ResolveWarehouseID("deposito sur")
	require.True(t, ok)
	require.Equal(t, "WH-9", id)

	_, err = Load(strings.NewReader("{"))
	require.Error(t, err)
}

func TestHandlerResolve(t *testing.T) {
	r := chi.NewRouter()
	NewHandler(sampleCatalog()).MountRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/warehouses/resolve?name=Sucursal%20Norte", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "WH-2")

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/warehouses/resolve?name=nowhere", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
