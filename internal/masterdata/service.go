package masterdata

import (
	"sort"
	"strings"
)

// Catalog answers reference lookups for warehouses and products. It is
// immutable once built.
type Catalog struct {
	warehouses   []Warehouse
	warehouseIDs map[string]string
	products     map[string]Product
}

// NewCatalog indexes data. Warehouses resolve by id, code, name and aliases.
func NewCatalog(data Data) *Catalog {
	c := &Catalog{
		warehouseIDs: make(map[string]string),
		products:     make(map[string]Product),
	}
	for _, w := range data.Warehouses {
		if strings.TrimSpace(w.ID) == "" {
			continue
		}
		c.warehouses = append(c.warehouses, w)
		keys := append([]string{w.ID, w.Code, w.Name}, w.Aliases...)
		for _, k := range keys {
			if f := Fold(k); f != "" {
				if _, taken := c.warehouseIDs[f]; !taken {
					c.warehouseIDs[f] = w.ID
				}
			}
		}
	}
	for _, p := range data.Products {
		sku := normaliseSKU(p.SKU)
		if sku == "" {
			continue
		}
		c.products[sku] = p
	}
	sort.Slice(c.warehouses, func(i, j int) bool { return c.warehouses[i].ID < c.warehouses[j].ID })
	return c
}

// ResolveWarehouseID maps a warehouse label to its id.
func (c *Catalog) ResolveWarehouseID(name string) (string, bool) {
	if c == nil {
		return "", false
	}
	id, ok := c.warehouseIDs[Fold(name)]
	return id, ok
}

// ProductExists reports whether sku is a known product.
func (c *Catalog) ProductExists(sku string) bool {
	if c == nil {
		return false
	}
	_, ok := c.products[normaliseSKU(sku)]
	return ok
}

// Warehouses lists warehouses ordered by id.
func (c *Catalog) Warehouses() []Warehouse {
	out := make([]Warehouse, len(c.warehouses))
	copy(out, c.warehouses)
	return out
}

// Products lists products ordered by sku.
func (c *Catalog) Products() []Product {
	out := make([]Product, 0, len(c.products))
	for _, p := range c.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out
}

// Empty reports whether no reference data was loaded.
func (c *Catalog) Empty() bool {
	return c == nil || (len(c.warehouses) == 0 && len(c.products) == 0)
}

func normaliseSKU(sku string) string {
	return strings.ToUpper(strings.TrimSpace(sku))
}

// HasWarehouses reports whether warehouse reference data is loaded.
func (c *Catalog) HasWarehouses() bool {
	return c != nil && len(c.warehouses) > 0
}

// HasProducts reports whether product reference data is loaded.
func (c *Catalog) HasProducts() bool {
	return c != nil && len(c.products) > 0
}
