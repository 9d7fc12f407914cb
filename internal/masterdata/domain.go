package masterdata

// Warehouse is a read-only reference row.
type Warehouse struct {
	ID      string   `json:"id"`
	Code    string   `json:"code"`
	Name    string   `json:"name"`
	Aliases []string `json:"aliases,omitempty"`
}

// Product is a read-only reference row.
type Product struct {
	SKU         string `json:"sku"`
	Name        string `json:"name"`
	Category    string `json:"category,omitempty"`
	Subcategory string `json:"subcategory,omitempty"`
	Unit        string `json:"unit,omitempty"`
	Barcode     string `json:"barcode,omitempty"`
}

// Data is the on-disk shape of the reference tables.
type Data struct {
	Warehouses []Warehouse `json:"warehouses"`
	Products   []Product   `json:"products"`
}
