package dataimport

import (
	"github.com/odyssey-erp/stockledger/internal/inventory"
	"github.com/odyssey-erp/stockledger/internal/masterdata"
)

// Field is a canonical staging field.
type Field string

const (
	FieldSKU         Field = "sku"
	FieldName        Field = "name"
	FieldCategory    Field = "categoryName"
	FieldSubcategory Field = "subcategoryName"
	FieldUnit        Field = "unit"
	FieldBarcode     Field = "barcode"
	FieldWarehouse   Field = "warehouseName"
	FieldType        Field = "type"
	FieldQty         Field = "qty"
	FieldOccurredAt  Field = "occurredAt"
	FieldUnitCost    Field = "unitCost"
	FieldDocument    Field = "documentRef"
)

// aliasTable lists, per field, the headers tried in order. Headers are
// compared after masterdata.Fold.
type aliasTable map[Field][]string

var skuAliases = []string{"sku", "code", "codigo", "e code", "ecode", "item code", "product code", "codigo producto", "articulo"}

var productAliases = aliasTable{
	FieldSKU:         skuAliases,
	FieldName:        {"name", "nombre", "product", "producto", "description", "descripcion"},
	FieldCategory:    {"category", "categoria", "family", "familia"},
	FieldSubcategory: {"subcategory", "subcategoria", "subfamily", "subfamilia"},
	FieldUnit:        {"unit", "uom", "unidad", "unidad medida"},
	FieldBarcode:     {"barcode", "ean", "upc", "codigo barras", "codigo de barras"},
}

var movementAliases = aliasTable{
	FieldSKU:        skuAliases,
	FieldWarehouse:  {"warehouse", "warehouse name", "almacen", "bodega", "deposito", "sucursal"},
	FieldType:       {"type", "movement type", "tipo", "tipo movimiento", "movimiento"},
	FieldQty:        {"qty", "quantity", "cantidad", "cant", "units", "unidades"},
	FieldOccurredAt: {"occurred at", "occurredat", "date", "fecha", "fecha movimiento"},
	FieldUnitCost:   {"unit cost", "unitcost", "cost", "costo", "costo unitario"},
	FieldDocument:   {"document", "document ref", "documentref", "doc", "documento", "folio", "factura", "invoice"},
}

// externalRefAliases maps ExternalRefs keys to their source headers.
var externalRefAliases = []struct {
	Key     string
	Aliases []string
}{
	{Key: "externalId", Aliases: []string{"external id", "externalid", "id externo"}},
	{Key: "lineId", Aliases: []string{"line id", "lineid", "id linea"}},
	{Key: "supplier", Aliases: []string{"supplier", "proveedor"}},
}

var movementTypeAliases = map[string]inventory.MovementType{
	"receipt":       inventory.MovementReceipt,
	"in":            inventory.MovementReceipt,
	"entrada":       inventory.MovementReceipt,
	"ingreso":       inventory.MovementReceipt,
	"recepcion":     inventory.MovementReceipt,
	"issue":         inventory.MovementIssue,
	"out":           inventory.MovementIssue,
	"salida":        inventory.MovementIssue,
	"egreso":        inventory.MovementIssue,
	"consumo":       inventory.MovementIssue,
	"adjustment":    inventory.MovementAdjustment,
	"adjust":        inventory.MovementAdjustment,
	"ajuste":        inventory.MovementAdjustment,
	"transfer":      inventory.MovementTransfer,
	"traspaso":      inventory.MovementTransfer,
	"transferencia": inventory.MovementTransfer,
}

// foldedRow indexes a raw row by folded header so alias lookups ignore case,
// accents and separators.
type foldedRow map[string]any

func foldRow(row Row) foldedRow {
	out := make(foldedRow, len(row))
	for k, v := range row {
		key := masterdata.Fold(k)
		if _, taken := out[key]; taken && isBlank(v) {
			continue
		}
		out[key] = v
	}
	return out
}

// pick returns the first non-blank value among aliases.
func (r foldedRow) pick(aliases []string) (any, bool) {
	for _, alias := range aliases {
		if v, ok := r[masterdata.Fold(alias)]; ok && !isBlank(v) {
			return v, true
		}
	}
	return nil, false
}

func (r foldedRow) text(aliases []string) string {
	v, ok := r.pick(aliases)
	if !ok {
		return ""
	}
	return toText(v)
}

func (t aliasTable) text(r foldedRow, f Field) string {
	return r.text(t[f])
}

func (t aliasTable) value(r foldedRow, f Field) (any, bool) {
	return r.pick(t[f])
}
