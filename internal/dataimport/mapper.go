package dataimport

import (
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// batchNamespace seeds deterministic batch ids so re-uploading the same rows
// maps to the same idempotency key.
var batchNamespace = uuid.MustParse("5b0c6a5e-2f0e-4f7c-9a41-6c2d3f1e8b07")

// ProductChecker tells whether a SKU exists in the product catalog.
type ProductChecker interface {
	ProductExists(sku string) bool
}

// Mapper projects raw rows onto staging shapes and validates them.
type Mapper struct {
	products ProductChecker
	now      func() time.Time
}

// NewMapper constructs a mapper. With a nil products checker unknown SKUs
// are not flagged.
func NewMapper(products ProductChecker) *Mapper {
	return &Mapper{products: products, now: func() time.Time { return time.Now().UTC() }}
}

// Map stages rows of the given kind. It never fails: every problem is
// reported as an ImportError in the result.
func (m *Mapper) Map(companyID string, kind Kind, rows []Row, sourceFileName string) Result {
	res := Result{
		Batch: Batch{
			BatchID:        batchID(companyID, kind, rows, sourceFileName),
			CompanyID:      companyID,
			Kind:           kind,
			SourceFileName: sourceFileName,
			ReceivedAt:     m.now(),
			RowsReceived:   len(rows),
			Errors:         []ImportError{},
		},
	}
	invalid := 0
	switch {
	case !kind.Valid():
		res.Batch.Errors = append(res.Batch.Errors, ImportError{RowIndex: -1, Code: CodeInvalidFormat, Field: "kind", Message: "unknown import kind " + strings.TrimSpace(string(kind))})
		invalid = len(rows)
	case len(rows) == 0:
		res.Batch.Errors = append(res.Batch.Errors, ImportError{RowIndex: -1, Code: CodeMissingField, Message: "batch contains no rows"})
	default:
		for i, row := range rows {
			errs := m.stageRow(&res, kind, i, row)
			if len(errs) > 0 {
				res.Batch.Errors = append(res.Batch.Errors, errs...)
				invalid++
			}
		}
	}
	res.Batch.RowsRejected = invalid
	res.Batch.RowsValid = len(rows) - invalid
	res.Summary = summarise(len(rows), res.Batch.RowsValid, invalid, res.Batch.Errors)
	return res
}

func (m *Mapper) stageRow(res *Result, kind Kind, i int, row Row) []ImportError {
	if rowBlank(row) {
		return []ImportError{{RowIndex: i, Code: CodeMissingField, Message: "row is empty"}}
	}
	f := foldRow(row)
	if kind == KindProducts {
		p := stageProduct(i, f)
		errs := validateProduct(p)
		if len(errs) == 0 {
			res.Products = append(res.Products, p)
		}
		return errs
	}
	mv := stageMovement(i, f)
	errs := validateMovement(mv, m.products)
	if len(errs) == 0 {
		res.Movements = append(res.Movements, mv)
	}
	return errs
}

func stageProduct(i int, f foldedRow) StagedProduct {
	t := productAliases
	return StagedProduct{
		RowIndex:        i,
		SKU:             strings.ToUpper(t.text(f, FieldSKU)),
		Name:            t.text(f, FieldName),
		CategoryName:    t.text(f, FieldCategory),
		SubcategoryName: t.text(f, FieldSubcategory),
		Unit:            t.text(f, FieldUnit),
		Barcode:         t.text(f, FieldBarcode),
	}
}

func stageMovement(i int, f foldedRow) StagedMovement {
	t := movementAliases
	mv := StagedMovement{
		RowIndex:      i,
		SKU:           strings.ToUpper(t.text(f, FieldSKU)),
		WarehouseName: t.text(f, FieldWarehouse),
		Type:          movementType(t.text(f, FieldType)),
		Qty:           math.NaN(),
		OccurredAt:    t.text(f, FieldOccurredAt),
		DocumentRef:   t.text(f, FieldDocument),
	}
	if v, ok := t.value(f, FieldQty); ok {
		mv.Qty = parseNumber(v)
	}
	if v, ok := t.value(f, FieldUnitCost); ok {
		cost := parseNumber(v)
		mv.UnitCost = &cost
	}
	for _, ref := range externalRefAliases {
		if v := f.text(ref.Aliases); v != "" {
			if mv.ExternalRefs == nil {
				mv.ExternalRefs = make(map[string]string)
			}
			mv.ExternalRefs[ref.Key] = v
		}
	}
	return mv
}

func rowBlank(row Row) bool {
	for _, v := range row {
		if !isBlank(v) {
			return false
		}
	}
	return true
}

func batchID(companyID string, kind Kind, rows []Row, sourceFileName string) string {
	payload, err := json.Marshal(struct {
		Company string `json:"c"`
		Kind    Kind   `json:"k"`
		File    string `json:"f"`
		Rows    []Row  `json:"r"`
	}{companyID, kind, sourceFileName, rows})
	if err != nil {
		return uuid.NewString()
	}
	return uuid.NewSHA1(batchNamespace, payload).String()
}

func summarise(total, valid, invalid int, errs []ImportError) Summary {
	s := Summary{TotalRows: total, ValidCount: valid, InvalidCount: invalid, ErrorBreakdown: make(map[ErrorCode]int, len(validationCodes))}
	for _, code := range validationCodes {
		s.ErrorBreakdown[code] = 0
	}
	for _, e := range errs {
		s.ErrorBreakdown[e.Code]++
	}
	return s
}
