// Package dataimport stages heterogeneous spreadsheet rows, validates them
// and applies the valid ones to the ledger once per batch.
package dataimport

import (
	"time"

	"github.com/odyssey-erp/stockledger/internal/inventory"
	"github.com/odyssey-erp/stockledger/internal/shared"
)

// Kind selects the staging shape of a batch.
type Kind string

const (
	KindProducts  Kind = "products"
	KindMovements Kind = "movements"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindProducts || k == KindMovements
}

// Row is one raw input record keyed by its original column header.
type Row map[string]any

// ErrorCode classifies a rejected row. Codes are data, never returned as errors.
type ErrorCode string

const (
	CodeInvalidProduct   ErrorCode = "INVALID_PRODUCT"
	CodeInvalidWarehouse ErrorCode = "INVALID_WAREHOUSE"
	CodeMissingField     ErrorCode = "MISSING_FIELD"
	CodeInvalidFormat    ErrorCode = "INVALID_FORMAT"
	CodeWarehouseUnknown ErrorCode = "WAREHOUSE_UNKNOWN"
	CodeQtyInvalid       ErrorCode = "QTY_INVALID"
	CodeDateInvalid      ErrorCode = "DATE_INVALID"
	CodeTransferNoDest   ErrorCode = "TRANSFER_NO_DEST"
	CodeDuplicateBatch   ErrorCode = "DUPLICATE_BATCH"
)

// validationCodes are always present in Summary.ErrorBreakdown.
var validationCodes = []ErrorCode{CodeInvalidProduct, CodeInvalidWarehouse, CodeMissingField, CodeInvalidFormat}

// ImportError explains why a row was rejected. RowIndex is the zero-based
// position in the input, or -1 for batch-level problems.
type ImportError struct {
	RowIndex int       `json:"rowIndex"`
	Code     ErrorCode `json:"code"`
	Message  string    `json:"message"`
	Field    string    `json:"field,omitempty"`
}

// StagedProduct is a product row projected onto canonical fields.
type StagedProduct struct {
	RowIndex        int    `json:"rowIndex"`
	SKU             string `json:"sku"`
	Name            string `json:"name"`
	CategoryName    string `json:"categoryName,omitempty"`
	SubcategoryName string `json:"subcategoryName,omitempty"`
	Unit            string `json:"unit,omitempty"`
	Barcode         string `json:"barcode,omitempty"`
}

// StagedMovement is a movement row projected onto canonical fields. Qty and
// UnitCost are NaN when the source value could not be parsed.
type StagedMovement struct {
	RowIndex      int                    `json:"rowIndex"`
	SKU           string                 `json:"sku"`
	WarehouseName string                 `json:"warehouseName"`
	Type          inventory.MovementType `json:"type"`
	Qty           float64                `json:"qty"`
	OccurredAt    string                 `json:"occurredAt"`
	UnitCost      *float64               `json:"unitCost,omitempty"`
	DocumentRef   string                 `json:"documentRef,omitempty"`
	ExternalRefs  map[string]string      `json:"externalRefs,omitempty"`
}

// Batch is the envelope of one import attempt. BatchID is its idempotency key.
type Batch struct {
	BatchID        string        `json:"batchId"`
	CompanyID      string        `json:"companyId"`
	Kind           Kind          `json:"kind"`
	SourceFileName string        `json:"sourceFileName"`
	ReceivedAt     time.Time     `json:"receivedAt"`
	RowsReceived   int           `json:"rowsReceived"`
	RowsValid      int           `json:"rowsValid"`
	RowsRejected   int           `json:"rowsRejected"`
	Errors         []ImportError `json:"errors"`
}

// Summary condenses validation outcome per error code.
type Summary struct {
	TotalRows      int               `json:"totalRows"`
	ValidCount     int               `json:"validCount"`
	InvalidCount   int               `json:"invalidCount"`
	ErrorBreakdown map[ErrorCode]int `json:"errorBreakdown"`
}

// Result is the staged form of a batch. Only rows that passed validation are
// kept in Products or Movements.
type Result struct {
	Batch     Batch            `json:"batch"`
	Products  []StagedProduct  `json:"products,omitempty"`
	Movements []StagedMovement `json:"movements,omitempty"`
	Summary   Summary          `json:"summary"`
}

// ApplyResult reports what Apply did with a batch.
type ApplyResult struct {
	BatchID      string        `json:"batchId"`
	RowsApplied  int           `json:"rowsApplied"`
	RowsRejected int           `json:"rowsRejected"`
	Errors       []ImportError `json:"errors"`
}

var (
	// ErrUnknownKind rejects a batch whose kind is not products or movements.
	ErrUnknownKind = shared.NewKindError(shared.ErrValidation, "dataimport: unknown batch kind")
	// ErrBatchIDRequired rejects applying a result without a batch id.
	ErrBatchIDRequired = shared.NewKindError(shared.ErrValidation, "dataimport: batch id required")
)
