package dataimport

import (
	"fmt"
	"math"

	"github.com/odyssey-erp/stockledger/internal/inventory"
)

func validateProduct(p StagedProduct) []ImportError {
	var errs []ImportError
	if p.SKU == "" {
		errs = append(errs, ImportError{RowIndex: p.RowIndex, Code: CodeMissingField, Field: string(FieldSKU), Message: "sku is required"})
	}
	if p.Name == "" {
		errs = append(errs, ImportError{RowIndex: p.RowIndex, Code: CodeMissingField, Field: string(FieldName), Message: "name is required"})
	}
	return errs
}

func validateMovement(mv StagedMovement, products ProductChecker) []ImportError {
	var errs []ImportError
	add := func(code ErrorCode, field Field, msg string) {
		errs = append(errs, ImportError{RowIndex: mv.RowIndex, Code: code, Field: string(field), Message: msg})
	}
	if mv.SKU == "" {
		add(CodeMissingField, FieldSKU, "sku is required")
	} else if products != nil && !products.ProductExists(mv.SKU) {
		add(CodeInvalidProduct, FieldSKU, fmt.Sprintf("unknown product %s", mv.SKU))
	}
	if mv.WarehouseName == "" {
		add(CodeInvalidWarehouse, FieldWarehouse, "warehouse is required")
	}
	if !mv.Type.Valid() {
		add(CodeInvalidFormat, FieldType, fmt.Sprintf("unknown movement type %q", mv.Type))
	}
	switch {
	case math.IsNaN(mv.Qty):
		add(CodeInvalidFormat, FieldQty, "quantity is not a number")
	case mv.Type != inventory.MovementAdjustment && mv.Qty <= 0:
		add(CodeInvalidFormat, FieldQty, "quantity must be positive")
	}
	if _, ok := parseDate(mv.OccurredAt); !ok {
		add(CodeInvalidFormat, FieldOccurredAt, fmt.Sprintf("invalid date %q", mv.OccurredAt))
	}
	if mv.UnitCost != nil && (math.IsNaN(*mv.UnitCost) || *mv.UnitCost < 0) {
		add(CodeInvalidFormat, FieldUnitCost, "unit cost must be a non-negative number")
	}
	return errs
}
