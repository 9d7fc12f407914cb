package inventory

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/stockledger/internal/shared"
)

// MovementType enumerates supported inventory movements.
type MovementType string

const (
	// MovementReceipt adds stock to a warehouse.
	MovementReceipt MovementType = "receipt"
	// MovementIssue removes stock from a warehouse.
	MovementIssue MovementType = "issue"
	// MovementAdjustment carries a signed delta.
	MovementAdjustment MovementType = "adjustment"
	// MovementTransfer moves stock from WarehouseID to WarehouseIDTo.
	MovementTransfer MovementType = "transfer"
)

// Valid reports whether t is one of the four movement types.
func (t MovementType) Valid() bool {
	switch t {
	case MovementReceipt, MovementIssue, MovementAdjustment, MovementTransfer:
		return true
	}
	return false
}

// Source records where a movement came from.
type Source string

const (
	SourceManual    Source = "manual"
	SourceImport    Source = "import"
	SourceERP       Source = "erp"
	SourceMigration Source = "migration"
)

// Movement is one immutable ledger record.
type Movement struct {
	ID                  string            `json:"id"`
	CompanyID           string            `json:"companyId"`
	Type                MovementType      `json:"type"`
	SKU                 string            `json:"sku"`
	WarehouseID         string            `json:"warehouseId"`
	WarehouseIDTo       string            `json:"warehouseIdTo,omitempty"`
	Qty                 decimal.Decimal   `json:"qty"`
	UnitCost            *decimal.Decimal  `json:"unitCost,omitempty"`
	TotalCost           *decimal.Decimal  `json:"totalCost,omitempty"`
	OccurredAt          time.Time         `json:"occurredAt"`
	CreatedAt           time.Time         `json:"createdAt"`
	CreatedBy           string            `json:"createdBy"`
	Source              Source            `json:"source"`
	DocumentID          string            `json:"documentId,omitempty"`
	PurchaseOrderLineID string            `json:"purchaseOrderLineId,omitempty"`
	Note                string            `json:"note,omitempty"`
	ExternalRefs        map[string]string `json:"externalRefs,omitempty"`
}

func (m Movement) clone() Movement {
	if m.UnitCost != nil {
		v := *m.UnitCost
		m.UnitCost = &v
	}
	if m.TotalCost != nil {
		v := *m.TotalCost
		m.TotalCost = &v
	}
	if m.ExternalRefs != nil {
		refs := make(map[string]string, len(m.ExternalRefs))
		for k, v := range m.ExternalRefs {
			refs[k] = v
		}
		m.ExternalRefs = refs
	}
	return m
}

// MoveInput describes a manual or system movement request.
type MoveInput struct {
	SKU                 string
	WarehouseID         string
	Qty                 decimal.Decimal
	OccurredAt          time.Time
	UnitCost            *decimal.Decimal
	DocumentID          string
	PurchaseOrderLineID string
	Note                string
	Source              Source
	ExternalRefs        map[string]string
}

// KardexEntry is one row of the running-balance stock card.
type KardexEntry struct {
	MovementID     string          `json:"movementId"`
	OccurredAt     time.Time       `json:"occurredAt"`
	CreatedAt      time.Time       `json:"createdAt"`
	Type           MovementType    `json:"type"`
	Qty            decimal.Decimal `json:"qty"`
	RunningBalance decimal.Decimal `json:"runningBalance"`
	DocumentID     string          `json:"documentId,omitempty"`
}

// WarehouseSummary counts movements touching a warehouse.
type WarehouseSummary struct {
	WarehouseID  string `json:"warehouseId"`
	Receipts     int    `json:"receipts"`
	Issues       int    `json:"issues"`
	Adjustments  int    `json:"adjustments"`
	TransfersIn  int    `json:"transfersIn"`
	TransfersOut int    `json:"transfersOut"`
	Total        int    `json:"total"`
}

// BalanceLine is the on-hand quantity of one SKU.
type BalanceLine struct {
	SKU string          `json:"sku"`
	Qty decimal.Decimal `json:"qty"`
}

// TransferStatus tracks a transfer document.
type TransferStatus string

const (
	TransferPending   TransferStatus = "pending"
	TransferCompleted TransferStatus = "completed"
	TransferCancelled TransferStatus = "cancelled"
)

// TransferLine is one SKU on a transfer.
type TransferLine struct {
	SKU string          `json:"sku"`
	Qty decimal.Decimal `json:"qty"`
}

// Transfer moves several SKUs between two warehouses once completed.
type Transfer struct {
	ID          string         `json:"id"`
	CompanyID   string         `json:"companyId"`
	From        string         `json:"from"`
	To          string         `json:"to"`
	Items       []TransferLine `json:"items"`
	Notes       string         `json:"notes,omitempty"`
	Status      TransferStatus `json:"status"`
	CreatedAt   time.Time      `json:"createdAt"`
	CreatedBy   string         `json:"createdBy"`
	CompletedAt *time.Time     `json:"completedAt,omitempty"`
	CancelledAt *time.Time     `json:"cancelledAt,omitempty"`
}

func (t Transfer) clone() Transfer {
	t.Items = append([]TransferLine(nil), t.Items...)
	return t
}

// TransferInput describes a transfer request between warehouses.
type TransferInput struct {
	From  string
	To    string
	Items []TransferLine
	Notes string
}

var (
	// ErrNegativeStock triggered when movement would result negative qty.
	ErrNegativeStock = shared.NewKindError(shared.ErrConflict, "inventory: negative stock not allowed")
	// ErrInvalidQuantity indicates invalid qty.
	ErrInvalidQuantity = shared.NewKindError(shared.ErrValidation, "inventory: quantity must be greater than zero")
	// ErrInvalidUnitCost indicates invalid cost value.
	ErrInvalidUnitCost = shared.NewKindError(shared.ErrValidation, "inventory: unit cost must be >= 0")
	// ErrMissingField indicates an absent sku or warehouse.
	ErrMissingField = shared.NewKindError(shared.ErrValidation, "inventory: sku and warehouse required")
	// ErrSameWarehouse indicates a transfer whose origin equals its destination.
	ErrSameWarehouse = shared.NewKindError(shared.ErrValidation, "inventory: source and destination warehouse must differ")
	// ErrTransferNotFound indicates an unknown transfer id.
	ErrTransferNotFound = shared.NewKindError(shared.ErrNotFound, "inventory: transfer not found")
	// ErrTransferNotPending indicates completion or cancellation of a closed transfer.
	ErrTransferNotPending = shared.NewKindError(shared.ErrConflict, "inventory: transfer is not pending")
	// ErrBatchAlreadyImported indicates a batch id that was applied before.
	ErrBatchAlreadyImported = shared.NewKindError(shared.ErrConflict, "inventory: batch already imported")
)
