package procurement

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/stockledger/internal/shared"
)

// RequestStatus is the lifecycle state of a purchase request.
type RequestStatus string

const (
	StatusDraft       RequestStatus = "draft"
	StatusSubmitted   RequestStatus = "submitted"
	StatusUnderReview RequestStatus = "under_review"
	StatusApproved    RequestStatus = "approved"
	StatusRejected    RequestStatus = "rejected"
	StatusConverted   RequestStatus = "converted"
)

// DeliverySplit schedules part of an item for a date and supplier.
type DeliverySplit struct {
	Date       string           `json:"date"`
	Qty        decimal.Decimal  `json:"qty"`
	Supplier   string           `json:"supplier,omitempty"`
	UnitPrice  *decimal.Decimal `json:"unitPrice,omitempty"`
	ExternalPO string           `json:"externalPo,omitempty"`
	EmailSent  bool             `json:"emailSent"`
}

// RequestItem is one requested SKU.
type RequestItem struct {
	Code     string          `json:"code"`
	Desc     string          `json:"desc"`
	TotalQty decimal.Decimal `json:"totalQty"`
	Splits   []DeliverySplit `json:"splits,omitempty"`
}

// PurchaseRequest is mutated only through Service.Transition once created.
type PurchaseRequest struct {
	ID          string        `json:"id"`
	CompanyID   string        `json:"companyId"`
	WarehouseID string        `json:"warehouseId"`
	Status      RequestStatus `json:"status"`
	Items       []RequestItem `json:"items"`
	Version     int           `json:"version"`
	Notes       string        `json:"notes,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	CreatedBy   string        `json:"createdBy"`
	SubmittedAt *time.Time    `json:"submittedAt,omitempty"`
	ApprovedAt  *time.Time    `json:"approvedAt,omitempty"`
	RejectedAt  *time.Time    `json:"rejectedAt,omitempty"`
	ConvertedAt *time.Time    `json:"convertedAt,omitempty"`
}

func (r PurchaseRequest) clone() PurchaseRequest {
	items := make([]RequestItem, len(r.Items))
	for i, item := range r.Items {
		item.Splits = append([]DeliverySplit(nil), item.Splits...)
		items[i] = item
	}
	r.Items = items
	return r
}

// OrderStatus is the lifecycle state of a purchase order.
type OrderStatus string

const (
	OrderOpen      OrderStatus = "open"
	OrderClosed    OrderStatus = "closed"
	OrderCancelled OrderStatus = "cancelled"
)

// PurchaseOrder is created from an approved request. OrderNumber holds the
// request id.
type PurchaseOrder struct {
	ID          string      `json:"id"`
	CompanyID   string      `json:"companyId"`
	OrderNumber string      `json:"orderNumber"`
	WarehouseID string      `json:"warehouseId"`
	Status      OrderStatus `json:"status"`
	OrderDate   time.Time   `json:"orderDate"`
	CreatedBy   string      `json:"createdBy"`
}

// PurchaseOrderLine mirrors one request item.
type PurchaseOrderLine struct {
	ID               string          `json:"id"`
	PurchaseOrderID  string          `json:"purchaseOrderId"`
	LineNumber       int             `json:"lineNumber"`
	SKU              string          `json:"sku"`
	Description      string          `json:"description,omitempty"`
	OrderedQty       decimal.Decimal `json:"orderedQty"`
	UnitPriceOrdered decimal.Decimal `json:"unitPriceOrdered"`
	Currency         string          `json:"currency"`
}

// LinePricing overrides the placeholder price of the line for Code.
type LinePricing struct {
	Code      string          `json:"code"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Currency  string          `json:"currency,omitempty"`
}

// ConvertResult is returned by Service.Convert.
type ConvertResult struct {
	Order   PurchaseOrder       `json:"purchaseOrder"`
	Lines   []PurchaseOrderLine `json:"purchaseOrderLines"`
	Request PurchaseRequest     `json:"purchaseRequest"`
}

// DefaultCurrency is used for order lines without explicit pricing.
const DefaultCurrency = "USD"

var (
	// ErrInvalidState matches every InvalidTransitionError.
	ErrInvalidState = errors.New("procurement: invalid state transition")
	// ErrAlreadyConverted guards against converting a request twice.
	ErrAlreadyConverted = shared.NewKindError(shared.ErrConflict, "PurchaseRequest already converted to PurchaseOrder.")
	// ErrStaleRequest indicates the caller holds an outdated copy of the request.
	ErrStaleRequest = shared.NewKindError(shared.ErrConflict, "procurement: purchase request was modified concurrently")
	// ErrNotFound indicates record missing.
	ErrNotFound = shared.NewKindError(shared.ErrNotFound, "procurement: not found")
	// ErrValidation indicates invalid input.
	ErrValidation = shared.NewKindError(shared.ErrValidation, "procurement: invalid input")
	// ErrDuplicateRequest indicates a create with an id already in use.
	ErrDuplicateRequest = shared.NewKindError(shared.ErrConflict, "procurement: purchase request already exists")
)
