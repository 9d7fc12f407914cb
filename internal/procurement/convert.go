package procurement

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/stockledger/internal/audit"
	"github.com/odyssey-erp/stockledger/internal/rbac"
)

// Convert turns an approved request into one open purchase order with a line
// per item, then moves the request to converted. pricing optionally replaces
// the zero placeholder price per item code.
func (s *Service) Convert(ctx context.Context, req PurchaseRequest, pricing []LinePricing) (ConvertResult, error) {
	actor, err := s.authorize(ctx, rbac.ActionPRConvertToPO)
	if err != nil {
		return ConvertResult{}, err
	}

	s.mu.Lock()
	if req.Status != StatusApproved {
		s.mu.Unlock()
		return ConvertResult{}, &InvalidTransitionError{From: req.Status, To: StatusConverted}
	}
	if _, exists := s.orders.ByOrderNumber(req.ID); exists {
		s.mu.Unlock()
		return ConvertResult{}, ErrAlreadyConverted
	}
	prices := make(map[string]LinePricing, len(pricing))
	for _, p := range pricing {
		prices[strings.TrimSpace(p.Code)] = p
	}
	now := s.now()
	order := PurchaseOrder{
		ID:          s.newID(),
		CompanyID:   req.CompanyID,
		OrderNumber: req.ID,
		WarehouseID: req.WarehouseID,
		Status:      OrderOpen,
		OrderDate:   now,
		CreatedBy:   actor.UserID,
	}
	if order.CompanyID == "" {
		order.CompanyID = s.companyID
	}
	lines := make([]PurchaseOrderLine, 0, len(req.Items))
	for i, item := range req.Items {
		line := PurchaseOrderLine{
			ID:               s.newID(),
			PurchaseOrderID:  order.ID,
			LineNumber:       i + 1,
			SKU:              item.Code,
			Description:      item.Desc,
			OrderedQty:       item.TotalQty,
			UnitPriceOrdered: decimal.Zero,
			Currency:         DefaultCurrency,
		}
		if p, ok := prices[item.Code]; ok {
			line.UnitPriceOrdered = p.UnitPrice
			if p.Currency != "" {
				line.Currency = strings.ToUpper(p.Currency)
			}
		}
		lines = append(lines, line)
	}

	updated, _, err := s.transitionLocked(ctx, req, StatusApproved, StatusConverted)
	if err != nil {
		s.mu.Unlock()
		return ConvertResult{}, err
	}
	s.orders.Insert(order, lines)
	s.mu.Unlock()

	s.record(ctx, audit.Entry{
		EntityType:        "PurchaseOrder",
		EntityID:          order.ID,
		Action:            string(rbac.ActionPOCreate),
		ToValue:           string(OrderOpen),
		PerformedByUserID: actor.UserID,
		Metadata:          map[string]any{"orderNumber": order.OrderNumber, "lines": len(lines)},
	})
	s.recordTransition(ctx, actor, updated, StatusApproved, StatusConverted)

	result := ConvertResult{Order: order, Lines: lines, Request: updated}
	return result, s.afterCommit(ctx, []string{"purchase_orders", "purchase_requests", "audit"},
		RequestTransitioned{Request: updated, From: StatusApproved, To: StatusConverted, UserID: actor.UserID},
		PurchaseOrderCreated{Order: order, Lines: append([]PurchaseOrderLine(nil), lines...), RequestID: req.ID, UserID: actor.UserID},
	)
}
