package integration

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/stockledger/internal/audit"
	"github.com/odyssey-erp/stockledger/internal/events"
	"github.com/odyssey-erp/stockledger/internal/inventory"
	"github.com/odyssey-erp/stockledger/internal/procurement"
	"github.com/odyssey-erp/stockledger/internal/rbac"
	"github.com/odyssey-erp/stockledger/internal/shared"
)

type harness struct {
	bus         *events.Bus
	ledger      *inventory.Service
	procurement *procurement.Service
}

func newHarness(t *testing.T) harness {
	t.Helper()
	bus := events.NewBus()
	auditSvc := audit.NewService(audit.NewStore(), "acme")
	ledger := inventory.NewService(inventory.NewStore("acme"), inventory.NewTransferStore(), auditSvc, nil, bus, nil, inventory.ServiceConfig{CompanyID: "acme"})
	proc := procurement.NewService(procurement.NewRequestStore(), procurement.NewOrderStore(), auditSvc, nil, bus, nil, "acme")
	NewAutoReceipt(ledger, ledger.Query(), nil).Attach(bus)
	return harness{bus: bus, ledger: ledger, procurement: proc}
}

func actor(role rbac.Role) context.Context {
	return shared.ContextWithActor(context.Background(), shared.Actor{UserID: "u-" + string(role), Role: string(role), CompanyID: "acme"})
}

func approvedRequest(t *testing.T, h harness) procurement.PurchaseRequest {
	t.Helper()
	req, err := h.procurement.Create(actor(rbac.RoleProcurement), procurement.PurchaseRequest{
		ID:          "PR-100",
		WarehouseID: "WH-A",
		Items: []procurement.RequestItem{
			{Code: "SKU-1", TotalQty: decimal.NewFromInt(12)},
			{Code: "SKU-2", TotalQty: decimal.NewFromInt(3)},
		},
	})
	require.NoError(t, err)
	for _, to := range []procurement.RequestStatus{procurement.StatusSubmitted, procurement.StatusUnderReview, procurement.StatusApproved} {
		req, err = h.procurement.Transition(actor(rbac.RoleManager), req, req.Status, to)
		require.NoError(t, err)
	}
	return req
}

func TestConvertedOrderIsReceived(t *testing.T) {
	h := newHarness(t)
	req := approvedRequest(t, h)

	result, err := h.procurement.Convert(actor(rbac.RoleProcurement), req, []procurement.LinePricing{{Code: "SKU-1", UnitPrice: decimal.NewFromInt(2)}})
	require.NoError(t, err)

	q := h.ledger.Query()
	require.True(t, q.Balance("SKU-1", "WH-A").Equal(decimal.NewFromInt(12)))
	require.True(t, q.Balance("SKU-2", "WH-A").Equal(decimal.NewFromInt(3)))

	movs := q.ByDocument(result.Order.ID)
	require.Len(t, movs, 2)
	for _, m := range movs {
		require.Equal(t, inventory.MovementReceipt, m.Type)
		require.Equal(t, inventory.SourceERP, m.Source)
		require.NotEmpty(t, m.PurchaseOrderLineID)
	}
	first := q.ByPurchaseOrderLine(result.Lines[0].ID)
	require.Len(t, first, 1)
	require.NotNil(t, first[0].UnitCost)
	require.True(t, first[0].UnitCost.Equal(decimal.NewFromInt(2)))
}

func TestRedeliveryDoesNotDoubleReceive(t *testing.T) {
	h := newHarness(t)
	req := approvedRequest(t, h)
	result, err := h.procurement.Convert(actor(rbac.RoleProcurement), req, nil)
	require.NoError(t, err)

	evt := procurement.PurchaseOrderCreated{Order: result.Order, Lines: result.Lines, RequestID: req.ID}
	require.NoError(t, h.bus.Publish(actor(rbac.RoleProcurement), evt))
	require.Len(t, h.ledger.Query().ByDocument(result.Order.ID), 2)
	require.True(t, h.ledger.Query().Balance("SKU-1", "WH-A").Equal(decimal.NewFromInt(12)))
}

func TestOtherEventsIgnored(t *testing.T) {
	hook := NewAutoReceipt(nil, nil, nil)
	require.NoError(t, hook.Handle(context.Background(), procurement.RequestTransitioned{}))
	require.NoError(t, hook.Handle(context.Background(), procurement.PurchaseOrderCreated{}))
}

func TestReceiptWithoutActorFails(t *testing.T) {
	h := newHarness(t)
	req := approvedRequest(t, h)

	// the receipt runs as the converting actor; a context without one is rejected
	result, err := h.procurement.Convert(actor(rbac.RoleProcurement), req, nil)
	require.NoError(t, err)
	err = NewAutoReceipt(h.ledger, nil, nil).Handle(context.Background(), procurement.PurchaseOrderCreated{Order: result.Order, Lines: result.Lines})
	require.ErrorIs(t, err, shared.ErrActorRequired)
}
