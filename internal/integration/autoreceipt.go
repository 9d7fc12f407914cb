// Package integration reacts to committed domain events across modules.
package integration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/stockledger/internal/events"
	"github.com/odyssey-erp/stockledger/internal/inventory"
	"github.com/odyssey-erp/stockledger/internal/procurement"
	"github.com/odyssey-erp/stockledger/internal/shared"
)

// Receiver posts receipts into the ledger.
type Receiver interface {
	MoveIn(ctx context.Context, input inventory.MoveInput) (inventory.Movement, error)
}

// ReceiptIndex tells whether an order line has already been received.
type ReceiptIndex interface {
	ByPurchaseOrderLine(lineID string) []inventory.Movement
}

// AutoReceipt books the goods of every new purchase order into its warehouse.
type AutoReceipt struct {
	receiver Receiver
	index    ReceiptIndex
	logger   *slog.Logger
}

// NewAutoReceipt constructs the hook.
func NewAutoReceipt(receiver Receiver, index ReceiptIndex, logger *slog.Logger) *AutoReceipt {
	if logger == nil {
		logger = slog.Default()
	}
	return &AutoReceipt{receiver: receiver, index: index, logger: logger}
}

// Attach subscribes the hook and returns the unsubscribe function.
func (a *AutoReceipt) Attach(bus *events.Bus) func() {
	return bus.Subscribe(a.Handle)
}

// Handle implements events.Handler.
func (a *AutoReceipt) Handle(ctx context.Context, evt events.Event) error {
	switch e := evt.(type) {
	case procurement.PurchaseOrderCreated:
		return a.receive(ctx, e)
	case *procurement.PurchaseOrderCreated:
		if e == nil {
			return nil
		}
		return a.receive(ctx, *e)
	}
	return nil
}

func (a *AutoReceipt) receive(ctx context.Context, evt procurement.PurchaseOrderCreated) error {
	if a == nil || a.receiver == nil {
		return nil
	}
	var errs []error
	received := 0
	for _, line := range evt.Lines {
		if !line.OrderedQty.IsPositive() {
			continue
		}
		if a.index != nil && len(a.index.ByPurchaseOrderLine(line.ID)) > 0 {
			continue
		}
		_, err := a.receiver.MoveIn(ctx, inventory.MoveInput{
			SKU:                 line.SKU,
			WarehouseID:         evt.Order.WarehouseID,
			Qty:                 line.OrderedQty,
			OccurredAt:          evt.Order.OrderDate,
			UnitCost:            unitCost(line),
			DocumentID:          evt.Order.ID,
			PurchaseOrderLineID: line.ID,
			Note:                fmt.Sprintf("PO %s line %d", evt.Order.OrderNumber, line.LineNumber),
			Source:              inventory.SourceERP,
		})
		if shared.IsWarning(err) {
			errs = append(errs, err)
		} else if err != nil {
			errs = append(errs, fmt.Errorf("integration: receive line %d: %w", line.LineNumber, err))
			continue
		}
		received++
	}
	a.logger.Info("purchase order received",
		slog.String("order", evt.Order.ID),
		slog.String("warehouse", evt.Order.WarehouseID),
		slog.Int("lines", received))
	return errors.Join(errs...)
}

func unitCost(line procurement.PurchaseOrderLine) *decimal.Decimal {
	if line.UnitPriceOrdered.IsZero() {
		return nil
	}
	price := line.UnitPriceOrdered
	return &price
}
