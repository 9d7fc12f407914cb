package inventory

import (
	"sort"

	"github.com/shopspring/decimal"
)

// MovementSource exposes the ledger to projections.
type MovementSource interface {
	All() []Movement
}

// QueryService derives balances and reports by replaying the ledger. Reads
// never fail: unknown keys yield zero or empty results.
type QueryService struct {
	source MovementSource
}

// NewQueryService builds projections over source.
func NewQueryService(source MovementSource) *QueryService {
	return &QueryService{source: source}
}

// SignedDelta is the quantity change m causes at warehouseID.
func SignedDelta(m Movement, warehouseID string) decimal.Decimal {
	switch m.Type {
	case MovementReceipt:
		if m.WarehouseID == warehouseID {
			return m.Qty
		}
	case MovementIssue:
		if m.WarehouseID == warehouseID {
			return m.Qty.Neg()
		}
	case MovementAdjustment:
		if m.WarehouseID == warehouseID {
			return m.Qty
		}
	case MovementTransfer:
		if m.WarehouseID == warehouseID {
			return m.Qty.Neg()
		}
		if m.WarehouseIDTo == warehouseID {
			return m.Qty
		}
	}
	return decimal.Zero
}

func touches(m Movement, warehouseID string) bool {
	if m.WarehouseID == warehouseID {
		return true
	}
	return m.Type == MovementTransfer && m.WarehouseIDTo == warehouseID
}

// BalanceOf folds movs for one SKU at one warehouse.
func BalanceOf(movs []Movement, sku, warehouseID string) decimal.Decimal {
	total := decimal.Zero
	for _, m := range movs {
		if m.SKU != sku {
			continue
		}
		total = total.Add(SignedDelta(m, warehouseID))
	}
	return total
}

// All returns every movement in insertion order.
func (q *QueryService) All() []Movement {
	return q.source.All()
}

// BySKU lists movements of one SKU.
func (q *QueryService) BySKU(sku string) []Movement {
	return q.filter(func(m Movement) bool { return m.SKU == sku })
}

// ByDocument lists movements referencing a document id.
func (q *QueryService) ByDocument(documentID string) []Movement {
	if documentID == "" {
		return nil
	}
	return q.filter(func(m Movement) bool { return m.DocumentID == documentID })
}

// ByPurchaseOrderLine lists movements posted for one order line.
func (q *QueryService) ByPurchaseOrderLine(lineID string) []Movement {
	if lineID == "" {
		return nil
	}
	return q.filter(func(m Movement) bool { return m.PurchaseOrderLineID == lineID })
}

// Balance is the on-hand quantity of sku at warehouseID.
func (q *QueryService) Balance(sku, warehouseID string) decimal.Decimal {
	return BalanceOf(q.source.All(), sku, warehouseID)
}

// Kardex lists the movements of sku at warehouseID in business-date order
// with the running balance after each one.
func (q *QueryService) Kardex(sku, warehouseID string) []KardexEntry {
	var entries []KardexEntry
	for _, m := range q.source.All() {
		if m.SKU != sku || !touches(m, warehouseID) {
			continue
		}
		entries = append(entries, KardexEntry{
			MovementID: m.ID,
			OccurredAt: m.OccurredAt,
			CreatedAt:  m.CreatedAt,
			Type:       m.Type,
			Qty:        SignedDelta(m, warehouseID),
			DocumentID: m.DocumentID,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].OccurredAt.Equal(entries[j].OccurredAt) {
			return entries[i].OccurredAt.Before(entries[j].OccurredAt)
		}
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
	running := decimal.Zero
	for i := range entries {
		running = running.Add(entries[i].Qty)
		entries[i].RunningBalance = running
	}
	return entries
}

// WarehouseSummary counts movements touching warehouseID by kind.
func (q *QueryService) WarehouseSummary(warehouseID string) WarehouseSummary {
	summary := WarehouseSummary{WarehouseID: warehouseID}
	for _, m := range q.source.All() {
		switch m.Type {
		case MovementReceipt:
			if m.WarehouseID == warehouseID {
				summary.Receipts++
			}
		case MovementIssue:
			if m.WarehouseID == warehouseID {
				summary.Issues++
			}
		case MovementAdjustment:
			if m.WarehouseID == warehouseID {
				summary.Adjustments++
			}
		case MovementTransfer:
			if m.WarehouseID == warehouseID {
				summary.TransfersOut++
			}
			if m.WarehouseIDTo == warehouseID {
				summary.TransfersIn++
			}
		}
	}
	summary.Total = summary.Receipts + summary.Issues + summary.Adjustments + summary.TransfersIn + summary.TransfersOut
	return summary
}

// BalancesByWarehouse lists non-zero balances at warehouseID ordered by SKU.
func (q *QueryService) BalancesByWarehouse(warehouseID string) []BalanceLine {
	totals := make(map[string]decimal.Decimal)
	for _, m := range q.source.All() {
		if !touches(m, warehouseID) {
			continue
		}
		cur, ok := totals[m.SKU]
		if !ok {
			cur = decimal.Zero
		}
		totals[m.SKU] = cur.Add(SignedDelta(m, warehouseID))
	}
	out := make([]BalanceLine, 0, len(totals))
	for sku, qty := range totals {
		if qty.IsZero() {
			continue
		}
		out = append(out, BalanceLine{SKU: sku, Qty: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out
}

func (q *QueryService) filter(keep func(Movement) bool) []Movement {
	var out []Movement
	for _, m := range q.source.All() {
		if keep(m) {
			out = append(out, m)
		}
	}
	return out
}
