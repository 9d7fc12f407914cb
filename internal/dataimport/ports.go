package dataimport

import (
	"context"

	"github.com/odyssey-erp/stockledger/internal/audit"
	"github.com/odyssey-erp/stockledger/internal/events"
	"github.com/odyssey-erp/stockledger/internal/inventory"
	"github.com/odyssey-erp/stockledger/internal/shared"
)

// Ledger is the part of the inventory store the applier writes to.
type Ledger interface {
	CompanyID() string
	BatchImported(batchID string) bool
	AppendBatch(rec shared.IdempotencyRecord, movs []inventory.Movement) error
}

// WarehouseResolver maps warehouse labels from spreadsheets to ids.
type WarehouseResolver interface {
	ResolveWarehouseID(name string) (string, bool)
}

// AuditPort records the batch summary.
type AuditPort interface {
	Record(ctx context.Context, entry audit.Entry) (audit.Entry, error)
}

// Flusher writes named aggregates to the durable store.
type Flusher interface {
	Flush(ctx context.Context, aggregates ...string) error
}

// Publisher delivers committed domain events.
type Publisher interface {
	Publish(ctx context.Context, evt events.Event) error
}
