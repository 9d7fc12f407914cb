package procurement

import (
	"context"

	"github.com/odyssey-erp/stockledger/internal/audit"
	"github.com/odyssey-erp/stockledger/internal/events"
)

// AuditPort abstracts audit logging functionality.
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
