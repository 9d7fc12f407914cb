package observability

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/odyssey-erp/stockledger/internal/dataimport"
	"github.com/odyssey-erp/stockledger/internal/events"
	"github.com/odyssey-erp/stockledger/internal/inventory"
)

// LedgerMetrics counts committed ledger activity. It learns about commits
// from the event bus and about failed writes from the persister hook.
type LedgerMetrics struct {
	movements     *prometheus.CounterVec
	importRows    *prometheus.CounterVec
	flushFailures *prometheus.CounterVec
}

func newLedgerMetrics(registerer prometheus.Registerer) *LedgerMetrics {
	movements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "movements_appended_total",
		Help:      "Movements appended to the ledger by type and source.",
	}, []string{"type", "source"})
	importRows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "import_rows_total",
		Help:      "Import rows by batch kind and outcome.",
	}, []string{"kind", "outcome"})
	flushFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "flush_failures_total",
		Help:      "Failed writes of a persisted aggregate.",
	}, []string{"aggregate"})
	registerer.MustRegister(movements, importRows, flushFailures)
	return &LedgerMetrics{movements: movements, importRows: importRows, flushFailures: flushFailures}
}

// Attach subscribes the collectors to bus.
func (l *LedgerMetrics) Attach(bus *events.Bus) func() {
	return bus.Subscribe(l.observe)
}

func (l *LedgerMetrics) observe(_ context.Context, evt events.Event) error {
	if l == nil {
		return nil
	}
	switch e := evt.(type) {
	case inventory.MovementsAppended:
		for _, m := range e.Movements {
			l.movements.WithLabelValues(string(m.Type), string(e.Source)).Inc()
		}
	case dataimport.BatchApplied:
		kind := string(e.Batch.Kind)
		l.importRows.WithLabelValues(kind, "applied").Add(float64(e.Result.RowsApplied))
		l.importRows.WithLabelValues(kind, "rejected").Add(float64(e.Result.RowsRejected))
	}
	return nil
}

// FlushFailed matches the persister failure hook signature.
func (l *LedgerMetrics) FlushFailed(aggregates []string, _ error) {
	if l == nil {
		return
	}
	for _, name := range aggregates {
		l.flushFailures.WithLabelValues(name).Inc()
	}
}
