// Package persist writes in-memory aggregates through to a kv.Store and
// restores them at startup.
package persist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/odyssey-erp/stockledger/internal/platform/kv"
	"github.com/odyssey-erp/stockledger/internal/shared"
)

// Aggregate is one persisted blob.
type Aggregate interface {
	AggregateName() string
	MarshalSnapshot() ([]byte, error)
	RestoreSnapshot(data []byte) error
}

// ErrUnknownAggregate is returned when flushing a name never registered.
var ErrUnknownAggregate = errors.New("persist: unknown aggregate")

// Persister maps aggregates of one company onto kv keys.
type Persister struct {
	mu        sync.Mutex
	flushMu   sync.Mutex // held across marshal and write
	store     kv.Store
	prefix    string
	companyID string
	logger    *slog.Logger
	order     []string
	aggs      map[string]Aggregate
	onFailure func(aggregates []string, err error)
}

// New constructs a persister writing under prefix:companyID:<aggregate>.
func New(store kv.Store, prefix, companyID string, logger *slog.Logger) *Persister {
	if logger == nil {
		logger = slog.Default()
	}
	return &Persister{store: store, prefix: prefix, companyID: companyID, logger: logger, aggs: make(map[string]Aggregate)}
}

// OnFailure registers a callback invoked for every failed flush.
func (p *Persister) OnFailure(fn func(aggregates []string, err error)) {
	p.mu.Lock()
	p.onFailure = fn
	p.mu.Unlock()
}

// Register adds aggregates. Registering a name twice replaces the earlier one.
func (p *Persister) Register(aggs ...Aggregate) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, a := range aggs {
		name := a.AggregateName()
		if _, ok := p.aggs[name]; !ok {
			p.order = append(p.order, name)
		}
		p.aggs[name] = a
	}
}

// Names lists registered aggregates in registration order.
func (p *Persister) Names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.order...)
}

// Key returns the storage key of an aggregate.
func (p *Persister) Key(aggregate string) string {
	return shared.StoreKey(p.prefix, p.companyID, aggregate)
}

// Load restores every registered aggregate that has a stored blob.
func (p *Persister) Load(ctx context.Context) error {
	for _, name := range p.Names() {
		p.mu.Lock()
		agg := p.aggs[name]
		p.mu.Unlock()
		raw, err := p.store.Get(ctx, p.Key(name))
		if errors.Is(err, kv.ErrNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("persist: load %s: %w", name, err)
		}
		if err := agg.RestoreSnapshot(raw); err != nil {
			return fmt.Errorf("persist: restore %s: %w", name, err)
		}
		p.logger.Info("aggregate restored", slog.String("aggregate", name), slog.Int("bytes", len(raw)))
	}
	return nil
}

// Stored returns the persisted blob of an aggregate, kv.ErrNotFound when it
// was never written.
func (p *Persister) Stored(ctx context.Context, aggregate string) ([]byte, error) {
	return p.store.Get(ctx, p.Key(aggregate))
}

// Flush serialises the named aggregates and writes them in one call. With no
// names every registered aggregate is written.
func (p *Persister) Flush(ctx context.Context, aggregates ...string) error {
	if len(aggregates) == 0 {
		aggregates = p.Names()
	}
	err := p.flush(ctx, aggregates)
	if err != nil {
		p.mu.Lock()
		hook := p.onFailure
		p.mu.Unlock()
		if hook != nil {
			hook(aggregates, err)
		}
	}
	return err
}

func (p *Persister) flush(ctx context.Context, aggregates []string) error {
	p.flushMu.Lock()
	defer p.flushMu.Unlock()
	entries := make(map[string][]byte, len(aggregates))
	for _, name := range aggregates {
		p.mu.Lock()
		agg, ok := p.aggs[name]
		p.mu.Unlock()
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownAggregate, name)
		}
		raw, err := agg.MarshalSnapshot()
		if err != nil {
			return fmt.Errorf("persist: marshal %s: %w", name, err)
		}
		entries[p.Key(name)] = raw
	}
	if err := p.store.PutMany(ctx, entries); err != nil {
		return fmt.Errorf("persist: write: %w", err)
	}
	return nil
}
