package shared

import (
	"errors"
	"sort"
	"sync"
	"time"
)

// IdempotencyRecord describes a processed key.
type IdempotencyRecord struct {
	Key       string         `json:"key"`
	Module    string         `json:"module"`
	CreatedAt time.Time      `json:"createdAt"`
	Meta      map[string]any `json:"meta,omitempty"`
}

// IdempotencyStore keeps processed keys in memory. Its records are part of
// the owning aggregate's persisted blob.
type IdempotencyStore struct {
	mu      sync.RWMutex
	records map[string]IdempotencyRecord
}

// NewIdempotencyStore constructs the store.
func NewIdempotencyStore() *IdempotencyStore {
	return &IdempotencyStore{records: make(map[string]IdempotencyRecord)}
}

// ErrIdempotencyConflict indicates a duplicate key.
var ErrIdempotencyConflict = errors.New("idempotent request already processed")

// CheckAndInsert ensures key uniqueness.
func (s *IdempotencyStore) CheckAndInsert(rec IdempotencyRecord) error {
	if s == nil {
		return errors.New("idempotency store not initialised")
	}
	if rec.Key == "" {
		return errors.New("idempotency key required")
	}
	if rec.Module == "" {
		return errors.New("idempotency module required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.Key]; ok {
		return ErrIdempotencyConflict
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	s.records[rec.Key] = rec
	return nil
}

// Has reports whether key was processed.
func (s *IdempotencyStore) Has(key string) bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.records[key]
	return ok
}

// Records returns a snapshot keyed by idempotency key.
func (s *IdempotencyStore) Records() map[string]IdempotencyRecord {
	out := make(map[string]IdempotencyRecord)
	if s == nil {
		return out
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for k, v := range s.records {
		out[k] = v
	}
	return out
}

// Keys lists keys in creation order.
func (s *IdempotencyStore) Keys() []string {
	recs := s.Records()
	keys := make([]string, 0, len(recs))
	for k := range recs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := recs[keys[i]], recs[keys[j]]
		if a.CreatedAt.Equal(b.CreatedAt) {
			return keys[i] < keys[j]
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return keys
}

// Replace swaps the full record set, used when restoring a snapshot.
func (s *IdempotencyStore) Replace(records map[string]IdempotencyRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]IdempotencyRecord, len(records))
	for k, v := range records {
		if v.Key == "" {
			v.Key = k
		}
		s.records[k] = v
	}
}
