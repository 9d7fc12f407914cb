package audit

import (
	"encoding/json"
	"sync"
	"time"
)

// Entry is one immutable audit record.
type Entry struct {
	ID                string         `json:"id"`
	CompanyID         string         `json:"companyId"`
	EntityType        string         `json:"entityType"`
	EntityID          string         `json:"entityId"`
	Action            string         `json:"action"`
	FromValue         string         `json:"fromValue,omitempty"`
	ToValue           string         `json:"toValue,omitempty"`
	PerformedByUserID string         `json:"performedByUserId"`
	PerformedAt       time.Time      `json:"performedAt"`
	Metadata          map[string]any `json:"metadata,omitempty"`
}

// Store keeps audit entries in insertion order. Entries are never updated
// or removed.
type Store struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{}
}

// Append adds entries at the end of the log.
func (s *Store) Append(entries ...Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		s.entries = append(s.entries, cloneEntry(e))
	}
}

// All returns a copy of every entry in insertion order.
func (s *Store) All() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, len(s.entries))
	for i, e := range s.entries {
		out[i] = cloneEntry(e)
	}
	return out
}

// Len reports the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func cloneEntry(e Entry) Entry {
	if e.Metadata != nil {
		meta := make(map[string]any, len(e.Metadata))
		for k, v := range e.Metadata {
			meta[k] = v
		}
		e.Metadata = meta
	}
	return e
}

type snapshot struct {
	Logs []Entry `json:"logs"`
}

// AggregateName is the persisted blob name.
func (s *Store) AggregateName() string { return "audit" }

// MarshalSnapshot serialises the log.
func (s *Store) MarshalSnapshot() ([]byte, error) {
	return json.Marshal(snapshot{Logs: s.All()})
}

// RestoreSnapshot replaces the log with a persisted one.
func (s *Store) RestoreSnapshot(data []byte) error {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}
	s.mu.Lock()
	s.entries = snap.Logs
	s.mu.Unlock()
	return nil
}
