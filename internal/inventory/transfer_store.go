package inventory

import (
	"encoding/json"
	"sort"
	"sync"
)

// TransferStore keeps transfer documents by id.
type TransferStore struct {
	mu        sync.RWMutex
	transfers map[string]Transfer
}

// NewTransferStore constructs an empty store.
func NewTransferStore() *TransferStore {
	return &TransferStore{transfers: make(map[string]Transfer)}
}

// Put inserts or replaces a transfer by id.
func (s *TransferStore) Put(t Transfer) {
	s.mu.Lock()
	s.transfers[t.ID] = t.clone()
	s.mu.Unlock()
}

// Get fetches a transfer.
func (s *TransferStore) Get(id string) (Transfer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.transfers[id]
	if !ok {
		return Transfer{}, false
	}
	return t.clone(), true
}

// List returns transfers ordered by creation time.
func (s *TransferStore) List() []Transfer {
	s.mu.RLock()
	out := make([]Transfer, 0, len(s.transfers))
	for _, t := range s.transfers {
		out = append(out, t.clone())
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

type transferSnapshot struct {
	Transfers []Transfer `json:"transfers"`
}

// AggregateName is the persisted blob name.
func (s *TransferStore) AggregateName() string { return "transfers" }

// MarshalSnapshot serialises all transfers.
func (s *TransferStore) MarshalSnapshot() ([]byte, error) {
	return json.Marshal(transferSnapshot{Transfers: s.List()})
}

// RestoreSnapshot replaces all transfers.
func (s *TransferStore) RestoreSnapshot(data []byte) error {
	var snap transferSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transfers = make(map[string]Transfer, len(snap.Transfers))
	for _, t := range snap.Transfers {
		s.transfers[t.ID] = t
	}
	return nil
}
