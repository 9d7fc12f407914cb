package inventory

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/odyssey-erp/stockledger/internal/shared"
)

const batchModule = "import"

// Store is the append-only movement ledger of one company together with the
// registry of imported batch ids.
type Store struct {
	mu        sync.RWMutex
	companyID string
	movements []Movement
	batches   *shared.IdempotencyStore
}

// NewStore constructs an empty ledger.
func NewStore(companyID string) *Store {
	return &Store{companyID: companyID, batches: shared.NewIdempotencyStore()}
}

// CompanyID returns the tenant owning the ledger.
func (s *Store) CompanyID() string { return s.companyID }

// Append adds movements at the end of the ledger in the given order.
func (s *Store) Append(movs ...Movement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range movs {
		s.movements = append(s.movements, m.clone())
	}
}

// All returns copies of every movement in insertion order.
func (s *Store) All() []Movement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Movement, len(s.movements))
	for i, m := range s.movements {
		out[i] = m.clone()
	}
	return out
}

// Len reports the number of movements.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.movements)
}

// BatchImported reports whether batchID was applied before.
func (s *Store) BatchImported(batchID string) bool {
	return s.batches.Has(batchID)
}

// RegisterBatch marks a batch id as applied.
func (s *Store) RegisterBatch(rec shared.IdempotencyRecord) error {
	rec.Module = batchModule
	if err := s.batches.CheckAndInsert(rec); err != nil {
		if errors.Is(err, shared.ErrIdempotencyConflict) {
			return ErrBatchAlreadyImported
		}
		return err
	}
	return nil
}

// AppendBatch registers rec and appends movs as one unit. A batch id seen
// before leaves the ledger untouched.
func (s *Store) AppendBatch(rec shared.IdempotencyRecord, movs []Movement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.RegisterBatch(rec); err != nil {
		return err
	}
	for _, m := range movs {
		s.movements = append(s.movements, m.clone())
	}
	return nil
}

// ImportedBatches lists applied batch ids in registration order.
func (s *Store) ImportedBatches() []string {
	return s.batches.Keys()
}

type ledgerSnapshot struct {
	CompanyID       string                              `json:"companyId"`
	Movements       []Movement                          `json:"movements"`
	ImportedBatches map[string]shared.IdempotencyRecord `json:"importedBatches"`
}

// AggregateName is the persisted blob name.
func (s *Store) AggregateName() string { return "ledger" }

// MarshalSnapshot serialises movements and the batch registry.
func (s *Store) MarshalSnapshot() ([]byte, error) {
	return json.Marshal(ledgerSnapshot{
		CompanyID:       s.companyID,
		Movements:       s.All(),
		ImportedBatches: s.batches.Records(),
	})
}

// RestoreSnapshot replaces the ledger with a persisted one. A blob written for
// another company is rejected.
func (s *Store) RestoreSnapshot(data []byte) error {
	var snap ledgerSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}
	if snap.CompanyID != "" && s.companyID != "" && snap.CompanyID != s.companyID {
		return shared.ErrCompanyMismatch
	}
	s.mu.Lock()
	s.movements = snap.Movements
	s.mu.Unlock()
	s.batches.Replace(snap.ImportedBatches)
	return nil
}
