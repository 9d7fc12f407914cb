package jobs

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/stockledger/internal/inventory"
	"github.com/odyssey-erp/stockledger/internal/platform/kv"
)

// LiveLedger is the in-memory movement log.
type LiveLedger interface {
	CompanyID() string
	All() []inventory.Movement
}

// SnapshotReader reads persisted aggregate blobs.
type SnapshotReader interface {
	Stored(ctx context.Context, aggregate string) ([]byte, error)
}

// BalanceDrift is one (sku, warehouse) whose live balance differs from the
// balance replayed from the persisted ledger.
type BalanceDrift struct {
	SKU         string          `json:"sku"`
	WarehouseID string          `json:"warehouseId"`
	Live        decimal.Decimal `json:"live"`
	Stored      decimal.Decimal `json:"stored"`
}

// IntegrityReport summarises one integrity run.
type IntegrityReport struct {
	LiveMovements   int            `json:"liveMovements"`
	StoredMovements int            `json:"storedMovements"`
	DuplicateIDs    []string       `json:"duplicateIds,omitempty"`
	Drift           []BalanceDrift `json:"drift,omitempty"`
}

// Clean reports whether nothing diverged.
func (r IntegrityReport) Clean() bool {
	return len(r.Drift) == 0 && len(r.DuplicateIDs) == 0 && r.LiveMovements == r.StoredMovements
}

// CheckIntegrity replays the persisted ledger into a scratch store and
// compares every balance with the live one. Movement ids must be unique.
func CheckIntegrity(ctx context.Context, live LiveLedger, stored SnapshotReader) (IntegrityReport, error) {
	liveMovs := live.All()
	scratch := inventory.NewStore(live.CompanyID())
	raw, err := stored.Stored(ctx, scratch.AggregateName())
	switch {
	case errors.Is(err, kv.ErrNotFound):
	case err != nil:
		return IntegrityReport{}, fmt.Errorf("jobs: read stored ledger: %w", err)
	default:
		if err := scratch.RestoreSnapshot(raw); err != nil {
			return IntegrityReport{}, fmt.Errorf("jobs: restore stored ledger: %w", err)
		}
	}
	storedMovs := scratch.All()

	report := IntegrityReport{LiveMovements: len(liveMovs), StoredMovements: len(storedMovs)}
	seen := make(map[string]struct{}, len(liveMovs))
	for _, m := range liveMovs {
		if _, dup := seen[m.ID]; dup {
			report.DuplicateIDs = append(report.DuplicateIDs, m.ID)
			continue
		}
		seen[m.ID] = struct{}{}
	}

	for _, key := range balanceKeys(liveMovs, storedMovs) {
		l := inventory.BalanceOf(liveMovs, key.sku, key.warehouse)
		s := inventory.BalanceOf(storedMovs, key.sku, key.warehouse)
		if !l.Equal(s) {
			report.Drift = append(report.Drift, BalanceDrift{SKU: key.sku, WarehouseID: key.warehouse, Live: l, Stored: s})
		}
	}
	return report, nil
}

type balanceKey struct {
	sku       string
	warehouse string
}

func balanceKeys(sets ...[]inventory.Movement) []balanceKey {
	uniq := make(map[balanceKey]struct{})
	for _, movs := range sets {
		for _, m := range movs {
			uniq[balanceKey{m.SKU, m.WarehouseID}] = struct{}{}
			if m.WarehouseIDTo != "" {
				uniq[balanceKey{m.SKU, m.WarehouseIDTo}] = struct{}{}
			}
		}
	}
	keys := make([]balanceKey, 0, len(uniq))
	for k := range uniq {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].sku != keys[j].sku {
			return keys[i].sku < keys[j].sku
		}
		return keys[i].warehouse < keys[j].warehouse
	})
	return keys
}
