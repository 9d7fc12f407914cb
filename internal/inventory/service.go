package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/stockledger/internal/audit"
	"github.com/odyssey-erp/stockledger/internal/rbac"
	"github.com/odyssey-erp/stockledger/internal/shared"
)

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	CompanyID          string
	AllowNegativeStock bool
}

// Service coordinates policy-gated ledger mutations. One mutation runs at a
// time; reads go through QueryService.
type Service struct {
	mu        sync.Mutex
	store     *Store
	transfers *TransferStore
	query     *QueryService
	audit     AuditPort
	flusher   Flusher
	bus       Publisher
	logger    *slog.Logger
	cfg       ServiceConfig
	now       func() time.Time
	newID     func() string
}

// NewService builds Service. audit, flusher and bus may be nil.
func NewService(store *Store, transfers *TransferStore, audit AuditPort, flusher Flusher, bus Publisher, logger *slog.Logger, cfg ServiceConfig) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.CompanyID == "" {
		cfg.CompanyID = store.CompanyID()
	}
	return &Service{
		store:     store,
		transfers: transfers,
		query:     NewQueryService(store),
		audit:     audit,
		flusher:   flusher,
		bus:       bus,
		logger:    logger,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
}

// Query exposes the read projections over the same ledger.
func (s *Service) Query() *QueryService { return s.query }

// MoveIn posts a receipt.
func (s *Service) MoveIn(ctx context.Context, input MoveInput) (Movement, error) {
	return s.post(ctx, rbac.ActionLedgerMoveIn, MovementReceipt, input)
}

// MoveOut posts an issue. With negative stock disallowed the current balance
// must cover the quantity.
func (s *Service) MoveOut(ctx context.Context, input MoveInput) (Movement, error) {
	return s.post(ctx, rbac.ActionLedgerMoveOut, MovementIssue, input)
}

// Adjust posts a signed correction. Its sign is not validated.
func (s *Service) Adjust(ctx context.Context, input MoveInput) (Movement, error) {
	return s.post(ctx, rbac.ActionLedgerAdjust, MovementAdjustment, input)
}

func (s *Service) post(ctx context.Context, action rbac.Action, typ MovementType, input MoveInput) (Movement, error) {
	actor, err := s.authorize(ctx, action)
	if err != nil {
		return Movement{}, err
	}
	input.SKU = strings.TrimSpace(input.SKU)
	input.WarehouseID = strings.TrimSpace(input.WarehouseID)
	if input.SKU == "" || input.WarehouseID == "" {
		return Movement{}, ErrMissingField
	}
	if typ != MovementAdjustment && !input.Qty.IsPositive() {
		return Movement{}, ErrInvalidQuantity
	}
	if input.UnitCost != nil && input.UnitCost.IsNegative() {
		return Movement{}, ErrInvalidUnitCost
	}

	s.mu.Lock()
	if !s.cfg.AllowNegativeStock && typ != MovementReceipt {
		delta := input.Qty
		if typ == MovementIssue {
			delta = delta.Neg()
		}
		if s.query.Balance(input.SKU, input.WarehouseID).Add(delta).IsNegative() {
			s.mu.Unlock()
			return Movement{}, ErrNegativeStock
		}
	}
	mov := s.newMovement(actor, typ, input)
	s.store.Append(mov)
	s.mu.Unlock()

	s.record(ctx, audit.Entry{
		EntityType:        "Movement",
		EntityID:          mov.ID,
		Action:            string(action),
		ToValue:           mov.Qty.String(),
		PerformedByUserID: actor.UserID,
		Metadata: map[string]any{
			"type":        string(mov.Type),
			"sku":         mov.SKU,
			"warehouseId": mov.WarehouseID,
			"source":      string(mov.Source),
		},
	})
	return mov, s.afterCommit(ctx, []string{"ledger", "audit"}, MovementsAppended{CompanyID: s.cfg.CompanyID, Source: mov.Source, Movements: []Movement{mov}})
}

func (s *Service) newMovement(actor shared.Actor, typ MovementType, input MoveInput) Movement {
	now := s.now()
	occurred := input.OccurredAt
	if occurred.IsZero() {
		occurred = now
	}
	source := input.Source
	if source == "" {
		source = SourceManual
	}
	mov := Movement{
		ID:                  s.newID(),
		CompanyID:           s.cfg.CompanyID,
		Type:                typ,
		SKU:                 input.SKU,
		WarehouseID:         input.WarehouseID,
		Qty:                 input.Qty,
		OccurredAt:          occurred,
		CreatedAt:           now,
		CreatedBy:           actor.UserID,
		Source:              source,
		DocumentID:          input.DocumentID,
		PurchaseOrderLineID: input.PurchaseOrderLineID,
		Note:                input.Note,
		ExternalRefs:        input.ExternalRefs,
	}
	if input.UnitCost != nil {
		mov.UnitCost, mov.TotalCost = Costs(*input.UnitCost, input.Qty)
	}
	return mov
}

// Costs returns the unit cost and unit x |qty| as stored on a movement.
func Costs(unitCost, qty decimal.Decimal) (*decimal.Decimal, *decimal.Decimal) {
	unit := unitCost
	total := unitCost.Mul(qty.Abs())
	return &unit, &total
}

func (s *Service) authorize(ctx context.Context, action rbac.Action) (shared.Actor, error) {
	actor, err := shared.ActorFromContext(ctx)
	if err != nil {
		return shared.Actor{}, err
	}
	if err := rbac.Authorize(actor, s.cfg.CompanyID, action); err != nil {
		return shared.Actor{}, err
	}
	return actor, nil
}

func (s *Service) record(ctx context.Context, entry audit.Entry) {
	if s.audit == nil {
		return
	}
	entry.CompanyID = s.cfg.CompanyID
	if _, err := s.audit.Record(ctx, entry); err != nil {
		s.logger.Warn("inventory audit", slog.String("entity", entry.EntityID), slog.Any("error", err))
	}
}

func (s *Service) afterCommit(ctx context.Context, aggregates []string, evt MovementsAppended) error {
	steps := []shared.PostCommitStep{}
	if s.flusher != nil {
		steps = append(steps, shared.PostCommitStep{
			Op:  fmt.Sprintf("flush %s", strings.Join(aggregates, ",")),
			Run: func(ctx context.Context) error { return s.flusher.Flush(ctx, aggregates...) },
		})
	}
	if s.bus != nil && len(evt.Movements) > 0 {
		steps = append(steps, shared.PostCommitStep{
			Op:  "publish " + evt.EventType(),
			Run: func(ctx context.Context) error { return s.bus.Publish(ctx, evt) },
		})
	}
	return shared.RunPostCommit(ctx, s.logger, steps...)
}
