package inventory

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/stockledger/internal/audit"
	"github.com/odyssey-erp/stockledger/internal/rbac"
)

// CreateTransfer registers a pending transfer. Stock moves only on completion.
func (s *Service) CreateTransfer(ctx context.Context, input TransferInput) (Transfer, error) {
	actor, err := s.authorize(ctx, rbac.ActionTransferCreate)
	if err != nil {
		return Transfer{}, err
	}
	from, to := strings.TrimSpace(input.From), strings.TrimSpace(input.To)
	if from == "" || to == "" || len(input.Items) == 0 {
		return Transfer{}, ErrMissingField
	}
	if from == to {
		return Transfer{}, ErrSameWarehouse
	}
	items := make([]TransferLine, 0, len(input.Items))
	for _, item := range input.Items {
		item.SKU = strings.TrimSpace(item.SKU)
		if item.SKU == "" {
			return Transfer{}, ErrMissingField
		}
		if !item.Qty.IsPositive() {
			return Transfer{}, ErrInvalidQuantity
		}
		items = append(items, item)
	}

	s.mu.Lock()
	transfer := Transfer{
		ID:        s.newID(),
		CompanyID: s.cfg.CompanyID,
		From:      from,
		To:        to,
		Items:     items,
		Notes:     input.Notes,
		Status:    TransferPending,
		CreatedAt: s.now(),
		CreatedBy: actor.UserID,
	}
	s.transfers.Put(transfer)
	s.mu.Unlock()

	s.record(ctx, audit.Entry{
		EntityType:        "Transfer",
		EntityID:          transfer.ID,
		Action:            string(rbac.ActionTransferCreate),
		ToValue:           string(TransferPending),
		PerformedByUserID: actor.UserID,
		Metadata:          map[string]any{"from": from, "to": to, "lines": len(items)},
	})
	return transfer, s.afterCommit(ctx, []string{"transfers", "audit"}, MovementsAppended{})
}

// CompleteTransfer appends one transfer movement per line and closes the
// document.
func (s *Service) CompleteTransfer(ctx context.Context, id string) (Transfer, error) {
	actor, err := s.authorize(ctx, rbac.ActionTransferComplete)
	if err != nil {
		return Transfer{}, err
	}

	s.mu.Lock()
	transfer, ok := s.transfers.Get(id)
	if !ok {
		s.mu.Unlock()
		return Transfer{}, ErrTransferNotFound
	}
	if transfer.Status != TransferPending {
		s.mu.Unlock()
		return Transfer{}, ErrTransferNotPending
	}
	if !s.cfg.AllowNegativeStock {
		needed := make(map[string]decimal.Decimal)
		for _, item := range transfer.Items {
			cur, ok := needed[item.SKU]
			if !ok {
				cur = decimal.Zero
			}
			needed[item.SKU] = cur.Add(item.Qty)
		}
		for sku, qty := range needed {
			if s.query.Balance(sku, transfer.From).LessThan(qty) {
				s.mu.Unlock()
				return Transfer{}, ErrNegativeStock
			}
		}
	}
	movs := make([]Movement, 0, len(transfer.Items))
	for _, item := range transfer.Items {
		mov := s.newMovement(actor, MovementTransfer, MoveInput{
			SKU:         item.SKU,
			WarehouseID: transfer.From,
			Qty:         item.Qty,
			DocumentID:  transfer.ID,
			Note:        transfer.Notes,
		})
		mov.WarehouseIDTo = transfer.To
		movs = append(movs, mov)
	}
	s.store.Append(movs...)
	completed := s.now()
	transfer.Status = TransferCompleted
	transfer.CompletedAt = &completed
	s.transfers.Put(transfer)
	s.mu.Unlock()

	s.record(ctx, audit.Entry{
		EntityType:        "Transfer",
		EntityID:          transfer.ID,
		Action:            string(rbac.ActionTransferComplete),
		FromValue:         string(TransferPending),
		ToValue:           string(TransferCompleted),
		PerformedByUserID: actor.UserID,
		Metadata:          map[string]any{"movements": len(movs)},
	})
	return transfer, s.afterCommit(ctx, []string{"ledger", "transfers", "audit"}, MovementsAppended{CompanyID: s.cfg.CompanyID, Source: SourceManual, Movements: movs})
}

// CancelTransfer closes a pending transfer without touching the ledger.
func (s *Service) CancelTransfer(ctx context.Context, id string) (Transfer, error) {
	actor, err := s.authorize(ctx, rbac.ActionTransferCancel)
	if err != nil {
		return Transfer{}, err
	}

	s.mu.Lock()
	transfer, ok := s.transfers.Get(id)
	if !ok {
		s.mu.Unlock()
		return Transfer{}, ErrTransferNotFound
	}
	if transfer.Status != TransferPending {
		s.mu.Unlock()
		return Transfer{}, ErrTransferNotPending
	}
	cancelled := s.now()
	transfer.Status = TransferCancelled
	transfer.CancelledAt = &cancelled
	s.transfers.Put(transfer)
	s.mu.Unlock()

	s.record(ctx, audit.Entry{
		EntityType:        "Transfer",
		EntityID:          transfer.ID,
		Action:            string(rbac.ActionTransferCancel),
		FromValue:         string(TransferPending),
		ToValue:           string(TransferCancelled),
		PerformedByUserID: actor.UserID,
	})
	return transfer, s.afterCommit(ctx, []string{"transfers", "audit"}, MovementsAppended{})
}

// ListTransfers returns every transfer ordered by creation.
func (s *Service) ListTransfers() []Transfer {
	return s.transfers.List()
}

// GetTransfer fetches one transfer.
func (s *Service) GetTransfer(id string) (Transfer, error) {
	t, ok := s.transfers.Get(id)
	if !ok {
		return Transfer{}, ErrTransferNotFound
	}
	return t, nil
}
