package procurement

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/stockledger/internal/audit"
	"github.com/odyssey-erp/stockledger/internal/events"
	"github.com/odyssey-erp/stockledger/internal/rbac"
	"github.com/odyssey-erp/stockledger/internal/shared"
)

const entityRequest = "PurchaseRequest"

// Service orchestrates purchase requests and their conversion to orders.
type Service struct {
	mu        sync.Mutex
	requests  *RequestStore
	orders    *OrderStore
	audit     AuditPort
	flusher   Flusher
	bus       Publisher
	logger    *slog.Logger
	companyID string
	now       func() time.Time
	newID     func() string
}

// NewService constructs procurement service. audit, flusher and bus may be nil.
func NewService(requests *RequestStore, orders *OrderStore, audit AuditPort, flusher Flusher, bus Publisher, logger *slog.Logger, companyID string) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		requests:  requests,
		orders:    orders,
		audit:     audit,
		flusher:   flusher,
		bus:       bus,
		logger:    logger,
		companyID: companyID,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
}

// Create stores a new request in draft with version 1.
func (s *Service) Create(ctx context.Context, req PurchaseRequest) (PurchaseRequest, error) {
	actor, err := s.authorize(ctx, rbac.ActionPRCreate)
	if err != nil {
		return PurchaseRequest{}, err
	}
	if req.CompanyID == "" {
		req.CompanyID = actor.CompanyID
	}
	if req.CompanyID == "" {
		req.CompanyID = s.companyID
	}
	if s.companyID != "" && req.CompanyID != s.companyID {
		return PurchaseRequest{}, shared.ErrCompanyMismatch
	}
	if err := validateItems(req.Items); err != nil {
		return PurchaseRequest{}, err
	}

	s.mu.Lock()
	if req.ID == "" {
		req.ID = s.newID()
	} else if _, exists := s.requests.Get(req.ID); exists {
		s.mu.Unlock()
		return PurchaseRequest{}, ErrDuplicateRequest
	}
	req.Status = StatusDraft
	req.Version = 1
	req.CreatedAt = s.now()
	req.CreatedBy = actor.UserID
	req.SubmittedAt, req.ApprovedAt, req.RejectedAt, req.ConvertedAt = nil, nil, nil, nil
	s.requests.Put(req)
	s.mu.Unlock()

	s.record(ctx, audit.Entry{
		EntityType:        entityRequest,
		EntityID:          req.ID,
		Action:            string(rbac.ActionPRCreate),
		ToValue:           string(StatusDraft),
		PerformedByUserID: actor.UserID,
		Metadata:          map[string]any{"items": len(req.Items), "warehouseId": req.WarehouseID},
	})
	return req.clone(), s.afterCommit(ctx, []string{"purchase_requests", "audit"})
}

func validateItems(items []RequestItem) error {
	if len(items) == 0 {
		return fmt.Errorf("%w: at least one item required", ErrValidation)
	}
	for i, item := range items {
		if strings.TrimSpace(item.Code) == "" {
			return fmt.Errorf("%w: item %d code required", ErrValidation, i)
		}
		if !item.TotalQty.IsPositive() {
			return fmt.Errorf("%w: item %d quantity must be positive", ErrValidation, i)
		}
		for j, split := range item.Splits {
			if !split.Qty.IsPositive() {
				return fmt.Errorf("%w: item %d split %d quantity must be positive", ErrValidation, i, j)
			}
		}
	}
	return nil
}

// Transition moves req from one status to another. The transition must be
// legal, allowed for the actor, and req must be the latest stored version.
func (s *Service) Transition(ctx context.Context, req PurchaseRequest, from, to RequestStatus) (PurchaseRequest, error) {
	s.mu.Lock()
	updated, actor, err := s.transitionLocked(ctx, req, from, to)
	s.mu.Unlock()
	if err != nil {
		return PurchaseRequest{}, err
	}
	s.recordTransition(ctx, actor, updated, from, to)
	return updated, s.afterCommit(ctx, []string{"purchase_requests", "audit"},
		RequestTransitioned{Request: updated, From: from, To: to, UserID: actor.UserID})
}

func (s *Service) transitionLocked(ctx context.Context, req PurchaseRequest, from, to RequestStatus) (PurchaseRequest, shared.Actor, error) {
	if !CanTransition(from, to) {
		return PurchaseRequest{}, shared.Actor{}, &InvalidTransitionError{From: from, To: to}
	}
	actor, err := s.authorize(ctx, actionFor(to))
	if err != nil {
		return PurchaseRequest{}, shared.Actor{}, err
	}
	if req.Status != from {
		return PurchaseRequest{}, shared.Actor{}, ErrStaleRequest
	}
	if stored, ok := s.requests.Get(req.ID); ok && (stored.Version != req.Version || stored.Status != from) {
		return PurchaseRequest{}, shared.Actor{}, ErrStaleRequest
	}
	updated := req.clone()
	updated.Status = to
	updated.Version++
	stamp(&updated, to, s.now())
	s.requests.Put(updated)
	return updated, actor, nil
}

func (s *Service) recordTransition(ctx context.Context, actor shared.Actor, req PurchaseRequest, from, to RequestStatus) {
	s.record(ctx, audit.Entry{
		EntityType:        entityRequest,
		EntityID:          req.ID,
		Action:            string(actionFor(to)),
		FromValue:         string(from),
		ToValue:           string(to),
		PerformedByUserID: actor.UserID,
		Metadata:          map[string]any{"version": req.Version},
	})
}

// List returns every request in creation order.
func (s *Service) List() []PurchaseRequest {
	return s.requests.List()
}

// Get fetches one request.
func (s *Service) Get(id string) (PurchaseRequest, error) {
	req, ok := s.requests.Get(id)
	if !ok {
		return PurchaseRequest{}, ErrNotFound
	}
	return req, nil
}

// ListOrders returns every purchase order.
func (s *Service) ListOrders() []PurchaseOrder {
	return s.orders.Orders()
}

// OrderByNumber finds the order converted from request id number.
func (s *Service) OrderByNumber(number string) (PurchaseOrder, []PurchaseOrderLine, error) {
	order, ok := s.orders.ByOrderNumber(number)
	if !ok {
		return PurchaseOrder{}, nil, ErrNotFound
	}
	return order, s.OrderLines(order.ID), nil
}

// OrderLines lists the lines of an order.
func (s *Service) OrderLines(orderID string) []PurchaseOrderLine {
	return s.orders.Lines(orderID)
}

func (s *Service) authorize(ctx context.Context, action rbac.Action) (shared.Actor, error) {
	actor, err := shared.ActorFromContext(ctx)
	if err != nil {
		return shared.Actor{}, err
	}
	if err := rbac.Authorize(actor, s.companyID, action); err != nil {
		return shared.Actor{}, err
	}
	return actor, nil
}

func (s *Service) record(ctx context.Context, entry audit.Entry) {
	if s.audit == nil {
		return
	}
	entry.CompanyID = s.companyID
	if _, err := s.audit.Record(ctx, entry); err != nil {
		s.logger.Warn("procurement audit", slog.String("entity", entry.EntityID), slog.Any("error", err))
	}
}

func (s *Service) afterCommit(ctx context.Context, aggregates []string, evts ...events.Event) error {
	var steps []shared.PostCommitStep
	if s.flusher != nil {
		steps = append(steps, shared.PostCommitStep{
			Op:  "flush " + strings.Join(aggregates, ","),
			Run: func(ctx context.Context) error { return s.flusher.Flush(ctx, aggregates...) },
		})
	}
	if s.bus != nil {
		for _, evt := range evts {
			evt := evt
			steps = append(steps, shared.PostCommitStep{
				Op:  "publish " + evt.EventType(),
				Run: func(ctx context.Context) error { return s.bus.Publish(ctx, evt) },
			})
		}
	}
	return shared.RunPostCommit(ctx, s.logger, steps...)
}
