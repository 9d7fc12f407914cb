package procurement

import (
	"encoding/json"
	"sync"
)

// RequestStore keeps purchase requests in creation order.
type RequestStore struct {
	mu       sync.RWMutex
	requests []PurchaseRequest
}

// NewRequestStore constructs an empty store.
func NewRequestStore() *RequestStore {
	return &RequestStore{}
}

// Put inserts a new request or replaces an existing one by id.
func (s *RequestStore) Put(req PurchaseRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.requests {
		if s.requests[i].ID == req.ID {
			s.requests[i] = req.clone()
			return
		}
	}
	s.requests = append(s.requests, req.clone())
}

// Get fetches a request by id.
func (s *RequestStore) Get(id string) (PurchaseRequest, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.requests {
		if r.ID == id {
			return r.clone(), true
		}
	}
	return PurchaseRequest{}, false
}

// List returns copies of every request.
func (s *RequestStore) List() []PurchaseRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]PurchaseRequest, len(s.requests))
	for i, r := range s.requests {
		out[i] = r.clone()
	}
	return out
}

type requestSnapshot struct {
	PurchaseRequests []PurchaseRequest `json:"purchaseRequests"`
}

// AggregateName is the persisted blob name.
func (s *RequestStore) AggregateName() string { return "purchase_requests" }

// MarshalSnapshot serialises all requests.
func (s *RequestStore) MarshalSnapshot() ([]byte, error) {
	return json.Marshal(requestSnapshot{PurchaseRequests: s.List()})
}

// RestoreSnapshot replaces all requests.
func (s *RequestStore) RestoreSnapshot(data []byte) error {
	var snap requestSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}
	s.mu.Lock()
	s.requests = snap.PurchaseRequests
	s.mu.Unlock()
	return nil
}

// OrderStore keeps purchase orders and their lines.
type OrderStore struct {
	mu     sync.RWMutex
	orders []PurchaseOrder
	lines  []PurchaseOrderLine
}

// NewOrderStore constructs an empty store.
func NewOrderStore() *OrderStore {
	return &OrderStore{}
}

// Insert appends an order with its lines.
func (s *OrderStore) Insert(order PurchaseOrder, lines []PurchaseOrderLine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = append(s.orders, order)
	s.lines = append(s.lines, lines...)
}

// ByOrderNumber finds the order created for a request id.
func (s *OrderStore) ByOrderNumber(number string) (PurchaseOrder, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, o := range s.orders {
		if o.OrderNumber == number {
			return o, true
		}
	}
	return PurchaseOrder{}, false
}

// Get fetches an order by id.
func (s *OrderStore) Get(id string) (PurchaseOrder, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, o := range s.orders {
		if o.ID == id {
			return o, true
		}
	}
	return PurchaseOrder{}, false
}

// Orders returns every order in creation order.
func (s *OrderStore) Orders() []PurchaseOrder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]PurchaseOrder(nil), s.orders...)
}

// Lines returns the lines of one order ordered by line number.
func (s *OrderStore) Lines(orderID string) []PurchaseOrderLine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []PurchaseOrderLine
	for _, l := range s.lines {
		if l.PurchaseOrderID == orderID {
			out = append(out, l)
		}
	}
	return out
}

type orderSnapshot struct {
	PurchaseOrders     []PurchaseOrder     `json:"purchaseOrders"`
	PurchaseOrderLines []PurchaseOrderLine `json:"purchaseOrderLines"`
}

// AggregateName is the persisted blob name.
func (s *OrderStore) AggregateName() string { return "purchase_orders" }

// MarshalSnapshot serialises orders and lines.
func (s *OrderStore) MarshalSnapshot() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return json.Marshal(orderSnapshot{PurchaseOrders: s.orders, PurchaseOrderLines: s.lines})
}

// RestoreSnapshot replaces orders and lines.
func (s *OrderStore) RestoreSnapshot(data []byte) error {
	var snap orderSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}
	s.mu.Lock()
	s.orders = snap.PurchaseOrders
	s.lines = snap.PurchaseOrderLines
	s.mu.Unlock()
	return nil
}
