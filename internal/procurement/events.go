package procurement

// RequestTransitioned is published after a committed status change.
type RequestTransitioned struct {
	Request PurchaseRequest
	From    RequestStatus
	To      RequestStatus
	UserID  string
}

// EventType implements events.Event.
func (RequestTransitioned) EventType() string { return "procurement.request_transitioned" }

// PurchaseOrderCreated is published once a request has been converted.
type PurchaseOrderCreated struct {
	Order     PurchaseOrder
	Lines     []PurchaseOrderLine
	RequestID string
	UserID    string
}

// EventType implements events.Event.
func (PurchaseOrderCreated) EventType() string { return "procurement.purchase_order_created" }
