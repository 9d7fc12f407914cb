package inventory

// MovementsAppended is published after movements are committed to the ledger.
type MovementsAppended struct {
	CompanyID string
	Source    Source
	Movements []Movement
}

// EventType implements events.Event.
func (MovementsAppended) EventType() string { return "inventory.movements_appended" }
