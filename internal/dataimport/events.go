package dataimport

// BatchApplied is published once a batch has been applied.
type BatchApplied struct {
	CompanyID string
	Batch     Batch
	Result    ApplyResult
	UserID    string
}

// EventType implements events.Event.
func (BatchApplied) EventType() string { return "dataimport.batch_applied" }
