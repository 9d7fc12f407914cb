package procurement

import (
	"fmt"
	"time"

	"github.com/odyssey-erp/stockledger/internal/rbac"
	"github.com/odyssey-erp/stockledger/internal/shared"
)

// validTransitions lists the allowed target statuses per status.
var validTransitions = map[RequestStatus][]RequestStatus{
	StatusDraft:       {StatusSubmitted},
	StatusSubmitted:   {StatusUnderReview, StatusRejected},
	StatusUnderReview: {StatusApproved, StatusRejected, StatusDraft},
	StatusApproved:    {StatusConverted},
	StatusRejected:    {StatusDraft},
	StatusConverted:   {},
}

// CanTransition reports whether from -> to is a legal edge.
func CanTransition(from, to RequestStatus) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Statuses lists every request status.
func Statuses() []RequestStatus {
	return []RequestStatus{StatusDraft, StatusSubmitted, StatusUnderReview, StatusApproved, StatusRejected, StatusConverted}
}

// InvalidTransitionError reports an illegal status change.
type InvalidTransitionError struct {
	From RequestStatus
	To   RequestStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("Invalid status transition from '%s' to '%s'.", e.From, e.To)
}

// Is matches ErrInvalidState and the shared conflict category.
func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidState || target == shared.ErrConflict
}

// actionFor maps a target status to the action gating it.
func actionFor(to RequestStatus) rbac.Action {
	switch to {
	case StatusSubmitted:
		return rbac.ActionPRSubmit
	case StatusUnderReview, StatusDraft:
		return rbac.ActionPRUpdate
	case StatusApproved:
		return rbac.ActionPRApprove
	case StatusRejected:
		return rbac.ActionPRReject
	case StatusConverted:
		return rbac.ActionPRConvertToPO
	}
	return ""
}

func stamp(req *PurchaseRequest, to RequestStatus, at time.Time) {
	switch to {
	case StatusSubmitted:
		req.SubmittedAt = &at
	case StatusApproved:
		req.ApprovedAt = &at
	case StatusRejected:
		req.RejectedAt = &at
	case StatusConverted:
		req.ConvertedAt = &at
	case StatusDraft, StatusUnderReview:
	}
}
