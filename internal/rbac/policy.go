package rbac

import (
	"errors"
	"sort"

	"github.com/odyssey-erp/stockledger/internal/shared"
)

// ErrPolicyDenied matches every PolicyDeniedError.
var ErrPolicyDenied = errors.New("rbac: policy denied")

// PolicyDeniedError reports the action the actor was not allowed to perform.
type PolicyDeniedError struct {
	Action Action
}

func (e *PolicyDeniedError) Error() string {
	return "POLICY_DENY:" + string(e.Action)
}

// Is lets errors.Is match both the rbac sentinel and the shared forbidden category.
func (e *PolicyDeniedError) Is(target error) bool {
	return target == ErrPolicyDenied || target == shared.ErrForbidden
}

var policyMatrix = buildMatrix()

func buildMatrix() map[Role]map[Action]struct{} {
	grant := func(actions ...Action) map[Action]struct{} {
		set := make(map[Action]struct{}, len(actions))
		for _, a := range actions {
			set[a] = struct{}{}
		}
		return set
	}
	return map[Role]map[Action]struct{}{
		RoleAdmin:   grant(Actions()...),
		RoleManager: grant(Actions()...),
		RoleProcurement: grant(
			ActionPRCreate, ActionPRUpdate, ActionPRSubmit, ActionPRConvertToPO,
			ActionPOCreate, ActionLedgerMoveIn, ActionDataImport,
		),
		RoleSupervisorHardgoods: grant(
			ActionPRCreate, ActionPRUpdate, ActionPRSubmit, ActionLedgerMoveIn,
			ActionLedgerMoveOut, ActionTransferCreate, ActionTransferComplete,
		),
		RoleViewer: grant(),
	}
}

// Can reports whether the actor's role grants action. Unknown roles and
// actions are denied.
func Can(actor shared.Actor, action Action) bool {
	granted, ok := policyMatrix[Role(actor.Role)]
	if !ok {
		return false
	}
	_, ok = granted[action]
	return ok
}

// AssertCan returns a *PolicyDeniedError when Can is false.
func AssertCan(actor shared.Actor, action Action) error {
	if Can(actor, action) {
		return nil
	}
	return &PolicyDeniedError{Action: action}
}

// Authorize checks the tenant guard, then the policy matrix.
func Authorize(actor shared.Actor, companyID string, action Action) error {
	if err := shared.EnsureCompany(actor, companyID); err != nil {
		return err
	}
	return AssertCan(actor, action)
}

// Grants returns the sorted actions allowed for role.
func Grants(role Role) []Action {
	granted := policyMatrix[role]
	out := make([]Action, 0, len(granted))
	for a := range granted {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
