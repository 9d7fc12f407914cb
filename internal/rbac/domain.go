package rbac

// Role represents a high-level permission grouping.
type Role string

const (
	RoleAdmin               Role = "admin"
	RoleProcurement         Role = "procurement"
	RoleManager             Role = "manager"
	RoleSupervisorHardgoods Role = "supervisor_hardgoods"
	RoleViewer              Role = "viewer"
)

// Action is an atomic capability checked before a mutation.
type Action string

const (
	ActionPRCreate         Action = "PR_CREATE"
	ActionPRUpdate         Action = "PR_UPDATE"
	ActionPRSubmit         Action = "PR_SUBMIT"
	ActionPRApprove        Action = "PR_APPROVE"
	ActionPRReject         Action = "PR_REJECT"
	ActionPRConvertToPO    Action = "PR_CONVERT_TO_PO"
	ActionPOCreate         Action = "PO_CREATE"
	ActionLedgerMoveIn     Action = "LEDGER_MOVE_IN"
	ActionLedgerMoveOut    Action = "LEDGER_MOVE_OUT"
	ActionLedgerAdjust     Action = "LEDGER_ADJUST"
	ActionTransferCreate   Action = "TRANSFER_CREATE"
	ActionTransferComplete Action = "TRANSFER_COMPLETE"
	ActionTransferCancel   Action = "TRANSFER_CANCEL"
	ActionDataImport       Action = "DATA_IMPORT"
)

// Roles lists every known role.
func Roles() []Role {
	return []Role{RoleAdmin, RoleProcurement, RoleManager, RoleSupervisorHardgoods, RoleViewer}
}

// Actions lists every action in declaration order.
func Actions() []Action {
	return []Action{
		ActionPRCreate, ActionPRUpdate, ActionPRSubmit, ActionPRApprove, ActionPRReject,
		ActionPRConvertToPO, ActionPOCreate, ActionLedgerMoveIn, ActionLedgerMoveOut,
		ActionLedgerAdjust, ActionTransferCreate, ActionTransferComplete, ActionTransferCancel,
		ActionDataImport,
	}
}

// Valid reports whether the action belongs to the closed set.
func (a Action) Valid() bool {
	for _, known := range Actions() {
		if a == known {
			return true
		}
	}
	return false
}
