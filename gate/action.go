package gate

// Action is the kind of operation a subject wants to perform.
type Action string

const (
	ActionView   Action = "view"
	ActionList   Action = "list"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"

	// Workflow actions.
	ActionApprove  Action = "approve"
	ActionReject   Action = "reject"
	ActionFulfil   Action = "fulfil"
	ActionComplete Action = "complete"
	ActionCancel   Action = "cancel"
	ActionBlock    Action = "block"
)
