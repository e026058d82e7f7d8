package instrumentation

// Operation label values. Metric labels only ever carry one of these, never
// a free-form string from a request.
const (
	OperationList     = "list"
	OperationSearch   = "search"
	OperationGet      = "get"
	OperationSend     = "send"
	OperationModify   = "modify"
	OperationDraft    = "draft"
	OperationEvents   = "events"
	OperationFreeBusy = "freebusy"
	OperationSlots    = "slots"
	OperationCreate   = "create"
	OperationDelete   = "delete"
)

// AccountLabel maps an account name onto a bounded label value: "default"
// stays as is and anything else becomes "named".
func AccountLabel(account string) string {
	switch account {
	case "", "default":
		return "default"
	default:
		return "named"
	}
}
