package domain

// TransitionKind classifies a requested status change.
type TransitionKind string

// Transition kinds.
const (
	TransitionNoop     TransitionKind = "noop"
	TransitionAdvance  TransitionKind = "advance"
	TransitionSkip     TransitionKind = "skip"
	TransitionRollback TransitionKind = "rollback"
	TransitionReopen   TransitionKind = "reopen"
)

var transitionKinds = map[IncidentStatus]map[IncidentStatus]TransitionKind{
	IncidentStatusOpen: {
		IncidentStatusOpen:          TransitionNoop,
		IncidentStatusInvestigating: TransitionAdvance,
		IncidentStatusResolved:      TransitionSkip,
	},
	IncidentStatusInvestigating: {
		IncidentStatusOpen:          TransitionRollback,
		IncidentStatusInvestigating: TransitionNoop,
		IncidentStatusResolved:      TransitionAdvance,
	},
	IncidentStatusResolved: {
		IncidentStatusOpen:          TransitionReopen,
		IncidentStatusInvestigating: TransitionReopen,
		IncidentStatusResolved:      TransitionNoop,
	},
}

// ClassifyTransition reports what moving from one status to another means.
// Every pair of valid statuses is permitted; the kind only describes it.
// The second return value is false when either status is unknown.
func ClassifyTransition(from, to IncidentStatus) (TransitionKind, bool) {
	kind, ok := transitionKinds[from][to]
	return kind, ok
}
