package workflow

// Role is the capacity in which an actor touches a request
type Role string

const (
	RoleEmployee   Role = "employee"
	RoleSupervisor Role = "supervisor"
	RoleHR         Role = "hr"
	RoleManagement Role = "management"
	RoleAdmin      Role = "admin"
)

// IsValid returns true for every known role, reviewer or not
func (r Role) IsValid() bool {
	switch r {
	case RoleEmployee, RoleSupervisor, RoleHR, RoleManagement, RoleAdmin:
		return true
	}
	return false
}

// IsReviewer reports whether the role has rows in the transition table
func (r Role) IsReviewer() bool {
	_, ok := transitionTable[r]
	return ok
}

// Stage identifies which set of actor/timestamp/remarks fields a role writes
type Stage string

const (
	StageSupervisor Stage = "supervisor"
	StageHR         Stage = "hr"
	StageManagement Stage = "management"
)

// TransitionRule is one row of the role table
type TransitionRule struct {
	Role      Role
	Label     string
	From      []State
	ApproveTo State
	RejectTo  State
	Stage     Stage
}

// transitionTable is the only place reviewer transitions are defined.
// Management rejection sends the request back to HR for recertification
// instead of rejecting it outright.
var transitionTable = map[Role][]TransitionRule{
	RoleSupervisor: {
		{
			Role:      RoleSupervisor,
			Label:     "verify",
			From:      []State{StatePendingVerification},
			ApproveTo: StateSupervisorVerified,
			RejectTo:  StateRejected,
			Stage:     StageSupervisor,
		},
	},
	RoleHR: {
		{
			Role:      RoleHR,
			Label:     "certify",
			From:      []State{StatePendingVerification, StateSupervisorVerified},
			ApproveTo: StateHRCertified,
			RejectTo:  StateRejected,
			Stage:     StageHR,
		},
		{
			Role:      RoleHR,
			Label:     "recertify",
			From:      []State{StatePendingHRRecertification},
			ApproveTo: StateHRCertified,
			RejectTo:  StateRejected,
			Stage:     StageHR,
		},
	},
	RoleManagement: {
		{
			Role:      RoleManagement,
			Label:     "approve",
			From:      []State{StateHRCertified},
			ApproveTo: StateManagementApproved,
			RejectTo:  StatePendingHRRecertification,
			Stage:     StageManagement,
		},
	},
}

// Rules returns the table rows for a role
func Rules(role Role) []TransitionRule {
	rows := transitionTable[role]
	out := make([]TransitionRule, len(rows))
	copy(out, rows)
	return out
}

// ReviewerRoles returns the roles that appear in the transition table
func ReviewerRoles() []Role {
	return []Role{RoleSupervisor, RoleHR, RoleManagement}
}

// Resolve looks up the target state for a role's decision from a given state
func Resolve(role Role, from State, decision Decision) (State, TransitionRule, bool) {
	for _, rule := range transitionTable[role] {
		for _, src := range rule.From {
			if src != from {
				continue
			}
			if decision == DecisionApprove {
				return rule.ApproveTo, rule, true
			}
			return rule.RejectTo, rule, true
		}
	}
	return "", TransitionRule{}, false
}

// AllowedSources returns every state a role may act from
func AllowedSources(role Role) []State {
	var states []State
	seen := make(map[State]bool)
	for _, rule := range transitionTable[role] {
		for _, s := range rule.From {
			if !seen[s] {
				seen[s] = true
				states = append(states, s)
			}
		}
	}
	return states
}

// SourcesFor returns the states from which a role's decision leads to target.
// The store uses these as the optimistic precondition of an update.
func SourcesFor(role Role, decision Decision, target State) []State {
	var states []State
	for _, rule := range transitionTable[role] {
		to := rule.ApproveTo
		if decision == DecisionReject {
			to = rule.RejectTo
		}
		if to == target {
			states = append(states, rule.From...)
		}
	}
	return states
}
