package workflow

import (
	"fmt"
	"strings"
)

// Decision is what a reviewer does with a request
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// IsValid returns true for approve and reject
func (d Decision) IsValid() bool {
	return d == DecisionApprove || d == DecisionReject
}

// Trigger is a role-scoped decision, e.g. "hr.approve"
type Trigger string

// TriggerFor builds the trigger a role fires for a decision
func TriggerFor(role Role, decision Decision) Trigger {
	return Trigger(fmt.Sprintf("%s.%s", role, decision))
}

// Split returns the role and decision a trigger was built from
func (t Trigger) Split() (Role, Decision) {
	role, decision, _ := strings.Cut(string(t), ".")
	return Role(role), Decision(decision)
}

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
