package workflow

// State is the lifecycle status of an overtime request
type State string

const (
	StatePendingVerification      State = "pending_verification"
	StateSupervisorVerified       State = "supervisor_verified"
	StateHRCertified              State = "hr_certified"
	StateManagementApproved       State = "management_approved"
	StatePendingHRRecertification State = "pending_hr_recertification"
	StateRejected                 State = "rejected"
)

var validStates = map[State]bool{
	StatePendingVerification:      true,
	StateSupervisorVerified:       true,
	StateHRCertified:              true,
	StateManagementApproved:       true,
	StatePendingHRRecertification: true,
	StateRejected:                 true,
}

var terminalStates = map[State]bool{
	StateManagementApproved: true,
	StateRejected:           true,
}

// InitialState is the state every new or resubmitted request starts in
const InitialState = StatePendingVerification

// IsTerminal returns true if no further transitions are allowed
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a known lifecycle state
func (s State) IsValid() bool {
	return validStates[s]
}

// AllStates returns every lifecycle state
func AllStates() []State {
	return []State{
		StatePendingVerification,
		StateSupervisorVerified,
		StateHRCertified,
		StateManagementApproved,
		StatePendingHRRecertification,
		StateRejected,
	}
}
