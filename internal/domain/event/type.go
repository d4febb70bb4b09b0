package event

// Type identifies the type of domain event
type Type string

const (
	TypeRequestSubmitted   Type = "request.submitted"
	TypeRequestApproved    Type = "request.approved"
	TypeRequestRejected    Type = "request.rejected"
	TypeRequestResubmitted Type = "request.resubmitted"
	TypeStatusChanged      Type = "request.status_changed"
	TypePayRecomputed      Type = "request.pay_recomputed"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeRequestSubmitted,
		TypeRequestApproved,
		TypeRequestRejected,
		TypeRequestResubmitted,
		TypeStatusChanged,
		TypePayRecomputed:
		return true
	default:
		return false
	}
}

// Payload keys shared by publishers and subscribers
const (
	KeyEmployeeID     = "employee_id"
	KeySupervisorID   = "supervisor_id"
	KeyActorID        = "actor_id"
	KeyActorName      = "actor_name"
	KeyActorRole      = "actor_role"
	KeyPreviousStatus = "previous_status"
	KeyNewStatus      = "new_status"
	KeyOTDate         = "ot_date"
	KeyHours          = "hours"
	KeyRemarks        = "remarks"
	KeyParentID       = "parent_request_id"
)
