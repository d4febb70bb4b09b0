package entity

import (
	"time"

	"github.com/garyjia/overtime-claims/internal/domain/workflow"
)

// TransitionRecord is the append-only audit row of one lifecycle transition
type TransitionRecord struct {
	ID             int64          `json:"id"`
	RequestID      int64          `json:"request_id"`
	ActorID        string         `json:"actor_id"`
	ActorRole      workflow.Role  `json:"actor_role"`
	PreviousStatus workflow.State `json:"previous_status"`
	NewStatus      workflow.State `json:"new_status"`
	Action         string         `json:"action"`
	Remarks        string         `json:"remarks,omitempty"`
	Timestamp      time.Time      `json:"timestamp"`
}

// Transition actions recorded besides role decisions
const (
	ActionSubmit   = "submit"
	ActionResubmit = "resubmit"
)

// ResubmissionHistoryEntry links a rejected request to its successor
type ResubmissionHistoryEntry struct {
	ID                 int64         `json:"id"`
	OriginalRequestID  int64         `json:"original_request_id"`
	SuccessorRequestID int64         `json:"successor_request_id"`
	RejectionStage     workflow.Role `json:"rejection_stage"`
	RejectionReason    string        `json:"rejection_reason"`
	ResubmittedBy      string        `json:"resubmitted_by"`
	CreatedAt          time.Time     `json:"created_at"`
}

// PayFormula is the HR-authored formula for one day type
type PayFormula struct {
	DayType    DayType   `json:"day_type"`
	Expression string    `json:"expression"`
	Multiplier float64   `json:"multiplier"`
	UpdatedBy  string    `json:"updated_by,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Holiday is one entry of the public holiday calendar
type Holiday struct {
	Date time.Time `json:"date"`
	Name string    `json:"name"`
}
