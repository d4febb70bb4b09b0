package workflow

import (
	"context"
	"time"

	"github.com/garyjia/overtime-claims/internal/application/port"
	"github.com/garyjia/overtime-claims/internal/application/service"
	"github.com/garyjia/overtime-claims/internal/domain/entity"
	domainwf "github.com/garyjia/overtime-claims/internal/domain/workflow"
)

// Actor identifies who performs an operation. It is always passed
// explicitly; the engine never looks up a session.
type Actor struct {
	ID   string        `json:"id"`
	Name string        `json:"name"`
	Role domainwf.Role `json:"role"`
}

// SubmitInput is a new overtime claim
type SubmitInput struct {
	EmployeeID   string
	SupervisorID *string
	OTDate       time.Time
	StartTime    string
	EndTime      string
	// DayType is looked up in the holiday calendar when empty
	DayType     entity.DayType
	Reason      string
	Attachments []string
	Actor       Actor
}

// SubmitResult is the stored request plus a formula failure, if any.
// A formula failure does not fail the submission; pay fields stay nil.
type SubmitResult struct {
	Request      *entity.OvertimeRequest
	FormulaError error
}

// ActInput is one batch decision by one reviewer
type ActInput struct {
	RequestIDs []int64
	Actor      Actor
	Decision   domainwf.Decision
	Remarks    string
}

// ResubmitInput creates a successor for a rejected request
type ResubmitInput struct {
	OriginalID int64
	Actor      Actor
	Changes    service.RequestChanges
}

// Engine carries overtime requests through their lifecycle
type Engine interface {
	// Submit validates, prices and stores a new request in pending_verification
	Submit(ctx context.Context, in SubmitInput) (*SubmitResult, error)

	// Act applies one decision to every request in the batch, or to none
	Act(ctx context.Context, in ActInput) ([]*entity.OvertimeRequest, error)

	// Resubmit creates the successor of a rejected request
	Resubmit(ctx context.Context, in ResubmitInput) (*SubmitResult, error)

	// RecomputePay re-runs pay and thresholds on a non-terminal request
	RecomputePay(ctx context.Context, requestID int64) (*SubmitResult, error)

	Get(ctx context.Context, id int64) (*entity.OvertimeRequest, error)
	List(ctx context.Context, filter port.RequestFilter) ([]*entity.OvertimeRequest, error)
	ListByEmployee(ctx context.Context, employeeID string) ([]*entity.OvertimeRequest, error)
	ListByStatus(ctx context.Context, status domainwf.State) ([]*entity.OvertimeRequest, error)

	// Grouped returns the employee/date projection of a listing
	Grouped(ctx context.Context, filter port.RequestFilter) ([]*entity.RequestGroup, error)

	// History returns the transition audit trail of a request
	History(ctx context.Context, requestID int64) ([]*entity.TransitionRecord, error)

	// Resubmissions returns the resubmission chain a request belongs to
	Resubmissions(ctx context.Context, requestID int64) ([]*entity.ResubmissionHistoryEntry, error)
}
