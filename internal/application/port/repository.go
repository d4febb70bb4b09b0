package port

import (
	"context"
	"time"

	"github.com/garyjia/overtime-claims/internal/domain/entity"
	"github.com/garyjia/overtime-claims/internal/domain/workflow"
)

// RequestFilter narrows a request listing. Zero values mean "any".
type RequestFilter struct {
	EmployeeID string
	Status     workflow.State
	From       *time.Time
	To         *time.Time
	// MissingPay keeps only non-terminal requests whose pay is not computed
	MissingPay bool
	Limit      int
	Offset     int
}

// TransitionUpdate is one optimistic state change. The row is only updated
// while its status is still one of FromStates.
type TransitionUpdate struct {
	RequestID  int64
	FromStates []workflow.State
	To         workflow.State
	Stage      workflow.Stage
	ActorID    string
	At         time.Time
	Remarks    string

	// RejectionStage is set when the decision is a rejection
	RejectionStage   workflow.Role
	RejectionRemarks string
	// ClearRejection drops rejection metadata left by a recertification loop
	ClearRejection bool
}

// PayUpdate carries recomputed pay fields
type PayUpdate struct {
	RequestID    int64
	ORP          *float64
	HRP          *float64
	OTAmount     *float64
	FormulaError string
	Violations   map[string]entity.Violation
	// KeepPay leaves the stored ORP/HRP/amount untouched; only the formula
	// error and violations are written
	KeepPay bool
}

// RequestRepository defines persistence operations for OvertimeRequest
type RequestRepository interface {
	Create(ctx context.Context, req *entity.OvertimeRequest) error
	GetByID(ctx context.Context, id int64) (*entity.OvertimeRequest, error)
	List(ctx context.Context, filter RequestFilter) ([]*entity.OvertimeRequest, error)

	// ListActiveOnDate returns the employee's non-rejected requests on a date
	ListActiveOnDate(ctx context.Context, employeeID string, date time.Time) ([]*entity.OvertimeRequest, error)

	// SumUsage totals hours and amount of the employee's non-rejected requests
	// with from <= ot_date < to, leaving out excludeID
	SumUsage(ctx context.Context, employeeID string, from, to time.Time, excludeID int64) (hours float64, amount float64, err error)

	// ApplyTransition reports false when the status precondition no longer holds
	ApplyTransition(ctx context.Context, u TransitionUpdate) (bool, error)

	// UpdatePay rewrites pay fields of a request that is not terminal
	UpdatePay(ctx context.Context, u PayUpdate) error
}

// TransitionRepository stores the append-only lifecycle audit trail
type TransitionRepository interface {
	Create(ctx context.Context, rec *entity.TransitionRecord) error
	ListByRequest(ctx context.Context, requestID int64) ([]*entity.TransitionRecord, error)
}

// ResubmissionRepository stores resubmission links
type ResubmissionRepository interface {
	Create(ctx context.Context, entry *entity.ResubmissionHistoryEntry) error
	GetByOriginal(ctx context.Context, originalID int64) (*entity.ResubmissionHistoryEntry, error)
	GetBySuccessor(ctx context.Context, successorID int64) (*entity.ResubmissionHistoryEntry, error)
}

// EmployeeRepository reads employee profiles owned by HR administration
type EmployeeRepository interface {
	GetByID(ctx context.Context, id string) (*entity.EmployeeProfile, error)
}

// EligibilityRuleRepository reads eligibility configuration
type EligibilityRuleRepository interface {
	ListActive(ctx context.Context) ([]*entity.EligibilityRule, error)
}

// ThresholdRepository reads approval threshold configuration
type ThresholdRepository interface {
	ListActive(ctx context.Context) ([]*entity.ApprovalThreshold, error)
}

// FormulaRepository stores the HR-authored formula per day type
type FormulaRepository interface {
	Get(ctx context.Context, dayType entity.DayType) (*entity.PayFormula, error)
	List(ctx context.Context) ([]*entity.PayFormula, error)
	Upsert(ctx context.Context, f *entity.PayFormula) error
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
