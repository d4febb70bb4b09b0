package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/overtime-claims/internal/application/dispatcher"
	"github.com/garyjia/overtime-claims/internal/application/port"
	"github.com/garyjia/overtime-claims/internal/application/service"
	"github.com/garyjia/overtime-claims/internal/domain/entity"
	"github.com/garyjia/overtime-claims/internal/domain/event"
	domainwf "github.com/garyjia/overtime-claims/internal/domain/workflow"
)

// Repositories groups the stores the engine reads and writes
type Repositories struct {
	Requests    port.RequestRepository
	Transitions port.TransitionRepository
	Employees   port.EmployeeRepository
	Calendar    port.HolidayCalendar
}

// Services groups the policy services the engine consults
type Services struct {
	Pay           service.PayService
	Eligibility   service.EligibilityService
	Thresholds    service.ThresholdService
	Resubmissions service.ResubmissionService
}

// engineImpl is the concrete implementation of Engine
type engineImpl struct {
	repos     Repositories
	svc       Services
	txManager port.TransactionManager

	dispatcher dispatcher.Dispatcher
	logger     service.Logger
	now        func() time.Time
	tickets    TicketGenerator
}

// EngineOption configures the engine
type EngineOption func(*engineImpl)

// WithDispatcher sets the event dispatcher for emitting lifecycle events
func WithDispatcher(d dispatcher.Dispatcher) EngineOption {
	return func(e *engineImpl) {
		e.dispatcher = d
	}
}

// WithLogger sets the engine logger
func WithLogger(l service.Logger) EngineOption {
	return func(e *engineImpl) {
		e.logger = l
	}
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) EngineOption {
	return func(e *engineImpl) {
		e.now = now
	}
}

// WithTicketGenerator overrides ticket number assignment
func WithTicketGenerator(g TicketGenerator) EngineOption {
	return func(e *engineImpl) {
		e.tickets = g
	}
}

// NewEngine creates a new lifecycle engine
func NewEngine(repos Repositories, svc Services, txManager port.TransactionManager, opts ...EngineOption) Engine {
	e := &engineImpl{
		repos:     repos,
		svc:       svc,
		txManager: txManager,
		logger:    nopLogger{},
		now:       time.Now,
		tickets:   NewTicketNumber,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

// Submit validates, prices and stores a new request
func (e *engineImpl) Submit(ctx context.Context, in SubmitInput) (*SubmitResult, error) {
	req := &entity.OvertimeRequest{
		EmployeeID:   strings.TrimSpace(in.EmployeeID),
		SupervisorID: in.SupervisorID,
		OTDate:       in.OTDate,
		StartTime:    strings.TrimSpace(in.StartTime),
		EndTime:      strings.TrimSpace(in.EndTime),
		DayType:      in.DayType,
		Reason:       in.Reason,
		Attachments:  in.Attachments,
	}

	switch in.Actor.Role {
	case domainwf.RoleAdmin:
	case domainwf.RoleEmployee:
		if in.Actor.ID != req.EmployeeID {
			return nil, entity.NewValidationError("actor", "employees may only submit their own requests")
		}
	default:
		return nil, entity.NewValidationError("actor", "role %q cannot submit requests", in.Actor.Role)
	}

	res, err := e.intake(ctx, req, in.Actor, entity.ActionSubmit, nil)
	if err != nil {
		e.logger.Error("Submit failed", "employee_id", req.EmployeeID, "error", err)
		return nil, err
	}

	e.emit(ctx, event.TypeRequestSubmitted, res.Request, in.Actor, "", nil)
	return res, nil
}

// Resubmit creates the successor of a rejected request and links the two
func (e *engineImpl) Resubmit(ctx context.Context, in ResubmitInput) (*SubmitResult, error) {
	original, err := e.repos.Requests.GetByID(ctx, in.OriginalID)
	if err != nil {
		return nil, fmt.Errorf("get request %d: %w", in.OriginalID, err)
	}

	switch in.Actor.Role {
	case domainwf.RoleAdmin:
	case domainwf.RoleEmployee:
		if in.Actor.ID != original.EmployeeID {
			return nil, entity.NewValidationError("actor", "only the requesting employee may resubmit request %d", original.ID)
		}
	default:
		return nil, entity.NewValidationError("actor", "role %q cannot resubmit requests", in.Actor.Role)
	}

	successor, err := e.svc.Resubmissions.Prepare(ctx, original, in.Changes)
	if err != nil {
		return nil, err
	}

	res, err := e.intake(ctx, successor, in.Actor, entity.ActionResubmit, func(txCtx context.Context, stored *entity.OvertimeRequest) error {
		_, err := e.svc.Resubmissions.Record(txCtx, original, stored, in.Actor.ID)
		return err
	})
	if err != nil {
		e.logger.Error("Resubmit failed", "original_id", original.ID, "error", err)
		return nil, err
	}

	e.emit(ctx, event.TypeRequestResubmitted, res.Request, in.Actor, "", map[string]interface{}{
		event.KeyParentID: original.ID,
	})
	return res, nil
}

// intake runs the shared submission pipeline: validation, eligibility,
// day type, pay, overlap and thresholds, then stores the request. within
// runs inside the same transaction after the request is created.
func (e *engineImpl) intake(ctx context.Context, req *entity.OvertimeRequest, actor Actor, action string, within func(context.Context, *entity.OvertimeRequest) error) (*SubmitResult, error) {
	if err := validateClaim(req); err != nil {
		return nil, err
	}

	profile, err := e.repos.Employees.GetByID(ctx, req.EmployeeID)
	if errors.Is(err, entity.ErrNotFound) {
		return nil, entity.NewValidationError("employee_id", "unknown employee %q", req.EmployeeID)
	}
	if err != nil {
		return nil, fmt.Errorf("get employee: %w", err)
	}

	if err := e.svc.Eligibility.Check(ctx, profile); err != nil {
		return nil, err
	}

	if req.SupervisorID == nil || *req.SupervisorID == "" {
		req.SupervisorID = profile.SupervisorID
	}
	if req.DayType == "" {
		req.DayType = e.classify(ctx, req.OTDate)
	}

	var formulaErr error
	pay := e.svc.Pay.Compute(ctx, profile.BasicSalary, req.TotalHours, req.DayType)
	if pay.Success {
		req.ORP, req.HRP, req.OTAmount = pay.ORP, pay.HRP, pay.OTAmount
	} else {
		if errors.Is(pay.Err(), entity.ErrValidation) {
			return nil, pay.Err()
		}
		formulaErr = pay.Err()
		req.ORP, req.HRP, req.OTAmount = nil, nil, nil
		req.FormulaError = pay.Error
	}

	now := e.now()
	err = e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := e.checkOverlap(txCtx, req); err != nil {
			return err
		}

		outcome, err := e.svc.Thresholds.Check(txCtx, profile, req)
		if err != nil {
			return err
		}
		if outcome.Blocking != nil {
			return outcome.Blocking
		}
		req.Violations = outcome.Violations

		req.TicketNumber = e.tickets(now)
		req.Status = domainwf.InitialState
		req.CreatedAt = now
		req.UpdatedAt = now

		if err := e.repos.Requests.Create(txCtx, req); err != nil {
			return fmt.Errorf("create request: %w", err)
		}

		if err := e.repos.Transitions.Create(txCtx, &entity.TransitionRecord{
			RequestID: req.ID,
			ActorID:   actor.ID,
			ActorRole: actor.Role,
			NewStatus: req.Status,
			Action:    action,
			Timestamp: now,
		}); err != nil {
			return fmt.Errorf("record transition: %w", err)
		}

		if within != nil {
			return within(txCtx, req)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("Overtime request stored",
		"request_id", req.ID,
		"ticket_number", req.TicketNumber,
		"employee_id", req.EmployeeID,
		"action", action,
		"hours", req.TotalHours,
		"violations", len(req.Violations),
		"formula_error", req.FormulaError,
	)

	return &SubmitResult{Request: req, FormulaError: formulaErr}, nil
}

func validateClaim(req *entity.OvertimeRequest) error {
	if req.EmployeeID == "" {
		return entity.NewValidationError("employee_id", "is required")
	}
	if req.OTDate.IsZero() {
		return entity.NewValidationError("ot_date", "is required")
	}
	req.OTDate = time.Date(req.OTDate.Year(), req.OTDate.Month(), req.OTDate.Day(), 0, 0, 0, 0, time.UTC)

	req.Reason = strings.TrimSpace(req.Reason)
	if req.Reason == "" {
		return entity.NewValidationError("reason", "is required")
	}
	if req.DayType != "" && !req.DayType.IsValid() {
		return entity.NewValidationError("day_type", "unknown day type %q", req.DayType)
	}

	hours, err := entity.ComputeHours(req.StartTime, req.EndTime)
	if err != nil {
		return err
	}
	req.TotalHours = hours

	if req.Attachments == nil {
		req.Attachments = []string{}
	}
	return nil
}

func (e *engineImpl) checkOverlap(ctx context.Context, req *entity.OvertimeRequest) error {
	existing, err := e.repos.Requests.ListActiveOnDate(ctx, req.EmployeeID, req.OTDate)
	if err != nil {
		return fmt.Errorf("list requests on date: %w", err)
	}
	for _, other := range existing {
		if entity.Overlaps(req.StartTime, req.EndTime, other.StartTime, other.EndTime) {
			return entity.NewValidationError("start_time", "overlaps %s (%s-%s)", other.TicketNumber, other.StartTime, other.EndTime)
		}
	}
	return nil
}

// classify asks the holiday calendar; lookup errors count as a miss
func (e *engineImpl) classify(ctx context.Context, date time.Time) entity.DayType {
	holiday := false
	if e.repos.Calendar != nil {
		h, err := e.repos.Calendar.IsHoliday(ctx, date)
		if err != nil {
			e.logger.Error("Holiday lookup failed, treating as regular day", "date", entity.FormatDate(date), "error", err)
		}
		holiday = err == nil && h
	}
	return entity.ClassifyDate(date, holiday)
}

// Act applies one decision to a batch of requests in a single transaction
func (e *engineImpl) Act(ctx context.Context, in ActInput) ([]*entity.OvertimeRequest, error) {
	if !in.Decision.IsValid() {
		return nil, entity.NewValidationError("decision", "must be approve or reject")
	}
	remarks := strings.TrimSpace(in.Remarks)
	if in.Decision == domainwf.DecisionReject && remarks == "" {
		return nil, domainwf.ErrMissingRemarks
	}
	if strings.TrimSpace(in.Actor.ID) == "" {
		return nil, entity.NewValidationError("actor", "actor id is required")
	}
	if !in.Actor.Role.IsReviewer() {
		return nil, fmt.Errorf("%w: role %q has no review actions", domainwf.ErrInvalidTransition, in.Actor.Role)
	}

	ids, err := dedupe(in.RequestIDs)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, entity.NewValidationError("request_ids", "at least one request is required")
	}

	type change struct {
		from domainwf.State
		req  *entity.OvertimeRequest
	}
	var changes []change

	trigger := domainwf.TriggerFor(in.Actor.Role, in.Decision)
	now := e.now()

	err = e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		changes = changes[:0]
		for _, id := range ids {
			req, err := e.repos.Requests.GetByID(txCtx, id)
			if err != nil {
				return fmt.Errorf("get request %d: %w", id, err)
			}

			from := req.Status
			machine := BuildRequestStateMachine(from)
			target, err := machine.Target(trigger)
			if err != nil {
				return &domainwf.TransitionError{RequestID: id, From: from, Role: in.Actor.Role, Decision: in.Decision}
			}
			_, rule, _ := domainwf.Resolve(in.Actor.Role, from, in.Decision)

			u := port.TransitionUpdate{
				RequestID:  id,
				FromStates: []domainwf.State{from},
				To:         target,
				Stage:      rule.Stage,
				ActorID:    in.Actor.ID,
				At:         now,
				Remarks:    remarks,
			}
			if in.Decision == domainwf.DecisionReject {
				u.RejectionStage = in.Actor.Role
				u.RejectionRemarks = remarks
			} else if from == domainwf.StatePendingHRRecertification {
				u.ClearRejection = true
			}

			applied, err := e.repos.Requests.ApplyTransition(txCtx, u)
			if err != nil {
				return fmt.Errorf("update request %d: %w", id, err)
			}
			if !applied {
				// someone moved it after we read it
				return &domainwf.TransitionError{RequestID: id, From: from, Role: in.Actor.Role, Decision: in.Decision}
			}

			if err := e.repos.Transitions.Create(txCtx, &entity.TransitionRecord{
				RequestID:      id,
				ActorID:        in.Actor.ID,
				ActorRole:      in.Actor.Role,
				PreviousStatus: from,
				NewStatus:      target,
				Action:         trigger.String(),
				Remarks:        remarks,
				Timestamp:      now,
			}); err != nil {
				return fmt.Errorf("record transition: %w", err)
			}

			updated, err := e.repos.Requests.GetByID(txCtx, id)
			if err != nil {
				return fmt.Errorf("reload request %d: %w", id, err)
			}
			changes = append(changes, change{from: from, req: updated})
		}
		return nil
	})
	if err != nil {
		e.logger.Error("Batch action failed",
			"actor_id", in.Actor.ID,
			"role", in.Actor.Role,
			"decision", in.Decision,
			"request_ids", ids,
			"error", err,
		)
		return nil, err
	}

	corr := event.NewCorrelationID()
	kind := event.TypeRequestApproved
	if in.Decision == domainwf.DecisionReject {
		kind = event.TypeRequestRejected
	}

	out := make([]*entity.OvertimeRequest, 0, len(changes))
	for _, c := range changes {
		out = append(out, c.req)
		e.emit(ctx, kind, c.req, in.Actor, corr, map[string]interface{}{event.KeyRemarks: remarks})
		e.emit(ctx, event.TypeStatusChanged, c.req, in.Actor, corr, map[string]interface{}{
			event.KeyPreviousStatus: c.from.String(),
		})
	}

	e.logger.Info("Batch action applied",
		"actor_id", in.Actor.ID,
		"role", in.Actor.Role,
		"decision", in.Decision,
		"count", len(out),
	)
	return out, nil
}

// RecomputePay re-runs pay and thresholds after a formula or hours change.
// Threshold breaches are recorded but never block here.
func (e *engineImpl) RecomputePay(ctx context.Context, requestID int64) (*SubmitResult, error) {
	var (
		result  *entity.OvertimeRequest
		formErr error
	)

	err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		req, err := e.repos.Requests.GetByID(txCtx, requestID)
		if err != nil {
			return fmt.Errorf("get request %d: %w", requestID, err)
		}
		if req.Status.IsTerminal() {
			return entity.NewValidationError("status", "request %d is %s; pay is frozen", requestID, req.Status)
		}

		profile, err := e.repos.Employees.GetByID(txCtx, req.EmployeeID)
		if err != nil {
			return fmt.Errorf("get employee: %w", err)
		}

		u := port.PayUpdate{RequestID: req.ID}
		pay := e.svc.Pay.Compute(txCtx, profile.BasicSalary, req.TotalHours, req.DayType)
		if pay.Success {
			u.ORP, u.HRP, u.OTAmount = pay.ORP, pay.HRP, pay.OTAmount
			req.OTAmount = u.OTAmount
		} else {
			// a broken formula must not erase pay computed earlier
			formErr = pay.Err()
			u.FormulaError = pay.Error
			u.KeepPay = true
		}

		outcome, err := e.svc.Thresholds.Check(txCtx, profile, req)
		if err != nil {
			return err
		}
		u.Violations = outcome.Violations

		if err := e.repos.Requests.UpdatePay(txCtx, u); err != nil {
			return fmt.Errorf("update pay: %w", err)
		}

		result, err = e.repos.Requests.GetByID(txCtx, requestID)
		return err
	})
	if err != nil {
		e.logger.Error("Pay recompute failed", "request_id", requestID, "error", err)
		return nil, err
	}

	e.emit(ctx, event.TypePayRecomputed, result, Actor{}, "", nil)
	return &SubmitResult{Request: result, FormulaError: formErr}, nil
}

func (e *engineImpl) Get(ctx context.Context, id int64) (*entity.OvertimeRequest, error) {
	return e.repos.Requests.GetByID(ctx, id)
}

func (e *engineImpl) List(ctx context.Context, filter port.RequestFilter) ([]*entity.OvertimeRequest, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, entity.NewValidationError("status", "unknown status %q", filter.Status)
	}
	return e.repos.Requests.List(ctx, filter)
}

func (e *engineImpl) ListByEmployee(ctx context.Context, employeeID string) ([]*entity.OvertimeRequest, error) {
	return e.List(ctx, port.RequestFilter{EmployeeID: employeeID})
}

func (e *engineImpl) ListByStatus(ctx context.Context, status domainwf.State) ([]*entity.OvertimeRequest, error) {
	return e.List(ctx, port.RequestFilter{Status: status})
}

// Grouped ignores paging so a page boundary never splits a group
func (e *engineImpl) Grouped(ctx context.Context, filter port.RequestFilter) ([]*entity.RequestGroup, error) {
	filter.Limit, filter.Offset = 0, 0
	requests, err := e.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return entity.GroupByEmployeeAndDate(requests), nil
}

func (e *engineImpl) History(ctx context.Context, requestID int64) ([]*entity.TransitionRecord, error) {
	if _, err := e.repos.Requests.GetByID(ctx, requestID); err != nil {
		return nil, err
	}
	return e.repos.Transitions.ListByRequest(ctx, requestID)
}

func (e *engineImpl) Resubmissions(ctx context.Context, requestID int64) ([]*entity.ResubmissionHistoryEntry, error) {
	if _, err := e.repos.Requests.GetByID(ctx, requestID); err != nil {
		return nil, err
	}
	return e.svc.Resubmissions.Chain(ctx, requestID)
}

// emit dispatches asynchronously; delivery never blocks or fails the caller
func (e *engineImpl) emit(ctx context.Context, t event.Type, req *entity.OvertimeRequest, actor Actor, corr string, extra map[string]interface{}) {
	if e.dispatcher == nil || req == nil {
		return
	}

	payload := map[string]interface{}{
		event.KeyEmployeeID: req.EmployeeID,
		event.KeyActorID:    actor.ID,
		event.KeyActorName:  actor.Name,
		event.KeyActorRole:  string(actor.Role),
		event.KeyNewStatus:  req.Status.String(),
		event.KeyOTDate:     entity.FormatDate(req.OTDate),
		event.KeyHours:      req.TotalHours,
	}
	if req.SupervisorID != nil {
		payload[event.KeySupervisorID] = *req.SupervisorID
	}
	for k, v := range extra {
		payload[k] = v
	}

	var evt *event.Event
	if corr == "" {
		evt = event.NewEvent(t, req.ID, req.TicketNumber, payload)
	} else {
		evt = event.NewEventWithCorrelation(t, req.ID, req.TicketNumber, payload, corr)
	}
	e.dispatcher.DispatchAsync(ctx, evt)
}

func dedupe(ids []int64) ([]int64, error) {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			return nil, entity.NewValidationError("request_ids", "invalid request id %d", id)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out, nil
}
