package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/overtime-claims/internal/application/port"
	"github.com/garyjia/overtime-claims/internal/domain/entity"
	"github.com/garyjia/overtime-claims/internal/domain/workflow"
	"github.com/garyjia/overtime-claims/internal/infrastructure/persistence/sqlite"
)

const requestColumns = `
	id, ticket_number, employee_id, supervisor_id,
	ot_date, start_time, end_time, total_hours, day_type,
	orp, hrp, ot_amount, formula_error,
	reason, attachments, status,
	supervisor_actor_id, supervisor_at, supervisor_remarks,
	hr_actor_id, hr_at, hr_remarks,
	management_actor_id, management_at, management_remarks,
	rejection_stage, rejection_remarks,
	parent_request_id, is_resubmission, resubmission_count,
	violations, created_at, updated_at`

// RequestRepository implements port.RequestRepository
type RequestRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRequestRepository creates a new overtime request repository
func NewRequestRepository(db *sql.DB, logger *zap.Logger) port.RequestRepository {
	return &RequestRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new overtime request and sets its ID
func (r *RequestRepository) Create(ctx context.Context, req *entity.OvertimeRequest) error {
	query := `
		INSERT INTO overtime_requests (
			ticket_number, employee_id, supervisor_id,
			ot_date, start_time, end_time, total_hours, day_type,
			orp, hrp, ot_amount, formula_error,
			reason, attachments, status,
			parent_request_id, is_resubmission, resubmission_count,
			violations, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	attachments, err := encodeSet(req.Attachments)
	if err != nil {
		return err
	}
	violations, err := encodeViolations(req.Violations)
	if err != nil {
		return err
	}

	var parentID sql.NullInt64
	if req.ParentRequestID != nil {
		parentID = sql.NullInt64{Int64: *req.ParentRequestID, Valid: true}
	}

	result, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, query,
		req.TicketNumber,
		req.EmployeeID,
		nullString(req.SupervisorID),
		entity.FormatDate(req.OTDate),
		req.StartTime,
		req.EndTime,
		req.TotalHours,
		req.DayType,
		nullFloat(req.ORP),
		nullFloat(req.HRP),
		nullFloat(req.OTAmount),
		req.FormulaError,
		req.Reason,
		attachments,
		req.Status,
		parentID,
		req.IsResubmission,
		req.ResubmissionCount,
		violations,
		req.CreatedAt.UTC(),
		req.UpdatedAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to create overtime request", zap.String("employee_id", req.EmployeeID), zap.Error(err))
		return fmt.Errorf("failed to create overtime request: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	req.ID = id
	return nil
}

// GetByID retrieves a request, or entity.ErrNotFound
func (r *RequestRepository) GetByID(ctx context.Context, id int64) (*entity.OvertimeRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM overtime_requests WHERE id = ?`

	req, err := scanRequest(sqlite.Conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("overtime request %d: %w", id, entity.ErrNotFound)
	}
	if err != nil {
		r.logger.Error("Failed to get overtime request", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get overtime request: %w", err)
	}
	return req, nil
}

// List returns requests matching the filter, newest date first
func (r *RequestRepository) List(ctx context.Context, filter port.RequestFilter) ([]*entity.OvertimeRequest, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.EmployeeID != "" {
		where = append(where, "employee_id = ?")
		args = append(args, filter.EmployeeID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.From != nil {
		where = append(where, "ot_date >= ?")
		args = append(args, entity.FormatDate(*filter.From))
	}
	if filter.To != nil {
		where = append(where, "ot_date <= ?")
		args = append(args, entity.FormatDate(*filter.To))
	}
	if filter.MissingPay {
		where = append(where, "ot_amount IS NULL AND status NOT IN (?, ?)")
		args = append(args, workflow.StateManagementApproved, workflow.StateRejected)
	}

	query := `SELECT ` + requestColumns + ` FROM overtime_requests`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY ot_date DESC, start_time ASC, id ASC`

	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	}

	return r.query(ctx, query, args...)
}

// ListActiveOnDate returns the employee's non-rejected requests on a date
func (r *RequestRepository) ListActiveOnDate(ctx context.Context, employeeID string, date time.Time) ([]*entity.OvertimeRequest, error) {
	query := `SELECT ` + requestColumns + `
		FROM overtime_requests
		WHERE employee_id = ? AND ot_date = ? AND status != ?
		ORDER BY start_time ASC`

	return r.query(ctx, query, employeeID, entity.FormatDate(date), workflow.StateRejected)
}

// SumUsage totals hours and amount over [from, to), skipping rejected requests and excludeID
func (r *RequestRepository) SumUsage(ctx context.Context, employeeID string, from, to time.Time, excludeID int64) (float64, float64, error) {
	query := `
		SELECT COALESCE(SUM(total_hours), 0), COALESCE(SUM(ot_amount), 0)
		FROM overtime_requests
		WHERE employee_id = ? AND ot_date >= ? AND ot_date < ? AND status != ? AND id != ?
	`

	var hours, amount float64
	err := sqlite.Conn(ctx, r.db).QueryRowContext(ctx, query,
		employeeID,
		entity.FormatDate(from),
		entity.FormatDate(to),
		workflow.StateRejected,
		excludeID,
	).Scan(&hours, &amount)
	if err != nil {
		r.logger.Error("Failed to sum usage", zap.String("employee_id", employeeID), zap.Error(err))
		return 0, 0, fmt.Errorf("failed to sum usage: %w", err)
	}
	return hours, amount, nil
}

// ApplyTransition performs the conditional status update. It reports false,
// without error, when the row is no longer in one of the expected states.
func (r *RequestRepository) ApplyTransition(ctx context.Context, u port.TransitionUpdate) (bool, error) {
	if len(u.FromStates) == 0 {
		return false, nil
	}

	actorCol, atCol, remarksCol, err := stageColumns(u.Stage)
	if err != nil {
		return false, err
	}

	set := []string{
		"status = ?",
		actorCol + " = ?",
		atCol + " = ?",
		remarksCol + " = ?",
		"updated_at = ?",
	}
	at := u.At.UTC()
	args := []interface{}{u.To, u.ActorID, at, u.Remarks, at}

	switch {
	case u.RejectionStage != "":
		set = append(set, "rejection_stage = ?", "rejection_remarks = ?")
		args = append(args, u.RejectionStage, u.RejectionRemarks)
	case u.ClearRejection:
		set = append(set, "rejection_stage = ''", "rejection_remarks = ''")
	}

	placeholders := make([]string, len(u.FromStates))
	args = append(args, u.RequestID)
	for i, st := range u.FromStates {
		placeholders[i] = "?"
		args = append(args, st)
	}

	query := `UPDATE overtime_requests SET ` + strings.Join(set, ", ") +
		` WHERE id = ? AND status IN (` + strings.Join(placeholders, ", ") + `)`

	result, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to apply transition",
			zap.Int64("id", u.RequestID),
			zap.String("to", u.To.String()),
			zap.Error(err))
		return false, fmt.Errorf("failed to apply transition: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n == 1, nil
}

// UpdatePay rewrites the pay fields of a non-terminal request
func (r *RequestRepository) UpdatePay(ctx context.Context, u port.PayUpdate) error {
	violations, err := encodeViolations(u.Violations)
	if err != nil {
		return err
	}

	set := "orp = ?, hrp = ?, ot_amount = ?, formula_error = ?, violations = ?, updated_at = ?"
	args := []interface{}{nullFloat(u.ORP), nullFloat(u.HRP), nullFloat(u.OTAmount)}
	if u.KeepPay {
		set = "formula_error = ?, violations = ?, updated_at = ?"
		args = args[:0]
	}
	args = append(args, u.FormulaError, violations, time.Now().UTC(),
		u.RequestID, workflow.StateManagementApproved, workflow.StateRejected)

	query := "UPDATE overtime_requests SET " + set + " WHERE id = ? AND status NOT IN (?, ?)"
	result, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to update pay", zap.Int64("id", u.RequestID), zap.Error(err))
		return fmt.Errorf("failed to update pay: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("open overtime request %d: %w", u.RequestID, entity.ErrNotFound)
	}
	return nil
}

func (r *RequestRepository) query(ctx context.Context, query string, args ...interface{}) ([]*entity.OvertimeRequest, error) {
	rows, err := sqlite.Conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query overtime requests", zap.Error(err))
		return nil, fmt.Errorf("failed to query overtime requests: %w", err)
	}
	defer rows.Close()

	var requests []*entity.OvertimeRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan overtime request: %w", err)
		}
		requests = append(requests, req)
	}

	return requests, rows.Err()
}

func stageColumns(stage workflow.Stage) (actor, at, remarks string, err error) {
	switch stage {
	case workflow.StageSupervisor:
		return "supervisor_actor_id", "supervisor_at", "supervisor_remarks", nil
	case workflow.StageHR:
		return "hr_actor_id", "hr_at", "hr_remarks", nil
	case workflow.StageManagement:
		return "management_actor_id", "management_at", "management_remarks", nil
	}
	return "", "", "", fmt.Errorf("unknown stage %q", stage)
}

func scanRequest(row rowScanner) (*entity.OvertimeRequest, error) {
	var (
		req                     entity.OvertimeRequest
		supervisorID            sql.NullString
		otDate                  string
		orp, hrp, amount        sql.NullFloat64
		attachments, violations string
		supAt, hrAt, mgmtAt     sql.NullTime
		parentID                sql.NullInt64
	)

	err := row.Scan(
		&req.ID,
		&req.TicketNumber,
		&req.EmployeeID,
		&supervisorID,
		&otDate,
		&req.StartTime,
		&req.EndTime,
		&req.TotalHours,
		&req.DayType,
		&orp,
		&hrp,
		&amount,
		&req.FormulaError,
		&req.Reason,
		&attachments,
		&req.Status,
		&req.Supervisor.ActorID,
		&supAt,
		&req.Supervisor.Remarks,
		&req.HR.ActorID,
		&hrAt,
		&req.HR.Remarks,
		&req.Management.ActorID,
		&mgmtAt,
		&req.Management.Remarks,
		&req.RejectionStage,
		&req.RejectionRemarks,
		&parentID,
		&req.IsResubmission,
		&req.ResubmissionCount,
		&violations,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	req.SupervisorID = stringPtr(supervisorID)
	req.ORP, req.HRP, req.OTAmount = floatPtr(orp), floatPtr(hrp), floatPtr(amount)
	req.Supervisor.At = timePtr(supAt)
	req.HR.At = timePtr(hrAt)
	req.Management.At = timePtr(mgmtAt)
	req.CreatedAt = req.CreatedAt.UTC()
	req.UpdatedAt = req.UpdatedAt.UTC()
	if parentID.Valid {
		id := parentID.Int64
		req.ParentRequestID = &id
	}

	if req.OTDate, err = entity.ParseDate(otDate); err != nil {
		return nil, err
	}
	if req.Attachments, err = decodeSet(attachments); err != nil {
		return nil, err
	}
	if req.Violations, err = decodeViolations(violations); err != nil {
		return nil, err
	}

	return &req, nil
}

// Verify interface compliance
var _ port.RequestRepository = (*RequestRepository)(nil)
