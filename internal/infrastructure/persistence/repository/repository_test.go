package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/overtime-claims/internal/application/port"
	"github.com/garyjia/overtime-claims/internal/domain/entity"
	"github.com/garyjia/overtime-claims/internal/domain/workflow"
	"github.com/garyjia/overtime-claims/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/overtime-claims/migrations"
	"github.com/garyjia/overtime-claims/pkg/database"
)

var (
	day   = time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)
	stamp = time.Date(2024, 3, 6, 10, 30, 0, 0, time.UTC)
)

func setupDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.New(database.Config{
		Path:         filepath.Join(t.TempDir(), "overtime.db"),
		MaxOpenConns: 1,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.NewMigrator(db, zap.NewNop()).Run(migrations.FS))
	return db
}

func fp(v float64) *float64 { return &v }

func newRequest(employeeID string, date time.Time, start, end string, hours float64) *entity.OvertimeRequest {
	sup := "S1"
	return &entity.OvertimeRequest{
		TicketNumber: "OT-" + employeeID + "-" + entity.FormatDate(date) + "-" + start + "-" + end,
		EmployeeID:   employeeID,
		SupervisorID: &sup,
		OTDate:       date,
		StartTime:    start,
		EndTime:      end,
		TotalHours:   hours,
		DayType:      entity.DayTypeWeekday,
		ORP:          fp(100),
		HRP:          fp(12.5),
		OTAmount:     fp(hours * 12.5),
		Reason:       "release",
		Attachments:  []string{"a.pdf", "b.png"},
		Status:       workflow.StatePendingVerification,
		Violations: map[string]entity.Violation{
			"threshold-1:daily_hours": {Type: entity.ViolationDailyHours, Limit: 2, Actual: hours},
		},
		CreatedAt: stamp,
		UpdatedAt: stamp,
	}
}

func TestRequestRepository_CreateAndGet(t *testing.T) {
	db := setupDB(t)
	repo := NewRequestRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	req := newRequest("E1", day, "18:00", "21:00", 3)
	require.NoError(t, repo.Create(ctx, req))
	require.NotZero(t, req.ID)

	got, err := repo.GetByID(ctx, req.ID)
	require.NoError(t, err)

	assert.Equal(t, req.TicketNumber, got.TicketNumber)
	assert.True(t, day.Equal(got.OTDate))
	assert.Equal(t, "S1", *got.SupervisorID)
	assert.Equal(t, 3.0, got.TotalHours)
	assert.Equal(t, 37.5, *got.OTAmount)
	assert.Equal(t, []string{"a.pdf", "b.png"}, got.Attachments)
	assert.Equal(t, req.Violations, got.Violations)
	assert.Equal(t, workflow.StatePendingVerification, got.Status)
	assert.Nil(t, got.Supervisor.At)
	assert.Nil(t, got.ParentRequestID)
	assert.True(t, stamp.Equal(got.CreatedAt))

	_, err = repo.GetByID(ctx, 404)
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestRequestRepository_NilPayRoundTrips(t *testing.T) {
	db := setupDB(t)
	repo := NewRequestRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	req := newRequest("E1", day, "18:00", "19:00", 1)
	req.ORP, req.HRP, req.OTAmount = nil, nil, nil
	req.FormulaError = "division by zero"
	req.Violations = nil
	req.Attachments = nil
	require.NoError(t, repo.Create(ctx, req))

	got, err := repo.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Nil(t, got.ORP)
	assert.Nil(t, got.OTAmount)
	assert.Equal(t, "division by zero", got.FormulaError)
	assert.Empty(t, got.Violations)
	assert.NotNil(t, got.Attachments)
}

func TestRequestRepository_ListMissingPay(t *testing.T) {
	db := setupDB(t)
	repo := NewRequestRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	priced := newRequest("E1", day, "18:00", "19:00", 1)
	require.NoError(t, repo.Create(ctx, priced))

	unpriced := newRequest("E1", day, "19:00", "20:00", 1)
	unpriced.ORP, unpriced.HRP, unpriced.OTAmount = nil, nil, nil
	require.NoError(t, repo.Create(ctx, unpriced))

	rejected := newRequest("E2", day, "18:00", "19:00", 1)
	rejected.OTAmount = nil
	rejected.Status = workflow.StateRejected
	require.NoError(t, repo.Create(ctx, rejected))

	got, err := repo.List(ctx, port.RequestFilter{MissingPay: true})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, unpriced.ID, got[0].ID)
}

func TestRequestRepository_ApplyTransition(t *testing.T) {
	db := setupDB(t)
	repo := NewRequestRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	req := newRequest("E1", day, "18:00", "19:00", 1)
	require.NoError(t, repo.Create(ctx, req))

	ok, err := repo.ApplyTransition(ctx, port.TransitionUpdate{
		RequestID:  req.ID,
		FromStates: []workflow.State{workflow.StateSupervisorVerified},
		To:         workflow.StateHRCertified,
		Stage:      workflow.StageHR,
		ActorID:    "H1",
		At:         stamp,
	})
	require.NoError(t, err)
	assert.False(t, ok, "status precondition must hold")

	ok, err = repo.ApplyTransition(ctx, port.TransitionUpdate{
		RequestID:  req.ID,
		FromStates: []workflow.State{workflow.StatePendingVerification},
		To:         workflow.StateSupervisorVerified,
		Stage:      workflow.StageSupervisor,
		ActorID:    "S1",
		At:         stamp,
		Remarks:    "fine",
	})
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := repo.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.StateSupervisorVerified, got.Status)
	assert.Equal(t, "S1", got.Supervisor.ActorID)
	assert.Equal(t, "fine", got.Supervisor.Remarks)
	require.NotNil(t, got.Supervisor.At)
	assert.True(t, stamp.Equal(*got.Supervisor.At))
	assert.Empty(t, got.HR.ActorID)
}

func TestRequestRepository_RejectionMetadata(t *testing.T) {
	db := setupDB(t)
	repo := NewRequestRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	req := newRequest("E1", day, "18:00", "19:00", 1)
	req.Status = workflow.StateHRCertified
	require.NoError(t, repo.Create(ctx, req))

	ok, err := repo.ApplyTransition(ctx, port.TransitionUpdate{
		RequestID:        req.ID,
		FromStates:       []workflow.State{workflow.StateHRCertified},
		To:               workflow.StatePendingHRRecertification,
		Stage:            workflow.StageManagement,
		ActorID:          "M1",
		At:               stamp,
		Remarks:          "over budget",
		RejectionStage:   workflow.RoleManagement,
		RejectionRemarks: "over budget",
	})
	require.NoError(t, err)
	require.True(t, ok)

	got, _ := repo.GetByID(ctx, req.ID)
	assert.Equal(t, workflow.RoleManagement, got.RejectionStage)
	assert.Equal(t, "over budget", got.RejectionRemarks)

	ok, err = repo.ApplyTransition(ctx, port.TransitionUpdate{
		RequestID:      req.ID,
		FromStates:     []workflow.State{workflow.StatePendingHRRecertification},
		To:             workflow.StateHRCertified,
		Stage:          workflow.StageHR,
		ActorID:        "H1",
		At:             stamp.Add(time.Hour),
		ClearRejection: true,
	})
	require.NoError(t, err)
	require.True(t, ok)

	got, _ = repo.GetByID(ctx, req.ID)
	assert.Empty(t, got.RejectionStage)
	assert.Empty(t, got.RejectionRemarks)
	assert.Equal(t, "over budget", got.Management.Remarks)
}

func TestRequestRepository_OverlapAndUsageQueries(t *testing.T) {
	db := setupDB(t)
	repo := NewRequestRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	a := newRequest("E1", day, "08:00", "10:00", 2)
	b := newRequest("E1", day, "18:00", "21:00", 3)
	rejected := newRequest("E1", day, "12:00", "13:00", 1)
	rejected.Status = workflow.StateRejected
	nextWeek := newRequest("E1", day.AddDate(0, 0, 7), "18:00", "19:00", 1)
	other := newRequest("E2", day, "08:00", "09:00", 1)
	for _, r := range []*entity.OvertimeRequest{a, b, rejected, nextWeek, other} {
		require.NoError(t, repo.Create(ctx, r))
	}

	active, err := repo.ListActiveOnDate(ctx, "E1", day)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "08:00", active[0].StartTime)

	hours, amount, err := repo.SumUsage(ctx, "E1", day, day.AddDate(0, 0, 1), 0)
	require.NoError(t, err)
	assert.Equal(t, 5.0, hours)
	assert.Equal(t, 62.5, amount)

	hours, _, err = repo.SumUsage(ctx, "E1", day, day.AddDate(0, 1, 0), b.ID)
	require.NoError(t, err)
	assert.Equal(t, 3.0, hours)

	list, err := repo.List(ctx, port.RequestFilter{EmployeeID: "E1", Status: workflow.StatePendingVerification})
	require.NoError(t, err)
	assert.Len(t, list, 3)

	from := day.AddDate(0, 0, 1)
	list, err = repo.List(ctx, port.RequestFilter{From: &from})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, nextWeek.ID, list[0].ID)

	list, err = repo.List(ctx, port.RequestFilter{Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestRequestRepository_UpdatePaySkipsTerminal(t *testing.T) {
	db := setupDB(t)
	repo := NewRequestRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	open := newRequest("E1", day, "18:00", "19:00", 1)
	done := newRequest("E1", day, "20:00", "21:00", 1)
	done.Status = workflow.StateManagementApproved
	require.NoError(t, repo.Create(ctx, open))
	require.NoError(t, repo.Create(ctx, done))

	require.NoError(t, repo.UpdatePay(ctx, port.PayUpdate{RequestID: open.ID, ORP: fp(1), HRP: fp(2), OTAmount: fp(3)}))
	got, _ := repo.GetByID(ctx, open.ID)
	assert.Equal(t, 3.0, *got.OTAmount)
	assert.Empty(t, got.Violations)

	err := repo.UpdatePay(ctx, port.PayUpdate{RequestID: done.ID, OTAmount: fp(99)})
	assert.ErrorIs(t, err, entity.ErrNotFound)
	got, _ = repo.GetByID(ctx, done.ID)
	assert.Equal(t, 12.5, *got.OTAmount)
}

func TestRequestRepository_UpdatePayKeepPay(t *testing.T) {
	db := setupDB(t)
	repo := NewRequestRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	req := newRequest("E1", day, "18:00", "20:00", 2)
	require.NoError(t, repo.Create(ctx, req))
	require.NoError(t, repo.UpdatePay(ctx, port.PayUpdate{RequestID: req.ID, ORP: fp(100), HRP: fp(12.5), OTAmount: fp(31.25)}))

	err := repo.UpdatePay(ctx, port.PayUpdate{
		RequestID:    req.ID,
		FormulaError: "division by zero",
		Violations:   map[string]entity.Violation{"threshold-1:daily_hours": {Type: entity.ViolationDailyHours, Limit: 1, Actual: 2}},
		KeepPay:      true,
	})
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, req.ID)
	require.NoError(t, err)
	require.NotNil(t, got.OTAmount)
	assert.Equal(t, 31.25, *got.OTAmount)
	assert.Equal(t, 100.0, *got.ORP)
	assert.Equal(t, 12.5, *got.HRP)
	assert.Equal(t, "division by zero", got.FormulaError)
	assert.Len(t, got.Violations, 1)
}

func TestTransactionManager_RollsBackAcrossRepositories(t *testing.T) {
	db := setupDB(t)
	tx := sqlite.NewDB(db.DB, zap.NewNop())
	requests := NewRequestRepository(db.DB, zap.NewNop())
	transitions := NewTransitionRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	boom := errors.New("boom")
	err := tx.WithTransaction(ctx, func(txCtx context.Context) error {
		req := newRequest("E1", day, "18:00", "19:00", 1)
		if err := requests.Create(txCtx, req); err != nil {
			return err
		}
		if err := transitions.Create(txCtx, &entity.TransitionRecord{RequestID: req.ID, NewStatus: req.Status, Action: entity.ActionSubmit, Timestamp: stamp}); err != nil {
			return err
		}
		// nested calls join the outer transaction
		return tx.WithTransaction(txCtx, func(context.Context) error { return boom })
	})
	assert.ErrorIs(t, err, boom)

	list, err := requests.List(ctx, port.RequestFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM request_transitions").Scan(&n))
	assert.Zero(t, n)
}

func TestTransitionRepository_ListInOrder(t *testing.T) {
	db := setupDB(t)
	requests := NewRequestRepository(db.DB, zap.NewNop())
	repo := NewTransitionRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	req := newRequest("E1", day, "18:00", "19:00", 1)
	require.NoError(t, requests.Create(ctx, req))

	require.NoError(t, repo.Create(ctx, &entity.TransitionRecord{RequestID: req.ID, ActorID: "E1", ActorRole: workflow.RoleEmployee, NewStatus: workflow.StatePendingVerification, Action: entity.ActionSubmit, Timestamp: stamp}))
	require.NoError(t, repo.Create(ctx, &entity.TransitionRecord{RequestID: req.ID, ActorID: "S1", ActorRole: workflow.RoleSupervisor, PreviousStatus: workflow.StatePendingVerification, NewStatus: workflow.StateRejected, Action: "supervisor.reject", Remarks: "no", Timestamp: stamp}))

	records, err := repo.ListByRequest(ctx, req.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, entity.ActionSubmit, records[0].Action)
	assert.Equal(t, workflow.RoleSupervisor, records[1].ActorRole)
	assert.Equal(t, "no", records[1].Remarks)
	assert.True(t, stamp.Equal(records[1].Timestamp))
}

func TestResubmissionRepository_OneSuccessorPerOriginal(t *testing.T) {
	db := setupDB(t)
	requests := NewRequestRepository(db.DB, zap.NewNop())
	repo := NewResubmissionRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	orig := newRequest("E1", day, "18:00", "19:00", 1)
	orig.Status = workflow.StateRejected
	first := newRequest("E1", day, "18:00", "19:30", 1.5)
	second := newRequest("E1", day, "20:00", "21:00", 1)
	for _, r := range []*entity.OvertimeRequest{orig, first, second} {
		require.NoError(t, requests.Create(ctx, r))
	}

	entry := &entity.ResubmissionHistoryEntry{
		OriginalRequestID:  orig.ID,
		SuccessorRequestID: first.ID,
		RejectionStage:     workflow.RoleSupervisor,
		RejectionReason:    "missing proof",
		ResubmittedBy:      "E1",
		CreatedAt:          stamp,
	}
	require.NoError(t, repo.Create(ctx, entry))
	assert.NotZero(t, entry.ID)

	got, err := repo.GetByOriginal(ctx, orig.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.SuccessorRequestID)
	assert.Equal(t, "missing proof", got.RejectionReason)

	got, err = repo.GetBySuccessor(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, orig.ID, got.OriginalRequestID)

	_, err = repo.GetBySuccessor(ctx, orig.ID)
	assert.ErrorIs(t, err, entity.ErrNotFound)

	err = repo.Create(ctx, &entity.ResubmissionHistoryEntry{OriginalRequestID: orig.ID, SuccessorRequestID: second.ID, ResubmittedBy: "E1", CreatedAt: stamp})
	assert.Error(t, err)
}

func TestPolicyRepositories(t *testing.T) {
	db := setupDB(t)
	rules := NewEligibilityRuleRepository(db.DB, zap.NewNop())
	thresholds := NewThresholdRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, rules.Create(ctx, &entity.EligibilityRule{Name: "ops", MaxSalary: fp(5000), Departments: []string{"Operations"}, Active: true}))
	require.NoError(t, rules.Create(ctx, &entity.EligibilityRule{Name: "retired", Active: false}))

	active, err := rules.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "ops", active[0].Name)
	assert.Nil(t, active[0].MinSalary)
	assert.Equal(t, 5000.0, *active[0].MaxSalary)
	assert.Equal(t, []string{"Operations"}, active[0].Departments)
	assert.Empty(t, active[0].Roles)

	require.NoError(t, thresholds.Create(ctx, &entity.ApprovalThreshold{Name: "cap", DailyLimit: fp(4), MaxAmount: fp(1000), AutoBlock: true, Roles: []string{"staff"}, Active: true}))

	ts, err := thresholds.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, ts, 1)
	assert.True(t, ts[0].AutoBlock)
	assert.Equal(t, 4.0, *ts[0].DailyLimit)
	assert.Nil(t, ts[0].WeeklyLimit)
	assert.Equal(t, []string{"staff"}, ts[0].Roles)
}

func TestFormulaRepository_SeededAndUpsert(t *testing.T) {
	db := setupDB(t)
	repo := NewFormulaRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, len(entity.DayTypes()))

	require.NoError(t, repo.Upsert(ctx, &entity.PayFormula{DayType: entity.DayTypeWeekday, Expression: "HRP * Hours * 2", Multiplier: 1.1, UpdatedBy: "H1", UpdatedAt: stamp}))

	f, err := repo.Get(ctx, entity.DayTypeWeekday)
	require.NoError(t, err)
	assert.Equal(t, "HRP * Hours * 2", f.Expression)
	assert.Equal(t, 1.1, f.Multiplier)
	assert.Equal(t, "H1", f.UpdatedBy)

	_, err = repo.Get(ctx, "fortnight")
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestEmployeeAndHolidayRepositories(t *testing.T) {
	db := setupDB(t)
	employees := NewEmployeeRepository(db.DB, zap.NewNop())
	holidays := NewHolidayRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	sup := "S1"
	require.NoError(t, employees.Upsert(ctx, &entity.EmployeeProfile{ID: "E1", Name: "Emp", BasicSalary: 2600, Department: "Ops", Role: "staff", EmploymentType: "permanent", SupervisorID: &sup}))
	require.NoError(t, employees.Upsert(ctx, &entity.EmployeeProfile{ID: "E1", Name: "Emp One", BasicSalary: 3900}))

	p, err := employees.GetByID(ctx, "E1")
	require.NoError(t, err)
	assert.Equal(t, "Emp One", p.Name)
	assert.Equal(t, 3900.0, p.BasicSalary)
	assert.Nil(t, p.SupervisorID)

	_, err = employees.GetByID(ctx, "nobody")
	assert.ErrorIs(t, err, entity.ErrNotFound)

	require.NoError(t, holidays.Upsert(ctx, &entity.Holiday{Date: day, Name: "Founders Day"}))
	yes, err := holidays.IsHoliday(ctx, day)
	require.NoError(t, err)
	assert.True(t, yes)

	no, err := holidays.IsHoliday(ctx, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.False(t, no)
}
