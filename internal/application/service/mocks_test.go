package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/garyjia/overtime-claims/internal/application/port"
	"github.com/garyjia/overtime-claims/internal/domain/entity"
)

type mockFormulaRepo struct {
	formulas map[entity.DayType]*entity.PayFormula
	getErr   error
	upserted []*entity.PayFormula
}

func (m *mockFormulaRepo) Get(ctx context.Context, dayType entity.DayType) (*entity.PayFormula, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if f, ok := m.formulas[dayType]; ok {
		return f, nil
	}
	return nil, entity.ErrNotFound
}

func (m *mockFormulaRepo) List(ctx context.Context) ([]*entity.PayFormula, error) {
	var out []*entity.PayFormula
	for _, f := range m.formulas {
		out = append(out, f)
	}
	return out, nil
}

func (m *mockFormulaRepo) Upsert(ctx context.Context, f *entity.PayFormula) error {
	m.upserted = append(m.upserted, f)
	return nil
}

type mockRuleRepo struct {
	rules []*entity.EligibilityRule
	err   error
}

func (m *mockRuleRepo) ListActive(ctx context.Context) ([]*entity.EligibilityRule, error) {
	return m.rules, m.err
}

type mockThresholdRepo struct {
	thresholds []*entity.ApprovalThreshold
}

func (m *mockThresholdRepo) ListActive(ctx context.Context) ([]*entity.ApprovalThreshold, error) {
	return m.thresholds, nil
}

type usageCall struct {
	from, to  time.Time
	excludeID int64
}

// mockUsageRepo answers SumUsage from a fixed request list; other methods are unused here
type mockUsageRepo struct {
	port.RequestRepository
	requests []*entity.OvertimeRequest
	calls    []usageCall
}

func (m *mockUsageRepo) SumUsage(ctx context.Context, employeeID string, from, to time.Time, excludeID int64) (float64, float64, error) {
	m.calls = append(m.calls, usageCall{from, to, excludeID})
	var hours, amount float64
	for _, r := range m.requests {
		if r.EmployeeID != employeeID || r.ID == excludeID || r.Status == "rejected" {
			continue
		}
		if r.OTDate.Before(from) || !r.OTDate.Before(to) {
			continue
		}
		hours += r.TotalHours
		if r.OTAmount != nil {
			amount += *r.OTAmount
		}
	}
	return hours, amount, nil
}

type mockResubmissionRepo struct {
	entries []*entity.ResubmissionHistoryEntry
}

func (m *mockResubmissionRepo) Create(ctx context.Context, e *entity.ResubmissionHistoryEntry) error {
	e.ID = int64(len(m.entries) + 1)
	m.entries = append(m.entries, e)
	return nil
}

func (m *mockResubmissionRepo) GetByOriginal(ctx context.Context, originalID int64) (*entity.ResubmissionHistoryEntry, error) {
	for _, e := range m.entries {
		if e.OriginalRequestID == originalID {
			return e, nil
		}
	}
	return nil, entity.ErrNotFound
}

func (m *mockResubmissionRepo) GetBySuccessor(ctx context.Context, successorID int64) (*entity.ResubmissionHistoryEntry, error) {
	for _, e := range m.entries {
		if e.SuccessorRequestID == successorID {
			return e, nil
		}
	}
	return nil, entity.ErrNotFound
}

type mockSink struct {
	mock.Mock
}

func (m *mockSink) Deliver(ctx context.Context, n port.NotificationDescriptor) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func fp(v float64) *float64 { return &v }

func date(s string) time.Time {
	d, _ := time.Parse(entity.DateLayout, s)
	return d
}
