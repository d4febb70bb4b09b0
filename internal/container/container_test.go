package container

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/garyjia/overtime-claims/internal/application/port"
	"github.com/garyjia/overtime-claims/internal/application/workflow"
	"github.com/garyjia/overtime-claims/internal/domain/entity"
	"github.com/garyjia/overtime-claims/internal/infrastructure/worker"
	domainwf "github.com/garyjia/overtime-claims/internal/domain/workflow"
)

type recordingSink struct {
	mu  sync.Mutex
	got []port.NotificationDescriptor
}

func (s *recordingSink) Deliver(ctx context.Context, n port.NotificationDescriptor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, n)
	return nil
}

func (s *recordingSink) delivered() []port.NotificationDescriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]port.NotificationDescriptor(nil), s.got...)
}

func newStartedContainer(t *testing.T, sink port.NotificationSink) *Container {
	t.Helper()

	cfg := DefaultConfig()
	cfg.Database.Path = filepath.Join(t.TempDir(), "ot.db")

	c, err := NewContainer(cfg, zaptest.NewLogger(t), WithNotificationSink(sink))
	require.NoError(t, err)
	require.NoError(t, c.Start(context.Background()))
	return c
}

func TestNewContainerValidation(t *testing.T) {
	_, err := NewContainer(nil, zaptest.NewLogger(t))
	assert.Error(t, err)

	_, err = NewContainer(DefaultConfig(), nil)
	assert.Error(t, err)

	cfg := DefaultConfig()
	cfg.Database.Path = ""
	_, err = NewContainer(cfg, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestContainerLifecycle(t *testing.T) {
	c := newStartedContainer(t, &recordingSink{})

	assert.True(t, c.Ready())
	health := c.Health()
	assert.True(t, health.Overall)
	for _, name := range []string{"database", "repositories", "dispatcher", "engine", "workers"} {
		assert.True(t, health.Components[name].Healthy, name)
	}

	assert.Error(t, c.Start(context.Background()), "second start")

	require.NoError(t, c.Close())
	assert.False(t, c.Ready())
	assert.Error(t, c.Close(), "second close")
	assert.Error(t, c.Start(context.Background()), "start after close")
}

func TestContainerEndToEnd(t *testing.T) {
	ctx := context.Background()
	sink := &recordingSink{}
	c := newStartedContainer(t, sink)

	supervisor := "S1"
	require.NoError(t, c.Repositories().Employees.Upsert(ctx, &entity.EmployeeProfile{
		ID:             "E1",
		Name:           "Aina",
		BasicSalary:    2600,
		Department:     "Operations",
		Role:           "staff",
		EmploymentType: "permanent",
		SupervisorID:   &supervisor,
	}))

	date, err := entity.ParseDate("2024-03-06")
	require.NoError(t, err)

	res, err := c.Engine().Submit(ctx, workflow.SubmitInput{
		EmployeeID: "E1",
		OTDate:     date,
		StartTime:  "18:00",
		EndTime:    "20:00",
		Reason:     "month-end close",
		Actor:      workflow.Actor{ID: "E1", Name: "Aina", Role: domainwf.RoleEmployee},
	})
	require.NoError(t, err)
	require.NoError(t, res.FormulaError)

	req := res.Request
	assert.Equal(t, domainwf.StatePendingVerification, req.Status)
	assert.Equal(t, entity.DayTypeWeekday, req.DayType)
	require.NotNil(t, req.OTAmount)
	// 2600 / 26 / 8 * 2h * 1.25 from the seeded weekday formula
	assert.InDelta(t, 31.25, *req.OTAmount, 0.001)

	updated, err := c.Engine().Act(ctx, workflow.ActInput{
		RequestIDs: []int64{req.ID},
		Actor:      workflow.Actor{ID: "S1", Name: "Sam", Role: domainwf.RoleSupervisor},
		Decision:   domainwf.DecisionApprove,
	})
	require.NoError(t, err)
	require.Len(t, updated, 1)
	assert.Equal(t, domainwf.StateSupervisorVerified, updated[0].Status)

	history, err := c.Engine().History(ctx, req.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	require.NoError(t, c.Close())

	targets := map[port.EventKind]string{}
	for _, n := range sink.delivered() {
		targets[n.EventKind] = n.TargetUserID
	}
	assert.Equal(t, "S1", targets[port.EventSubmitted])
	assert.Equal(t, "E1", targets[port.EventApproved])
}

func TestNotificationsDisabled(t *testing.T) {
	sink := &recordingSink{}
	cfg := DefaultConfig()
	cfg.Database.Path = filepath.Join(t.TempDir(), "ot.db")
	cfg.Notification.Enabled = false

	c, err := NewContainer(cfg, zaptest.NewLogger(t), WithNotificationSink(sink))
	require.NoError(t, err)
	require.NoError(t, c.Start(context.Background()))

	ctx := context.Background()
	require.NoError(t, c.Repositories().Employees.Upsert(ctx, &entity.EmployeeProfile{
		ID: "E2", Name: "Ben", BasicSalary: 5200, Department: "Finance", Role: "staff", EmploymentType: "contract",
	}))
	date := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)
	res, err := c.Engine().Submit(ctx, workflow.SubmitInput{
		EmployeeID: "E2", OTDate: date, StartTime: "09:00", EndTime: "12:00", Reason: "audit",
		Actor: workflow.Actor{ID: "E2", Role: domainwf.RoleEmployee},
	})
	require.NoError(t, err)
	assert.Equal(t, entity.DayTypeSaturday, res.Request.DayType)

	require.NoError(t, c.Close())
	assert.Empty(t, sink.delivered())
}

func TestPayRetryAfterFormulaFix(t *testing.T) {
	ctx := context.Background()
	c := newStartedContainer(t, &recordingSink{})
	t.Cleanup(func() { _ = c.Close() })

	pay := c.Services().Pay
	require.NoError(t, pay.SetFormula(ctx, &entity.PayFormula{
		DayType: entity.DayTypeWeekday, Expression: "HRP * Hours / (Hours - Hours)", Multiplier: 1,
	}))
	require.NoError(t, c.Repositories().Employees.Upsert(ctx, &entity.EmployeeProfile{
		ID: "E1", Name: "Aina", BasicSalary: 2600, Department: "Operations", Role: "staff", EmploymentType: "permanent",
	}))

	res, err := c.Engine().Submit(ctx, workflow.SubmitInput{
		EmployeeID: "E1",
		OTDate:     time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC),
		StartTime:  "18:00",
		EndTime:    "20:00",
		Reason:     "month-end close",
		Actor:      workflow.Actor{ID: "E1", Role: domainwf.RoleEmployee},
	})
	require.NoError(t, err)
	require.Error(t, res.FormulaError)
	assert.Nil(t, res.Request.OTAmount)

	w := worker.NewPayRetryWorker(worker.PayRetryConfig{}, c.Repositories().Requests, c.Engine(), c.Logger())

	priced, failed, err := w.ProcessBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, priced)
	assert.Equal(t, 1, failed)

	require.NoError(t, pay.SetFormula(ctx, &entity.PayFormula{
		DayType: entity.DayTypeWeekday, Expression: "HRP * Hours * 1.25", Multiplier: 1,
	}))

	priced, _, err = w.ProcessBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, priced)

	got, err := c.Engine().Get(ctx, res.Request.ID)
	require.NoError(t, err)
	require.NotNil(t, got.OTAmount)
	assert.InDelta(t, 31.25, *got.OTAmount, 0.001)
	assert.Empty(t, got.FormulaError)

	priced, failed, err = w.ProcessBatch(ctx)
	require.NoError(t, err)
	assert.Zero(t, priced+failed)
}
