package main

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/garyjia/overtime-claims/internal/application/workflow"
	"github.com/garyjia/overtime-claims/internal/container"
	"github.com/garyjia/overtime-claims/internal/domain/entity"
	"github.com/garyjia/overtime-claims/internal/domain/policy"
	domainwf "github.com/garyjia/overtime-claims/internal/domain/workflow"
)

func TestSeedFile(t *testing.T) {
	seed, err := loadSeedFile(filepath.Join("..", "..", "configs", "seed.yaml"))
	require.NoError(t, err)

	require.Len(t, seed.Employees, 3)
	assert.Equal(t, "S1", seed.Employees[1].SupervisorID)
	assert.Equal(t, 2600.0, seed.Employees[1].BasicSalary)
	require.Len(t, seed.Thresholds, 2)
	require.NotNil(t, seed.Thresholds[0].DailyLimit)
	assert.Equal(t, 4.0, *seed.Thresholds[0].DailyLimit)
	assert.Nil(t, seed.Thresholds[0].MaxAmount)
	assert.Equal(t, []string{"staff"}, seed.EligibilityRules[0].Roles)
}

func TestApply(t *testing.T) {
	ctx := context.Background()

	cfg := container.DefaultConfig()
	cfg.Database.Path = filepath.Join(t.TempDir(), "seed.db")
	cfg.Notification.Enabled = false
	c, err := container.NewContainer(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, c.Start(ctx))
	t.Cleanup(func() { _ = c.Close() })

	seed, err := loadSeedFile(filepath.Join("..", "..", "configs", "seed.yaml"))
	require.NoError(t, err)

	res, err := apply(ctx, c, seed)
	require.NoError(t, err)
	assert.Equal(t, &seedResult{Employees: 3, Holidays: 2, Rules: 1, Thresholds: 2, Formulas: 1}, res)

	// Rules and thresholds are not duplicated on a second run
	res, err = apply(ctx, c, seed)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Rules)
	assert.Equal(t, 0, res.Thresholds)

	emp, err := c.Repositories().Employees.GetByID(ctx, "E1")
	require.NoError(t, err)
	require.NotNil(t, emp.SupervisorID)
	assert.Equal(t, "S1", *emp.SupervisorID)

	labourDay, err := entity.ParseDate("2024-05-01")
	require.NoError(t, err)
	holiday, err := c.Repositories().Holidays.IsHoliday(ctx, labourDay)
	require.NoError(t, err)
	assert.True(t, holiday)

	f, err := c.Repositories().Formulas.Get(ctx, entity.DayTypeWeekday)
	require.NoError(t, err)
	assert.Equal(t, "seed", f.UpdatedBy)

	// The seeded daily cap blocks a five hour claim
	_, err = c.Engine().Submit(ctx, workflow.SubmitInput{
		EmployeeID: "E1",
		OTDate:     labourDay,
		StartTime:  "09:00",
		EndTime:    "14:00",
		Reason:     "stock take",
		Actor:      workflow.Actor{ID: "E1", Role: domainwf.RoleEmployee},
	})
	assert.True(t, errors.Is(err, policy.ErrThresholdExceeded))

	// S1 earns above the eligible band
	_, err = c.Engine().Submit(ctx, workflow.SubmitInput{
		EmployeeID: "S1",
		OTDate:     labourDay,
		StartTime:  "09:00",
		EndTime:    "10:00",
		Reason:     "stock take",
		Actor:      workflow.Actor{ID: "S1", Role: domainwf.RoleEmployee},
	})
	assert.True(t, errors.Is(err, policy.ErrNotEligible))
}

func TestApplyRejectsBadFormula(t *testing.T) {
	ctx := context.Background()

	cfg := container.DefaultConfig()
	cfg.Database.Path = filepath.Join(t.TempDir(), "seed.db")
	c, err := container.NewContainer(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, c.Start(ctx))
	t.Cleanup(func() { _ = c.Close() })

	_, err = apply(ctx, c, &seedFile{Formulas: []formulaSeed{{DayType: "sunday", Expression: "HRP *"}}})
	assert.Error(t, err)
}
