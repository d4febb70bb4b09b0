package policy

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/overtime-claims/internal/domain/entity"
)

// Usage is an employee's cumulative overtime for the periods containing a
// request, the request itself included
type Usage struct {
	DayHours    float64
	WeekHours   float64
	MonthHours  float64
	MonthAmount float64
}

// ThresholdOutcome is the result of checking every applicable threshold
type ThresholdOutcome struct {
	Violations map[string]entity.Violation
	// Blocking is the first breach of an auto-block threshold, if any
	Blocking *ThresholdExceededError
}

// Applies reports whether a threshold is scoped to the employee
func Applies(t *entity.ApprovalThreshold, profile *entity.EmployeeProfile) bool {
	if t == nil || !t.Active || profile == nil {
		return false
	}
	return inSet(t.Departments, profile.Department) && inSet(t.Roles, profile.Role)
}

// CheckThresholds compares usage against each applicable threshold.
// Breaches are recorded under "threshold-<id>:<type>" keys.
func CheckThresholds(thresholds []*entity.ApprovalThreshold, profile *entity.EmployeeProfile, usage Usage) ThresholdOutcome {
	out := ThresholdOutcome{Violations: make(map[string]entity.Violation)}

	for _, t := range thresholds {
		if !Applies(t, profile) {
			continue
		}
		checks := []struct {
			typ    entity.ViolationType
			limit  *float64
			actual float64
		}{
			{entity.ViolationDailyHours, t.DailyLimit, usage.DayHours},
			{entity.ViolationWeeklyHours, t.WeeklyLimit, usage.WeekHours},
			{entity.ViolationMonthlyHours, t.MonthlyLimit, usage.MonthHours},
			{entity.ViolationMaxAmount, t.MaxAmount, usage.MonthAmount},
		}
		for _, c := range checks {
			if c.limit == nil || !exceeds(c.actual, *c.limit) {
				continue
			}
			v := entity.Violation{Type: c.typ, Limit: *c.limit, Actual: round2(c.actual)}
			out.Violations[t.ViolationKey(c.typ)] = v
			if t.AutoBlock && out.Blocking == nil {
				out.Blocking = &ThresholdExceededError{
					ThresholdID:   t.ID,
					ThresholdName: t.Name,
					Type:          c.typ,
					Limit:         v.Limit,
					Actual:        v.Actual,
				}
			}
		}
	}

	return out
}

// exceeds compares at cent precision so float noise never trips a limit
func exceeds(actual, limit float64) bool {
	return decimal.NewFromFloat(actual).Round(2).GreaterThan(decimal.NewFromFloat(limit).Round(2))
}

func round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// WeekBounds returns the ISO week [Monday, next Monday) containing date
func WeekBounds(date time.Time) (time.Time, time.Time) {
	d := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(d.Weekday()) + 6) % 7
	start := d.AddDate(0, 0, -offset)
	return start, start.AddDate(0, 0, 7)
}

// MonthBounds returns [first of month, first of next month) containing date
func MonthBounds(date time.Time) (time.Time, time.Time) {
	start := time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}
