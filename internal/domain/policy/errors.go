package policy

import (
	"errors"
	"fmt"

	"github.com/garyjia/overtime-claims/internal/domain/entity"
)

var (
	// ErrNotEligible is returned when no active eligibility rule matches the employee
	ErrNotEligible = errors.New("employee is not eligible for overtime")

	// ErrThresholdExceeded is returned when an auto-block threshold is breached
	ErrThresholdExceeded = errors.New("threshold exceeded")
)

// ThresholdExceededError carries the specific limit that blocked a submission
type ThresholdExceededError struct {
	ThresholdID   int64
	ThresholdName string
	Type          entity.ViolationType
	Limit         float64
	Actual        float64
}

func (e *ThresholdExceededError) Error() string {
	return fmt.Sprintf("threshold %q (%d) exceeded: %s %.2f > %.2f", e.ThresholdName, e.ThresholdID, e.Type, e.Actual, e.Limit)
}

func (e *ThresholdExceededError) Unwrap() error {
	return ErrThresholdExceeded
}

// NotEligibleError names the employee that failed the eligibility gate.
// It also satisfies errors.Is(err, entity.ErrValidation).
type NotEligibleError struct {
	EmployeeID string
}

func (e *NotEligibleError) Error() string {
	return fmt.Sprintf("employee %s is not eligible for overtime", e.EmployeeID)
}

func (e *NotEligibleError) Is(target error) bool {
	return target == ErrNotEligible || target == entity.ErrValidation
}
