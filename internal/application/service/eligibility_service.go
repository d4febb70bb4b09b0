package service

import (
	"context"
	"fmt"

	"github.com/garyjia/overtime-claims/internal/application/port"
	"github.com/garyjia/overtime-claims/internal/domain/entity"
	"github.com/garyjia/overtime-claims/internal/domain/policy"
)

// EligibilityService gates who may submit overtime
type EligibilityService interface {
	// Check returns a NotEligibleError when no active rule admits the employee
	Check(ctx context.Context, profile *entity.EmployeeProfile) error
}

type eligibilityServiceImpl struct {
	ruleRepo port.EligibilityRuleRepository
	logger   Logger
}

// NewEligibilityService creates a new EligibilityService
func NewEligibilityService(ruleRepo port.EligibilityRuleRepository, logger Logger) EligibilityService {
	return &eligibilityServiceImpl{ruleRepo: ruleRepo, logger: orNop(logger)}
}

func (s *eligibilityServiceImpl) Check(ctx context.Context, profile *entity.EmployeeProfile) error {
	rules, err := s.ruleRepo.ListActive(ctx)
	if err != nil {
		s.logger.Error("Failed to load eligibility rules", "error", err)
		return fmt.Errorf("load eligibility rules: %w", err)
	}

	res := policy.EvaluateEligibility(profile, rules)
	if !res.Eligible {
		s.logger.Info("Employee not eligible for overtime", "employee_id", profile.ID, "rules", len(rules))
		return &policy.NotEligibleError{EmployeeID: profile.ID}
	}
	return nil
}
