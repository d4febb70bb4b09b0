package service

import (
	"context"
	"fmt"

	"github.com/garyjia/overtime-claims/internal/application/port"
	"github.com/garyjia/overtime-claims/internal/domain/entity"
	"github.com/garyjia/overtime-claims/internal/domain/policy"
)

// ThresholdService annotates requests with threshold violations
type ThresholdService interface {
	// Check evaluates req on top of the employee's other non-rejected requests.
	// req.ID is left out of the stored totals, so it can be used on saved requests.
	Check(ctx context.Context, profile *entity.EmployeeProfile, req *entity.OvertimeRequest) (policy.ThresholdOutcome, error)
}

type thresholdServiceImpl struct {
	thresholdRepo port.ThresholdRepository
	requestRepo   port.RequestRepository
	logger        Logger
}

// NewThresholdService creates a new ThresholdService
func NewThresholdService(thresholdRepo port.ThresholdRepository, requestRepo port.RequestRepository, logger Logger) ThresholdService {
	return &thresholdServiceImpl{
		thresholdRepo: thresholdRepo,
		requestRepo:   requestRepo,
		logger:        orNop(logger),
	}
}

func (s *thresholdServiceImpl) Check(ctx context.Context, profile *entity.EmployeeProfile, req *entity.OvertimeRequest) (policy.ThresholdOutcome, error) {
	thresholds, err := s.thresholdRepo.ListActive(ctx)
	if err != nil {
		s.logger.Error("Failed to load thresholds", "error", err)
		return policy.ThresholdOutcome{}, fmt.Errorf("load thresholds: %w", err)
	}

	applicable := thresholds[:0:0]
	for _, t := range thresholds {
		if policy.Applies(t, profile) {
			applicable = append(applicable, t)
		}
	}
	if len(applicable) == 0 {
		return policy.ThresholdOutcome{Violations: map[string]entity.Violation{}}, nil
	}

	usage, err := s.usage(ctx, req)
	if err != nil {
		return policy.ThresholdOutcome{}, err
	}

	out := policy.CheckThresholds(applicable, profile, usage)
	if len(out.Violations) > 0 {
		s.logger.Info("Threshold violations recorded",
			"employee_id", req.EmployeeID,
			"ot_date", entity.FormatDate(req.OTDate),
			"violations", len(out.Violations),
			"blocking", out.Blocking != nil,
		)
	}
	return out, nil
}

func (s *thresholdServiceImpl) usage(ctx context.Context, req *entity.OvertimeRequest) (policy.Usage, error) {
	amount := 0.0
	if req.OTAmount != nil {
		amount = *req.OTAmount
	}

	dayStart := req.OTDate
	dayEnd := dayStart.AddDate(0, 0, 1)
	weekStart, weekEnd := policy.WeekBounds(req.OTDate)
	monthStart, monthEnd := policy.MonthBounds(req.OTDate)

	dayHours, _, err := s.requestRepo.SumUsage(ctx, req.EmployeeID, dayStart, dayEnd, req.ID)
	if err != nil {
		return policy.Usage{}, fmt.Errorf("sum daily usage: %w", err)
	}
	weekHours, _, err := s.requestRepo.SumUsage(ctx, req.EmployeeID, weekStart, weekEnd, req.ID)
	if err != nil {
		return policy.Usage{}, fmt.Errorf("sum weekly usage: %w", err)
	}
	monthHours, monthAmount, err := s.requestRepo.SumUsage(ctx, req.EmployeeID, monthStart, monthEnd, req.ID)
	if err != nil {
		return policy.Usage{}, fmt.Errorf("sum monthly usage: %w", err)
	}

	return policy.Usage{
		DayHours:    dayHours + req.TotalHours,
		WeekHours:   weekHours + req.TotalHours,
		MonthHours:  monthHours + req.TotalHours,
		MonthAmount: monthAmount + amount,
	}, nil
}
