package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/overtime-claims/internal/application/port"
	"github.com/garyjia/overtime-claims/internal/domain/entity"
	"github.com/garyjia/overtime-claims/internal/infrastructure/persistence/sqlite"
)

// EligibilityRuleRepository implements port.EligibilityRuleRepository
type EligibilityRuleRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewEligibilityRuleRepository creates a new eligibility rule repository
func NewEligibilityRuleRepository(db *sql.DB, logger *zap.Logger) *EligibilityRuleRepository {
	return &EligibilityRuleRepository{db: db, logger: logger}
}

// Create inserts a rule and sets its ID
func (r *EligibilityRuleRepository) Create(ctx context.Context, rule *entity.EligibilityRule) error {
	departments, err := encodeSet(rule.Departments)
	if err != nil {
		return err
	}
	roles, err := encodeSet(rule.Roles)
	if err != nil {
		return err
	}
	types, err := encodeSet(rule.EmploymentTypes)
	if err != nil {
		return err
	}

	result, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, `
		INSERT INTO eligibility_rules (name, min_salary, max_salary, departments, roles, employment_types, active)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rule.Name,
		nullFloat(rule.MinSalary),
		nullFloat(rule.MaxSalary),
		departments,
		roles,
		types,
		rule.Active,
	)
	if err != nil {
		r.logger.Error("Failed to create eligibility rule", zap.String("name", rule.Name), zap.Error(err))
		return fmt.Errorf("failed to create eligibility rule: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	rule.ID = id
	return nil
}

// ListActive returns the active rules ordered by ID
func (r *EligibilityRuleRepository) ListActive(ctx context.Context) ([]*entity.EligibilityRule, error) {
	rows, err := sqlite.Conn(ctx, r.db).QueryContext(ctx, `
		SELECT id, name, min_salary, max_salary, departments, roles, employment_types, active
		FROM eligibility_rules
		WHERE active = 1
		ORDER BY id ASC`)
	if err != nil {
		r.logger.Error("Failed to list eligibility rules", zap.Error(err))
		return nil, fmt.Errorf("failed to list eligibility rules: %w", err)
	}
	defer rows.Close()

	var rules []*entity.EligibilityRule
	for rows.Next() {
		var (
			rule                         entity.EligibilityRule
			minSalary, maxSalary         sql.NullFloat64
			departments, roles, empTypes string
		)
		if err := rows.Scan(&rule.ID, &rule.Name, &minSalary, &maxSalary, &departments, &roles, &empTypes, &rule.Active); err != nil {
			return nil, fmt.Errorf("failed to scan eligibility rule: %w", err)
		}
		rule.MinSalary, rule.MaxSalary = floatPtr(minSalary), floatPtr(maxSalary)
		if rule.Departments, err = decodeSet(departments); err != nil {
			return nil, err
		}
		if rule.Roles, err = decodeSet(roles); err != nil {
			return nil, err
		}
		if rule.EmploymentTypes, err = decodeSet(empTypes); err != nil {
			return nil, err
		}
		rules = append(rules, &rule)
	}

	return rules, rows.Err()
}

// ThresholdRepository implements port.ThresholdRepository
type ThresholdRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewThresholdRepository creates a new approval threshold repository
func NewThresholdRepository(db *sql.DB, logger *zap.Logger) *ThresholdRepository {
	return &ThresholdRepository{db: db, logger: logger}
}

// Create inserts a threshold and sets its ID
func (r *ThresholdRepository) Create(ctx context.Context, t *entity.ApprovalThreshold) error {
	departments, err := encodeSet(t.Departments)
	if err != nil {
		return err
	}
	roles, err := encodeSet(t.Roles)
	if err != nil {
		return err
	}

	result, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, `
		INSERT INTO approval_thresholds (
			name, daily_limit, weekly_limit, monthly_limit, max_amount,
			auto_block, departments, roles, active
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.Name,
		nullFloat(t.DailyLimit),
		nullFloat(t.WeeklyLimit),
		nullFloat(t.MonthlyLimit),
		nullFloat(t.MaxAmount),
		t.AutoBlock,
		departments,
		roles,
		t.Active,
	)
	if err != nil {
		r.logger.Error("Failed to create threshold", zap.String("name", t.Name), zap.Error(err))
		return fmt.Errorf("failed to create threshold: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	t.ID = id
	return nil
}

// ListActive returns the active thresholds ordered by ID
func (r *ThresholdRepository) ListActive(ctx context.Context) ([]*entity.ApprovalThreshold, error) {
	rows, err := sqlite.Conn(ctx, r.db).QueryContext(ctx, `
		SELECT id, name, daily_limit, weekly_limit, monthly_limit, max_amount,
			auto_block, departments, roles, active
		FROM approval_thresholds
		WHERE active = 1
		ORDER BY id ASC`)
	if err != nil {
		r.logger.Error("Failed to list thresholds", zap.Error(err))
		return nil, fmt.Errorf("failed to list thresholds: %w", err)
	}
	defer rows.Close()

	var thresholds []*entity.ApprovalThreshold
	for rows.Next() {
		var (
			t                          entity.ApprovalThreshold
			daily, weekly, monthly, mx sql.NullFloat64
			departments, roles         string
		)
		err := rows.Scan(&t.ID, &t.Name, &daily, &weekly, &monthly, &mx, &t.AutoBlock, &departments, &roles, &t.Active)
		if err != nil {
			return nil, fmt.Errorf("failed to scan threshold: %w", err)
		}
		t.DailyLimit, t.WeeklyLimit = floatPtr(daily), floatPtr(weekly)
		t.MonthlyLimit, t.MaxAmount = floatPtr(monthly), floatPtr(mx)
		if t.Departments, err = decodeSet(departments); err != nil {
			return nil, err
		}
		if t.Roles, err = decodeSet(roles); err != nil {
			return nil, err
		}
		thresholds = append(thresholds, &t)
	}

	return thresholds, rows.Err()
}

// Verify interface compliance
var (
	_ port.EligibilityRuleRepository = (*EligibilityRuleRepository)(nil)
	_ port.ThresholdRepository       = (*ThresholdRepository)(nil)
)
