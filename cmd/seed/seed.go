package main

import (
	"context"
	"fmt"

	"github.com/spf13/viper"

	"github.com/garyjia/overtime-claims/internal/container"
	"github.com/garyjia/overtime-claims/internal/domain/entity"
)

// seedFile is the reference data HR administration maintains outside the engine
type seedFile struct {
	Employees        []employeeSeed  `mapstructure:"employees"`
	Holidays         []holidaySeed   `mapstructure:"holidays"`
	EligibilityRules []ruleSeed      `mapstructure:"eligibility_rules"`
	Thresholds       []thresholdSeed `mapstructure:"thresholds"`
	Formulas         []formulaSeed   `mapstructure:"formulas"`
}

type employeeSeed struct {
	ID             string  `mapstructure:"id"`
	Name           string  `mapstructure:"name"`
	BasicSalary    float64 `mapstructure:"basic_salary"`
	Department     string  `mapstructure:"department"`
	Role           string  `mapstructure:"role"`
	EmploymentType string  `mapstructure:"employment_type"`
	SupervisorID   string  `mapstructure:"supervisor_id"`
}

type holidaySeed struct {
	Date string `mapstructure:"date"`
	Name string `mapstructure:"name"`
}

type ruleSeed struct {
	Name            string   `mapstructure:"name"`
	MinSalary       *float64 `mapstructure:"min_salary"`
	MaxSalary       *float64 `mapstructure:"max_salary"`
	Departments     []string `mapstructure:"departments"`
	Roles           []string `mapstructure:"roles"`
	EmploymentTypes []string `mapstructure:"employment_types"`
}

type thresholdSeed struct {
	Name         string   `mapstructure:"name"`
	DailyLimit   *float64 `mapstructure:"daily_limit"`
	WeeklyLimit  *float64 `mapstructure:"weekly_limit"`
	MonthlyLimit *float64 `mapstructure:"monthly_limit"`
	MaxAmount    *float64 `mapstructure:"max_amount"`
	AutoBlock    bool     `mapstructure:"auto_block"`
	Departments  []string `mapstructure:"departments"`
	Roles        []string `mapstructure:"roles"`
}

type formulaSeed struct {
	DayType    string  `mapstructure:"day_type"`
	Expression string  `mapstructure:"expression"`
	Multiplier float64 `mapstructure:"multiplier"`
}

// seedResult counts what was written
type seedResult struct {
	Employees  int
	Holidays   int
	Rules      int
	Thresholds int
	Formulas   int
}

// loadSeedFile reads a YAML seed file
func loadSeedFile(path string) (*seedFile, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var seed seedFile
	if err := v.Unmarshal(&seed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal seed file: %w", err)
	}
	return &seed, nil
}

// Apply writes the seed data. Employees, holidays and formulas are upserted;
// rules and thresholds are only created when no active one has the same name.
func apply(ctx context.Context, c *container.Container, seed *seedFile) (*seedResult, error) {
	repos := c.Repositories()
	res := &seedResult{}

	for _, e := range seed.Employees {
		p := &entity.EmployeeProfile{
			ID:             e.ID,
			Name:           e.Name,
			BasicSalary:    e.BasicSalary,
			Department:     e.Department,
			Role:           e.Role,
			EmploymentType: e.EmploymentType,
		}
		if e.SupervisorID != "" {
			sup := e.SupervisorID
			p.SupervisorID = &sup
		}
		if err := repos.Employees.Upsert(ctx, p); err != nil {
			return res, fmt.Errorf("employee %s: %w", e.ID, err)
		}
		res.Employees++
	}

	for _, h := range seed.Holidays {
		date, err := entity.ParseDate(h.Date)
		if err != nil {
			return res, fmt.Errorf("holiday %q: %w", h.Name, err)
		}
		if err := repos.Holidays.Upsert(ctx, &entity.Holiday{Date: date, Name: h.Name}); err != nil {
			return res, fmt.Errorf("holiday %s: %w", h.Date, err)
		}
		res.Holidays++
	}

	rules, err := repos.EligibilityRules.ListActive(ctx)
	if err != nil {
		return res, err
	}
	ruleNames := make(map[string]bool, len(rules))
	for _, r := range rules {
		ruleNames[r.Name] = true
	}
	for _, r := range seed.EligibilityRules {
		if ruleNames[r.Name] {
			continue
		}
		if err := repos.EligibilityRules.Create(ctx, &entity.EligibilityRule{
			Name:            r.Name,
			MinSalary:       r.MinSalary,
			MaxSalary:       r.MaxSalary,
			Departments:     r.Departments,
			Roles:           r.Roles,
			EmploymentTypes: r.EmploymentTypes,
			Active:          true,
		}); err != nil {
			return res, fmt.Errorf("eligibility rule %q: %w", r.Name, err)
		}
		res.Rules++
	}

	thresholds, err := repos.Thresholds.ListActive(ctx)
	if err != nil {
		return res, err
	}
	thresholdNames := make(map[string]bool, len(thresholds))
	for _, t := range thresholds {
		thresholdNames[t.Name] = true
	}
	for _, t := range seed.Thresholds {
		if thresholdNames[t.Name] {
			continue
		}
		if err := repos.Thresholds.Create(ctx, &entity.ApprovalThreshold{
			Name:         t.Name,
			DailyLimit:   t.DailyLimit,
			WeeklyLimit:  t.WeeklyLimit,
			MonthlyLimit: t.MonthlyLimit,
			MaxAmount:    t.MaxAmount,
			AutoBlock:    t.AutoBlock,
			Departments:  t.Departments,
			Roles:        t.Roles,
			Active:       true,
		}); err != nil {
			return res, fmt.Errorf("threshold %q: %w", t.Name, err)
		}
		res.Thresholds++
	}

	for _, f := range seed.Formulas {
		multiplier := f.Multiplier
		if multiplier == 0 {
			multiplier = 1
		}
		if err := c.Services().Pay.SetFormula(ctx, &entity.PayFormula{
			DayType:    entity.DayType(f.DayType),
			Expression: f.Expression,
			Multiplier: multiplier,
			UpdatedBy:  "seed",
		}); err != nil {
			return res, fmt.Errorf("formula %s: %w", f.DayType, err)
		}
		res.Formulas++
	}

	return res, nil
}
