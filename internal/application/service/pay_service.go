package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/overtime-claims/internal/application/port"
	"github.com/garyjia/overtime-claims/internal/domain/entity"
	"github.com/garyjia/overtime-claims/internal/domain/formula"
)

// PaySettings are the organisation-wide pay constants
type PaySettings struct {
	DefaultFormula string
	WorkingDays    float64
	HoursPerDay    float64
	Multipliers    map[entity.DayType]float64
	RoundPlaces    int32
}

// DefaultPaySettings returns 26 working days, 8 hours a day and unit
// multipliers; day-type premiums normally live in the stored formulas
func DefaultPaySettings() PaySettings {
	return PaySettings{
		DefaultFormula: "HRP * Hours * 1.5",
		WorkingDays:    26,
		HoursPerDay:    8,
		Multipliers: map[entity.DayType]float64{
			entity.DayTypeWeekday:       1,
			entity.DayTypeSaturday:      1,
			entity.DayTypeSunday:        1,
			entity.DayTypePublicHoliday: 1,
		},
		RoundPlaces: 2,
	}
}

// EvaluationRequest is the input of the formula evaluation boundary
type EvaluationRequest struct {
	Formula     string         `json:"formula"`
	BasicSalary float64        `json:"basic_salary"`
	Hours       float64        `json:"hours"`
	DayType     entity.DayType `json:"day_type"`
}

// EvaluationResult is the output of the formula evaluation boundary
type EvaluationResult struct {
	Success  bool     `json:"success"`
	ORP      *float64 `json:"orp,omitempty"`
	HRP      *float64 `json:"hrp,omitempty"`
	OTAmount *float64 `json:"ot_amount,omitempty"`
	Error    string   `json:"error,omitempty"`

	err error
}

// Err returns the typed error behind a failed evaluation
func (r EvaluationResult) Err() error {
	return r.err
}

// PayService turns salary, hours and day type into ORP, HRP and an OT amount
type PayService interface {
	// Evaluate is stateless: the same request always yields the same result
	Evaluate(req EvaluationRequest) EvaluationResult

	// Validate checks formula syntax for authoring feedback
	Validate(expr string) formula.SyntaxResult

	// Compute uses the stored formula for the day type, or the default
	Compute(ctx context.Context, basicSalary, hours float64, dayType entity.DayType) EvaluationResult

	// SetFormula stores a formula after validating it
	SetFormula(ctx context.Context, f *entity.PayFormula) error

	ListFormulas(ctx context.Context) ([]*entity.PayFormula, error)
}

type payServiceImpl struct {
	formulaRepo port.FormulaRepository
	settings    PaySettings
	logger      Logger
	now         func() time.Time
}

// NewPayService creates a new PayService
func NewPayService(formulaRepo port.FormulaRepository, settings PaySettings, logger Logger) PayService {
	if settings.WorkingDays <= 0 {
		settings.WorkingDays = 26
	}
	if settings.HoursPerDay <= 0 {
		settings.HoursPerDay = 8
	}
	if settings.RoundPlaces <= 0 {
		settings.RoundPlaces = 2
	}
	if strings.TrimSpace(settings.DefaultFormula) == "" {
		settings.DefaultFormula = DefaultPaySettings().DefaultFormula
	}
	return &payServiceImpl{
		formulaRepo: formulaRepo,
		settings:    settings,
		logger:      orNop(logger),
		now:         time.Now,
	}
}

func (s *payServiceImpl) Evaluate(req EvaluationRequest) EvaluationResult {
	if !req.DayType.IsValid() {
		return failed(entity.NewValidationError("day_type", "unknown day type %q", req.DayType))
	}
	expr := req.Formula
	if strings.TrimSpace(expr) == "" {
		expr = s.settings.DefaultFormula
	}
	return s.evaluate(expr, s.multiplier(req.DayType), req.BasicSalary, req.Hours)
}

func (s *payServiceImpl) Validate(expr string) formula.SyntaxResult {
	return formula.ValidateSyntax(expr)
}

func (s *payServiceImpl) Compute(ctx context.Context, basicSalary, hours float64, dayType entity.DayType) EvaluationResult {
	expr := s.settings.DefaultFormula
	multiplier := s.multiplier(dayType)

	if s.formulaRepo != nil {
		stored, err := s.formulaRepo.Get(ctx, dayType)
		switch {
		case err == nil && stored != nil:
			expr = stored.Expression
			multiplier = stored.Multiplier
		case err != nil && !errors.Is(err, entity.ErrNotFound):
			s.logger.Error("Failed to load pay formula, using default", "day_type", dayType, "error", err)
		}
	}

	return s.evaluate(expr, multiplier, basicSalary, hours)
}

func (s *payServiceImpl) SetFormula(ctx context.Context, f *entity.PayFormula) error {
	if f == nil || !f.DayType.IsValid() {
		return entity.NewValidationError("day_type", "unknown day type")
	}
	if f.Multiplier <= 0 || math.IsInf(f.Multiplier, 0) || math.IsNaN(f.Multiplier) {
		return entity.NewValidationError("multiplier", "must be a positive number")
	}
	if _, err := formula.Compile(f.Expression); err != nil {
		return err
	}
	f.UpdatedAt = s.now()

	if err := s.formulaRepo.Upsert(ctx, f); err != nil {
		s.logger.Error("Failed to store pay formula", "day_type", f.DayType, "error", err)
		return fmt.Errorf("store formula: %w", err)
	}

	s.logger.Info("Pay formula updated", "day_type", f.DayType, "updated_by", f.UpdatedBy)
	return nil
}

func (s *payServiceImpl) ListFormulas(ctx context.Context) ([]*entity.PayFormula, error) {
	return s.formulaRepo.List(ctx)
}

func (s *payServiceImpl) multiplier(dayType entity.DayType) float64 {
	if m, ok := s.settings.Multipliers[dayType]; ok && m > 0 {
		return m
	}
	return 1
}

// evaluate feeds unrounded rates to the formula and rounds only the outputs
func (s *payServiceImpl) evaluate(expr string, multiplier, basic, hours float64) EvaluationResult {
	if basic < 0 || math.IsNaN(basic) || math.IsInf(basic, 0) {
		return failed(entity.NewValidationError("basic_salary", "must be a non-negative number"))
	}
	if hours <= 0 || math.IsNaN(hours) || math.IsInf(hours, 0) {
		return failed(entity.NewValidationError("hours", "must be positive"))
	}

	orp := basic / s.settings.WorkingDays
	hrp := orp / s.settings.HoursPerDay

	prog, err := formula.Compile(expr)
	if err != nil {
		return failed(err)
	}
	raw, err := prog.Eval(formula.Vars{Hours: hours, ORP: orp, HRP: hrp, Basic: basic})
	if err != nil {
		return failed(err)
	}

	amount := decimal.NewFromFloat(raw).Mul(decimal.NewFromFloat(multiplier))

	return EvaluationResult{
		Success:  true,
		ORP:      s.round(decimal.NewFromFloat(orp)),
		HRP:      s.round(decimal.NewFromFloat(hrp)),
		OTAmount: s.round(amount),
	}
}

func (s *payServiceImpl) round(d decimal.Decimal) *float64 {
	f, _ := d.Round(s.settings.RoundPlaces).Float64()
	return &f
}

func failed(err error) EvaluationResult {
	return EvaluationResult{Success: false, Error: err.Error(), err: err}
}
