package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/overtime-claims/internal/application/port"
	"github.com/garyjia/overtime-claims/internal/domain/entity"
	"github.com/garyjia/overtime-claims/internal/infrastructure/persistence/sqlite"
)

// FormulaRepository implements port.FormulaRepository
type FormulaRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewFormulaRepository creates a new pay formula repository
func NewFormulaRepository(db *sql.DB, logger *zap.Logger) port.FormulaRepository {
	return &FormulaRepository{
		db:     db,
		logger: logger,
	}
}

// Get returns the formula of a day type, or entity.ErrNotFound
func (r *FormulaRepository) Get(ctx context.Context, dayType entity.DayType) (*entity.PayFormula, error) {
	query := `
		SELECT day_type, expression, multiplier, updated_by, updated_at
		FROM pay_formulas
		WHERE day_type = ?
	`

	f, err := scanFormula(sqlite.Conn(ctx, r.db).QueryRowContext(ctx, query, dayType))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to get pay formula", zap.String("day_type", string(dayType)), zap.Error(err))
		return nil, fmt.Errorf("failed to get pay formula: %w", err)
	}
	return f, nil
}

// List returns every stored formula
func (r *FormulaRepository) List(ctx context.Context) ([]*entity.PayFormula, error) {
	query := `
		SELECT day_type, expression, multiplier, updated_by, updated_at
		FROM pay_formulas
		ORDER BY day_type ASC
	`

	rows, err := sqlite.Conn(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list pay formulas", zap.Error(err))
		return nil, fmt.Errorf("failed to list pay formulas: %w", err)
	}
	defer rows.Close()

	var formulas []*entity.PayFormula
	for rows.Next() {
		f, err := scanFormula(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pay formula: %w", err)
		}
		formulas = append(formulas, f)
	}

	return formulas, rows.Err()
}

// Upsert stores the formula of a day type, replacing the previous one
func (r *FormulaRepository) Upsert(ctx context.Context, f *entity.PayFormula) error {
	query := `
		INSERT INTO pay_formulas (day_type, expression, multiplier, updated_by, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(day_type) DO UPDATE SET
			expression = excluded.expression,
			multiplier = excluded.multiplier,
			updated_by = excluded.updated_by,
			updated_at = excluded.updated_at
	`

	_, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, query,
		f.DayType,
		f.Expression,
		f.Multiplier,
		f.UpdatedBy,
		f.UpdatedAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to upsert pay formula", zap.String("day_type", string(f.DayType)), zap.Error(err))
		return fmt.Errorf("failed to upsert pay formula: %w", err)
	}
	return nil
}

func scanFormula(row rowScanner) (*entity.PayFormula, error) {
	var f entity.PayFormula
	if err := row.Scan(&f.DayType, &f.Expression, &f.Multiplier, &f.UpdatedBy, &f.UpdatedAt); err != nil {
		return nil, err
	}
	f.UpdatedAt = f.UpdatedAt.UTC()
	return &f, nil
}

// Verify interface compliance
var _ port.FormulaRepository = (*FormulaRepository)(nil)
