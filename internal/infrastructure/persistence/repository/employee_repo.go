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

// EmployeeRepository implements port.EmployeeRepository.
// Profiles are maintained by HR administration; Upsert exists for seeding.
type EmployeeRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewEmployeeRepository creates a new employee repository
func NewEmployeeRepository(db *sql.DB, logger *zap.Logger) *EmployeeRepository {
	return &EmployeeRepository{
		db:     db,
		logger: logger,
	}
}

// GetByID returns the profile, or entity.ErrNotFound
func (r *EmployeeRepository) GetByID(ctx context.Context, id string) (*entity.EmployeeProfile, error) {
	query := `
		SELECT id, name, basic_salary, department, role, employment_type, supervisor_id
		FROM employees
		WHERE id = ?
	`

	var (
		p          entity.EmployeeProfile
		supervisor sql.NullString
	)
	err := sqlite.Conn(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&p.ID,
		&p.Name,
		&p.BasicSalary,
		&p.Department,
		&p.Role,
		&p.EmploymentType,
		&supervisor,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("employee %q: %w", id, entity.ErrNotFound)
	}
	if err != nil {
		r.logger.Error("Failed to get employee", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}

	p.SupervisorID = stringPtr(supervisor)
	return &p, nil
}

// Upsert inserts or replaces a profile
func (r *EmployeeRepository) Upsert(ctx context.Context, p *entity.EmployeeProfile) error {
	query := `
		INSERT INTO employees (id, name, basic_salary, department, role, employment_type, supervisor_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			basic_salary = excluded.basic_salary,
			department = excluded.department,
			role = excluded.role,
			employment_type = excluded.employment_type,
			supervisor_id = excluded.supervisor_id
	`

	_, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, query,
		p.ID,
		p.Name,
		p.BasicSalary,
		p.Department,
		p.Role,
		p.EmploymentType,
		nullString(p.SupervisorID),
	)
	if err != nil {
		r.logger.Error("Failed to upsert employee", zap.String("id", p.ID), zap.Error(err))
		return fmt.Errorf("failed to upsert employee: %w", err)
	}
	return nil
}

// Verify interface compliance
var _ port.EmployeeRepository = (*EmployeeRepository)(nil)
