package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/overtime-claims/internal/application/port"
	"github.com/garyjia/overtime-claims/internal/domain/entity"
	"github.com/garyjia/overtime-claims/internal/infrastructure/persistence/sqlite"
)

// HolidayRepository is the sqlite-backed holiday calendar
type HolidayRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewHolidayRepository creates a new holiday calendar repository
func NewHolidayRepository(db *sql.DB, logger *zap.Logger) *HolidayRepository {
	return &HolidayRepository{
		db:     db,
		logger: logger,
	}
}

// IsHoliday implements port.HolidayCalendar
func (r *HolidayRepository) IsHoliday(ctx context.Context, date time.Time) (bool, error) {
	var n int
	err := sqlite.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM holidays WHERE date = ?`,
		entity.FormatDate(date),
	).Scan(&n)
	if err != nil {
		r.logger.Error("Failed to look up holiday", zap.Time("date", date), zap.Error(err))
		return false, fmt.Errorf("failed to look up holiday: %w", err)
	}
	return n > 0, nil
}

// Upsert records a public holiday
func (r *HolidayRepository) Upsert(ctx context.Context, h *entity.Holiday) error {
	_, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, `
		INSERT INTO holidays (date, name) VALUES (?, ?)
		ON CONFLICT(date) DO UPDATE SET name = excluded.name`,
		entity.FormatDate(h.Date),
		h.Name,
	)
	if err != nil {
		r.logger.Error("Failed to upsert holiday", zap.Time("date", h.Date), zap.Error(err))
		return fmt.Errorf("failed to upsert holiday: %w", err)
	}
	return nil
}

// Verify interface compliance
var _ port.HolidayCalendar = (*HolidayRepository)(nil)
