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

// ResubmissionRepository implements port.ResubmissionRepository
type ResubmissionRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewResubmissionRepository creates a new resubmission history repository
func NewResubmissionRepository(db *sql.DB, logger *zap.Logger) port.ResubmissionRepository {
	return &ResubmissionRepository{
		db:     db,
		logger: logger,
	}
}

// Create links an original request to its successor.
// The schema allows one successor per original.
func (r *ResubmissionRepository) Create(ctx context.Context, e *entity.ResubmissionHistoryEntry) error {
	query := `
		INSERT INTO resubmission_history (
			original_request_id, successor_request_id, rejection_stage,
			rejection_reason, resubmitted_by, created_at
		) VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, query,
		e.OriginalRequestID,
		e.SuccessorRequestID,
		e.RejectionStage,
		e.RejectionReason,
		e.ResubmittedBy,
		e.CreatedAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to create resubmission entry",
			zap.Int64("original_request_id", e.OriginalRequestID),
			zap.Error(err))
		return fmt.Errorf("failed to create resubmission entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	e.ID = id
	return nil
}

// GetByOriginal returns the entry whose original is id, or entity.ErrNotFound
func (r *ResubmissionRepository) GetByOriginal(ctx context.Context, id int64) (*entity.ResubmissionHistoryEntry, error) {
	return r.getOne(ctx, "original_request_id", id)
}

// GetBySuccessor returns the entry whose successor is id, or entity.ErrNotFound
func (r *ResubmissionRepository) GetBySuccessor(ctx context.Context, id int64) (*entity.ResubmissionHistoryEntry, error) {
	return r.getOne(ctx, "successor_request_id", id)
}

func (r *ResubmissionRepository) getOne(ctx context.Context, column string, id int64) (*entity.ResubmissionHistoryEntry, error) {
	query := `
		SELECT id, original_request_id, successor_request_id, rejection_stage,
			rejection_reason, resubmitted_by, created_at
		FROM resubmission_history
		WHERE ` + column + ` = ?
	`

	var e entity.ResubmissionHistoryEntry
	err := sqlite.Conn(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&e.ID,
		&e.OriginalRequestID,
		&e.SuccessorRequestID,
		&e.RejectionStage,
		&e.RejectionReason,
		&e.ResubmittedBy,
		&e.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to get resubmission entry", zap.String("by", column), zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get resubmission entry: %w", err)
	}

	e.CreatedAt = e.CreatedAt.UTC()
	return &e, nil
}

// Verify interface compliance
var _ port.ResubmissionRepository = (*ResubmissionRepository)(nil)
