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

// TransitionRepository implements port.TransitionRepository
type TransitionRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTransitionRepository creates a new transition history repository
func NewTransitionRepository(db *sql.DB, logger *zap.Logger) port.TransitionRepository {
	return &TransitionRepository{
		db:     db,
		logger: logger,
	}
}

// Create appends a transition record
func (r *TransitionRepository) Create(ctx context.Context, rec *entity.TransitionRecord) error {
	query := `
		INSERT INTO request_transitions (
			request_id, actor_id, actor_role, previous_status, new_status,
			action, remarks, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, query,
		rec.RequestID,
		rec.ActorID,
		rec.ActorRole,
		rec.PreviousStatus,
		rec.NewStatus,
		rec.Action,
		rec.Remarks,
		rec.Timestamp.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to create transition record", zap.Int64("request_id", rec.RequestID), zap.Error(err))
		return fmt.Errorf("failed to create transition record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	rec.ID = id
	return nil
}

// ListByRequest returns the audit trail of a request in the order it was written
func (r *TransitionRepository) ListByRequest(ctx context.Context, requestID int64) ([]*entity.TransitionRecord, error) {
	query := `
		SELECT id, request_id, actor_id, actor_role, previous_status, new_status,
			action, remarks, timestamp
		FROM request_transitions
		WHERE request_id = ?
		ORDER BY id ASC
	`

	rows, err := sqlite.Conn(ctx, r.db).QueryContext(ctx, query, requestID)
	if err != nil {
		r.logger.Error("Failed to list transitions", zap.Int64("request_id", requestID), zap.Error(err))
		return nil, fmt.Errorf("failed to list transitions: %w", err)
	}
	defer rows.Close()

	var records []*entity.TransitionRecord
	for rows.Next() {
		var rec entity.TransitionRecord
		err := rows.Scan(
			&rec.ID,
			&rec.RequestID,
			&rec.ActorID,
			&rec.ActorRole,
			&rec.PreviousStatus,
			&rec.NewStatus,
			&rec.Action,
			&rec.Remarks,
			&rec.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transition record: %w", err)
		}
		rec.Timestamp = rec.Timestamp.UTC()
		records = append(records, &rec)
	}

	return records, rows.Err()
}

// Verify interface compliance
var _ port.TransitionRepository = (*TransitionRepository)(nil)
