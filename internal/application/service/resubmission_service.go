package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/overtime-claims/internal/application/port"
	"github.com/garyjia/overtime-claims/internal/domain/entity"
	"github.com/garyjia/overtime-claims/internal/domain/workflow"
)

// RequestChanges are the edits an employee makes when resubmitting.
// Nil fields keep the original value.
type RequestChanges struct {
	OTDate      *time.Time
	StartTime   *string
	EndTime     *string
	DayType     *entity.DayType
	Reason      *string
	Attachments []string
}

// ResubmissionService links rejected requests to their successors
type ResubmissionService interface {
	// Prepare builds the unsaved successor of a rejected request
	Prepare(ctx context.Context, original *entity.OvertimeRequest, changes RequestChanges) (*entity.OvertimeRequest, error)

	// Record appends the history entry once the successor is stored
	Record(ctx context.Context, original, successor *entity.OvertimeRequest, resubmittedBy string) (*entity.ResubmissionHistoryEntry, error)

	// Chain returns every link of the resubmission chain a request belongs to, oldest first
	Chain(ctx context.Context, requestID int64) ([]*entity.ResubmissionHistoryEntry, error)
}

type resubmissionServiceImpl struct {
	historyRepo port.ResubmissionRepository
	logger      Logger
	now         func() time.Time
}

// NewResubmissionService creates a new ResubmissionService
func NewResubmissionService(historyRepo port.ResubmissionRepository, logger Logger) ResubmissionService {
	return &resubmissionServiceImpl{
		historyRepo: historyRepo,
		logger:      orNop(logger),
		now:         time.Now,
	}
}

func (s *resubmissionServiceImpl) Prepare(ctx context.Context, original *entity.OvertimeRequest, changes RequestChanges) (*entity.OvertimeRequest, error) {
	if original.Status != workflow.StateRejected {
		return nil, entity.NewValidationError("status", "request %d is %s; only rejected requests can be resubmitted", original.ID, original.Status)
	}

	existing, err := s.historyRepo.GetByOriginal(ctx, original.ID)
	if err != nil && !errors.Is(err, entity.ErrNotFound) {
		return nil, fmt.Errorf("check existing resubmission: %w", err)
	}
	if existing != nil {
		return nil, entity.NewValidationError("original_request_id", "request %d was already resubmitted as %d", original.ID, existing.SuccessorRequestID)
	}

	parentID := original.ID
	successor := &entity.OvertimeRequest{
		EmployeeID:        original.EmployeeID,
		SupervisorID:      original.SupervisorID,
		OTDate:            original.OTDate,
		StartTime:         original.StartTime,
		EndTime:           original.EndTime,
		DayType:           original.DayType,
		Reason:            original.Reason,
		Attachments:       append([]string(nil), original.Attachments...),
		Status:            workflow.InitialState,
		ParentRequestID:   &parentID,
		IsResubmission:    true,
		ResubmissionCount: original.ResubmissionCount + 1,
	}

	if changes.OTDate != nil && !changes.OTDate.Equal(original.OTDate) {
		successor.OTDate = *changes.OTDate
		// re-derived from the calendar
		successor.DayType = ""
	}
	if changes.StartTime != nil {
		successor.StartTime = strings.TrimSpace(*changes.StartTime)
	}
	if changes.EndTime != nil {
		successor.EndTime = strings.TrimSpace(*changes.EndTime)
	}
	if changes.DayType != nil {
		successor.DayType = *changes.DayType
	}
	if changes.Reason != nil {
		successor.Reason = *changes.Reason
	}
	if changes.Attachments != nil {
		successor.Attachments = append([]string(nil), changes.Attachments...)
	}

	return successor, nil
}

func (s *resubmissionServiceImpl) Record(ctx context.Context, original, successor *entity.OvertimeRequest, resubmittedBy string) (*entity.ResubmissionHistoryEntry, error) {
	entry := &entity.ResubmissionHistoryEntry{
		OriginalRequestID:  original.ID,
		SuccessorRequestID: successor.ID,
		RejectionStage:     original.RejectionStage,
		RejectionReason:    original.LatestRejectionRemark(),
		ResubmittedBy:      resubmittedBy,
		CreatedAt:          s.now(),
	}

	if err := s.historyRepo.Create(ctx, entry); err != nil {
		s.logger.Error("Failed to record resubmission", "original_id", original.ID, "successor_id", successor.ID, "error", err)
		return nil, fmt.Errorf("record resubmission: %w", err)
	}

	s.logger.Info("Resubmission recorded",
		"original_id", original.ID,
		"successor_id", successor.ID,
		"resubmission_count", successor.ResubmissionCount,
		"rejection_stage", original.RejectionStage,
	)
	return entry, nil
}

func (s *resubmissionServiceImpl) Chain(ctx context.Context, requestID int64) ([]*entity.ResubmissionHistoryEntry, error) {
	seen := map[int64]bool{requestID: true}

	// walk back to the first request of the chain
	root := requestID
	var back []*entity.ResubmissionHistoryEntry
	for {
		e, err := s.lookup(ctx, s.historyRepo.GetBySuccessor, root)
		if err != nil {
			return nil, err
		}
		if e == nil || seen[e.OriginalRequestID] {
			break
		}
		back = append(back, e)
		root = e.OriginalRequestID
		seen[root] = true
	}

	chain := make([]*entity.ResubmissionHistoryEntry, 0, len(back))
	for i := len(back) - 1; i >= 0; i-- {
		chain = append(chain, back[i])
	}

	// then forward past the requested one
	cur := requestID
	for {
		e, err := s.lookup(ctx, s.historyRepo.GetByOriginal, cur)
		if err != nil {
			return nil, err
		}
		if e == nil || seen[e.SuccessorRequestID] {
			break
		}
		chain = append(chain, e)
		cur = e.SuccessorRequestID
		seen[cur] = true
	}

	return chain, nil
}

func (s *resubmissionServiceImpl) lookup(ctx context.Context, get func(context.Context, int64) (*entity.ResubmissionHistoryEntry, error), id int64) (*entity.ResubmissionHistoryEntry, error) {
	e, err := get(ctx, id)
	if errors.Is(err, entity.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load resubmission history: %w", err)
	}
	return e, nil
}
