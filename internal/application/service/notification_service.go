package service

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/overtime-claims/internal/application/dispatcher"
	"github.com/garyjia/overtime-claims/internal/application/port"
	"github.com/garyjia/overtime-claims/internal/domain/entity"
	"github.com/garyjia/overtime-claims/internal/domain/event"
)

// NotificationDateLayout is how dates appear in user-facing notifications
const NotificationDateLayout = "02 Jan 2006"

// NotificationService turns lifecycle events into notification descriptors
type NotificationService interface {
	// Register subscribes the service to the lifecycle events it notifies about
	Register(d dispatcher.Dispatcher)

	// HandleEvent builds and delivers the descriptor for one event
	HandleEvent(ctx context.Context, evt *event.Event) error

	// Describe maps an event to a descriptor; ok is false when nobody is notified
	Describe(evt *event.Event) (n port.NotificationDescriptor, ok bool)
}

type notificationServiceImpl struct {
	sink   port.NotificationSink
	logger Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(sink port.NotificationSink, logger Logger) NotificationService {
	return &notificationServiceImpl{sink: sink, logger: orNop(logger)}
}

func (s *notificationServiceImpl) Register(d dispatcher.Dispatcher) {
	d.SubscribeMany("notification", s.HandleEvent,
		event.TypeRequestSubmitted,
		event.TypeRequestResubmitted,
		event.TypeRequestApproved,
		event.TypeRequestRejected,
	)
}

func (s *notificationServiceImpl) HandleEvent(ctx context.Context, evt *event.Event) error {
	n, ok := s.Describe(evt)
	if !ok {
		s.logger.Info("No recipient for event", "event_type", evt.Type, "request_id", evt.RequestID)
		return nil
	}

	if err := s.sink.Deliver(ctx, n); err != nil {
		s.logger.Error("Failed to deliver notification",
			"error", err,
			"request_id", n.RequestID,
			"target_user_id", n.TargetUserID,
			"event_kind", n.EventKind,
		)
		return fmt.Errorf("deliver notification: %w", err)
	}

	s.logger.Info("Notification delivered",
		"request_id", n.RequestID,
		"target_user_id", n.TargetUserID,
		"event_kind", n.EventKind,
	)
	return nil
}

func (s *notificationServiceImpl) Describe(evt *event.Event) (port.NotificationDescriptor, bool) {
	n := port.NotificationDescriptor{
		RequestID:           evt.RequestID,
		ContextualActorName: evt.Text(event.KeyActorName),
		FormattedDate:       formatNotificationDate(evt.Text(event.KeyOTDate)),
		Hours:               evt.Float(event.KeyHours),
	}

	switch evt.Type {
	case event.TypeRequestSubmitted, event.TypeRequestResubmitted:
		n.EventKind = port.EventSubmitted
		n.TargetUserID = evt.Text(event.KeySupervisorID)
	case event.TypeRequestApproved:
		n.EventKind = port.EventApproved
		n.TargetUserID = evt.Text(event.KeyEmployeeID)
	case event.TypeRequestRejected:
		n.EventKind = port.EventRejected
		n.TargetUserID = evt.Text(event.KeyEmployeeID)
	default:
		return port.NotificationDescriptor{}, false
	}

	if n.TargetUserID == "" {
		return port.NotificationDescriptor{}, false
	}
	return n, true
}

func formatNotificationDate(s string) string {
	d, err := time.Parse(entity.DateLayout, s)
	if err != nil {
		return s
	}
	return d.Format(NotificationDateLayout)
}
