package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/overtime-claims/internal/application/port"
)

// LogMessenger implements port.NotificationSink by writing each message to
// the structured log. Deployments with a push channel swap in their own sink.
type LogMessenger struct {
	logger *zap.Logger
}

// NewLogMessenger creates a log-backed notification sink
func NewLogMessenger(logger *zap.Logger) *LogMessenger {
	return &LogMessenger{logger: logger}
}

// Deliver renders and logs the notification
func (m *LogMessenger) Deliver(ctx context.Context, n port.NotificationDescriptor) error {
	if n.TargetUserID == "" {
		return fmt.Errorf("target user cannot be empty")
	}

	text, err := RenderText(n)
	if err != nil {
		return err
	}

	m.logger.Info("Notification delivered",
		zap.String("target_user_id", n.TargetUserID),
		zap.String("event_kind", string(n.EventKind)),
		zap.Int64("request_id", n.RequestID),
		zap.String("text", text))
	return nil
}

// RenderText builds the user-facing message line
func RenderText(n port.NotificationDescriptor) (string, error) {
	switch n.EventKind {
	case port.EventSubmitted:
		return fmt.Sprintf("%s submitted %.2f overtime hours for %s (request #%d) for your verification",
			n.ContextualActorName, n.Hours, n.FormattedDate, n.RequestID), nil
	case port.EventApproved:
		return fmt.Sprintf("Your overtime of %.2f hours on %s (request #%d) was approved by %s",
			n.Hours, n.FormattedDate, n.RequestID, n.ContextualActorName), nil
	case port.EventRejected:
		return fmt.Sprintf("Your overtime of %.2f hours on %s (request #%d) was rejected by %s",
			n.Hours, n.FormattedDate, n.RequestID, n.ContextualActorName), nil
	}
	return "", fmt.Errorf("unknown notification kind %q", n.EventKind)
}

// Verify interface compliance
var _ port.NotificationSink = (*LogMessenger)(nil)
