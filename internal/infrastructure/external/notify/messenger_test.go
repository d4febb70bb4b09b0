package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/garyjia/overtime-claims/internal/application/port"
)

func TestLogMessenger_Deliver(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	m := NewLogMessenger(zap.New(core))

	err := m.Deliver(context.Background(), port.NotificationDescriptor{
		TargetUserID:        "S1",
		EventKind:           port.EventSubmitted,
		RequestID:           7,
		ContextualActorName: "Emp One",
		FormattedDate:       "06 Mar 2024",
		Hours:               4,
	})
	require.NoError(t, err)

	entries := logs.FilterMessage("Notification delivered").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "S1", fields["target_user_id"])
	assert.Equal(t, "submitted", fields["event_kind"])
	assert.Equal(t, "Emp One submitted 4.00 overtime hours for 06 Mar 2024 (request #7) for your verification", fields["text"])
}

func TestLogMessenger_Refusals(t *testing.T) {
	m := NewLogMessenger(zap.NewNop())

	err := m.Deliver(context.Background(), port.NotificationDescriptor{EventKind: port.EventApproved})
	assert.Error(t, err)

	err = m.Deliver(context.Background(), port.NotificationDescriptor{TargetUserID: "E1", EventKind: "escalated"})
	assert.ErrorContains(t, err, "unknown notification kind")
}

func TestRenderText(t *testing.T) {
	n := port.NotificationDescriptor{RequestID: 3, ContextualActorName: "Hana HR", FormattedDate: "09 Mar 2024", Hours: 2.5}

	n.EventKind = port.EventApproved
	text, err := RenderText(n)
	require.NoError(t, err)
	assert.Equal(t, "Your overtime of 2.50 hours on 09 Mar 2024 (request #3) was approved by Hana HR", text)

	n.EventKind = port.EventRejected
	text, err = RenderText(n)
	require.NoError(t, err)
	assert.Contains(t, text, "rejected by Hana HR")
}
