package port

import (
	"context"
	"time"
)

// EventKind is what happened to a request, from the recipient's point of view
type EventKind string

const (
	EventSubmitted EventKind = "submitted"
	EventApproved  EventKind = "approved"
	EventRejected  EventKind = "rejected"
)

// NotificationDescriptor is the fire-and-forget message handed to delivery
type NotificationDescriptor struct {
	TargetUserID        string    `json:"target_user_id"`
	EventKind           EventKind `json:"event_kind"`
	RequestID           int64     `json:"request_id"`
	ContextualActorName string    `json:"contextual_actor_name"`
	FormattedDate       string    `json:"formatted_date"`
	Hours               float64   `json:"hours"`
}

// NotificationSink delivers descriptors to users. Fan-out, channel
// preferences and retries belong to the implementation.
type NotificationSink interface {
	Deliver(ctx context.Context, n NotificationDescriptor) error
}

// HolidayCalendar answers whether a date is a public holiday
type HolidayCalendar interface {
	IsHoliday(ctx context.Context, date time.Time) (bool, error)
}
