package dispatcher

import (
	"context"

	"github.com/garyjia/overtime-claims/internal/domain/event"
)

// Handler reacts to one lifecycle event
type Handler func(ctx context.Context, evt *event.Event) error

// Subscription binds a named handler to an event type
type Subscription struct {
	Name      string
	EventType event.Type
	Handle    Handler
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
