package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/garyjia/overtime-claims/internal/domain/event"
)

// ErrClosed is returned when dispatching on a closed dispatcher
var ErrClosed = errors.New("dispatcher is closed")

// Dispatcher fans lifecycle events out to subscribers
type Dispatcher interface {
	// Subscribe registers an anonymous handler for an event type
	Subscribe(eventType event.Type, handler Handler)

	// SubscribeNamed registers a handler that can later be removed by name
	SubscribeNamed(eventType event.Type, name string, handler Handler)

	// SubscribeMany registers one named handler for several event types
	SubscribeMany(name string, handler Handler, eventTypes ...event.Type)

	// Unsubscribe removes every handler with the given name from an event type
	Unsubscribe(eventType event.Type, name string)

	// Dispatch runs every handler synchronously and joins their errors
	Dispatch(ctx context.Context, evt *event.Event) error

	// DispatchAsync runs handlers in the background. The context's values
	// are kept but its cancellation is not.
	DispatchAsync(ctx context.Context, evt *event.Event)

	// Subscriptions lists the handlers of an event type without their funcs
	Subscriptions(eventType event.Type) []Subscription

	// Pending is the number of async deliveries still running
	Pending() int64

	// Close rejects new events and waits for pending deliveries
	Close() error
}

// Logger is the logging surface the dispatcher needs
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type eventDispatcher struct {
	mu     sync.RWMutex
	subs   map[event.Type][]Subscription
	logger Logger

	inflight sync.WaitGroup
	pending  atomic.Int64
	closed   atomic.Bool
}

// Option configures the dispatcher
type Option func(*eventDispatcher)

// WithLogger sets a logger for the dispatcher
func WithLogger(logger Logger) Option {
	return func(d *eventDispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDispatcher creates an in-process dispatcher
func NewDispatcher(opts ...Option) Dispatcher {
	d := &eventDispatcher{
		subs:   make(map[event.Type][]Subscription),
		logger: nopLogger{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *eventDispatcher) Subscribe(eventType event.Type, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.add(Subscription{
		Name:      fmt.Sprintf("handler-%d", len(d.subs[eventType])),
		EventType: eventType,
		Handle:    handler,
	})
}

func (d *eventDispatcher) SubscribeNamed(eventType event.Type, name string, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.add(Subscription{Name: name, EventType: eventType, Handle: handler})
}

func (d *eventDispatcher) SubscribeMany(name string, handler Handler, eventTypes ...event.Type) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, et := range eventTypes {
		d.add(Subscription{Name: name, EventType: et, Handle: handler})
	}
}

// add must be called with mu held
func (d *eventDispatcher) add(sub Subscription) {
	d.subs[sub.EventType] = append(d.subs[sub.EventType], sub)
	d.logger.Info("Subscribed", "event_type", sub.EventType, "handler_name", sub.Name)
}

func (d *eventDispatcher) Unsubscribe(eventType event.Type, name string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	kept := d.subs[eventType][:0:0]
	for _, sub := range d.subs[eventType] {
		if sub.Name != name {
			kept = append(kept, sub)
		}
	}
	d.subs[eventType] = kept
	d.logger.Info("Unsubscribed", "event_type", eventType, "handler_name", name)
}

func (d *eventDispatcher) snapshot(eventType event.Type) []Subscription {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]Subscription(nil), d.subs[eventType]...)
}

// Dispatch runs handlers in subscription order. A failing handler does not
// stop the ones after it.
func (d *eventDispatcher) Dispatch(ctx context.Context, evt *event.Event) error {
	if d.closed.Load() {
		return ErrClosed
	}

	var errs []error
	for _, sub := range d.snapshot(evt.Type) {
		if err := d.deliver(ctx, evt, sub); err != nil {
			errs = append(errs, fmt.Errorf("handler %s failed: %w", sub.Name, err))
		}
	}
	return errors.Join(errs...)
}

func (d *eventDispatcher) DispatchAsync(ctx context.Context, evt *event.Event) {
	// closed is checked and inflight grown under mu so Close cannot start
	// waiting between the two
	d.mu.RLock()
	if d.closed.Load() {
		d.mu.RUnlock()
		d.logger.Error("Dropped event, dispatcher is closed",
			"event_type", evt.Type,
			"request_id", evt.RequestID,
		)
		return
	}
	subs := append([]Subscription(nil), d.subs[evt.Type]...)
	d.inflight.Add(len(subs))
	d.pending.Add(int64(len(subs)))
	d.mu.RUnlock()

	// the caller's request usually finishes before delivery does
	bg := context.WithoutCancel(ctx)

	for _, sub := range subs {
		go func(sub Subscription) {
			defer func() {
				d.pending.Add(-1)
				d.inflight.Done()
			}()
			_ = d.deliver(bg, evt, sub)
		}(sub)
	}
}

// deliver calls one handler, turning a panic into an error. Failures are
// logged here so sync and async paths report them the same way.
func (d *eventDispatcher) deliver(ctx context.Context, evt *event.Event, sub Subscription) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
		if err != nil {
			d.logger.Error("Handler failed",
				"event_type", evt.Type,
				"event_id", evt.ID,
				"request_id", evt.RequestID,
				"handler_name", sub.Name,
				"error", err,
			)
		}
	}()
	return sub.Handle(ctx, evt)
}

func (d *eventDispatcher) Subscriptions(eventType event.Type) []Subscription {
	subs := d.snapshot(eventType)
	for i := range subs {
		subs[i].Handle = nil
	}
	return subs
}

func (d *eventDispatcher) Pending() int64 {
	return d.pending.Load()
}

func (d *eventDispatcher) Close() error {
	d.mu.Lock()
	if !d.closed.CompareAndSwap(false, true) {
		d.mu.Unlock()
		return ErrClosed
	}
	d.mu.Unlock()

	d.logger.Info("Draining dispatcher", "pending", d.pending.Load())
	d.inflight.Wait()
	return nil
}
