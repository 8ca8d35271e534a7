package pubsub

import "context"

// Listener wraps a broker subscription for consumers that pull events one at
// a time instead of ranging over the channel.
type Listener[T any] struct {
	ch <-chan Event[T]
}

// NewListener subscribes to broker for the given event types, or all of them
// when none are given. The subscription ends when ctx is cancelled.
func NewListener[T any](ctx context.Context, broker Subscriber[T], types ...EventType) *Listener[T] {
	return &Listener[T]{ch: broker.Subscribe(ctx, types...)}
}

// Next blocks until the next event arrives.
// Returns false if ctx is cancelled or the subscription is closed.
func (l *Listener[T]) Next(ctx context.Context) (Event[T], bool) {
	select {
	case <-ctx.Done():
		return Event[T]{}, false
	case event, ok := <-l.ch:
		return event, ok
	}
}

// Until collects events until one of the given type arrives, then returns
// everything received including that event.
// Returns false if the wait ended before a matching event was seen.
func (l *Listener[T]) Until(ctx context.Context, stop EventType) ([]Event[T], bool) {
	var seen []Event[T]
	for {
		event, ok := l.Next(ctx)
		if !ok {
			return seen, false
		}
		seen = append(seen, event)
		if event.Type == stop {
			return seen, true
		}
	}
}
