// Package pubsub provides a generic publish/subscribe event system.
//
// The registry service publishes one event per mutation so that watchers,
// caches and log tails can follow registry changes without polling.
package pubsub

import (
	"context"
	"time"
)

// EventType represents the type of event being published.
type EventType string

const (
	TypeAddedEvent     EventType = "type_added"
	PartAddedEvent     EventType = "part_added"
	OriginRemovedEvent EventType = "origin_removed"
	ScanCompletedEvent EventType = "scan_completed"
	LogEntryEvent      EventType = "log_entry"
)

// Event represents a published event with a typed payload.
type Event[T any] struct {
	Type      EventType
	Payload   T
	Timestamp time.Time
}

// Subscriber provides a subscription channel for events.
type Subscriber[T any] interface {
	Subscribe(ctx context.Context, types ...EventType) <-chan Event[T]
}

// Publisher allows publishing events with a typed payload.
type Publisher[T any] interface {
	Publish(eventType EventType, payload T)
}

var (
	_ Subscriber[string] = (*Broker[string])(nil)
	_ Publisher[string]  = (*Broker[string])(nil)
)
