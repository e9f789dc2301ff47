package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Event describes a run-lifecycle occurrence emitted by the valuation pipeline.
type Event struct {
	Topic      string
	RunID      uuid.UUID
	OccurredAt time.Time
	Payload    any
}

// Notifier reacts to emitted events (metrics, logs, etc.).
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, event Event) error

// Notify implements Notifier.
func (f NotifierFunc) Notify(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus fans run-lifecycle events out to downstream handlers in-process.
type Bus struct {
	Notifiers []Notifier
}

// Emit dispatches the event to all configured notifiers. Notifier failures
// are joined and reported but never block the caller's pipeline.
func (b *Bus) Emit(ctx context.Context, topic string, runID uuid.UUID, payload any) (Event, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return Event{}, errors.New("events: topic is required")
	}
	ev := Event{
		Topic:      topic,
		RunID:      runID,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
	if b == nil {
		return ev, nil
	}
	var joined error
	for _, notifier := range b.Notifiers {
		if notifier == nil {
			continue
		}
		if err := notifier.Notify(ctx, ev); err != nil {
			joined = errors.Join(joined, fmt.Errorf("events: notifier: %w", err))
		}
	}
	return ev, joined
}
