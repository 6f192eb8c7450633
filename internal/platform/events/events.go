// Package events publishes domain events (appointment booked, cancelled,
// agenda changed) to interested consumers.
package events

import (
	"context"
	"sync"
	"time"
)

const (
	TurnoCreated  = "turno.created"
	TurnoDeleted  = "turno.deleted"
	AgendaChanged = "agenda.changed"
)

// Event is one published occurrence.
type Event struct {
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    interface{} `json:"payload"`
}

// New stamps an event with the given time.
func New(eventType string, at time.Time, payload interface{}) Event {
	return Event{Type: eventType, OccurredAt: at, Payload: payload}
}

// Publisher delivers events. Callers treat failures as non-fatal.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// Noop discards every event.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }

// Recorder keeps published events in memory; it is used in tests.
type Recorder struct {
	mu     sync.Mutex
	Events []Event
	Err    error
}

func (r *Recorder) Publish(_ context.Context, evt Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.Events = append(r.Events, evt)
	return nil
}

// Types returns the type of every recorded event, in order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.Events))
	for i, e := range r.Events {
		out[i] = e.Type
	}
	return out
}
