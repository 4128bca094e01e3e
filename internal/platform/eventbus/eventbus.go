package eventbus

import (
	"context"
	"sync"
	"time"
)

// Event is a lifecycle change announced after the owning transaction commits.
type Event struct {
	EntityType string    `json:"entity_type"`
	EntityID   int64     `json:"entity_id"`
	Event      string    `json:"event"`
	OldStatus  string    `json:"old_status,omitempty"`
	NewStatus  string    `json:"new_status"`
	At         time.Time `json:"at"`
	TraceID    string    `json:"trace_id,omitempty"`
}

type Bus interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

type nopBus struct{}

// Nop discards every event. Used when REDIS_ADDR is unset.
func Nop() Bus { return nopBus{} }

func (nopBus) Publish(context.Context, Event) error { return nil }
func (nopBus) Close() error                         { return nil }

// Memory keeps published events in order; tests read them back.
type Memory struct {
	mu     sync.Mutex
	events []Event
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Publish(_ context.Context, ev Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

func (m *Memory) Close() error { return nil }

func (m *Memory) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}
