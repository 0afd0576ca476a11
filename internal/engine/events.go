// Event log: a bounded, append-only record of what happened in town, with
// synchronous fan-out to subscribers.
package engine

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultMaxEvents is how many entries the log retains.
const DefaultMaxEvents = 100

// EventType categorizes a log entry.
type EventType string

const (
	EventNudge              EventType = "nudge"
	EventConsequence        EventType = "consequence"
	EventGame               EventType = "game"
	EventRelationshipChange EventType = "relationship_change"
	EventMoodChange         EventType = "mood_change"
)

// Event is a notable occurrence in town.
type Event struct {
	ID          uint64         `json:"id"`
	Timestamp   time.Time      `json:"timestamp"`
	Type        EventType      `json:"type"`
	Description string         `json:"description"`
	Metadata    map[string]any `json:"metadata"`
}

// Listener receives each new event. Events reach listeners in ID order,
// one at a time. A returned error or a panic is contained and does not
// affect the log or other listeners. Listeners must not call Log.
type Listener func(Event) error

// ListenerID identifies a subscription.
type ListenerID uint64

// EventLog keeps the most recent events, oldest evicted first.
type EventLog struct {
	mu        sync.Mutex
	events    []Event
	max       int
	nextID    uint64
	listeners map[ListenerID]Listener
	order     []ListenerID
	nextLID   ListenerID

	// delivery hands the fan-out to each event in ID order.
	delivery  sync.Mutex
	turn      *sync.Cond
	delivered uint64

	now func() time.Time
}

// NewEventLog creates a log retaining up to max events. Non-positive max
// uses DefaultMaxEvents.
func NewEventLog(max int) *EventLog {
	if max <= 0 {
		max = DefaultMaxEvents
	}
	l := &EventLog{
		max:       max,
		listeners: make(map[ListenerID]Listener),
		now:       time.Now,
	}
	l.turn = sync.NewCond(&l.delivery)
	return l
}

// Log records an event, trims the log, and notifies listeners before
// returning the event.
func (l *EventLog) Log(typ EventType, description string, meta map[string]any) Event {
	if meta == nil {
		meta = map[string]any{}
	}

	l.mu.Lock()
	e := Event{
		ID:          l.nextID,
		Timestamp:   l.now(),
		Type:        typ,
		Description: description,
		Metadata:    meta,
	}
	l.nextID++
	l.events = append(l.events, e)
	if len(l.events) > l.max {
		drop := len(l.events) - l.max
		l.events = append(l.events[:0:0], l.events[drop:]...)
	}
	listeners := make([]subscriber, 0, len(l.order))
	for _, id := range l.order {
		listeners = append(listeners, subscriber{id: id, fn: l.listeners[id]})
	}
	l.mu.Unlock()

	slog.Debug("event", "type", typ, "description", description)

	l.delivery.Lock()
	for l.delivered != e.ID {
		l.turn.Wait()
	}
	l.delivery.Unlock()

	for _, s := range listeners {
		if err := notify(s.fn, e); err != nil {
			slog.Warn("event listener failed", "listener", s.id, "event", e.ID, "error", err)
		}
	}

	l.delivery.Lock()
	l.delivered++
	l.turn.Broadcast()
	l.delivery.Unlock()
	return e
}

type subscriber struct {
	id ListenerID
	fn Listener
}

// notify calls fn and converts a panic into an error.
func notify(fn Listener, e Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener panic: %v", r)
		}
	}()
	return fn(e)
}

// Subscribe registers fn and returns its ID and an unsubscribe function.
func (l *EventLog) Subscribe(fn Listener) (ListenerID, func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextLID++
	id := l.nextLID
	l.listeners[id] = fn
	l.order = append(l.order, id)
	return id, func() { l.Unsubscribe(id) }
}

// Unsubscribe removes a listener. Unknown IDs are ignored.
func (l *EventLog) Unsubscribe(id ListenerID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.listeners[id]; !ok {
		return
	}
	delete(l.listeners, id)
	for i, have := range l.order {
		if have == id {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
}

// RecentEvents returns up to n of the newest events, oldest first.
func (l *EventLog) RecentEvents(n int) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n <= 0 {
		return []Event{}
	}
	start := len(l.events) - n
	if start < 0 {
		start = 0
	}
	out := make([]Event, len(l.events)-start)
	copy(out, l.events[start:])
	return out
}

// EventsByType returns every retained event of the given type.
func (l *EventLog) EventsByType(typ EventType) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := []Event{}
	for _, e := range l.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

// AllEvents returns a copy of every retained event.
func (l *EventLog) AllEvents() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

// Len returns the number of retained events.
func (l *EventLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

// Clear drops every retained event. Subscriptions and the ID counter are kept.
func (l *EventLog) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = nil
}
