// Package events records domain events raised by the tracker services. A
// bounded ring buffer keeps recent history for the API, and subscribers are
// notified synchronously as events are published.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/R3E-Network/tracker/pkg/logger"
)

// EventType classifies a domain event.
type EventType string

const (
	// Users
	EventUserRegistered EventType = "user.registered"

	// Projects
	EventProjectCreated     EventType = "project.created"
	EventProjectMemberAdded EventType = "project.member_added"

	// Milestones
	EventMilestoneCreated   EventType = "milestone.created"
	EventMilestoneActivated EventType = "milestone.activated"
	EventMilestoneClosed    EventType = "milestone.closed"

	// Tickets
	EventTicketCreated       EventType = "ticket.created"
	EventTicketAssigned      EventType = "ticket.assigned"
	EventTicketStatusChanged EventType = "ticket.status_changed"

	// Bugs
	EventBugReported      EventType = "bug.reported"
	EventBugAssigned      EventType = "bug.assigned"
	EventBugStatusChanged EventType = "bug.status_changed"
)

// Event is a single state change.
type Event struct {
	ID        string            `json:"id"`
	Type      EventType         `json:"type"`
	Timestamp time.Time         `json:"timestamp"`
	Actor     string            `json:"actor,omitempty"`
	Role      string            `json:"role,omitempty"`
	ProjectID string            `json:"projectId,omitempty"`
	EntityID  string            `json:"entityId,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	TraceID   string            `json:"traceId,omitempty"`
}

// String returns the JSON form of the event.
func (e Event) String() string {
	data, _ := json.Marshal(e)
	return string(data)
}

// Handler processes events as they are published.
type Handler func(Event)

// Filter decides whether a handler sees an event.
type Filter func(Event) bool

// Publisher is what services need to emit events.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// Bus is a thread-safe ring buffer of recent events with subscribers.
type Bus struct {
	mu       sync.RWMutex
	events   []Event
	size     int
	head     int
	count    int
	handlers []handlerEntry
	nextID   int64
}

type handlerEntry struct {
	id      int64
	filter  Filter
	handler Handler
}

var _ Publisher = (*Bus)(nil)

// NewBus creates a bus retaining the last size events.
func NewBus(size int) *Bus {
	if size <= 0 {
		size = 256
	}
	return &Bus{
		events: make([]Event, size),
		size:   size,
	}
}

// Publish stamps the event, stores it and notifies handlers. The trace id is
// taken from ctx when the event has none.
func (b *Bus) Publish(ctx context.Context, event Event) {
	if event.TraceID == "" && ctx != nil {
		event.TraceID = logger.GetTraceID(ctx)
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	b.mu.Lock()
	b.events[b.head] = event
	b.head = (b.head + 1) % b.size
	if b.count < b.size {
		b.count++
	}
	handlers := make([]handlerEntry, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.Unlock()

	// Notify handlers outside the lock
	for _, h := range handlers {
		if h.filter == nil || h.filter(event) {
			h.handler(event)
		}
	}
}

// Subscribe registers a handler for all events and returns its cancel func.
func (b *Bus) Subscribe(handler Handler) func() {
	return b.SubscribeFiltered(nil, handler)
}

// SubscribeFiltered registers a handler that only sees matching events.
func (b *Bus) SubscribeFiltered(filter Filter, handler Handler) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.handlers = append(b.handlers, handlerEntry{id: id, filter: filter, handler: handler})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, h := range b.handlers {
			if h.id == id {
				b.handlers = append(b.handlers[:i], b.handlers[i+1:]...)
				return
			}
		}
	}
}

// Recent returns up to n events, newest first.
func (b *Bus) Recent(n int) []Event {
	return b.RecentMatching(n, nil)
}

// RecentByProject returns up to n events for one project, newest first.
func (b *Bus) RecentByProject(projectID string, n int) []Event {
	return b.RecentMatching(n, func(e Event) bool { return e.ProjectID == projectID })
}

// RecentByType returns up to n events of one type, newest first.
func (b *Bus) RecentByType(eventType EventType, n int) []Event {
	return b.RecentMatching(n, func(e Event) bool { return e.Type == eventType })
}

// RecentMatching returns up to n events accepted by keep, newest first. A nil
// filter accepts everything.
func (b *Bus) RecentMatching(n int, keep Filter) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if n <= 0 || b.count == 0 {
		return []Event{}
	}

	result := make([]Event, 0, min(n, b.count))
	for i := 0; i < b.count && len(result) < n; i++ {
		idx := (b.head - 1 - i + b.size) % b.size
		if keep == nil || keep(b.events[idx]) {
			result = append(result, b.events[idx])
		}
	}
	return result
}

// Count returns the number of retained events.
func (b *Bus) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

// Builder provides a fluent API for creating events.
type Builder struct {
	event Event
}

// NewEvent starts an event of the given type.
func NewEvent(eventType EventType) *Builder {
	return &Builder{event: Event{Type: eventType}}
}

// Actor sets who caused the event.
func (b *Builder) Actor(login, role string) *Builder {
	b.event.Actor = login
	b.event.Role = role
	return b
}

// Project sets the owning project.
func (b *Builder) Project(id string) *Builder {
	b.event.ProjectID = id
	return b
}

// Entity sets the id of the changed entity.
func (b *Builder) Entity(id string) *Builder {
	b.event.EntityID = id
	return b
}

// Meta adds a metadata pair.
func (b *Builder) Meta(key, value string) *Builder {
	if b.event.Metadata == nil {
		b.event.Metadata = make(map[string]string)
	}
	b.event.Metadata[key] = value
	return b
}

// Build returns the event.
func (b *Builder) Build() Event {
	return b.event
}

// PublishTo builds the event and hands it to p. A nil publisher is ignored.
func (b *Builder) PublishTo(ctx context.Context, p Publisher) {
	if p == nil {
		return
	}
	p.Publish(ctx, b.Build())
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) {}
