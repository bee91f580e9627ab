package events

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/R3E-Network/tracker/pkg/logger"
)

func TestBus_Publish(t *testing.T) {
	bus := NewBus(10)

	bus.Publish(context.Background(), Event{Type: EventProjectCreated, ProjectID: "p1"})

	if bus.Count() != 1 {
		t.Errorf("Count() = %d, want 1", bus.Count())
	}
	recent := bus.Recent(1)
	if len(recent) != 1 {
		t.Fatalf("Recent(1) len = %d, want 1", len(recent))
	}
	if recent[0].ID == "" {
		t.Error("ID should be auto-generated")
	}
	if recent[0].Timestamp.IsZero() {
		t.Error("Timestamp should be auto-set")
	}
}

func TestBus_Overflow(t *testing.T) {
	bus := NewBus(5)
	for i := 0; i < 10; i++ {
		bus.Publish(context.Background(), Event{Type: EventTicketCreated, EntityID: string(rune('A' + i))})
	}

	if bus.Count() != 5 {
		t.Errorf("Count() = %d, want 5 (capped)", bus.Count())
	}
	recent := bus.Recent(100)
	if len(recent) != 5 {
		t.Fatalf("Recent len = %d, want 5", len(recent))
	}
	if recent[0].EntityID != "J" || recent[4].EntityID != "F" {
		t.Errorf("unexpected order: first=%s last=%s", recent[0].EntityID, recent[4].EntityID)
	}
}

func TestBus_RecentFilters(t *testing.T) {
	bus := NewBus(10)
	ctx := context.Background()
	bus.Publish(ctx, Event{Type: EventBugReported, ProjectID: "p1"})
	bus.Publish(ctx, Event{Type: EventBugAssigned, ProjectID: "p2"})
	bus.Publish(ctx, Event{Type: EventBugReported, ProjectID: "p2"})

	if got := bus.RecentByProject("p2", 10); len(got) != 2 {
		t.Errorf("RecentByProject len = %d, want 2", len(got))
	}
	if got := bus.RecentByType(EventBugReported, 1); len(got) != 1 || got[0].ProjectID != "p2" {
		t.Errorf("RecentByType should return newest match first: %#v", got)
	}
	if got := bus.Recent(0); len(got) != 0 {
		t.Errorf("Recent(0) should be empty")
	}
}

func TestBus_SubscribeAndCancel(t *testing.T) {
	bus := NewBus(10)
	var seen int32
	cancel := bus.Subscribe(func(Event) { atomic.AddInt32(&seen, 1) })

	bus.Publish(context.Background(), Event{Type: EventUserRegistered})
	cancel()
	bus.Publish(context.Background(), Event{Type: EventUserRegistered})

	if atomic.LoadInt32(&seen) != 1 {
		t.Errorf("handler called %d times, want 1", seen)
	}
}

func TestBus_SubscribeFiltered(t *testing.T) {
	bus := NewBus(10)
	var closed int32
	bus.SubscribeFiltered(
		func(e Event) bool { return e.Type == EventMilestoneClosed },
		func(Event) { atomic.AddInt32(&closed, 1) },
	)

	bus.Publish(context.Background(), Event{Type: EventMilestoneActivated})
	bus.Publish(context.Background(), Event{Type: EventMilestoneClosed})

	if atomic.LoadInt32(&closed) != 1 {
		t.Errorf("filtered handler called %d times, want 1", closed)
	}
}

func TestBus_TraceIDFromContext(t *testing.T) {
	bus := NewBus(4)
	ctx := logger.WithTraceID(context.Background(), "trace-123")

	NewEvent(EventTicketAssigned).Actor("lead", "TEAM_LEADER").Entity("t1").Meta("assignee", "dev").PublishTo(ctx, bus)

	got := bus.Recent(1)[0]
	if got.TraceID != "trace-123" {
		t.Errorf("TraceID = %q", got.TraceID)
	}
	if got.Actor != "lead" || got.Role != "TEAM_LEADER" || got.Metadata["assignee"] != "dev" {
		t.Errorf("builder fields lost: %#v", got)
	}
}

func TestBus_Concurrent(t *testing.T) {
	bus := NewBus(100)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				bus.Publish(context.Background(), Event{Type: EventTicketStatusChanged})
				_ = bus.Recent(5)
			}
		}()
	}
	wg.Wait()

	if bus.Count() != 100 {
		t.Errorf("Count() = %d, want 100", bus.Count())
	}
}

func TestBuilderNilPublisher(t *testing.T) {
	NewEvent(EventBugReported).PublishTo(context.Background(), nil)
	Nop{}.Publish(context.Background(), Event{})
}
