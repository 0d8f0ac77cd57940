package events

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

type fakeTerminal struct {
	events chan Event
	closed chan struct{}
}

func newFakeTerminal() *fakeTerminal {
	return &fakeTerminal{
		events: make(chan Event, 8),
		closed: make(chan struct{}, 1),
	}
}

func (f *fakeTerminal) WriteJSON(v any) error {
	if ev, ok := v.(Event); ok {
		f.events <- ev
	}
	return nil
}

func (f *fakeTerminal) Close() error {
	select {
	case f.closed <- struct{}{}:
	default:
	}
	return nil
}

func (f *fakeTerminal) waitEvent(t *testing.T) Event {
	t.Helper()
	select {
	case ev := <-f.events:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestHubRoutesByBranch(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	branchA := uuid.New()
	branchB := uuid.New()

	termA := newFakeTerminal()
	termB := newFakeTerminal()
	hub.register <- subscription{conn: termA, branchID: branchA}
	hub.register <- subscription{conn: termB, branchID: branchB}

	hub.Publish(branchA, "order.created", map[string]any{"n": 1})

	ev := termA.waitEvent(t)
	if ev.Type != "order.created" {
		t.Errorf("event type = %q, want order.created", ev.Type)
	}
	if ev.BranchID != branchA {
		t.Errorf("event branch = %s, want %s", ev.BranchID, branchA)
	}
	if ev.At.IsZero() {
		t.Error("event timestamp not set")
	}

	select {
	case ev := <-termB.events:
		t.Errorf("terminal of another branch received %v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubFansOutToAllBranchTerminals(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	branch := uuid.New()
	first := newFakeTerminal()
	second := newFakeTerminal()
	hub.register <- subscription{conn: first, branchID: branch}
	hub.register <- subscription{conn: second, branchID: branch}

	hub.Publish(branch, "table.updated", nil)

	first.waitEvent(t)
	second.waitEvent(t)
}

func TestHubUnregisterStopsDelivery(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	branch := uuid.New()
	term := newFakeTerminal()
	sub := subscription{conn: term, branchID: branch}
	hub.register <- sub
	hub.unregister <- sub

	select {
	case <-term.closed:
	case <-time.After(time.Second):
		t.Fatal("terminal was not closed on unregister")
	}

	hub.Publish(branch, "order.updated", nil)
	select {
	case ev := <-term.events:
		t.Errorf("unregistered terminal received %v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPublishNeverBlocks(t *testing.T) {
	// No Run loop draining the queue: once the buffer fills, further
	// publishes must drop rather than block.
	hub := NewHub()
	done := make(chan struct{})
	go func() {
		branch := uuid.New()
		for i := 0; i < 500; i++ {
			hub.Publish(branch, "order.updated", nil)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full queue")
	}
}
