package events

import (
	"sync"
	"testing"
)

func TestBusDeliversToEverySubscriber(t *testing.T) {
	bus := NewBus(nil)

	var mu sync.Mutex
	got := map[string]Kind{}
	bus.Subscribe(func(e Event) { mu.Lock(); got["a"] = e.Kind; mu.Unlock() })
	bus.Subscribe(func(e Event) { mu.Lock(); got["b"] = e.Kind; mu.Unlock() })

	bus.Emit(Unauthorized)

	if got["a"] != Unauthorized || got["b"] != Unauthorized {
		t.Fatalf("not every subscriber saw the event: %v", got)
	}
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewBus(nil)
	calls := 0
	cancel := bus.Subscribe(func(Event) { calls++ })

	bus.Emit(SessionEnded)
	cancel()
	cancel()
	bus.Emit(SessionEnded)

	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestBusOrigin(t *testing.T) {
	bus := NewBus(nil)
	var seen Event
	bus.Subscribe(func(e Event) { seen = e })

	bus.Emit(SessionStarted)
	if seen.Origin != bus.ID() || !bus.IsLocal(seen) {
		t.Fatalf("local event origin = %q", seen.Origin)
	}
	if seen.Timestamp.IsZero() {
		t.Fatalf("timestamp not filled")
	}

	bus.Publish(Event{Kind: SessionEnded, Origin: "other-process"})
	if bus.IsLocal(seen) {
		t.Fatalf("remote event reported as local")
	}
}

func TestBusHandlerMaySubscribeDuringPublish(t *testing.T) {
	bus := NewBus(nil)
	bus.Subscribe(func(Event) {
		bus.Subscribe(func(Event) {})
	})
	bus.Emit(Unauthorized)
}
