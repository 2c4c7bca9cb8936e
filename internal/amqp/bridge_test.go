package amqp

import (
	"context"
	"sync"
	"testing"
	"time"

	"budgetly/internal/events"
)

type fakeBroker struct {
	mu        sync.Mutex
	published []*SessionEventMessage
	handler   func(*SessionEventMessage) error
	ready     chan struct{}
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{ready: make(chan struct{})}
}

func (f *fakeBroker) PublishSessionEvent(_ context.Context, msg *SessionEventMessage) error {
	f.mu.Lock()
	f.published = append(f.published, msg)
	f.mu.Unlock()
	return nil
}

func (f *fakeBroker) ConsumeSessionEvents(ctx context.Context, handler func(*SessionEventMessage) error) error {
	f.mu.Lock()
	f.handler = handler
	f.mu.Unlock()
	close(f.ready)
	<-ctx.Done()
	return ctx.Err()
}

func (f *fakeBroker) sent() []*SessionEventMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*SessionEventMessage(nil), f.published...)
}

func (f *fakeBroker) deliver(msg *SessionEventMessage) {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	h(msg)
}

func startBridge(t *testing.T) (*events.Bus, *fakeBroker) {
	t.Helper()
	bus := events.NewBus(nil)
	broker := newFakeBroker()
	bridge := NewBridge(bus, broker, broker, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		bridge.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	select {
	case <-broker.ready:
	case <-time.After(time.Second):
		t.Fatal("bridge never started consuming")
	}
	return bus, broker
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestBridgeForwardsLocalEvents(t *testing.T) {
	bus, broker := startBridge(t)

	bus.Emit(events.SessionEnded)

	waitFor(t, func() bool { return len(broker.sent()) == 1 })
	got := broker.sent()[0]
	if got.Kind != events.SessionEnded || got.Origin != bus.ID() {
		t.Errorf("published %+v", got)
	}
}

func TestBridgeRepublishesRemoteEvents(t *testing.T) {
	bus, broker := startBridge(t)

	var mu sync.Mutex
	var seen []events.Event
	bus.Subscribe(func(e events.Event) {
		mu.Lock()
		seen = append(seen, e)
		mu.Unlock()
	})

	broker.deliver(&SessionEventMessage{Kind: events.Unauthorized, Origin: "other", Timestamp: time.Now()})

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 1 || seen[0].Kind != events.Unauthorized || seen[0].Origin != "other" {
		t.Fatalf("seen = %+v", seen)
	}
	if bus.IsLocal(seen[0]) {
		t.Error("remote event reported as local")
	}

	// Remote events must not bounce back to the broker.
	time.Sleep(20 * time.Millisecond)
	if n := len(broker.sent()); n != 0 {
		t.Errorf("published %d remote events back", n)
	}
}

func TestBridgeIgnoresOwnEcho(t *testing.T) {
	bus, broker := startBridge(t)

	calls := 0
	bus.Subscribe(func(events.Event) { calls++ })

	broker.deliver(&SessionEventMessage{Kind: events.SessionEnded, Origin: bus.ID(), Timestamp: time.Now()})

	if calls != 0 {
		t.Errorf("own echo delivered %d times", calls)
	}
}

func TestBridgeFlushesOnShutdown(t *testing.T) {
	bus := events.NewBus(nil)
	broker := newFakeBroker()
	bridge := NewBridge(bus, broker, broker, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		bridge.Run(ctx)
		close(done)
	}()
	<-broker.ready

	bus.Emit(events.SessionEnded)
	cancel()
	<-done

	if n := len(broker.sent()); n != 1 {
		t.Fatalf("published %d events, want 1", n)
	}
}
