package amqp

import (
	"context"
	"time"

	"budgetly/internal/events"
	"budgetly/internal/log"
)

type (
	Publisher interface {
		PublishSessionEvent(ctx context.Context, msg *SessionEventMessage) error
	}

	Consumer interface {
		ConsumeSessionEvents(ctx context.Context, handler func(*SessionEventMessage) error) error
	}
)

// outboxSize bounds local events waiting to be published. Events beyond it
// are dropped; session signals are idempotent.
const outboxSize = 16

// flushTimeout bounds publishing of events still queued at shutdown.
const flushTimeout = 2 * time.Second

// Bridge joins a local bus to the broker. Local events are published; events
// from other processes are republished on the bus with their origin kept, so
// they are never forwarded back out.
type Bridge struct {
	bus    *events.Bus
	pub    Publisher
	sub    Consumer
	logger *log.Logger
}

func NewBridge(bus *events.Bus, pub Publisher, sub Consumer, logger *log.Logger) *Bridge {
	if logger == nil {
		logger = log.Discard()
	}
	return &Bridge{bus: bus, pub: pub, sub: sub, logger: logger.WithComponent(log.ComponentAMQP)}
}

// Run forwards in both directions until ctx ends.
func (b *Bridge) Run(ctx context.Context) error {
	outbox := make(chan events.Event, outboxSize)
	unsubscribe := b.bus.Subscribe(func(e events.Event) {
		if !b.bus.IsLocal(e) {
			return
		}
		select {
		case outbox <- e:
		default:
			b.logger.Warn("Session event outbox full, dropping event", log.FieldEvent, string(e.Kind))
		}
	})
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				b.flush(outbox)
				return
			case e := <-outbox:
				if ctx.Err() != nil {
					b.flush(outbox, e)
					return
				}
				b.publish(ctx, e)
			}
		}
	}()

	err := b.sub.ConsumeSessionEvents(ctx, b.Deliver)
	<-done
	return err
}

func (b *Bridge) publish(ctx context.Context, e events.Event) {
	if err := b.pub.PublishSessionEvent(ctx, NewSessionEventMessage(e)); err != nil {
		b.logger.WarnContext(ctx, "Failed to publish session event",
			log.FieldError, err,
			log.FieldEvent, string(e.Kind))
	}
}

// flush publishes what is left in the outbox so a short-lived process
// still announces its logout.
func (b *Bridge) flush(outbox <-chan events.Event, pending ...events.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	for _, e := range pending {
		b.publish(ctx, e)
	}
	for {
		select {
		case e := <-outbox:
			b.publish(ctx, e)
		default:
			return
		}
	}
}

// Deliver republishes a remote message on the local bus. Echoes of this
// process's own events are ignored.
func (b *Bridge) Deliver(msg *SessionEventMessage) error {
	if msg.Origin == b.bus.ID() {
		return nil
	}
	b.logger.Debug("Received remote session event",
		log.FieldEvent, string(msg.Kind),
		log.FieldOrigin, msg.Origin)
	b.bus.Publish(msg.Event())
	return nil
}
