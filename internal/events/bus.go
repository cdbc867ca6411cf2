// Package events provides the log event channel that carries subprocess and
// wizard output to UI subscribers.
package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Stream identifies where a log line came from
type Stream string

const (
	StreamStdout   Stream = "stdout"
	StreamStderr   Stream = "stderr"
	StreamInternal Stream = "internal"
)

// DefaultBuffer is the per-subscriber queue length used when none is given
const DefaultBuffer = 256

// LogEvent is a single line of progress output
type LogEvent struct {
	ID      uuid.UUID `json:"id"`
	Source  string    `json:"source"`
	Stream  Stream    `json:"stream"`
	Message string    `json:"message"`
	IsError bool      `json:"is_error"`
	Time    time.Time `json:"time"`
}

// Publisher accepts log events. Implementations must not block.
type Publisher interface {
	Publish(event LogEvent)
}

// Subscription is a registered receiver on a Bus
type Subscription struct {
	ID uuid.UUID

	bus     *Bus
	ch      chan LogEvent
	dropped atomic.Int64
	once    sync.Once
}

// Events returns the receive side of the subscription. The channel is closed
// when the subscription or the bus is closed.
func (s *Subscription) Events() <-chan LogEvent {
	return s.ch
}

// Dropped reports how many events were discarded because the buffer was full
func (s *Subscription) Dropped() int64 {
	return s.dropped.Load()
}

// Close unsubscribes. Safe to call more than once.
func (s *Subscription) Close() {
	s.bus.remove(s.ID)
}

func (s *Subscription) closeChannel() {
	s.once.Do(func() { close(s.ch) })
}

// Bus fans log events out to subscribers.
// Events published from a single goroutine reach every subscriber in
// publish order; there is no ordering between different publishers.
type Bus struct {
	mu     sync.RWMutex
	subs   map[uuid.UUID]*Subscription
	closed bool
	now    func() time.Time
}

// NewBus creates an empty bus
func NewBus() *Bus {
	return &Bus{
		subs: make(map[uuid.UUID]*Subscription),
		now:  time.Now,
	}
}

// Subscribe registers a new receiver with the given buffer size
func (b *Bus) Subscribe(buffer int) *Subscription {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	sub := &Subscription{
		ID:  uuid.New(),
		bus: b,
		ch:  make(chan LogEvent, buffer),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		sub.closeChannel()
		return sub
	}
	b.subs[sub.ID] = sub
	return sub
}

// Publish delivers the event to every subscriber without blocking.
// Subscribers whose buffer is full miss the event.
func (b *Bus) Publish(event LogEvent) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Time.IsZero() {
		event.Time = b.now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, sub := range b.subs {
		select {
		case sub.ch <- event:
		default:
			sub.dropped.Add(1)
		}
	}
}

// Subscribers returns the number of active subscriptions
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close removes all subscribers and closes their channels
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		sub.closeChannel()
		delete(b.subs, id)
	}
}

func (b *Bus) remove(id uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub, ok := b.subs[id]; ok {
		sub.closeChannel()
		delete(b.subs, id)
	}
}

// Info builds a non-error event
func Info(source, message string) LogEvent {
	return LogEvent{Source: source, Stream: StreamInternal, Message: message}
}

// Error builds an error event
func Error(source, message string) LogEvent {
	return LogEvent{Source: source, Stream: StreamInternal, Message: message, IsError: true}
}
