package event

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const wildcardType = "*"

type subscription struct {
	id        uuid.UUID
	eventType string
	guard     StateGuard // nil means unconditional dispatch
	handler   Handler
}

// Bus is a typed publish/subscribe fan-out with in-flight handler
// tracking. The zero value is not usable; build one with
// NewBus.
type Bus struct {
	mu       sync.Mutex
	byType   map[string][]*subscription
	wildcard []*subscription

	streams map[uuid.UUID]*stream

	inFlight     int
	flushWaiters []chan struct{}

	activeEventSources int
}

// stream is an active async sequence over the bus. Events are delivered
// on ch; closing ch finalizes the sequence.
type stream struct {
	id        uuid.UUID
	eventType string
	ch        chan Event
}

// NewBus builds an empty event bus.
func NewBus() *Bus {
	return &Bus{
		byType:  make(map[string][]*subscription),
		streams: make(map[uuid.UUID]*stream),
	}
}

// Subscribe registers h for eventType ("*" subscribes to every event)
// and returns an id usable with Unsubscribe.
func (b *Bus) Subscribe(eventType string, h Handler) uuid.UUID {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := uuid.New()
	sub := &subscription{id: id, eventType: eventType, handler: h}
	if eventType == wildcardType {
		b.wildcard = append(b.wildcard, sub)
	} else {
		b.byType[eventType] = append(b.byType[eventType], sub)
	}
	return id
}

// Stream opens an async sequence over events of eventType ("*" for every
// event). Events are delivered on the returned channel; a publish never
// blocks on a slow consumer, so a full buffer drops the event for that
// stream. Unsubscribing the returned id finalizes the sequence by
// closing the channel.
func (b *Bus) Stream(eventType string, buffer int) (uuid.UUID, <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if buffer < 1 {
		buffer = 1
	}
	id := uuid.New()
	s := &stream{id: id, eventType: eventType, ch: make(chan Event, buffer)}
	b.streams[id] = s
	return id, s.ch
}

// Unsubscribe removes the subscription with id from both handler
// indexes, cleaning up an emptied type entry; for a stream id it
// finalizes the sequence instead.
func (b *Bus) Unsubscribe(id uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if s, ok := b.streams[id]; ok {
		delete(b.streams, id)
		close(s.ch)
		return
	}
	for t, subs := range b.byType {
		if i := indexOfSub(subs, id); i >= 0 {
			b.byType[t] = append(subs[:i], subs[i+1:]...)
			if len(b.byType[t]) == 0 {
				delete(b.byType, t)
			}
			return
		}
	}
	if i := indexOfSub(b.wildcard, id); i >= 0 {
		b.wildcard = append(b.wildcard[:i], b.wildcard[i+1:]...)
	}
}

func indexOfSub(subs []*subscription, id uuid.UUID) int {
	for i, s := range subs {
		if s.id == id {
			return i
		}
	}
	return -1
}

// matchingHandlers returns every handler bound to e.Type plus every
// wildcard handler, in subscription insertion order: typed subscriptions
// first, then wildcard subscriptions. A subscription whose state guard
// rejects e is skipped.
func (b *Bus) matchingHandlers(e Event) []Handler {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []Handler
	for _, s := range b.byType[e.Type] {
		if s.guard == nil || s.guard(e) {
			out = append(out, s.handler)
		}
	}
	for _, s := range b.wildcard {
		if s.guard == nil || s.guard(e) {
			out = append(out, s.handler)
		}
	}
	return out
}

// yieldToStreams delivers e to every matching stream without blocking;
// a stream whose buffer is full misses the event.
func (b *Bus) yieldToStreams(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.streams {
		if s.eventType != wildcardType && s.eventType != e.Type {
			continue
		}
		select {
		case s.ch <- e:
		default:
		}
	}
}

// Publish is non-blocking: it yields to all matching streams, spawns a
// detached goroutine per matching subscription, and returns without
// waiting for the handlers. Each goroutine is running before the next is
// spawned, so handlers start in subscription order. No in-flight
// tracking, so AwaitPendingEvents cannot observe these handlers.
func (b *Bus) Publish(e Event) {
	b.yieldToStreams(e)
	for _, h := range b.matchingHandlers(e) {
		started := make(chan struct{})
		go func(h Handler) {
			close(started)
			h(e)
		}(h)
		<-started
	}
}

// PublishAndWait awaits every direct subscriber handler via a concurrent
// task group before returning. Each task is running before the next is
// spawned, so handlers start in subscription order.
func (b *Bus) PublishAndWait(ctx context.Context, e Event) error {
	b.yieldToStreams(e)
	g, _ := errgroup.WithContext(ctx)
	for _, h := range b.matchingHandlers(e) {
		h := h
		started := make(chan struct{})
		g.Go(func() error {
			close(started)
			h(e)
			return nil
		})
		<-started
	}
	return g.Wait()
}

// PublishAndTrack behaves like PublishAndWait but additionally increments
// inFlightHandlers atomically per spawned task before the task starts,
// and resumes any FlushWaiters once the counter reaches 0 again. The
// increment-before-spawn and the decrement-then-maybe-resume both happen
// under the same lock as the "is it zero" check elsewhere, closing the
// TOCTOU window between checking in-flight count and spawning a handler.
func (b *Bus) PublishAndTrack(ctx context.Context, e Event) error {
	b.yieldToStreams(e)
	handlers := b.matchingHandlers(e)

	b.mu.Lock()
	b.inFlight += len(handlers)
	b.mu.Unlock()

	g, _ := errgroup.WithContext(ctx)
	for _, h := range handlers {
		h := h
		started := make(chan struct{})
		g.Go(func() error {
			defer b.completeOne()
			close(started)
			h(e)
			return nil
		})
		<-started
	}
	return g.Wait()
}

func (b *Bus) completeOne() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.inFlight--
	if b.inFlight == 0 {
		for _, w := range b.flushWaiters {
			close(w)
		}
		b.flushWaiters = nil
	}
}

// AwaitPendingEvents reports whether inFlightHandlers reached 0 within
// timeout. The zero-check and waiter registration happen inside the same
// critical section as completeOne's decrement, so a handler finishing
// between the check and the registration cannot strand the waiter.
func (b *Bus) AwaitPendingEvents(timeout time.Duration) bool {
	b.mu.Lock()
	if b.inFlight == 0 {
		b.mu.Unlock()
		return true
	}
	waiter := make(chan struct{})
	b.flushWaiters = append(b.flushWaiters, waiter)
	b.mu.Unlock()

	select {
	case <-waiter:
		return true
	case <-time.After(timeout):
		return false
	}
}

// AddEventSource registers a long-lived event source (an HTTP server, a
// file watcher) that keeps the runtime awake even when no handler is in
// flight.
func (b *Bus) AddEventSource() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.activeEventSources++
}

// RemoveEventSource deregisters a long-lived event source.
func (b *Bus) RemoveEventSource() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.activeEventSources > 0 {
		b.activeEventSources--
	}
}

// HasActiveEventSources reports whether any long-lived source is still
// registered; the main loop only shuts down once this is false and
// AwaitPendingEvents has drained the in-flight handlers.
func (b *Bus) HasActiveEventSources() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.activeEventSources > 0
}
