package event

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribe_TypedHandlerOnlyReceivesItsType(t *testing.T) {
	bus := NewBus()
	var gotA, gotB int32
	bus.Subscribe("OrderCreated", func(Event) { atomic.AddInt32(&gotA, 1) })
	bus.Subscribe("OrderCancelled", func(Event) { atomic.AddInt32(&gotB, 1) })

	require.NoError(t, bus.PublishAndWait(context.Background(), Event{Type: "OrderCreated"}))

	assert.EqualValues(t, 1, atomic.LoadInt32(&gotA))
	assert.EqualValues(t, 0, atomic.LoadInt32(&gotB))
}

func TestSubscribe_WildcardReceivesEveryEvent(t *testing.T) {
	bus := NewBus()
	var count int32
	bus.Subscribe("*", func(Event) { atomic.AddInt32(&count, 1) })

	require.NoError(t, bus.PublishAndWait(context.Background(), Event{Type: "OrderCreated"}))
	require.NoError(t, bus.PublishAndWait(context.Background(), Event{Type: "OrderCancelled"}))

	assert.EqualValues(t, 2, atomic.LoadInt32(&count))
}

func TestUnsubscribe_StopsFurtherDelivery(t *testing.T) {
	bus := NewBus()
	var count int32
	id := bus.Subscribe("OrderCreated", func(Event) { atomic.AddInt32(&count, 1) })

	require.NoError(t, bus.PublishAndWait(context.Background(), Event{Type: "OrderCreated"}))
	bus.Unsubscribe(id)
	require.NoError(t, bus.PublishAndWait(context.Background(), Event{Type: "OrderCreated"}))

	assert.EqualValues(t, 1, atomic.LoadInt32(&count))
	_, ok := bus.byType["OrderCreated"]
	assert.False(t, ok, "emptied type entry should be cleaned up")
}

func TestPublishAndWait_StartOrderMatchesSubscriptionOrder(t *testing.T) {
	bus := NewBus()
	var mu sync.Mutex
	var order []int
	for i := 0; i < 5; i++ {
		i := i
		bus.Subscribe("Tick", func(Event) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
	}

	require.NoError(t, bus.PublishAndWait(context.Background(), Event{Type: "Tick"}))
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

// subscribe handler H that awaits 50ms; publishAndTrack
// returns only after H finishes; awaitPendingEvents(1s) returns true.
func TestPublishAndTrack_FlushWaitsForSlowHandler(t *testing.T) {
	bus := NewBus()
	var finished int32
	bus.Subscribe("Slow", func(Event) {
		time.Sleep(50 * time.Millisecond)
		atomic.StoreInt32(&finished, 1)
	})

	require.NoError(t, bus.PublishAndTrack(context.Background(), Event{Type: "Slow"}))
	assert.EqualValues(t, 1, atomic.LoadInt32(&finished))
	assert.True(t, bus.AwaitPendingEvents(time.Second))
}

func TestAwaitPendingEvents_ReturnsTrueWhenNothingInFlight(t *testing.T) {
	bus := NewBus()
	assert.True(t, bus.AwaitPendingEvents(10*time.Millisecond))
}

// Await-pending fairness: a timeout shorter than
// the in-flight handler's duration must return false.
func TestAwaitPendingEvents_TimesOutWhileHandlerStillRunning(t *testing.T) {
	bus := NewBus()
	release := make(chan struct{})
	bus.Subscribe("Slow", func(Event) { <-release })

	done := make(chan struct{})
	go func() {
		_ = bus.PublishAndTrack(context.Background(), Event{Type: "Slow"})
		close(done)
	}()

	// Give PublishAndTrack a moment to register the in-flight handler
	// before the handler is allowed to finish.
	time.Sleep(10 * time.Millisecond)
	assert.False(t, bus.AwaitPendingEvents(20*time.Millisecond))

	close(release)
	<-done
	assert.True(t, bus.AwaitPendingEvents(time.Second))
}

func TestPublish_IsNonBlockingAndUntracked(t *testing.T) {
	bus := NewBus()
	release := make(chan struct{})
	started := make(chan struct{})
	bus.Subscribe("Fire", func(Event) {
		close(started)
		<-release
	})

	bus.Publish(Event{Type: "Fire"})
	<-started

	// Publish doesn't track in-flight handlers, so a flush observes 0
	// even while the handler it spawned is still blocked.
	assert.True(t, bus.AwaitPendingEvents(10*time.Millisecond))
	close(release)
}

func TestStream_ReceivesMatchingEventsUntilUnsubscribed(t *testing.T) {
	bus := NewBus()
	id, ch := bus.Stream("Tick", 4)

	bus.Publish(Event{Type: "Tick"})
	bus.Publish(Event{Type: "Tock"})

	e := <-ch
	assert.Equal(t, "Tick", e.Type)

	bus.Unsubscribe(id)
	_, open := <-ch
	assert.False(t, open, "unsubscribing a stream finalizes its channel")
}

func TestStream_WildcardSeesEveryType(t *testing.T) {
	bus := NewBus()
	id, ch := bus.Stream("*", 4)
	defer bus.Unsubscribe(id)

	require.NoError(t, bus.PublishAndWait(context.Background(), Event{Type: "A"}))
	require.NoError(t, bus.PublishAndTrack(context.Background(), Event{Type: "B"}))

	assert.Equal(t, "A", (<-ch).Type)
	assert.Equal(t, "B", (<-ch).Type)
}

func TestStream_FullBufferDropsInsteadOfBlocking(t *testing.T) {
	bus := NewBus()
	id, ch := bus.Stream("Tick", 1)
	defer bus.Unsubscribe(id)

	bus.Publish(Event{Type: "Tick"})
	bus.Publish(Event{Type: "Tick"})

	<-ch
	select {
	case <-ch:
		t.Fatal("second event should have been dropped by the full buffer")
	default:
	}
}

func TestEventSources_TrackActiveCount(t *testing.T) {
	bus := NewBus()
	assert.False(t, bus.HasActiveEventSources())

	bus.AddEventSource()
	bus.AddEventSource()
	assert.True(t, bus.HasActiveEventSources())

	bus.RemoveEventSource()
	assert.True(t, bus.HasActiveEventSources())
	bus.RemoveEventSource()
	assert.False(t, bus.HasActiveEventSources())

	// Removing past zero is a no-op, not a panic or negative count.
	bus.RemoveEventSource()
	assert.False(t, bus.HasActiveEventSources())
}

func TestSubscribeFiltered_GuardRejectsNonMatchingEvents(t *testing.T) {
	bus := NewBus()
	var count int32
	bus.SubscribeFiltered("Order Placed", func(e Event) bool {
		p, ok := e.Payload.(int)
		return ok && p > 10
	}, func(Event) { atomic.AddInt32(&count, 1) })

	require.NoError(t, bus.PublishAndWait(context.Background(), Event{Type: "Order Placed", Payload: 5}))
	require.NoError(t, bus.PublishAndWait(context.Background(), Event{Type: "Order Placed", Payload: 50}))

	assert.EqualValues(t, 1, atomic.LoadInt32(&count))
}

func TestSubscribeFiltered_NilGuardDispatchesUnconditionally(t *testing.T) {
	bus := NewBus()
	var count int32
	id := bus.SubscribeFiltered("Tick", nil, func(Event) { atomic.AddInt32(&count, 1) })

	require.NoError(t, bus.PublishAndWait(context.Background(), Event{Type: "Tick"}))
	assert.EqualValues(t, 1, atomic.LoadInt32(&count))

	bus.Unsubscribe(id)
	require.NoError(t, bus.PublishAndWait(context.Background(), Event{Type: "Tick"}))
	assert.EqualValues(t, 1, atomic.LoadInt32(&count))
}
