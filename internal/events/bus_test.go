package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoops/engine/pkg/types"
)

func taskEvent(id string) types.Event {
	return types.Event{
		Type:      types.EventTaskUpdate,
		Timestamp: time.Now(),
		Task:      &types.Task{ID: id},
	}
}

func TestPublishWithoutSubscribers(t *testing.T) {
	bus := NewBus()

	// Must not block or panic.
	bus.Publish(taskEvent("t1"))
	assert.Equal(t, 0, bus.SubscriberCount())
}

func TestSubscriberReceivesInOrder(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe()
	defer sub.Close()

	bus.Publish(taskEvent("t1"))
	bus.Publish(taskEvent("t2"))
	bus.Publish(taskEvent("t3"))

	for _, want := range []string{"t1", "t2", "t3"} {
		select {
		case ev := <-sub.C:
			require.NotNil(t, ev.Task)
			assert.Equal(t, want, ev.Task.ID)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for event %s", want)
		}
	}
}

func TestSlowSubscriberDropsEvents(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe()
	defer sub.Close()

	// Never read from sub: once its buffer fills, further events are dropped.
	total := DefaultSubscriberBuffer + 10
	for i := 0; i < total; i++ {
		bus.Publish(taskEvent("t"))
	}

	assert.Equal(t, DefaultSubscriberBuffer, len(sub.C))
	assert.Equal(t, uint64(10), bus.Dropped())
}

func TestDropIsPerSubscriber(t *testing.T) {
	bus := NewBus()
	slow := bus.Subscribe()
	defer slow.Close()
	fast := bus.Subscribe()
	defer fast.Close()

	done := make(chan int)
	go func() {
		n := 0
		for range fast.C {
			n++
		}
		done <- n
	}()

	total := DefaultSubscriberBuffer * 2
	for i := 0; i < total; i++ {
		bus.Publish(taskEvent("t"))
		// Give the fast reader a chance to drain.
		time.Sleep(time.Millisecond)
	}
	fast.Close()

	select {
	case n := <-done:
		assert.Equal(t, total, n, "fast subscriber should see every event")
	case <-time.After(5 * time.Second):
		t.Fatal("fast subscriber did not finish")
	}
	assert.Equal(t, DefaultSubscriberBuffer, len(slow.C))
}

func TestCloseDetachesSubscriber(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe()
	require.Equal(t, 1, bus.SubscriberCount())

	sub.Close()
	sub.Close() // idempotent
	assert.Equal(t, 0, bus.SubscriberCount())

	_, open := <-sub.C
	assert.False(t, open, "channel should be closed")

	// Publishing after close must not panic.
	bus.Publish(taskEvent("t1"))
}
