package eventbus

import (
	"sync"
	"testing"
	"time"

	"docskew/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	id     string
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Handle(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) GetID() string { return r.id }

func (r *recorder) snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func TestBusDeliversInOrder(t *testing.T) {
	bus := NewBus(4, logger.NewNop())
	rec := &recorder{id: "rec"}
	bus.Subscribe("", rec)

	for i := 0; i < 50; i++ {
		require.True(t, bus.Publish(Event{Type: TypeStarted, TaskID: string(rune('a' + i%26)), Data: map[string]interface{}{"i": i}}))
	}
	bus.Shutdown()

	events := rec.snapshot()
	require.Len(t, events, 50)
	for i, e := range events {
		assert.Equal(t, i, e.Data["i"])
		assert.False(t, e.Timestamp.IsZero())
	}
}

func TestBusFiltersByType(t *testing.T) {
	bus := NewBus(8, nil)
	started := &recorder{id: "started"}
	completed := &recorder{id: "completed"}
	bus.Subscribe(TypeStarted, started)
	bus.Subscribe(TypeCompleted, completed)

	bus.Publish(Event{Type: TypeStarted, TaskID: "t1"})
	bus.Publish(Event{Type: TypeCompleted, TaskID: "t1"})
	bus.Publish(Event{Type: "other", TaskID: "t1"})
	bus.Shutdown()

	assert.Len(t, started.snapshot(), 1)
	assert.Len(t, completed.snapshot(), 1)
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewBus(8, nil)
	rec := &recorder{id: "rec"}
	bus.Subscribe(TypeStarted, rec)
	bus.Unsubscribe(TypeStarted, &recorder{id: "rec"})

	bus.Publish(Event{Type: TypeStarted})
	bus.Shutdown()

	assert.Empty(t, rec.snapshot())
}

func TestBusSurvivesPanickingHandler(t *testing.T) {
	bus := NewBus(8, logger.NewNop())
	bus.Subscribe(TypeCompleted, HandlerFunc{ID: "bad", Fn: func(Event) { panic("handler bug") }})
	rec := &recorder{id: "good"}
	bus.Subscribe(TypeCompleted, rec)

	bus.Publish(Event{Type: TypeCompleted, TaskID: "x"})
	bus.Publish(Event{Type: TypeCompleted, TaskID: "y"})
	bus.Shutdown()

	assert.Len(t, rec.snapshot(), 2)
}

func TestBusPublishAfterShutdown(t *testing.T) {
	bus := NewBus(1, nil)
	bus.Shutdown()
	bus.Shutdown()

	assert.False(t, bus.Publish(Event{Type: TypeStarted}))
}

func TestBusKeepsExplicitTimestamp(t *testing.T) {
	bus := NewBus(1, nil)
	rec := &recorder{id: "rec"}
	bus.Subscribe("", rec)

	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	bus.Publish(Event{Type: TypeStarted, Timestamp: ts})
	bus.Shutdown()

	require.Len(t, rec.snapshot(), 1)
	assert.Equal(t, ts, rec.snapshot()[0].Timestamp)
}
