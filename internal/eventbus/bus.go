// Package eventbus delivers task lifecycle events to subscribers in the order
// they were published.
package eventbus

import (
	"fmt"
	"sync"
	"time"

	"docskew/internal/logger"
)

const (
	TypeStarted   = "started"
	TypeCompleted = "completed"
	TypeReviewed  = "reviewed"
)

type Event struct {
	Type      string                 `json:"type"`
	TaskID    string                 `json:"task_id"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

type EventHandler interface {
	Handle(event Event)
	GetID() string
}

// HandlerFunc adapts a function to EventHandler under a fixed ID.
type HandlerFunc struct {
	ID string
	Fn func(Event)
}

func (h HandlerFunc) Handle(event Event) { h.Fn(event) }
func (h HandlerFunc) GetID() string { return h.ID }

// Bus fans events out to handlers from a single dispatcher goroutine, so a
// handler sees events in publish order. Handlers must not publish
// synchronously into a full bus.
type Bus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex

	buffer  chan Event
	closeMu sync.RWMutex
	closed  bool
	wg      sync.WaitGroup
	log     logger.Logger
	now     func() time.Time
}

func NewBus(bufferSize int, log logger.Logger) *Bus {
	if bufferSize < 1 {
		bufferSize = 1
	}
	if log == nil {
		log = logger.NewNop()
	}

	bus := &Bus{
		subscribers: make(map[string][]EventHandler),
		buffer:      make(chan Event, bufferSize),
		log:         log,
		now:         time.Now,
	}

	bus.startWorker()
	return bus
}

// Publish stamps and enqueues event, blocking while the buffer is full. It
// reports false once the bus is shut down.
func (b *Bus) Publish(event Event) bool {
	b.closeMu.RLock()
	defer b.closeMu.RUnlock()

	if b.closed {
		return false
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = b.now()
	}
	b.buffer <- event
	return true
}

// Subscribe registers handler for eventType. An empty eventType receives
// every event.
func (b *Bus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

func (b *Bus) Unsubscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	handlers := b.subscribers[eventType]
	for i, h := range handlers {
		if h.GetID() == handler.GetID() {
			b.subscribers[eventType] = append(handlers[:i:i], handlers[i+1:]...)
			break
		}
	}
}

// Shutdown stops accepting events, delivers the ones already queued and
// returns once the dispatcher has exited. It is safe to call more than once.
func (b *Bus) Shutdown() {
	b.closeMu.Lock()
	if b.closed {
		b.closeMu.Unlock()
		return
	}
	b.closed = true
	close(b.buffer)
	b.closeMu.Unlock()

	b.wg.Wait()
}

func (b *Bus) startWorker() {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for event := range b.buffer {
			b.dispatchEvent(event)
		}
	}()
}

func (b *Bus) dispatchEvent(event Event) {
	b.mu.RLock()
	handlers := make([]EventHandler, 0, len(b.subscribers[event.Type])+len(b.subscribers[""]))
	handlers = append(handlers, b.subscribers[event.Type]...)
	handlers = append(handlers, b.subscribers[""]...)
	b.mu.RUnlock()

	for _, handler := range handlers {
		b.deliver(handler, event)
	}
}

func (b *Bus) deliver(h EventHandler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("eventbus", fmt.Errorf("handler panicked: %v", r), map[string]interface{}{
				"handler": h.GetID(),
				"event":   event.Type,
				"task_id": event.TaskID,
			})
		}
	}()
	h.Handle(event)
}
