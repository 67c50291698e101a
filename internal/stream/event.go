package stream

import (
	"sync"

	"github.com/google/uuid"
)

// HandlerID identifies a registered event handler.
type HandlerID = uuid.UUID

// Event is a fan-out observer list. Handlers are invoked synchronously, in
// registration order, on the goroutine that calls Emit.
type Event[T any] struct {
	mu       sync.RWMutex
	handlers []eventHandler[T]
}

type eventHandler[T any] struct {
	id uuid.UUID
	fn func(T)
}

// Add registers fn and returns the id used to remove it.
func (e *Event[T]) Add(fn func(T)) HandlerID {
	id := uuid.New()
	e.AddWithID(id, fn)
	return id
}

// AddWithID registers fn under a caller-chosen id. Registering the same id
// twice keeps both entries; Remove drops them together.
func (e *Event[T]) AddWithID(id HandlerID, fn func(T)) {
	if fn == nil {
		return
	}
	e.mu.Lock()
	e.handlers = append(e.handlers, eventHandler[T]{id: id, fn: fn})
	e.mu.Unlock()
}

// Remove unregisters the handler with the given id. It reports whether a
// handler was removed.
func (e *Event[T]) Remove(id HandlerID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	kept := e.handlers[:0]
	removed := false
	for _, h := range e.handlers {
		if h.id == id {
			removed = true
			continue
		}
		kept = append(kept, h)
	}
	// Clear the tail so removed closures can be collected.
	for i := len(kept); i < len(e.handlers); i++ {
		e.handlers[i] = eventHandler[T]{}
	}
	e.handlers = kept
	return removed
}

// Len returns the number of registered handlers.
func (e *Event[T]) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.handlers)
}

// Emit calls every registered handler with v.
func (e *Event[T]) Emit(v T) {
	e.mu.RLock()
	handlers := make([]eventHandler[T], len(e.handlers))
	copy(handlers, e.handlers)
	e.mu.RUnlock()

	for _, h := range handlers {
		h.fn(v)
	}
}

// Events groups the lifecycle signals every streaming client publishes.
type Events struct {
	connected    Event[AuthStatus]
	socketOpened Event[struct{}]
	socketClosed Event[struct{}]
	errors       Event[error]
}

// Connected fires after each connect-and-authenticate handshake.
func (e *Events) Connected() *Event[AuthStatus] { return &e.connected }

// SocketOpened fires when the underlying WebSocket opens.
func (e *Events) SocketOpened() *Event[struct{}] { return &e.socketOpened }

// SocketClosed fires once per connection when the underlying WebSocket closes.
func (e *Events) SocketClosed() *Event[struct{}] { return &e.socketClosed }

// Errors fires for transport, protocol and replay errors.
func (e *Events) Errors() *Event[error] { return &e.errors }
