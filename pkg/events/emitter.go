// Package events provides the typed publish/subscribe channel used for
// cross-component notifications (signed-out, accounts-changed, network-changed).
//
// Fan-out is synchronous and in publish order: handlers run on the publisher's
// goroutine, so they must not block. There is no back-pressure by design.
package events

import "sync"

// Subscription is the handle returned by Subscribe. Unsubscribe is idempotent.
type Subscription interface {
	Unsubscribe()
}

// Emitter is a typed publish/subscribe channel for one event kind.
// The zero value is ready to use.
type Emitter[T any] struct {
	mu       sync.Mutex
	nextID   int
	handlers map[int]func(T)
}

// Subscribe registers a handler for every subsequent Emit.
func (e *Emitter[T]) Subscribe(handler func(T)) Subscription {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.handlers == nil {
		e.handlers = make(map[int]func(T))
	}
	id := e.nextID
	e.nextID++
	e.handlers[id] = handler

	return &subscription[T]{emitter: e, id: id}
}

// Emit delivers the event to all current subscribers in registration order.
func (e *Emitter[T]) Emit(event T) {
	e.mu.Lock()
	// Snapshot in registration order so a handler unsubscribing mid-delivery
	// cannot skip or duplicate others.
	ordered := make([]func(T), 0, len(e.handlers))
	for id := 0; id < e.nextID; id++ {
		if h, ok := e.handlers[id]; ok {
			ordered = append(ordered, h)
		}
	}
	e.mu.Unlock()

	for _, h := range ordered {
		h(event)
	}
}

type subscription[T any] struct {
	emitter *Emitter[T]
	once    sync.Once
	id      int
}

func (s *subscription[T]) Unsubscribe() {
	s.once.Do(func() {
		s.emitter.mu.Lock()
		delete(s.emitter.handlers, s.id)
		s.emitter.mu.Unlock()
	})
}
