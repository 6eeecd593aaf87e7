package event

import (
	"reflect"
	"sync"
)

type queued struct {
	t  reflect.Type
	ev any
}

// Bus is a double-buffered event bus. Events emitted during a tick are queued
// in the back buffer and delivered, in emission order, when the world flushes
// the bus at the end of the tick.
type Bus struct {
	mu       sync.Mutex // only protects handler registration
	front    []queued
	back     []queued
	handlers map[reflect.Type][]func(any)
}

func NewBus() *Bus {
	return &Bus{
		front:    make([]queued, 0, 64),
		back:     make([]queued, 0, 64),
		handlers: make(map[reflect.Type][]func(any)),
	}
}

// Emit queues an event into the back buffer.
func Emit[T any](b *Bus, event T) {
	if b == nil {
		return
	}
	b.back = append(b.back, queued{t: reflect.TypeFor[T](), ev: event})
}

// Subscribe registers a typed handler for events of type T.
func Subscribe[T any](b *Bus, fn func(T)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := reflect.TypeFor[T]()
	b.handlers[t] = append(b.handlers[t], func(ev any) { fn(ev.(T)) })
}

// Pending returns the number of events waiting for the next flush.
func (b *Bus) Pending() int {
	return len(b.back)
}

// Flush swaps buffers and delivers every queued event to its handlers.
// Events emitted by handlers land in the next flush.
func (b *Bus) Flush() {
	b.front, b.back = b.back, b.front[:0]
	b.mu.Lock()
	handlers := b.handlers
	b.mu.Unlock()
	for i := range b.front {
		q := b.front[i]
		for _, h := range handlers[q.t] {
			h(q.ev)
		}
		b.front[i] = queued{}
	}
	b.front = b.front[:0]
}

// Discard drops every queued event without delivering it.
func (b *Bus) Discard() {
	clear(b.back)
	b.back = b.back[:0]
}
