// Package event provides a minimal publish/subscribe primitive.
//
// Observers are invoked synchronously in registration order. A panicking
// observer is recovered and logged so the remaining observers still run.
package event

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

type subscriber[T any] struct {
	id     uint64
	fn     func(T)
	active atomic.Bool
}

// Emitter delivers every emitted value to all registered observers.
// It is safe for concurrent use.
type Emitter[T any] struct {
	mu     sync.Mutex
	nextID uint64
	subs   []*subscriber[T]
	logger *slog.Logger
}

// NewEmitter creates an Emitter. A nil logger disables fault logging.
func NewEmitter[T any](logger *slog.Logger) *Emitter[T] {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Emitter[T]{logger: logger}
}

// Subscribe registers fn for every future value and returns a function that
// removes exactly this registration. Calling the returned function more than
// once is harmless.
func (e *Emitter[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	e.mu.Lock()
	e.nextID++
	sub := &subscriber[T]{id: e.nextID, fn: fn}
	sub.active.Store(true)
	e.subs = append(e.subs, sub)
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { e.remove(sub) })
	}
}

func (e *Emitter[T]) remove(sub *subscriber[T]) {
	// Flag first so an emission already iterating a copy skips it.
	sub.active.Store(false)

	e.mu.Lock()
	defer e.mu.Unlock()
	for i, s := range e.subs {
		if s.id == sub.id {
			e.subs = append(e.subs[:i:i], e.subs[i+1:]...)
			return
		}
	}
}

// Emit invokes every registered observer with v.
func (e *Emitter[T]) Emit(v T) {
	e.mu.Lock()
	subs := make([]*subscriber[T], len(e.subs))
	copy(subs, e.subs)
	e.mu.Unlock()

	for _, sub := range subs {
		if !sub.active.Load() {
			continue
		}
		e.deliver(sub, v)
	}
}

func (e *Emitter[T]) deliver(sub *subscriber[T], v T) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("observer panicked",
				slog.Uint64("subscriber", sub.id),
				slog.String("panic", fmt.Sprint(r)),
			)
		}
	}()
	sub.fn(v)
}

// Len returns the number of registered observers.
func (e *Emitter[T]) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.subs)
}
