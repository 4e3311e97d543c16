package store

import "sync"

// Readable is a value that can be observed over time. Subscribe delivers the
// current value (when one exists) and every later value until the returned
// function is called.
type Readable[T any] interface {
	Subscribe(fn func(T)) (unsubscribe func())
}

// Writable is a Readable whose value can be replaced or transformed.
type Writable[T any] interface {
	Readable[T]
	Set(value T)
	Update(fn func(T) T)
}

// StartFunc runs when a store gains its first subscriber. The returned stop
// function runs when the last subscriber detaches.
type StartFunc[T any] func(set func(T)) (stop func())

// Store is the reference Writable. Notifications for one store are delivered
// in FIFO order; a Set issued while subscribers are being notified is queued
// and delivered after the in-flight notification completes. Values are never
// deduplicated.
type Store[T any] struct {
	mu       sync.Mutex
	value    T
	has      bool
	start    StartFunc[T]
	stop     func()
	running  bool
	starting bool
	subs     []*subscription[T]
	queue    []delivery[T]
	draining bool
}

type subscription[T any] struct {
	fn     func(T)
	active bool
}

type delivery[T any] struct {
	sub   *subscription[T]
	value T
}

// New returns a store holding initial.
func New[T any](initial T) *Store[T] {
	return &Store[T]{value: initial, has: true}
}

// NewWithStart returns a store holding initial whose start function is tied to
// the subscriber count.
func NewWithStart[T any](initial T, start StartFunc[T]) *Store[T] {
	return &Store[T]{value: initial, has: true, start: start}
}

// Lazy returns a store without a value. Subscribers receive nothing until
// start (or a caller) sets one.
func Lazy[T any](start StartFunc[T]) *Store[T] {
	return &Store[T]{start: start}
}

// Subscribe registers fn. The start function, if any, runs before fn is
// registered so values produced during start are delivered once, as the
// current value.
func (s *Store[T]) Subscribe(fn func(T)) func() {
	if fn == nil {
		return func() {}
	}

	s.mu.Lock()
	starting := !s.running && s.start != nil
	if starting {
		s.running = true
		s.starting = true
	}
	s.mu.Unlock()

	var stop func()
	if starting {
		stop = s.start(s.Set)
	}

	sub := &subscription[T]{fn: fn, active: true}
	s.mu.Lock()
	if starting {
		s.stop = stop
		s.starting = false
	}
	s.subs = append(s.subs, sub)
	value, has := s.value, s.has
	s.mu.Unlock()

	if has {
		fn(value)
	}

	var once sync.Once
	return func() {
		once.Do(func() { s.unsubscribe(sub) })
	}
}

// Set replaces the value and notifies every subscriber.
func (s *Store[T]) Set(value T) {
	s.mu.Lock()
	s.value = value
	s.has = true
	for _, sub := range s.subs {
		s.queue = append(s.queue, delivery[T]{sub: sub, value: value})
	}
	s.mu.Unlock()
	s.drain()
}

// Update applies fn to the current value and sets the result.
func (s *Store[T]) Update(fn func(T) T) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	current := s.value
	s.mu.Unlock()
	s.Set(fn(current))
}

// Subscribers reports the number of attached subscribers.
func (s *Store[T]) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

func (s *Store[T]) drain() {
	s.mu.Lock()
	if s.draining {
		s.mu.Unlock()
		return
	}
	s.draining = true
	for len(s.queue) > 0 {
		next := s.queue[0]
		s.queue[0] = delivery[T]{}
		s.queue = s.queue[1:]
		if !next.sub.active {
			continue
		}
		s.mu.Unlock()
		next.sub.fn(next.value)
		s.mu.Lock()
	}
	s.queue = nil
	s.draining = false
	s.mu.Unlock()
}

func (s *Store[T]) unsubscribe(sub *subscription[T]) {
	s.mu.Lock()
	sub.active = false
	for i, candidate := range s.subs {
		if candidate == sub {
			s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
			break
		}
	}
	var stop func()
	if len(s.subs) == 0 && s.running && !s.starting {
		stop = s.stop
		s.stop = nil
		s.running = false
	}
	s.mu.Unlock()

	if stop != nil {
		stop()
	}
}

type readOnly[T any] struct {
	src Readable[T]
}

func (r readOnly[T]) Subscribe(fn func(T)) func() {
	return r.src.Subscribe(fn)
}

// ReadOnly hides the write side of a store.
func ReadOnly[T any](src Readable[T]) Readable[T] {
	return readOnly[T]{src: src}
}

// Static returns a Readable that emits value once to each subscriber.
func Static[T any](value T) Readable[T] {
	return ReadOnly[T](New(value))
}

// Get returns the current value of r by subscribing and immediately
// unsubscribing. ok is false when r has no value.
func Get[T any](r Readable[T]) (value T, ok bool) {
	if r == nil {
		return value, false
	}
	unsubscribe := r.Subscribe(func(v T) {
		if !ok {
			value = v
			ok = true
		}
	})
	unsubscribe()
	return value, ok
}
