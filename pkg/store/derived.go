package store

import "sync"

// Pair carries the latest values of two combined stores.
type Pair[A, B any] struct {
	First  A
	Second B
}

// Combine returns a combine-latest Readable over a and b. It subscribes to
// both sources only while it has subscribers, emits once both sources have
// produced a value and then once per change of either source.
func Combine[A, B any](a Readable[A], b Readable[B]) Readable[Pair[A, B]] {
	return ReadOnly[Pair[A, B]](Lazy(func(set func(Pair[A, B])) func() {
		var (
			mu     sync.Mutex
			latest Pair[A, B]
			hasA   bool
			hasB   bool
			inited bool
		)
		emit := func() {
			mu.Lock()
			ready := inited && hasA && hasB
			value := latest
			mu.Unlock()
			if ready {
				set(value)
			}
		}

		stopA := a.Subscribe(func(v A) {
			mu.Lock()
			latest.First = v
			hasA = true
			mu.Unlock()
			emit()
		})
		stopB := b.Subscribe(func(v B) {
			mu.Lock()
			latest.Second = v
			hasB = true
			mu.Unlock()
			emit()
		})

		mu.Lock()
		inited = true
		mu.Unlock()
		emit()

		return func() {
			stopA()
			stopB()
		}
	}))
}

// Map derives a Readable by applying fn to every value of src.
func Map[A, B any](src Readable[A], fn func(A) B) Readable[B] {
	return ReadOnly[B](Lazy(func(set func(B)) func() {
		return src.Subscribe(func(v A) {
			set(fn(v))
		})
	}))
}

// FromChannel exposes ch as a Readable. Values are read by one goroutine per
// activation; the goroutine exits when the last subscriber detaches or ch is
// closed. The latest value is retained across activations.
func FromChannel[T any](ch <-chan T) Readable[T] {
	return ReadOnly[T](Lazy(func(set func(T)) func() {
		done := make(chan struct{})
		go func() {
			for {
				select {
				case <-done:
					return
				case v, ok := <-ch:
					if !ok {
						return
					}
					set(v)
				}
			}
		}()
		return func() { close(done) }
	}))
}
