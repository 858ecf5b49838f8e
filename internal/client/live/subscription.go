// Package live wraps a push channel of snapshots (a server stream) as a
// subscription that can be ranged over and released exactly once.
package live

import (
	"context"
	"errors"
	"io"
	"iter"
	"sync"
)

// Subscription delivers snapshots of type T in the order the channel
// produced them. Snapshots is meant for a single consumer goroutine.
type Subscription[T any] struct {
	recv   func() (T, error)
	cancel context.CancelFunc

	once sync.Once
	done chan struct{}

	mu  sync.Mutex
	err error
}

// New builds a subscription from a receive function and the cancel func of
// the context the channel was opened with. recv returns io.EOF when the
// channel ends normally.
func New[T any](cancel context.CancelFunc, recv func() (T, error)) *Subscription[T] {
	if cancel == nil {
		cancel = func() {}
	}
	return &Subscription[T]{recv: recv, cancel: cancel, done: make(chan struct{})}
}

// Snapshots yields every delivered snapshot until the consumer stops, the
// subscription is released or the channel ends.
func (s *Subscription[T]) Snapshots() iter.Seq[T] {
	return func(yield func(T) bool) {
		for {
			if s.Unsubscribed() {
				return
			}
			v, err := s.recv()
			if err != nil {
				s.finish(err)
				return
			}
			if !yield(v) {
				return
			}
		}
	}
}

// Unsubscribe releases the channel. Safe to call any number of times.
func (s *Subscription[T]) Unsubscribe() {
	s.once.Do(func() {
		close(s.done)
		s.cancel()
	})
}

// Unsubscribed reports whether Unsubscribe has been called.
func (s *Subscription[T]) Unsubscribed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Done is closed by Unsubscribe.
func (s *Subscription[T]) Done() <-chan struct{} {
	return s.done
}

// Err is the error that ended the channel, nil when it ended normally or
// was released by Unsubscribe.
func (s *Subscription[T]) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Subscription[T]) finish(err error) {
	if errors.Is(err, io.EOF) || s.Unsubscribed() {
		return
	}
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
}
