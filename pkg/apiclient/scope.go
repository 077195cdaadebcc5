package apiclient

import (
	"context"
	"sync"
)

// Scope ties in-flight calls to a visible lifetime, such as one refresh loop.
// Starting a call cancels the previous one, and Close cancels whatever is running.
// The zero value is ready to use.
type Scope struct {
	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	closed bool
}

// Begin cancels the previous call in the scope and returns a context for the new one,
// along with its generation number.
func (s *Scope) Begin(parent context.Context) (context.Context, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(parent)
	if s.closed {
		cancel()
	}
	s.gen++
	s.cancel = cancel
	return ctx, s.gen
}

// End releases the call and reports whether it is still the latest one.
func (s *Scope) End(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen || s.closed {
		return false
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	return true
}

// Close cancels the running call; later calls start cancelled.
func (s *Scope) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// Latest runs fn inside the scope. If a newer call started meanwhile, or the scope was
// closed, the result is dropped and ErrSuperseded is returned instead.
func Latest[T any](ctx context.Context, s *Scope, fn func(context.Context) (T, error)) (T, error) {
	callCtx, gen := s.Begin(ctx)
	v, err := fn(callCtx)
	if !s.End(gen) {
		var zero T
		return zero, ErrSuperseded
	}
	return v, err
}
