// Package lifecycle ties subscriptions to the lifetime of the view that owns them.
package lifecycle

import "sync"

// Scope collects release functions and runs each of them exactly once,
// either when the holder releases it early or when the scope closes.
type Scope struct {
	mu       sync.Mutex
	next     int
	releases map[int]func()
	order    []int
	closed   bool
	done     chan struct{}
}

// New creates an open scope.
func New() *Scope {
	return &Scope{
		releases: make(map[int]func()),
		done:     make(chan struct{}),
	}
}

// Acquire registers release with the scope and returns a handle that runs it.
// The handle and Close together run release at most once.
// Acquiring on a closed scope runs release immediately.
func (s *Scope) Acquire(release func()) func() {
	if release == nil {
		return func() {}
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		release()
		return func() {}
	}
	id := s.next
	s.next++
	s.releases[id] = release
	s.order = append(s.order, id)
	s.mu.Unlock()

	return func() {
		if fn := s.take(id); fn != nil {
			fn()
		}
	}
}

func (s *Scope) take(id int) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn, ok := s.releases[id]
	if !ok {
		return nil
	}
	delete(s.releases, id)
	return fn
}

// Close runs every outstanding release in reverse acquisition order.
// Only the first call has any effect.
func (s *Scope) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	var pending []func()
	for i := len(s.order) - 1; i >= 0; i-- {
		if fn, ok := s.releases[s.order[i]]; ok {
			pending = append(pending, fn)
		}
	}
	s.releases = nil
	s.order = nil
	close(s.done)
	s.mu.Unlock()

	for _, fn := range pending {
		fn()
	}
}

// Done is closed once Close has been called.
func (s *Scope) Done() <-chan struct{} {
	return s.done
}

// Len reports how many releases are still outstanding.
func (s *Scope) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.releases)
}
