package engine

// Listeners is an ordered set of callbacks. It is not safe for concurrent use;
// it belongs to whichever goroutine dispatches the engine's events.
type Listeners[T any] struct {
	next  int
	order []int
	fns   map[int]func(T)
}

// Add registers fn and returns its Remove.
func (l *Listeners[T]) Add(fn func(T)) Remove {
	if l.fns == nil {
		l.fns = make(map[int]func(T))
	}
	id := l.next
	l.next++
	l.fns[id] = fn
	l.order = append(l.order, id)

	return func() {
		if _, ok := l.fns[id]; !ok {
			return
		}
		delete(l.fns, id)
		for i, v := range l.order {
			if v == id {
				l.order = append(l.order[:i:i], l.order[i+1:]...)
				break
			}
		}
	}
}

// Fire calls every listener in registration order.
// A listener removed by an earlier one during the same Fire is skipped.
func (l *Listeners[T]) Fire(v T) {
	snapshot := append([]int(nil), l.order...)
	for _, id := range snapshot {
		if fn, ok := l.fns[id]; ok {
			fn(v)
		}
	}
}

// Len reports how many listeners are registered.
func (l *Listeners[T]) Len() int {
	return len(l.fns)
}
