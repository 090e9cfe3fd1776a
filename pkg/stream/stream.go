// Package stream provides the two publication styles used by the viewer:
// Broadcast delivers only what is published after a subscriber joins,
// Latest additionally replays the most recent value to every new subscriber.
package stream

import (
	"context"
	"sync"
)

// DefaultBuffer is the per-subscriber channel capacity.
const DefaultBuffer = 16

type hub[T any] struct {
	mu     sync.Mutex
	subs   map[uint64]chan T
	next   uint64
	buffer int
	closed bool
}

func (h *hub[T]) init(buffer int) {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	h.subs = make(map[uint64]chan T)
	h.buffer = buffer
}

// add registers a subscriber; caller holds mu.
func (h *hub[T]) add(ctx context.Context) chan T {
	ch := make(chan T, h.buffer)
	if h.closed {
		close(ch)
		return ch
	}
	id := h.next
	h.next++
	h.subs[id] = ch
	context.AfterFunc(ctx, func() { h.remove(id) })
	return ch
}

func (h *hub[T]) remove(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
	}
}

func (h *hub[T]) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}

// Broadcast is a hot stream: subscribers only see values published after they subscribe.
type Broadcast[T any] struct {
	hub[T]
}

// NewBroadcast creates a Broadcast with the given per-subscriber buffer.
func NewBroadcast[T any](buffer int) *Broadcast[T] {
	b := &Broadcast[T]{}
	b.init(buffer)
	return b
}

// Publish delivers v to every current subscriber.
// A subscriber whose buffer is full misses v rather than blocking the publisher.
func (b *Broadcast[T]) Publish(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- v:
		default:
		}
	}
}

// Subscribe returns a channel of future values. It is closed when ctx ends or the stream closes.
func (b *Broadcast[T]) Subscribe(ctx context.Context) <-chan T {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.add(ctx)
}

// Close closes every subscriber channel. Later subscriptions receive a closed channel.
func (b *Broadcast[T]) Close() {
	b.closeAll()
}

// Latest is a retained-state stream: it replays the latest value to new subscribers.
type Latest[T any] struct {
	hub[T]
	value T
	has   bool
}

// NewLatest creates a Latest with no value yet.
func NewLatest[T any](buffer int) *Latest[T] {
	l := &Latest[T]{}
	l.init(buffer)
	return l
}

// Publish stores v and delivers it to every subscriber.
// A subscriber whose buffer is full drops its oldest pending value so that v always arrives.
func (l *Latest[T]) Publish(v T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.value = v
	l.has = true
	for _, ch := range l.subs {
		select {
		case ch <- v:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- v:
			default:
			}
		}
	}
}

// Subscribe returns a channel that first yields the latest value, if any, then every update.
func (l *Latest[T]) Subscribe(ctx context.Context) <-chan T {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch := l.add(ctx)
	if l.has && !l.closed {
		ch <- l.value
	}
	return ch
}

// Value returns the latest value and whether one was ever published.
func (l *Latest[T]) Value() (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.value, l.has
}

// Close closes every subscriber channel.
func (l *Latest[T]) Close() {
	l.closeAll()
}
