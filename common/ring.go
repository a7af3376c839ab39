package common

import (
	"sync"
)

// Recent keeps the last size items added, overwriting the oldest.
// It is safe for concurrent use.
type Recent[T any] struct {
	mu     sync.Mutex
	buffer []T
	write  int
	count  int
}

func NewRecent[T any](size int) *Recent[T] {
	if size < 1 {
		size = 1
	}
	return &Recent[T]{buffer: make([]T, size)}
}

func (r *Recent[T]) Add(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buffer[r.write] = v
	r.write = (r.write + 1) % len(r.buffer)
	if r.count < len(r.buffer) {
		r.count++
	}
}

// Items returns a copy, oldest first.
func (r *Recent[T]) Items() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]T, 0, r.count)
	size := len(r.buffer)
	for i := 0; i < r.count; i++ {
		out = append(out, r.buffer[(r.write+size-r.count+i)%size])
	}
	return out
}

func (r *Recent[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}
