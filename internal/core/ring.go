package core

// Ring is a capped append-only log. Once full, every append evicts the oldest entry.
// Ring is not safe for concurrent use; it is owned by a room actor.
type Ring[T any] struct {
	buf   []T
	start int
	size  int
}

// NewRing returns an empty ring holding at most capacity items.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{buf: make([]T, capacity)}
}

// Append adds v as the newest entry.
func (r *Ring[T]) Append(v T) {
	if r.size < len(r.buf) {
		r.buf[(r.start+r.size)%len(r.buf)] = v
		r.size++
		return
	}
	r.buf[r.start] = v
	r.start = (r.start + 1) % len(r.buf)
}

// Len returns the number of retained entries.
func (r *Ring[T]) Len() int { return r.size }

// Cap returns the maximum number of retained entries.
func (r *Ring[T]) Cap() int { return len(r.buf) }

// Last returns up to n newest entries, oldest first. n <= 0 returns everything.
func (r *Ring[T]) Last(n int) []T {
	if n <= 0 || n > r.size {
		n = r.size
	}
	out := make([]T, n)
	offset := r.size - n
	for i := range n {
		out[i] = r.buf[(r.start+offset+i)%len(r.buf)]
	}
	return out
}
