package ring

// Buffer is a fixed-capacity FIFO that evicts the oldest element on overflow.
// It is not safe for concurrent use.
type Buffer[T any] struct {
	items []T
	head  int
	size  int
}

// New creates a buffer holding at most capacity elements. A capacity below 1 is treated as 1.
func New[T any](capacity int) *Buffer[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer[T]{items: make([]T, capacity)}
}

// Push appends v, evicting the oldest element when full
func (b *Buffer[T]) Push(v T) {
	if b.size == len(b.items) {
		b.items[b.head] = v
		b.head = (b.head + 1) % len(b.items)
		return
	}
	b.items[(b.head+b.size)%len(b.items)] = v
	b.size++
}

// Len returns the number of stored elements
func (b *Buffer[T]) Len() int {
	return b.size
}

// Cap returns the capacity
func (b *Buffer[T]) Cap() int {
	return len(b.items)
}

// At returns the i-th element, oldest first. It panics when i is out of range.
func (b *Buffer[T]) At(i int) T {
	if i < 0 || i >= b.size {
		panic("ring: index out of range")
	}
	return b.items[(b.head+i)%len(b.items)]
}

// Last returns the most recent element
func (b *Buffer[T]) Last() (T, bool) {
	var zero T
	if b.size == 0 {
		return zero, false
	}
	return b.At(b.size - 1), true
}

// Slice copies the elements in insertion order
func (b *Buffer[T]) Slice() []T {
	out := make([]T, b.size)
	for i := range out {
		out[i] = b.At(i)
	}
	return out
}

// Each calls fn for every element in insertion order until fn returns false
func (b *Buffer[T]) Each(fn func(T) bool) {
	for i := 0; i < b.size; i++ {
		if !fn(b.At(i)) {
			return
		}
	}
}
