package tracker

// Collection is an ordered, append-only log. Mutations return the new state.
// It is not safe for concurrent use; the Tracker serializes access.
type Collection[T any] struct {
	items []T
}

func NewCollection[T any](items []T) *Collection[T] {
	return &Collection[T]{items: append([]T(nil), items...)}
}

func (c *Collection[T]) Append(item T) []T {
	c.items = append(c.items, item)
	return c.Items()
}

// RemoveFunc drops every item matching pred. No match is a no-op.
func (c *Collection[T]) RemoveFunc(pred func(T) bool) []T {
	kept := c.items[:0:0]
	for _, it := range c.items {
		if !pred(it) {
			kept = append(kept, it)
		}
	}
	c.items = kept
	return c.Items()
}

// RemoveLast drops the final item. Empty collections are left unchanged.
func (c *Collection[T]) RemoveLast() []T {
	if len(c.items) > 0 {
		c.items = c.items[:len(c.items)-1]
	}
	return c.Items()
}

// Items returns a copy, never nil.
func (c *Collection[T]) Items() []T {
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Collection[T]) Len() int {
	return len(c.items)
}

type number interface {
	~int | ~int64 | ~float64
}

// Sum adds field over items. It is recomputed on every call.
func Sum[T any, N number](items []T, field func(T) N) N {
	var total N
	for _, it := range items {
		total += field(it)
	}
	return total
}
