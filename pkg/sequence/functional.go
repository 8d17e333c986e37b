package sequence

import (
	"iter"
	"sort"
)

// Iterator is a lazy, chainable view over a sequence of T. Stages stop pulling from
// their source as soon as a consumer stops.
type Iterator[T any] struct {
	seq iter.Seq[T]
}

// From iterates over a slice without copying it.
func From[T any](data []T) *Iterator[T] {
	return &Iterator[T]{
		seq: func(yield func(T) bool) {
			for _, v := range data {
				if !yield(v) {
					return
				}
			}
		},
	}
}

// FromSeq wraps an existing iter.Seq.
func FromSeq[T any](seq iter.Seq[T]) *Iterator[T] {
	return &Iterator[T]{seq: seq}
}

// Seq exposes the underlying sequence for range-over-func loops.
func (i *Iterator[T]) Seq() iter.Seq[T] {
	return i.seq
}

func (i *Iterator[T]) Collect() []T {
	var out []T
	for v := range i.seq {
		out = append(out, v)
	}
	return out
}

// Filter keeps the elements satisfying pred, in order.
func (i *Iterator[T]) Filter(pred func(T) bool) *Iterator[T] {
	return &Iterator[T]{
		seq: func(yield func(T) bool) {
			for v := range i.seq {
				if pred(v) && !yield(v) {
					return
				}
			}
		},
	}
}

// Sort returns a stably sorted copy. It is eager.
func (i *Iterator[T]) Sort(less func(a, b T) bool) *Iterator[T] {
	data := i.Collect()
	sort.SliceStable(data, func(a, b int) bool {
		return less(data[a], data[b])
	})
	return From(data)
}

// Find returns the first element matching pred.
func (i *Iterator[T]) Find(pred func(T) bool) (T, bool) {
	for v := range i.seq {
		if pred(v) {
			return v, true
		}
	}
	var zero T
	return zero, false
}

func (i *Iterator[T]) Any(pred func(T) bool) bool {
	_, ok := i.Find(pred)
	return ok
}

func (i *Iterator[T]) Count() int {
	count := 0
	for range i.seq {
		count++
	}
	return count
}

// Map converts every element with fn.
func Map[T, S any](it *Iterator[T], fn func(T) S) *Iterator[S] {
	return &Iterator[S]{
		seq: func(yield func(S) bool) {
			for v := range it.seq {
				if !yield(fn(v)) {
					return
				}
			}
		},
	}
}

// Chain concatenates iterators.
func Chain[T any](iters ...*Iterator[T]) *Iterator[T] {
	return &Iterator[T]{
		seq: func(yield func(T) bool) {
			for _, it := range iters {
				for v := range it.seq {
					if !yield(v) {
						return
					}
				}
			}
		},
	}
}

// GroupBy groups elements by key, keeping input order inside each group.
func GroupBy[T any, K comparable](it *Iterator[T], keyFn func(T) K) map[K][]T {
	groups := make(map[K][]T)
	for v := range it.seq {
		k := keyFn(v)
		groups[k] = append(groups[k], v)
	}
	return groups
}

// ToSet builds a set from the iterator.
func ToSet[T comparable](it *Iterator[T]) map[T]struct{} {
	set := make(map[T]struct{})
	for v := range it.seq {
		set[v] = struct{}{}
	}
	return set
}
