package minmax

// Package minmax implements a double-ended priority queue as a min-max heap.
//
// The heap is a single array-backed complete binary tree whose levels alternate
// between min levels (even depth, starting at the root) and max levels (odd depth).
// Every node on a min level is <= all of its descendants, every node on a max
// level is >= all of its descendants. Both extremes are therefore reachable in
// constant time and removable in O(log n).

import (
	"errors"
	"iter"
	"math/bits"
)

// ErrEmpty is returned when peeking or popping an empty heap.
var ErrEmpty = errors.New("minmax: heap is empty")

// Heap is a min-max heap ordered by a caller-supplied less function.
// The zero value is not usable; create heaps with New.
type Heap[T any] struct {
	items []T
	less  func(a, b T) bool
}

// New returns an empty heap ordered by less.
func New[T any](less func(a, b T) bool) *Heap[T] {
	return &Heap[T]{less: less}
}

// Len returns the number of items in the heap.
func (h *Heap[T]) Len() int {
	return len(h.items)
}

// All yields every item in storage order, which is not sorted.
func (h *Heap[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, v := range h.items {
			if !yield(v) {
				return
			}
		}
	}
}

// Push inserts v into the heap.
func (h *Heap[T]) Push(v T) {
	h.items = append(h.items, v)
	h.pushUp(len(h.items) - 1)
}

// PeekMin returns the smallest item without removing it.
func (h *Heap[T]) PeekMin() (T, error) {
	if len(h.items) == 0 {
		var zero T
		return zero, ErrEmpty
	}
	return h.items[0], nil
}

// PeekMax returns the largest item without removing it.
func (h *Heap[T]) PeekMax() (T, error) {
	if len(h.items) == 0 {
		var zero T
		return zero, ErrEmpty
	}
	return h.items[h.maxIndex()], nil
}

// PopMin removes and returns the smallest item.
func (h *Heap[T]) PopMin() (T, error) {
	if len(h.items) == 0 {
		var zero T
		return zero, ErrEmpty
	}
	return h.removeAt(0), nil
}

// PopMax removes and returns the largest item.
func (h *Heap[T]) PopMax() (T, error) {
	if len(h.items) == 0 {
		var zero T
		return zero, ErrEmpty
	}
	return h.removeAt(h.maxIndex()), nil
}

// maxIndex is the root when it is alone, otherwise the larger of its children.
func (h *Heap[T]) maxIndex() int {
	switch len(h.items) {
	case 1:
		return 0
	case 2:
		return 1
	}
	if h.less(h.items[1], h.items[2]) {
		return 2
	}
	return 1
}

// removeAt replaces item i with the last leaf and sifts it down. Only called
// for the root or one of its children, so i is always an extreme.
func (h *Heap[T]) removeAt(i int) T {
	last := len(h.items) - 1
	v := h.items[i]
	h.items[i] = h.items[last]

	var zero T
	h.items[last] = zero
	h.items = h.items[:last]

	if i < last {
		h.pushDown(i)
	}
	return v
}

func (h *Heap[T]) greater(a, b T) bool {
	return h.less(b, a)
}

func (h *Heap[T]) swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
}

func isMinLevel(i int) bool {
	// depth = bits.Len(i+1) - 1, min levels have an even depth.
	return bits.Len(uint(i+1))%2 == 1
}

func parent(i int) int {
	return (i - 1) / 2
}

// pushUp restores the heap property for a freshly appended leaf.
func (h *Heap[T]) pushUp(i int) {
	if i == 0 {
		return
	}
	p := parent(i)
	if isMinLevel(i) {
		if h.less(h.items[p], h.items[i]) {
			h.swap(i, p)
			h.pushUpLevel(p, h.greater)
		} else {
			h.pushUpLevel(i, h.less)
		}
		return
	}
	if h.less(h.items[i], h.items[p]) {
		h.swap(i, p)
		h.pushUpLevel(p, h.less)
	} else {
		h.pushUpLevel(i, h.greater)
	}
}

// pushUpLevel moves item i up through its grandparents while it comes before
// them. before is less on min levels and greater on max levels.
func (h *Heap[T]) pushUpLevel(i int, before func(a, b T) bool) {
	for i >= 3 {
		g := parent(parent(i))
		if !before(h.items[i], h.items[g]) {
			return
		}
		h.swap(i, g)
		i = g
	}
}

func (h *Heap[T]) pushDown(i int) {
	if isMinLevel(i) {
		h.pushDownLevel(i, h.less)
	} else {
		h.pushDownLevel(i, h.greater)
	}
}

// pushDownLevel sifts item i down, swapping it with whichever child or
// grandchild comes first under before.
func (h *Heap[T]) pushDownLevel(i int, before func(a, b T) bool) {
	n := len(h.items)
	for {
		m := -1
		for _, c := range [...]int{2*i + 1, 2*i + 2, 4*i + 3, 4*i + 4, 4*i + 5, 4*i + 6} {
			if c >= n {
				break
			}
			if m < 0 || before(h.items[c], h.items[m]) {
				m = c
			}
		}
		if m < 0 || !before(h.items[m], h.items[i]) {
			return
		}

		h.swap(m, i)
		if m <= 2*i+2 {
			// Direct child: it sits on the opposite level and has no
			// grandchildren left to violate.
			return
		}

		// Grandchild: the displaced item may now be on the wrong side of
		// its new parent, which lives on the opposite level.
		if p := parent(m); before(h.items[p], h.items[m]) {
			h.swap(m, p)
		}
		i = m
	}
}
