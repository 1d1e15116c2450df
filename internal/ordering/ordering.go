// Package ordering holds the pure list operations behind every reorder on the
// board. Positions produced here are always contiguous and zero-based.
package ordering

import (
	"errors"
	"fmt"
	"slices"
)

// ErrIndexOutOfRange is returned when a from/to index does not address the sequence.
var ErrIndexOutOfRange = errors.New("ordering: index out of range")

func checkIndex(index, length int) error {
	if index < 0 || index >= length {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, index, length)
	}
	return nil
}

// clone copies seq into a fresh non-nil slice with room for one more element.
func clone[T any](seq []T) []T {
	return append(make([]T, 0, len(seq)+1), seq...)
}

// Move returns a copy of seq with the element at from moved to to, together
// with the new position of every element between the two indexes inclusive.
func Move[T comparable](seq []T, from, to int) ([]T, map[T]int, error) {
	if err := checkIndex(from, len(seq)); err != nil {
		return nil, nil, err
	}
	if err := checkIndex(to, len(seq)); err != nil {
		return nil, nil, err
	}

	moved := seq[from]
	out := slices.Insert(slices.Delete(clone(seq), from, from+1), to, moved)

	lo, hi := from, to
	if lo > hi {
		lo, hi = hi, lo
	}
	changed := make(map[T]int, hi-lo+1)
	for i := lo; i <= hi; i++ {
		changed[out[i]] = i
	}
	return out, changed, nil
}

// Remove returns a copy of seq without the element at index.
func Remove[T comparable](seq []T, index int) ([]T, T, error) {
	var zero T
	if err := checkIndex(index, len(seq)); err != nil {
		return nil, zero, err
	}
	return slices.Delete(clone(seq), index, index+1), seq[index], nil
}

// Insert returns a copy of seq with v placed at index. Index may equal
// len(seq), which appends.
func Insert[T comparable](seq []T, index int, v T) ([]T, error) {
	if err := checkIndex(index, len(seq)+1); err != nil {
		return nil, err
	}
	return slices.Insert(clone(seq), index, v), nil
}

// Positions maps every element to its index. This is the compaction of seq.
func Positions[T comparable](seq []T) map[T]int {
	out := make(map[T]int, len(seq))
	for i, v := range seq {
		out[v] = i
	}
	return out
}

// IndexOf returns the index of v in seq, or -1.
func IndexOf[T comparable](seq []T, v T) int {
	return slices.Index(seq, v)
}

// Without returns a copy of seq with every occurrence of v dropped.
func Without[T comparable](seq []T, v T) []T {
	return slices.DeleteFunc(clone(seq), func(x T) bool { return x == v })
}

// Reconcile restores an earlier arrangement prev on top of the live sequence
// current: elements of prev that keep accepts stay at their prev relative
// positions, then elements that only exist in current are appended in their
// current order.
func Reconcile[T comparable](prev, current []T, keep func(T) bool) []T {
	seen := make(map[T]struct{}, len(prev))
	out := make([]T, 0, len(prev)+len(current))
	for _, v := range prev {
		seen[v] = struct{}{}
		if keep(v) {
			out = append(out, v)
		}
	}
	for _, v := range current {
		if _, ok := seen[v]; ok {
			continue
		}
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}
