// Package iterutil provides small set operations over iter.Seq sequences,
// backing the table's multi-category queries.
package iterutil

import (
	"iter"
)

// Union yields every value present in at least one of the input sequences.
// Each value is yielded once, on its first appearance.
func Union[V comparable](seqs ...iter.Seq[V]) iter.Seq[V] {
	return func(yield func(V) bool) {
		seen := map[V]struct{}{}
		for _, seq := range seqs {
			for v := range seq {
				if _, ok := seen[v]; ok {
					continue
				}
				seen[v] = struct{}{}
				if !yield(v) {
					return
				}
			}
		}
	}
}

// Intersection yields every value present in all of the input sequences.
// A value is yielded as soon as the last sequence containing it is reached.
// Sequences must not repeat a value.
func Intersection[V comparable](seqs ...iter.Seq[V]) iter.Seq[V] {
	return func(yield func(V) bool) {
		counts := map[V]int{}
		for _, seq := range seqs {
			for v := range seq {
				counts[v]++
				if counts[v] == len(seqs) && !yield(v) {
					return
				}
			}
		}
	}
}

// Map yields f applied to each value of seq.
func Map[V, R any](seq iter.Seq[V], f func(V) R) iter.Seq[R] {
	return func(yield func(R) bool) {
		for v := range seq {
			if !yield(f(v)) {
				return
			}
		}
	}
}
