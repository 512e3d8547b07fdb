package internal

import (
	"cmp"
	"iter"
	"maps"
	"slices"
)

// IterSeq2Concat concatenates multiple dual-return iterators into a single iterator sequence.
func IterSeq2Concat[K any, V any](seqs ...iter.Seq2[K, V]) iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for _, seq := range seqs {
			for key, val := range seq {
				if !yield(key, val) {
					return
				}
			}
		}
	}
}

// IterSorted yields the entries of a map in key order, each value mapped through fn.
func IterSorted[K cmp.Ordered, V any, R any](m map[K]V, fn func(V) R) iter.Seq2[K, R] {
	return func(yield func(K, R) bool) {
		for _, key := range slices.Sorted(maps.Keys(m)) {
			if !yield(key, fn(m[key])) {
				return
			}
		}
	}
}
