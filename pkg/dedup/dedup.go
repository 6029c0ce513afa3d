// Package dedup removes repeated values from slices while keeping the first
// occurrence of each in its original position.
package dedup

import "reflect"

// Dedup returns the distinct items in first-seen order.
func Dedup[T comparable](items []T) []T {
	seen := make(map[T]struct{}, len(items))
	out := make([]T, 0, len(items))
	for _, it := range items {
		if _, ok := seen[it]; ok {
			continue
		}
		seen[it] = struct{}{}
		out = append(out, it)
	}
	return out
}

// DedupFunc is Dedup for element types that are not comparable with ==.
// It runs in quadratic time.
func DedupFunc[T any](items []T, eq func(a, b T) bool) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if !IsIn(out, it, eq) {
			out = append(out, it)
		}
	}
	return out
}

// IsIn reports whether x equals any element of items under eq.
func IsIn[T any](items []T, x T, eq func(a, b T) bool) bool {
	for _, it := range items {
		if eq(it, x) {
			return true
		}
	}
	return false
}

// DedupAny deduplicates heterogeneous values using deep equality, so slices
// and maps compare by content. Values of different dynamic types are never
// equal: 500 and 500.0 are both kept.
func DedupAny(items []any) []any {
	return DedupFunc(items, func(a, b any) bool { return reflect.DeepEqual(a, b) })
}
