// Package ranking derives list positions from movie ratings.
package ranking

import (
	"cmp"
	"slices"
)

// RatingFunc reports an item's rating and whether it has one.
type RatingFunc[T any] func(item T) (float64, bool)

// Assign sorts items ascending by rating and hands each one its ranking
// through set. Unrated items sort before every rated one. Position i gets
// len(items)-i, so the lowest rated item receives len(items) and the
// highest rated receives 1. Equal ratings keep the order they came in.
func Assign[T any](items []T, rating RatingFunc[T], set func(item *T, rank int)) {
	slices.SortStableFunc(items, func(a, b T) int {
		av, aok := rating(a)
		bv, bok := rating(b)
		return compareRatings(av, aok, bv, bok)
	})
	n := len(items)
	for i := range items {
		set(&items[i], n-i)
	}
}

func compareRatings(a float64, aok bool, b float64, bok bool) int {
	switch {
	case !aok && !bok:
		return 0
	case !aok:
		return -1
	case !bok:
		return 1
	}
	return cmp.Compare(a, b)
}

// IsPermutation reports whether ranks holds each of 1..len(ranks) exactly once.
func IsPermutation(ranks []int) bool {
	seen := make([]bool, len(ranks)+1)
	for _, r := range ranks {
		if r < 1 || r > len(ranks) || seen[r] {
			return false
		}
		seen[r] = true
	}
	return true
}
