package pagination

import (
	"cmp"
	"slices"
)

// SortBy orders records by key in place. Merged pages arrive in completion
// order; callers that promise the declared sort order re-sort with this.
func SortBy[T any](records []T, key func(T) string) {
	slices.SortStableFunc(records, func(a, b T) int {
		return cmp.Compare(key(a), key(b))
	})
}
