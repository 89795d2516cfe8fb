package batch

import (
	"cmp"
	"slices"
)

// SortByPriority returns a copy of jobs ordered by Priority, highest first.
// Jobs with equal priority keep their input order. The input is not modified.
func SortByPriority(jobs []Job) []Job {
	ordered := slices.Clone(jobs)
	slices.SortStableFunc(ordered, func(a, b Job) int {
		return cmp.Compare(b.Priority, a.Priority)
	})
	return ordered
}
