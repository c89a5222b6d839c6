package engine

import (
	"strings"
)

// ============================================================================
// FILTERS — Dimension-Based Filtering via RecordView
// ============================================================================
// Single-pass filter: checks ALL dimension constraints per record in one loop.
// Returns a SubView (index list into parent), no data copy.
// Undefined dimension values never satisfy a constraint.
// ============================================================================

// ApplyFilters returns a view of records matching all dimension filters.
// Dimensions are AND-combined; values within a dimension are OR-combined.
// A dimension with an empty value list matches nothing.
func ApplyFilters(view RecordView, filters Filters) RecordView {
	if len(filters.Dimensions) == 0 {
		return view
	}

	// Pre-build lowercase lookup sets for each dimension filter
	type constraint struct {
		dim string
		set map[string]bool
	}
	constraints := make([]constraint, 0, len(filters.Dimensions))
	for dim, allowed := range filters.Dimensions {
		if len(allowed) == 0 {
			return newSubView(view, []int{})
		}
		constraints = append(constraints, constraint{dim: dim, set: toLowerSet(allowed)})
	}

	// Single pass: a record passes if it matches ALL dimension filters
	n := view.Len()
	indices := make([]int, 0, n)
	for i := 0; i < n; i++ {
		pass := true
		for _, c := range constraints {
			val, ok := view.Dimension(i, c.dim)
			if !ok || !c.set[strings.ToLower(val)] {
				pass = false
				break
			}
		}
		if pass {
			indices = append(indices, i)
		}
	}

	return newSubView(view, indices)
}

// toLowerSet converts a string slice to a lowercase lookup set.
func toLowerSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[strings.ToLower(item)] = true
	}
	return set
}
