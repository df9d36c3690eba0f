// Package listquery is the pure filter/sort/paginate engine shared by every
// list view. It is total over any well-typed input: every transformation is
// deterministic, allocates its own output and never fails.
package listquery

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// DefaultPageSize is used when a caller passes a non-positive page size
const DefaultPageSize = 10

// Page is one displayed page of a filtered list
type Page[T any] struct {
	Items      []T `json:"items"`
	TotalCount int `json:"total_count"`
	TotalPages int `json:"total_pages"`
}

// Filter is one optional filter dimension. A nil Filter is inactive; an item
// passes only when it satisfies every active dimension.
type Filter[T any] func(T) bool

// Less orders two items for sorting
type Less[T any] func(a, b T) bool

// Search builds a case-insensitive substring filter across the designated
// string fields. An empty term deactivates the dimension.
func Search[T any](term string, fields func(T) []string) Filter[T] {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil
	}
	needle := strings.ToLower(term)

	return func(item T) bool {
		for _, f := range fields(item) {
			if strings.Contains(strings.ToLower(f), needle) {
				return true
			}
		}
		return false
	}
}

// Equals builds an exact-match filter on one string field. An empty want
// deactivates the dimension.
func Equals[T any](want string, field func(T) string) Filter[T] {
	if want == "" {
		return nil
	}
	return func(item T) bool {
		return field(item) == want
	}
}

// DateRange builds an inclusive [from, to] filter on the designated date
// field. The upper bound covers the entire end day: a record dated any time
// on the `to` calendar day is included. Nil bounds deactivate that side; two
// nil bounds deactivate the dimension.
func DateRange[T any](from, to *time.Time, field func(T) time.Time) Filter[T] {
	if from == nil && to == nil {
		return nil
	}

	var upper time.Time
	if to != nil {
		upper = EndOfDay(*to)
	}

	return func(item T) bool {
		d := field(item)
		if from != nil && d.Before(*from) {
			return false
		}
		if to != nil && d.After(upper) {
			return false
		}
		return true
	}
}

// EndOfDay returns the last representable instant of t's calendar day
func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}

// NextDay returns midnight of the calendar day after t, in t's location.
// Used as an exclusive upper bound that keeps all of t's day in range.
func NextDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, t.Location())
}

// Sorter maps the fixed enumeration of sort keys for one list to their
// comparators. Unknown keys are rejected at the boundary.
type Sorter[T any] map[string]Less[T]

// Resolve returns the comparator for key. An empty key selects no sorting.
func (s Sorter[T]) Resolve(key string) (Less[T], error) {
	if key == "" {
		return nil, nil
	}
	less, ok := s[key]
	if !ok {
		return nil, fmt.Errorf("unknown sort key: %q", key)
	}
	return less, nil
}

// Apply runs the full pipeline: filter (AND of active dimensions), stable
// sort, then paginate. Pages are 1-indexed. A page past the end is not
// clamped and yields an empty page with correct totals; callers are expected
// to reset to page 1 whenever a filter value changes.
func Apply[T any](items []T, filters []Filter[T], less Less[T], page, pageSize int) Page[T] {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if page <= 0 {
		page = 1
	}

	filtered := make([]T, 0, len(items))
	for _, item := range items {
		if passes(item, filters) {
			filtered = append(filtered, item)
		}
	}

	if less != nil {
		sort.SliceStable(filtered, func(i, j int) bool {
			return less(filtered[i], filtered[j])
		})
	}

	total := len(filtered)
	totalPages := (total + pageSize - 1) / pageSize

	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	return Page[T]{
		Items:      filtered[start:end],
		TotalCount: total,
		TotalPages: totalPages,
	}
}

func passes[T any](item T, filters []Filter[T]) bool {
	for _, f := range filters {
		if f != nil && !f(item) {
			return false
		}
	}
	return true
}
