package crawler

import (
	"fmt"
	"strings"
)

// Query defaults.
const (
	DefaultPage     = 1
	DefaultPageSize = 20
)

// WithDefaults fills zero-valued paging fields, trims text filters, and
// collapses duplicate source names keeping first occurrence order.
func (q Query) WithDefaults() Query {
	q.Position = strings.TrimSpace(q.Position)
	q.City = strings.TrimSpace(q.City)
	q.Experience = strings.TrimSpace(q.Experience)
	q.Education = strings.TrimSpace(q.Education)
	q.Salary = strings.TrimSpace(q.Salary)
	q.Duration = strings.TrimSpace(q.Duration)
	q.DaysPerWeek = strings.TrimSpace(q.DaysPerWeek)
	if q.Page == 0 {
		q.Page = DefaultPage
	}
	if q.PageSize == 0 {
		q.PageSize = DefaultPageSize
	}
	q.Sources = uniqueSources(q.Sources)
	return q
}

// Validate checks the query invariants.
func (q Query) Validate() error {
	if strings.TrimSpace(q.Position) == "" {
		return fmt.Errorf("%w: position is required", ErrInvalidQuery)
	}
	if q.Page < 1 {
		return fmt.Errorf("%w: page must be >= 1, got %d", ErrInvalidQuery, q.Page)
	}
	if q.PageSize < 1 {
		return fmt.Errorf("%w: page_size must be >= 1, got %d", ErrInvalidQuery, q.PageSize)
	}
	return nil
}

// Window returns the zero-based [start, end) record offsets the query asks for.
func (q Query) Window() (int, int) {
	start := (q.Page - 1) * q.PageSize
	return start, start + q.PageSize
}

func uniqueSources(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, name := range in {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
