// Package filter produces filtered views of an in-memory task
// collection. Filtering is deterministic, side-effect-free and
// recomputed from the full collection on every call.
package filter

import (
	"strings"

	"taskboard/internal/domain"
)

// Criteria are AND-combined predicates. Zero values impose no
// constraint.
type Criteria struct {
	Status   domain.Status   `json:"status"`
	Priority domain.Priority `json:"priority"`
	Tag      string          `json:"tag"`
	Search   string          `json:"search"`
}

func (c Criteria) matches(t *domain.Task) bool {
	if c.Status != "" && t.Status != c.Status {
		return false
	}
	if c.Priority != "" && t.Priority != c.Priority {
		return false
	}
	if c.Tag != "" && !hasTag(t, c.Tag) {
		return false
	}
	if c.Search != "" {
		q := strings.ToLower(c.Search)
		if !strings.Contains(strings.ToLower(t.Title), q) &&
			!strings.Contains(strings.ToLower(t.Description), q) {
			return false
		}
	}
	return true
}

// Apply returns the tasks matching criteria, preserving input order.
func Apply(tasks []*domain.Task, criteria Criteria) []*domain.Task {
	out := make([]*domain.Task, 0, len(tasks))
	for _, t := range tasks {
		if criteria.matches(t) {
			out = append(out, t)
		}
	}
	return out
}

// Tags collects the distinct tags across tasks in first-seen order,
// for building filter drop-downs.
func Tags(tasks []*domain.Task) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, t := range tasks {
		for _, tag := range t.Tags {
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			out = append(out, tag)
		}
	}
	return out
}

func hasTag(t *domain.Task, tag string) bool {
	for _, v := range t.Tags {
		if v == tag {
			return true
		}
	}
	return false
}
