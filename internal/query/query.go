// Package query filters and orders task lists. It never touches storage.
package query

import (
	"sort"
	"strings"

	"taskmanager/internal/apperror"
	"taskmanager/internal/models"
)

const All = "all"

type SortField string

const (
	SortByCreatedAt SortField = "createdAt"
	SortByDeadline  SortField = "deadline"
	SortByPriority  SortField = "priority"
)

type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// Spec selects and orders tasks. Zero values mean: no status or priority
// filter, no search, newest first.
type Spec struct {
	Status    string    `query:"status"`
	Priority  string    `query:"priority"`
	Search    string    `query:"search"`
	SortBy    SortField `query:"sortBy"`
	SortOrder SortOrder `query:"sortOrder"`
}

// Validate rejects values outside the known enums.
func (s Spec) Validate() error {
	if s.Status != "" && s.Status != All && !models.Status(s.Status).Valid() {
		return apperror.Validation("status", "must be all, pending, in-progress or completed")
	}
	if s.Priority != "" && s.Priority != All && !models.Priority(s.Priority).Valid() {
		return apperror.Validation("priority", "must be all, low, medium or high")
	}
	switch s.SortBy {
	case "", SortByCreatedAt, SortByDeadline, SortByPriority:
	default:
		return apperror.Validation("sortBy", "must be createdAt, deadline or priority")
	}
	switch s.SortOrder {
	case "", Asc, Desc:
	default:
		return apperror.Validation("sortOrder", "must be asc or desc")
	}
	return nil
}

func (s Spec) matches(t models.Task) bool {
	if s.Status != "" && s.Status != All && string(t.Status) != s.Status {
		return false
	}
	if s.Priority != "" && s.Priority != All && string(t.Priority) != s.Priority {
		return false
	}
	if s.Search != "" {
		needle := strings.ToLower(s.Search)
		if !strings.Contains(strings.ToLower(t.Title), needle) &&
			!strings.Contains(strings.ToLower(t.Description), needle) {
			return false
		}
	}
	return true
}

// compare returns <0, 0 or >0 ordering a before b ascending.
func compare(by SortField, a, b models.Task) int {
	switch by {
	case SortByDeadline:
		return a.Deadline.Compare(b.Deadline)
	case SortByPriority:
		return a.Priority.Rank() - b.Priority.Rank()
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

// Apply returns a new slice holding the tasks that match spec, ordered by
// spec. Filters are ANDed and applied before sorting. Ties keep their input
// order. Priority ascending means high, medium, low.
func Apply(tasks []models.Task, spec Spec) []models.Task {
	out := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		if spec.matches(t) {
			out = append(out, t)
		}
	}

	by := spec.SortBy
	if by == "" {
		by = SortByCreatedAt
	}
	desc := spec.SortOrder != Asc

	sort.SliceStable(out, func(i, j int) bool {
		c := compare(by, out[i], out[j])
		if desc {
			return c > 0
		}
		return c < 0
	})
	return out
}
