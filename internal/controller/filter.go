package controller

import (
	"strings"

	"taskboard/internal/domain"
	"taskboard/internal/fault"
)

type StatusFilter string

const (
	StatusAll       StatusFilter = "all"
	StatusActive    StatusFilter = "active"
	StatusCompleted StatusFilter = "completed"
)

func ParseStatusFilter(s string) (StatusFilter, error) {
	switch f := StatusFilter(strings.ToLower(strings.TrimSpace(s))); f {
	case "", StatusAll:
		return StatusAll, nil
	case StatusActive, StatusCompleted:
		return f, nil
	}
	return "", fault.Validationf("invalid status filter %q (want all, active or completed)", s)
}

// ParsePriorityFilter maps "all" or "" to the empty priority, meaning no filter.
func ParsePriorityFilter(s string) (domain.Priority, error) {
	if v := strings.ToLower(strings.TrimSpace(s)); v == "" || v == "all" {
		return "", nil
	}
	return domain.ParsePriority(s)
}

// TaskFilter is the set of predicates over the task collection. Zero values
// disable a predicate.
type TaskFilter struct {
	Search     string          `json:"search,omitempty"`
	Status     StatusFilter    `json:"status,omitempty"`
	Priority   domain.Priority `json:"priority,omitempty"`
	CategoryID *int64          `json:"categoryId,omitempty"`
}

// Active reports whether any predicate narrows the view.
func (f TaskFilter) Active() bool {
	return strings.TrimSpace(f.Search) != "" ||
		(f.Status != "" && f.Status != StatusAll) ||
		f.Priority != "" ||
		f.CategoryID != nil
}

func (f TaskFilter) matchText(t domain.Task) bool {
	q := strings.ToLower(strings.TrimSpace(f.Search))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(t.Title), q) || strings.Contains(strings.ToLower(t.Description), q)
}

func (f TaskFilter) matchStatus(t domain.Task) bool {
	switch f.Status {
	case StatusActive:
		return !t.Completed
	case StatusCompleted:
		return t.Completed
	}
	return true
}

func (f TaskFilter) matchPriority(t domain.Task) bool {
	return f.Priority == "" || t.Priority == f.Priority
}

func (f TaskFilter) matchCategory(t domain.Task) bool {
	return f.CategoryID == nil || t.InCategory(*f.CategoryID)
}

// Apply derives the visible view from the full collection. Predicates run in
// the order text, status, priority, category; the result is always rebuilt from
// tasks.
func Apply(tasks []domain.Task, f TaskFilter) []domain.Task {
	preds := []func(domain.Task) bool{f.matchText, f.matchStatus, f.matchPriority, f.matchCategory}
	out := make([]domain.Task, 0, len(tasks))
	for _, t := range tasks {
		keep := true
		for _, p := range preds {
			if !p(t) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, t)
		}
	}
	return out
}

// Split partitions tasks into active and completed, preserving order.
func Split(tasks []domain.Task) (active, completed []domain.Task) {
	active = make([]domain.Task, 0, len(tasks))
	completed = make([]domain.Task, 0)
	for _, t := range tasks {
		if t.Completed {
			completed = append(completed, t)
		} else {
			active = append(active, t)
		}
	}
	return active, completed
}

// CategoryCounts counts tasks per category over the given collection, which
// callers pass unfiltered. Tasks without a category are counted in uncategorized.
func CategoryCounts(tasks []domain.Task) (counts map[int64]int, uncategorized int) {
	counts = make(map[int64]int)
	for _, t := range tasks {
		if t.CategoryID == nil {
			uncategorized++
			continue
		}
		counts[*t.CategoryID]++
	}
	return counts, uncategorized
}

// WithCounts returns a copy of categories whose TaskCount is taken from counts.
func WithCounts(categories []domain.Category, counts map[int64]int) []domain.Category {
	out := make([]domain.Category, len(categories))
	for i, c := range categories {
		c.TaskCount = counts[c.ID]
		out[i] = c
	}
	return out
}

// ProjectFilter narrows the project list. An empty Status means all statuses.
type ProjectFilter struct {
	Search string               `json:"search,omitempty"`
	Status domain.ProjectStatus `json:"status,omitempty"`
}

func (f ProjectFilter) Active() bool {
	return strings.TrimSpace(f.Search) != "" || f.Status != ""
}

// ParseProjectStatusFilter maps "all" or "" to the empty status.
func ParseProjectStatusFilter(s string) (domain.ProjectStatus, error) {
	if v := strings.ToLower(strings.TrimSpace(s)); v == "" || v == "all" {
		return "", nil
	}
	return domain.ParseProjectStatus(s)
}

// ApplyProjects matches the search text against name, description and tags,
// case-insensitively, then the status.
func ApplyProjects(projects []domain.Project, f ProjectFilter) []domain.Project {
	q := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]domain.Project, 0, len(projects))
	for _, p := range projects {
		if q != "" && !projectMatches(p, q) {
			continue
		}
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		out = append(out, p)
	}
	return out
}

func projectMatches(p domain.Project, q string) bool {
	if strings.Contains(strings.ToLower(p.Name), q) || strings.Contains(strings.ToLower(p.Description), q) {
		return true
	}
	for _, tag := range p.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}
