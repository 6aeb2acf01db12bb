package model

import "strings"

// Filter selects a subset of tasks for display.
type Filter string

const (
	FilterAll       Filter = "all"
	FilterPending   Filter = "pending"
	FilterCompleted Filter = "completed"
)

// ParseFilter normalizes user input. Unknown values are returned unchanged and
// match every task.
func ParseFilter(raw string) Filter {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" {
		return FilterAll
	}
	return Filter(value)
}

func (f Filter) Match(task Task) bool {
	switch f {
	case FilterPending:
		return task.Status == StatusPending
	case FilterCompleted:
		return task.Status == StatusCompleted
	default:
		return true
	}
}

// Apply returns the matching tasks in their original order.
func (f Filter) Apply(tasks []Task) []Task {
	out := make([]Task, 0, len(tasks))
	for _, task := range tasks {
		if f.Match(task) {
			out = append(out, task)
		}
	}
	return out
}

func (f Filter) Title() string {
	switch f {
	case FilterPending:
		return "Pending tasks"
	case FilterCompleted:
		return "Completed tasks"
	default:
		return "All tasks"
	}
}

// Counts holds per-filter totals.
type Counts struct {
	All       int
	Pending   int
	Completed int
}

func CountTasks(tasks []Task) Counts {
	counts := Counts{All: len(tasks)}
	for _, task := range tasks {
		switch task.Status {
		case StatusPending:
			counts.Pending++
		case StatusCompleted:
			counts.Completed++
		}
	}
	return counts
}

// Of returns the count shown next to a filter.
func (c Counts) Of(f Filter) int {
	switch f {
	case FilterPending:
		return c.Pending
	case FilterCompleted:
		return c.Completed
	default:
		return c.All
	}
}
