package tasklist

import (
	"strings"

	"github.com/chetan-code/tasktracker/internal/models"
)

type Status string

const (
	All       Status = "All"
	Pending   Status = "Pending"
	Completed Status = "Completed"
)

// ParseStatus maps a query value to a Status. Anything unrecognised is All.
func ParseStatus(s string) Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending":
		return Pending
	case "completed", "done":
		return Completed
	default:
		return All
	}
}

func (s Status) match(t models.Task) bool {
	switch s {
	case Completed:
		return t.Completed
	case Pending:
		return !t.Completed
	default:
		return true
	}
}

// Project returns the tasks whose title contains search, ignoring case,
// and that pass status. Order is preserved and tasks is not modified.
func Project(tasks []models.Task, search string, status Status) []models.Task {
	needle := strings.ToLower(search)
	out := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		if !strings.Contains(strings.ToLower(t.Title), needle) {
			continue
		}
		if !status.match(t) {
			continue
		}
		out = append(out, t)
	}
	return out
}

type Stats struct {
	Total     int
	Completed int
	Pending   int
}

func Count(tasks []models.Task) Stats {
	var st Stats
	for _, t := range tasks {
		st.Total++
		if t.Completed {
			st.Completed++
		} else {
			st.Pending++
		}
	}
	return st
}
