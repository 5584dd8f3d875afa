package tasklist

import (
	"testing"

	"github.com/chetan-code/tasktracker/internal/models"
	"github.com/stretchr/testify/assert"
)

func sampleTasks() []models.Task {
	return []models.Task{
		{ID: "1", Title: "Buy milk", Completed: false},
		{ID: "2", Title: "Pay rent", Completed: true},
		{ID: "3", Title: "buy BREAD", Completed: true},
	}
}

func TestProject(t *testing.T) {
	tests := []struct {
		name   string
		search string
		status Status
		want   []string
	}{
		{"all no search", "", All, []string{"1", "2", "3"}},
		{"completed", "", Completed, []string{"2", "3"}},
		{"pending", "", Pending, []string{"1"}},
		{"search ignores case", "BUY", All, []string{"1", "3"}},
		{"search and status", "buy", Completed, []string{"3"}},
		{"no match", "walk dog", All, []string{}},
		{"inner substring", "ent", All, []string{"2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Project(sampleTasks(), tt.search, tt.status)
			ids := make([]string, 0, len(got))
			for _, task := range got {
				ids = append(ids, task.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestProject_Scenarios(t *testing.T) {
	tasks := []models.Task{
		{Title: "Buy milk", Completed: false},
		{Title: "Pay rent", Completed: true},
	}

	assert.Equal(t,
		[]models.Task{{Title: "Pay rent", Completed: true}},
		Project(tasks, "", Completed))

	assert.Equal(t,
		[]models.Task{{Title: "Buy milk", Completed: false}},
		Project(tasks, "buy", All))
}

func TestProject_IsPure(t *testing.T) {
	tasks := sampleTasks()
	before := sampleTasks()

	first := Project(tasks, "b", All)
	second := Project(tasks, "b", All)

	assert.Equal(t, first, second)
	assert.Equal(t, before, tasks)
}

func TestParseStatus(t *testing.T) {
	assert.Equal(t, All, ParseStatus(""))
	assert.Equal(t, All, ParseStatus("All"))
	assert.Equal(t, All, ParseStatus("bogus"))
	assert.Equal(t, Pending, ParseStatus("pending"))
	assert.Equal(t, Completed, ParseStatus("Completed"))
	assert.Equal(t, Completed, ParseStatus("done"))
}

func TestCount(t *testing.T) {
	assert.Equal(t, Stats{Total: 3, Completed: 2, Pending: 1}, Count(sampleTasks()))
	assert.Equal(t, Stats{}, Count(nil))
}
