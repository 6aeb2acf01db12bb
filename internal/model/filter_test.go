package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTasks() []Task {
	return []Task{
		{ID: "1", Title: "a", Status: StatusPending},
		{ID: "2", Title: "b", Status: StatusCompleted},
		{ID: "3", Title: "c", Status: StatusPending},
		{ID: "4", Title: "d", Status: StatusCompleted},
		{ID: "5", Title: "e", Status: StatusCompleted},
	}
}

func TestFilter_Apply(t *testing.T) {
	tasks := sampleTasks()

	tests := []struct {
		filter Filter
		want   []ID
	}{
		{FilterAll, []ID{"1", "2", "3", "4", "5"}},
		{FilterPending, []ID{"1", "3"}},
		{FilterCompleted, []ID{"2", "4", "5"}},
		{Filter("archived"), []ID{"1", "2", "3", "4", "5"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.filter), func(t *testing.T) {
			got := tt.filter.Apply(tasks)
			ids := make([]ID, 0, len(got))
			for _, task := range got {
				ids = append(ids, task.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestFilter_ApplyIsIdempotent(t *testing.T) {
	for _, f := range []Filter{FilterAll, FilterPending, FilterCompleted} {
		once := f.Apply(sampleTasks())
		twice := f.Apply(once)
		assert.Equal(t, once, twice, "filter %s", f)
	}
}

func TestCountTasks(t *testing.T) {
	counts := CountTasks(sampleTasks())
	assert.Equal(t, Counts{All: 5, Pending: 2, Completed: 3}, counts)
	assert.Equal(t, counts.All, counts.Pending+counts.Completed)

	empty := CountTasks(nil)
	assert.Equal(t, Counts{}, empty)

	assert.Equal(t, 2, counts.Of(FilterPending))
	assert.Equal(t, 3, counts.Of(FilterCompleted))
	assert.Equal(t, 5, counts.Of(Filter("bogus")))
}

func TestFilter_Title(t *testing.T) {
	assert.Equal(t, "All tasks", FilterAll.Title())
	assert.Equal(t, "Pending tasks", FilterPending.Title())
	assert.Equal(t, "Completed tasks", FilterCompleted.Title())
	assert.Equal(t, "All tasks", Filter("").Title())
	assert.Equal(t, "All tasks", Filter("weird").Title())
}

func TestParseFilter(t *testing.T) {
	assert.Equal(t, FilterAll, ParseFilter(""))
	assert.Equal(t, FilterPending, ParseFilter(" Pending "))
	assert.Equal(t, Filter("other"), ParseFilter("other"))
}

func TestTaskForm_Validate(t *testing.T) {
	require.NoError(t, TaskForm{Title: "a", Description: "b"}.Validate())
	assert.ErrorIs(t, TaskForm{Title: "   ", Description: "b"}.Validate(), ErrTitleRequired)
	assert.ErrorIs(t, TaskForm{Title: "a", Description: "\t"}.Validate(), ErrDescriptionRequired)

	normalized := TaskForm{Title: "  a ", Description: " b\n"}.Normalize()
	assert.Equal(t, TaskForm{Title: "a", Description: "b"}, normalized)
}

func TestFormFromTask(t *testing.T) {
	form := FormFromTask(Task{Title: "t", Description: "d", Status: StatusCompleted})
	assert.Equal(t, TaskForm{Title: "t", Description: "d", Completed: true}, form)
}
