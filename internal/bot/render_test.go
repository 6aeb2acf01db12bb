package bot

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/controller"
	"taskboard/internal/model"
)

func TestRenderList(t *testing.T) {
	state := controller.State{
		Tasks: []model.Task{
			{ID: "1", Title: "<b>bold</b> & co", Description: "a < b", Status: model.StatusPending,
				UpdatedAt: model.NewTimestamp(time.Date(2025, 5, 1, 8, 30, 0, 0, time.UTC))},
			{ID: "2", Title: "done", Status: model.StatusCompleted},
		},
		ActiveFilter: model.FilterAll,
		Error:        "Title: bad <input>",
	}

	text := renderList(viewOf(state))

	assert.Contains(t, text, "📋 <b>All tasks</b>")
	assert.Contains(t, text, "All: 2 · Pending: 1 · Completed: 1")
	assert.Contains(t, text, "<b>Error!</b> Title: bad &lt;input&gt;")
	assert.Contains(t, text, "&lt;b&gt;bold&lt;/b&gt; &amp; co")
	assert.Contains(t, text, "a &lt; b")
	assert.Contains(t, text, "2025-05-01 08:30")
	assert.Contains(t, text, iconCompleted+" <b>#2</b> Done")
}

func TestRenderList_Empty(t *testing.T) {
	state := controller.State{
		Tasks:        []model.Task{{ID: "1", Title: "x", Status: model.StatusPending}},
		ActiveFilter: model.FilterCompleted,
		Loading:      true,
	}

	text := renderList(viewOf(state))

	assert.Contains(t, text, "Completed tasks")
	assert.Contains(t, text, "Loading...")
	assert.Contains(t, text, "No tasks here yet")
	assert.NotContains(t, text, "Error!")
}

func TestListKeyboard(t *testing.T) {
	state := controller.State{
		Tasks: []model.Task{
			{ID: "1", Title: "a", Status: model.StatusPending},
			{Title: "no id", Status: model.StatusPending},
			{ID: "3", Title: "c", Status: model.StatusCompleted},
		},
		ActiveFilter: model.FilterPending,
	}

	kb := listKeyboard(viewOf(state))

	require.Len(t, kb.InlineKeyboard, 2)
	row := kb.InlineKeyboard[0]
	require.Len(t, row, 2)
	require.NotNil(t, row[0].CallbackData)
	assert.Equal(t, cbEditPrefix+"1", *row[0].CallbackData)
	assert.Equal(t, cbDeletePrefix+"1", *row[1].CallbackData)

	filters := kb.InlineKeyboard[1]
	require.Len(t, filters, 3)
	assert.Equal(t, "All (3)", filters[0].Text)
	assert.Equal(t, "• Pending (2)", filters[1].Text)
	assert.Equal(t, "Completed (1)", filters[2].Text)
	assert.Equal(t, cbFilterPrefix+"completed", *filters[2].CallbackData)
}

func TestListKeyboard_UnknownFilterMarksAll(t *testing.T) {
	kb := listKeyboard(viewOf(controller.State{ActiveFilter: model.Filter("someday")}))

	filters := kb.InlineKeyboard[len(kb.InlineKeyboard)-1]
	assert.Equal(t, "• All (0)", filters[0].Text)
}

func TestRenderList_LongListIsCapped(t *testing.T) {
	tests := []struct {
		name  string
		tasks []model.Task
	}{
		{name: "many tasks", tasks: manyTasks(500, "task", "")},
		{name: "long descriptions", tasks: manyTasks(60, strings.Repeat("t", 1000), strings.Repeat("<d>", 2000))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := controller.State{Tasks: tt.tasks, ActiveFilter: model.FilterAll, Error: strings.Repeat("e", 5000)}

			view := viewOf(state)
			text := renderList(view)

			require.Positive(t, view.Hidden)
			assert.Len(t, view.Tasks, len(tt.tasks)-view.Hidden)
			assert.Equal(t, len(tt.tasks), view.Counts.All)
			assert.LessOrEqual(t, utf8.RuneCountInString(text), 4096)
			assert.True(t, strings.HasSuffix(text, fmt.Sprintf("…and %d more", view.Hidden)))

			buttons := 0
			for _, row := range listKeyboard(view).InlineKeyboard {
				buttons += len(row)
			}
			assert.LessOrEqual(t, buttons, 100)
		})
	}
}

func TestRenderList_ShortListNotCapped(t *testing.T) {
	view := viewOf(controller.State{Tasks: manyTasks(3, "task", "details"), ActiveFilter: model.FilterAll})

	assert.Zero(t, view.Hidden)
	assert.Len(t, view.Tasks, 3)
	assert.NotContains(t, renderList(view), "more")
}

func manyTasks(n int, title, description string) []model.Task {
	tasks := make([]model.Task, 0, n)
	for i := 0; i < n; i++ {
		tasks = append(tasks, model.Task{
			ID:          model.ID(fmt.Sprint(i + 1)),
			Title:       title,
			Description: description,
			Status:      model.StatusPending,
		})
	}
	return tasks
}

func TestParseYesNo(t *testing.T) {
	for _, in := range []string{"yes", "Y", " Yes ", "done"} {
		value, ok := parseYesNo(in)
		assert.True(t, ok, in)
		assert.True(t, value, in)
	}
	for _, in := range []string{"no", "N", "pending"} {
		value, ok := parseYesNo(in)
		assert.True(t, ok, in)
		assert.False(t, value, in)
	}
	_, ok := parseYesNo("perhaps")
	assert.False(t, ok)
}

func TestShortTitle(t *testing.T) {
	assert.Equal(t, "Short", shortTitle("short", 10))
	assert.Equal(t, "Line one…", shortTitle("line one\nline two", 9))
	assert.Equal(t, "", shortTitle("   ", 5))
}

func TestRenderSaved(t *testing.T) {
	text := renderSaved(model.TaskForm{Title: "a", Description: "b & c", Completed: true}, true)

	assert.Contains(t, text, "Task updated")
	assert.Contains(t, text, "b &amp; c")
	assert.Contains(t, text, "completed")
}
