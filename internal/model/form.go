package model

import (
	"errors"
	"strings"
)

var (
	ErrTitleRequired       = errors.New("title is required")
	ErrDescriptionRequired = errors.New("description is required")
)

// TaskForm is what the user submits when creating or editing a task.
type TaskForm struct {
	Title       string
	Description string
	Completed   bool
}

// FormFromTask pre-fills the form for editing.
func FormFromTask(task Task) TaskForm {
	return TaskForm{
		Title:       task.Title,
		Description: task.Description,
		Completed:   task.Status.Completed(),
	}
}

func (f TaskForm) Normalize() TaskForm {
	f.Title = strings.TrimSpace(f.Title)
	f.Description = strings.TrimSpace(f.Description)
	return f
}

func (f TaskForm) Validate() error {
	if strings.TrimSpace(f.Title) == "" {
		return ErrTitleRequired
	}
	if strings.TrimSpace(f.Description) == "" {
		return ErrDescriptionRequired
	}
	return nil
}
