package service

import (
	"context"
	"net/http"

	"taskboard/internal/api"
	"taskboard/internal/model"
)

// TaskService maps task operations onto the REST endpoints of the task API.
type TaskService struct {
	client *api.Client
}

func NewTaskService(client *api.Client) *TaskService {
	return &TaskService{client: client}
}

// List fetches every task visible to the current token.
func (s *TaskService) List(ctx context.Context) api.Result {
	return s.client.Do(ctx, http.MethodGet, "", nil)
}

func (s *TaskService) Create(ctx context.Context, task model.Task) api.Result {
	return s.client.Do(ctx, http.MethodPost, "", task)
}

// Update sends the full record, not a patch.
func (s *TaskService) Update(ctx context.Context, id model.ID, task model.Task) api.Result {
	return s.client.Do(ctx, http.MethodPut, id.String(), task)
}

func (s *TaskService) Delete(ctx context.Context, id model.ID) api.Result {
	return s.client.Do(ctx, http.MethodDelete, id.String(), nil)
}
