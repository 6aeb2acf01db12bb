// Package controller owns the client-side task state for one screen: the task
// collection, the active filter, the create/edit modal, the loading flag and
// the single error slot. Mutations round-trip through the remote API and are
// reconciled into the local collection only when the API reports success.
package controller

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"taskboard/internal/api"
	"taskboard/internal/model"
)

// DefaultErrorTTL is how long an error stays visible unless dismissed.
const DefaultErrorTTL = 5 * time.Second

// TaskAPI is the remote side of the controller.
type TaskAPI interface {
	List(ctx context.Context) api.Result
	Create(ctx context.Context, task model.Task) api.Result
	Update(ctx context.Context, id model.ID, task model.Task) api.Result
	Delete(ctx context.Context, id model.ID) api.Result
}

// State is what the presentation layer renders.
type State struct {
	Tasks        []model.Task
	ActiveFilter model.Filter
	ModalOpen    bool
	Editing      *model.Task
	Loading      bool
	Error        string
}

// Option configures a Controller.
type Option func(*Controller)

// WithErrorTTL sets how long an error stays visible. Non-positive values are ignored.
func WithErrorTTL(ttl time.Duration) Option {
	return func(c *Controller) {
		if ttl > 0 {
			c.errorTTL = ttl
		}
	}
}

// WithClock replaces time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// Controller is safe for concurrent use. The mutex is never held while a
// request is in flight, so overlapping operations interleave their Loading
// transitions and the last response to resolve wins.
type Controller struct {
	api      TaskAPI
	logger   zerolog.Logger
	errorTTL time.Duration
	now      func() time.Time

	mu         sync.Mutex
	state      State
	errorTimer *time.Timer
	errorGen   uint64
	closed     bool
}

// New returns a controller with an empty collection and the "all" filter.
func New(taskAPI TaskAPI, logger zerolog.Logger, opts ...Option) *Controller {
	c := &Controller{
		api:      taskAPI,
		logger:   logger.With().Str("component", "controller").Logger(),
		errorTTL: DefaultErrorTTL,
		now:      time.Now,
		state: State{
			Tasks:        []model.Task{},
			ActiveFilter: model.FilterAll,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load fetches the task list. Failures leave an empty collection and are only
// logged: an unreachable API reads as "no tasks", never as a page error.
func (c *Controller) Load(ctx context.Context) {
	if !c.begin() {
		return
	}
	res := c.api.List(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.state.Loading = false

	if res.Failed() {
		c.logger.Error().Err(res.Failure).Msg("failed to fetch tasks")
		c.state.Tasks = []model.Task{}
		return
	}

	tasks, ok := decodeTaskList(res.Payload, c.logger)
	if !ok {
		c.logger.Warn().Str("payload", abbreviate(res.Payload)).Msg("unexpected task list shape")
	}
	c.state.Tasks = tasks
	c.logger.Debug().Int("count", len(tasks)).Msg("fetched tasks")
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	snapshot := c.state
	snapshot.Tasks = append([]model.Task(nil), c.state.Tasks...)
	if c.state.Editing != nil {
		editing := *c.state.Editing
		snapshot.Editing = &editing
	}
	return snapshot
}

// SetFilter changes the active filter. Unknown values show every task.
func (c *Controller) SetFilter(filter model.Filter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.ActiveFilter = filter
}

// FilteredTasks derives the visible tasks from the active filter.
func (c *Controller) FilteredTasks() []model.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.ActiveFilter.Apply(c.state.Tasks)
}

// Counts returns per-filter totals over the whole collection.
func (c *Controller) Counts() model.Counts {
	c.mu.Lock()
	defer c.mu.Unlock()
	return model.CountTasks(c.state.Tasks)
}

func (c *Controller) FilterTitle() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.ActiveFilter.Title()
}

// Task looks a task up by id.
func (c *Controller) Task(id model.ID) (model.Task, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, task := range c.state.Tasks {
		if task.ID == id {
			return task, true
		}
	}
	return model.Task{}, false
}

func (c *Controller) OpenCreate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Editing = nil
	c.state.ModalOpen = true
}

func (c *Controller) OpenEdit(task model.Task) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Editing = &task
	c.state.ModalOpen = true
}

func (c *Controller) CloseModal() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeModalLocked()
}

// Submit validates the form and creates a task, or updates the task being
// edited. It returns false when the form was rejected locally; no request is
// sent and the modal stays open in that case.
func (c *Controller) Submit(ctx context.Context, form model.TaskForm) bool {
	form = form.Normalize()
	if err := form.Validate(); err != nil {
		c.logger.Debug().Err(err).Msg("submission rejected")
		return false
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	var editing *model.Task
	if c.state.Editing != nil {
		task := *c.state.Editing
		editing = &task
	}
	c.state.Loading = true
	now := model.NewTimestamp(c.now())
	c.mu.Unlock()

	if editing != nil {
		c.update(ctx, *editing, form, now)
	} else {
		c.create(ctx, form, now)
	}
	return true
}

func (c *Controller) create(ctx context.Context, form model.TaskForm, now model.Timestamp) {
	task := model.Task{
		Title:       form.Title,
		Description: form.Description,
		Status:      model.StatusFromBool(form.Completed),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	res := c.api.Create(ctx, task)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.state.Loading = false

	if res.Failed() {
		c.failLocked(opCreate, res.Failure)
		return
	}

	created := decodeCreatedTask(res.Payload, task)
	c.state.Tasks = upsertTask(c.state.Tasks, created)
	c.closeModalLocked()
	c.clearErrorLocked()
	c.logger.Info().Str("task_id", created.ID.String()).Msg("created task")
}

func (c *Controller) update(ctx context.Context, editing model.Task, form model.TaskForm, now model.Timestamp) {
	updated := editing
	updated.Title = form.Title
	updated.Description = form.Description
	updated.Status = model.StatusFromBool(form.Completed)
	updated.UpdatedAt = now
	if !editing.CreatedAt.Time.IsZero() && now.Time.Before(editing.CreatedAt.Time) {
		updated.UpdatedAt = editing.CreatedAt
	}

	if editing.ID.IsZero() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.closed {
			return
		}
		c.state.Loading = false
		c.logger.Error().Msg("cannot update a task without an id")
		c.failLocked(opUpdate, nil)
		return
	}

	res := c.api.Update(ctx, editing.ID, updated)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.state.Loading = false

	if res.Failed() {
		c.failLocked(opUpdate, res.Failure)
		return
	}

	for i := range c.state.Tasks {
		if c.state.Tasks[i].ID == editing.ID {
			c.state.Tasks[i] = updated
		}
	}
	c.closeModalLocked()
	c.clearErrorLocked()
	c.logger.Info().Str("task_id", editing.ID.String()).Msg("updated task")
}

// Delete removes a task remotely and, on success, locally. It reports whether
// the API accepted the deletion.
func (c *Controller) Delete(ctx context.Context, id model.ID) bool {
	if !c.begin() {
		return false
	}
	res := c.api.Delete(ctx, id)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.state.Loading = false

	if res.Failed() {
		c.failLocked(opDelete, res.Failure)
		return false
	}

	kept := c.state.Tasks[:0:0]
	for _, task := range c.state.Tasks {
		if task.ID != id {
			kept = append(kept, task)
		}
	}
	c.state.Tasks = kept
	c.clearErrorLocked()
	c.logger.Info().Str("task_id", id.String()).Msg("deleted task")
	return true
}

// ClearError dismisses the current error and cancels its expiry.
func (c *Controller) ClearError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearErrorLocked()
}

// Close tears the controller down. Requests still in flight are not cancelled
// but their results are dropped.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.stopTimerLocked()
	c.state = State{Tasks: []model.Task{}, ActiveFilter: model.FilterAll}
}

// Closed reports whether Close was called.
func (c *Controller) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Controller) begin() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.state.Loading = true
	return true
}

func (c *Controller) closeModalLocked() {
	c.state.ModalOpen = false
	c.state.Editing = nil
}

func (c *Controller) failLocked(op operation, failure *api.Failure) {
	if failure != nil {
		c.logger.Error().Err(failure).Str("operation", op.String()).Msg("task operation failed")
	}
	c.setErrorLocked(failureMessage(op, failure))
}

// setErrorLocked replaces the visible error and restarts its expiry.
func (c *Controller) setErrorLocked(message string) {
	c.stopTimerLocked()
	c.errorGen++
	gen := c.errorGen
	c.state.Error = message
	c.errorTimer = time.AfterFunc(c.errorTTL, func() {
		c.expireError(gen)
	})
}

func (c *Controller) expireError(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || gen != c.errorGen {
		return
	}
	c.state.Error = ""
	c.errorTimer = nil
}

func (c *Controller) clearErrorLocked() {
	c.stopTimerLocked()
	c.errorGen++
	c.state.Error = ""
}

func (c *Controller) stopTimerLocked() {
	if c.errorTimer != nil {
		c.errorTimer.Stop()
		c.errorTimer = nil
	}
}

// upsertTask appends task, replacing an existing record with the same id.
func upsertTask(tasks []model.Task, task model.Task) []model.Task {
	if !task.ID.IsZero() {
		for i := range tasks {
			if tasks[i].ID == task.ID {
				tasks[i] = task
				return tasks
			}
		}
	}
	return append(tasks, task)
}
