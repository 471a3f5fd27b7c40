package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"todo-chat/app/intent"
	"todo-chat/app/models"
	"todo-chat/app/store"
)

// TaskService executes task operations on behalf of an authenticated owner.
// It is the only path from the chat flow and the REST handlers to the store.
type TaskService struct {
	store  store.TaskStore
	tools  map[string]*Tool
	logger *zap.Logger
}

// NewTaskService creates a new instance of TaskService.
func NewTaskService(st store.TaskStore, logger *zap.Logger) *TaskService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaskService{store: st, tools: compileTools(), logger: logger}
}

// TaskUpdate carries the fields of an update. Nil fields are left alone.
type TaskUpdate struct {
	Title       *string        `json:"title,omitempty"`
	Description *string        `json:"description,omitempty"`
	Status      *models.Status `json:"status,omitempty"`
}

func (u TaskUpdate) empty() bool {
	return u.Title == nil && u.Description == nil && u.Status == nil
}

// AddTask creates a pending task. The title is trimmed and capitalized.
func (s *TaskService) AddTask(ctx context.Context, ownerID, title, description string) (*models.Task, error) {
	title = models.NormalizeTitle(title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", models.ErrValidation)
	}
	task, err := s.store.CreateTask(ctx, &models.Task{
		OwnerID:     ownerID,
		Title:       title,
		Description: strings.TrimSpace(description),
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("task added", zap.String("owner", ownerID), zap.Int64("task_id", task.ID))
	return task, nil
}

// GetTask returns one of the owner's tasks.
func (s *TaskService) GetTask(ctx context.Context, ownerID string, id int64) (*models.Task, error) {
	return s.store.GetTask(ctx, ownerID, id)
}

// ListTasks returns the owner's tasks in creation order.
func (s *TaskService) ListTasks(ctx context.Context, ownerID string, filter models.StatusFilter) ([]models.Task, error) {
	filter, err := models.ParseStatusFilter(string(filter))
	if err != nil {
		return nil, err
	}
	return s.store.ListTasks(ctx, ownerID, filter)
}

// CompleteTask marks the task completed. Completing a completed task succeeds.
func (s *TaskService) CompleteTask(ctx context.Context, ownerID string, id int64) (*models.Task, error) {
	task, err := s.store.MutateTask(ctx, ownerID, id, func(t *models.Task) error {
		t.Status = models.StatusCompleted
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("task completed", zap.String("owner", ownerID), zap.Int64("task_id", id))
	return task, nil
}

// DeleteTask removes the task and returns what was removed.
func (s *TaskService) DeleteTask(ctx context.Context, ownerID string, id int64) (*models.Task, error) {
	task, err := s.store.DeleteTask(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("task deleted", zap.String("owner", ownerID), zap.Int64("task_id", id))
	return task, nil
}

// UpdateTask applies the supplied fields. An update with no fields fails with
// models.ErrNoOp before the store is touched.
func (s *TaskService) UpdateTask(ctx context.Context, ownerID string, id int64, upd TaskUpdate) (*models.Task, error) {
	if upd.empty() {
		return nil, fmt.Errorf("%w: no fields supplied for task %d", models.ErrNoOp, id)
	}
	var title string
	if upd.Title != nil {
		title = models.NormalizeTitle(*upd.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: title must not be empty", models.ErrValidation)
		}
	}
	if upd.Status != nil && !upd.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", models.ErrValidation, *upd.Status)
	}
	task, err := s.store.MutateTask(ctx, ownerID, id, func(t *models.Task) error {
		if upd.Title != nil {
			t.Title = title
		}
		if upd.Description != nil {
			t.Description = strings.TrimSpace(*upd.Description)
		}
		if upd.Status != nil {
			t.Status = *upd.Status
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("task updated", zap.String("owner", ownerID), zap.Int64("task_id", id))
	return task, nil
}

// Tools lists the catalogue sorted by name.
func (s *TaskService) Tools() []Tool {
	return sortedTools(s.tools)
}

// ToolResult is the outcome of one tool invocation. Err is set instead of
// Task/Tasks when the operation failed.
type ToolResult struct {
	Call  models.ToolCall
	Task  *models.Task
	Tasks []models.Task
	Err   error
}

// MarshalJSON always writes a tasks array for list_tasks, even when the
// list is empty. Other tools omit it.
func (r *ToolResult) MarshalJSON() ([]byte, error) {
	out := struct {
		Call  models.ToolCall `json:"call"`
		Task  *models.Task    `json:"task,omitempty"`
		Tasks *[]models.Task  `json:"tasks,omitempty"`
	}{Call: r.Call, Task: r.Task}
	if r.Call.Name == ToolListTasks && r.Err == nil {
		tasks := r.Tasks
		if tasks == nil {
			tasks = []models.Task{}
		}
		out.Tasks = &tasks
	}
	return json.Marshal(out)
}

// ErrUnknownTool is returned for names outside the catalogue.
var ErrUnknownTool = fmt.Errorf("%w: unknown tool", models.ErrNotFound)

type toolArgs struct {
	UserID      string  `json:"user_id"`
	TaskID      int64   `json:"task_id"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
}

// Call validates args against the named tool's schema and runs it. user_id is
// always replaced by ownerID so a caller can never act for someone else.
func (s *TaskService) Call(ctx context.Context, ownerID, name string, args map[string]any) *ToolResult {
	call := models.ToolCall{Name: name, Arguments: make(map[string]any, len(args)+1)}
	for k, v := range args {
		call.Arguments[k] = v
	}
	call.Arguments["user_id"] = ownerID
	res := &ToolResult{Call: call}

	tool, ok := s.tools[name]
	if !ok {
		res.Err = fmt.Errorf("%w %q", ErrUnknownTool, name)
		return res
	}
	var a toolArgs
	if err := tool.validate(call.Arguments, &a); err != nil {
		res.Err = err
		return res
	}

	switch name {
	case ToolAddTask:
		var desc string
		if a.Description != nil {
			desc = *a.Description
		}
		res.Task, res.Err = s.AddTask(ctx, ownerID, deref(a.Title), desc)
	case ToolListTasks:
		res.Tasks, res.Err = s.ListTasks(ctx, ownerID, models.StatusFilter(deref(a.Status)))
	case ToolCompleteTask:
		res.Task, res.Err = s.CompleteTask(ctx, ownerID, a.TaskID)
	case ToolDeleteTask:
		res.Task, res.Err = s.DeleteTask(ctx, ownerID, a.TaskID)
	case ToolUpdateTask:
		upd := TaskUpdate{Title: a.Title, Description: a.Description}
		if a.Status != nil {
			st := models.Status(*a.Status)
			upd.Status = &st
		}
		res.Task, res.Err = s.UpdateTask(ctx, ownerID, a.TaskID, upd)
	}
	if res.Err != nil && models.CodeOf(res.Err) == models.CodeInternal {
		s.logger.Error("tool failed", zap.String("tool", name), zap.String("owner", ownerID), zap.Error(res.Err))
	}
	return res
}

// Dispatch runs the tool an intent maps to. It returns nil when the intent
// needs clarification or maps to no tool.
func (s *TaskService) Dispatch(ctx context.Context, ownerID string, in intent.Intent) *ToolResult {
	if in.NeedsClarification() {
		return nil
	}
	switch in.Kind {
	case intent.KindAdd:
		return s.Call(ctx, ownerID, ToolAddTask, map[string]any{"title": in.Title})
	case intent.KindList:
		filter := in.StatusFilter
		if filter == "" {
			filter = models.FilterAll
		}
		return s.Call(ctx, ownerID, ToolListTasks, map[string]any{"status": string(filter)})
	case intent.KindComplete:
		return s.Call(ctx, ownerID, ToolCompleteTask, map[string]any{"task_id": *in.TaskID})
	case intent.KindDelete:
		return s.Call(ctx, ownerID, ToolDeleteTask, map[string]any{"task_id": *in.TaskID})
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
