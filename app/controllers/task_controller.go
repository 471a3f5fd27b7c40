package controllers

import (
	"net/http"

	"go.uber.org/zap"

	"todo-chat/app/models"
	"todo-chat/app/services"
)

// TaskController handles HTTP requests for tasks.
type TaskController struct {
	Service *services.TaskService
	logger  *zap.Logger
}

// NewTaskController creates a new TaskController.
func NewTaskController(service *services.TaskService, logger *zap.Logger) *TaskController {
	return &TaskController{Service: service, logger: logger}
}

// GetTasks handles GET /tasks?status=.
func (c *TaskController) GetTasks(w http.ResponseWriter, r *http.Request) {
	ownerID, err := owner(r)
	if err != nil {
		writeError(w, r, c.logger, err)
		return
	}
	filter, err := models.ParseStatusFilter(r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, r, c.logger, err)
		return
	}
	tasks, err := c.Service.ListTasks(r.Context(), ownerID, filter)
	if err != nil {
		writeError(w, r, c.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// CreateTask handles POST /tasks.
func (c *TaskController) CreateTask(w http.ResponseWriter, r *http.Request) {
	ownerID, err := owner(r)
	if err != nil {
		writeError(w, r, c.logger, err)
		return
	}
	var body struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, c.logger, err)
		return
	}

	task, err := c.Service.AddTask(r.Context(), ownerID, body.Title, body.Description)
	if err != nil {
		writeError(w, r, c.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

// GetTaskByID handles GET /tasks/{taskID}.
func (c *TaskController) GetTaskByID(w http.ResponseWriter, r *http.Request) {
	c.withTask(w, r, func(ownerID string, id int64) (*models.Task, error) {
		return c.Service.GetTask(r.Context(), ownerID, id)
	})
}

// UpdateTask handles PATCH /tasks/{taskID}.
func (c *TaskController) UpdateTask(w http.ResponseWriter, r *http.Request) {
	var upd services.TaskUpdate
	if err := decodeJSON(r, &upd); err != nil {
		writeError(w, r, c.logger, err)
		return
	}
	c.withTask(w, r, func(ownerID string, id int64) (*models.Task, error) {
		return c.Service.UpdateTask(r.Context(), ownerID, id, upd)
	})
}

// CompleteTask handles POST /tasks/{taskID}/complete.
func (c *TaskController) CompleteTask(w http.ResponseWriter, r *http.Request) {
	c.withTask(w, r, func(ownerID string, id int64) (*models.Task, error) {
		return c.Service.CompleteTask(r.Context(), ownerID, id)
	})
}

// DeleteTask handles DELETE /tasks/{taskID}.
func (c *TaskController) DeleteTask(w http.ResponseWriter, r *http.Request) {
	ownerID, err := owner(r)
	if err != nil {
		writeError(w, r, c.logger, err)
		return
	}
	id, err := pathID(r, "taskID")
	if err != nil {
		writeError(w, r, c.logger, err)
		return
	}
	if _, err := c.Service.DeleteTask(r.Context(), ownerID, id); err != nil {
		writeError(w, r, c.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *TaskController) withTask(w http.ResponseWriter, r *http.Request, fn func(ownerID string, id int64) (*models.Task, error)) {
	ownerID, err := owner(r)
	if err != nil {
		writeError(w, r, c.logger, err)
		return
	}
	id, err := pathID(r, "taskID")
	if err != nil {
		writeError(w, r, c.logger, err)
		return
	}
	task, err := fn(ownerID, id)
	if err != nil {
		writeError(w, r, c.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}
