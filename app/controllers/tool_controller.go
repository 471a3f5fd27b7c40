package controllers

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"todo-chat/app/services"
)

// ToolController exposes the tool catalogue for direct invocation.
type ToolController struct {
	Service *services.TaskService
	logger  *zap.Logger
}

// NewToolController creates a new ToolController.
func NewToolController(service *services.TaskService, logger *zap.Logger) *ToolController {
	return &ToolController{Service: service, logger: logger}
}

// List handles GET /tools.
func (c *ToolController) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, c.Service.Tools())
}

// Invoke handles POST /tools/{name}. The body is the argument object.
func (c *ToolController) Invoke(w http.ResponseWriter, r *http.Request) {
	ownerID, err := owner(r)
	if err != nil {
		writeError(w, r, c.logger, err)
		return
	}
	args := map[string]any{}
	if err := decodeJSON(r, &args); err != nil {
		writeError(w, r, c.logger, err)
		return
	}

	res := c.Service.Call(r.Context(), ownerID, mux.Vars(r)["name"], args)
	if res.Err != nil {
		writeError(w, r, c.logger, res.Err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Health handles GET /health.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
