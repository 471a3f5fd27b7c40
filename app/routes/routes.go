package routes

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"todo-chat/app/controllers"
	"todo-chat/app/middleware"
)

// Controllers groups the handlers mounted by RegisterRoutes.
type Controllers struct {
	Chat  *controllers.ChatController
	Tasks *controllers.TaskController
	Tools *controllers.ToolController
}

// RegisterRoutes sets up all routes for the application. Everything except
// /health requires a bearer token.
func RegisterRoutes(router *mux.Router, c Controllers, auth middleware.Authenticator, logger *zap.Logger) {
	router.Use(middleware.RequestID, middleware.AccessLog(logger), middleware.Recover(logger))

	router.HandleFunc("/health", controllers.Health).Methods(http.MethodGet)

	api := router.NewRoute().Subrouter()
	api.Use(middleware.Auth(auth))

	api.HandleFunc("/chat", c.Chat.Send).Methods(http.MethodPost)
	api.HandleFunc("/chat", c.Chat.History).Methods(http.MethodGet)
	api.HandleFunc("/conversations", c.Chat.Conversations).Methods(http.MethodGet)
	api.HandleFunc("/conversations/{conversationID}/messages", c.Chat.Messages).Methods(http.MethodGet)

	api.HandleFunc("/tasks", c.Tasks.GetTasks).Methods(http.MethodGet)
	api.HandleFunc("/tasks", c.Tasks.CreateTask).Methods(http.MethodPost)
	api.HandleFunc("/tasks/{taskID}", c.Tasks.GetTaskByID).Methods(http.MethodGet)
	api.HandleFunc("/tasks/{taskID}", c.Tasks.UpdateTask).Methods(http.MethodPatch)
	api.HandleFunc("/tasks/{taskID}", c.Tasks.DeleteTask).Methods(http.MethodDelete)
	api.HandleFunc("/tasks/{taskID}/complete", c.Tasks.CompleteTask).Methods(http.MethodPost)

	api.HandleFunc("/tools", c.Tools.List).Methods(http.MethodGet)
	api.HandleFunc("/tools/{name}", c.Tools.Invoke).Methods(http.MethodPost)
}
