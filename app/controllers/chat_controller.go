package controllers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"todo-chat/app/models"
	"todo-chat/app/services"
)

// ChatController handles the chat endpoint and conversation history.
type ChatController struct {
	Chat   *services.ChatService
	Tasks  *services.TaskService
	logger *zap.Logger
}

// NewChatController creates a new ChatController.
func NewChatController(chat *services.ChatService, tasks *services.TaskService, logger *zap.Logger) *ChatController {
	return &ChatController{Chat: chat, Tasks: tasks, logger: logger}
}

type chatRequest struct {
	ConversationID *int64 `json:"conversation_id"`
	Message        string `json:"message"`
}

// Send handles POST /chat.
func (c *ChatController) Send(w http.ResponseWriter, r *http.Request) {
	ownerID, err := owner(r)
	if err != nil {
		writeError(w, r, c.logger, err)
		return
	}
	var body chatRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, c.logger, err)
		return
	}

	ex, err := c.Chat.Send(r.Context(), services.ChatRequest{
		OwnerID:        ownerID,
		ConversationID: body.ConversationID,
		Message:        body.Message,
	})
	if err != nil {
		writeError(w, r, c.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ex)
}

type legacyEntry struct {
	TaskID    int64         `json:"task_id"`
	Title     string        `json:"title"`
	Status    models.Status `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
}

type legacyHistory struct {
	UserID              string        `json:"user_id"`
	ConversationHistory []legacyEntry `json:"conversation_history"`
	Stateless           bool          `json:"stateless"`
}

// History handles GET /chat. Older clients rebuild their view from the
// owner's tasks rather than from stored messages.
func (c *ChatController) History(w http.ResponseWriter, r *http.Request) {
	ownerID, err := owner(r)
	if err != nil {
		writeError(w, r, c.logger, err)
		return
	}
	tasks, err := c.Tasks.ListTasks(r.Context(), ownerID, models.FilterAll)
	if err != nil {
		writeError(w, r, c.logger, err)
		return
	}
	out := legacyHistory{UserID: ownerID, ConversationHistory: make([]legacyEntry, 0, len(tasks)), Stateless: true}
	for _, t := range tasks {
		out.ConversationHistory = append(out.ConversationHistory, legacyEntry{
			TaskID:    t.ID,
			Title:     t.Title,
			Status:    t.Status,
			CreatedAt: t.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// Conversations handles GET /conversations.
func (c *ChatController) Conversations(w http.ResponseWriter, r *http.Request) {
	ownerID, err := owner(r)
	if err != nil {
		writeError(w, r, c.logger, err)
		return
	}
	convs, err := c.Chat.Conversations(r.Context(), ownerID)
	if err != nil {
		writeError(w, r, c.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, convs)
}

// Messages handles GET /conversations/{conversationID}/messages.
func (c *ChatController) Messages(w http.ResponseWriter, r *http.Request) {
	ownerID, err := owner(r)
	if err != nil {
		writeError(w, r, c.logger, err)
		return
	}
	id, err := pathID(r, "conversationID")
	if err != nil {
		writeError(w, r, c.logger, err)
		return
	}
	msgs, err := c.Chat.History(r.Context(), ownerID, id)
	if err != nil {
		writeError(w, r, c.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}
