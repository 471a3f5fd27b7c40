// Package store defines the persistence contracts for tasks and conversations.
// Every backend enforces owner isolation itself: reads and mutations of a row
// owned by someone else fail with models.ErrUnauthorized, missing rows with
// models.ErrNotFound.
package store

import (
	"context"

	"todo-chat/app/models"
)

// TaskMutation edits a task in place inside the store's transaction. Returning
// an error aborts the write.
type TaskMutation func(t *models.Task) error

// TaskStore persists tasks.
type TaskStore interface {
	// CreateTask assigns ID, timestamps and the pending status.
	CreateTask(ctx context.Context, t *models.Task) (*models.Task, error)
	GetTask(ctx context.Context, ownerID string, id int64) (*models.Task, error)
	// ListTasks returns the owner's tasks in creation order.
	ListTasks(ctx context.Context, ownerID string, filter models.StatusFilter) ([]models.Task, error)
	// MutateTask checks existence and ownership, applies fn, bumps UpdatedAt
	// and writes the row, all in one transaction.
	MutateTask(ctx context.Context, ownerID string, id int64, fn TaskMutation) (*models.Task, error)
	// DeleteTask checks and deletes atomically and returns the removed task.
	DeleteTask(ctx context.Context, ownerID string, id int64) (*models.Task, error)
}

// ConversationStore persists conversations and their append-only messages.
type ConversationStore interface {
	CreateConversation(ctx context.Context, ownerID string) (*models.Conversation, error)
	GetConversation(ctx context.Context, ownerID string, id int64) (*models.Conversation, error)
	// ListConversations returns the owner's conversations, most recently updated first.
	ListConversations(ctx context.Context, ownerID string) ([]models.Conversation, error)
	// TouchConversation bumps UpdatedAt.
	TouchConversation(ctx context.Context, ownerID string, id int64) error
	AppendMessage(ctx context.Context, m *models.Message) (*models.Message, error)
	// ListMessages returns the conversation ordered by (CreatedAt, ID).
	ListMessages(ctx context.Context, ownerID string, conversationID int64) ([]models.Message, error)
}

// Store is a complete backend.
type Store interface {
	TaskStore
	ConversationStore
	// EnsureSchema creates tables, indexes or constraints if missing.
	EnsureSchema(ctx context.Context) error
	Close() error
}
