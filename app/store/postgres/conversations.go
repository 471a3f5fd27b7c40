package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"todo-chat/app/models"
)

const conversationColumns = `id, owner_id, created_at, updated_at`

func getConversation(ctx context.Context, q interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}, ownerID string, id int64, lock bool) (*models.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}
	var c models.Conversation
	err := q.QueryRow(ctx, query, id).Scan(&c.ID, &c.OwnerID, &c.CreatedAt, &c.UpdatedAt)
	if err := owned(err, "conversation", id, ownerID, c.OwnerID); err != nil {
		return nil, err
	}
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return &c, nil
}

// CreateConversation starts a new conversation for the owner.
func (s *Store) CreateConversation(ctx context.Context, ownerID string) (*models.Conversation, error) {
	ts := now()
	c := models.Conversation{OwnerID: ownerID, CreatedAt: ts, UpdatedAt: ts}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO conversations (owner_id, created_at, updated_at) VALUES ($1, $2, $2) RETURNING id`,
		ownerID, ts).Scan(&c.ID)
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return &c, nil
}

// GetConversation returns one of the owner's conversations.
func (s *Store) GetConversation(ctx context.Context, ownerID string, id int64) (*models.Conversation, error) {
	return getConversation(ctx, s.pool, ownerID, id, false)
}

// ListConversations returns the owner's conversations, newest activity first.
func (s *Store) ListConversations(ctx context.Context, ownerID string) ([]models.Conversation, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+conversationColumns+` FROM conversations
		WHERE owner_id = $1 ORDER BY updated_at DESC, id DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	convs := []models.Conversation{}
	for rows.Next() {
		var c models.Conversation
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("list conversations: %w", err)
		}
		c.CreatedAt = c.CreatedAt.UTC()
		c.UpdatedAt = c.UpdatedAt.UTC()
		convs = append(convs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration: %w", err)
	}
	return convs, nil
}

// TouchConversation bumps updated_at.
func (s *Store) TouchConversation(ctx context.Context, ownerID string, id int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("touch conversation %d: %w", id, err)
	}
	defer tx.Rollback(ctx)

	if _, err := getConversation(ctx, tx, ownerID, id, true); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `UPDATE conversations SET updated_at = $1 WHERE id = $2`, now(), id); err != nil {
		return fmt.Errorf("touch conversation %d: %w", id, err)
	}
	return tx.Commit(ctx)
}

// AppendMessage adds a message to a conversation the message's owner holds.
func (s *Store) AppendMessage(ctx context.Context, m *models.Message) (*models.Message, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}
	defer tx.Rollback(ctx)

	// Locking the conversation row keeps concurrent appends in write order.
	if _, err := getConversation(ctx, tx, m.OwnerID, m.ConversationID, true); err != nil {
		return nil, err
	}
	var last *time.Time
	err = tx.QueryRow(ctx,
		`SELECT MAX(created_at) FROM messages WHERE conversation_id = $1`, m.ConversationID).Scan(&last)
	if err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}
	out := *m
	out.CreatedAt = now()
	if last != nil && out.CreatedAt.Before(*last) {
		out.CreatedAt = last.UTC()
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO messages (conversation_id, owner_id, role, content, created_at)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		out.ConversationID, out.OwnerID, string(out.Role), out.Content, out.CreatedAt).Scan(&out.ID)
	if err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}
	return &out, nil
}

// ListMessages returns the conversation's messages in write order.
func (s *Store) ListMessages(ctx context.Context, ownerID string, conversationID int64) ([]models.Message, error) {
	if _, err := s.GetConversation(ctx, ownerID, conversationID); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, conversation_id, owner_id, role, content, created_at FROM messages
		WHERE conversation_id = $1 ORDER BY created_at ASC, id ASC`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	msgs := []models.Message{}
	for rows.Next() {
		var m models.Message
		var role string
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.OwnerID, &role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("list messages: %w", err)
		}
		m.Role = models.Role(role)
		m.CreatedAt = m.CreatedAt.UTC()
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration: %w", err)
	}
	return msgs, nil
}
