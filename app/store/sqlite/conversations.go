package sqlite

import (
	"context"
	"fmt"

	"todo-chat/app/models"
)

func getConversation(ctx context.Context, q queryer, ownerID string, id int64) (*models.Conversation, error) {
	var (
		c                models.Conversation
		created, updated int64
	)
	err := q.QueryRowContext(ctx,
		`SELECT id, owner_id, created_at, updated_at FROM conversations WHERE id = ?`, id).
		Scan(&c.ID, &c.OwnerID, &created, &updated)
	if err := owned(err, "conversation", id, ownerID, c.OwnerID); err != nil {
		return nil, err
	}
	c.CreatedAt = toTime(created)
	c.UpdatedAt = toTime(updated)
	return &c, nil
}

// CreateConversation starts a new conversation for the owner.
func (s *Store) CreateConversation(ctx context.Context, ownerID string) (*models.Conversation, error) {
	now := s.now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (owner_id, created_at, updated_at) VALUES (?, ?, ?)`,
		ownerID, fromTime(now), fromTime(now))
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return &models.Conversation{ID: id, OwnerID: ownerID, CreatedAt: now, UpdatedAt: now}, nil
}

// GetConversation returns one of the owner's conversations.
func (s *Store) GetConversation(ctx context.Context, ownerID string, id int64) (*models.Conversation, error) {
	return getConversation(ctx, s.db, ownerID, id)
}

// ListConversations returns the owner's conversations, newest activity first.
func (s *Store) ListConversations(ctx context.Context, ownerID string) ([]models.Conversation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_id, created_at, updated_at FROM conversations
		 WHERE owner_id = ? ORDER BY updated_at DESC, id DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	convs := []models.Conversation{}
	for rows.Next() {
		var (
			c                models.Conversation
			created, updated int64
		)
		if err := rows.Scan(&c.ID, &c.OwnerID, &created, &updated); err != nil {
			return nil, fmt.Errorf("list conversations: %w", err)
		}
		c.CreatedAt = toTime(created)
		c.UpdatedAt = toTime(updated)
		convs = append(convs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return convs, nil
}

// TouchConversation bumps updated_at.
func (s *Store) TouchConversation(ctx context.Context, ownerID string, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("touch conversation %d: %w", id, err)
	}
	defer tx.Rollback()

	if _, err := getConversation(ctx, tx, ownerID, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE conversations SET updated_at = ? WHERE id = ?`, fromTime(s.now()), id); err != nil {
		return fmt.Errorf("touch conversation %d: %w", id, err)
	}
	return tx.Commit()
}

// AppendMessage adds a message to a conversation the message's owner holds.
func (s *Store) AppendMessage(ctx context.Context, m *models.Message) (*models.Message, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}
	defer tx.Rollback()

	if _, err := getConversation(ctx, tx, m.OwnerID, m.ConversationID); err != nil {
		return nil, err
	}
	// A clock stepping backwards must not reorder the conversation.
	var last int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(created_at), 0) FROM messages WHERE conversation_id = ?`,
		m.ConversationID).Scan(&last); err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}
	out := *m
	out.CreatedAt = s.now()
	if floor := toTime(last); out.CreatedAt.Before(floor) {
		out.CreatedAt = floor
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO messages (conversation_id, owner_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		out.ConversationID, out.OwnerID, string(out.Role), out.Content, fromTime(out.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}
	if out.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}
	return &out, nil
}

// ListMessages returns the conversation's messages in write order.
func (s *Store) ListMessages(ctx context.Context, ownerID string, conversationID int64) ([]models.Message, error) {
	if _, err := s.GetConversation(ctx, ownerID, conversationID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, conversation_id, owner_id, role, content, created_at FROM messages
		 WHERE conversation_id = ? ORDER BY created_at ASC, id ASC`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	msgs := []models.Message{}
	for rows.Next() {
		var (
			m       models.Message
			role    string
			created int64
		)
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.OwnerID, &role, &m.Content, &created); err != nil {
			return nil, fmt.Errorf("list messages: %w", err)
		}
		m.Role = models.Role(role)
		m.CreatedAt = toTime(created)
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return msgs, nil
}
