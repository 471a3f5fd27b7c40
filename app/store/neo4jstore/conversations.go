package neo4jstore

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"todo-chat/app/models"
)

const returnConversation = "RETURN c.id AS id, c.owner_id AS owner_id, " +
	"c.created_at AS created_at, c.updated_at AS updated_at"

func recordToConversation(record *neo4j.Record) models.Conversation {
	return models.Conversation{
		ID:        record.Values[0].(int64),
		OwnerID:   str(record.Values[1]),
		CreatedAt: toTime(record.Values[2]),
		UpdatedAt: toTime(record.Values[3]),
	}
}

func matchConversation(ctx context.Context, tx neo4j.ManagedTransaction, ownerID string, id int64, lock bool) (*models.Conversation, error) {
	query := "MATCH (c:Conversation {id: $id}) "
	if lock {
		query += "SET c.owner_id = c.owner_id "
	}
	res, err := tx.Run(ctx, query+returnConversation, map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	if !res.Next(ctx) {
		if err := res.Err(); err != nil {
			return nil, err
		}
		return nil, notFound("conversation", id)
	}
	c := recordToConversation(res.Record())
	if err := checkOwner("conversation", id, ownerID, c.OwnerID); err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateConversation starts a new conversation for the owner.
func (s *Store) CreateConversation(ctx context.Context, ownerID string) (*models.Conversation, error) {
	result, err := s.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		id, err := nextID(ctx, tx, "conversation")
		if err != nil {
			return nil, err
		}
		res, err := tx.Run(ctx,
			"CREATE (c:Conversation {id: $id, owner_id: $owner_id, created_at: $ts, updated_at: $ts}) "+
				returnConversation,
			map[string]any{"id": id, "owner_id": ownerID, "ts": now()},
		)
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		return recordToConversation(record), nil
	})
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	c := result.(models.Conversation)
	return &c, nil
}

// GetConversation returns one of the owner's conversations.
func (s *Store) GetConversation(ctx context.Context, ownerID string, id int64) (*models.Conversation, error) {
	result, err := s.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return matchConversation(ctx, tx, ownerID, id, false)
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.Conversation), nil
}

// ListConversations returns the owner's conversations, newest activity first.
func (s *Store) ListConversations(ctx context.Context, ownerID string) ([]models.Conversation, error) {
	result, err := s.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx,
			"MATCH (c:Conversation {owner_id: $owner_id}) "+returnConversation+
				" ORDER BY updated_at DESC, id DESC",
			map[string]any{"owner_id": ownerID},
		)
		if err != nil {
			return nil, err
		}
		convs := []models.Conversation{}
		for res.Next(ctx) {
			convs = append(convs, recordToConversation(res.Record()))
		}
		return convs, res.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return result.([]models.Conversation), nil
}

// TouchConversation bumps updated_at.
func (s *Store) TouchConversation(ctx context.Context, ownerID string, id int64) error {
	_, err := s.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := matchConversation(ctx, tx, ownerID, id, true); err != nil {
			return nil, err
		}
		_, err := tx.Run(ctx,
			"MATCH (c:Conversation {id: $id}) SET c.updated_at = $ts",
			map[string]any{"id": id, "ts": now()},
		)
		return nil, err
	})
	return err
}

// AppendMessage links a new message node to its conversation.
func (s *Store) AppendMessage(ctx context.Context, m *models.Message) (*models.Message, error) {
	result, err := s.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := matchConversation(ctx, tx, m.OwnerID, m.ConversationID, true); err != nil {
			return nil, err
		}
		id, err := nextID(ctx, tx, "message")
		if err != nil {
			return nil, err
		}
		res, err := tx.Run(ctx,
			"MATCH (:Conversation {id: $id})-[:HAS_MESSAGE]->(m:Message) RETURN max(m.created_at) AS last",
			map[string]any{"id": m.ConversationID},
		)
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		ts := now()
		if last, ok := record.Values[0].(int64); ok && last > ts {
			ts = last
		}
		out := *m
		out.ID = id
		out.CreatedAt = toTime(ts)
		_, err = tx.Run(ctx,
			"MATCH (c:Conversation {id: $conversation_id}) "+
				"CREATE (c)-[:HAS_MESSAGE]->(:Message {id: $id, conversation_id: $conversation_id, "+
				"owner_id: $owner_id, role: $role, content: $content, created_at: $ts})",
			map[string]any{
				"id":              id,
				"conversation_id": out.ConversationID,
				"owner_id":        out.OwnerID,
				"role":            string(out.Role),
				"content":         out.Content,
				"ts":              ts,
			},
		)
		if err != nil {
			return nil, err
		}
		return &out, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.Message), nil
}

// ListMessages returns the conversation's messages in write order.
func (s *Store) ListMessages(ctx context.Context, ownerID string, conversationID int64) ([]models.Message, error) {
	result, err := s.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := matchConversation(ctx, tx, ownerID, conversationID, false); err != nil {
			return nil, err
		}
		res, err := tx.Run(ctx,
			"MATCH (:Conversation {id: $id})-[:HAS_MESSAGE]->(m:Message) "+
				"RETURN m.id AS id, m.conversation_id AS conversation_id, m.owner_id AS owner_id, "+
				"m.role AS role, m.content AS content, m.created_at AS created_at "+
				"ORDER BY created_at ASC, id ASC",
			map[string]any{"id": conversationID},
		)
		if err != nil {
			return nil, err
		}
		msgs := []models.Message{}
		for res.Next(ctx) {
			record := res.Record()
			msgs = append(msgs, models.Message{
				ID:             record.Values[0].(int64),
				ConversationID: record.Values[1].(int64),
				OwnerID:        str(record.Values[2]),
				Role:           models.Role(str(record.Values[3])),
				Content:        str(record.Values[4]),
				CreatedAt:      toTime(record.Values[5]),
			})
		}
		return msgs, res.Err()
	})
	if err != nil {
		return nil, err
	}
	return result.([]models.Message), nil
}
