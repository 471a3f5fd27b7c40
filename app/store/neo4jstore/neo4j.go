// Package neo4jstore keeps tasks, conversations and messages as Neo4j nodes.
// Integer ids come from per-label (:Sequence) counter nodes.
package neo4jstore

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"todo-chat/app/models"
	"todo-chat/app/store"
)

var _ store.Store = (*Store)(nil)

// Store handles persistence through a Neo4j driver.
type Store struct {
	driver   neo4j.DriverWithContext
	database string
}

// New creates a Store on top of driver. An empty database uses the server default.
func New(driver neo4j.DriverWithContext, database string) *Store {
	return &Store{driver: driver, database: database}
}

// Close closes the driver.
func (s *Store) Close() error {
	return s.driver.Close(context.Background())
}

func (s *Store) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode, DatabaseName: s.database})
}

func (s *Store) read(ctx context.Context, work neo4j.ManagedTransactionWork) (any, error) {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)
	return session.ExecuteRead(ctx, work)
}

func (s *Store) write(ctx context.Context, work neo4j.ManagedTransactionWork) (any, error) {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)
	return session.ExecuteWrite(ctx, work)
}

// EnsureSchema creates uniqueness constraints and lookup indexes.
func (s *Store) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		"CREATE CONSTRAINT task_id IF NOT EXISTS FOR (t:Task) REQUIRE t.id IS UNIQUE",
		"CREATE CONSTRAINT conversation_id IF NOT EXISTS FOR (c:Conversation) REQUIRE c.id IS UNIQUE",
		"CREATE CONSTRAINT message_id IF NOT EXISTS FOR (m:Message) REQUIRE m.id IS UNIQUE",
		"CREATE CONSTRAINT sequence_name IF NOT EXISTS FOR (s:Sequence) REQUIRE s.name IS UNIQUE",
		"CREATE INDEX task_owner IF NOT EXISTS FOR (t:Task) ON (t.owner_id)",
		"CREATE INDEX conversation_owner IF NOT EXISTS FOR (c:Conversation) ON (c.owner_id)",
	}
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)
	for _, stmt := range stmts {
		res, err := session.Run(ctx, stmt, nil)
		if err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		if _, err := res.Consume(ctx); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// Reset detaches and deletes all task, conversation and message nodes.
// Sequences are kept so ids are never reused.
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx,
			"MATCH (n) WHERE n:Task OR n:Conversation OR n:Message DETACH DELETE n", nil)
		return nil, err
	})
	return err
}

// nextID increments and returns the named sequence.
func nextID(ctx context.Context, tx neo4j.ManagedTransaction, name string) (int64, error) {
	res, err := tx.Run(ctx,
		"MERGE (s:Sequence {name: $name}) "+
			"ON CREATE SET s.value = 0 "+
			"SET s.value = s.value + 1 "+
			"RETURN s.value",
		map[string]any{"name": name},
	)
	if err != nil {
		return 0, err
	}
	record, err := res.Single(ctx)
	if err != nil {
		return 0, err
	}
	return record.Values[0].(int64), nil
}

func now() int64 {
	return time.Now().UnixNano()
}

func toTime(v any) time.Time {
	n, _ := v.(int64)
	return time.Unix(0, n).UTC()
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func checkOwner(kind string, id int64, ownerID, rowOwner string) error {
	if rowOwner != ownerID {
		return fmt.Errorf("%s %d: %w", kind, id, models.ErrUnauthorized)
	}
	return nil
}

func notFound(kind string, id int64) error {
	return fmt.Errorf("%s %d: %w", kind, id, models.ErrNotFound)
}
