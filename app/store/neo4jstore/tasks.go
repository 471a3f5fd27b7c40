package neo4jstore

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"todo-chat/app/models"
	"todo-chat/app/store"
)

const returnTask = "RETURN t.id AS id, t.owner_id AS owner_id, t.title AS title, " +
	"t.description AS description, t.status AS status, " +
	"t.created_at AS created_at, t.updated_at AS updated_at"

func recordToTask(record *neo4j.Record) models.Task {
	return models.Task{
		ID:          record.Values[0].(int64),
		OwnerID:     str(record.Values[1]),
		Title:       str(record.Values[2]),
		Description: str(record.Values[3]),
		Status:      models.Status(str(record.Values[4])),
		CreatedAt:   toTime(record.Values[5]),
		UpdatedAt:   toTime(record.Values[6]),
	}
}

// matchTask reads a task and checks its owner. With lock set, a no-op write
// takes the node's write lock for the rest of the transaction.
func matchTask(ctx context.Context, tx neo4j.ManagedTransaction, ownerID string, id int64, lock bool) (*models.Task, error) {
	query := "MATCH (t:Task {id: $id}) "
	if lock {
		query += "SET t.owner_id = t.owner_id "
	}
	res, err := tx.Run(ctx, query+returnTask, map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	if !res.Next(ctx) {
		if err := res.Err(); err != nil {
			return nil, err
		}
		return nil, notFound("task", id)
	}
	t := recordToTask(res.Record())
	if err := checkOwner("task", id, ownerID, t.OwnerID); err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTask adds a new pending task.
func (s *Store) CreateTask(ctx context.Context, t *models.Task) (*models.Task, error) {
	out := *t
	out.Status = models.StatusPending

	result, err := s.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		id, err := nextID(ctx, tx, "task")
		if err != nil {
			return nil, err
		}
		ts := now()
		res, err := tx.Run(ctx,
			"CREATE (t:Task {id: $id, owner_id: $owner_id, title: $title, description: $description, "+
				"status: $status, created_at: $ts, updated_at: $ts}) "+returnTask,
			map[string]any{
				"id":          id,
				"owner_id":    out.OwnerID,
				"title":       out.Title,
				"description": out.Description,
				"status":      string(out.Status),
				"ts":          ts,
			},
		)
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		return recordToTask(record), nil
	})
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	created := result.(models.Task)
	return &created, nil
}

// GetTask returns one of the owner's tasks.
func (s *Store) GetTask(ctx context.Context, ownerID string, id int64) (*models.Task, error) {
	result, err := s.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return matchTask(ctx, tx, ownerID, id, false)
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.Task), nil
}

// ListTasks returns the owner's tasks in creation order.
func (s *Store) ListTasks(ctx context.Context, ownerID string, filter models.StatusFilter) ([]models.Task, error) {
	query := "MATCH (t:Task {owner_id: $owner_id}) "
	params := map[string]any{"owner_id": ownerID}
	if filter != "" && filter != models.FilterAll {
		query += "WHERE t.status = $status "
		params["status"] = string(filter)
	}
	query += returnTask + " ORDER BY created_at ASC, id ASC"

	result, err := s.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		tasks := []models.Task{}
		for res.Next(ctx) {
			tasks = append(tasks, recordToTask(res.Record()))
		}
		if err := res.Err(); err != nil {
			return nil, err
		}
		return tasks, nil
	})
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return result.([]models.Task), nil
}

// MutateTask locks the task node, applies fn and writes the properties back.
func (s *Store) MutateTask(ctx context.Context, ownerID string, id int64, fn store.TaskMutation) (*models.Task, error) {
	result, err := s.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		t, err := matchTask(ctx, tx, ownerID, id, true)
		if err != nil {
			return nil, err
		}
		orig := *t
		if err := fn(t); err != nil {
			return nil, err
		}
		t.ID, t.OwnerID, t.CreatedAt = orig.ID, orig.OwnerID, orig.CreatedAt

		res, err := tx.Run(ctx,
			"MATCH (t:Task {id: $id}) "+
				"SET t.title = $title, t.description = $description, t.status = $status, t.updated_at = $ts "+
				returnTask,
			map[string]any{
				"id":          id,
				"title":       t.Title,
				"description": t.Description,
				"status":      string(t.Status),
				"ts":          now(),
			},
		)
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		updated := recordToTask(record)
		return &updated, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.Task), nil
}

// DeleteTask detaches and deletes the task node.
func (s *Store) DeleteTask(ctx context.Context, ownerID string, id int64) (*models.Task, error) {
	result, err := s.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		t, err := matchTask(ctx, tx, ownerID, id, true)
		if err != nil {
			return nil, err
		}
		_, err = tx.Run(ctx, "MATCH (t:Task {id: $id}) DETACH DELETE t", map[string]any{"id": id})
		if err != nil {
			return nil, err
		}
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.Task), nil
}
