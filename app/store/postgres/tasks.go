package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"todo-chat/app/models"
	"todo-chat/app/store"
)

const taskColumns = `id, owner_id, title, description, status, created_at, updated_at`

func scanTask(row pgx.Row) (*models.Task, error) {
	var t models.Task
	var status string
	if err := row.Scan(&t.ID, &t.OwnerID, &t.Title, &t.Description, &status, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.Status = models.Status(status)
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return &t, nil
}

// CreateTask inserts a new pending task.
func (s *Store) CreateTask(ctx context.Context, t *models.Task) (*models.Task, error) {
	ts := now()
	out := *t
	out.Status = models.StatusPending
	out.CreatedAt = ts
	out.UpdatedAt = ts
	err := s.pool.QueryRow(ctx, `
		INSERT INTO tasks (owner_id, title, description, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5) RETURNING id`,
		out.OwnerID, out.Title, out.Description, string(out.Status), ts).Scan(&out.ID)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return &out, nil
}

// getTask reads a task and checks ownership. With lock set the row stays
// locked until the surrounding transaction ends.
func getTask(ctx context.Context, q interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}, ownerID string, id int64, lock bool) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}
	t, err := scanTask(q.QueryRow(ctx, query, id))
	var rowOwner string
	if t != nil {
		rowOwner = t.OwnerID
	}
	if err := owned(err, "task", id, ownerID, rowOwner); err != nil {
		return nil, err
	}
	return t, nil
}

// GetTask returns one of the owner's tasks.
func (s *Store) GetTask(ctx context.Context, ownerID string, id int64) (*models.Task, error) {
	return getTask(ctx, s.pool, ownerID, id, false)
}

// ListTasks returns the owner's tasks in creation order.
func (s *Store) ListTasks(ctx context.Context, ownerID string, filter models.StatusFilter) ([]models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE owner_id = $1`
	args := []any{ownerID}
	if filter != "" && filter != models.FilterAll {
		query += ` AND status = $2`
		args = append(args, string(filter))
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("list tasks: %w", err)
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration: %w", err)
	}
	return tasks, nil
}

// MutateTask locks the row, applies fn and writes the result.
func (s *Store) MutateTask(ctx context.Context, ownerID string, id int64, fn store.TaskMutation) (*models.Task, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("mutate task %d: %w", id, err)
	}
	defer tx.Rollback(ctx)

	t, err := getTask(ctx, tx, ownerID, id, true)
	if err != nil {
		return nil, err
	}
	orig := *t
	if err := fn(t); err != nil {
		return nil, err
	}
	t.ID, t.OwnerID, t.CreatedAt = orig.ID, orig.OwnerID, orig.CreatedAt
	t.UpdatedAt = now()

	_, err = tx.Exec(ctx, `
		UPDATE tasks SET title = $1, description = $2, status = $3, updated_at = $4 WHERE id = $5`,
		t.Title, t.Description, string(t.Status), t.UpdatedAt, id)
	if err != nil {
		return nil, fmt.Errorf("mutate task %d: %w", id, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("mutate task %d: %w", id, err)
	}
	return t, nil
}

// DeleteTask locks, checks and deletes the task.
func (s *Store) DeleteTask(ctx context.Context, ownerID string, id int64) (*models.Task, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("delete task %d: %w", id, err)
	}
	defer tx.Rollback(ctx)

	t, err := getTask(ctx, tx, ownerID, id, true)
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id); err != nil {
		return nil, fmt.Errorf("delete task %d: %w", id, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("delete task %d: %w", id, err)
	}
	return t, nil
}
