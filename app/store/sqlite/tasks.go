package sqlite

import (
	"context"
	"fmt"

	"todo-chat/app/models"
	"todo-chat/app/store"
)

const taskColumns = `id, owner_id, title, description, status, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	var (
		t                models.Task
		status           string
		created, updated int64
	)
	if err := row.Scan(&t.ID, &t.OwnerID, &t.Title, &t.Description, &status, &created, &updated); err != nil {
		return nil, err
	}
	t.Status = models.Status(status)
	t.CreatedAt = toTime(created)
	t.UpdatedAt = toTime(updated)
	return &t, nil
}

// CreateTask inserts a new pending task.
func (s *Store) CreateTask(ctx context.Context, t *models.Task) (*models.Task, error) {
	now := s.now()
	out := *t
	out.Status = models.StatusPending
	out.CreatedAt = now
	out.UpdatedAt = now

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (owner_id, title, description, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		out.OwnerID, out.Title, out.Description, string(out.Status), fromTime(now), fromTime(now))
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	if out.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return &out, nil
}

func getTask(ctx context.Context, q queryer, ownerID string, id int64) (*models.Task, error) {
	t, err := scanTask(q.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
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
	return getTask(ctx, s.db, ownerID, id)
}

// ListTasks returns the owner's tasks in creation order.
func (s *Store) ListTasks(ctx context.Context, ownerID string, filter models.StatusFilter) ([]models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE owner_id = ?`
	args := []any{ownerID}
	if filter != "" && filter != models.FilterAll {
		query += ` AND status = ?`
		args = append(args, string(filter))
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
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
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// MutateTask applies fn to the task inside a transaction.
func (s *Store) MutateTask(ctx context.Context, ownerID string, id int64, fn store.TaskMutation) (*models.Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("mutate task %d: %w", id, err)
	}
	defer tx.Rollback()

	t, err := getTask(ctx, tx, ownerID, id)
	if err != nil {
		return nil, err
	}
	orig := *t
	if err := fn(t); err != nil {
		return nil, err
	}
	t.ID, t.OwnerID, t.CreatedAt = orig.ID, orig.OwnerID, orig.CreatedAt
	t.UpdatedAt = s.now()

	_, err = tx.ExecContext(ctx,
		`UPDATE tasks SET title = ?, description = ?, status = ?, updated_at = ? WHERE id = ?`,
		t.Title, t.Description, string(t.Status), fromTime(t.UpdatedAt), id)
	if err != nil {
		return nil, fmt.Errorf("mutate task %d: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("mutate task %d: %w", id, err)
	}
	return t, nil
}

// DeleteTask removes the task and returns it.
func (s *Store) DeleteTask(ctx context.Context, ownerID string, id int64) (*models.Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("delete task %d: %w", id, err)
	}
	defer tx.Rollback()

	t, err := getTask(ctx, tx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("delete task %d: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("delete task %d: %w", id, err)
	}
	return t, nil
}
