package models

import (
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Valid reports whether s is a known task status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// StatusFilter selects tasks by status in list operations.
type StatusFilter string

const (
	FilterAll        StatusFilter = "all"
	FilterPending    StatusFilter = "pending"
	FilterInProgress StatusFilter = "in_progress"
	FilterCompleted  StatusFilter = "completed"
)

// ParseStatusFilter accepts "", "all" or any task status.
func ParseStatusFilter(s string) (StatusFilter, error) {
	switch f := StatusFilter(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FilterAll:
		return FilterAll, nil
	case FilterPending, FilterInProgress, FilterCompleted:
		return f, nil
	default:
		return "", fmt.Errorf("%w: unknown status filter %q", ErrValidation, s)
	}
}

// Matches reports whether a task with status st passes the filter.
func (f StatusFilter) Matches(st Status) bool {
	return f == FilterAll || f == "" || Status(f) == st
}

// Task represents a todo item owned by exactly one user.
type Task struct {
	ID          int64     `json:"id"`
	OwnerID     string    `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Completed reports whether the task is done.
func (t *Task) Completed() bool {
	return t.Status == StatusCompleted
}

// NormalizeTitle trims the title and upper-cases its first letter.
func NormalizeTitle(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return ""
	}
	r := []rune(title)
	r[0] = []rune(strings.ToUpper(string(r[0])))[0]
	return string(r)
}
