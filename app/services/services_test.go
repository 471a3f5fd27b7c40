package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"todo-chat/app/services"
	"todo-chat/app/store"
	"todo-chat/app/store/sqlite"
)

func newStore(t *testing.T) store.Store {
	t.Helper()
	s, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.EnsureSchema(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTaskService(t *testing.T) *services.TaskService {
	t.Helper()
	return services.NewTaskService(newStore(t), nil)
}

func ptr[T any](v T) *T { return &v }
