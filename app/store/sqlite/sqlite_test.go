package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"todo-chat/app/models"
	"todo-chat/app/store"
	"todo-chat/app/store/sqlite"
	"todo-chat/app/store/storetest"
)

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		s, err := sqlite.Open(":memory:")
		require.NoError(t, err)
		require.NoError(t, s.EnsureSchema(context.Background()))
		return s
	})
}

func TestFileDatabaseSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "todo.db")

	s, err := sqlite.Open(path)
	require.NoError(t, err)
	require.NoError(t, s.EnsureSchema(ctx))
	created, err := s.CreateTask(ctx, &models.Task{OwnerID: "alice", Title: "Persist me"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = sqlite.Open(path)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.EnsureSchema(ctx))

	got, err := s.GetTask(ctx, "alice", created.ID)
	require.NoError(t, err)
	require.Equal(t, "Persist me", got.Title)
}
