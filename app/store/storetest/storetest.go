// Package storetest is a conformance suite every store backend runs from its
// own tests.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todo-chat/app/models"
	"todo-chat/app/store"
)

// Factory returns an empty store with its schema in place. The suite closes it.
type Factory func(t *testing.T) store.Store

// Run executes the whole suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"CreateAndGet", testCreateAndGet},
		{"ListFilterAndOrder", testListFilterAndOrder},
		{"OwnerIsolation", testOwnerIsolation},
		{"MutateTask", testMutateTask},
		{"MutateAbort", testMutateAbort},
		{"DeleteTask", testDeleteTask},
		{"IDsNotReused", testIDsNotReused},
		{"ConcurrentMutations", testConcurrentMutations},
		{"Conversations", testConversations},
		{"MessageOrdering", testMessageOrdering},
		{"ConversationIsolation", testConversationIsolation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { _ = s.Close() })
			tt.fn(t, s)
		})
	}
}

func addTask(t *testing.T, s store.Store, owner, title string) *models.Task {
	t.Helper()
	task, err := s.CreateTask(context.Background(), &models.Task{OwnerID: owner, Title: title})
	require.NoError(t, err)
	return task
}

func testCreateAndGet(t *testing.T, s store.Store) {
	ctx := context.Background()
	created, err := s.CreateTask(ctx, &models.Task{OwnerID: "alice", Title: "Buy milk", Description: "2 litres"})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, models.StatusPending, created.Status)
	assert.False(t, created.CreatedAt.IsZero())
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)

	got, err := s.GetTask(ctx, "alice", created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Buy milk", got.Title)
	assert.Equal(t, "2 litres", got.Description)
	assert.Equal(t, "alice", got.OwnerID)
	assert.True(t, got.CreatedAt.Equal(created.CreatedAt))

	_, err = s.GetTask(ctx, "alice", created.ID+1000)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func testListFilterAndOrder(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := addTask(t, s, "alice", "First")
	b := addTask(t, s, "alice", "Second")
	c := addTask(t, s, "alice", "Third")

	_, err := s.MutateTask(ctx, "alice", b.ID, func(t *models.Task) error {
		t.Status = models.StatusCompleted
		return nil
	})
	require.NoError(t, err)

	all, err := s.ListTasks(ctx, "alice", models.FilterAll)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int64{a.ID, b.ID, c.ID}, []int64{all[0].ID, all[1].ID, all[2].ID})

	pending, err := s.ListTasks(ctx, "alice", models.FilterPending)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "First", pending[0].Title)
	assert.Equal(t, "Third", pending[1].Title)

	done, err := s.ListTasks(ctx, "alice", models.FilterCompleted)
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, "Second", done[0].Title)

	none, err := s.ListTasks(ctx, "nobody", models.FilterAll)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testOwnerIsolation(t *testing.T, s store.Store) {
	ctx := context.Background()
	task := addTask(t, s, "alice", "Secret")

	bobs, err := s.ListTasks(ctx, "bob", models.FilterAll)
	require.NoError(t, err)
	assert.Empty(t, bobs)

	_, err = s.GetTask(ctx, "bob", task.ID)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	_, err = s.MutateTask(ctx, "bob", task.ID, func(t *models.Task) error {
		t.Title = "Hijacked"
		return nil
	})
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	_, err = s.DeleteTask(ctx, "bob", task.ID)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	got, err := s.GetTask(ctx, "alice", task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Secret", got.Title)
}

func testMutateTask(t *testing.T, s store.Store) {
	ctx := context.Background()
	task := addTask(t, s, "alice", "Draft")

	updated, err := s.MutateTask(ctx, "alice", task.ID, func(t *models.Task) error {
		t.Title = "Final"
		t.Description = "ship it"
		t.Status = models.StatusInProgress
		t.OwnerID = "mallory"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Final", updated.Title)
	assert.Equal(t, "alice", updated.OwnerID)
	assert.False(t, updated.UpdatedAt.Before(task.UpdatedAt))

	got, err := s.GetTask(ctx, "alice", task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Final", got.Title)
	assert.Equal(t, "ship it", got.Description)
	assert.Equal(t, models.StatusInProgress, got.Status)

	_, err = s.MutateTask(ctx, "alice", task.ID+1000, func(*models.Task) error { return nil })
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func testMutateAbort(t *testing.T, s store.Store) {
	ctx := context.Background()
	task := addTask(t, s, "alice", "Keep")

	_, err := s.MutateTask(ctx, "alice", task.ID, func(t *models.Task) error {
		t.Title = "Changed"
		return models.ErrNoOp
	})
	assert.ErrorIs(t, err, models.ErrNoOp)

	got, err := s.GetTask(ctx, "alice", task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Keep", got.Title)
}

func testDeleteTask(t *testing.T, s store.Store) {
	ctx := context.Background()
	task := addTask(t, s, "alice", "Gone soon")

	deleted, err := s.DeleteTask(ctx, "alice", task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Gone soon", deleted.Title)

	_, err = s.GetTask(ctx, "alice", task.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = s.DeleteTask(ctx, "alice", task.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func testIDsNotReused(t *testing.T, s store.Store) {
	ctx := context.Background()
	first := addTask(t, s, "alice", "One")
	_, err := s.DeleteTask(ctx, "alice", first.ID)
	require.NoError(t, err)
	second := addTask(t, s, "alice", "Two")
	assert.Greater(t, second.ID, first.ID)
}

func testConcurrentMutations(t *testing.T, s store.Store) {
	ctx := context.Background()
	task := addTask(t, s, "alice", "Counter")

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.MutateTask(ctx, "alice", task.ID, func(t *models.Task) error {
				t.Description += "x"
				return nil
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := s.GetTask(ctx, "alice", task.ID)
	require.NoError(t, err)
	assert.Len(t, got.Description, workers, "lost update")
}

func testConversations(t *testing.T, s store.Store) {
	ctx := context.Background()
	c, err := s.CreateConversation(ctx, "alice")
	require.NoError(t, err)
	assert.NotZero(t, c.ID)

	got, err := s.GetConversation(ctx, "alice", c.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.OwnerID)

	_, err = s.GetConversation(ctx, "alice", c.ID+1000)
	assert.ErrorIs(t, err, models.ErrNotFound)

	other, err := s.CreateConversation(ctx, "alice")
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, s.TouchConversation(ctx, "alice", c.ID))

	touched, err := s.GetConversation(ctx, "alice", c.ID)
	require.NoError(t, err)
	assert.False(t, touched.UpdatedAt.Before(c.UpdatedAt))

	list, err := s.ListConversations(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, c.ID, list[0].ID, "touched conversation first")
	assert.Equal(t, other.ID, list[1].ID)
}

func testMessageOrdering(t *testing.T, s store.Store) {
	ctx := context.Background()
	c, err := s.CreateConversation(ctx, "alice")
	require.NoError(t, err)

	for i := 0; i < 6; i++ {
		role := models.RoleUser
		if i%2 == 1 {
			role = models.RoleAssistant
		}
		_, err := s.AppendMessage(ctx, &models.Message{
			ConversationID: c.ID,
			OwnerID:        "alice",
			Role:           role,
			Content:        fmt.Sprintf("message %d", i),
		})
		require.NoError(t, err)
	}

	msgs, err := s.ListMessages(ctx, "alice", c.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 6)
	for i, m := range msgs {
		assert.Equal(t, fmt.Sprintf("message %d", i), m.Content)
		if i > 0 {
			prev := msgs[i-1]
			ordered := prev.CreatedAt.Before(m.CreatedAt) ||
				(prev.CreatedAt.Equal(m.CreatedAt) && prev.ID < m.ID)
			assert.True(t, ordered, "message %d out of order", i)
		}
	}
	assert.Equal(t, models.RoleUser, msgs[0].Role)
	assert.Equal(t, models.RoleAssistant, msgs[1].Role)
}

func testConversationIsolation(t *testing.T, s store.Store) {
	ctx := context.Background()
	c, err := s.CreateConversation(ctx, "alice")
	require.NoError(t, err)

	_, err = s.GetConversation(ctx, "bob", c.ID)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	_, err = s.AppendMessage(ctx, &models.Message{ConversationID: c.ID, OwnerID: "bob", Role: models.RoleUser, Content: "hi"})
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	_, err = s.ListMessages(ctx, "bob", c.ID)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	assert.ErrorIs(t, s.TouchConversation(ctx, "bob", c.ID), models.ErrUnauthorized)

	_, err = s.AppendMessage(ctx, &models.Message{ConversationID: c.ID + 1000, OwnerID: "alice", Role: models.RoleUser, Content: "hi"})
	assert.ErrorIs(t, err, models.ErrNotFound)

	bobs, err := s.ListConversations(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, bobs)
}
