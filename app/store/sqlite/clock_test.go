package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todo-chat/app/models"
)

func TestAppendMessageSurvivesClockStepBack(t *testing.T) {
	ctx := context.Background()
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.EnsureSchema(ctx))

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }
	c, err := s.CreateConversation(ctx, "alice")
	require.NoError(t, err)

	question, err := s.AppendMessage(ctx, &models.Message{
		ConversationID: c.ID, OwnerID: "alice", Role: models.RoleUser, Content: "show my tasks",
	})
	require.NoError(t, err)

	s.now = func() time.Time { return base.Add(-time.Hour) }
	reply, err := s.AppendMessage(ctx, &models.Message{
		ConversationID: c.ID, OwnerID: "alice", Role: models.RoleAssistant, Content: "You don't have any tasks.",
	})
	require.NoError(t, err)
	assert.False(t, reply.CreatedAt.Before(question.CreatedAt))

	msgs, err := s.ListMessages(ctx, "alice", c.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, models.RoleUser, msgs[0].Role)
	assert.Equal(t, models.RoleAssistant, msgs[1].Role)
}
