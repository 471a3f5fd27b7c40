package services_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"todo-chat/app/intent"
	"todo-chat/app/models"
	"todo-chat/app/services"
)

func TestComposeClarifications(t *testing.T) {
	c := services.Composer{}
	tests := []struct {
		utterance string
		want      string
	}{
		{"add a task", "What task would you like to add?"},
		{"complete it", "Which task would you like to mark as complete? Please specify the task number or list your tasks first."},
		{"remove that", "Which task would you like to delete? Please specify the task number or list your tasks first."},
		{"edit task 3", "To update a task, please specify which task by number and what changes you'd like to make."},
		{"hello", "I understand you said: 'hello'. I can help you manage tasks by adding, listing, completing, or deleting them. " +
			"Try saying something like 'Add a task to buy groceries' or 'Show me my tasks'."},
	}
	for _, tt := range tests {
		text, calls := c.Compose(intent.Classify(tt.utterance), nil)
		assert.Equal(t, tt.want, text, tt.utterance)
		assert.NotNil(t, calls)
		assert.Empty(t, calls)
	}
}

func TestComposeSuccess(t *testing.T) {
	c := services.Composer{}
	task := &models.Task{ID: 4, Title: "Buy groceries"}
	call := models.ToolCall{Name: services.ToolAddTask}

	text, calls := c.Compose(intent.Intent{Kind: intent.KindAdd, Title: "Buy groceries"}, &services.ToolResult{Call: call, Task: task})
	assert.Equal(t, "I've added 'Buy groceries' to your task list (task #4).", text)
	assert.Equal(t, []models.ToolCall{call}, calls)

	text, _ = c.Compose(intent.Intent{Kind: intent.KindComplete, TaskID: ptr(int64(4))}, &services.ToolResult{Task: task})
	assert.Equal(t, "I've marked task #4 'Buy groceries' as completed.", text)

	text, _ = c.Compose(intent.Intent{Kind: intent.KindDelete, TaskID: ptr(int64(4))}, &services.ToolResult{Task: task})
	assert.Equal(t, "I've deleted task #4 'Buy groceries' from your list.", text)
}

func TestComposeList(t *testing.T) {
	c := services.Composer{ListLimit: 5}
	list := func(f models.StatusFilter) intent.Intent { return intent.Intent{Kind: intent.KindList, StatusFilter: f} }

	var tasks []models.Task
	for i := 1; i <= 7; i++ {
		tasks = append(tasks, models.Task{ID: int64(i), Title: fmt.Sprintf("T%d", i)})
	}

	tests := []struct {
		name  string
		in    intent.Intent
		tasks []models.Task
		want  string
	}{
		{"empty", list(models.FilterAll), nil, "You don't have any tasks."},
		{"empty pending", list(models.FilterPending), nil, "You don't have any pending tasks."},
		{"empty in progress", list(models.FilterInProgress), nil, "You don't have any in progress tasks."},
		{"one", list(models.FilterAll), tasks[:1], "Your tasks are: 'T1'."},
		{"exactly five", list(models.FilterPending), tasks[:5], "Your pending tasks are: 'T1', 'T2', 'T3', 'T4', 'T5'."},
		{"more than five", list(models.FilterCompleted), tasks, "Your completed tasks are: 'T1', 'T2', 'T3', 'T4', 'T5' and 2 more."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := &services.ToolResult{Tasks: tt.tasks}
			text, _ := c.Compose(tt.in, res)
			assert.Equal(t, tt.want, text)
			assert.Len(t, res.Tasks, len(tt.tasks))
		})
	}
}

func TestComposeFailuresHideOwnership(t *testing.T) {
	c := services.Composer{}
	in := intent.Intent{Kind: intent.KindDelete, TaskID: ptr(int64(9))}

	notFound, calls := c.Compose(in, &services.ToolResult{Call: models.ToolCall{Name: services.ToolDeleteTask}, Err: models.ErrNotFound})
	unauthorized, _ := c.Compose(in, &services.ToolResult{Err: models.ErrUnauthorized})

	assert.Equal(t, "Sorry, I couldn't delete the task: task #9 was not found in your task list.", notFound)
	assert.Equal(t, notFound, unauthorized)
	assert.Len(t, calls, 1)

	internal, _ := c.Compose(intent.Intent{Kind: intent.KindList}, &services.ToolResult{Err: errors.New("disk on fire")})
	assert.Equal(t, "Sorry, I couldn't list your tasks: something went wrong on our side, please try again.", internal)
}
