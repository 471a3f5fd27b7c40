package services

import (
	"fmt"
	"strings"

	"todo-chat/app/intent"
	"todo-chat/app/models"
)

// DefaultListLimit is how many titles a list reply names before summarizing.
const DefaultListLimit = 5

const (
	askAddTitle     = "What task would you like to add?"
	askCompleteID   = "Which task would you like to mark as complete? Please specify the task number or list your tasks first."
	askDeleteID     = "Which task would you like to delete? Please specify the task number or list your tasks first."
	askUpdateFields = "To update a task, please specify which task by number and what changes you'd like to make."
	unknownReply    = "I understand you said: '%s'. I can help you manage tasks by adding, listing, completing, or deleting them. " +
		"Try saying something like 'Add a task to buy groceries' or 'Show me my tasks'."
)

// Composer renders the assistant reply for an intent and its tool result.
type Composer struct {
	ListLimit int
}

// Compose returns the reply text and the tool calls to report. res is nil when
// no tool ran.
func (c Composer) Compose(in intent.Intent, res *ToolResult) (string, []models.ToolCall) {
	if res == nil {
		return clarify(in), []models.ToolCall{}
	}
	calls := []models.ToolCall{res.Call}
	if res.Err != nil {
		return failure(in, res.Err), calls
	}
	switch in.Kind {
	case intent.KindAdd:
		return fmt.Sprintf("I've added '%s' to your task list (task #%d).", res.Task.Title, res.Task.ID), calls
	case intent.KindList:
		return c.listReply(in.StatusFilter, res.Tasks), calls
	case intent.KindComplete:
		return fmt.Sprintf("I've marked task #%d '%s' as completed.", res.Task.ID, res.Task.Title), calls
	case intent.KindDelete:
		return fmt.Sprintf("I've deleted task #%d '%s' from your list.", res.Task.ID, res.Task.Title), calls
	}
	return clarify(in), calls
}

func clarify(in intent.Intent) string {
	switch in.Kind {
	case intent.KindAdd:
		return askAddTitle
	case intent.KindComplete:
		return askCompleteID
	case intent.KindDelete:
		return askDeleteID
	case intent.KindUpdate:
		return askUpdateFields
	}
	return fmt.Sprintf(unknownReply, in.Raw)
}

func (c Composer) listReply(filter models.StatusFilter, tasks []models.Task) string {
	qualifier := ""
	if filter != "" && filter != models.FilterAll {
		qualifier = strings.ReplaceAll(string(filter), "_", " ") + " "
	}
	if len(tasks) == 0 {
		return fmt.Sprintf("You don't have any %stasks.", qualifier)
	}
	limit := c.ListLimit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	shown := tasks
	if len(shown) > limit {
		shown = shown[:limit]
	}
	titles := make([]string, len(shown))
	for i, t := range shown {
		titles[i] = fmt.Sprintf("'%s'", t.Title)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Your %stasks are: %s", qualifier, strings.Join(titles, ", "))
	if rest := len(tasks) - len(shown); rest > 0 {
		fmt.Fprintf(&b, " and %d more", rest)
	}
	b.WriteString(".")
	return b.String()
}

func failure(in intent.Intent, err error) string {
	var action string
	switch in.Kind {
	case intent.KindAdd:
		action = "add the task"
	case intent.KindList:
		action = "list your tasks"
	case intent.KindComplete:
		action = "complete the task"
	case intent.KindDelete:
		action = "delete the task"
	default:
		action = "do that"
	}
	return fmt.Sprintf("Sorry, I couldn't %s: %s.", action, describe(err, in.TaskID))
}

// describe phrases err for the user. Unauthorized reads like not found so a
// reply never reveals that someone else's task exists.
func describe(err error, taskID *int64) string {
	switch models.CodeOf(err) {
	case models.CodeNotFound, models.CodeUnauthorized:
		if taskID != nil {
			return fmt.Sprintf("task #%d was not found in your task list", *taskID)
		}
		return "it was not found in your task list"
	case models.CodeValidation:
		return "the request was not valid"
	case models.CodeNoOp:
		return "there was nothing to change"
	}
	return "something went wrong on our side, please try again"
}
