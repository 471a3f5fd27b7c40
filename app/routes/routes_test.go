package routes_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"todo-chat/app/controllers"
	"todo-chat/app/middleware"
	"todo-chat/app/models"
	"todo-chat/app/routes"
	"todo-chat/app/services"
	"todo-chat/app/store/sqlite"
)

const (
	aliceToken = "tok-alice"
	bobToken   = "tok-bob"
)

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	st, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.EnsureSchema(context.Background()))
	t.Cleanup(func() { _ = st.Close() })

	logger := zap.NewNop()
	tasks := services.NewTaskService(st, logger)
	chat := services.NewChatService(st, tasks, logger)

	router := mux.NewRouter()
	routes.RegisterRoutes(router, routes.Controllers{
		Chat:  controllers.NewChatController(chat, tasks, logger),
		Tasks: controllers.NewTaskController(tasks, logger),
		Tools: controllers.NewToolController(tasks, logger),
	}, middleware.StaticTokens{aliceToken: "alice", bobToken: "bob"}, logger)
	return router
}

func do(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

type errorBody struct {
	Error string      `json:"error"`
	Code  models.Code `json:"code"`
}

func TestHealth(t *testing.T) {
	h := newRouter(t)
	rr := do(t, h, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, rr.Header().Get(middleware.RequestIDHeader))
}

func TestAuthRequired(t *testing.T) {
	h := newRouter(t)

	for _, token := range []string{"", "wrong"} {
		rr := do(t, h, http.MethodPost, "/chat", token, map[string]any{"message": "show my tasks"})
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Equal(t, models.CodeUnauthenticated, decode[errorBody](t, rr).Code)
		assert.NotEmpty(t, rr.Header().Get("WWW-Authenticate"))
	}

	rr := do(t, h, http.MethodGet, "/tasks", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestChatFlow(t *testing.T) {
	h := newRouter(t)

	rr := do(t, h, http.MethodPost, "/chat", aliceToken, map[string]any{"message": "Add a task to buy groceries"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	first := decode[services.Exchange](t, rr)
	assert.NotZero(t, first.ConversationID)
	assert.Contains(t, strings.ToLower(first.Response), "buy groceries")
	require.Len(t, first.ToolCalls, 1)
	assert.Equal(t, "add_task", first.ToolCalls[0].Name)
	assert.Equal(t, "Buy groceries", first.ToolCalls[0].Arguments["title"])
	assert.Equal(t, "alice", first.ToolCalls[0].Arguments["user_id"])

	rr = do(t, h, http.MethodPost, "/chat", aliceToken, map[string]any{
		"conversation_id": first.ConversationID,
		"message":         "show my tasks",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	second := decode[services.Exchange](t, rr)
	assert.Equal(t, first.ConversationID, second.ConversationID)
	assert.Contains(t, second.Response, "'Buy groceries'")

	rr = do(t, h, http.MethodGet, "/conversations/"+itoa(first.ConversationID)+"/messages", aliceToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	msgs := decode[[]models.Message](t, rr)
	require.Len(t, msgs, 4)
	for i, m := range msgs {
		if i%2 == 0 {
			assert.Equal(t, models.RoleUser, m.Role)
		} else {
			assert.Equal(t, models.RoleAssistant, m.Role)
		}
	}

	rr = do(t, h, http.MethodGet, "/conversations", aliceToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]models.Conversation](t, rr), 1)

	rr = do(t, h, http.MethodGet, "/chat", aliceToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	legacy := decode[struct {
		UserID              string `json:"user_id"`
		ConversationHistory []struct {
			TaskID int64  `json:"task_id"`
			Title  string `json:"title"`
			Status string `json:"status"`
		} `json:"conversation_history"`
		Stateless bool `json:"stateless"`
	}](t, rr)
	assert.Equal(t, "alice", legacy.UserID)
	assert.True(t, legacy.Stateless)
	require.Len(t, legacy.ConversationHistory, 1)
	assert.Equal(t, "Buy groceries", legacy.ConversationHistory[0].Title)
	assert.Equal(t, "pending", legacy.ConversationHistory[0].Status)
}

func TestChatConversationOwnership(t *testing.T) {
	h := newRouter(t)

	rr := do(t, h, http.MethodPost, "/chat", aliceToken, map[string]any{"message": "hello"})
	require.Equal(t, http.StatusOK, rr.Code)
	conv := decode[services.Exchange](t, rr).ConversationID

	rr = do(t, h, http.MethodPost, "/chat", bobToken, map[string]any{"conversation_id": conv, "message": "hello"})
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, models.CodeUnauthorized, decode[errorBody](t, rr).Code)

	rr = do(t, h, http.MethodGet, "/conversations/"+itoa(conv)+"/messages", bobToken, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = do(t, h, http.MethodPost, "/chat", aliceToken, map[string]any{"conversation_id": conv + 100, "message": "hello"})
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, models.CodeNotFound, decode[errorBody](t, rr).Code)
}

func TestChatBadRequests(t *testing.T) {
	h := newRouter(t)

	rr := do(t, h, http.MethodPost, "/chat", aliceToken, map[string]any{"message": "   "})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, models.CodeValidation, decode[errorBody](t, rr).Code)

	rr = do(t, h, http.MethodPost, "/chat", aliceToken, `{"message": `)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, h, http.MethodGet, "/conversations", aliceToken, nil)
	assert.Empty(t, decode[[]models.Conversation](t, rr))
}

func TestChatToolErrorIsNotFatal(t *testing.T) {
	h := newRouter(t)

	rr := do(t, h, http.MethodPost, "/chat", aliceToken, map[string]any{"message": "complete task 42"})
	require.Equal(t, http.StatusOK, rr.Code)
	ex := decode[services.Exchange](t, rr)
	require.NotNil(t, ex.Error)
	assert.Equal(t, models.CodeNotFound, ex.Error.Code)
	assert.Contains(t, ex.Response, "task #42 was not found")
}

func TestTasksREST(t *testing.T) {
	h := newRouter(t)

	rr := do(t, h, http.MethodPost, "/tasks", aliceToken, map[string]any{"title": "write report", "description": "q3"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	task := decode[models.Task](t, rr)
	assert.Equal(t, "Write report", task.Title)
	path := "/tasks/" + itoa(task.ID)

	rr = do(t, h, http.MethodGet, path, aliceToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, h, http.MethodGet, path, bobToken, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = do(t, h, http.MethodPatch, path, aliceToken, map[string]any{"status": "in_progress"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, models.StatusInProgress, decode[models.Task](t, rr).Status)

	rr = do(t, h, http.MethodPatch, path, aliceToken, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, models.CodeNoOp, decode[errorBody](t, rr).Code)

	rr = do(t, h, http.MethodPost, path+"/complete", aliceToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, models.StatusCompleted, decode[models.Task](t, rr).Status)

	rr = do(t, h, http.MethodGet, "/tasks?status=completed", aliceToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]models.Task](t, rr), 1)

	rr = do(t, h, http.MethodGet, "/tasks?status=archived", aliceToken, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, h, http.MethodGet, "/tasks", bobToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decode[[]models.Task](t, rr))

	rr = do(t, h, http.MethodDelete, path, bobToken, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = do(t, h, http.MethodDelete, path, aliceToken, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = do(t, h, http.MethodGet, path, aliceToken, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, h, http.MethodGet, "/tasks/abc", aliceToken, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, h, http.MethodPost, "/tasks", aliceToken, map[string]any{"title": ""})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestTools(t *testing.T) {
	h := newRouter(t)

	rr := do(t, h, http.MethodGet, "/tools", aliceToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]services.Tool](t, rr), 5)

	rr = do(t, h, http.MethodPost, "/tools/add_task", aliceToken, map[string]any{"title": "feed cat", "user_id": "bob"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	res := decode[struct {
		Call models.ToolCall `json:"call"`
		Task *models.Task    `json:"task"`
	}](t, rr)
	require.NotNil(t, res.Task)
	assert.Equal(t, "alice", res.Task.OwnerID)
	assert.Equal(t, "Feed cat", res.Task.Title)

	rr = do(t, h, http.MethodPost, "/tools/list_tasks", aliceToken, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	listed := decode[struct {
		Tasks []models.Task `json:"tasks"`
	}](t, rr)
	assert.Len(t, listed.Tasks, 1)

	rr = do(t, h, http.MethodPost, "/tools/list_tasks", bobToken, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	empty := decode[map[string]json.RawMessage](t, rr)
	require.Contains(t, empty, "tasks")
	assert.JSONEq(t, `[]`, string(empty["tasks"]))
	assert.NotContains(t, empty, "task")

	rr = do(t, h, http.MethodPost, "/tools/launch_rocket", aliceToken, map[string]any{})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, h, http.MethodPost, "/tools/complete_task", aliceToken, map[string]any{"task_id": "one"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, models.CodeValidation, decode[errorBody](t, rr).Code)

	rr = do(t, h, http.MethodPost, "/tools/delete_task", bobToken, map[string]any{"task_id": res.Task.ID})
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestToolsKeepLargeTaskIDs(t *testing.T) {
	h := newRouter(t)

	// 2^53+1 has no exact float64 representation.
	rr := do(t, h, http.MethodPost, "/tools/complete_task", aliceToken, `{"task_id": 9007199254740993}`)
	require.Equal(t, http.StatusNotFound, rr.Code, rr.Body.String())
	body := decode[errorBody](t, rr)
	assert.Equal(t, models.CodeNotFound, body.Code)
	assert.Contains(t, body.Error, "9007199254740993")
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }
