package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentrelay/relay/internal/agent"
	"github.com/agentrelay/relay/internal/agent/fake"
	"github.com/agentrelay/relay/internal/api"
	"github.com/agentrelay/relay/internal/app/handoffaccept"
	"github.com/agentrelay/relay/internal/app/handoffinit"
	"github.com/agentrelay/relay/internal/app/taskcreate"
	"github.com/agentrelay/relay/internal/app/taskrun"
	"github.com/agentrelay/relay/internal/app/taskstatus"
	"github.com/agentrelay/relay/internal/auth"
	"github.com/agentrelay/relay/internal/blob/memory"
	"github.com/agentrelay/relay/internal/model"
	"github.com/agentrelay/relay/internal/storage/blobstore"
)

const testSecret = "test-secret"

func newTestHandler(t *testing.T, turnResults ...agent.TurnResult) http.Handler {
	t.Helper()

	store, err := memory.NewStore(memory.StoreConfig{})
	require.NoError(t, err)
	repo, err := blobstore.NewRepository(blobstore.RepositoryConfig{Store: store})
	require.NoError(t, err)

	create, err := taskcreate.NewService(taskcreate.ServiceConfig{Repository: repo})
	require.NoError(t, err)
	run, err := taskrun.NewService(taskrun.ServiceConfig{
		Repository: repo,
		Runner:     fake.NewRunner(turnResults...),
	})
	require.NoError(t, err)
	status, err := taskstatus.NewService(taskstatus.ServiceConfig{Repository: repo})
	require.NoError(t, err)
	hinit, err := handoffinit.NewService(handoffinit.ServiceConfig{Repository: repo})
	require.NoError(t, err)
	haccept, err := handoffaccept.NewService(handoffaccept.ServiceConfig{Repository: repo})
	require.NoError(t, err)
	validator, err := auth.NewTokenValidator(auth.TokenValidatorConfig{Secret: testSecret})
	require.NoError(t, err)

	router, err := api.NewRouter(api.RouterConfig{
		TaskCreate:     create,
		TaskRun:        run,
		TaskStatus:     status,
		HandoffInit:    hinit,
		HandoffAccept:  haccept,
		TokenValidator: validator,
	})
	require.NoError(t, err)

	return router.Handler()
}

func agentToken(t *testing.T, agentID string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": agentID})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func doRequest(t *testing.T, handler http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func createTaskViaAPI(t *testing.T, handler http.Handler, token string, body map[string]any) model.TaskState {
	t.Helper()

	rec := doRequest(t, handler, http.MethodPost, "/api/v1/tasks", token, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var task model.TaskState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &task))
	return task
}

func TestRouterAuth(t *testing.T) {
	handler := newTestHandler(t)

	t.Run("The health endpoint should not require a token.", func(t *testing.T) {
		rec := doRequest(t, handler, http.MethodGet, "/health", "", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("API calls without a token should get a 401.", func(t *testing.T) {
		rec := doRequest(t, handler, http.MethodGet, "/api/v1/tasks", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("API calls with a bad token should get a 401.", func(t *testing.T) {
		rec := doRequest(t, handler, http.MethodGet, "/api/v1/tasks", "garbage", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRouterTasks(t *testing.T) {
	t.Run("Creating, fetching and listing a task should work end to end.", func(t *testing.T) {
		assert := assert.New(t)
		handler := newTestHandler(t)
		token := agentToken(t, "agent-a")

		task := createTaskViaAPI(t, handler, token, map[string]any{
			"title":       "Add dark mode",
			"description": "Theme toggle",
			"targetRepo":  "acme/webapp",
		})
		assert.Equal(model.TaskStatusPending, task.Status)
		assert.Len(task.Handoffs, 1)

		rec := doRequest(t, handler, http.MethodGet, "/api/v1/tasks/"+task.ID, token, nil)
		assert.Equal(http.StatusOK, rec.Code)

		rec = doRequest(t, handler, http.MethodGet, "/api/v1/tasks", token, nil)
		assert.Equal(http.StatusOK, rec.Code)
		var summaries []model.TaskSummary
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summaries))
		require.Len(t, summaries, 1)
		assert.Equal(task.ID, summaries[0].ID)
	})

	t.Run("Creating a task without a title should get a 400.", func(t *testing.T) {
		handler := newTestHandler(t)
		rec := doRequest(t, handler, http.MethodPost, "/api/v1/tasks", agentToken(t, "agent-a"), map[string]any{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Fetching a missing task should get a 404.", func(t *testing.T) {
		handler := newTestHandler(t)
		rec := doRequest(t, handler, http.MethodGet, "/api/v1/tasks/missing", agentToken(t, "agent-a"), nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestRouterTurns(t *testing.T) {
	t.Run("Running a turn should return the turn outcome.", func(t *testing.T) {
		handler := newTestHandler(t, agent.TurnResult{Text: "done for today"})
		token := agentToken(t, "agent-a")

		task := createTaskViaAPI(t, handler, token, map[string]any{"title": "Add dark mode"})

		rec := doRequest(t, handler, http.MethodPost, "/api/v1/tasks/"+task.ID+"/turns", token, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp struct {
			Text string          `json:"text"`
			Task model.TaskState `json:"task"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "done for today", resp.Text)
		assert.Equal(t, model.TaskStatusInProgress, resp.Task.Status)
	})

	t.Run("An agent outside the allow-list should get a 403.", func(t *testing.T) {
		handler := newTestHandler(t)
		creatorToken := agentToken(t, "agent-a")

		task := createTaskViaAPI(t, handler, creatorToken, map[string]any{
			"title":         "Add dark mode",
			"allowedAgents": []string{"agent-a"},
		})

		rec := doRequest(t, handler, http.MethodPost, "/api/v1/tasks/"+task.ID+"/turns", agentToken(t, "agent-x"), nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestRouterHandoffs(t *testing.T) {
	t.Run("The handoff flow should walk initiate then accept.", func(t *testing.T) {
		assert := assert.New(t)
		handler := newTestHandler(t)
		tokenA := agentToken(t, "agent-a")
		tokenB := agentToken(t, "agent-b")

		task := createTaskViaAPI(t, handler, tokenA, map[string]any{"title": "Add dark mode"})

		rec := doRequest(t, handler, http.MethodPost, "/api/v1/tasks/"+task.ID+"/handoff", tokenA,
			map[string]any{"reason": "expertise_needed", "instructions": "a11y next"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var updated model.TaskState
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
		assert.Equal(model.TaskStatusAwaitingHandoff, updated.Status)

		rec = doRequest(t, handler, http.MethodPost, "/api/v1/tasks/"+task.ID+"/handoff/accept", tokenB, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
		assert.Equal(model.TaskStatusHandedOff, updated.Status)
		assert.Equal("agent-b", updated.LastHandoff().ToAgent.AgentID)
	})

	t.Run("Accepting without a pending handoff should get a 409.", func(t *testing.T) {
		handler := newTestHandler(t)
		token := agentToken(t, "agent-a")

		task := createTaskViaAPI(t, handler, token, map[string]any{"title": "Add dark mode"})

		rec := doRequest(t, handler, http.MethodPost, "/api/v1/tasks/"+task.ID+"/handoff/accept", token, nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}
