package taskrun_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/agentrelay/relay/internal/agent"
	"github.com/agentrelay/relay/internal/agent/agentmock"
	"github.com/agentrelay/relay/internal/app/taskrun"
	"github.com/agentrelay/relay/internal/blob/memory"
	"github.com/agentrelay/relay/internal/model"
	"github.com/agentrelay/relay/internal/notify/notifymock"
	"github.com/agentrelay/relay/internal/storage"
	"github.com/agentrelay/relay/internal/storage/blobstore"
)

type testEnv struct {
	repo     *blobstore.Repository
	runner   *agentmock.MockRunner
	notifier *notifymock.MockNotifier
	service  *taskrun.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := memory.NewStore(memory.StoreConfig{})
	require.NoError(t, err)
	repo, err := blobstore.NewRepository(blobstore.RepositoryConfig{Store: store})
	require.NoError(t, err)

	runner := &agentmock.MockRunner{}
	notifier := &notifymock.MockNotifier{}

	service, err := taskrun.NewService(taskrun.ServiceConfig{
		Repository: repo,
		Runner:     runner,
		Notifier:   notifier,
	})
	require.NoError(t, err)

	return &testEnv{repo: repo, runner: runner, notifier: notifier, service: service}
}

func (e *testEnv) createTask(t *testing.T, allowedAgents ...string) *model.TaskState {
	t.Helper()

	task, err := e.repo.CreateTask(context.TODO(), storage.CreateTaskRequest{
		Title:         "Add dark mode",
		Description:   "Implement the theme toggle",
		Creator:       model.AgentIdentity{AgentID: "agent-a"},
		AllowedAgents: allowedAgents,
		GitHub:        model.GitHubRef{TargetRepo: "acme/webapp", IssueNumber: 7},
	})
	require.NoError(t, err)
	return task
}

func TestServiceRun(t *testing.T) {
	agentA := model.AgentIdentity{AgentID: "agent-a"}

	t.Run("Running a turn on a missing task should fail with not found.", func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.service.Run(context.TODO(), taskrun.Request{TaskID: "nope", Agent: agentA})
		assert.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("An agent outside the allow-list should be rejected.", func(t *testing.T) {
		env := newTestEnv(t)
		task := env.createTask(t, "agent-b")

		_, err := env.service.Run(context.TODO(), taskrun.Request{TaskID: task.ID, Agent: agentA})
		assert.ErrorIs(t, err, model.ErrUnauthorized)
	})

	t.Run("A terminal task should not be resumed.", func(t *testing.T) {
		env := newTestEnv(t)
		task := env.createTask(t)

		_, err := env.repo.CompleteTask(context.TODO(), task.ID)
		require.NoError(t, err)

		_, err = env.service.Run(context.TODO(), taskrun.Request{TaskID: task.ID, Agent: agentA})
		assert.ErrorIs(t, err, model.ErrNotValid)
	})

	t.Run("A successful turn should persist tool effects and the assistant message.", func(t *testing.T) {
		assert := assert.New(t)
		env := newTestEnv(t)
		task := env.createTask(t)

		env.runner.On("RunTurn", mock.Anything, mock.Anything).Once().Return(&agent.TurnResult{
			Text: "Wired the toggle, tests pending.",
			ToolInvocations: []agent.ToolInvocation{
				{
					ID:   "tu-1",
					Name: "update_progress",
					Arguments: map[string]any{
						"phase":           "implementation",
						"percentComplete": float64(45),
						"completedSteps":  []any{"wire toggle"},
						"remainingSteps":  []any{"add tests"},
					},
				},
				{
					ID:   "tu-2",
					Name: "record_file_change",
					Arguments: map[string]any{
						"path":   "src/theme.ts",
						"action": "modified",
					},
				},
			},
		}, nil)

		result, err := env.service.Run(context.TODO(), taskrun.Request{TaskID: task.ID, Agent: agentA})
		require.NoError(t, err)
		assert.False(result.Failed())
		assert.Equal("Wired the toggle, tests pending.", result.Text)

		got := result.Task
		assert.Equal(model.TaskStatusInProgress, got.Status)
		assert.NotEmpty(got.Session.ID)
		assert.Equal(45, got.Progress.PercentComplete)
		require.Len(t, got.Progress.Checkpoints, 1)
		require.Len(t, got.Files, 1)
		assert.Equal("src/theme.ts", got.Files[0].Path)
		require.Len(t, got.Messages, 1)
		assert.Equal(model.MessageRoleAssistant, got.Messages[0].Role)
		assert.Len(got.Messages[0].ToolCalls, 2)

		env.runner.AssertExpectations(t)
	})

	t.Run("An agent failure should flip the task to failed without raising.", func(t *testing.T) {
		env := newTestEnv(t)
		task := env.createTask(t)

		env.runner.On("RunTurn", mock.Anything, mock.Anything).Once().
			Return(nil, fmt.Errorf("model overloaded"))

		result, err := env.service.Run(context.TODO(), taskrun.Request{TaskID: task.ID, Agent: agentA})
		require.NoError(t, err)
		assert.True(t, result.Failed())
		assert.Contains(t, result.Err, "model overloaded")
		assert.Equal(t, model.TaskStatusFailed, result.Task.Status)
		assert.Contains(t, result.Task.Error, "model overloaded")
	})

	t.Run("A handoff request should append the record and notify the issue.", func(t *testing.T) {
		assert := assert.New(t)
		env := newTestEnv(t)
		task := env.createTask(t)

		env.runner.On("RunTurn", mock.Anything, mock.Anything).Once().Return(&agent.TurnResult{
			Text: "Handing off.",
			ToolInvocations: []agent.ToolInvocation{{
				Name: "request_handoff",
				Arguments: map[string]any{
					"reason":       "expertise_needed",
					"instructions": "Accessibility review next.",
				},
			}},
		}, nil)
		env.notifier.On("PostHandoffNotice", mock.Anything, "acme/webapp", 7, mock.Anything).
			Once().Return(nil)

		result, err := env.service.Run(context.TODO(), taskrun.Request{TaskID: task.ID, Agent: agentA})
		require.NoError(t, err)

		got := result.Task
		assert.Equal(model.TaskStatusAwaitingHandoff, got.Status)
		require.Len(t, got.Handoffs, 2)
		assert.Nil(got.LastHandoff().ToAgent)
		assert.Equal("expertise_needed", got.LastHandoff().Reason)

		env.notifier.AssertExpectations(t)
	})

	t.Run("A failing notification should not fail the turn.", func(t *testing.T) {
		env := newTestEnv(t)
		task := env.createTask(t)

		env.runner.On("RunTurn", mock.Anything, mock.Anything).Once().Return(&agent.TurnResult{
			ToolInvocations: []agent.ToolInvocation{{
				Name:      "request_handoff",
				Arguments: map[string]any{"reason": "stuck"},
			}},
		}, nil)
		env.notifier.On("PostHandoffNotice", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Once().Return(fmt.Errorf("tracker down"))

		result, err := env.service.Run(context.TODO(), taskrun.Request{TaskID: task.ID, Agent: agentA})
		require.NoError(t, err)
		assert.False(t, result.Failed())
	})

	t.Run("An unknown tool should fail the turn into the task status.", func(t *testing.T) {
		env := newTestEnv(t)
		task := env.createTask(t)

		env.runner.On("RunTurn", mock.Anything, mock.Anything).Once().Return(&agent.TurnResult{
			ToolInvocations: []agent.ToolInvocation{{Name: "rm_rf"}},
		}, nil)

		result, err := env.service.Run(context.TODO(), taskrun.Request{TaskID: task.ID, Agent: agentA})
		require.NoError(t, err)
		assert.True(t, result.Failed())
		assert.Equal(t, model.TaskStatusFailed, result.Task.Status)
	})

	t.Run("A second turn should reuse the stored session id and resume.", func(t *testing.T) {
		assert := assert.New(t)
		env := newTestEnv(t)
		task := env.createTask(t)

		env.runner.On("RunTurn", mock.Anything, mock.MatchedBy(func(req agent.TurnRequest) bool {
			return !containsResuming(req.Prompt)
		})).Once().Return(&agent.TurnResult{Text: "first"}, nil)

		first, err := env.service.Run(context.TODO(), taskrun.Request{TaskID: task.ID, Agent: agentA})
		require.NoError(t, err)
		sessionID := first.Task.Session.ID
		require.NotEmpty(t, sessionID)

		env.runner.On("RunTurn", mock.Anything, mock.MatchedBy(func(req agent.TurnRequest) bool {
			return containsResuming(req.Prompt)
		})).Once().Return(&agent.TurnResult{Text: "second"}, nil)

		second, err := env.service.Run(context.TODO(), taskrun.Request{TaskID: task.ID, Agent: agentA})
		require.NoError(t, err)
		assert.Equal(sessionID, second.Task.Session.ID)

		env.runner.AssertExpectations(t)
	})
}

func containsResuming(prompt string) bool {
	return len(prompt) >= 16 && prompt[:16] == "You are resuming"
}
