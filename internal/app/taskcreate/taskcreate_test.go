package taskcreate_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/agentrelay/relay/internal/app/taskcreate"
	"github.com/agentrelay/relay/internal/model"
	"github.com/agentrelay/relay/internal/storage"
	"github.com/agentrelay/relay/internal/storage/storagemock"
)

func TestServiceRun(t *testing.T) {
	tests := map[string]struct {
		req        taskcreate.Request
		setupMocks func(repo *storagemock.MockTaskRepository)
		expErr     bool
	}{
		"A valid request should create the task through the repository.": {
			req: taskcreate.Request{
				Title:       "Add dark mode",
				Description: "Theme toggle",
				Creator:     model.AgentIdentity{AgentID: "agent-a"},
			},
			setupMocks: func(repo *storagemock.MockTaskRepository) {
				repo.On("CreateTask", mock.Anything, mock.MatchedBy(func(req storage.CreateTaskRequest) bool {
					return req.Title == "Add dark mode" && req.Creator.AgentID == "agent-a"
				})).Once().Return(&model.TaskState{ID: "task-1", Title: "Add dark mode"}, nil)
			},
		},

		"A repository failure should be propagated.": {
			req: taskcreate.Request{Title: "Add dark mode"},
			setupMocks: func(repo *storagemock.MockTaskRepository) {
				repo.On("CreateTask", mock.Anything, mock.Anything).Once().
					Return(nil, fmt.Errorf("something"))
			},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			repo := &storagemock.MockTaskRepository{}
			test.setupMocks(repo)

			service, err := taskcreate.NewService(taskcreate.ServiceConfig{Repository: repo})
			require.NoError(t, err)

			task, err := service.Run(context.TODO(), test.req)

			if test.expErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "task-1", task.ID)
			}
			repo.AssertExpectations(t)
		})
	}
}
