package storagemock

import (
	context "context"

	mock "github.com/stretchr/testify/mock"

	model "github.com/agentrelay/relay/internal/model"
	storage "github.com/agentrelay/relay/internal/storage"
)

// MockTaskRepository is a testify mock of storage.TaskRepository.
type MockTaskRepository struct {
	mock.Mock
}

var _ storage.TaskRepository = (*MockTaskRepository)(nil)

func (_m *MockTaskRepository) returnTask(ret mock.Arguments) (*model.TaskState, error) {
	var r0 *model.TaskState
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*model.TaskState)
	}
	return r0, ret.Error(1)
}

// CreateTask provides a mock function with given fields: ctx, req
func (_m *MockTaskRepository) CreateTask(ctx context.Context, req storage.CreateTaskRequest) (*model.TaskState, error) {
	return _m.returnTask(_m.Called(ctx, req))
}

// GetTask provides a mock function with given fields: ctx, id
func (_m *MockTaskRepository) GetTask(ctx context.Context, id string) (*model.TaskState, error) {
	return _m.returnTask(_m.Called(ctx, id))
}

// UpdateTask provides a mock function with given fields: ctx, id, update
func (_m *MockTaskRepository) UpdateTask(ctx context.Context, id string, update storage.TaskUpdate) (*model.TaskState, error) {
	return _m.returnTask(_m.Called(ctx, id, update))
}

// UpdateSessionID provides a mock function with given fields: ctx, id, sessionID
func (_m *MockTaskRepository) UpdateSessionID(ctx context.Context, id string, sessionID string) (*model.TaskState, error) {
	return _m.returnTask(_m.Called(ctx, id, sessionID))
}

// AddConversationMessage provides a mock function with given fields: ctx, id, msg
func (_m *MockTaskRepository) AddConversationMessage(ctx context.Context, id string, msg model.Message) (*model.TaskState, error) {
	return _m.returnTask(_m.Called(ctx, id, msg))
}

// AddFileModification provides a mock function with given fields: ctx, id, mod
func (_m *MockTaskRepository) AddFileModification(ctx context.Context, id string, mod model.FileModification) (*model.TaskState, error) {
	return _m.returnTask(_m.Called(ctx, id, mod))
}

// UpdateProgress provides a mock function with given fields: ctx, id, update
func (_m *MockTaskRepository) UpdateProgress(ctx context.Context, id string, update storage.ProgressUpdate) (*model.TaskState, error) {
	return _m.returnTask(_m.Called(ctx, id, update))
}

// UpdateNextSteps provides a mock function with given fields: ctx, id, steps
func (_m *MockTaskRepository) UpdateNextSteps(ctx context.Context, id string, steps model.NextSteps) (*model.TaskState, error) {
	return _m.returnTask(_m.Called(ctx, id, steps))
}

// InitiateHandoff provides a mock function with given fields: ctx, id, req
func (_m *MockTaskRepository) InitiateHandoff(ctx context.Context, id string, req storage.HandoffRequest) (*model.TaskState, error) {
	return _m.returnTask(_m.Called(ctx, id, req))
}

// AcceptHandoff provides a mock function with given fields: ctx, id, accepting
func (_m *MockTaskRepository) AcceptHandoff(ctx context.Context, id string, accepting model.AgentIdentity) (*model.TaskState, error) {
	return _m.returnTask(_m.Called(ctx, id, accepting))
}

// CompleteTask provides a mock function with given fields: ctx, id
func (_m *MockTaskRepository) CompleteTask(ctx context.Context, id string) (*model.TaskState, error) {
	return _m.returnTask(_m.Called(ctx, id))
}

// FailTask provides a mock function with given fields: ctx, id, reason
func (_m *MockTaskRepository) FailTask(ctx context.Context, id string, reason string) (*model.TaskState, error) {
	return _m.returnTask(_m.Called(ctx, id, reason))
}

// CancelTask provides a mock function with given fields: ctx, id
func (_m *MockTaskRepository) CancelTask(ctx context.Context, id string) (*model.TaskState, error) {
	return _m.returnTask(_m.Called(ctx, id))
}

// ListTasks provides a mock function with given fields: ctx
func (_m *MockTaskRepository) ListTasks(ctx context.Context) ([]model.TaskSummary, error) {
	ret := _m.Called(ctx)

	var r0 []model.TaskSummary
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]model.TaskSummary)
	}
	return r0, ret.Error(1)
}
