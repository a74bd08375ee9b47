package agentmock

import (
	context "context"

	mock "github.com/stretchr/testify/mock"

	agent "github.com/agentrelay/relay/internal/agent"
)

// MockRunner is a testify mock of agent.Runner.
type MockRunner struct {
	mock.Mock
}

var _ agent.Runner = (*MockRunner)(nil)

// RunTurn provides a mock function with given fields: ctx, req
func (_m *MockRunner) RunTurn(ctx context.Context, req agent.TurnRequest) (*agent.TurnResult, error) {
	ret := _m.Called(ctx, req)

	var r0 *agent.TurnResult
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*agent.TurnResult)
	}
	return r0, ret.Error(1)
}
