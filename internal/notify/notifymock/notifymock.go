package notifymock

import (
	context "context"

	mock "github.com/stretchr/testify/mock"

	notify "github.com/agentrelay/relay/internal/notify"
)

// MockNotifier is a testify mock of notify.Notifier.
type MockNotifier struct {
	mock.Mock
}

var _ notify.Notifier = (*MockNotifier)(nil)

// OpenIssue provides a mock function with given fields: ctx, repo, title, body
func (_m *MockNotifier) OpenIssue(ctx context.Context, repo string, title string, body string) (int, error) {
	ret := _m.Called(ctx, repo, title, body)
	return ret.Int(0), ret.Error(1)
}

// PostHandoffNotice provides a mock function with given fields: ctx, repo, issueNumber, notice
func (_m *MockNotifier) PostHandoffNotice(ctx context.Context, repo string, issueNumber int, notice notify.HandoffNotice) error {
	ret := _m.Called(ctx, repo, issueNumber, notice)
	return ret.Error(0)
}
