// Package notify is the issue-tracker side channel. Notifications are best
// effort, callers must never treat a delivery failure as fatal.
package notify

import (
	"context"
)

// HandoffNotice is the payload posted when a handoff is requested.
type HandoffNotice struct {
	TaskID  string
	Title   string
	Reason  string
	Summary string
	// Envelope is the serialized handoff envelope, attached so the next agent
	// can pick the task up from the tracker alone.
	Envelope string
}

// Notifier talks to an external issue tracker.
type Notifier interface {
	// OpenIssue creates a tracking issue and returns its number.
	OpenIssue(ctx context.Context, repo, title, body string) (int, error)
	PostHandoffNotice(ctx context.Context, repo string, issueNumber int, notice HandoffNotice) error
}

// Noop is a notifier that does nothing.
const Noop = noop(0)

type noop int

func (noop) OpenIssue(_ context.Context, _, _, _ string) (int, error) { return 0, nil }

func (noop) PostHandoffNotice(_ context.Context, _ string, _ int, _ HandoffNotice) error {
	return nil
}
