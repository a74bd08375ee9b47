package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/agentrelay/relay/internal/log"
	"github.com/agentrelay/relay/internal/model"
	"github.com/agentrelay/relay/internal/notify"
)

const defaultGitHubAPIBase = "https://api.github.com"

// NotifierConfig configures the GitHub issue-comment notifier.
type NotifierConfig struct {
	Token      string
	HTTPClient *http.Client
	Logger     log.Logger
}

func (c *NotifierConfig) defaults() error {
	if c.HTTPClient == nil {
		c.HTTPClient = http.DefaultClient
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "notify.GitHub"})
	return nil
}

// Notifier posts handoff notices as comments on the task's tracking issue.
type Notifier struct {
	token      string
	httpClient *http.Client
	logger     log.Logger

	// Base URL (overridable for testing).
	apiBaseURL string
}

// NewNotifier creates a new GitHub issue-comment notifier.
func NewNotifier(cfg NotifierConfig) (*Notifier, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Notifier{
		token:      cfg.Token,
		httpClient: cfg.HTTPClient,
		logger:     cfg.Logger,
		apiBaseURL: defaultGitHubAPIBase,
	}, nil
}

// NewNotifierWithBaseURL creates a notifier with a custom API base URL (for testing).
func NewNotifierWithBaseURL(cfg NotifierConfig, apiBaseURL string) (*Notifier, error) {
	n, err := NewNotifier(cfg)
	if err != nil {
		return nil, err
	}
	n.apiBaseURL = apiBaseURL
	return n, nil
}

var _ notify.Notifier = (*Notifier)(nil)

// OpenIssue satisfies notify.Notifier interface.
func (n *Notifier) OpenIssue(ctx context.Context, repo, title, body string) (int, error) {
	if repo == "" {
		return 0, fmt.Errorf("a repository is required to open an issue: %w", model.ErrNotValid)
	}

	reqBody, err := json.Marshal(map[string]string{"title": title, "body": body})
	if err != nil {
		return 0, fmt.Errorf("could not marshal issue: %w", err)
	}

	u := fmt.Sprintf("%s/repos/%s/issues", n.apiBaseURL, repo)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(reqBody))
	if err != nil {
		return 0, fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if n.token != "" {
		req.Header.Set("Authorization", "Bearer "+n.token)
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("could not execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("HTTP %d opening issue: %s", resp.StatusCode, string(respBody))
	}

	issue := struct {
		Number int `json:"number"`
	}{}
	if err := json.NewDecoder(resp.Body).Decode(&issue); err != nil {
		return 0, fmt.Errorf("could not decode issue response: %w", err)
	}

	n.logger.Infof("Opened tracking issue %s#%d", repo, issue.Number)

	return issue.Number, nil
}

// PostHandoffNotice satisfies notify.Notifier interface.
func (n *Notifier) PostHandoffNotice(ctx context.Context, repo string, issueNumber int, notice notify.HandoffNotice) error {
	if repo == "" || issueNumber == 0 {
		n.logger.Debugf("Task %s has no tracking issue, skipping handoff notice", notice.TaskID)
		return nil
	}

	comment := fmt.Sprintf("## Handoff requested for task %s\n\n**%s**\n\nReason: %s\n\n%s",
		notice.TaskID, notice.Title, notice.Reason, notice.Summary)
	if notice.Envelope != "" {
		comment += fmt.Sprintf("\n\n<details><summary>Handoff envelope</summary>\n\n```json\n%s\n```\n\n</details>",
			notice.Envelope)
	}

	body, err := json.Marshal(map[string]string{"body": comment})
	if err != nil {
		return fmt.Errorf("could not marshal comment: %w", err)
	}

	u := fmt.Sprintf("%s/repos/%s/issues/%d/comments", n.apiBaseURL, repo, issueNumber)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if n.token != "" {
		req.Header.Set("Authorization", "Bearer "+n.token)
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("could not execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("HTTP %d posting comment: %s", resp.StatusCode, string(respBody))
	}

	n.logger.Infof("Posted handoff notice for task %s on %s#%d", notice.TaskID, repo, issueNumber)

	return nil
}
