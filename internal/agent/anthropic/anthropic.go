package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/agentrelay/relay/internal/agent"
	"github.com/agentrelay/relay/internal/log"
)

const (
	defaultBaseURL   = "https://api.anthropic.com"
	defaultModel     = "claude-sonnet-4-20250514"
	defaultMaxTokens = 4096
	apiVersion       = "2023-06-01"
)

// RunnerConfig is the configuration for the Anthropic agent runner.
type RunnerConfig struct {
	APIKey     string
	Model      string
	MaxTokens  int
	BaseURL    string
	HTTPClient *http.Client
	Logger     log.Logger
}

func (c *RunnerConfig) defaults() error {
	if c.APIKey == "" {
		return fmt.Errorf("api key is required")
	}
	if c.Model == "" {
		c.Model = defaultModel
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = defaultMaxTokens
	}
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.HTTPClient == nil {
		c.HTTPClient = http.DefaultClient
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "agent.Anthropic"})
	return nil
}

// Runner implements agent.Runner using the Anthropic Messages API.
type Runner struct {
	cfg RunnerConfig
}

// NewRunner creates a new Anthropic agent runner.
func NewRunner(cfg RunnerConfig) (*Runner, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Runner{cfg: cfg}, nil
}

var _ agent.Runner = (*Runner)(nil)

// --- JSON wire types (private, Messages API) ---

type apiRequest struct {
	Model     string       `json:"model"`
	MaxTokens int          `json:"max_tokens"`
	System    string       `json:"system,omitempty"`
	Messages  []apiMessage `json:"messages"`
	Tools     []apiTool    `json:"tools,omitempty"`
}

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type apiTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

type apiResponse struct {
	Content []apiContentItem `json:"content"`
	Error   *apiError        `json:"error,omitempty"`
}

type apiContentItem struct {
	Type  string         `json:"type"`
	Text  string         `json:"text,omitempty"`
	ID    string         `json:"id,omitempty"`
	Name  string         `json:"name,omitempty"`
	Input map[string]any `json:"input,omitempty"`
}

type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// RunTurn satisfies agent.Runner interface.
func (r *Runner) RunTurn(ctx context.Context, turn agent.TurnRequest) (*agent.TurnResult, error) {
	body := apiRequest{
		Model:     r.cfg.Model,
		MaxTokens: r.cfg.MaxTokens,
		System:    turn.System,
		Messages:  []apiMessage{{Role: "user", Content: turn.Prompt}},
	}
	for _, t := range turn.Tools {
		schema := t.Parameters
		if schema == nil {
			schema = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		body.Tools = append(body.Tools, apiTool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: schema,
		})
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("could not marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.BaseURL+"/v1/messages", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", r.cfg.APIKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := r.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var apiResp apiResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("could not unmarshal response: %w", err)
	}
	if apiResp.Error != nil {
		return nil, fmt.Errorf("%s: %s", apiResp.Error.Type, apiResp.Error.Message)
	}

	result := &agent.TurnResult{}
	var textParts []string
	for _, item := range apiResp.Content {
		switch item.Type {
		case "text":
			textParts = append(textParts, item.Text)
		case "tool_use":
			result.ToolInvocations = append(result.ToolInvocations, agent.ToolInvocation{
				ID:        item.ID,
				Name:      item.Name,
				Arguments: item.Input,
			})
		}
	}
	result.Text = strings.Join(textParts, "")

	r.cfg.Logger.Debugf("Turn finished with %d tool invocations", len(result.ToolInvocations))

	return result, nil
}
