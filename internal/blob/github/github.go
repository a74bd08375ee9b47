package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/agentrelay/relay/internal/log"
	"github.com/agentrelay/relay/internal/model"
)

const defaultGitHubAPIBase = "https://api.github.com"

// StoreConfig configures the GitHub-backed blob store.
type StoreConfig struct {
	// Repo is the GitHub state repository (e.g. "org/agent-task-state").
	Repo string
	// Branch is the branch state is committed to. Empty uses the repository default.
	Branch string
	// Token is the GitHub API token.
	Token string
	// HTTPClient is the HTTP client for API requests.
	HTTPClient *http.Client
	// Logger for logging.
	Logger log.Logger
}

func (c *StoreConfig) defaults() error {
	if c.Repo == "" {
		return fmt.Errorf("repo is required")
	}
	if c.HTTPClient == nil {
		c.HTTPClient = http.DefaultClient
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "blob.GitHub"})
	return nil
}

// Store implements blob.Store on top of the GitHub repository contents API.
// The version token is the git blob SHA the API reports, conditional writes
// pass it back in the `sha` field of the PUT request.
type Store struct {
	repo       string
	branch     string
	token      string
	httpClient *http.Client
	logger     log.Logger

	// Base URL (overridable for testing).
	apiBaseURL string
}

// NewStore creates a new GitHub-backed blob store.
func NewStore(cfg StoreConfig) (*Store, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Store{
		repo:       cfg.Repo,
		branch:     cfg.Branch,
		token:      cfg.Token,
		httpClient: cfg.HTTPClient,
		logger:     cfg.Logger,
		apiBaseURL: defaultGitHubAPIBase,
	}, nil
}

// NewStoreWithBaseURL creates a store with a custom API base URL (for testing).
func NewStoreWithBaseURL(cfg StoreConfig, apiBaseURL string) (*Store, error) {
	s, err := NewStore(cfg)
	if err != nil {
		return nil, err
	}
	s.apiBaseURL = apiBaseURL
	return s, nil
}

// --- JSON wire types (private, contents API) ---

type ghContent struct {
	SHA      string `json:"sha"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

type ghPutRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	SHA     string `json:"sha,omitempty"`
	Branch  string `json:"branch,omitempty"`
}

type ghPutResponse struct {
	Content struct {
		SHA string `json:"sha"`
	} `json:"content"`
}

// Read returns the blob content and its git blob SHA.
func (s *Store) Read(ctx context.Context, path string) ([]byte, string, error) {
	u := s.contentURL(path)
	if s.branch != "" {
		u += "?ref=" + url.QueryEscape(s.branch)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, "", fmt.Errorf("creating request: %w", err)
	}
	s.setHeaders(req)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("reading response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, "", fmt.Errorf("blob %s: %w", path, model.ErrNotFound)
	default:
		return nil, "", fmt.Errorf("HTTP %d from %s", resp.StatusCode, u)
	}

	var c ghContent
	if err := json.Unmarshal(body, &c); err != nil {
		return nil, "", fmt.Errorf("parsing contents response: %w", err)
	}

	// The contents API base64-encodes file content with embedded newlines.
	raw, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(c.Content, "\n", ""))
	if err != nil {
		return nil, "", fmt.Errorf("decoding content: %w", err)
	}

	return raw, c.SHA, nil
}

// Write stores the blob conditionally on the expected SHA.
func (s *Store) Write(ctx context.Context, path string, content []byte, expectedToken string) (string, error) {
	putReq := ghPutRequest{
		Message: fmt.Sprintf("Update %s", path),
		Content: base64.StdEncoding.EncodeToString(content),
		SHA:     expectedToken,
		Branch:  s.branch,
	}
	if expectedToken == "" {
		putReq.Message = fmt.Sprintf("Create %s", path)
	}

	data, err := json.Marshal(putReq)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.contentURL(path), bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	s.setHeaders(req)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
	case http.StatusConflict:
		return "", fmt.Errorf("blob %s has been modified concurrently: %w", path, model.ErrConflict)
	case http.StatusUnprocessableEntity:
		// The API answers 422 both for a missing sha on an existing file and
		// for a stale sha.
		if expectedToken == "" {
			return "", fmt.Errorf("blob %s: %w", path, model.ErrAlreadyExists)
		}
		return "", fmt.Errorf("blob %s has been modified concurrently: %w", path, model.ErrConflict)
	case http.StatusNotFound:
		return "", fmt.Errorf("blob %s: %w", path, model.ErrNotFound)
	default:
		return "", fmt.Errorf("HTTP %d writing %s: %s", resp.StatusCode, path, string(body))
	}

	var putResp ghPutResponse
	if err := json.Unmarshal(body, &putResp); err != nil {
		return "", fmt.Errorf("parsing write response: %w", err)
	}

	s.logger.Debugf("Wrote blob %s (%d bytes)", path, len(content))

	return putResp.Content.SHA, nil
}

func (s *Store) contentURL(path string) string {
	return fmt.Sprintf("%s/repos/%s/contents/%s", s.apiBaseURL, s.repo, path)
}

func (s *Store) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/vnd.github+json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
}
