package memory

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/agentrelay/relay/internal/log"
	"github.com/agentrelay/relay/internal/model"
)

// StoreConfig is the configuration for the memory blob store.
type StoreConfig struct {
	Logger log.Logger
}

func (c *StoreConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "blob.Memory"})
	return nil
}

type entry struct {
	content []byte
	token   string
}

// Store is an in-memory implementation of blob.Store, used for tests and
// ephemeral runs.
type Store struct {
	blobs  map[string]entry
	mu     sync.RWMutex
	logger log.Logger
}

// NewStore creates a new memory blob store.
func NewStore(cfg StoreConfig) (*Store, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Store{
		blobs:  map[string]entry{},
		logger: cfg.Logger,
	}, nil
}

// Read returns the blob content and its version token.
func (s *Store) Read(ctx context.Context, path string) ([]byte, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.blobs[path]
	if !ok {
		return nil, "", fmt.Errorf("blob %s: %w", path, model.ErrNotFound)
	}

	// Return a copy so callers can't mutate stored content.
	content := make([]byte, len(e.content))
	copy(content, e.content)

	return content, e.token, nil
}

// Write stores the blob conditionally on the expected version token.
func (s *Store) Write(ctx context.Context, path string, content []byte, expectedToken string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.blobs[path]

	if expectedToken == "" && exists {
		return "", fmt.Errorf("blob %s: %w", path, model.ErrAlreadyExists)
	}
	if expectedToken != "" {
		if !exists {
			return "", fmt.Errorf("blob %s: %w", path, model.ErrNotFound)
		}
		if current.token != expectedToken {
			return "", fmt.Errorf("blob %s has been modified concurrently: %w", path, model.ErrConflict)
		}
	}

	stored := make([]byte, len(content))
	copy(stored, content)
	token := contentToken(stored)
	s.blobs[path] = entry{content: stored, token: token}

	s.logger.Debugf("Wrote blob %s (%d bytes)", path, len(stored))

	return token, nil
}

// contentToken derives the version token from the content, the same way a
// git-like store derives blob identifiers.
func contentToken(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
