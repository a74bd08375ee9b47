package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentrelay/relay/internal/config"
)

func TestLoad(t *testing.T) {
	t.Run("A config file should be layered over the defaults.", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "relay.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9999"
store:
  kind: github
  repo: acme/task-state
  branch: main
auth:
  jwt_secret: super-secret
`), 0644))

		cfg, err := config.Load(path)
		require.NoError(t, err)

		assert.Equal(t, ":9999", cfg.Server.Addr)
		assert.Equal(t, "github", cfg.Store.Kind)
		assert.Equal(t, "acme/task-state", cfg.Store.Repo)
		assert.Equal(t, "super-secret", cfg.Auth.JWTSecret)
		// Untouched defaults survive.
		assert.Equal(t, "info", cfg.LogLevel)
		assert.Equal(t, "anthropic", cfg.Agent.Provider)
	})

	t.Run("Environment credentials should override file values.", func(t *testing.T) {
		t.Setenv("ANTHROPIC_API_KEY", "env-key")
		t.Setenv("GITHUB_TOKEN", "env-token")

		path := filepath.Join(t.TempDir(), "relay.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
agent:
  api_key: file-key
`), 0644))

		cfg, err := config.Load(path)
		require.NoError(t, err)

		assert.Equal(t, "env-key", cfg.Agent.APIKey)
		assert.Equal(t, "env-token", cfg.Store.Token)
		assert.Equal(t, "env-token", cfg.Notify.Token)
	})

	t.Run("A missing file should fail.", func(t *testing.T) {
		_, err := config.Load("/does/not/exist.yaml")
		assert.Error(t, err)
	})

	t.Run("Malformed YAML should fail.", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "relay.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`server: [`), 0644))

		_, err := config.Load(path)
		assert.Error(t, err)
	})
}
