package github_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentrelay/relay/internal/blob/github"
	"github.com/agentrelay/relay/internal/model"
)

func newTestStore(t *testing.T, handler http.HandlerFunc) *github.Store {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	store, err := github.NewStoreWithBaseURL(github.StoreConfig{
		Repo:   "acme/task-state",
		Branch: "main",
		Token:  "gh-token",
	}, server.URL)
	require.NoError(t, err)

	return store
}

func TestStoreRead(t *testing.T) {
	t.Run("Reading a blob should decode the contents API payload.", func(t *testing.T) {
		store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/repos/acme/task-state/contents/tasks/t1/state.json", r.URL.Path)
			assert.Equal(t, "main", r.URL.Query().Get("ref"))
			assert.Equal(t, "Bearer gh-token", r.Header.Get("Authorization"))

			// The contents API wraps base64 content with embedded newlines.
			encoded := base64.StdEncoding.EncodeToString([]byte(`{"id": "t1"}`))
			resp := map[string]string{
				"sha":      "abc123",
				"content":  encoded[:8] + "\n" + encoded[8:],
				"encoding": "base64",
			}
			json.NewEncoder(w).Encode(resp)
		})

		content, token, err := store.Read(context.TODO(), "tasks/t1/state.json")
		require.NoError(t, err)
		assert.Equal(t, []byte(`{"id": "t1"}`), content)
		assert.Equal(t, "abc123", token)
	})

	t.Run("A 404 should map to not found.", func(t *testing.T) {
		store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})

		_, _, err := store.Read(context.TODO(), "missing.json")
		assert.ErrorIs(t, err, model.ErrNotFound)
	})
}

func TestStoreWrite(t *testing.T) {
	t.Run("A write should PUT the base64 content with the expected sha.", func(t *testing.T) {
		var gotBody map[string]any
		store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPut, r.Method)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			json.NewEncoder(w).Encode(map[string]any{"content": map[string]string{"sha": "def456"}})
		})

		token, err := store.Write(context.TODO(), "index.json", []byte(`{}`), "abc123")
		require.NoError(t, err)
		assert.Equal(t, "def456", token)
		assert.Equal(t, "abc123", gotBody["sha"])
		assert.Equal(t, "main", gotBody["branch"])
		assert.Equal(t, base64.StdEncoding.EncodeToString([]byte(`{}`)), gotBody["content"])
	})

	t.Run("A 409 should map to conflict.", func(t *testing.T) {
		store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusConflict)
		})

		_, err := store.Write(context.TODO(), "index.json", []byte(`{}`), "stale")
		assert.ErrorIs(t, err, model.ErrConflict)
	})

	t.Run("A 422 with a token should map to conflict.", func(t *testing.T) {
		store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
		})

		_, err := store.Write(context.TODO(), "index.json", []byte(`{}`), "stale")
		assert.ErrorIs(t, err, model.ErrConflict)
	})

	t.Run("A 422 without a token should map to already exists.", func(t *testing.T) {
		store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
		})

		_, err := store.Write(context.TODO(), "index.json", []byte(`{}`), "")
		assert.ErrorIs(t, err, model.ErrAlreadyExists)
	})
}
