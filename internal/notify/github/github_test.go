package github_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentrelay/relay/internal/model"
	"github.com/agentrelay/relay/internal/notify"
	"github.com/agentrelay/relay/internal/notify/github"
)

func TestNotifierOpenIssue(t *testing.T) {
	t.Run("Opening an issue should return the issue number.", func(t *testing.T) {
		var gotPath string
		var gotBody map[string]string

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"number": 77}`))
		}))
		defer server.Close()

		notifier, err := github.NewNotifierWithBaseURL(github.NotifierConfig{Token: "gh-token"}, server.URL)
		require.NoError(t, err)

		number, err := notifier.OpenIssue(context.TODO(), "acme/webapp", "Add dark mode", "Theme toggle")
		require.NoError(t, err)

		assert.Equal(t, 77, number)
		assert.Equal(t, "/repos/acme/webapp/issues", gotPath)
		assert.Equal(t, "Add dark mode", gotBody["title"])
		assert.Equal(t, "Theme toggle", gotBody["body"])
	})

	t.Run("Opening an issue without a repository should fail.", func(t *testing.T) {
		notifier, err := github.NewNotifier(github.NotifierConfig{})
		require.NoError(t, err)

		_, err = notifier.OpenIssue(context.TODO(), "", "Add dark mode", "")
		assert.ErrorIs(t, err, model.ErrNotValid)
	})

	t.Run("A non-201 response should be reported as an error.", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
		}))
		defer server.Close()

		notifier, err := github.NewNotifierWithBaseURL(github.NotifierConfig{}, server.URL)
		require.NoError(t, err)

		_, err = notifier.OpenIssue(context.TODO(), "acme/webapp", "Add dark mode", "")
		assert.Error(t, err)
	})
}

func TestNotifierPostHandoffNotice(t *testing.T) {
	t.Run("A notice should be posted as an issue comment.", func(t *testing.T) {
		var gotPath, gotAuth string
		var gotBody map[string]string

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotAuth = r.Header.Get("Authorization")
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			w.WriteHeader(http.StatusCreated)
		}))
		defer server.Close()

		notifier, err := github.NewNotifierWithBaseURL(github.NotifierConfig{Token: "gh-token"}, server.URL)
		require.NoError(t, err)

		err = notifier.PostHandoffNotice(context.TODO(), "acme/webapp", 42, notify.HandoffNotice{
			TaskID:   "task-1",
			Title:    "Add dark mode",
			Reason:   "expertise_needed",
			Envelope: `{"schemaVersion": 1, "taskId": "task-1"}`,
		})
		require.NoError(t, err)

		assert.Equal(t, "/repos/acme/webapp/issues/42/comments", gotPath)
		assert.Equal(t, "Bearer gh-token", gotAuth)
		assert.Contains(t, gotBody["body"], "task-1")
		assert.Contains(t, gotBody["body"], "expertise_needed")
		assert.Contains(t, gotBody["body"], `"schemaVersion": 1`)
	})

	t.Run("A non-201 response should be reported as an error.", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer server.Close()

		notifier, err := github.NewNotifierWithBaseURL(github.NotifierConfig{}, server.URL)
		require.NoError(t, err)

		err = notifier.PostHandoffNotice(context.TODO(), "acme/webapp", 42, notify.HandoffNotice{TaskID: "task-1"})
		assert.Error(t, err)
	})

	t.Run("A task without a tracking issue should be skipped silently.", func(t *testing.T) {
		notifier, err := github.NewNotifier(github.NotifierConfig{})
		require.NoError(t, err)

		err = notifier.PostHandoffNotice(context.TODO(), "acme/webapp", 0, notify.HandoffNotice{TaskID: "task-1"})
		assert.NoError(t, err)
	})
}
