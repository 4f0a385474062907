package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazuki-dev/vrcwatch/internal/domain"
	"github.com/hazuki-dev/vrcwatch/internal/ratelimit"
	"github.com/hazuki-dev/vrcwatch/internal/vrchat"
)

func newTestService(t *testing.T, baseURL string, out io.Writer) *Service {
	t.Helper()
	limiter, err := ratelimit.New(100, 1000)
	require.NoError(t, err)
	session, err := vrchat.NewSession(vrchat.SessionConfig{
		Credentials: domain.Credentials{Username: "alice", Password: "x", UserAgent: "vrcwatch-test/1.0"},
		Limiter:     limiter,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		BaseURL:     baseURL,
		Interactive: func() bool { return false },
	})
	require.NoError(t, err)
	directory, err := vrchat.NewDirectory(session, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return NewService(directory, slog.New(slog.NewTextHandler(io.Discard, nil)), out)
}

func friendListHandler(t *testing.T) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/user/friends", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")

		if r.URL.Query().Get("offset") != "0" {
			_, _ = w.Write([]byte(`[]`))
			return
		}
		var page []map[string]any
		if r.URL.Query().Get("offline") == "true" {
			page = []map[string]any{
				{"id": "usr_a", "displayName": "Alice", "status": "active", "location": "offline"},
				{"id": "usr_b", "displayName": "Bob", "status": "active", "location": "offline"},
				// No id at all: must not show up in any count.
				{"displayName": "Ghost"},
			}
		} else {
			page = []map[string]any{
				// usr_b appears in both listings; the online record wins.
				{"id": "usr_b", "displayName": "Bob", "status": "join me", "location": "private"},
				{"id": "usr_c", "displayName": "Carol", "status": "busy", "location": "private"},
				{"id": "usr_d", "displayName": "Dave", "status": "active", "location": "private"},
			}
		}
		require.NoError(t, json.NewEncoder(w).Encode(page))
	}
}

func TestRunDeduplicatesAcrossListings(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(friendListHandler(t))
	t.Cleanup(server.Close)

	var out bytes.Buffer
	service := newTestService(t, server.URL, &out)

	result := service.Run(context.Background(), domain.NewTargetSet(nil))
	assert.Equal(t, Result{Total: 4, Shown: 4, Dropped: 0}, result)

	rendered := out.String()
	assert.Contains(t, rendered, "Alice")
	assert.Contains(t, rendered, "Bob")
	assert.Contains(t, rendered, "Carol")
	assert.Contains(t, rendered, "Dave")
	assert.NotContains(t, rendered, "Ghost")
	// The online listing's fresher state replaced the offline duplicate.
	assert.Contains(t, rendered, "join me")
}

func TestRunFiltersToTargets(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(friendListHandler(t))
	t.Cleanup(server.Close)

	var out bytes.Buffer
	service := newTestService(t, server.URL, &out)

	result := service.Run(context.Background(), domain.NewTargetSet([]domain.UserID{"usr_a"}))
	assert.Equal(t, Result{Total: 4, Shown: 1, Dropped: 3}, result)

	rendered := out.String()
	assert.Contains(t, rendered, "Alice")
	assert.NotContains(t, rendered, "Carol")
}

func TestRunWithEmptyListings(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	t.Cleanup(server.Close)

	var out bytes.Buffer
	service := newTestService(t, server.URL, &out)

	result := service.Run(context.Background(), domain.NewTargetSet(nil))
	assert.Equal(t, Result{}, result)
	assert.NotEmpty(t, out.String(), "the header line renders even when nothing is online")
}
