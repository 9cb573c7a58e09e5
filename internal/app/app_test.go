package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/ashureev/jobpt/internal/assistant"
	"github.com/ashureev/jobpt/internal/config"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Port:          "0",
		DataDir:       dir,
		DBPath:        filepath.Join(dir, "jobpt.db"),
		IdentityPath:  filepath.Join(dir, "identity.yaml"),
		SchemaVersion: 1,
		Advisor: config.AdvisorConfig{
			BaseURL:        baseURL,
			RequestTimeout: 2 * time.Second,
			ProbeTimeout:   time.Second,
		},
		Metrics: config.MetricsConfig{Namespace: "jobpt_test"},
	}
}

func TestBuild(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"reply":"hello"}`))
	}))
	defer srv.Close()

	ctx := context.Background()
	cfg := testConfig(t, srv.URL)
	a, err := Build(ctx, cfg, nil, Options{HTTPClient: srv.Client()})
	require.NoError(t, err)
	a.Assistant.Wait()

	assert.Equal(t, assistant.StateActive, a.Assistant.State())
	assert.Equal(t, assistant.StatusConnected, a.Assistant.Status())
	assert.Equal(t, srv.URL+"/chat", a.Advisor.Endpoint())

	reply, err := a.Assistant.SendMessage(ctx, "hi")
	require.NoError(t, err)
	assert.Equal(t, "hello", reply)

	n, err := testutil.GatherAndCount(a.Registry, "jobpt_test_messages_sent_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	userID := a.Identity.UserID()
	require.NoError(t, a.Close())

	// Reopening keeps the same user and history.
	b, err := Build(ctx, cfg, nil, Options{HTTPClient: srv.Client()})
	require.NoError(t, err)
	defer b.Close()
	b.Assistant.Wait()

	assert.Equal(t, userID, b.Identity.UserID())
	sessions, err := b.Assistant.Sessions(ctx)
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}

func TestBuildFailsOnDowngrade(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, "http://127.0.0.1:1")
	cfg.SchemaVersion = 3

	a, err := Build(ctx, cfg, nil, Options{})
	require.NoError(t, err)
	require.NoError(t, a.Close())

	cfg.SchemaVersion = 2
	_, err = Build(ctx, cfg, nil, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open store")
}
