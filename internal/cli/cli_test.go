package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ashureev/jobpt/internal/advisor"
	"github.com/ashureev/jobpt/internal/app"
	"github.com/ashureev/jobpt/internal/assistant"
	"github.com/ashureev/jobpt/internal/config"
	"github.com/ashureev/jobpt/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cliEnv struct {
	cfg     *config.Config
	advisor *httptest.Server
	offline atomic.Bool
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	env := &cliEnv{}
	env.advisor = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if env.offline.Load() {
			http.Error(w, "down", http.StatusServiceUnavailable)
			return
		}
		var req struct {
			Messages []advisor.ChatMessage `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		last := req.Messages[len(req.Messages)-1].Content
		if last == assistant.QuestionRequest {
			_, _ = w.Write([]byte(`{"reply":"1. 어떤 스타트업이 좋을까요?\n2. 포트폴리오는 무엇을 준비하나요?"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"reply": "echo: " + last})
	}))
	t.Cleanup(env.advisor.Close)

	dir := t.TempDir()
	env.cfg = &config.Config{
		Port:          "0",
		DataDir:       dir,
		DBPath:        filepath.Join(dir, "jobpt.db"),
		IdentityPath:  filepath.Join(dir, "identity.yaml"),
		SchemaVersion: 1,
		Advisor: config.AdvisorConfig{
			BaseURL:        env.advisor.URL,
			RequestTimeout: 2 * time.Second,
			ProbeTimeout:   time.Second,
		},
		Metrics: config.MetricsConfig{Namespace: "jobpt_cli_test"},
	}
	return env
}

func (e *cliEnv) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root, rt := newRoot(func() (*config.Config, error) { return e.cfg, nil }, app.Options{})
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())
	require.NoError(t, rt.close())
	return out.String(), err
}

func TestChatOneShotAndHistory(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, "", "chat", "hello", "there")
	require.NoError(t, err)
	assert.Equal(t, "echo: hello there\n", out)

	out, err = env.run(t, "", "history")
	require.NoError(t, err)
	assert.Contains(t, out, "user: hello there")
	assert.Contains(t, out, "assistant: echo: hello there")
}

func TestChatREPL(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, "first\n\n/new\nsecond\n/quit\nignored\n", "chat")
	require.NoError(t, err)
	assert.Contains(t, out, "echo: first")
	assert.Contains(t, out, "Started session chat_session_")
	assert.Contains(t, out, "echo: second")
	assert.NotContains(t, out, "ignored")

	out, err = env.run(t, "", "sessions", "list")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"ID", "TITLE", "MESSAGES", "UPDATED"}, strings.Fields(lines[0]))
	for _, line := range lines[1:] {
		fields := strings.Fields(line)
		// the trailing date and time make up the last two fields
		require.GreaterOrEqual(t, len(fields), 4)
		assert.Equal(t, "2", fields[len(fields)-3], line)
	}
}

func TestChatREPLOffline(t *testing.T) {
	env := newCLIEnv(t)
	env.offline.Store(true)

	out, err := env.run(t, "hi\n", "chat")
	require.NoError(t, err)
	assert.Contains(t, out, "(offline")
	assert.Contains(t, out, assistant.OfflineNotice)
}

func TestChatRejectsBlankMessage(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run(t, "", "chat", "   ")
	require.Error(t, err)
	assert.True(t, errors.Is(err, assistant.ErrEmptyMessage))
}

func TestHistoryEmpty(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, "", "history")
	require.NoError(t, err)
	assert.Equal(t, "No sessions.\n", out)

	out, err = env.run(t, "", "history", "chat_session_missing")
	require.NoError(t, err)
	assert.Equal(t, "No messages in chat_session_missing.\n", out)
}

func TestSessionsDeleteAndClear(t *testing.T) {
	env := newCLIEnv(t)
	_, err := env.run(t, "a\n/new\nb\n", "chat")
	require.NoError(t, err)

	out, err := env.run(t, "n\n", "sessions", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "Cancelled.")

	out, err = env.run(t, "", "sessions", "list")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	id := strings.Fields(lines[1])[0]

	out, err = env.run(t, "", "sessions", "delete", id)
	require.NoError(t, err)
	assert.Equal(t, "Deleted: "+id+"\n", out)

	out, err = env.run(t, "y\n", "sessions", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "All sessions deleted.")

	out, err = env.run(t, "", "sessions", "list")
	require.NoError(t, err)
	assert.Equal(t, "No sessions.\n", out)
}

func TestProfileAndQuestions(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, "", "profile", "show")
	require.NoError(t, err)
	assert.Equal(t, "No profile saved.\n", out)

	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte("position: backend_developer\ntechStack: [Go, PostgreSQL]\n"), 0o600))

	out, err = env.run(t, "", "profile", "set", "--file", path)
	require.NoError(t, err)
	assert.Contains(t, out, "backend_developer")

	out, err = env.run(t, "", "profile", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "position: backend_developer")
	assert.Contains(t, out, "- PostgreSQL")

	out, err = env.run(t, "", "questions", "generate")
	require.NoError(t, err)
	assert.Equal(t, "1. 어떤 스타트업이 좋을까요?\n2. 포트폴리오는 무엇을 준비하나요?\n", out)

	out, err = env.run(t, "", "questions", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "2. 포트폴리오는 무엇을 준비하나요?")
}

func TestProfileSetFromJSON(t *testing.T) {
	env := newCLIEnv(t)
	path := filepath.Join(t.TempDir(), "profile.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"position":"data_analyst","experience":"junior"}`), 0o600))

	_, err := env.run(t, "", "profile", "set", "-f", path)
	require.NoError(t, err)

	out, err := env.run(t, "", "profile", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "experience: junior")
}

func TestProfileSetRejectsEmptyFile(t *testing.T) {
	env := newCLIEnv(t)
	path := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(path, []byte("\n"), 0o600))

	_, err := env.run(t, "", "profile", "set", "--file", path)
	require.Error(t, err)

	_, err = env.run(t, "", "profile", "set")
	require.Error(t, err)
}

func TestQuestionsGenerateOffline(t *testing.T) {
	env := newCLIEnv(t)
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte("position: frontend_developer\n"), 0o600))
	_, err := env.run(t, "", "profile", "set", "--file", path)
	require.NoError(t, err)

	env.offline.Store(true)
	out, err := env.run(t, "", "questions", "generate")
	require.NoError(t, err)

	want := assistant.FallbackQuestions(domain.PositionFrontendDeveloper)
	assert.Contains(t, out, "1. "+want[0])
	assert.Equal(t, len(want), strings.Count(out, "\n"))
}

func TestStatus(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, "", "status")
	require.NoError(t, err)
	assert.Regexp(t, `User:\s+user_[0-9a-f]{32}`, out)
	assert.Contains(t, out, env.advisor.URL+"/chat (connected)")
	assert.Contains(t, out, "schema v1")
	assert.Contains(t, out, "Onboarding:  pending")

	env.offline.Store(true)
	out, err = env.run(t, "", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "(disconnected)")
}

func TestReset(t *testing.T) {
	env := newCLIEnv(t)
	_, err := env.run(t, "", "chat", "hello")
	require.NoError(t, err)

	out, err := env.run(t, "no\n", "reset")
	require.NoError(t, err)
	assert.Contains(t, out, "Cancelled.")

	out, err = env.run(t, "", "reset", "--force")
	require.NoError(t, err)
	assert.Equal(t, "All local data deleted.\n", out)

	out, err = env.run(t, "", "sessions", "list")
	require.NoError(t, err)
	assert.Equal(t, "No sessions.\n", out)
}

func TestConfigErrorSurfaces(t *testing.T) {
	root, rt := newRoot(func() (*config.Config, error) { return nil, errors.New("bad env") }, app.Options{})
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"sessions", "list"})

	err := root.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad env")
	require.NoError(t, rt.close())
}
