package identity

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCreatesStableUserID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "identity.yaml")

	m, err := Load(path)
	require.NoError(t, err)
	assert.Regexp(t, `^user_[a-f0-9]{32}$`, m.UserID())
	assert.False(t, m.OnboardingCompleted())

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, m.UserID(), again.UserID())
}

func TestLoadReplacesMalformedUserID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.yaml")
	require.NoError(t, os.WriteFile(path, []byte("user_id: bogus\n"), 0o600))

	m, err := Load(path)
	require.NoError(t, err)
	assert.True(t, isValidUserID(m.UserID()))
}

func TestLoadRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.yaml")
	require.NoError(t, os.WriteFile(path, []byte("user_id: [unterminated\n"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestOnboardingFlagPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.yaml")
	m, err := Load(path)
	require.NoError(t, err)

	require.NoError(t, m.SetOnboardingCompleted(true))
	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.True(t, reloaded.OnboardingCompleted())

	require.NoError(t, reloaded.SetOnboardingCompleted(false))
	reloaded, err = Load(path)
	require.NoError(t, err)
	assert.False(t, reloaded.OnboardingCompleted())
}

func TestNewSessionIDFormat(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	id := newSessionID(now)
	assert.Regexp(t, regexp.MustCompile(`^chat_session_1700000000123_[0-9a-z]{9}$`), id)
	assert.NotEqual(t, NewSessionID(), NewSessionID())
}

func TestMiddlewareInjectsUserID(t *testing.T) {
	m, err := Load(filepath.Join(t.TempDir(), "identity.yaml"))
	require.NoError(t, err)

	var seen string
	h := Middleware(m)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = UserIDFromContext(r.Context())
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	assert.Equal(t, m.UserID(), seen)
	assert.Equal(t, m.UserID(), rec.Header().Get(UserHeaderName))
}

func TestIPFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", IPFromRequest(r))
	r.RemoteAddr = "garbage"
	assert.Equal(t, "garbage", IPFromRequest(r))
}
