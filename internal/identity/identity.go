// Package identity provides the stable per-client identity and onboarding state.
package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// UserHeaderName carries the resolved user id on API responses.
const UserHeaderName = "X-Jobpt-User-ID"

type contextKey int

const (
	userIDKey contextKey = iota
)

var userIDPattern = regexp.MustCompile(`^user_[a-f0-9]{32}$`)

type state struct {
	UserID     string          `yaml:"user_id"`
	Onboarding map[string]bool `yaml:"onboarding,omitempty"`
}

// Manager owns the identity file. The user id is generated once and kept
// across restarts; the onboarding flag is keyed by user id.
type Manager struct {
	mu    sync.RWMutex
	path  string
	state state
}

// Load reads the identity file at path, creating it when missing or when the
// stored user id is malformed.
func Load(path string) (*Manager, error) {
	m := &Manager{path: path}

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read identity file: %w", err)
	default:
		if err := yaml.Unmarshal(raw, &m.state); err != nil {
			return nil, fmt.Errorf("parse identity file %s: %w", path, err)
		}
	}

	if isValidUserID(m.state.UserID) {
		return m, nil
	}

	id, err := generateUserID()
	if err != nil {
		return nil, err
	}
	m.state = state{UserID: id}
	if err := m.save(); err != nil {
		return nil, err
	}
	return m, nil
}

// UserID returns the stable user identifier.
func (m *Manager) UserID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.UserID
}

// OnboardingCompleted reports the onboarding flag of the current user.
func (m *Manager) OnboardingCompleted() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.Onboarding[m.state.UserID]
}

// SetOnboardingCompleted persists the onboarding flag. Clearing it removes the entry.
func (m *Manager) SetOnboardingCompleted(completed bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if completed {
		if m.state.Onboarding == nil {
			m.state.Onboarding = make(map[string]bool)
		}
		m.state.Onboarding[m.state.UserID] = true
	} else {
		delete(m.state.Onboarding, m.state.UserID)
	}
	return m.save()
}

// save writes the state via a temp file and rename. Caller holds mu or owns m.
func (m *Manager) save() error {
	raw, err := yaml.Marshal(&m.state)
	if err != nil {
		return fmt.Errorf("marshal identity: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("create identity directory: %w", err)
	}
	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write identity file: %w", err)
	}
	if err := os.Rename(tmp, m.path); err != nil {
		return fmt.Errorf("replace identity file: %w", err)
	}
	return nil
}

func generateUserID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate user id: %w", err)
	}
	return "user_" + hex.EncodeToString(buf), nil
}

func isValidUserID(id string) bool {
	return userIDPattern.MatchString(id)
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewSessionID returns a fresh conversation id of the form
// chat_session_<unixMillis>_<9 base36 chars>.
func NewSessionID() string {
	return newSessionID(time.Now())
}

func newSessionID(now time.Time) string {
	suffix := make([]byte, 9)
	limit := big.NewInt(int64(len(base36)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			// crypto/rand does not fail on supported platforms.
			panic(fmt.Sprintf("identity: read random: %v", err))
		}
		suffix[i] = base36[n.Int64()]
	}
	return "chat_session_" + strconv.FormatInt(now.UnixMilli(), 10) + "_" + string(suffix)
}

// WithUserID returns ctx carrying userID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext extracts the user ID from the request context.
func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(userIDKey).(string); ok {
		return v
	}
	return ""
}

// Middleware injects the local user id into every request.
func Middleware(m *Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := m.UserID()
			w.Header().Set(UserHeaderName, userID)
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// IPFromRequest returns a normalized remote IP for request logging.
func IPFromRequest(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
