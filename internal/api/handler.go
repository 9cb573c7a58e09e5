// Package api provides the local HTTP API of the assistant.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/ashureev/jobpt/internal/assistant"
	"github.com/ashureev/jobpt/internal/domain"
	"github.com/ashureev/jobpt/internal/identity"
	"github.com/containerd/errdefs"
)

const maxBodyBytes = 1 << 20

// Assistant is the orchestrator surface the handlers depend on.
type Assistant interface {
	Send(ctx context.Context, text string) (assistant.Exchange, error)
	StartNewSession() string
	ResetSession(ctx context.Context) (string, error)
	DeleteSession(ctx context.Context, id string) error
	ClearAllSessions(ctx context.Context) error
	ClearAllMessages(ctx context.Context) error
	ClearAllData(ctx context.Context) error
	GenerateCustomQuestions(ctx context.Context, profile domain.ProfileData) ([]string, error)
	CheckConnectivity(ctx context.Context) bool
	SaveProfile(ctx context.Context, data domain.ProfileData) (domain.Profile, error)
	Profile() *domain.ProfileData
	CustomQuestions() []string
	SetOnboardingCompleted(ctx context.Context, completed bool) error
	OnboardingCompleted() bool
	History(ctx context.Context) ([]domain.Message, error)
	Messages(ctx context.Context, sessionID string) ([]domain.Message, error)
	Sessions(ctx context.Context) ([]domain.Session, error)
	SessionID() string
	State() assistant.State
	Status() assistant.Status
}

var _ Assistant = (*assistant.Orchestrator)(nil)

// Handler serves the assistant endpoints.
type Handler struct {
	assistant Assistant
	logger    *slog.Logger
}

// NewHandler creates a new Handler.
func NewHandler(a Assistant, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{assistant: a, logger: logger}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// decodeJSON reads a bounded JSON body into v. An empty body leaves v untouched
// when allowEmpty is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any, allowEmpty bool) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// serviceError maps an orchestrator error onto a status code.
func (h *Handler) serviceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"
	switch {
	case errdefs.IsInvalidArgument(err):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, assistant.ErrUninitialized):
		status, msg = http.StatusServiceUnavailable, "assistant not initialized"
	case errdefs.IsUnavailable(err), errdefs.IsFailedPrecondition(err):
		status, msg = http.StatusServiceUnavailable, "storage unavailable"
	case assistant.IsStorageError(err):
		msg = "storage failure"
	}
	h.logger.Error("Request failed",
		"op", op,
		"path", r.URL.Path,
		"status", status,
		"user_id", identity.UserIDFromContext(r.Context()),
		"error", err)
	Error(w, status, msg)
}
