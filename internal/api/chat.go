package api

import (
	"net/http"
	"strings"

	"github.com/ashureev/jobpt/internal/domain"
	"github.com/go-chi/chi/v5"
)

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Reply     string `json:"reply"`
	SessionID string `json:"session_id"`
}

type statusResponse struct {
	State               string `json:"state"`
	Status              string `json:"status"`
	SessionID           string `json:"session_id"`
	OnboardingCompleted bool   `json:"onboarding_completed"`
}

type messagesResponse struct {
	SessionID string           `json:"session_id"`
	Messages  []domain.Message `json:"messages"`
}

type sessionsResponse struct {
	ActiveSessionID string           `json:"active_session_id"`
	Sessions        []domain.Session `json:"sessions"`
}

type sessionIDResponse struct {
	SessionID string `json:"session_id"`
}

// RegisterRoutes registers every assistant route under /api.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/status", h.GetStatus)
		r.Post("/status/check", h.CheckStatus)

		r.Post("/chat", h.Chat)
		r.Get("/history", h.GetHistory)

		r.Get("/sessions", h.ListSessions)
		r.Post("/sessions", h.NewSession)
		r.Post("/sessions/reset", h.ResetSession)
		r.Delete("/sessions", h.ClearSessions)
		r.Delete("/sessions/{id}", h.DeleteSession)
		r.Get("/sessions/{id}/messages", h.GetSessionMessages)

		r.Delete("/messages", h.ClearMessages)
		r.Delete("/data", h.ClearData)

		r.Get("/profile", h.GetProfile)
		r.Put("/profile", h.PutProfile)
		r.Get("/questions", h.GetQuestions)
		r.Post("/questions/generate", h.GenerateQuestions)
		r.Get("/onboarding", h.GetOnboarding)
		r.Put("/onboarding", h.PutOnboarding)
	})
}

// GetStatus reports lifecycle state and advisor connectivity.
func (h *Handler) GetStatus(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, statusResponse{
		State:               h.assistant.State().String(),
		Status:              h.assistant.Status().String(),
		SessionID:           h.assistant.SessionID(),
		OnboardingCompleted: h.assistant.OnboardingCompleted(),
	})
}

// CheckStatus runs a connectivity probe.
func (h *Handler) CheckStatus(w http.ResponseWriter, r *http.Request) {
	connected := h.assistant.CheckConnectivity(r.Context())
	JSON(w, http.StatusOK, map[string]interface{}{
		"connected": connected,
		"status":    h.assistant.Status().String(),
	})
}

// Chat sends one user message and returns the persisted reply.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		Error(w, http.StatusBadRequest, "message is required")
		return
	}

	ex, err := h.assistant.Send(r.Context(), req.Message)
	if err != nil {
		h.serviceError(w, r, "send_message", err)
		return
	}
	JSON(w, http.StatusOK, chatResponse{Reply: ex.Reply, SessionID: ex.SessionID})
}

// GetHistory returns the messages of the active session.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := h.assistant.SessionID()
	msgs, err := h.assistant.Messages(r.Context(), sessionID)
	if err != nil {
		h.serviceError(w, r, "history", err)
		return
	}
	JSON(w, http.StatusOK, messagesResponse{SessionID: sessionID, Messages: msgs})
}

// ListSessions returns every session, newest first.
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.assistant.Sessions(r.Context())
	if err != nil {
		h.serviceError(w, r, "list_sessions", err)
		return
	}
	JSON(w, http.StatusOK, sessionsResponse{
		ActiveSessionID: h.assistant.SessionID(),
		Sessions:        sessions,
	})
}

// NewSession switches to a fresh session.
func (h *Handler) NewSession(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusCreated, sessionIDResponse{SessionID: h.assistant.StartNewSession()})
}

// ResetSession deletes the active session and starts a new one.
func (h *Handler) ResetSession(w http.ResponseWriter, r *http.Request) {
	id, err := h.assistant.ResetSession(r.Context())
	if err != nil {
		h.serviceError(w, r, "reset_session", err)
		return
	}
	JSON(w, http.StatusOK, sessionIDResponse{SessionID: id})
}

// ClearSessions removes every session and message.
func (h *Handler) ClearSessions(w http.ResponseWriter, r *http.Request) {
	if err := h.assistant.ClearAllSessions(r.Context()); err != nil {
		h.serviceError(w, r, "clear_sessions", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteSession removes one session with its messages.
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.assistant.DeleteSession(r.Context(), id); err != nil {
		h.serviceError(w, r, "delete_session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetSessionMessages returns the messages of one session.
func (h *Handler) GetSessionMessages(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	msgs, err := h.assistant.Messages(r.Context(), id)
	if err != nil {
		h.serviceError(w, r, "session_messages", err)
		return
	}
	JSON(w, http.StatusOK, messagesResponse{SessionID: id, Messages: msgs})
}

// ClearMessages removes every message.
func (h *Handler) ClearMessages(w http.ResponseWriter, r *http.Request) {
	if err := h.assistant.ClearAllMessages(r.Context()); err != nil {
		h.serviceError(w, r, "clear_messages", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearData wipes all local data.
func (h *Handler) ClearData(w http.ResponseWriter, r *http.Request) {
	if err := h.assistant.ClearAllData(r.Context()); err != nil {
		h.serviceError(w, r, "clear_data", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
