package api

import (
	"net/http"

	"github.com/ashureev/jobpt/internal/domain"
)

type onboardingRequest struct {
	Completed *bool `json:"completed"`
}

// GetProfile returns the saved profile.
func (h *Handler) GetProfile(w http.ResponseWriter, _ *http.Request) {
	p := h.assistant.Profile()
	if p == nil {
		Error(w, http.StatusNotFound, "profile not set")
		return
	}
	JSON(w, http.StatusOK, p)
}

// PutProfile replaces the profile.
func (h *Handler) PutProfile(w http.ResponseWriter, r *http.Request) {
	var data domain.ProfileData
	if err := decodeJSON(w, r, &data, false); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	saved, err := h.assistant.SaveProfile(r.Context(), data)
	if err != nil {
		h.serviceError(w, r, "save_profile", err)
		return
	}
	JSON(w, http.StatusOK, saved)
}

// GetQuestions returns the current custom question set.
func (h *Handler) GetQuestions(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string][]string{"questions": h.assistant.CustomQuestions()})
}

// GenerateQuestions builds a new question set from the saved profile. Fields in
// the request body override it.
func (h *Handler) GenerateQuestions(w http.ResponseWriter, r *http.Request) {
	var data domain.ProfileData
	if p := h.assistant.Profile(); p != nil {
		data = *p
	}
	if err := decodeJSON(w, r, &data, true); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	qs, err := h.assistant.GenerateCustomQuestions(r.Context(), data)
	if err != nil {
		h.serviceError(w, r, "generate_questions", err)
		return
	}
	JSON(w, http.StatusOK, map[string][]string{"questions": qs})
}

// GetOnboarding returns the onboarding flag.
func (h *Handler) GetOnboarding(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]bool{"completed": h.assistant.OnboardingCompleted()})
}

// PutOnboarding sets the onboarding flag.
func (h *Handler) PutOnboarding(w http.ResponseWriter, r *http.Request) {
	var req onboardingRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Completed == nil {
		Error(w, http.StatusBadRequest, "completed is required")
		return
	}
	if err := h.assistant.SetOnboardingCompleted(r.Context(), *req.Completed); err != nil {
		h.serviceError(w, r, "set_onboarding", err)
		return
	}
	JSON(w, http.StatusOK, map[string]bool{"completed": *req.Completed})
}
