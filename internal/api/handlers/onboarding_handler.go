package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/gichigi/choir/internal/api/respond"
	middleware "github.com/gichigi/choir/internal/api/middlewares"
	"github.com/gichigi/choir/internal/core"
	"github.com/gichigi/choir/internal/models"
	"github.com/gichigi/choir/internal/services"
)

type OnboardingHandler struct {
	onboarding *services.OnboardingService
	log        *zap.Logger
}

func NewOnboardingHandler(onboarding *services.OnboardingService, log *zap.Logger) *OnboardingHandler {
	return &OnboardingHandler{onboarding: onboarding, log: log}
}

type saveDraftRequest struct {
	models.DraftFields
	SessionID string `json:"sessionId,omitempty"`
}

type savedDraft struct {
	ID string `json:"id"`
}

// PutSession saves the anonymous draft of a session.
func (h *OnboardingHandler) PutSession(w http.ResponseWriter, r *http.Request) {
	var fields models.DraftFields
	if err := respond.Decode(r, &fields); err != nil {
		respond.Error(w, h.log, err)
		return
	}

	id, err := h.onboarding.SaveForSession(r.Context(), chi.URLParam(r, "sessionId"), fields)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.JSON(w, http.StatusOK, savedDraft{ID: id})
}

func (h *OnboardingHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	d, err := h.onboarding.GetForSession(r.Context(), chi.URLParam(r, "sessionId"))
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.JSON(w, http.StatusOK, d)
}

// PutAccount saves the account's draft. When sessionId is given and the account
// has no draft yet, the session's draft is adopted.
func (h *OnboardingHandler) PutAccount(w http.ResponseWriter, r *http.Request) {
	var req saveDraftRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, h.log, err)
		return
	}

	accountID := middleware.AccountID(r.Context())
	id, err := h.onboarding.SaveForAccount(r.Context(), accountID, req.DraftFields, req.SessionID)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.JSON(w, http.StatusOK, savedDraft{ID: id})
}

func (h *OnboardingHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	d, err := h.onboarding.GetForAccount(r.Context(), middleware.AccountID(r.Context()))
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.JSON(w, http.StatusOK, d)
}

func (h *OnboardingHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	d, err := h.onboarding.GetByID(r.Context(), chi.URLParam(r, "id"), middleware.AccountID(r.Context()))
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	if d == nil {
		respond.Error(w, h.log, core.ErrNotFound)
		return
	}
	respond.JSON(w, http.StatusOK, d)
}
