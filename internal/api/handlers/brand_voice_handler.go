package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/gichigi/choir/internal/api/respond"
	middleware "github.com/gichigi/choir/internal/api/middlewares"
	"github.com/gichigi/choir/internal/generation"
	"github.com/gichigi/choir/internal/models"
	"github.com/gichigi/choir/internal/services"
)

type BrandVoiceHandler struct {
	voices *services.BrandVoiceService
	log    *zap.Logger
}

func NewBrandVoiceHandler(voices *services.BrandVoiceService, log *zap.Logger) *BrandVoiceHandler {
	return &BrandVoiceHandler{voices: voices, log: log}
}

type createVoiceRequest struct {
	DraftID    string              `json:"draftId"`
	BrandVoice models.VoiceProfile `json:"brandVoice"`
}

type regenerateResponse struct {
	BrandVoice *models.BrandVoice `json:"brandVoice"`
	generation.Outcome
}

// Generate returns a voice preview for the posted onboarding answers.
func (h *BrandVoiceHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req generation.VoiceRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, h.log, err)
		return
	}

	res := h.voices.Generate(r.Context(), req)
	if res.Fallback {
		h.log.Warn("serving fallback brand voice", zap.String("warning", res.Warning), zap.Error(res.Cause))
	}
	respond.JSON(w, http.StatusOK, res)
}

func (h *BrandVoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createVoiceRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, h.log, err)
		return
	}

	v, err := h.voices.Create(r.Context(), middleware.AccountID(r.Context()), req.DraftID, req.BrandVoice)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.JSON(w, http.StatusCreated, v)
}

func (h *BrandVoiceHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	v, outcome, err := h.voices.Regenerate(r.Context(), middleware.AccountID(r.Context()))
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	if outcome.Fallback {
		h.log.Warn("regenerated with fallback voice", zap.String("voice_id", v.ID), zap.Error(outcome.Cause))
	}
	respond.JSON(w, http.StatusOK, regenerateResponse{BrandVoice: v, Outcome: outcome})
}

func (h *BrandVoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	v, err := h.voices.Get(r.Context(), middleware.AccountID(r.Context()))
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.JSON(w, http.StatusOK, v)
}

func (h *BrandVoiceHandler) Update(w http.ResponseWriter, r *http.Request) {
	var upd models.BrandVoiceUpdate
	if err := respond.Decode(r, &upd); err != nil {
		respond.Error(w, h.log, err)
		return
	}

	v, err := h.voices.Update(r.Context(), chi.URLParam(r, "id"), middleware.AccountID(r.Context()), upd)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.JSON(w, http.StatusOK, v)
}

func (h *BrandVoiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.voices.Delete(r.Context(), chi.URLParam(r, "id"), middleware.AccountID(r.Context())); err != nil {
		respond.Error(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
