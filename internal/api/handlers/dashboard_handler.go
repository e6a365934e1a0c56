package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/gichigi/choir/internal/api/respond"
	middleware "github.com/gichigi/choir/internal/api/middlewares"
	"github.com/gichigi/choir/internal/models"
	"github.com/gichigi/choir/internal/services"
)

const recentContent = 5

type DashboardHandler struct {
	voices  *services.BrandVoiceService
	content *services.ContentService
	log     *zap.Logger
}

func NewDashboardHandler(voices *services.BrandVoiceService, content *services.ContentService, log *zap.Logger) *DashboardHandler {
	return &DashboardHandler{voices: voices, content: content, log: log}
}

type dashboardSummary struct {
	BrandVoice    *models.BrandVoice   `json:"brandVoice"`
	RecentContent []models.ContentItem `json:"recentContent"`
	Facets        models.ContentFacets `json:"facets"`
}

// Summary is served behind the dashboard gate.
func (h *DashboardHandler) Summary(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.AccountID(r.Context())

	voice, err := h.voices.Get(r.Context(), accountID)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	page, err := h.content.List(r.Context(), models.ContentQuery{AccountID: accountID, Limit: recentContent})
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	facets, err := h.content.Metadata(r.Context(), accountID)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.JSON(w, http.StatusOK, dashboardSummary{BrandVoice: voice, RecentContent: page.Items, Facets: facets})
}
