package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/gichigi/choir/internal/api/respond"
	middleware "github.com/gichigi/choir/internal/api/middlewares"
	"github.com/gichigi/choir/internal/core"
	"github.com/gichigi/choir/internal/models"
	"github.com/gichigi/choir/internal/services"
)

type ContentHandler struct {
	content *services.ContentService
	log     *zap.Logger
}

func NewContentHandler(content *services.ContentService, log *zap.Logger) *ContentHandler {
	return &ContentHandler{content: content, log: log}
}

// parseContentQuery reads the listing filters. Tags may be repeated or comma separated.
func parseContentQuery(r *http.Request) (models.ContentQuery, error) {
	v := r.URL.Query()
	q := models.ContentQuery{
		SearchQuery: v.Get("q"),
		Type:        v.Get("type"),
		Cursor:      v.Get("cursor"),
	}
	if q.SearchQuery == "" {
		q.SearchQuery = v.Get("searchQuery")
	}
	for _, raw := range v["tags"] {
		q.Tags = append(q.Tags, strings.Split(raw, ",")...)
	}
	if raw := v.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return q, fmt.Errorf("%w: limit must be a number", core.ErrValidation)
		}
		q.Limit = n
	}
	return q, nil
}

func (h *ContentHandler) List(w http.ResponseWriter, r *http.Request) {
	q, err := parseContentQuery(r)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	q.AccountID = middleware.AccountID(r.Context())

	page, err := h.content.List(r.Context(), q)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.JSON(w, http.StatusOK, page)
}

func (h *ContentHandler) Metadata(w http.ResponseWriter, r *http.Request) {
	facets, err := h.content.Metadata(r.Context(), middleware.AccountID(r.Context()))
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.JSON(w, http.StatusOK, facets)
}

func (h *ContentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in models.ContentInput
	if err := respond.Decode(r, &in); err != nil {
		respond.Error(w, h.log, err)
		return
	}

	item, err := h.content.Create(r.Context(), middleware.AccountID(r.Context()), in)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.JSON(w, http.StatusCreated, item)
}

// Generate writes copy in the account's brand voice.
func (h *ContentHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var in services.GenerateContentInput
	if err := respond.Decode(r, &in); err != nil {
		respond.Error(w, h.log, err)
		return
	}

	res, err := h.content.Generate(r.Context(), middleware.AccountID(r.Context()), in)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	if res.Fallback {
		h.log.Warn("serving fallback content", zap.String("warning", res.Warning), zap.Error(res.Cause))
	}
	respond.JSON(w, http.StatusOK, res)
}

func (h *ContentHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := h.content.Get(r.Context(), chi.URLParam(r, "id"), middleware.AccountID(r.Context()))
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	if item == nil {
		respond.Error(w, h.log, core.ErrNotFound)
		return
	}
	respond.JSON(w, http.StatusOK, item)
}

func (h *ContentHandler) Update(w http.ResponseWriter, r *http.Request) {
	var upd models.ContentUpdate
	if err := respond.Decode(r, &upd); err != nil {
		respond.Error(w, h.log, err)
		return
	}

	item, err := h.content.Update(r.Context(), chi.URLParam(r, "id"), middleware.AccountID(r.Context()), upd)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.JSON(w, http.StatusOK, item)
}

func (h *ContentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.content.Delete(r.Context(), chi.URLParam(r, "id"), middleware.AccountID(r.Context())); err != nil {
		respond.Error(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ContentHandler) Export(w http.ResponseWriter, r *http.Request) {
	url, err := h.content.Export(r.Context(), chi.URLParam(r, "id"), middleware.AccountID(r.Context()))
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"url": url})
}

// DownloadExport streams the exported markdown back to the owner.
func (h *ContentHandler) DownloadExport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rc, err := h.content.OpenExport(r.Context(), id, middleware.AccountID(r.Context()))
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+id+`.md"`)
	if _, err := io.Copy(w, rc); err != nil {
		h.log.Warn("export download interrupted", zap.String("content_id", id), zap.Error(err))
	}
}
