package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gichigi/choir/internal/api/respond"
	"github.com/gichigi/choir/internal/core"
	"github.com/gichigi/choir/internal/core/extractor"
)

// maxImportedText caps the text returned for merging into additionalInfo.
const maxImportedText = 20000

type DocumentHandler struct {
	extractor core.DocumentExtractor
	log       *zap.Logger
}

func NewDocumentHandler(ext core.DocumentExtractor, log *zap.Logger) *DocumentHandler {
	return &DocumentHandler{extractor: ext, log: log}
}

type importResponse struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	Text        string `json:"text"`
}

// ImportDocument extracts the plain text of an uploaded brand document.
func (h *DocumentHandler) ImportDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, extractor.MaxDocumentBytes+1<<20)
	if err := r.ParseMultipartForm(extractor.MaxDocumentBytes); err != nil {
		respond.Error(w, h.log, fmt.Errorf("%w: invalid upload: %v", core.ErrValidation, err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respond.Error(w, h.log, fmt.Errorf("%w: missing file", core.ErrValidation))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, extractor.MaxDocumentBytes+1))
	if err != nil {
		respond.Error(w, h.log, fmt.Errorf("read upload: %w", err))
		return
	}

	fileName := filepath.Base(header.Filename)
	contentType := extractor.DetectContentType(header.Header.Get("Content-Type"), fileName, data)

	ctx, cancel := context.WithTimeout(r.Context(), time.Minute)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	fragments, err := h.extractor.ExtractText(gctx, g, data, contentType)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	text := extractor.Collect(fragments, maxImportedText)
	if err := g.Wait(); err != nil {
		respond.Error(w, h.log, err)
		return
	}

	h.log.Info("brand document imported",
		zap.String("file", fileName),
		zap.String("content_type", contentType),
		zap.Int("chars", len(text)))
	respond.JSON(w, http.StatusOK, importResponse{FileName: fileName, ContentType: contentType, Text: text})
}
