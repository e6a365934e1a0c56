package extractor

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"code.sajari.com/docconv"
	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gichigi/choir/internal/core"
)

// MaxDocumentBytes caps the size of an imported brand document.
const MaxDocumentBytes = 10 << 20

type DocconvExtractor struct {
	useReadability bool
	log            *zap.Logger
}

var _ core.DocumentExtractor = (*DocconvExtractor)(nil)

func NewDocconvExtractor(useReadability bool, log *zap.Logger) *DocconvExtractor {
	return &DocconvExtractor{useReadability: useReadability, log: log}
}

// DetectContentType resolves the media type of an upload from its declared
// header, its file name and finally its leading bytes.
func DetectContentType(declared, filename string, data []byte) string {
	if mt, _, err := mime.ParseMediaType(declared); err == nil && mt != "application/octet-stream" {
		return mt
	}
	if mt := docconv.MimeTypeByExtension(filename); mt != "application/octet-stream" && filepath.Ext(filename) != "" {
		return mt
	}
	mt, _, _ := mime.ParseMediaType(mimetype.Detect(data).String())
	return mt
}

// ExtractText converts r with docconv and streams its non-empty lines as fragments.
// Plain text skips docconv.
func (e *DocconvExtractor) ExtractText(ctx context.Context, g *errgroup.Group, r []byte, contentType string) (<-chan string, error) {
	if len(r) > MaxDocumentBytes {
		return nil, fmt.Errorf("%w: document larger than %d bytes", core.ErrValidation, MaxDocumentBytes)
	}
	out := make(chan string, 32)

	g.Go(func() error {
		defer close(out)

		var text string
		if contentType == "text/plain" || contentType == "text/markdown" {
			text = string(r)
		} else {
			res, err := docconv.Convert(bytes.NewReader(r), contentType, e.useReadability)
			if err != nil {
				e.log.Warn("docconv extraction failed", zap.String("content_type", contentType), zap.Error(err))
				return fmt.Errorf("%w: cannot read %s document", core.ErrValidation, contentType)
			}
			text = res.Body
		}

		if strings.TrimSpace(text) == "" {
			e.log.Info("extracted empty text", zap.String("content_type", contentType))
			return nil
		}

		for _, line := range strings.Split(text, "\n") {
			if line = strings.TrimSpace(line); line == "" {
				continue
			}
			select {
			case out <- line:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	return out, nil
}

// Collect drains fragments into one newline separated text, stopping at maxLen bytes.
// It keeps reading after the cap so the producer never blocks.
func Collect(fragments <-chan string, maxLen int) string {
	var b strings.Builder
	for frag := range fragments {
		if maxLen > 0 && b.Len()+len(frag)+1 > maxLen {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(frag)
	}
	return b.String()
}
