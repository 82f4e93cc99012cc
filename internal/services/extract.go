package services

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"

	"github.com/sjwg/reporter-backend/internal/platform/localfiles"
	"github.com/sjwg/reporter-backend/internal/platform/logger"
	"github.com/sjwg/reporter-backend/internal/platform/ocrx"
)

const rasterDPI = 300

// ExtractService recognizes the text content of a stored upload. PDFs are
// rasterized page by page and OCR'd; image uploads go straight to OCR.
type ExtractService interface {
	Extract(ctx context.Context, storedPath string) (string, error)
}

type extractService struct {
	log    *logger.Logger
	engine ocrx.Engine
}

func NewExtractService(baseLog *logger.Logger, engine ocrx.Engine) ExtractService {
	return &extractService{
		log:    baseLog.With("service", "ExtractService"),
		engine: engine,
	}
}

func (s *extractService) Extract(ctx context.Context, storedPath string) (string, error) {
	ext := localfiles.NormalizeExtension(filepath.Ext(storedPath))
	switch ext {
	case ".pdf":
		return s.extractPDF(ctx, storedPath)
	case ".png", ".jpg", ".jpeg":
		return s.extractImage(ctx, storedPath)
	default:
		return "", fmt.Errorf("unsupported file type %q", ext)
	}
}

func (s *extractService) extractPDF(ctx context.Context, storedPath string) (string, error) {
	doc, err := fitz.New(storedPath)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()

	pages := make([]string, 0, doc.NumPage())
	for i := 0; i < doc.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		img, err := doc.ImageDPI(i, rasterDPI)
		if err != nil {
			return "", fmt.Errorf("rasterize page %d: %w", i+1, err)
		}

		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return "", fmt.Errorf("encode page %d: %w", i+1, err)
		}

		text, err := s.engine.ImageText(ctx, buf.Bytes())
		if err != nil {
			return "", fmt.Errorf("ocr page %d: %w", i+1, err)
		}
		if text = strings.TrimSpace(text); text != "" {
			pages = append(pages, text)
		}
	}

	s.log.Debug("extracted pdf text", "path", storedPath, "pages", doc.NumPage(), "nonEmptyPages", len(pages))
	return strings.Join(pages, "\n\n"), nil
}

func (s *extractService) extractImage(ctx context.Context, storedPath string) (string, error) {
	data, err := os.ReadFile(storedPath)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	text, err := s.engine.ImageText(ctx, data)
	if err != nil {
		return "", fmt.Errorf("ocr image: %w", err)
	}
	return strings.TrimSpace(text), nil
}
