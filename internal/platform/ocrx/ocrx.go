package ocrx

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/sjwg/reporter-backend/internal/platform/logger"
)

// Engine recognizes text in a single raster image. Implementations must be
// safe for concurrent use by multiple worker goroutines.
type Engine interface {
	ImageText(ctx context.Context, imageBytes []byte) (string, error)
}

// TesseractEngine backs Engine with a local Tesseract install via gosseract.
// A fresh client per call keeps the engine goroutine-safe; gosseract clients
// are not.
type TesseractEngine struct {
	log           *logger.Logger
	language      string
	dpi           int
	clientFactory func() *gosseract.Client
}

type Option func(*TesseractEngine)

func WithLanguage(lang string) Option {
	return func(e *TesseractEngine) {
		if strings.TrimSpace(lang) != "" {
			e.language = lang
		}
	}
}

func WithDPI(dpi int) Option {
	return func(e *TesseractEngine) {
		if dpi > 0 {
			e.dpi = dpi
		}
	}
}

func NewTesseractEngine(baseLog *logger.Logger, opts ...Option) *TesseractEngine {
	e := &TesseractEngine{
		log:           baseLog.With("service", "TesseractEngine"),
		language:      "eng",
		dpi:           300,
		clientFactory: gosseract.NewClient,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *TesseractEngine) ImageText(ctx context.Context, imageBytes []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(imageBytes) == 0 {
		return "", fmt.Errorf("empty image")
	}

	c := e.clientFactory()
	defer c.Close()

	if err := c.SetImageFromBytes(imageBytes); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	if err := c.SetLanguage(e.language); err != nil {
		return "", fmt.Errorf("set language: %w", err)
	}
	if err := c.SetVariable(gosseract.SettableVariable("user_defined_dpi"), fmt.Sprint(e.dpi)); err != nil {
		return "", fmt.Errorf("set dpi: %w", err)
	}

	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return strings.TrimSpace(text), nil
}
