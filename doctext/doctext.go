// Package doctext turns filing PDFs into plain text. The text layer is read
// with poppler's pdftotext; scanned documents fall back to page rendering
// (pdftoppm) plus Tesseract OCR.
package doctext

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	log "github.com/catalystscan/backend/chassis/logging"
)

// Source markers for Result.
const (
	SourceTextLayer = "text"
	SourceOCR       = "ocr"
)

// Result ...
type Result struct {
	Text   string
	Source string
	Pages  int
}

// Extractor ...
type Extractor interface {
	Text(ctx context.Context, path string) (Result, error)
}

// Config ...
type Config struct {
	PdftotextBin    string
	PdftoppmBin     string
	MinCharsPerPage int
	Languages       []string
	DPI             int
}

// Poppler implements Extractor on top of the poppler CLI tools, the same
// renderer the scan container ships.
type Poppler struct {
	cfg Config
	ocr ocrEngine
}

// NewPoppler ...
func NewPoppler(cfg Config) *Poppler {
	if cfg.PdftotextBin == "" {
		cfg.PdftotextBin = "pdftotext"
	}
	if cfg.PdftoppmBin == "" {
		cfg.PdftoppmBin = "pdftoppm"
	}
	if cfg.MinCharsPerPage == 0 {
		cfg.MinCharsPerPage = 120
	}
	if cfg.DPI == 0 {
		cfg.DPI = 200
	}
	if len(cfg.Languages) == 0 {
		cfg.Languages = []string{"eng"}
	}
	return &Poppler{cfg: cfg, ocr: newTesseractEngine(cfg.Languages, cfg.DPI)}
}

// Text extracts the document text, deciding between the embedded text layer
// and OCR based on per-page character yield.
func (p *Poppler) Text(ctx context.Context, path string) (Result, error) {
	text, pages, err := p.textLayer(ctx, path)
	if err != nil {
		return Result{}, err
	}
	if !needsOCR(text, pages, p.cfg.MinCharsPerPage) {
		return Result{Text: text, Source: SourceTextLayer, Pages: pages}, nil
	}

	log.WithFields(log.Fields{
		"event": "ocr_fallback",
		"file":  path,
		"pages": pages,
	}).Info("text layer too sparse, running OCR")

	ocrText, ocrPages, err := p.recognize(ctx, path)
	if err != nil {
		// a sparse text layer still beats nothing
		if strings.TrimSpace(text) != "" {
			log.WithFields(log.Fields{
				"event": "ocr_failed",
				"file":  path,
			}).Error(err)
			return Result{Text: text, Source: SourceTextLayer, Pages: pages}, nil
		}
		return Result{}, err
	}
	return Result{Text: ocrText, Source: SourceOCR, Pages: ocrPages}, nil
}

func (p *Poppler) textLayer(ctx context.Context, path string) (string, int, error) {
	var out, errOut bytes.Buffer
	cmd := exec.CommandContext(ctx, p.cfg.PdftotextBin, "-layout", path, "-")
	cmd.Stdout = &out
	cmd.Stderr = &errOut
	if err := cmd.Run(); err != nil {
		return "", 0, fmt.Errorf("pdftotext %s: %w (%s)", path, err, strings.TrimSpace(errOut.String()))
	}
	text := out.String()
	return text, countPages(text), nil
}

// countPages relies on the form-feed page separators pdftotext emits.
func countPages(text string) int {
	if text == "" {
		return 0
	}
	return strings.Count(text, "\f") + 1
}

// needsOCR reports whether the text layer is too sparse to trust, which is
// what a scanned filing looks like after pdftotext.
func needsOCR(text string, pages, minCharsPerPage int) bool {
	if pages == 0 {
		return true
	}
	compact := strings.TrimSpace(text)
	return len(compact)/pages < minCharsPerPage
}
