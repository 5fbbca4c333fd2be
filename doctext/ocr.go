package doctext

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/catalystscan/backend/chassis/metrics"
)

type ocrEngine interface {
	recognizePage(ctx context.Context, png []byte) (string, error)
}

// tesseractEngine wraps gosseract with a fresh client per page.
type tesseractEngine struct {
	clientFactory func() *gosseract.Client
	languages     []string
	dpi           int
}

func newTesseractEngine(languages []string, dpi int) *tesseractEngine {
	return &tesseractEngine{
		clientFactory: gosseract.NewClient,
		languages:     languages,
		dpi:           dpi,
	}
}

func (e *tesseractEngine) recognizePage(ctx context.Context, png []byte) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}
	c := e.clientFactory()
	defer c.Close()

	if err := c.SetImageFromBytes(png); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	if len(e.languages) > 0 {
		if err := c.SetLanguage(e.languages...); err != nil {
			return "", fmt.Errorf("set languages: %w", err)
		}
	}
	if e.dpi > 0 {
		if err := c.SetVariable(gosseract.SettableVariable("user_defined_dpi"), strconv.Itoa(e.dpi)); err != nil {
			return "", fmt.Errorf("set dpi: %w", err)
		}
	}
	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// recognize renders every page to PNG with pdftoppm and OCRs them in order.
func (p *Poppler) recognize(ctx context.Context, path string) (string, int, error) {
	tmpDir, err := os.MkdirTemp("", "catalystscan-ocr-")
	if err != nil {
		return "", 0, err
	}
	defer os.RemoveAll(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	cmd := exec.CommandContext(ctx, p.cfg.PdftoppmBin,
		"-png",
		"-r", strconv.Itoa(p.cfg.DPI),
		path, prefix,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", 0, fmt.Errorf("pdftoppm %s: %w (%s)", path, err, strings.TrimSpace(string(out)))
	}

	pages, err := filepath.Glob(prefix + "-*.png")
	if err != nil {
		return "", 0, err
	}
	if len(pages) == 0 {
		return "", 0, fmt.Errorf("pdftoppm produced no pages for %s", path)
	}
	sort.Strings(pages)

	var sb strings.Builder
	for i, page := range pages {
		png, err := os.ReadFile(page)
		if err != nil {
			return "", 0, err
		}
		text, err := p.ocr.recognizePage(ctx, png)
		if err != nil {
			return "", 0, fmt.Errorf("ocr page %d: %w", i+1, err)
		}
		metrics.OCRPages.Inc()
		if i > 0 {
			sb.WriteString("\f")
		}
		sb.WriteString(text)
	}
	return sb.String(), len(pages), nil
}
