// Package pipeline runs one filing end to end: fetch the document, extract
// its forward-looking statements, persist the JSON artifact and the results
// row.
package pipeline

import (
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/catalystscan/backend/catalyst"
	log "github.com/catalystscan/backend/chassis/logging"
	"github.com/catalystscan/backend/chassis/storage"
	"github.com/catalystscan/backend/extract"
)

// Downloader resolves a filing URL to a local file. The ASX client walks
// agreement pages; the SEC client fetches EDGAR documents directly.
type Downloader interface {
	Fetch(ctx context.Context, fileURL string) (localPath string, err error)
}

// Request - everything needed to process one filing.
type Request struct {
	FileURL    string
	Exchange   string
	FilingType string
	DocID      string
	FilingDate string
	Ticker     string
	SourceFile string
}

// Outcome reports what a run produced.
type Outcome struct {
	Status   string // "ok" or "no_items"
	Count    int
	Items    []catalyst.Disclosure
	RecordID string
	FilePath string
}

// StatusFunc receives progress messages for interactive callers. May be nil.
type StatusFunc func(msg string)

// Pipeline ...
type Pipeline struct {
	downloaders  map[string]Downloader // keyed by exchange
	deps         extract.Deps
	results      storage.ResultRepository
	processedDir string
}

// New ...
func New(deps extract.Deps, results storage.ResultRepository, processedDir string) *Pipeline {
	if processedDir == "" {
		processedDir = "data/processed"
	}
	return &Pipeline{
		downloaders:  map[string]Downloader{},
		deps:         deps,
		results:      results,
		processedDir: processedDir,
	}
}

// RegisterDownloader wires the exchange-specific fetcher.
func (p *Pipeline) RegisterDownloader(exchange string, d Downloader) {
	p.downloaders[strings.ToUpper(exchange)] = d
}

// MakeDocID derives the stable document id: TICKER + date + FILINGTYPE,
// capped at 64 bytes.
func MakeDocID(ticker, filingDate, filingType string) string {
	t := strings.ToUpper(ticker)
	if t == "" {
		t = "DOC"
	}
	d := filingDate
	if d == "" {
		d = time.Now().UTC().Format("2006-01-02")
	}
	ft := strings.ToUpper(filingType)
	ft = strings.ReplaceAll(ft, " ", "")
	ft = strings.ReplaceAll(ft, "/", "")
	id := t + d + ft
	if len(id) > 64 {
		id = id[:64]
	}
	return id
}

// ProcessFile runs the full pipeline for one request.
func (p *Pipeline) ProcessFile(ctx context.Context, req Request, status StatusFunc) (Outcome, error) {
	notify := func(msg string) {
		if status != nil {
			status(msg)
		}
	}

	if req.DocID == "" {
		req.DocID = MakeDocID(req.Ticker, req.FilingDate, req.FilingType)
	}
	if req.SourceFile == "" {
		req.SourceFile = req.FileURL
	}

	notify("Fetching & downloading filing...")
	localPath, downloaded, err := p.localize(ctx, req)
	if err != nil {
		return Outcome{}, err
	}
	if downloaded {
		// downloads are scratch files, extraction output is what we keep
		defer func() {
			if rmErr := os.Remove(localPath); rmErr == nil {
				log.WithFields(log.Fields{
					"event": "tmp_file_deleted",
					"file":  localPath,
				}).Debug("deleted tmp file")
			}
		}()
	}

	extractor, filingType, err := extract.ForFiling(req.Exchange, req.FilingType, p.deps)
	if err != nil {
		return Outcome{}, err
	}

	notify("Extracting forward-looking statements...")
	items := extract.Run(ctx, extractor, localPath, extract.Metadata{
		DocID:      req.DocID,
		Ticker:     req.Ticker,
		FilingDate: req.FilingDate,
		SourceFile: req.SourceFile,
	})

	notify("Saving extraction results...")
	recordID, filePath, err := p.persist(req, string(filingType), items)
	if err != nil {
		return Outcome{}, err
	}

	notify("Extraction completed")
	out := Outcome{
		Status:   "ok",
		Count:    len(items),
		Items:    items,
		RecordID: recordID,
		FilePath: filePath,
	}
	if len(items) == 0 {
		out.Status = "no_items"
	}
	return out, nil
}

// localize resolves the request to a readable file, downloading when the
// URL is not already a local path.
func (p *Pipeline) localize(ctx context.Context, req Request) (string, bool, error) {
	if st, err := os.Stat(req.FileURL); err == nil && !st.IsDir() {
		return req.FileURL, false, nil
	}
	d, ok := p.downloaders[strings.ToUpper(req.Exchange)]
	if !ok {
		return "", false, fmt.Errorf("no downloader registered for exchange %q", req.Exchange)
	}
	localPath, err := d.Fetch(ctx, req.FileURL)
	if err != nil {
		return "", false, err
	}
	return localPath, true, nil
}

// artifact is the shape written into the results row.
type artifact struct {
	Items []catalyst.Disclosure `json:"items"`
	File  string                `json:"file"`
}

// persist writes the JSON artifact and the results row. Statement text is
// capped at 400 runes in both.
func (p *Pipeline) persist(req Request, filingType string, items []catalyst.Disclosure) (string, string, error) {
	ts := time.Now().UTC().Format("20060102T150405Z")
	recordID := fmt.Sprintf("%x", sha1.Sum([]byte(req.DocID+req.Exchange+filingType+"_"+ts)))

	truncated := make([]catalyst.Disclosure, 0, len(items))
	for _, item := range items {
		truncated = append(truncated, item.Truncated())
	}

	if err := os.MkdirAll(p.processedDir, 0o755); err != nil {
		return "", "", err
	}
	filePath := filepath.Join(p.processedDir, fmt.Sprintf("%s%s%s.json", req.DocID, filingType, ts))

	fileBody, err := json.MarshalIndent(truncated, "", "  ")
	if err != nil {
		return "", "", err
	}
	if err := os.WriteFile(filePath, fileBody, 0o644); err != nil {
		return "", "", err
	}

	outputJSON, err := json.Marshal(artifact{Items: truncated, File: filePath})
	if err != nil {
		return "", "", err
	}

	err = p.results.SaveResult(&storage.Result{
		ID:         recordID,
		DocID:      req.DocID,
		Exchange:   req.Exchange,
		FilingType: filingType,
		FilingDate: req.FilingDate,
		SourceFile: req.SourceFile,
		OutputJSON: string(outputJSON),
		CreatedAt:  time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return "", "", fmt.Errorf("save result: %w", err)
	}

	log.WithFields(log.Fields{
		"event":      "result_persisted",
		"docID":      req.DocID,
		"recordID":   recordID,
		"statements": len(items),
		"file":       filePath,
	}).Info("extraction result persisted")
	return recordID, filePath, nil
}
