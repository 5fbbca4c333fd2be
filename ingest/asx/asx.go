// Package asx scrapes the ASX announcements endpoint and resolves its
// agreement pages into downloadable filing PDFs.
package asx

import (
	"context"
	"crypto/sha1"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	log "github.com/catalystscan/backend/chassis/logging"
	"github.com/catalystscan/backend/chassis/metrics"
)

const (
	defaultEndpoint = "https://www.asx.com.au/asx/v2/statistics/announcements.do"
	defaultBaseURL  = "https://www.asx.com.au"
)

// The announcements endpoint rejects non-browser agents.
const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) " +
	"Chrome/120.0.0.0 Safari/537.36"

// periodParams maps lookback keys onto the endpoint's timeframe/period pair.
var periodParams = map[string][2]string{
	"week":    {"D", "W"},
	"month":   {"D", "M"},
	"3months": {"D", "M3"},
	"6months": {"D", "M6"},
}

var pdfURLPattern = regexp.MustCompile(`https://announcements\.asx\.com\.au/asxpdf/.+?\.pdf`)

// Announcement - one row from the announcements table.
type Announcement struct {
	Date       string
	Ticker     string
	Title      string
	FilingType string
	PageURL    string
}

// Config ...
type Config struct {
	Endpoint string
	BaseURL  string
	DataDir  string
	HTTP     *http.Client
}

// Client ...
type Client struct {
	cfg    Config
	warmed bool
}

// New ...
func New(cfg Config) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "data/asx"
	}
	if cfg.HTTP == nil {
		cfg.HTTP = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{cfg: cfg}
}

// ClassifyTitle buckets an announcement title. Everything that is not a
// quarterly report, annual report or investor presentation is "other".
func ClassifyTitle(title string) string {
	t := strings.ToLower(title)
	if strings.Contains(t, "quarterly") && strings.Contains(t, "report") {
		return "quarterly"
	}
	if strings.Contains(t, "investor presentation") {
		return "investor"
	}
	if strings.Contains(t, "annual report") {
		return "annual"
	}
	return "other"
}

var dateFormats = []string{"02/01/2006", "2006-01-02", "2 Jan 2006", "2 January 2006"}

func parseDate(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateFormats {
		if d, err := time.Parse(layout, raw); err == nil {
			return d
		}
	}
	return time.Now()
}

func (c *Client) safeGet(ctx context.Context, rawURL string, params url.Values) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(1500 * time.Millisecond):
			}
		}
		target := rawURL
		if len(params) > 0 {
			target = rawURL + "?" + params.Encode()
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", browserUserAgent)
		req.Header.Set("Referer", c.cfg.Endpoint)
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")

		resp, err := c.cfg.HTTP.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode == http.StatusOK {
			return resp, nil
		}
		resp.Body.Close()
		lastErr = fmt.Errorf("HTTP %d from %s", resp.StatusCode, rawURL)
	}
	return nil, lastErr
}

// Announcements fetches the announcement rows for one ticker and lookback
// period, keeping only quarterly, annual and investor filings.
func (c *Client) Announcements(ctx context.Context, ticker, period string) ([]Announcement, error) {
	tf, ok := periodParams[period]
	if !ok {
		return nil, fmt.Errorf("unknown period %q", period)
	}

	// first hit initializes the session cookies the endpoint expects
	if !c.warmed {
		if resp, err := c.safeGet(ctx, c.cfg.Endpoint, nil); err == nil {
			resp.Body.Close()
		}
		c.warmed = true
	}

	params := url.Values{}
	params.Set("by", "asxCode")
	params.Set("asxCode", strings.ToUpper(ticker))
	params.Set("timeframe", tf[0])
	params.Set("period", tf[1])

	resp, err := c.safeGet(ctx, c.cfg.Endpoint, params)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	anns, err := parseAnnouncements(resp.Body, strings.ToUpper(ticker), c.cfg.BaseURL)
	if err != nil {
		return nil, err
	}

	var filtered []Announcement
	for _, ann := range anns {
		if ann.FilingType != "other" {
			filtered = append(filtered, ann)
		}
	}
	log.WithFields(log.Fields{
		"event":  "asx_announcements",
		"ticker": ticker,
		"total":  len(anns),
		"kept":   len(filtered),
	}).Debug("fetched announcements")
	return filtered, nil
}

// DownloadFiling resolves an announcement page (or direct PDF link) and
// writes the PDF to the data dir. Returns the local path and the final URL.
func (c *Client) DownloadFiling(ctx context.Context, pageURL string) (string, string, error) {
	resp, err := c.safeGet(ctx, pageURL, nil)
	if err != nil {
		return "", "", fmt.Errorf("could not fetch URL %s: %w", pageURL, err)
	}

	var pdfURL string
	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if strings.Contains(contentType, "pdf") {
		pdfURL = resp.Request.URL.String()
		resp.Body.Close()
	} else {
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
		resp.Body.Close()
		if readErr != nil {
			return "", "", readErr
		}
		pdfURL = ExtractPDFURL(string(body))
		if pdfURL == "" {
			return "", "", fmt.Errorf("no PDF URL found in agreement page: %s", pageURL)
		}
	}

	pdfResp, err := c.safeGet(ctx, pdfURL, nil)
	if err != nil {
		return "", "", fmt.Errorf("failed to download PDF from %s: %w", pdfURL, err)
	}
	defer pdfResp.Body.Close()
	if !strings.Contains(strings.ToLower(pdfResp.Header.Get("Content-Type")), "pdf") {
		return "", "", fmt.Errorf("%s is not a PDF", pdfURL)
	}

	finalURL := pdfResp.Request.URL.String()
	h := fmt.Sprintf("%x", sha1.Sum([]byte(finalURL)))[:10]
	outPath := filepath.Join(c.cfg.DataDir, fmt.Sprintf("asx_%s.pdf", h))

	if st, err := os.Stat(outPath); err == nil && st.Size() > 0 {
		return outPath, finalURL, nil
	}
	if err := os.MkdirAll(c.cfg.DataDir, 0o755); err != nil {
		return "", "", err
	}
	f, err := os.Create(outPath)
	if err != nil {
		return "", "", err
	}
	defer f.Close()
	if _, err := io.Copy(f, pdfResp.Body); err != nil {
		os.Remove(outPath)
		return "", "", err
	}

	metrics.FilingsDownloaded.WithLabelValues("ASX").Inc()
	log.WithFields(log.Fields{
		"event": "asx_pdf_saved",
		"file":  outPath,
	}).Info("saved ASX PDF")
	return outPath, finalURL, nil
}
