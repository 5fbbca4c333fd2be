// Package sec pulls 10-Q filings from the EDGAR submissions API. Ticker to
// CIK resolution comes from the SEC company map; market cap screening runs
// off an operator-supplied CSV.
package sec

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	log "github.com/catalystscan/backend/chassis/logging"
	"github.com/catalystscan/backend/chassis/metrics"
)

const (
	defaultTickerMapURL   = "https://www.sec.gov/files/company_tickers_exchange.json"
	defaultSubmissionsURL = "https://data.sec.gov/submissions"
	defaultArchivesURL    = "https://www.sec.gov/Archives/edgar/data"
	defaultUserAgent      = "CatalystScan (contact: ops@catalystscan.io)"

	targetForm = "10-Q"
)

// Market cap screening band in USD.
const (
	MarketCapMin = 100_000_000
	MarketCapMax = 800_000_000
)

// Company - one row of the SEC ticker map.
type Company struct {
	CIK      int64
	Ticker   string
	Name     string
	Exchange string
}

// Filing - one 10-Q ready to download.
type Filing struct {
	CIK        int64
	Ticker     string
	Form       string
	ReportDate string
	URL        string
}

// Config ...
type Config struct {
	TickerMapURL   string
	SubmissionsURL string
	ArchivesURL    string
	UserAgent      string
	DataDir        string
	HTTP           *http.Client
}

// Client ...
type Client struct {
	cfg Config
}

// New ...
func New(cfg Config) *Client {
	if cfg.TickerMapURL == "" {
		cfg.TickerMapURL = defaultTickerMapURL
	}
	if cfg.SubmissionsURL == "" {
		cfg.SubmissionsURL = defaultSubmissionsURL
	}
	if cfg.ArchivesURL == "" {
		cfg.ArchivesURL = defaultArchivesURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "data/sec"
	}
	if cfg.HTTP == nil {
		cfg.HTTP = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{cfg: cfg}
}

// DateRange resolves a lookback option to an inclusive date window.
func DateRange(option string) (time.Time, time.Time) {
	today := time.Now().Truncate(24 * time.Hour)
	switch option {
	case "today":
		return today, today
	case "1y":
		return today.AddDate(-1, 0, 0), today
	default: // 6m
		return today.AddDate(0, 0, -180), today
	}
}

func (c *Client) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	resp, err := c.cfg.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
	}
	return resp, nil
}

// CIKMap fetches the SEC ticker map, a columnar document of the form
// {"fields": [...], "data": [[...], ...]}.
func (c *Client) CIKMap(ctx context.Context) ([]Company, error) {
	resp, err := c.get(ctx, c.cfg.TickerMapURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var raw struct {
		Fields []string            `json:"fields"`
		Data   [][]json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode ticker map: %w", err)
	}

	col := map[string]int{}
	for i, f := range raw.Fields {
		col[f] = i
	}
	for _, need := range []string{"cik", "ticker", "name", "exchange"} {
		if _, ok := col[need]; !ok {
			return nil, fmt.Errorf("ticker map missing column %q", need)
		}
	}

	companies := make([]Company, 0, len(raw.Data))
	for _, row := range raw.Data {
		if len(row) != len(raw.Fields) {
			continue
		}
		var company Company
		if err := json.Unmarshal(row[col["cik"]], &company.CIK); err != nil {
			continue
		}
		json.Unmarshal(row[col["ticker"]], &company.Ticker)
		json.Unmarshal(row[col["name"]], &company.Name)
		json.Unmarshal(row[col["exchange"]], &company.Exchange)
		companies = append(companies, company)
	}
	return companies, nil
}

// RecentFilings lists this company's 10-Qs filed inside the window. EDGAR
// returns newest first; one filing per company is enough for a scan.
func (c *Client) RecentFilings(ctx context.Context, company Company, start, end time.Time) ([]Filing, error) {
	url := fmt.Sprintf("%s/CIK%010d.json", c.cfg.SubmissionsURL, company.CIK)
	resp, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var doc struct {
		Filings struct {
			Recent struct {
				Form            []string `json:"form"`
				AccessionNumber []string `json:"accessionNumber"`
				FilingDate      []string `json:"filingDate"`
				PrimaryDocument []string `json:"primaryDocument"`
			} `json:"recent"`
		} `json:"filings"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode submissions for CIK %d: %w", company.CIK, err)
	}

	rec := doc.Filings.Recent
	var filings []Filing
	for i := range rec.Form {
		if rec.Form[i] != targetForm {
			continue
		}
		filed, err := time.Parse("2006-01-02", rec.FilingDate[i])
		if err != nil {
			continue
		}
		if filed.Before(start) || filed.After(end) {
			continue
		}
		accession := strings.ReplaceAll(rec.AccessionNumber[i], "-", "")
		filings = append(filings, Filing{
			CIK:        company.CIK,
			Ticker:     company.Ticker,
			Form:       rec.Form[i],
			ReportDate: rec.FilingDate[i],
			URL:        fmt.Sprintf("%s/%d/%s/%s", c.cfg.ArchivesURL, company.CIK, accession, rec.PrimaryDocument[i]),
		})
		break
	}
	return filings, nil
}

// DownloadURL fetches an arbitrary EDGAR document URL into the data dir,
// named after the document. Used for manual scan requests that arrive as a
// bare URL instead of a Filing.
func (c *Client) DownloadURL(ctx context.Context, rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("bad filing URL %q: %w", rawURL, err)
	}
	name := path.Base(parsed.Path)
	if name == "" || name == "." || name == "/" {
		return "", fmt.Errorf("filing URL %q has no document name", rawURL)
	}
	return c.fetchTo(ctx, rawURL, filepath.Join(c.cfg.DataDir, name))
}

// Download writes the filing document to the data dir, skipping files that
// are already on disk.
func (c *Client) Download(ctx context.Context, f Filing) (string, error) {
	name := fmt.Sprintf("%d_%s_%s.html", f.CIK, f.Form, f.ReportDate)
	return c.fetchTo(ctx, f.URL, filepath.Join(c.cfg.DataDir, name))
}

func (c *Client) fetchTo(ctx context.Context, rawURL, dest string) (string, error) {
	if st, err := os.Stat(dest); err == nil && st.Size() > 0 {
		return dest, nil
	}
	if err := os.MkdirAll(c.cfg.DataDir, 0o755); err != nil {
		return "", err
	}

	resp, err := c.get(ctx, rawURL)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	out, err := os.Create(dest)
	if err != nil {
		return "", err
	}
	defer out.Close()
	if _, err := io.Copy(out, resp.Body); err != nil {
		os.Remove(dest)
		return "", err
	}

	metrics.FilingsDownloaded.WithLabelValues("SEC").Inc()
	log.WithFields(log.Fields{
		"event": "sec_filing_saved",
		"file":  dest,
	}).Info("saved SEC filing")
	return dest, nil
}
