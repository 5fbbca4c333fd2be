package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/catalystscan/backend/chassis/logging"
	"github.com/catalystscan/backend/chassis/protocol"
	"github.com/catalystscan/backend/ingest/sec"
	"github.com/catalystscan/backend/pipeline"
)

// ScanRequest - a batch scan submitted from the UI or the API.
type ScanRequest struct {
	Exchange    string   `json:"exchange"`
	Tickers     []string `json:"tickers"`
	Period      string   `json:"period"` // week | month | 3months | 6months
	FilingTypes []string `json:"filing_types"`

	// Direct mode: scan one document by URL instead of discovering filings.
	FileURL    string `json:"file_url,omitempty"`
	FilingType string `json:"filing_type,omitempty"`
	FilingDate string `json:"filing_date,omitempty"`
	Ticker     string `json:"ticker,omitempty"`
}

// ScanState is the progress snapshot served at /api/scan/status.
type ScanState struct {
	Running    bool     `json:"running"`
	Total      int      `json:"total"`
	Done       int      `json:"done"`
	Submitted  int      `json:"submitted"`
	Skipped    []string `json:"skipped,omitempty"`
	Failed     []string `json:"failed,omitempty"`
	Message    string   `json:"message,omitempty"`
	StartedAt  string   `json:"started_at,omitempty"`
	FinishedAt string   `json:"finished_at,omitempty"`
}

// ErrScanRunning - only one batch scan may run at a time.
var ErrScanRunning = errors.New("a scan is already running")

var periodDays = map[string]int{
	"week":    7,
	"month":   30,
	"3months": 90,
	"6months": 180,
}

// StartScan validates the request and launches the batch in the background.
// One scan at a time.
func (s *Server) StartScan(req ScanRequest) error {
	req.Exchange = strings.ToUpper(strings.TrimSpace(req.Exchange))
	if req.Exchange != "ASX" && req.Exchange != "SEC" {
		return fmt.Errorf("unknown exchange %q", req.Exchange)
	}
	if req.FileURL == "" && len(req.Tickers) == 0 {
		return errors.New("scan request needs tickers or a file_url")
	}
	if req.Period == "" {
		req.Period = "3months"
	}
	if _, ok := periodDays[req.Period]; !ok {
		return fmt.Errorf("unknown period %q", req.Period)
	}
	if len(req.FilingTypes) == 0 {
		if req.Exchange == "ASX" {
			req.FilingTypes = []string{"quarterly"}
		} else {
			req.FilingTypes = []string{"10-Q"}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scan.Running {
		return ErrScanRunning
	}
	s.scan = ScanState{
		Running:   true,
		Total:     len(req.Tickers),
		StartedAt: time.Now().UTC().Format(time.RFC3339),
		Message:   "scan started",
	}

	go s.runScan(req)
	return nil
}

func (s *Server) runScan(req ScanRequest) {
	ctx := context.Background()

	defer func() {
		s.mu.Lock()
		s.scan.Running = false
		s.scan.FinishedAt = time.Now().UTC().Format(time.RFC3339)
		s.scan.Message = "scan complete"
		s.mu.Unlock()
	}()

	if req.FileURL != "" {
		s.submitFiling(req.Exchange, req.Ticker, req.FilingType, req.FilingDate, req.FileURL)
		return
	}

	switch req.Exchange {
	case "ASX":
		s.scanASX(ctx, req)
	case "SEC":
		s.scanSEC(ctx, req)
	}
}

func (s *Server) scanASX(ctx context.Context, req ScanRequest) {
	wanted := map[string]struct{}{}
	for _, ft := range req.FilingTypes {
		wanted[strings.ToLower(ft)] = struct{}{}
	}

	for _, ticker := range req.Tickers {
		ticker = strings.ToUpper(strings.TrimSpace(ticker))
		anns, err := s.cfg.ASX.Announcements(ctx, ticker, req.Period)
		if err != nil {
			s.markFailed(ticker, err)
			continue
		}

		matched := 0
		for _, ann := range anns {
			if _, ok := wanted[ann.FilingType]; !ok {
				continue
			}
			s.submitFiling("ASX", ticker, ann.FilingType, ann.Date, ann.PageURL)
			matched++
		}
		if matched == 0 {
			s.markSkipped(ticker, "no matching reports")
		}
		s.markDone()
	}
}

func (s *Server) scanSEC(ctx context.Context, req ScanRequest) {
	companies, err := s.cfg.SEC.CIKMap(ctx)
	if err != nil {
		s.mu.Lock()
		s.scan.Message = "CIK map fetch failed: " + err.Error()
		s.mu.Unlock()
		return
	}
	byTicker := make(map[string]sec.Company, len(companies))
	for _, c := range companies {
		byTicker[strings.ToUpper(c.Ticker)] = c
	}

	end := time.Now()
	start := end.AddDate(0, 0, -periodDays[req.Period])

	for _, ticker := range req.Tickers {
		ticker = strings.ToUpper(strings.TrimSpace(ticker))
		company, ok := byTicker[ticker]
		if !ok {
			s.markSkipped(ticker, "no CIK mapping")
			s.markDone()
			continue
		}
		if len(s.cfg.MarketCaps) > 0 {
			if kept := sec.FilterMarketCap([]sec.Company{company}, s.cfg.MarketCaps, sec.MarketCapMin, sec.MarketCapMax); len(kept) == 0 {
				s.markSkipped(ticker, "outside market cap band")
				s.markDone()
				continue
			}
		}

		filings, err := s.cfg.SEC.RecentFilings(ctx, company, start, end)
		if err != nil {
			s.markFailed(ticker, err)
			continue
		}
		if len(filings) == 0 {
			s.markSkipped(ticker, "no 10-Q")
			s.markDone()
			continue
		}
		for _, f := range filings {
			s.submitFiling("SEC", ticker, f.Form, f.ReportDate, f.URL)
		}
		s.markDone()
	}
}

// submitFiling enqueues one submit:scan message for the pipeline.
func (s *Server) submitFiling(exchange, ticker, filingType, filingDate, fileURL string) {
	docID := pipeline.MakeDocID(ticker, filingDate, filingType)
	request := protocol.Request{
		Method: protocol.MethodSubmitScan,
		Params: map[string]string{
			protocol.ParamDocID:      docID,
			protocol.ParamFileURL:    fileURL,
			protocol.ParamExchange:   exchange,
			protocol.ParamFilingType: filingType,
			protocol.ParamFilingDate: filingDate,
			protocol.ParamTicker:     ticker,
		},
	}
	jsonMsg, err := request.JSON()
	if err != nil {
		s.markFailed(ticker, err)
		return
	}
	if err := s.cfg.Intake.SendMessage(jsonMsg); err != nil {
		s.markFailed(ticker, err)
		return
	}
	s.mu.Lock()
	s.scan.Submitted++
	s.mu.Unlock()
	log.WithFields(log.Fields{
		"event":    "scan_submitted",
		"docID":    docID,
		"exchange": exchange,
		"ticker":   ticker,
	}).Info("submitted filing for scanning")
}

func (s *Server) markDone() {
	s.mu.Lock()
	s.scan.Done++
	s.mu.Unlock()
}

func (s *Server) markSkipped(ticker, reason string) {
	s.mu.Lock()
	s.scan.Skipped = append(s.scan.Skipped, fmt.Sprintf("%s (%s)", ticker, reason))
	s.mu.Unlock()
}

func (s *Server) markFailed(ticker string, err error) {
	s.mu.Lock()
	s.scan.Failed = append(s.scan.Failed, ticker)
	s.scan.Done++
	s.mu.Unlock()
	log.WithFields(log.Fields{
		"event":  "scan_ticker_failed",
		"ticker": ticker,
	}).Error(err)
}
