// Package dashboard serves the results UI and the scan API on a fixed port.
package dashboard

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/catalystscan/backend/catalyst"
	log "github.com/catalystscan/backend/chassis/logging"
	"github.com/catalystscan/backend/chassis/queue"
	"github.com/catalystscan/backend/chassis/storage"
	"github.com/catalystscan/backend/ingest/asx"
	"github.com/catalystscan/backend/ingest/sec"
)

// Config ...
type Config struct {
	Addr       string
	Results    storage.ResultRepository
	Intake     queue.Client
	ASX        *asx.Client
	SEC        *sec.Client
	MarketCaps map[string]int64
}

// Server ...
type Server struct {
	cfg    Config
	router *mux.Router

	mu   sync.Mutex
	scan ScanState
}

// New ...
func New(cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":8501"
	}
	s := &Server{cfg: cfg}
	s.router = mux.NewRouter()
	s.router.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	s.router.HandleFunc("/api/results", s.handleResults).Methods(http.MethodGet)
	s.router.HandleFunc("/api/results.csv", s.handleResultsCSV).Methods(http.MethodGet)
	s.router.HandleFunc("/api/scan", s.handleScan).Methods(http.MethodPost)
	s.router.HandleFunc("/api/scan/status", s.handleScanStatus).Methods(http.MethodGet)
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.Handler())
	return s
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Status returns a snapshot of the current scan.
func (s *Server) Status() ScanState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scan
}

// Run serves until the context is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.Addr,
		Handler: s.router,
	}
	errs := make(chan error, 1)
	go func() {
		log.WithFields(log.Fields{
			"event": "dashboard_listen",
			"addr":  s.cfg.Addr,
		}).Info("dashboard listening")
		errs <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errs:
		return err
	}
}

// statementRow is one flattened disclosure for the table and exports.
type statementRow struct {
	DocID        string `json:"doc_id"`
	Exchange     string `json:"exchange"`
	FilingType   string `json:"filing_type"`
	FilingDate   string `json:"filing_date"`
	Preview      string `json:"preview"`
	Impact       string `json:"impact"`
	Tone         string `json:"tone"`
	ForecastType string `json:"forecast_type"`
	Score        int    `json:"score"`
	CreatedAt    string `json:"created_at"`
}

var impactRank = map[string]int{"HIGH": 3, "MED": 2, "LOW": 1}

// loadRows flattens the stored artifacts into display rows, filtered and
// sorted by impact then score, both descending.
func (s *Server) loadRows(exchange, impact string) ([]statementRow, error) {
	results, err := s.cfg.Results.ListResults(strings.ToUpper(exchange), 0)
	if err != nil {
		return nil, err
	}

	var rows []statementRow
	for _, res := range results {
		var art struct {
			Items []catalyst.Disclosure `json:"items"`
		}
		if err := json.Unmarshal([]byte(res.OutputJSON), &art); err != nil {
			log.WithFields(log.Fields{
				"event":    "broken_result_row",
				"recordID": res.ID,
			}).Error(err)
			continue
		}
		for _, item := range art.Items {
			if impact != "" && !strings.EqualFold(string(item.Impact), impact) {
				continue
			}
			rows = append(rows, statementRow{
				DocID:        item.DocID,
				Exchange:     res.Exchange,
				FilingType:   string(item.FilingType),
				FilingDate:   item.FilingDate,
				Preview:      item.TextPreview(),
				Impact:       string(item.Impact),
				Tone:         string(item.Tone),
				ForecastType: string(item.ForecastType),
				Score:        item.Score,
				CreatedAt:    res.CreatedAt,
			})
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		ri, rj := impactRank[rows[i].Impact], impactRank[rows[j].Impact]
		if ri != rj {
			return ri > rj
		}
		return rows[i].Score > rows[j].Score
	})
	return rows, nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	exchange := r.URL.Query().Get("exchange")
	impact := r.URL.Query().Get("impact")

	rows, err := s.loadRows(exchange, impact)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.mu.Lock()
	scan := s.scan
	s.mu.Unlock()

	data := indexData{
		Rows:     rows,
		Exchange: strings.ToUpper(exchange),
		Impact:   strings.ToUpper(impact),
		Scan:     scan,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, data); err != nil {
		log.WithFields(log.Fields{
			"event": "template_render_failed",
		}).Error(err)
	}
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	rows, err := s.loadRows(r.URL.Query().Get("exchange"), r.URL.Query().Get("impact"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []statementRow{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rows)
}

func (s *Server) handleResultsCSV(w http.ResponseWriter, r *http.Request) {
	rows, err := s.loadRows(r.URL.Query().Get("exchange"), r.URL.Query().Get("impact"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="catalyst_scan.csv"`)

	cw := csv.NewWriter(w)
	cw.Write([]string{"doc_id", "exchange", "filing_type", "filing_date", "preview", "impact", "tone", "forecast_type", "score", "created_at"})
	for _, row := range rows {
		cw.Write([]string{
			row.DocID, row.Exchange, row.FilingType, row.FilingDate, row.Preview,
			row.Impact, row.Tone, row.ForecastType, strconv.Itoa(row.Score), row.CreatedAt,
		})
	}
	cw.Flush()
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("bad scan request: %v", err), http.StatusBadRequest)
		return
	}
	if err := s.StartScan(req); err != nil {
		code := http.StatusBadRequest
		if errors.Is(err, ErrScanRunning) {
			code = http.StatusConflict
		}
		http.Error(w, err.Error(), code)
		return
	}
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"status": "started"})
}

func (s *Server) handleScanStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	scan := s.scan
	s.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(scan)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("ok"))
}
